package sa

import (
	"math"
	"math/rand"
)

// DefaultBoltzmannScale масштабирует разницу приспособленностей перед делением на T.
const DefaultBoltzmannScale = 0.01

// Criterion решает, принимать ли ухудшающий ход.
// delta = текущая приспособленность - приспособленность кандидата.
type Criterion interface {
	Accept(delta, temperature float64, rng *rand.Rand) bool
	Probability(delta, temperature float64) float64
	Name() string
}

// Boltzmann — критерий Метрополиса exp(-delta*Scale/T).
type Boltzmann struct {
	Scale float64 `validate:"gt=0"`
}

func NewBoltzmann() Boltzmann { return Boltzmann{Scale: DefaultBoltzmannScale} }

func (Boltzmann) Name() string { return "boltzmann" }

// Probability лежит в [0,1]: улучшение принимается всегда, при T <= 0 ухудшение
// не принимается никогда.
func (b Boltzmann) Probability(delta, temperature float64) float64 {
	if math.IsNaN(delta) || math.IsNaN(temperature) {
		return 0
	}
	if delta <= 0 {
		return 1
	}
	if temperature <= 0 {
		return 0
	}
	p := math.Exp(-(delta * b.Scale) / temperature)
	return min(1, max(0, p))
}

func (b Boltzmann) Accept(delta, temperature float64, rng *rand.Rand) bool {
	return rng.Float64() < b.Probability(delta, temperature)
}
