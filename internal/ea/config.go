package ea

import (
	"cvrp/internal/opt"
	"cvrp/internal/telemetry"
)

type Config struct {
	PopulationSize int     `validate:"gt=1"`
	Generations    int     `validate:"gt=0"`
	CrossoverProb  float64 `validate:"gte=0,lte=1"`
	MutationProb   float64 `validate:"gte=0,lte=1"`

	Crossover Crossover      `validate:"required"`
	Mutation  Mutation       `validate:"required"`
	Selector  Selector       `validate:"required"`
	Sink      telemetry.Sink `validate:"required"`
}

func (c Config) Validate() error {
	return opt.ValidateConfig(c)
}

// DefaultConfig — OX, обменная мутация, турнир из 5 особей, телеметрия отбрасывается.
func DefaultConfig() Config {
	return Config{
		PopulationSize: 100,
		Generations:    100,
		CrossoverProb:  0.7,
		MutationProb:   0.1,

		Crossover: OrderedCrossover{},
		Mutation:  SwapMutation{},
		Selector:  Tournament{size: 5},
		Sink:      telemetry.Discard{},
	}
}
