package ea

import (
	"fmt"
	"math"
	"math/rand"

	"cvrp/internal/genome"
	"cvrp/internal/opt"
)

// Selector формирует новую популяцию того же размера из копий отобранных особей.
type Selector interface {
	Select(pop genome.Population, ev genome.Evaluator, rng *rand.Rand) (genome.Population, error)
	Name() string
}

// Restarter реализуют селекторы с состоянием: Restart возвращает копию
// в начальном состоянии, чтобы каждый запуск начинался одинаково.
type Restarter interface {
	Restart() Selector
}

// Tournament — турнирный отбор: на каждую позицию берётся лучшая из
// min(K, N) различных случайных особей.
type Tournament struct {
	size int
}

func NewTournament(size int) (Tournament, error) {
	if size <= 0 {
		return Tournament{}, &opt.ConfigError{Field: "TournamentSize", Rule: "gt", Param: "0", Value: size}
	}
	return Tournament{size: size}, nil
}

func (t Tournament) Name() string { return fmt.Sprintf("tournament-%d", t.size) }

func (t Tournament) Select(pop genome.Population, ev genome.Evaluator, rng *rand.Rand) (genome.Population, error) {
	if len(pop) == 0 {
		return nil, genome.ErrEmptyPopulation
	}
	scores, err := pop.Evaluate(ev)
	if err != nil {
		return nil, err
	}

	n := len(pop)
	k := min(t.size, n)
	idx := make([]int, n)
	out := make(genome.Population, n)
	for slot := range out {
		for i := range idx {
			idx[i] = i
		}
		// Частичное перемешивание Фишера–Йетса: первые k индексов — выборка без повторов
		best := -1
		for i := 0; i < k; i++ {
			j := i + rng.Intn(n-i)
			idx[i], idx[j] = idx[j], idx[i]
			if best < 0 || scores[idx[i]] > scores[best] {
				best = idx[i]
			}
		}
		out[slot] = pop[best].Clone()
	}
	return out, nil
}

// Roulette — рулеточный отбор по нормированной приспособленности.
type Roulette struct{}

func (Roulette) Name() string { return "roulette" }

func (Roulette) Select(pop genome.Population, ev genome.Evaluator, rng *rand.Rand) (genome.Population, error) {
	if len(pop) == 0 {
		return nil, genome.ErrEmptyPopulation
	}
	scores, err := pop.Evaluate(ev)
	if err != nil {
		return nil, err
	}
	raw := make([]float64, len(scores))
	for i, f := range scores {
		raw[i] = float64(f)
	}
	return spin(pop, wheel(raw), rng), nil
}

// AnnealedRoulette усиливает лучшую особь множителем 1/T перед рулеткой,
// после каждого отбора T умножается на коэффициент охлаждения.
type AnnealedRoulette struct {
	initial     float64
	factor      float64
	temperature float64
}

func NewAnnealedRoulette(temperature, coolingFactor float64) (*AnnealedRoulette, error) {
	if temperature <= 0 {
		return nil, &opt.ConfigError{Field: "Temperature", Rule: "gt", Param: "0", Value: temperature}
	}
	if coolingFactor <= 0 || coolingFactor > 1 {
		return nil, &opt.ConfigError{Field: "CoolingFactor", Rule: "range", Param: "(0,1]", Value: coolingFactor}
	}
	return &AnnealedRoulette{initial: temperature, factor: coolingFactor, temperature: temperature}, nil
}

func (r *AnnealedRoulette) Name() string { return "annealed-roulette" }

// Temperature — текущая температура.
func (r *AnnealedRoulette) Temperature() float64 { return r.temperature }

func (r *AnnealedRoulette) Restart() Selector {
	return &AnnealedRoulette{initial: r.initial, factor: r.factor, temperature: r.initial}
}

func (r *AnnealedRoulette) Select(pop genome.Population, ev genome.Evaluator, rng *rand.Rand) (genome.Population, error) {
	if len(pop) == 0 {
		return nil, genome.ErrEmptyPopulation
	}
	scores, err := pop.Evaluate(ev)
	if err != nil {
		return nil, err
	}
	s, err := genome.Summarize(scores)
	if err != nil {
		return nil, err
	}
	raw := make([]float64, len(scores))
	for i, f := range scores {
		raw[i] = float64(f)
	}
	boosted := raw[s.BestIndex] / r.temperature
	r.temperature *= r.factor

	// Температура ушла в ноль: множитель бесконечен, отбирается только лучшая
	if math.IsInf(boosted, 0) || math.IsNaN(boosted) {
		out := make(genome.Population, len(pop))
		for i := range out {
			out[i] = pop[s.BestIndex].Clone()
		}
		return out, nil
	}
	raw[s.BestIndex] = boosted
	return spin(pop, wheel(raw), rng), nil
}

// wheel переводит оценки в вероятности: min-max нормировка, затем деление на
// сумму. При равных оценках распределение равномерное.
func wheel(raw []float64) []float64 {
	lo, hi := raw[0], raw[0]
	for _, v := range raw {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	probs := make([]float64, len(raw))
	if hi == lo {
		for i := range probs {
			probs[i] = 1 / float64(len(raw))
		}
		return probs
	}
	var sum float64
	for i, v := range raw {
		probs[i] = (v - lo) / (hi - lo)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// spin выбирает len(pop) особей: первая, чей накопленный интервал содержит
// случайное число, иначе последняя.
func spin(pop genome.Population, probs []float64, rng *rand.Rand) genome.Population {
	out := make(genome.Population, len(pop))
	for slot := range out {
		r := rng.Float64()
		pick := len(pop) - 1
		var cum float64
		for i, p := range probs {
			cum += p
			if r < cum {
				pick = i
				break
			}
		}
		out[slot] = pop[pick].Clone()
	}
	return out
}
