package sa

import (
	"math/rand"

	"cvrp/internal/genome"
	"cvrp/internal/neighbor"
)

// State — текущее и лучшее найденное решение траектории.
type State struct {
	Current        genome.Individual
	CurrentFitness genome.Fitness
	Best           genome.Individual
	BestFitness    genome.Fitness
}

// NewState начинает траекторию из ind с уже вычисленной приспособленностью.
func NewState(ind genome.Individual, fitness genome.Fitness) *State {
	return &State{
		Current:        ind,
		CurrentFitness: fitness,
		Best:           ind.Clone(),
		BestFitness:    fitness,
	}
}

// Annealer выполняет одну итерацию отжига. Используется и в гибриде TS/SA.
type Annealer struct {
	Neighbors neighbor.Operator
	Cooling   CoolingSchedule
	Criterion Criterion
}

// Step берёт лучшего соседа текущего решения; строго лучший принимается
// всегда, иной — по критерию при текущей температуре. После хода
// температура понижается один раз.
func (a *Annealer) Step(st *State, ev genome.Evaluator, rng *rand.Rand) (bool, error) {
	hood := a.Neighbors.Neighborhood(st.Current, rng)
	cand, f, err := hood.Best(ev)
	if err != nil {
		return false, err
	}

	accepted := f > st.CurrentFitness ||
		a.Criterion.Accept(float64(st.CurrentFitness-f), a.Cooling.Temperature(), rng)
	if accepted {
		st.Current = cand
		st.CurrentFitness = f
		if f > st.BestFitness {
			st.Best = cand.Clone()
			st.BestFitness = f
		}
	}

	a.Cooling.Cooldown()
	return accepted, nil
}
