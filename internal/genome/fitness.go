package genome

import "math"

// Fitness = 1/(1+длина маршрута), больше — лучше.
type Fitness float64

var Unset = Fitness(math.Inf(-1))

func (f Fitness) Cost() float64 {
	if f <= 0 {
		return math.Inf(1)
	}
	return 1/float64(f) - 1
}

func FromCost(distance float64) Fitness {
	return Fitness(1 / (1 + distance))
}

type Evaluator interface {
	Eval(ind Individual) (Fitness, error)
}

type EvaluatorFunc func(ind Individual) (Fitness, error)

func (f EvaluatorFunc) Eval(ind Individual) (Fitness, error) { return f(ind) }
