package opt

import (
	"context"
	"math/rand"
	"time"

	"cvrp/internal/genome"
)

// Problem is the fitness oracle consumed by every solver.
type Problem interface {
	Eval(ind genome.Individual) (genome.Fitness, error)
	RandomIndividual(rng *rand.Rand) genome.Individual
}

type Solver interface {
	Solve(ctx context.Context, problem Problem) (Result, error)
}

type Result struct {
	Fitness genome.Fitness
	// Individual is the solver's answer. For simulated annealing it is the
	// final current solution, Best holds the best one seen.
	Individual  genome.Individual
	Best        genome.Individual
	Cost        float64
	Evaluations int
	Iterations  int
	Duration    time.Duration
	Meta        map[string]any
}

// NewResult copies the individuals so the result never aliases solver state.
func NewResult(fitness genome.Fitness, individual, best genome.Individual, evals, iterations int, meta map[string]any) Result {
	if best == nil {
		best = individual
	}
	return Result{
		Fitness:     fitness,
		Individual:  individual.Clone(),
		Best:        best.Clone(),
		Cost:        fitness.Cost(),
		Evaluations: evals,
		Iterations:  iterations,
		Meta:        meta,
	}
}

// Counter wraps a Problem and counts evaluations. Not safe for concurrent use.
type Counter struct {
	Problem
	n int
}

func NewCounter(p Problem) *Counter {
	return &Counter{Problem: p}
}

func (c *Counter) Eval(ind genome.Individual) (genome.Fitness, error) {
	c.n++
	return c.Problem.Eval(ind)
}

func (c *Counter) Evaluations() int { return c.n }
