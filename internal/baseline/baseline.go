package baseline

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"cvrp/internal/cvrp"
	"cvrp/internal/genome"
	"cvrp/internal/opt"
)

// Random возвращает лучшую из Samples случайных перестановок.
type Random struct {
	Samples int `validate:"gt=0"`
	Rng     *rand.Rand
}

func NewRandom(samples int, rng *rand.Rand) (*Random, error) {
	r := &Random{Samples: samples, Rng: rng}
	if err := opt.ValidateConfig(r); err != nil {
		return nil, err
	}
	if err := opt.CheckRand(rng); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Random) Solve(ctx context.Context, problem opt.Problem) (opt.Result, error) {
	start := time.Now()
	counter := opt.NewCounter(problem)

	var (
		best    genome.Individual
		bestFit = genome.Unset
	)
	for i := 0; i < r.Samples; i++ {
		if err := ctx.Err(); err != nil {
			return opt.Result{}, err
		}
		ind := problem.RandomIndividual(r.Rng)
		f, err := counter.Eval(ind)
		if err != nil {
			return opt.Result{}, fmt.Errorf("random: %w", err)
		}
		if f > bestFit {
			best, bestFit = ind, f
		}
	}

	res := opt.NewResult(bestFit, best, nil, counter.Evaluations(), r.Samples,
		map[string]any{"samples": r.Samples})
	res.Duration = time.Since(start)
	return res, nil
}

// Greedy — жадное построение маршрута ближайшим соседом от случайной
// первой точки. Переход, требующий возврата на склад, стоит
// d(текущая, склад) + d(склад, следующая).
type Greedy struct {
	Rng *rand.Rand
}

func NewGreedy(rng *rand.Rand) (*Greedy, error) {
	if err := opt.CheckRand(rng); err != nil {
		return nil, err
	}
	return &Greedy{Rng: rng}, nil
}

// Solve принимает только *cvrp.Instance: нужны расстояния и спрос.
func (g *Greedy) Solve(ctx context.Context, problem opt.Problem) (opt.Result, error) {
	start := time.Now()
	inst, ok := problem.(*cvrp.Instance)
	if !ok {
		return opt.Result{}, fmt.Errorf("%w: greedy: нужен *cvrp.Instance, получен %T", opt.ErrConfiguration, problem)
	}
	if err := ctx.Err(); err != nil {
		return opt.Result{}, err
	}

	ind, err := g.Route(inst)
	if err != nil {
		return opt.Result{}, fmt.Errorf("greedy: %w", err)
	}
	f, err := inst.Eval(ind)
	if err != nil {
		return opt.Result{}, fmt.Errorf("greedy: %w", err)
	}

	res := opt.NewResult(f, ind, nil, 1, len(ind), nil)
	res.Duration = time.Since(start)
	return res, nil
}

// Route строит маршрут жадно.
func (g *Greedy) Route(inst *cvrp.Instance) (genome.Individual, error) {
	unvisited := genome.New(inst.Stops()...)
	if len(unvisited) == 0 {
		return genome.Individual{}, nil
	}
	depot := inst.ClosestDepot()

	// Первая точка выбирается случайно
	k := g.Rng.Intn(len(unvisited))
	current := unvisited[k]
	unvisited = append(unvisited[:k], unvisited[k+1:]...)
	demand, err := inst.Demand(current)
	if err != nil {
		return nil, err
	}
	remaining := inst.Capacity - demand
	route := genome.New(current)

	for len(unvisited) > 0 {
		bestIdx, bestCost, bestTrip := -1, math.Inf(1), false
		for i, next := range unvisited {
			cost, trip, err := moveCost(inst, current, next, depot, remaining)
			if err != nil {
				return nil, err
			}
			if cost < bestCost {
				bestIdx, bestCost, bestTrip = i, cost, trip
			}
		}

		next := unvisited[bestIdx]
		demand, err := inst.Demand(next)
		if err != nil {
			return nil, err
		}
		if bestTrip {
			remaining = inst.Capacity
		}
		remaining -= demand
		route = append(route, next)
		current = next
		unvisited = append(unvisited[:bestIdx], unvisited[bestIdx+1:]...)
	}
	return route, nil
}

func moveCost(inst *cvrp.Instance, current, next, depot genome.Gene, remaining int) (float64, bool, error) {
	demand, err := inst.Demand(next)
	if err != nil {
		return 0, false, err
	}
	if demand <= remaining {
		d, err := inst.Distance(current, next)
		return d, false, err
	}
	back, err := inst.Distance(current, depot)
	if err != nil {
		return 0, false, err
	}
	out, err := inst.Distance(depot, next)
	if err != nil {
		return 0, false, err
	}
	return back + out, true, nil
}
