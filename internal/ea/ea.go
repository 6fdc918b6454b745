package ea

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"cvrp/internal/genome"
	"cvrp/internal/opt"
	"cvrp/internal/telemetry"
)

// ErrNoComparableFitness — ни одна особь не получила сравнимой оценки.
var ErrNoComparableFitness = errors.New("ea: нет сравнимых значений приспособленности")

// Solver — эволюционный алгоритм для CVRP.
type Solver struct {
	Cfg Config
	Rng *rand.Rand
}

// New возвращает новый EA-солвер с валидацией конфигурации.
// Используется в фабриках.
func New(cfg Config, rng *rand.Rand) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := opt.CheckRand(rng); err != nil {
		return nil, err
	}
	return &Solver{Cfg: cfg, Rng: rng}, nil
}

// Solve — основной цикл: отбор, кроссовер, позиционная замена, мутация, оценка.
func (s *Solver) Solve(ctx context.Context, problem opt.Problem) (opt.Result, error) {
	start := time.Now()

	if err := s.Cfg.Validate(); err != nil {
		return opt.Result{}, fmt.Errorf("ea: %w", err)
	}
	if err := opt.CheckRand(s.Rng); err != nil {
		return opt.Result{}, fmt.Errorf("ea: %w", err)
	}

	counter := opt.NewCounter(problem)
	n := s.Cfg.PopulationSize

	// Селектор с состоянием начинает каждый запуск заново
	selector := s.Cfg.Selector
	if r, ok := selector.(Restarter); ok {
		selector = r.Restart()
	}

	// Начальная популяция
	pop := make(genome.Population, n)
	for i := range pop {
		pop[i] = problem.RandomIndividual(s.Rng)
	}
	scores, err := pop.Evaluate(counter)
	if err != nil {
		return opt.Result{}, fmt.Errorf("ea: %w", err)
	}
	sum, err := genome.Summarize(scores)
	if err != nil {
		return opt.Result{}, fmt.Errorf("ea: %w", err)
	}

	// Лучшее решение за всё время
	best := pop[sum.BestIndex].Clone()
	bestFit := sum.Best

	totalCrossovers, totalMutations := 0, 0

	for gen := 0; gen < s.Cfg.Generations; gen++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			res := opt.NewResult(bestFit, best, nil, counter.Evaluations(), gen,
				map[string]any{"stopped": "context"})
			res.Duration = time.Since(start)
			return res, telemetry.Stop(s.Cfg.Sink, err)
		}

		selected, err := selector.Select(pop, counter, s.Rng)
		if err != nil {
			return opt.Result{}, fmt.Errorf("ea: поколение %d: отбор: %w", gen, err)
		}

		// Пул потомков: на каждую позицию с вероятностью CrossoverProb
		// скрещиваются два случайных родителя
		var children genome.Population
		crossovers := 0
		for i := 0; i < n; i++ {
			if s.Rng.Float64() >= s.Cfg.CrossoverProb {
				continue
			}
			a := selected[s.Rng.Intn(n)]
			b := selected[s.Rng.Intn(n)]
			kids, err := s.Cfg.Crossover.Crossover(a, b, s.Rng)
			if err != nil {
				return opt.Result{}, fmt.Errorf("ea: поколение %d: кроссовер: %w", gen, err)
			}
			children = append(children, kids...)
			crossovers++
		}

		// Потомки замещают особи с начала популяции (позиционно, не по приспособленности)
		copy(selected, children[:min(len(children), n)])

		mutations := 0
		for _, ind := range selected {
			if s.Rng.Float64() < s.Cfg.MutationProb {
				s.Cfg.Mutation.Mutate(ind, s.Rng)
				mutations++
			}
		}
		pop = selected

		scores, err := pop.Evaluate(counter)
		if err != nil {
			return opt.Result{}, fmt.Errorf("ea: поколение %d: %w", gen, err)
		}
		sum, err := genome.Summarize(scores)
		if err != nil {
			return opt.Result{}, fmt.Errorf("ea: поколение %d: %w", gen, err)
		}
		if sum.Best > bestFit || math.IsNaN(float64(bestFit)) {
			bestFit = sum.Best
			best = pop[sum.BestIndex].Clone()
		}

		totalCrossovers += crossovers
		totalMutations += mutations

		s.Cfg.Sink.Log(telemetry.Record{
			Algorithm:      "ea",
			Iteration:      gen,
			BestFitness:    bestFit,
			CurrentFitness: sum.Best,
			WorstFitness:   sum.Worst,
			AverageFitness: sum.Average,
			Mutations:      mutations,
			Crossovers:     crossovers,
			PopulationSize: len(pop),
		})
	}

	if _, err := s.Cfg.Sink.Flush(); err != nil {
		return opt.Result{}, fmt.Errorf("ea: телеметрия: %w", err)
	}
	if math.IsNaN(float64(bestFit)) {
		return opt.Result{}, ErrNoComparableFitness
	}

	res := opt.NewResult(bestFit, best, nil, counter.Evaluations(), s.Cfg.Generations,
		map[string]any{
			"population":  n,
			"generations": s.Cfg.Generations,
			"crossover":   s.Cfg.Crossover.Name(),
			"mutation":    s.Cfg.Mutation.Name(),
			"selector":    selector.Name(),
			"crossovers":  totalCrossovers,
			"mutations":   totalMutations,
		})
	res.Duration = time.Since(start)
	return res, nil
}
