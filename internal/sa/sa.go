package sa

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"cvrp/internal/opt"
	"cvrp/internal/telemetry"
)

// Solver - структура реализации алгоритма имитации отжига
type Solver struct {
	Cfg Config
	Rng *rand.Rand
}

// New возвращает новый SA-солвер с валидацией конфигурации, с использованием инициализированного генератора случайных чисел.
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

// Solve — реализация эвристики.
// Fitness результата — лучшая за запуск, Individual — последнее текущее решение,
// Best — лучшее.
func (s *Solver) Solve(ctx context.Context, problem opt.Problem) (opt.Result, error) {
	start := time.Now()

	if err := s.Cfg.Validate(); err != nil {
		return opt.Result{}, fmt.Errorf("sa: %w", err)
	}
	if err := opt.CheckRand(s.Rng); err != nil {
		return opt.Result{}, fmt.Errorf("sa: %w", err)
	}

	counter := opt.NewCounter(problem)
	annealer := &Annealer{
		Neighbors: s.Cfg.Neighbors,
		Cooling:   s.Cfg.Cooling.Restart(),
		Criterion: s.Cfg.Criterion,
	}

	// Инициализация текущего решения
	curr := problem.RandomIndividual(s.Rng)
	f, err := counter.Eval(curr)
	if err != nil {
		return opt.Result{}, fmt.Errorf("sa: %w", err)
	}
	st := NewState(curr, f)

	accepted := 0
	for iter := 0; iter < s.Cfg.Iterations; iter++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			res := opt.NewResult(st.BestFitness, st.Current, st.Best, counter.Evaluations(), iter,
				map[string]any{
					"stopped": "context",
					"T":       annealer.Cooling.Temperature(),
				})
			res.Duration = time.Since(start)
			return res, telemetry.Stop(s.Cfg.Sink, err)
		}

		// Температура, при которой принималось решение на этой итерации
		temperature := annealer.Cooling.Temperature()
		ok, err := annealer.Step(st, counter, s.Rng)
		if err != nil {
			return opt.Result{}, fmt.Errorf("sa: итерация %d: %w", iter, err)
		}
		if ok {
			accepted++
		}

		s.Cfg.Sink.Log(telemetry.Record{
			Algorithm:      "sa",
			Iteration:      iter,
			Temperature:    temperature,
			BestFitness:    st.BestFitness,
			CurrentFitness: st.CurrentFitness,
		})
	}

	if _, err := s.Cfg.Sink.Flush(); err != nil {
		return opt.Result{}, fmt.Errorf("sa: телеметрия: %w", err)
	}

	res := opt.NewResult(st.BestFitness, st.Current, st.Best, counter.Evaluations(), s.Cfg.Iterations,
		map[string]any{
			"neighbors":  s.Cfg.Neighbors.Name(),
			"cooling":    s.Cfg.Cooling.Name(),
			"criterion":  s.Cfg.Criterion.Name(),
			"accepted":   accepted,
			"final_temp": annealer.Cooling.Temperature(),
		})
	res.Duration = time.Since(start)
	return res, nil
}
