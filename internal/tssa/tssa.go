package tssa

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"cvrp/internal/opt"
	"cvrp/internal/sa"
	"cvrp/internal/telemetry"
	"cvrp/internal/ts"
)

// Phase — активный алгоритм гибрида.
type Phase string

const (
	PhaseTabu      Phase = "tabu"
	PhaseAnnealing Phase = "annealing"
)

// PhaseAt — фаза с номером k; чередование начинается с табу-поиска.
func PhaseAt(k int) Phase {
	if k%2 == 0 {
		return PhaseTabu
	}
	return PhaseAnnealing
}

// Solver — гибрид табу-поиска и имитации отжига: фазы чередуются каждые
// SwitchInterval итераций, лучшее решение передаётся следующей фазе.
type Solver struct {
	Cfg Config
	Rng *rand.Rand
}

// New возвращает новый TSSA-солвер с валидацией конфигурации.
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

// Solve выполняет Iterations фаз по SwitchInterval итераций.
func (s *Solver) Solve(ctx context.Context, problem opt.Problem) (opt.Result, error) {
	start := time.Now()

	if err := s.Cfg.Validate(); err != nil {
		return opt.Result{}, fmt.Errorf("tssa: %w", err)
	}
	if err := opt.CheckRand(s.Rng); err != nil {
		return opt.Result{}, fmt.Errorf("tssa: %w", err)
	}

	counter := opt.NewCounter(problem)
	interval := s.Cfg.SwitchInterval

	best := problem.RandomIndividual(s.Rng)
	bestFit, err := counter.Eval(best)
	if err != nil {
		return opt.Result{}, fmt.Errorf("tssa: %w", err)
	}

	searcher := &ts.Searcher{Neighbors: s.Cfg.Neighbors, Tabu: ts.NewTabuList(s.Cfg.TabuSize)}
	// Температура продолжает падать от фазы отжига к следующей фазе отжига
	annealer := &sa.Annealer{
		Neighbors: s.Cfg.Neighbors,
		Cooling:   s.Cfg.Cooling.Restart(),
		Criterion: s.Cfg.Criterion,
	}

	skipped := 0
	stopped := func(iter int) (opt.Result, error) {
		res := opt.NewResult(bestFit, best, nil, counter.Evaluations(), iter,
			map[string]any{"stopped": "context", "skipped": skipped})
		res.Duration = time.Since(start)
		return res, telemetry.Stop(s.Cfg.Sink, ctx.Err())
	}

	for k := 0; k < s.Cfg.Iterations; k++ {
		phase := PhaseAt(k)
		first := k * interval

		switch phase {
		case PhaseTabu:
			// Каждая фаза табу-поиска начинается с пустого списка
			searcher.Tabu.Reset()
			st := &ts.State{Best: best, BestFitness: bestFit}
			for j := 0; j < interval; j++ {
				if ctx.Err() != nil {
					best, bestFit = st.Best, st.BestFitness
					return stopped(first + j)
				}
				mv, err := searcher.Step(st, counter, s.Rng)
				if err != nil {
					return opt.Result{}, fmt.Errorf("tssa: итерация %d (%s): %w", first+j, phase, err)
				}
				if mv.Skipped {
					skipped++
				}
				rec := ts.Record("tssa", first+j, st, mv, searcher.Tabu)
				rec.Phase = string(phase)
				s.Cfg.Sink.Log(rec)
			}
			best, bestFit = st.Best, st.BestFitness

		case PhaseAnnealing:
			st := sa.NewState(best.Clone(), bestFit)
			for j := 0; j < interval; j++ {
				if ctx.Err() != nil {
					best, bestFit = st.Best, st.BestFitness
					return stopped(first + j)
				}
				temperature := annealer.Cooling.Temperature()
				if _, err := annealer.Step(st, counter, s.Rng); err != nil {
					return opt.Result{}, fmt.Errorf("tssa: итерация %d (%s): %w", first+j, phase, err)
				}
				s.Cfg.Sink.Log(telemetry.Record{
					Algorithm:      "tssa",
					Phase:          string(phase),
					Iteration:      first + j,
					Temperature:    temperature,
					BestFitness:    st.BestFitness,
					CurrentFitness: st.CurrentFitness,
				})
			}
			best, bestFit = st.Best, st.BestFitness
		}
	}

	if _, err := s.Cfg.Sink.Flush(); err != nil {
		return opt.Result{}, fmt.Errorf("tssa: телеметрия: %w", err)
	}

	res := opt.NewResult(bestFit, best, nil, counter.Evaluations(), s.Cfg.Iterations*interval,
		map[string]any{
			"phases":          s.Cfg.Iterations,
			"switch_interval": interval,
			"tabu_size":       s.Cfg.TabuSize,
			"neighbors":       s.Cfg.Neighbors.Name(),
			"cooling":         s.Cfg.Cooling.Name(),
			"skipped":         skipped,
			"final_temp":      annealer.Cooling.Temperature(),
		})
	res.Duration = time.Since(start)
	return res, nil
}
