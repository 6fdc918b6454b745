package ts

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"cvrp/internal/genome"
	"cvrp/internal/neighbor"
	"cvrp/internal/opt"
	"cvrp/internal/telemetry"
)

// State — лучшее найденное решение; окрестность строится от него.
type State struct {
	Best        genome.Individual
	BestFitness genome.Fitness
}

// Move — итог одной итерации поиска.
type Move struct {
	// Skipped: все соседи табуированы, ход не сделан.
	Skipped     bool
	Individual  genome.Individual
	Fitness     genome.Fitness
	Admissible  genome.Summary
	Improvement bool
}

// Searcher выполняет одну итерацию табу-поиска. Используется и в гибриде TS/SA.
type Searcher struct {
	Neighbors neighbor.Operator
	Tabu      *TabuList
}

// Step строит окрестность лучшего решения, отбрасывает табуированных соседей
// и делает ход в лучшего из оставшихся, даже если он хуже лучшего решения.
// Ход заносится в табу-список.
func (s *Searcher) Step(st *State, ev genome.Evaluator, rng *rand.Rand) (Move, error) {
	hood := s.Neighbors.Neighborhood(st.Best, rng)

	admissible := hood[:0]
	for _, n := range hood {
		if !s.Tabu.Contains(n) {
			admissible = append(admissible, n)
		}
	}

	scores, err := admissible.Evaluate(ev)
	if err != nil {
		return Move{}, err
	}
	sum, err := genome.Summarize(scores)
	if errors.Is(err, genome.ErrEmptyPopulation) {
		return Move{Skipped: true}, nil
	}
	if err != nil {
		return Move{}, err
	}

	mv := Move{
		Individual: admissible[sum.BestIndex],
		Fitness:    sum.Best,
		Admissible: sum,
	}
	if mv.Fitness > st.BestFitness {
		st.Best = mv.Individual.Clone()
		st.BestFitness = mv.Fitness
		mv.Improvement = true
	}
	s.Tabu.Push(mv.Individual)
	return mv, nil
}

// Solver - структура реализации табу-поиска.
type Solver struct {
	Cfg Config
	Rng *rand.Rand
}

// New возвращает новый TS-солвер с валидацией конфигурации, с использованием инициализированного генератора случайных чисел.
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

// Solve — основной цикл алгоритма
func (s *Solver) Solve(ctx context.Context, problem opt.Problem) (opt.Result, error) {
	start := time.Now()

	if err := s.Cfg.Validate(); err != nil {
		return opt.Result{}, fmt.Errorf("ts: %w", err)
	}
	if err := opt.CheckRand(s.Rng); err != nil {
		return opt.Result{}, fmt.Errorf("ts: %w", err)
	}

	counter := opt.NewCounter(problem)

	// Инициализация начального решения
	first := problem.RandomIndividual(s.Rng)
	f, err := counter.Eval(first)
	if err != nil {
		return opt.Result{}, fmt.Errorf("ts: %w", err)
	}
	st := &State{Best: first, BestFitness: f}

	searcher := &Searcher{Neighbors: s.Cfg.Neighbors, Tabu: NewTabuList(s.Cfg.TabuSize)}
	skipped := 0

	for iter := 0; iter < s.Cfg.Iterations; iter++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			res := opt.NewResult(st.BestFitness, st.Best, nil, counter.Evaluations(), iter,
				map[string]any{"stopped": "context", "skipped": skipped})
			res.Duration = time.Since(start)
			return res, telemetry.Stop(s.Cfg.Sink, err)
		}

		mv, err := searcher.Step(st, counter, s.Rng)
		if err != nil {
			return opt.Result{}, fmt.Errorf("ts: итерация %d: %w", iter, err)
		}
		if mv.Skipped {
			skipped++
		}

		s.Cfg.Sink.Log(Record("ts", iter, st, mv, searcher.Tabu))
	}

	if _, err := s.Cfg.Sink.Flush(); err != nil {
		return opt.Result{}, fmt.Errorf("ts: телеметрия: %w", err)
	}

	res := opt.NewResult(st.BestFitness, st.Best, nil, counter.Evaluations(), s.Cfg.Iterations,
		map[string]any{
			"tabu_size": s.Cfg.TabuSize,
			"neighbors": s.Cfg.Neighbors.Name(),
			"skipped":   skipped,
		})
	res.Duration = time.Since(start)
	return res, nil
}

// Record — запись телеметрии итерации; у пропущенной итерации заполнено
// только лучшее решение и размер табу-списка.
func Record(algorithm string, iter int, st *State, mv Move, tabu *TabuList) telemetry.Record {
	rec := telemetry.Record{
		Algorithm:   algorithm,
		Iteration:   iter,
		BestFitness: st.BestFitness,
		TabuSize:    tabu.Len(),
	}
	if !mv.Skipped {
		rec.CurrentFitness = mv.Fitness
		rec.WorstFitness = mv.Admissible.Worst
		rec.AverageFitness = mv.Admissible.Average
		rec.PopulationSize = mv.Admissible.Size
	}
	return rec
}
