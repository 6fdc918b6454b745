package aco

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"cvrp/internal/genome"
	"cvrp/internal/opt"
	"cvrp/internal/telemetry"
)

// Graph — задача, для которой известны расстояния между точками.
// *cvrp.Instance удовлетворяет этому интерфейсу.
type Graph interface {
	opt.Problem
	Stops() []genome.Gene
	Distance(a, b genome.Gene) (float64, error)
	ClosestDepot() genome.Gene
}

// Solver - структура реализации муравьиного алгоритма.
type Solver struct {
	Cfg Config
	Rng *rand.Rand
}

// New возвращает новый ACO-солвер с валидацией конфигурации.
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

// Solve — муравьи строят порядок объезда от склада; феромон усиливается
// вдоль лучшего маршрута итерации.
func (s *Solver) Solve(ctx context.Context, problem opt.Problem) (opt.Result, error) {
	startTime := time.Now()

	g, ok := problem.(Graph)
	if !ok {
		return opt.Result{}, fmt.Errorf("%w: aco: задача без расстояний (%T)", opt.ErrConfiguration, problem)
	}
	if err := s.Cfg.Validate(); err != nil {
		return opt.Result{}, fmt.Errorf("aco: %w", err)
	}
	if err := opt.CheckRand(s.Rng); err != nil {
		return opt.Result{}, fmt.Errorf("aco: %w", err)
	}

	counter := opt.NewCounter(problem)
	stops := g.Stops()
	n := len(stops)

	// Чем ближе точка — тем лучше; строка n — выезд со склада
	eta, err := closeness(g, stops)
	if err != nil {
		return opt.Result{}, fmt.Errorf("aco: %w", err)
	}

	// Матрица феромонов
	tau := make([]float64, (n+1)*n)
	for i := range tau {
		tau[i] = s.Cfg.Tau0
	}

	// Вспомогательные буферы
	perm := make([]int, n)
	available := make([]int, n)
	weights := make([]float64, n)

	ants := make(genome.Population, s.Cfg.Ants)
	paths := make([][]int, s.Cfg.Ants)

	var best genome.Individual
	bestFit := genome.Unset

	for iter := 0; iter < s.Cfg.Iterations; iter++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			if best == nil {
				return opt.Result{}, telemetry.Stop(s.Cfg.Sink, err)
			}
			res := opt.NewResult(bestFit, best, nil, counter.Evaluations(), iter,
				map[string]any{"stopped": "context"})
			res.Duration = time.Since(startTime)
			return res, telemetry.Stop(s.Cfg.Sink, err)
		}

		// Муравьи пошли
		for a := range ants {
			constructPath(n, tau, eta, s.Cfg.Alpha, s.Cfg.Beta, s.Cfg.CandidateK, s.Rng, perm, available, weights)
			paths[a] = append(paths[a][:0], perm...)
			ind := make(genome.Individual, n)
			for i, p := range perm {
				ind[i] = stops[p]
			}
			ants[a] = ind
		}

		scores, err := ants.Evaluate(counter)
		if err != nil {
			return opt.Result{}, fmt.Errorf("aco: итерация %d: %w", iter, err)
		}
		sum, err := genome.Summarize(scores)
		if err != nil {
			return opt.Result{}, fmt.Errorf("aco: итерация %d: %w", iter, err)
		}
		if sum.Best > bestFit {
			bestFit = sum.Best
			best = ants[sum.BestIndex].Clone()
		}

		// Испарение феромона
		ev := 1.0 - s.Cfg.Rho
		for i := range tau {
			tau[i] *= ev
			if tau[i] < 1e-12 {
				tau[i] = 1e-12
			}
		}

		// Добавление феромона только по лучшему пути итерации
		if cost := sum.Best.Cost(); !math.IsInf(cost, 0) {
			addPheromonePath(tau, n, paths[sum.BestIndex], s.Cfg.Q/(1+cost))
		}

		s.Cfg.Sink.Log(telemetry.Record{
			Algorithm:      "aco",
			Iteration:      iter,
			BestFitness:    bestFit,
			CurrentFitness: sum.Best,
			WorstFitness:   sum.Worst,
			AverageFitness: sum.Average,
			PopulationSize: len(ants),
		})
	}

	if _, err := s.Cfg.Sink.Flush(); err != nil {
		return opt.Result{}, fmt.Errorf("aco: телеметрия: %w", err)
	}

	res := opt.NewResult(bestFit, best, nil, counter.Evaluations(), s.Cfg.Iterations,
		map[string]any{
			"ants":        s.Cfg.Ants,
			"alpha":       s.Cfg.Alpha,
			"beta":        s.Cfg.Beta,
			"rho":         s.Cfg.Rho,
			"Q":           s.Cfg.Q,
			"tau0":        s.Cfg.Tau0,
			"candidate_k": s.Cfg.CandidateK,
		})
	res.Duration = time.Since(startTime)
	return res, nil
}

// closeness возвращает 1/(1+d) для всех переходов, включая выезд со склада.
func closeness(g Graph, stops []genome.Gene) ([]float64, error) {
	n := len(stops)
	eta := make([]float64, (n+1)*n)
	depot := g.ClosestDepot()
	for from := 0; from <= n; from++ {
		a := depot
		if from < n {
			a = stops[from]
		}
		for to := 0; to < n; to++ {
			d, err := g.Distance(a, stops[to])
			if err != nil {
				return nil, err
			}
			eta[tauIdx(n, from, to)] = 1.0 / (1.0 + d)
		}
	}
	return eta, nil
}

func tauIdx(n, from, to int) int {
	return from*n + to
}

// addPheromonePath усиливает феромон вдоль пути от склада до последней точки.
func addPheromonePath(tau []float64, n int, path []int, delta float64) {
	if len(path) == 0 {
		return
	}
	tau[tauIdx(n, n, path[0])] += delta
	for i := 0; i < len(path)-1; i++ {
		tau[tauIdx(n, path[i], path[i+1])] += delta
	}
}

// constructPath строит один порядок объезда (индексы в списке точек).
// На каждом шаге следующая точка выбирается вероятностно по формуле ACO.
func constructPath(
	n int,
	tau []float64,
	eta []float64,
	alpha float64,
	beta float64,
	candidateK int,
	rng *rand.Rand,
	outPath []int,
	available []int,
	weights []float64,
) {
	for i := 0; i < n; i++ {
		available[i] = i
	}
	rem := n
	prev := n

	for pos := 0; pos < n; pos++ {
		// Ограничение списка кандидатов
		k := rem
		if candidateK > 0 && candidateK < rem {
			k = candidateK
			for t := 0; t < k; t++ {
				r := t + rng.Intn(rem-t)
				available[t], available[r] = available[r], available[t]
			}
		}

		sumW := 0.0
		for i := 0; i < k; i++ {
			idx := tauIdx(n, prev, available[i])
			w := fastPow(tau[idx], alpha) * fastPow(eta[idx], beta)
			weights[i] = w
			sumW += w
		}

		var chosen int
		if sumW <= 0 || math.IsInf(sumW, 0) || math.IsNaN(sumW) {
			chosen = rng.Intn(k)
		} else {
			r := rng.Float64() * sumW
			acc := 0.0
			chosen = k - 1
			for i := 0; i < k; i++ {
				acc += weights[i]
				if r <= acc {
					chosen = i
					break
				}
			}
		}

		next := available[chosen]
		outPath[pos] = next
		prev = next

		available[chosen], available[rem-1] = available[rem-1], available[chosen]
		rem--
	}
}

// fastPow избегает math.Pow для частых степеней.
func fastPow(x, p float64) float64 {
	switch p {
	case 0:
		return 1.0
	case 1:
		return x
	case 2:
		return x * x
	}
	return math.Pow(x, p)
}
