package bench

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"cvrp/internal/cvrp"
	"cvrp/internal/opt"
	"cvrp/internal/telemetry"
)

// Factory строит новый солвер на каждый прогон; sink уже помечен id прогона.
type Factory func(seed int64, sink telemetry.Sink) (opt.Solver, error)

type Algorithm struct {
	Name    string
	Factory Factory
}

type Case struct {
	Name     string
	Instance *cvrp.Instance
}

func RandomCase(n, capacity int, seed int64) Case {
	inst := cvrp.RandomInstance(n, capacity, max(1, capacity/4), 100, randForSeed(seed))
	return Case{Name: fmt.Sprintf("%s-s%d", inst.Name, seed), Instance: inst}
}

// Record — итог всех прогонов алгоритма на одном случае, стоимость в длинах маршрута.
type Record struct {
	Algo      string
	Instance  string
	Dimension int
	Runs      int

	TimeBestMs float64
	TimeMeanMs float64
	TimeStdMs  float64

	CostBest  float64
	CostWorst float64
	CostMean  float64
	CostStd   float64

	EvaluationsMean float64
}

type Runner struct {
	Runs          int
	BaseSeed      int64
	Workers       int           // <= 0: one trial at a time
	PerRunTimeout time.Duration // 0 = no timeout

	// Sink returns the telemetry destination of a trial; nil discards.
	Sink    func(algo, instance string, trial int) telemetry.Sink
	Metrics *Metrics
}

func (r Runner) RunCase(ctx context.Context, c Case, algo Algorithm) (Record, error) {
	inst := c.Instance
	costs := make([]float64, r.Runs)
	timesMs := make([]float64, r.Runs)
	evals := make([]float64, r.Runs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.Workers))

	for i := 0; i < r.Runs; i++ {
		g.Go(func() error {
			runSeed := r.BaseSeed + int64(i)

			var sink telemetry.Sink = telemetry.Discard{}
			if r.Sink != nil {
				sink = r.Sink(algo.Name, c.Name, i)
			}
			run := telemetry.NewRun(sink, fmt.Sprintf("%s/%s/seed=%d", algo.Name, c.Name, runSeed))

			solver, err := algo.Factory(runSeed, run)
			if err != nil {
				return fmt.Errorf("%s run %d: %w", algo.Name, i, err)
			}

			runCtx := gctx
			cancel := func() {}
			if r.PerRunTimeout > 0 {
				runCtx, cancel = context.WithTimeout(gctx, r.PerRunTimeout)
			}
			start := time.Now()
			res, err := solver.Solve(runCtx, inst)
			dur := time.Since(start)
			cancel()

			if err != nil && runCtx.Err() != nil {
				return fmt.Errorf("%s run %d: cancelled/timeout: %w", algo.Name, i, err)
			}
			if err != nil {
				return fmt.Errorf("%s run %d: solve error: %w", algo.Name, i, err)
			}
			if err := res.Individual.Validate(inst.Stops()); err != nil {
				return fmt.Errorf("%s run %d: invalid solution: %w", algo.Name, i, err)
			}

			costs[i] = res.Cost
			timesMs[i] = float64(dur.Microseconds()) / 1000.0
			evals[i] = float64(res.Evaluations)
			if r.Metrics != nil {
				r.Metrics.Observe(algo.Name, c.Name, res, dur)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Record{}, err
	}

	cs := CalcStats(costs)
	ts := CalcStats(timesMs)
	es := CalcStats(evals)

	return Record{
		Algo:      algo.Name,
		Instance:  c.Name,
		Dimension: inst.Dimension(),
		Runs:      r.Runs,

		TimeBestMs: ts.Best,
		TimeMeanMs: ts.Mean,
		TimeStdMs:  ts.Std,

		CostBest:  cs.Best,
		CostWorst: cs.Worst,
		CostMean:  cs.Mean,
		CostStd:   cs.Std,

		EvaluationsMean: es.Mean,
	}, nil
}
