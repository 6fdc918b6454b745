package pso

import (
	"cmp"
	"context"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"cvrp/internal/genome"
	"cvrp/internal/opt"
	"cvrp/internal/telemetry"
)

// Stopper — задача, которая сообщает список точек маршрута.
// *cvrp.Instance удовлетворяет этому интерфейсу.
type Stopper interface {
	opt.Problem
	Stops() []genome.Gene
}

// Solver - структура реализации алгоритма роя частиц
type Solver struct {
	Cfg Config
	Rng *rand.Rand
}

// New возвращает новый PSO-солвер с валидацией конфигурации.
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

// particle описывает одну частицу роя.
type particle struct {
	pos []float64
	vel []float64

	// лучшая позиция частицы за всё время
	bestPos []float64
	bestFit genome.Fitness
}

// Solve — позиции частиц кодируют порядок объезда случайными ключами.
func (s *Solver) Solve(ctx context.Context, problem opt.Problem) (opt.Result, error) {
	start := time.Now()

	sp, ok := problem.(Stopper)
	if !ok {
		return opt.Result{}, fmt.Errorf("%w: pso: задача без списка точек (%T)", opt.ErrConfiguration, problem)
	}
	if err := s.Cfg.Validate(); err != nil {
		return opt.Result{}, fmt.Errorf("pso: %w", err)
	}
	if err := opt.CheckRand(s.Rng); err != nil {
		return opt.Result{}, fmt.Errorf("pso: %w", err)
	}

	counter := opt.NewCounter(problem)
	stops := sp.Stops()
	n := len(stops)
	posMin, posMax := s.Cfg.PosMin, s.Cfg.PosMax
	vMax := s.Cfg.VMax

	// Случайная инициализация позиций и скоростей частиц
	ps := make([]particle, s.Cfg.Particles)
	initVel := 0.1
	if vMax > 0 {
		initVel = vMax
	}
	for i := range ps {
		p := particle{
			pos:     make([]float64, n),
			vel:     make([]float64, n),
			bestPos: make([]float64, n),
		}
		for d := 0; d < n; d++ {
			p.pos[d] = posMin + s.Rng.Float64()*(posMax-posMin)
			p.vel[d] = (s.Rng.Float64()*2 - 1) * initVel
		}
		f, err := counter.Eval(decode(p.pos, stops))
		if err != nil {
			return opt.Result{}, fmt.Errorf("pso: начальная частица %d: %w", i, err)
		}
		p.bestFit = f
		copy(p.bestPos, p.pos)
		ps[i] = p
	}

	// Глобально лучшее решение
	gBestPos := make([]float64, n)
	gBestFit := genome.Unset
	for i := range ps {
		if ps[i].bestFit > gBestFit {
			gBestFit = ps[i].bestFit
			copy(gBestPos, ps[i].bestPos)
		}
	}

	w, c1, c2 := s.Cfg.W, s.Cfg.C1, s.Cfg.C2
	scores := make([]genome.Fitness, len(ps))

	for iter := 0; iter < s.Cfg.Iterations; iter++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			res := opt.NewResult(gBestFit, decode(gBestPos, stops), nil, counter.Evaluations(), iter,
				map[string]any{"stopped": "context"})
			res.Duration = time.Since(start)
			return res, telemetry.Stop(s.Cfg.Sink, err)
		}

		for i := range ps {
			p := &ps[i]

			// Обновление скорости и позиции частицы
			for d := 0; d < n; d++ {
				r1 := s.Rng.Float64()
				r2 := s.Rng.Float64()

				v := w*p.vel[d] +
					c1*r1*(p.bestPos[d]-p.pos[d]) +
					c2*r2*(gBestPos[d]-p.pos[d])
				if vMax > 0 {
					v = min(max(v, -vMax), vMax)
				}
				p.vel[d] = v

				x := p.pos[d] + v
				if x < posMin || x > posMax {
					x = min(max(x, posMin), posMax)
					p.vel[d] = 0
				}
				p.pos[d] = x
			}

			f, err := counter.Eval(decode(p.pos, stops))
			if err != nil {
				return opt.Result{}, fmt.Errorf("pso: итерация %d: частица %d: %w", iter, i, err)
			}
			scores[i] = f

			if f > p.bestFit {
				p.bestFit = f
				copy(p.bestPos, p.pos)
			}
			if f > gBestFit {
				gBestFit = f
				copy(gBestPos, p.pos)
			}
		}

		sum, err := genome.Summarize(scores)
		if err != nil {
			return opt.Result{}, fmt.Errorf("pso: итерация %d: %w", iter, err)
		}
		s.Cfg.Sink.Log(telemetry.Record{
			Algorithm:      "pso",
			Iteration:      iter,
			BestFitness:    gBestFit,
			CurrentFitness: sum.Best,
			WorstFitness:   sum.Worst,
			AverageFitness: sum.Average,
			PopulationSize: len(ps),
		})
	}

	if _, err := s.Cfg.Sink.Flush(); err != nil {
		return opt.Result{}, fmt.Errorf("pso: телеметрия: %w", err)
	}

	res := opt.NewResult(gBestFit, decode(gBestPos, stops), nil, counter.Evaluations(), s.Cfg.Iterations,
		map[string]any{
			"particles": s.Cfg.Particles,
			"w":         w,
			"c1":        c1,
			"c2":        c2,
			"vmax":      vMax,
			"pos_min":   posMin,
			"pos_max":   posMax,
		})
	res.Duration = time.Since(start)
	return res, nil
}

// decode упорядочивает точки по возрастанию ключей; при равенстве ключей
// сохраняется исходный порядок.
func decode(keys []float64, stops []genome.Gene) genome.Individual {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(keys[a], keys[b])
	})
	ind := make(genome.Individual, len(idx))
	for i, k := range idx {
		ind[i] = stops[k]
	}
	return ind
}
