package telemetry

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

type Zerolog struct {
	logger zerolog.Logger
	n      atomic.Int64
}

func NewZerolog(logger zerolog.Logger) *Zerolog {
	return &Zerolog{logger: logger}
}

func (z *Zerolog) Log(rec Record) {
	ev := z.logger.Debug().
		Str("run_id", rec.RunID.String()).
		Str("algorithm", rec.Algorithm).
		Int("iteration", rec.Iteration)
	if rec.Configuration != "" {
		ev = ev.Str("configuration", rec.Configuration)
	}
	if rec.Phase != "" {
		ev = ev.Str("phase", rec.Phase)
	}
	if rec.Temperature != 0 {
		ev = ev.Float64("temperature", rec.Temperature)
	}
	if rec.BestFitness > 0 {
		ev = ev.Float64("best_cost", rec.BestFitness.Cost())
	}
	if rec.CurrentFitness > 0 {
		ev = ev.Float64("current_cost", rec.CurrentFitness.Cost())
	}
	if rec.PopulationSize > 0 {
		ev = ev.Int("population", rec.PopulationSize)
	}
	if rec.TabuSize > 0 {
		ev = ev.Int("tabu_size", rec.TabuSize)
	}
	ev.Msg("iteration")
	z.n.Add(1)
}

func (z *Zerolog) Flush() (int, error) {
	return int(z.n.Swap(0)), nil
}
