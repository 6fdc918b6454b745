package pso_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvrp/internal/cvrp"
	"cvrp/internal/genome"
	"cvrp/internal/opt"
	"cvrp/internal/pso"
	"cvrp/internal/telemetry"
)

func TestSolveProducesValidRoutes(t *testing.T) {
	inst := cvrp.RandomInstance(14, 50, 10, 100, rand.New(rand.NewSource(8)))
	mem := telemetry.NewMemory()

	cfg := pso.DefaultConfig()
	cfg.Iterations = 12
	cfg.Particles = 5
	cfg.Sink = mem
	s, err := pso.New(cfg, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	res, err := s.Solve(context.Background(), inst)
	require.NoError(t, err)
	require.NoError(t, res.Individual.Validate(inst.Stops()))
	assert.Equal(t, 5+12*5, res.Evaluations)

	f, err := inst.Eval(res.Individual)
	require.NoError(t, err)
	assert.Equal(t, f, res.Fitness)

	recs := mem.Records()
	require.Len(t, recs, 12)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i].BestFitness, recs[i-1].BestFitness)
	}
	assert.Equal(t, res.Fitness, recs[len(recs)-1].BestFitness)
}

type plain struct{}

func (plain) Eval(genome.Individual) (genome.Fitness, error) { return 0.5, nil }
func (plain) RandomIndividual(*rand.Rand) genome.Individual  { return genome.New(1, 2) }

func TestSolveRequiresStops(t *testing.T) {
	s, err := pso.New(pso.DefaultConfig(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	_, err = s.Solve(context.Background(), plain{})
	assert.ErrorIs(t, err, opt.ErrConfiguration)
}

func TestSolveStopsOnCancelledContext(t *testing.T) {
	inst := cvrp.RandomInstance(8, 30, 5, 100, rand.New(rand.NewSource(2)))
	mem := telemetry.NewMemory()
	cfg := pso.DefaultConfig()
	cfg.Sink = mem
	s, err := pso.New(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := s.Solve(ctx, inst)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mem.Flushes())
	assert.Equal(t, "context", res.Meta["stopped"])
	assert.NoError(t, res.Individual.Validate(inst.Stops()))
}

func TestConfigValidation(t *testing.T) {
	cfg := pso.DefaultConfig()
	cfg.PosMin, cfg.PosMax = 1, 1
	_, err := pso.New(cfg, rand.New(rand.NewSource(1)))
	var ce *opt.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "PosMin", ce.Field)
	assert.Equal(t, "ltfield", ce.Rule)

	cfg = pso.DefaultConfig()
	cfg.Particles = 0
	_, err = pso.New(cfg, rand.New(rand.NewSource(1)))
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Particles", ce.Field)
}
