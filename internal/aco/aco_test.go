package aco_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvrp/internal/aco"
	"cvrp/internal/cvrp"
	"cvrp/internal/genome"
	"cvrp/internal/opt"
	"cvrp/internal/telemetry"
)

func smallConfig(sink telemetry.Sink) aco.Config {
	cfg := aco.DefaultConfig()
	cfg.Iterations = 15
	cfg.Ants = 6
	cfg.Sink = sink
	return cfg
}

func TestSolveProducesValidRoutes(t *testing.T) {
	inst := cvrp.RandomInstance(15, 50, 10, 100, rand.New(rand.NewSource(4)))
	mem := telemetry.NewMemory()

	s, err := aco.New(smallConfig(mem), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	res, err := s.Solve(context.Background(), inst)
	require.NoError(t, err)

	require.NoError(t, res.Individual.Validate(inst.Stops()))
	assert.Equal(t, 15*6, res.Evaluations)
	assert.Equal(t, 15, res.Iterations)

	f, err := inst.Eval(res.Individual)
	require.NoError(t, err)
	assert.Equal(t, f, res.Fitness)

	recs := mem.Records()
	require.Len(t, recs, 15)
	assert.Equal(t, 1, mem.Flushes())
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i].BestFitness, recs[i-1].BestFitness)
		assert.GreaterOrEqual(t, recs[i].BestFitness, recs[i].CurrentFitness)
		assert.Equal(t, 6, recs[i].PopulationSize)
	}
	assert.Equal(t, res.Fitness, recs[len(recs)-1].BestFitness)
}

func TestSolveIsReproducible(t *testing.T) {
	inst := cvrp.RandomInstance(12, 40, 10, 100, rand.New(rand.NewSource(9)))
	run := func() opt.Result {
		s, err := aco.New(smallConfig(telemetry.Discard{}), rand.New(rand.NewSource(3)))
		require.NoError(t, err)
		res, err := s.Solve(context.Background(), inst)
		require.NoError(t, err)
		return res
	}
	assert.Equal(t, run().Individual, run().Individual)
}

// plain has no distance matrix.
type plain struct{}

func (plain) Eval(genome.Individual) (genome.Fitness, error) { return 0.5, nil }
func (plain) RandomIndividual(*rand.Rand) genome.Individual  { return genome.New(1, 2) }

func TestSolveRequiresDistances(t *testing.T) {
	s, err := aco.New(aco.DefaultConfig(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	_, err = s.Solve(context.Background(), plain{})
	assert.ErrorIs(t, err, opt.ErrConfiguration)
}

func TestSolveStopsOnCancelledContext(t *testing.T) {
	inst := cvrp.RandomInstance(8, 30, 5, 100, rand.New(rand.NewSource(2)))
	mem := telemetry.NewMemory()
	s, err := aco.New(smallConfig(mem), rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Solve(ctx, inst)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mem.Flushes())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*aco.Config)
		field string
	}{
		{"no iterations", func(c *aco.Config) { c.Iterations = 0 }, "Iterations"},
		{"no ants", func(c *aco.Config) { c.Ants = 0 }, "Ants"},
		{"negative alpha", func(c *aco.Config) { c.Alpha = -1 }, "Alpha"},
		{"rho of one", func(c *aco.Config) { c.Rho = 1 }, "Rho"},
		{"zero tau", func(c *aco.Config) { c.Tau0 = 0 }, "Tau0"},
		{"negative candidates", func(c *aco.Config) { c.CandidateK = -1 }, "CandidateK"},
		{"no sink", func(c *aco.Config) { c.Sink = nil }, "Sink"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := aco.DefaultConfig()
			tt.edit(&cfg)
			_, err := aco.New(cfg, rand.New(rand.NewSource(1)))
			var ce *opt.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}

	_, err := aco.New(aco.DefaultConfig(), nil)
	assert.ErrorIs(t, err, opt.ErrNilRand)
}
