package opt_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvrp/internal/genome"
	"cvrp/internal/opt"
)

type sampleConfig struct {
	Iterations int             `validate:"required,gt=0"`
	Prob       float64         `validate:"gte=0,lte=1"`
	Oracle     genome.Evaluator `validate:"required"`
}

func okOracle() genome.Evaluator {
	return genome.EvaluatorFunc(func(genome.Individual) (genome.Fitness, error) { return 1, nil })
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name  string
		cfg   sampleConfig
		field string
		rule  string
	}{
		{"valid", sampleConfig{Iterations: 3, Prob: 0.5, Oracle: okOracle()}, "", ""},
		{"missing iterations", sampleConfig{Prob: 0.5, Oracle: okOracle()}, "Iterations", "required"},
		{"probability too high", sampleConfig{Iterations: 1, Prob: 1.5, Oracle: okOracle()}, "Prob", "lte"},
		{"missing oracle", sampleConfig{Iterations: 1}, "Oracle", "required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := opt.ValidateConfig(tt.cfg)
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, opt.ErrConfiguration)
			var cerr *opt.ConfigError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.field, cerr.Field)
			assert.Equal(t, tt.rule, cerr.Rule)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestCheckRand(t *testing.T) {
	assert.ErrorIs(t, opt.CheckRand(nil), opt.ErrConfiguration)
	assert.NoError(t, opt.CheckRand(rand.New(rand.NewSource(1))))
}

type constProblem struct{}

func (constProblem) Eval(genome.Individual) (genome.Fitness, error) { return 0.5, nil }
func (constProblem) RandomIndividual(*rand.Rand) genome.Individual {
	return genome.New(1, 2)
}

func TestCounter(t *testing.T) {
	c := opt.NewCounter(constProblem{})
	for i := 0; i < 3; i++ {
		_, err := c.Eval(genome.New(1, 2))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, c.Evaluations())
}

func TestNewResultCopies(t *testing.T) {
	ind := genome.New(1, 2, 3)
	res := opt.NewResult(genome.FromCost(9), ind, nil, 4, 2, nil)
	ind.Swap(0, 2)
	assert.Equal(t, genome.New(1, 2, 3), res.Individual)
	assert.Equal(t, genome.New(1, 2, 3), res.Best)
	assert.InDelta(t, 9, res.Cost, 1e-9)
}
