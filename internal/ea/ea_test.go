package ea_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvrp/internal/cvrp"
	"cvrp/internal/ea"
	"cvrp/internal/genome"
	"cvrp/internal/opt"
	"cvrp/internal/telemetry"
)

var nine = []genome.Gene{1, 2, 3, 4, 5, 6, 7, 8, 9}

func TestOrderedCrossoverKeepsSegment(t *testing.T) {
	a := genome.New(1, 2, 3, 4, 5, 6, 7, 8, 9)
	b := genome.New(5, 7, 4, 9, 1, 3, 6, 2, 8)

	child, err := ea.OrderedCrossover{}.Child(a, b, 2, 5)
	require.NoError(t, err)
	require.NoError(t, child.Validate(nine))
	assert.Equal(t, genome.New(3, 4, 5, 6), child[2:6])
	assert.Equal(t, genome.New(7, 9, 3, 4, 5, 6, 1, 2, 8), child)
}

func TestOrderedCrossoverRandomRange(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a := genome.New(1, 2, 3, 4, 5, 6, 7, 8, 9)
	b := genome.New(5, 7, 4, 9, 1, 3, 6, 2, 8)
	for i := 0; i < 50; i++ {
		kids, err := ea.OrderedCrossover{}.Crossover(a, b, rng)
		require.NoError(t, err)
		require.Len(t, kids, 1)
		require.NoError(t, kids[0].Validate(nine))
	}
	assert.Equal(t, genome.New(1, 2, 3, 4, 5, 6, 7, 8, 9), a, "parents stay untouched")
}

func TestPartiallyMappedCrossover(t *testing.T) {
	a := genome.New(1, 2, 3, 4, 5, 6, 7, 8, 9)
	b := genome.New(5, 4, 6, 9, 2, 1, 7, 8, 3)
	pmx := ea.PartiallyMappedCrossover{}

	ca, cb, err := pmx.Children(a, b, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, genome.New(6, 5, 3, 9, 2, 1, 7, 8, 4), ca)
	assert.Equal(t, genome.New(2, 9, 1, 4, 5, 6, 7, 8, 3), cb)

	// Перестановка родителей меняет потомков местами
	rb, ra, err := pmx.Children(b, a, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, ca, ra)
	assert.Equal(t, cb, rb)
}

func TestPartiallyMappedCrossoverValidity(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 100; i++ {
		a := genome.Shuffled(nine, rng)
		b := genome.Shuffled(nine, rng)
		kids, err := ea.PartiallyMappedCrossover{}.Crossover(a, b, rng)
		require.NoError(t, err)
		require.Len(t, kids, 2)
		for _, k := range kids {
			require.NoError(t, k.Validate(nine))
		}
	}
}

func TestPartiallyMappedCrossoverConflict(t *testing.T) {
	pmx := ea.PartiallyMappedCrossover{}

	// Ген 1 транслируется в 2, 3 и 4
	_, _, err := pmx.Children(genome.New(1, 1, 1, 4), genome.New(2, 3, 4, 1), 0, 3)
	assert.ErrorIs(t, err, ea.ErrCrossoverConflict)

	// Цикл 1 -> 2 -> 1 должен завершиться ошибкой, а не зациклиться
	_, _, err = pmx.Children(genome.New(1, 1, 2, 9), genome.New(7, 2, 1, 9), 1, 2)
	assert.ErrorIs(t, err, ea.ErrCrossoverConflict)
}

func TestCrossoverParentMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := ea.OrderedCrossover{}.Crossover(genome.New(1, 2, 3), genome.New(1, 2), rng)
	assert.ErrorIs(t, err, ea.ErrParentMismatch)

	_, _, err = ea.PartiallyMappedCrossover{}.Children(genome.New(1, 2, 3), genome.New(3, 2, 1), 2, 5)
	assert.ErrorIs(t, err, ea.ErrParentMismatch)
}

func TestMutationsKeepPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, m := range []ea.Mutation{ea.SwapMutation{}, ea.InverseMutation{}} {
		ind := genome.New(nine...)
		for i := 0; i < 100; i++ {
			m.Mutate(ind, rng)
			require.NoError(t, ind.Validate(nine), m.Name())
		}
		single := genome.New(4)
		m.Mutate(single, rng)
		assert.Equal(t, genome.New(4), single)
	}
}

// byFirstGene scores individuals by their first gene.
var byFirstGene = genome.EvaluatorFunc(func(ind genome.Individual) (genome.Fitness, error) {
	return genome.Fitness(ind[0]), nil
})

func TestTournamentFullSizePicksBest(t *testing.T) {
	pop := genome.Population{genome.New(1, 0), genome.New(3, 0), genome.New(2, 0)}
	sel, err := ea.NewTournament(10)
	require.NoError(t, err)

	out, err := sel.Select(pop, byFirstGene, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, ind := range out {
		assert.Equal(t, genome.New(3, 0), ind)
	}
	out[0][0] = 42
	assert.NotEqual(t, 42, out[1][0], "selected individuals must not alias")
	assert.Equal(t, genome.New(3, 0), pop[1])
}

func TestRouletteUniformWhenScoresEqual(t *testing.T) {
	pop := genome.Population{genome.New(1), genome.New(1), genome.New(1), genome.New(1)}
	out, err := ea.Roulette{}.Select(pop, byFirstGene, rand.New(rand.NewSource(4)))
	require.NoError(t, err)
	assert.Len(t, out, 4)
}

func TestRouletteNeverPicksWorst(t *testing.T) {
	// Min-max нормировка даёт худшей особи нулевую вероятность
	pop := genome.Population{genome.New(1), genome.New(5), genome.New(9)}
	rng := rand.New(rand.NewSource(8))
	for i := 0; i < 20; i++ {
		out, err := ea.Roulette{}.Select(pop, byFirstGene, rng)
		require.NoError(t, err)
		for _, ind := range out {
			assert.NotEqual(t, genome.New(1), ind)
		}
	}
}

func TestAnnealedRouletteCoolsAndRestarts(t *testing.T) {
	sel, err := ea.NewAnnealedRoulette(1, 0.5)
	require.NoError(t, err)

	pop := genome.Population{genome.New(1), genome.New(2)}
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 3; i++ {
		_, err := sel.Select(pop, byFirstGene, rng)
		require.NoError(t, err)
	}
	assert.InDelta(t, 0.125, sel.Temperature(), 1e-12)

	fresh := sel.Restart().(*ea.AnnealedRoulette)
	assert.InDelta(t, 1, fresh.Temperature(), 1e-12)
	assert.InDelta(t, 0.125, sel.Temperature(), 1e-12)

	_, err = ea.NewAnnealedRoulette(0, 0.5)
	assert.ErrorIs(t, err, opt.ErrConfiguration)
}

func TestAnnealedRoulettePicksBestWhenFrozen(t *testing.T) {
	sel, err := ea.NewAnnealedRoulette(1, 0.5)
	require.NoError(t, err)

	scores := map[genome.Gene]genome.Fitness{1: 0.9, 2: 0.1, 3: 0.2}
	ev := genome.EvaluatorFunc(func(ind genome.Individual) (genome.Fitness, error) {
		return scores[ind[0]], nil
	})
	pop := genome.Population{genome.New(1), genome.New(2), genome.New(3)}
	rng := rand.New(rand.NewSource(6))
	for i := 0; i < 1100; i++ {
		_, err := sel.Select(pop, ev, rng)
		require.NoError(t, err)
	}
	assert.Zero(t, sel.Temperature())

	out, err := sel.Select(pop, ev, rng)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, ind := range out {
		assert.Equal(t, genome.New(1), ind)
	}
}

func TestSelectorsRejectEmptyPopulation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ar, err := ea.NewAnnealedRoulette(1, 0.9)
	require.NoError(t, err)
	tour, err := ea.NewTournament(2)
	require.NoError(t, err)
	for _, s := range []ea.Selector{tour, ea.Roulette{}, ar} {
		_, err := s.Select(nil, byFirstGene, rng)
		assert.ErrorIs(t, err, genome.ErrEmptyPopulation, s.Name())
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*ea.Config)
		field string
	}{
		{"population", func(c *ea.Config) { c.PopulationSize = 1 }, "PopulationSize"},
		{"generations", func(c *ea.Config) { c.Generations = 0 }, "Generations"},
		{"crossover prob", func(c *ea.Config) { c.CrossoverProb = 1.2 }, "CrossoverProb"},
		{"mutation prob", func(c *ea.Config) { c.MutationProb = -0.1 }, "MutationProb"},
		{"crossover", func(c *ea.Config) { c.Crossover = nil }, "Crossover"},
		{"sink", func(c *ea.Config) { c.Sink = nil }, "Sink"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ea.DefaultConfig()
			tt.edit(&cfg)
			_, err := ea.New(cfg, rand.New(rand.NewSource(1)))
			require.ErrorIs(t, err, opt.ErrConfiguration)
			var cerr *opt.ConfigError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.field, cerr.Field)
		})
	}

	_, err := ea.New(ea.DefaultConfig(), nil)
	assert.ErrorIs(t, err, opt.ErrNilRand)
}

func TestSolveBestNeverDegrades(t *testing.T) {
	inst := cvrp.RandomInstance(15, 40, 10, 100, rand.New(rand.NewSource(21)))
	sel, err := ea.NewAnnealedRoulette(1, 0.95)
	require.NoError(t, err)

	for _, cx := range []ea.Crossover{ea.OrderedCrossover{}, ea.PartiallyMappedCrossover{}} {
		t.Run(cx.Name(), func(t *testing.T) {
			mem := telemetry.NewMemory()
			cfg := ea.DefaultConfig()
			cfg.PopulationSize = 20
			cfg.Generations = 30
			cfg.Crossover = cx
			cfg.Mutation = ea.InverseMutation{}
			cfg.Selector = sel
			cfg.Sink = mem

			s, err := ea.New(cfg, rand.New(rand.NewSource(4)))
			require.NoError(t, err)
			res, err := s.Solve(context.Background(), inst)
			require.NoError(t, err)

			recs := mem.Records()
			require.Len(t, recs, cfg.Generations)
			assert.Equal(t, 1, mem.Flushes())
			for i := 1; i < len(recs); i++ {
				assert.GreaterOrEqual(t, recs[i].BestFitness, recs[i-1].BestFitness)
				assert.GreaterOrEqual(t, recs[i].BestFitness, recs[i].CurrentFitness)
				assert.Equal(t, cfg.PopulationSize, recs[i].PopulationSize)
			}

			require.NoError(t, res.Individual.Validate(inst.Stops()))
			f, err := inst.Eval(res.Individual)
			require.NoError(t, err)
			assert.InDelta(t, float64(res.Fitness), float64(f), 1e-12)
			assert.Equal(t, recs[len(recs)-1].BestFitness, res.Fitness)
			assert.InDelta(t, 1/float64(res.Fitness)-1, res.Cost, 1e-9)
			assert.Equal(t, cfg.Generations, res.Iterations)
			assert.Positive(t, res.Evaluations)
		})
	}
	// Селектор из конфигурации не охлаждается самим запуском
	assert.InDelta(t, 1, sel.Temperature(), 1e-12)
}

type brokenProblem struct{ opt.Problem }

func (brokenProblem) Eval(genome.Individual) (genome.Fitness, error) {
	return 0, cvrp.ErrDistancesNotComputed
}

func TestSolveEvaluationError(t *testing.T) {
	inst := cvrp.RandomInstance(6, 40, 10, 100, rand.New(rand.NewSource(1)))
	s, err := ea.New(ea.DefaultConfig(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	_, err = s.Solve(context.Background(), brokenProblem{inst})
	assert.ErrorIs(t, err, opt.ErrEvaluation)
}

func TestSolveHonoursContext(t *testing.T) {
	inst := cvrp.RandomInstance(6, 40, 10, 100, rand.New(rand.NewSource(1)))
	mem := telemetry.NewMemory()
	cfg := ea.DefaultConfig()
	cfg.Sink = mem
	s, err := ea.New(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := s.Solve(ctx, inst)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "context", res.Meta["stopped"])
	assert.False(t, math.IsNaN(float64(res.Fitness)))
	assert.Equal(t, 1, mem.Flushes(), "interrupted run still flushes its telemetry")
}

// keepAll возвращает копию популяции без отбора.
type keepAll struct{}

func (keepAll) Name() string { return "keep-all" }
func (keepAll) Select(pop genome.Population, _ genome.Evaluator, _ *rand.Rand) (genome.Population, error) {
	return pop.Clone(), nil
}

// markers порождает двух помеченных потомков на каждое скрещивание.
type markers struct{}

func (markers) Name() string { return "markers" }
func (markers) Crossover(_, _ genome.Individual, _ *rand.Rand) ([]genome.Individual, error) {
	return []genome.Individual{genome.New(101), genome.New(102)}, nil
}

// recorder запоминает каждую оценённую особь.
type recorder struct {
	next int
	seen genome.Population
}

func (r *recorder) Eval(ind genome.Individual) (genome.Fitness, error) {
	r.seen = append(r.seen, ind.Clone())
	return genome.Fitness(ind[0]), nil
}

func (r *recorder) RandomIndividual(*rand.Rand) genome.Individual {
	r.next++
	return genome.New(r.next)
}

func TestChildrenReplaceFromFront(t *testing.T) {
	const n = 4
	run := func(t *testing.T, prob float64) (*recorder, []telemetry.Record) {
		mem := telemetry.NewMemory()
		cfg := ea.DefaultConfig()
		cfg.PopulationSize = n
		cfg.Generations = 1
		cfg.CrossoverProb = prob
		cfg.MutationProb = 0
		cfg.Crossover = markers{}
		cfg.Selector = keepAll{}
		cfg.Sink = mem

		s, err := ea.New(cfg, rand.New(rand.NewSource(1)))
		require.NoError(t, err)
		rec := &recorder{}
		_, err = s.Solve(context.Background(), rec)
		require.NoError(t, err)
		require.Len(t, rec.seen, 2*n)
		return rec, mem.Records()
	}

	t.Run("every slot crosses", func(t *testing.T) {
		rec, recs := run(t, 1)
		// 2n потомков, в популяцию попадают первые n
		assert.Equal(t, genome.Population{
			genome.New(101), genome.New(102), genome.New(101), genome.New(102),
		}, rec.seen[n:])
		require.Len(t, recs, 1)
		assert.Equal(t, n, recs[0].Crossovers)
		assert.Zero(t, recs[0].Mutations)
	})

	t.Run("no crossover", func(t *testing.T) {
		rec, recs := run(t, 0)
		assert.Equal(t, rec.seen[:n], rec.seen[n:])
		require.Len(t, recs, 1)
		assert.Zero(t, recs[0].Crossovers)
		assert.Zero(t, recs[0].Mutations)
	})
}
