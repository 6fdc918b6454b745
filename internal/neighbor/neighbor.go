package neighbor

import (
	"fmt"
	"math/rand"

	"cvrp/internal/genome"
	"cvrp/internal/opt"
)

// Kind — тип окрестности.
type Kind string

const (
	KindSwap    Kind = "swap"
	KindInverse Kind = "inverse"
)

// Operator строит окрестность решения: Size() независимо изменённых копий.
// Исходная особь не изменяется.
type Operator interface {
	Neighborhood(ind genome.Individual, rng *rand.Rand) genome.Population
	Size() int
	Name() string
}

// New возвращает оператор окрестности по его типу.
func New(kind Kind, size int) (Operator, error) {
	if size <= 0 {
		return nil, &opt.ConfigError{Field: "Size", Rule: "gt", Param: "0", Value: size}
	}
	switch kind {
	case KindSwap:
		return Swap{size: size}, nil
	case KindInverse:
		return Inverse{size: size}, nil
	default:
		return nil, fmt.Errorf("%w: неизвестный тип окрестности %q", opt.ErrConfiguration, kind)
	}
}

// Check отвергает оператор с пустой окрестностью. Поле называется так же,
// как в конфигурациях солверов.
func Check(op Operator) error {
	if op.Size() <= 0 {
		return &opt.ConfigError{Field: "Neighbors.Size", Rule: "gt", Param: "0", Value: op.Size()}
	}
	return nil
}

// Swap — каждый сосед получается обменом двух случайных позиций.
type Swap struct {
	size int
}

func NewSwap(size int) Swap { return Swap{size: size} }

func (s Swap) Neighborhood(ind genome.Individual, rng *rand.Rand) genome.Population {
	out := make(genome.Population, s.size)
	for k := range out {
		n := ind.Clone()
		if len(n) >= 2 {
			n.Swap(n.RandomIndex(rng), n.RandomIndex(rng))
		}
		out[k] = n
	}
	return out
}

func (s Swap) Size() int    { return s.size }
func (s Swap) Name() string { return string(KindSwap) }

// Inverse — каждый сосед получается разворотом случайного отрезка.
type Inverse struct {
	size int
}

func NewInverse(size int) Inverse { return Inverse{size: size} }

func (s Inverse) Neighborhood(ind genome.Individual, rng *rand.Rand) genome.Population {
	out := make(genome.Population, s.size)
	for k := range out {
		n := ind.Clone()
		if len(n) >= 2 {
			n.Reverse(n.RandomRange(rng))
		}
		out[k] = n
	}
	return out
}

func (s Inverse) Size() int    { return s.size }
func (s Inverse) Name() string { return string(KindInverse) }
