package ea

import (
	"math/rand"

	"cvrp/internal/genome"
)

// Mutation изменяет особь на месте.
type Mutation interface {
	Mutate(ind genome.Individual, rng *rand.Rand)
	Name() string
}

// SwapMutation меняет местами гены в двух независимых случайных позициях
// (позиции могут совпасть).
type SwapMutation struct{}

func (SwapMutation) Name() string { return "swap" }

func (SwapMutation) Mutate(ind genome.Individual, rng *rand.Rand) {
	if len(ind) < 2 {
		return
	}
	ind.Swap(ind.RandomIndex(rng), ind.RandomIndex(rng))
}

// InverseMutation разворачивает случайный отрезок.
type InverseMutation struct{}

func (InverseMutation) Name() string { return "inverse" }

func (InverseMutation) Mutate(ind genome.Individual, rng *rand.Rand) {
	if len(ind) < 2 {
		return
	}
	ind.Reverse(ind.RandomRange(rng))
}
