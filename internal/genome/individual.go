package genome

import (
	"fmt"
	"math/rand"
	"slices"
	"strconv"
)

// Gene — индекс точки; склады в генотип не входят.
type Gene = int

type Individual []Gene

func New(genes ...Gene) Individual {
	ind := make(Individual, len(genes))
	copy(ind, genes)
	return ind
}

func Shuffled(stops []Gene, rng *rand.Rand) Individual {
	ind := New(stops...)
	for i := len(ind) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		ind[i], ind[j] = ind[j], ind[i]
	}
	return ind
}

func (ind Individual) Clone() Individual {
	if ind == nil {
		return nil
	}
	return New(ind...)
}

func (ind Individual) Equal(other Individual) bool {
	return slices.Equal(ind, other)
}

func (ind Individual) Key() string {
	buf := make([]byte, 0, len(ind)*4)
	for i, g := range ind {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, int64(g), 10)
	}
	return string(buf)
}

func (ind Individual) RandomIndex(rng *rand.Rand) int {
	return rng.Intn(len(ind))
}

// RandomRange — отрезок [start, end] хотя бы из двух генов, нужно len(ind) >= 2.
func (ind Individual) RandomRange(rng *rand.Rand) (start, end int) {
	n := len(ind)
	start = rng.Intn(n - 1)
	end = start + 1 + rng.Intn(n-start-1)
	return start, end
}

func (ind Individual) Swap(i, j int) {
	ind[i], ind[j] = ind[j], ind[i]
}

func (ind Individual) Reverse(start, end int) {
	slices.Reverse(ind[start : end+1])
}

// Validate проверяет, что ind — перестановка stops.
func (ind Individual) Validate(stops []Gene) error {
	if len(ind) != len(stops) {
		return fmt.Errorf("individual length must be %d (got %d)", len(stops), len(ind))
	}
	want := make(map[Gene]bool, len(stops))
	for _, s := range stops {
		want[s] = false
	}
	for i, g := range ind {
		seen, ok := want[g]
		if !ok {
			return fmt.Errorf("ind[%d]=%d is not a stop of the problem", i, g)
		}
		if seen {
			return fmt.Errorf("duplicate gene %d in individual", g)
		}
		want[g] = true
	}
	return nil
}
