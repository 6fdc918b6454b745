package pso

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cvrp/internal/genome"
)

func TestDecodeOrdersByKey(t *testing.T) {
	stops := []genome.Gene{1, 2, 3, 4}
	assert.Equal(t, genome.New(3, 1, 4, 2), decode([]float64{0.5, 0.9, 0.1, 0.7}, stops))
	assert.Equal(t, genome.New(1, 2, 3, 4), decode([]float64{0.2, 0.2, 0.2, 0.2}, stops), "ties keep stop order")
	assert.Empty(t, decode(nil, nil))
}
