package cvrp

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"cvrp/internal/genome"
	"cvrp/internal/opt"
)

var (
	ErrDistancesNotComputed = fmt.Errorf("%w: distances are not precomputed", opt.ErrEvaluation)
	ErrNodeOutOfRange       = fmt.Errorf("%w: node out of range", opt.ErrEvaluation)
	ErrMalformedInstance    = errors.New("cvrp: malformed instance")
)

type Point struct {
	X, Y float64
}

func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

type Instance struct {
	Name     string
	Comment  string
	Type     string
	Capacity int
	// Nodes, Demands are indexed by node; Depots lists node indices.
	Nodes   []Point
	Demands []int
	Depots  []int

	stops     []genome.Gene
	distances []float64
}

func NewInstance(capacity int, nodes []Point, demands []int, depots []int) (*Instance, error) {
	inst := &Instance{Capacity: capacity, Nodes: nodes, Demands: demands, Depots: depots}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	inst.PrecomputeDistances()
	return inst, nil
}

func (inst *Instance) Validate() error {
	if inst == nil {
		return errors.New("instance is nil")
	}
	n := len(inst.Nodes)
	if n == 0 {
		return fmt.Errorf("%w: no nodes", ErrMalformedInstance)
	}
	if inst.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be > 0 (got %d)", ErrMalformedInstance, inst.Capacity)
	}
	if len(inst.Demands) != n {
		return fmt.Errorf("%w: demands length must be %d (got %d)", ErrMalformedInstance, n, len(inst.Demands))
	}
	if len(inst.Depots) == 0 {
		return fmt.Errorf("%w: no depot", ErrMalformedInstance)
	}
	for _, d := range inst.Depots {
		if d < 0 || d >= n {
			return fmt.Errorf("%w: depot %d out of range [0,%d)", ErrMalformedInstance, d, n)
		}
	}
	for i, v := range inst.Demands {
		if v < 0 {
			return fmt.Errorf("%w: demand[%d] must be >= 0 (got %d)", ErrMalformedInstance, i, v)
		}
		if v > inst.Capacity && !inst.isDepot(i) {
			return fmt.Errorf("%w: demand[%d]=%d exceeds capacity %d", ErrMalformedInstance, i, v, inst.Capacity)
		}
	}
	return nil
}

// PrecomputeDistances builds the full Euclidean distance matrix. Must be called
// before Eval or Distance.
func (inst *Instance) PrecomputeDistances() {
	n := len(inst.Nodes)
	inst.distances = make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := inst.Nodes[i].Distance(inst.Nodes[j])
			inst.distances[i*n+j] = d
			inst.distances[j*n+i] = d
		}
	}
	inst.stops = inst.stops[:0]
	for i := 0; i < n; i++ {
		if !inst.isDepot(i) {
			inst.stops = append(inst.stops, i)
		}
	}
}

func (inst *Instance) Dimension() int { return len(inst.Nodes) }

func (inst *Instance) Distance(a, b genome.Gene) (float64, error) {
	if inst.distances == nil {
		return 0, ErrDistancesNotComputed
	}
	n := len(inst.Nodes)
	if a < 0 || a >= n || b < 0 || b >= n {
		return 0, fmt.Errorf("%w: edge (%d,%d), dimension %d", ErrNodeOutOfRange, a, b, n)
	}
	return inst.distances[a*n+b], nil
}

func (inst *Instance) Demand(node genome.Gene) (int, error) {
	if node < 0 || node >= len(inst.Demands) {
		return 0, fmt.Errorf("%w: node %d, dimension %d", ErrNodeOutOfRange, node, len(inst.Demands))
	}
	return inst.Demands[node], nil
}

// ClosestDepot returns the depot every route starts from. Instances in the
// supported format declare a single depot; with several, the first one is used.
func (inst *Instance) ClosestDepot() genome.Gene {
	return inst.Depots[0]
}

// Stops lists the non-depot nodes in index order.
func (inst *Instance) Stops() []genome.Gene {
	return inst.stops
}

// RandomIndividual returns a random permutation of the stops.
func (inst *Instance) RandomIndividual(rng *rand.Rand) genome.Individual {
	return genome.Shuffled(inst.stops, rng)
}

func (inst *Instance) isDepot(node int) bool {
	for _, d := range inst.Depots {
		if d == node {
			return true
		}
	}
	return false
}

// RandomInstance places n nodes uniformly on a [0,size]x[0,size] grid with
// node 0 as the depot and demands in [1,maxDemand].
func RandomInstance(n, capacity, maxDemand int, size float64, rng *rand.Rand) *Instance {
	if rng == nil {
		panic("random source is nil")
	}
	if n < 2 || capacity <= 0 || maxDemand <= 0 || maxDemand > capacity {
		panic("invalid random instance bounds")
	}
	nodes := make([]Point, n)
	demands := make([]int, n)
	for i := range nodes {
		nodes[i] = Point{X: math.Round(rng.Float64() * size), Y: math.Round(rng.Float64() * size)}
		if i > 0 {
			demands[i] = 1 + rng.Intn(maxDemand)
		}
	}
	inst, err := NewInstance(capacity, nodes, demands, []int{0})
	if err != nil {
		panic(err)
	}
	inst.Name = fmt.Sprintf("random-n%d-c%d", n, capacity)
	return inst
}
