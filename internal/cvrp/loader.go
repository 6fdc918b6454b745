package cvrp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type section int

const (
	sectionHeader section = iota
	sectionCoords
	sectionDemands
	sectionDepots
	sectionDone
)

// Load reads a TSPLIB-style CVRP instance file and precomputes its distances.
func Load(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	inst, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return inst, nil
}

// Parse reads a TSPLIB-style CVRP instance. Node ids in the file are 1-based,
// genes are 0-based.
func Parse(r io.Reader) (*Instance, error) {
	inst := &Instance{}
	dimension := 0
	var seen ids
	stage := sectionHeader

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() && stage != sectionDone {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "EOF" {
			break
		}

		switch line {
		case "NODE_COORD_SECTION":
			stage = sectionCoords
			continue
		case "DEMAND_SECTION":
			stage = sectionDemands
			continue
		case "DEPOT_SECTION":
			stage = sectionDepots
			continue
		}

		fields := strings.Fields(line)
		var err error
		switch stage {
		case sectionHeader:
			err = parseHeader(inst, &dimension, line)
			if err == nil && dimension > 0 && inst.Nodes == nil {
				inst.Nodes = make([]Point, dimension)
				inst.Demands = make([]int, dimension)
				seen = newIDs(dimension)
			}
		case sectionCoords:
			var i int
			if i, err = parseCoords(inst, fields); err == nil {
				err = seen.mark(seen.coords, i, "coordinate")
			}
		case sectionDemands:
			var i int
			if i, err = parseDemand(inst, fields); err == nil {
				err = seen.mark(seen.demands, i, "demand")
			}
		case sectionDepots:
			if fields[0] == "-1" {
				stage = sectionDone
				break
			}
			var i int
			if i, err = nodeIndex(inst, fields[0]); err == nil {
				err = seen.mark(seen.depots, i, "depot")
			}
			if err == nil {
				inst.Depots = append(inst.Depots, i)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedInstance, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if err := seen.complete(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInstance, err)
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	inst.PrecomputeDistances()
	return inst, nil
}

func parseHeader(inst *Instance, dimension *int, line string) error {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return fmt.Errorf("unexpected line %q", line)
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	var err error
	switch key {
	case "NAME":
		inst.Name = value
	case "COMMENT":
		inst.Comment = value
	case "TYPE":
		inst.Type = value
	case "DIMENSION":
		*dimension, err = strconv.Atoi(value)
		if err == nil && *dimension <= 0 {
			err = fmt.Errorf("dimension must be > 0 (got %d)", *dimension)
		}
	case "CAPACITY":
		inst.Capacity, err = strconv.Atoi(value)
	case "EDGE_WEIGHT_TYPE":
		if value != "EUC_2D" {
			err = fmt.Errorf("unsupported edge weight type %q", value)
		}
	}
	return err
}

func nodeIndex(inst *Instance, field string) (int, error) {
	id, err := strconv.Atoi(field)
	if err != nil {
		return 0, err
	}
	if id < 1 || id > len(inst.Nodes) {
		return 0, fmt.Errorf("node id %d out of range [1,%d]", id, len(inst.Nodes))
	}
	return id - 1, nil
}

func parseCoords(inst *Instance, fields []string) (int, error) {
	if len(fields) != 3 {
		return 0, fmt.Errorf("coordinate line needs 3 fields (got %d)", len(fields))
	}
	i, err := nodeIndex(inst, fields[0])
	if err != nil {
		return 0, err
	}
	x, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, err
	}
	y, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return 0, err
	}
	inst.Nodes[i] = Point{X: x, Y: y}
	return i, nil
}

func parseDemand(inst *Instance, fields []string) (int, error) {
	if len(fields) != 2 {
		return 0, fmt.Errorf("demand line needs 2 fields (got %d)", len(fields))
	}
	i, err := nodeIndex(inst, fields[0])
	if err != nil {
		return 0, err
	}
	inst.Demands[i], err = strconv.Atoi(fields[1])
	return i, err
}

// ids tracks which node ids each section has listed. Every node needs exactly
// one coordinate and one demand line; a depot may be listed once.
type ids struct {
	coords, demands, depots []bool
}

func newIDs(n int) ids {
	return ids{coords: make([]bool, n), demands: make([]bool, n), depots: make([]bool, n)}
}

func (ids) mark(set []bool, i int, what string) error {
	if set[i] {
		return fmt.Errorf("duplicate %s for node %d", what, i+1)
	}
	set[i] = true
	return nil
}

func (s ids) complete() error {
	for i := range s.coords {
		if !s.coords[i] {
			return fmt.Errorf("node %d has no coordinates", i+1)
		}
		if !s.demands[i] {
			return fmt.Errorf("node %d has no demand", i+1)
		}
	}
	return nil
}
