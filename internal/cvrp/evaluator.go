package cvrp

import (
	"fmt"

	"cvrp/internal/genome"
)

// RouteDistance walks the genotype from the depot, inserting a depot round
// trip whenever the next stop's demand exceeds the remaining capacity, and
// closes the route back at the depot.
func (inst *Instance) RouteDistance(ind genome.Individual) (float64, error) {
	if inst.distances == nil {
		return 0, ErrDistancesNotComputed
	}
	depot := inst.ClosestDepot()
	current := depot
	remaining := inst.Capacity
	total := 0.0

	for _, next := range ind {
		demand, err := inst.Demand(next)
		if err != nil {
			return 0, err
		}
		if demand > remaining {
			back, err := inst.Distance(current, depot)
			if err != nil {
				return 0, err
			}
			total += back
			current = depot
			remaining = inst.Capacity
		}
		d, err := inst.Distance(current, next)
		if err != nil {
			return 0, err
		}
		total += d
		remaining -= demand
		current = next
	}

	back, err := inst.Distance(current, depot)
	if err != nil {
		return 0, err
	}
	return total + back, nil
}

// Eval returns 1/(1+RouteDistance).
func (inst *Instance) Eval(ind genome.Individual) (genome.Fitness, error) {
	d, err := inst.RouteDistance(ind)
	if err != nil {
		return 0, err
	}
	return genome.FromCost(d), nil
}

// MustEval panics on evaluation errors.
func (inst *Instance) MustEval(ind genome.Individual) genome.Fitness {
	f, err := inst.Eval(ind)
	if err != nil {
		panic(err)
	}
	return f
}

// Routes splits the genotype into vehicle trips, each starting and ending at
// the depot.
func (inst *Instance) Routes(ind genome.Individual) ([][]genome.Gene, error) {
	var (
		routes    [][]genome.Gene
		trip      []genome.Gene
		remaining = inst.Capacity
	)
	for _, next := range ind {
		demand, err := inst.Demand(next)
		if err != nil {
			return nil, err
		}
		if demand > remaining {
			routes = append(routes, trip)
			trip = nil
			remaining = inst.Capacity
		}
		trip = append(trip, next)
		remaining -= demand
	}
	if len(trip) > 0 {
		routes = append(routes, trip)
	}
	return routes, nil
}

// Describe renders the routes as "depot -> a -> b -> depot" lines.
func (inst *Instance) Describe(ind genome.Individual) (string, error) {
	routes, err := inst.Routes(ind)
	if err != nil {
		return "", err
	}
	depot := inst.ClosestDepot()
	out := ""
	for i, r := range routes {
		line := fmt.Sprintf("Route #%d: %d", i+1, depot)
		for _, g := range r {
			line += fmt.Sprintf(" -> %d", g)
		}
		out += fmt.Sprintf("%s -> %d\n", line, depot)
	}
	return out, nil
}
