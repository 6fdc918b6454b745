package ea

import (
	"errors"
	"fmt"
	"maps"
	"math/rand"
	"slices"

	"cvrp/internal/genome"
)

var (
	// ErrCrossoverConflict — таблица трансляции PMX не сводится к перестановке.
	ErrCrossoverConflict = errors.New("ea: конфликт трансляции генов в PMX")
	// ErrParentMismatch — родители разной длины или некорректный отрезок.
	ErrParentMismatch = errors.New("ea: родители несовместимы")
)

// Crossover порождает одного или двух потомков из пары родителей.
// Родители не изменяются.
type Crossover interface {
	Crossover(a, b genome.Individual, rng *rand.Rand) ([]genome.Individual, error)
	Name() string
}

func checkParents(a, b genome.Individual, start, end int) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: длины %d и %d", ErrParentMismatch, len(a), len(b))
	}
	if start < 0 || end >= len(a) || start > end {
		return fmt.Errorf("%w: отрезок [%d,%d] вне [0,%d)", ErrParentMismatch, start, end, len(a))
	}
	return nil
}

// OrderedCrossover — Order Crossover (OX), один потомок.
type OrderedCrossover struct{}

func (OrderedCrossover) Name() string { return "ordered" }

func (o OrderedCrossover) Crossover(a, b genome.Individual, rng *rand.Rand) ([]genome.Individual, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: длины %d и %d", ErrParentMismatch, len(a), len(b))
	}
	if len(a) < 2 {
		return []genome.Individual{a.Clone()}, nil
	}
	start, end := a.RandomRange(rng)
	child, err := o.Child(a, b, start, end)
	if err != nil {
		return nil, err
	}
	return []genome.Individual{child}, nil
}

// Child копирует отрезок a[start..end] на те же позиции, остальные позиции
// заполняются генами b в порядке их следования.
func (OrderedCrossover) Child(a, b genome.Individual, start, end int) (genome.Individual, error) {
	if err := checkParents(a, b, start, end); err != nil {
		return nil, err
	}
	segment := a[start : end+1]
	inSegment := make(map[genome.Gene]struct{}, len(segment))
	for _, g := range segment {
		inSegment[g] = struct{}{}
	}

	// Гены b без генов отрезка
	rest := make(genome.Individual, 0, len(b))
	for _, g := range b {
		if _, ok := inSegment[g]; !ok {
			rest = append(rest, g)
		}
	}
	if len(rest)+len(segment) != len(a) {
		return nil, fmt.Errorf("%w: родители не являются перестановками одного набора генов", ErrParentMismatch)
	}

	child := make(genome.Individual, 0, len(a))
	child = append(child, rest[:start]...)
	child = append(child, segment...)
	child = append(child, rest[start:]...)
	return child, nil
}

// PartiallyMappedCrossover — PMX, два потомка.
type PartiallyMappedCrossover struct{}

func (PartiallyMappedCrossover) Name() string { return "partially-mapped" }

func (p PartiallyMappedCrossover) Crossover(a, b genome.Individual, rng *rand.Rand) ([]genome.Individual, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: длины %d и %d", ErrParentMismatch, len(a), len(b))
	}
	if len(a) < 2 {
		return []genome.Individual{a.Clone(), b.Clone()}, nil
	}
	start, end := a.RandomRange(rng)
	ca, cb, err := p.Children(a, b, start, end)
	if err != nil {
		return nil, err
	}
	return []genome.Individual{ca, cb}, nil
}

// Children обменивает отрезки [start..end] родителей; гены вне отрезка,
// совпавшие с генами чужого отрезка, транслируются по таблице соответствия.
// Children(b, a) возвращает потомков Children(a, b) в обратном порядке.
func (PartiallyMappedCrossover) Children(a, b genome.Individual, start, end int) (genome.Individual, genome.Individual, error) {
	if err := checkParents(a, b, start, end); err != nil {
		return nil, nil, err
	}
	midA, midB := a[start:end+1], b[start:end+1]

	// ab: ген отрезка a -> ген отрезка b на той же позиции; ba — обратная
	ab, ba := translation{}, translation{}
	for i := range midA {
		ab.add(midA[i], midB[i])
		ba.add(midB[i], midA[i])
	}
	if err := ab.flatten(); err != nil {
		return nil, nil, err
	}
	if err := ba.flatten(); err != nil {
		return nil, nil, err
	}

	childA, err := offspring(a, midB, start, ba)
	if err != nil {
		return nil, nil, err
	}
	childB, err := offspring(b, midA, start, ab)
	if err != nil {
		return nil, nil, err
	}
	return childA, childB, nil
}

func offspring(parent, middle genome.Individual, start int, t translation) (genome.Individual, error) {
	child := make(genome.Individual, len(parent))
	for i, g := range parent {
		if i >= start && i < start+len(middle) {
			child[i] = middle[i-start]
			continue
		}
		tg, err := t.resolve(g)
		if err != nil {
			return nil, err
		}
		child[i] = tg
	}
	return child, nil
}

// translation хранит все трансляции гена; у корректных родителей их ровно одна.
type translation map[genome.Gene][]genome.Gene

func (t translation) add(from, to genome.Gene) {
	if !slices.Contains(t[from], to) {
		t[from] = append(t[from], to)
	}
}

// flatten сводит ген с двумя трансляциями к обмену этих двух генов.
func (t translation) flatten() error {
	var pairs [][2]genome.Gene
	for _, g := range slices.Sorted(maps.Keys(t)) {
		switch to := t[g]; {
		case len(to) > 2:
			return fmt.Errorf("%w: ген %d имеет %d трансляций", ErrCrossoverConflict, g, len(to))
		case len(to) == 2:
			pairs = append(pairs, [2]genome.Gene{to[0], to[1]})
		}
	}
	for _, p := range pairs {
		t[p[0]] = []genome.Gene{p[1]}
		t[p[1]] = []genome.Gene{p[0]}
	}
	return nil
}

// resolve идёт по цепочке трансляций до гена, которого нет в таблице.
// Цикл или цепочка длиннее len(t)+1 — конфликт.
func (t translation) resolve(g genome.Gene) (genome.Gene, error) {
	visited := make(map[genome.Gene]struct{})
	for depth := 0; ; depth++ {
		to, ok := t[g]
		if !ok {
			return g, nil
		}
		if _, seen := visited[g]; seen || depth > len(t) {
			return 0, fmt.Errorf("%w: цикл трансляции через ген %d", ErrCrossoverConflict, g)
		}
		visited[g] = struct{}{}
		g = to[0]
	}
}
