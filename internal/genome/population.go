package genome

import (
	"errors"
	"fmt"
)

var ErrEmptyPopulation = errors.New("genome: empty population")

type Population []Individual

type Summary struct {
	Best      Fitness
	BestIndex int
	Worst     Fitness
	Average   Fitness
	Size      int
}

func (p Population) Clone() Population {
	out := make(Population, len(p))
	for i, ind := range p {
		out[i] = ind.Clone()
	}
	return out
}

func (p Population) Evaluate(ev Evaluator) ([]Fitness, error) {
	scores := make([]Fitness, len(p))
	for i, ind := range p {
		f, err := ev.Eval(ind)
		if err != nil {
			return nil, fmt.Errorf("evaluate individual %d: %w", i, err)
		}
		scores[i] = f
	}
	return scores, nil
}

// Best — при равенстве побеждает первая особь.
func (p Population) Best(ev Evaluator) (Individual, Fitness, error) {
	scores, err := p.Evaluate(ev)
	if err != nil {
		return nil, 0, err
	}
	s, err := Summarize(scores)
	if err != nil {
		return nil, 0, err
	}
	return p[s.BestIndex], s.Best, nil
}

func Summarize(scores []Fitness) (Summary, error) {
	if len(scores) == 0 {
		return Summary{}, ErrEmptyPopulation
	}
	s := Summary{Best: scores[0], Worst: scores[0], Size: len(scores)}
	var sum float64
	for i, f := range scores {
		if f > s.Best {
			s.Best = f
			s.BestIndex = i
		}
		if f < s.Worst {
			s.Worst = f
		}
		sum += float64(f)
	}
	s.Average = Fitness(sum / float64(len(scores)))
	return s, nil
}
