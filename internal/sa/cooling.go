package sa

import (
	"fmt"

	"cvrp/internal/opt"
)

// CoolingSchedule владеет температурой; температура не возрастает.
type CoolingSchedule interface {
	Cooldown()
	Temperature() float64
	Name() string
	// Restart возвращает копию расписания в начальном состоянии.
	Restart() CoolingSchedule
}

// Linear — линейное охлаждение от 1 до 0 за maxIterations шагов.
type Linear struct {
	maxIterations int
	i             int
	temperature   float64
}

func NewLinear(maxIterations int) (*Linear, error) {
	if maxIterations <= 0 {
		return nil, &opt.ConfigError{Field: "MaxIterations", Rule: "gt", Param: "0", Value: maxIterations}
	}
	return &Linear{maxIterations: maxIterations, temperature: 1}, nil
}

func (l *Linear) Cooldown() {
	l.temperature = max(0, 1-float64(l.i+1)/float64(l.maxIterations))
	l.i++
}

func (l *Linear) Temperature() float64 { return l.temperature }
func (l *Linear) Name() string         { return fmt.Sprintf("linear-%d", l.maxIterations) }

func (l *Linear) Restart() CoolingSchedule {
	return &Linear{maxIterations: l.maxIterations, temperature: 1}
}

// Exponential — геометрическое охлаждение: T *= factor.
type Exponential struct {
	initial     float64
	factor      float64
	temperature float64
}

func NewExponential(initial, factor float64) (*Exponential, error) {
	if initial <= 0 {
		return nil, &opt.ConfigError{Field: "InitialTemperature", Rule: "gt", Param: "0", Value: initial}
	}
	if factor <= 0 || factor >= 1 {
		return nil, &opt.ConfigError{Field: "CoolingFactor", Rule: "range", Param: "(0,1)", Value: factor}
	}
	return &Exponential{initial: initial, factor: factor, temperature: initial}, nil
}

func (e *Exponential) Cooldown()            { e.temperature *= e.factor }
func (e *Exponential) Temperature() float64 { return e.temperature }
func (e *Exponential) Name() string         { return fmt.Sprintf("exponential-%g-%g", e.initial, e.factor) }

func (e *Exponential) Restart() CoolingSchedule {
	return &Exponential{initial: e.initial, factor: e.factor, temperature: e.initial}
}
