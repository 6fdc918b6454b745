package tssa

import (
	"cvrp/internal/neighbor"
	"cvrp/internal/opt"
	"cvrp/internal/sa"
	"cvrp/internal/telemetry"
)

type Config struct {
	// Iterations — число фаз; каждая длится SwitchInterval итераций.
	Iterations     int `validate:"gt=0"`
	SwitchInterval int `validate:"gt=0"`
	TabuSize       int `validate:"gt=0"`

	Neighbors neighbor.Operator  `validate:"required"`
	Cooling   sa.CoolingSchedule `validate:"required"`
	Criterion sa.Criterion       `validate:"required"`
	Sink      telemetry.Sink     `validate:"required"`
}

func DefaultConfig() Config {
	cooling, _ := sa.NewExponential(1, 0.995)
	return Config{
		Iterations:     10,
		SwitchInterval: 50,
		TabuSize:       20,

		Neighbors: neighbor.NewSwap(20),
		Cooling:   cooling,
		Criterion: sa.NewBoltzmann(),
		Sink:      telemetry.Discard{},
	}
}

func (c Config) Validate() error {
	if err := opt.ValidateConfig(c); err != nil {
		return err
	}
	return neighbor.Check(c.Neighbors)
}
