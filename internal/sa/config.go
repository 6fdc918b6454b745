package sa

import (
	"cvrp/internal/neighbor"
	"cvrp/internal/opt"
	"cvrp/internal/telemetry"
)

type Config struct {
	Iterations int `validate:"gt=0"`

	Neighbors neighbor.Operator `validate:"required"`
	Cooling   CoolingSchedule   `validate:"required"`
	Criterion Criterion         `validate:"required"`
	Sink      telemetry.Sink    `validate:"required"`
}

func DefaultConfig() Config {
	cooling, _ := NewExponential(1, 0.999)
	return Config{
		Iterations: 1000,

		Neighbors: neighbor.NewSwap(10),
		Cooling:   cooling,
		Criterion: NewBoltzmann(),
		Sink:      telemetry.Discard{},
	}
}

func (c Config) Validate() error {
	if err := opt.ValidateConfig(c); err != nil {
		return err
	}
	return neighbor.Check(c.Neighbors)
}
