package ts

import (
	"cvrp/internal/neighbor"
	"cvrp/internal/opt"
	"cvrp/internal/telemetry"
)

type Config struct {
	Iterations int `validate:"gt=0"`
	TabuSize   int `validate:"gt=0"`

	Neighbors neighbor.Operator `validate:"required"`
	Sink      telemetry.Sink    `validate:"required"`
}

func DefaultConfig() Config {
	return Config{
		Iterations: 500,
		TabuSize:   20,

		Neighbors: neighbor.NewSwap(20),
		Sink:      telemetry.Discard{},
	}
}

func (c Config) Validate() error {
	if err := opt.ValidateConfig(c); err != nil {
		return err
	}
	return neighbor.Check(c.Neighbors)
}
