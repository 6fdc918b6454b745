package pso

import (
	"cvrp/internal/opt"
	"cvrp/internal/telemetry"
)

type Config struct {
	Iterations int `validate:"gt=0"`
	Particles  int `validate:"gt=0"`

	// W — инерция, C1 — когнитивный, C2 — социальный коэффициенты.
	W  float64 `validate:"gte=0"`
	C1 float64 `validate:"gte=0"`
	C2 float64 `validate:"gte=0"`

	// VMax ограничивает скорость частицы; 0 — без ограничения.
	VMax float64 `validate:"gte=0"`

	PosMin float64 `validate:"ltfield=PosMax"`
	PosMax float64

	Sink telemetry.Sink `validate:"required"`
}

func DefaultConfig() Config {
	return Config{
		Iterations: 200,
		Particles:  40,

		W:  0.729,
		C1: 1.49445,
		C2: 1.49445,

		VMax: 0.25,

		PosMin: 0.0,
		PosMax: 1.0,

		Sink: telemetry.Discard{},
	}
}

func (c Config) Validate() error {
	return opt.ValidateConfig(c)
}
