package aco

import (
	"cvrp/internal/opt"
	"cvrp/internal/telemetry"
)

type Config struct {
	Iterations int `validate:"gt=0"`
	Ants       int `validate:"gt=0"`

	// Alpha — вес феромона, Beta — вес близости следующей точки.
	Alpha float64 `validate:"gte=0"`
	Beta  float64 `validate:"gte=0"`

	// Rho — доля испаряющегося феромона.
	Rho float64 `validate:"gt=0,lt=1"`

	Q    float64 `validate:"gt=0"`
	Tau0 float64 `validate:"gt=0"`

	// CandidateK ограничивает выбор случайными K непосещёнными точками; 0 — все.
	CandidateK int `validate:"gte=0"`

	Sink telemetry.Sink `validate:"required"`
}

func DefaultConfig() Config {
	return Config{
		Iterations: 100,
		Ants:       20,

		Alpha: 1.0,
		Beta:  2.0,

		Rho: 0.20,
		Q:   1000.0,

		Tau0: 1.0,

		CandidateK: 0,
		Sink:       telemetry.Discard{},
	}
}

func (c Config) Validate() error {
	return opt.ValidateConfig(c)
}
