package main

import (
	"errors"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// envConfig — значения по умолчанию из окружения (CVRP_*); флаги их переопределяют.
type envConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"production"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Out          string `env:"OUT" envDefault:"artifacts/results.csv"`
	XLSX         string `env:"XLSX"`
	Metrics      string `env:"METRICS"`
	TelemetryDir string `env:"TELEMETRY_DIR"`

	Runs    int   `env:"RUNS" envDefault:"10"`
	Seed    int64 `env:"SEED" envDefault:"1000"`
	Workers int   `env:"WORKERS" envDefault:"4"`
}

func loadEnv() (*envConfig, error) {
	cfg := &envConfig{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "CVRP_"}); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// Только первая ошибка, чтобы лог был понятнее
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}
	return cfg, nil
}

// setupLogging настраивает глобальный логгер zerolog.
func setupLogging(cfg *envConfig) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return nil
}
