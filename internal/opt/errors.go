package opt

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrConfiguration marks failures detected while constructing a solver.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrEvaluation marks failures of the fitness oracle during a run.
	ErrEvaluation = errors.New("evaluation failed")
	// ErrNilRand is returned when a solver is constructed without a random source.
	ErrNilRand = fmt.Errorf("%w: random source is nil", ErrConfiguration)
)

// ConfigError names the configuration field that failed validation.
type ConfigError struct {
	Field string
	Rule  string
	Param string
	Value any
}

func (e *ConfigError) Error() string {
	if e.Rule == "required" {
		return fmt.Sprintf("%s: field %s is required", ErrConfiguration, e.Field)
	}
	if e.Param != "" {
		return fmt.Sprintf("%s: field %s=%v violates %s=%s", ErrConfiguration, e.Field, e.Value, e.Rule, e.Param)
	}
	return fmt.Sprintf("%s: field %s=%v violates %s", ErrConfiguration, e.Field, e.Value, e.Rule)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

var validate = validator.New()

// ValidateConfig checks the validate tags of cfg and reports the first broken
// rule as a *ConfigError.
func ValidateConfig(cfg any) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ConfigError{
			Field: fieldPath(fe.Namespace()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		}
	}
	return fmt.Errorf("%w: %v", ErrConfiguration, err)
}

// CheckRand rejects a nil random source.
func CheckRand(rng *rand.Rand) error {
	if rng == nil {
		return ErrNilRand
	}
	return nil
}

// fieldPath drops the root struct name: "Config.Neighbors" -> "Neighbors".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
