package engine

import (
	"fmt"

	"github.com/bartolsthoorn/gosimplex/internal/basis"
)

// NumericalError is a fatal numerical fault of a solve.
type NumericalError = basis.NumericalError

// ConfigError reports an invalid option detected before any iteration runs.
type ConfigError struct {
	Option string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid option %s=%q: %s", e.Option, e.Value, e.Reason)
}
