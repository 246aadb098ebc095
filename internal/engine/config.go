package engine

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"
)

// PricingKind selects the pricing strategy.
type PricingKind int

const (
	Dantzig PricingKind = iota
	Devex
	SteepestEdge
	// Parallel races two strategies through a Controller.
	Parallel
)

// String returns the option name of the pricing kind.
func (k PricingKind) String() string {
	switch k {
	case Dantzig:
		return "dantzig"
	case Devex:
		return "devex"
	case SteepestEdge:
		return "steepest-edge"
	case Parallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// ParsePricing maps an option name to a pricing kind.
func ParsePricing(name string) (PricingKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dantzig":
		return Dantzig, nil
	case "devex":
		return Devex, nil
	case "steepest-edge", "steepest_edge", "steepestedge":
		return SteepestEdge, nil
	case "parallel":
		return Parallel, nil
	}
	return 0, &ConfigError{Option: "pricing", Value: name, Reason: "unknown pricing strategy"}
}

// Algorithm selects the simplex variant.
type Algorithm int

const (
	Primal Algorithm = iota
	Dual
)

// String returns the option name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case Primal:
		return "primal"
	case Dual:
		return "dual"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps an option name to an algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "primal":
		return Primal, nil
	case "dual":
		return Dual, nil
	}
	return 0, &ConfigError{Option: "algorithm", Value: name, Reason: "unknown algorithm"}
}

// SimpriConfig bounds the candidate scan of one pricing call.
type SimpriConfig struct {
	Clusters            int
	VisitClusters       int
	ImprovingCandidates int
}

// Config holds every tunable of a solve.
type Config struct {
	FeasibilityTolerance float64
	OptimalityTolerance  float64
	PivotTolerance       float64

	Phase1 SimpriConfig
	Phase2 SimpriConfig

	InvertFrequency int
	IterationLimit  int
	TimeLimit       time.Duration

	Pricing PricingKind
	// Race names the two strategies used when Pricing is Parallel.
	Race      [2]PricingKind
	Algorithm Algorithm

	Seed    uint64
	Chooser Chooser

	Perturbation    bool
	DegenerateLimit int

	Logger   *slog.Logger
	Observer Observer
}

// DefaultConfig returns the default solver configuration.
func DefaultConfig() Config {
	return Config{
		FeasibilityTolerance: 1e-7,
		OptimalityTolerance:  1e-7,
		PivotTolerance:       1e-9,
		Phase1:               SimpriConfig{Clusters: 1, VisitClusters: 1, ImprovingCandidates: math.MaxInt32},
		Phase2:               SimpriConfig{Clusters: 1, VisitClusters: 1, ImprovingCandidates: math.MaxInt32},
		InvertFrequency:      100,
		IterationLimit:       math.MaxInt32,
		Pricing:              Devex,
		Race:                 [2]PricingKind{Dantzig, Devex},
		Algorithm:            Primal,
		Seed:                 1,
		Perturbation:         true,
		DegenerateLimit:      25,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"feasibility_tolerance", c.FeasibilityTolerance},
		{"optimality_tolerance", c.OptimalityTolerance},
		{"pivot_tolerance", c.PivotTolerance},
	}
	for _, p := range positive {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			return &ConfigError{Option: p.name, Value: fmt.Sprint(p.v), Reason: "must be positive and finite"}
		}
	}
	for name, s := range map[string]SimpriConfig{"phase1": c.Phase1, "phase2": c.Phase2} {
		if s.Clusters < 1 || s.VisitClusters < 1 || s.ImprovingCandidates < 1 {
			return &ConfigError{Option: name + "_simpri", Value: fmt.Sprintf("%+v", s), Reason: "counts must be at least 1"}
		}
	}
	if c.InvertFrequency < 1 {
		return &ConfigError{Option: "invert_frequency", Value: fmt.Sprint(c.InvertFrequency), Reason: "must be at least 1"}
	}
	if c.IterationLimit < 0 {
		return &ConfigError{Option: "iteration_limit", Value: fmt.Sprint(c.IterationLimit), Reason: "must not be negative"}
	}
	if c.TimeLimit < 0 {
		return &ConfigError{Option: "time_limit", Value: c.TimeLimit.String(), Reason: "must not be negative"}
	}
	if c.Pricing < Dantzig || c.Pricing > Parallel {
		return &ConfigError{Option: "pricing", Value: c.Pricing.String(), Reason: "unknown pricing strategy"}
	}
	if c.Pricing == Parallel {
		for _, k := range c.Race {
			if k < Dantzig || k > SteepestEdge {
				return &ConfigError{Option: "pricing_race", Value: k.String(), Reason: "race needs two concrete strategies"}
			}
		}
	}
	if c.Algorithm != Primal && c.Algorithm != Dual {
		return &ConfigError{Option: "algorithm", Value: c.Algorithm.String(), Reason: "unknown algorithm"}
	}
	return nil
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
