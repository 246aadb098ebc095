package simplex

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/bartolsthoorn/gosimplex/internal/engine"
)

type optionKind int

const (
	boolOption optionKind = iota
	intOption
	floatOption
	stringOption
)

func (k optionKind) String() string {
	return [...]string{"bool", "int", "float", "string"}[k]
}

// option binds a named setting to the solver configuration.
type option struct {
	kind optionKind

	setBool   func(s *Solver, v bool)
	setInt    func(s *Solver, v int) error
	setFloat  func(s *Solver, v float64) error
	setString func(s *Solver, v string) error

	get func(s *Solver) any
}

func positiveFloat(name string, dst func(*engine.Config) *float64) option {
	return option{
		kind: floatOption,
		setFloat: func(s *Solver, v float64) error {
			if !(v > 0) {
				return errors.Errorf("%s must be positive, got %g", name, v)
			}
			*dst(&s.cfg) = v
			return nil
		},
		get: func(s *Solver) any { return *dst(&s.cfg) },
	}
}

func minInt(name string, lowest int, dst func(*engine.Config) *int) option {
	return option{
		kind: intOption,
		setInt: func(s *Solver, v int) error {
			if v < lowest {
				return errors.Errorf("%s must be at least %d, got %d", name, lowest, v)
			}
			*dst(&s.cfg) = v
			return nil
		},
		get: func(s *Solver) any { return *dst(&s.cfg) },
	}
}

// options lists every name accepted by the Set*Option methods.
var options = map[string]option{
	"output_flag": {
		kind:    boolOption,
		setBool: func(s *Solver, v bool) { s.output = v },
		get:     func(s *Solver) any { return s.output },
	},
	"perturbation": {
		kind:    boolOption,
		setBool: func(s *Solver, v bool) { s.cfg.Perturbation = v },
		get:     func(s *Solver) any { return s.cfg.Perturbation },
	},
	"primal_feasibility_tolerance": positiveFloat("primal_feasibility_tolerance",
		func(c *engine.Config) *float64 { return &c.FeasibilityTolerance }),
	"dual_feasibility_tolerance": positiveFloat("dual_feasibility_tolerance",
		func(c *engine.Config) *float64 { return &c.OptimalityTolerance }),
	"pivot_tolerance": positiveFloat("pivot_tolerance",
		func(c *engine.Config) *float64 { return &c.PivotTolerance }),
	"time_limit": {
		kind: floatOption,
		setFloat: func(s *Solver, v float64) error {
			if v < 0 {
				return errors.Errorf("time_limit must not be negative, got %g", v)
			}
			s.cfg.TimeLimit = time.Duration(v * float64(time.Second))
			return nil
		},
		get: func(s *Solver) any { return s.cfg.TimeLimit.Seconds() },
	},
	"iteration_limit": minInt("iteration_limit", 0,
		func(c *engine.Config) *int { return &c.IterationLimit }),
	"invert_frequency": minInt("invert_frequency", 1,
		func(c *engine.Config) *int { return &c.InvertFrequency }),
	"degenerate_limit": minInt("degenerate_limit", 1,
		func(c *engine.Config) *int { return &c.DegenerateLimit }),
	"phase1_clusters": minInt("phase1_clusters", 1,
		func(c *engine.Config) *int { return &c.Phase1.Clusters }),
	"phase1_visit_clusters": minInt("phase1_visit_clusters", 1,
		func(c *engine.Config) *int { return &c.Phase1.VisitClusters }),
	"phase1_improving_candidates": minInt("phase1_improving_candidates", 1,
		func(c *engine.Config) *int { return &c.Phase1.ImprovingCandidates }),
	"phase2_clusters": minInt("phase2_clusters", 1,
		func(c *engine.Config) *int { return &c.Phase2.Clusters }),
	"phase2_visit_clusters": minInt("phase2_visit_clusters", 1,
		func(c *engine.Config) *int { return &c.Phase2.VisitClusters }),
	"phase2_improving_candidates": minInt("phase2_improving_candidates", 1,
		func(c *engine.Config) *int { return &c.Phase2.ImprovingCandidates }),
	"random_seed": {
		kind: intOption,
		setInt: func(s *Solver, v int) error {
			if v < 0 {
				return errors.Errorf("random_seed must not be negative, got %d", v)
			}
			s.cfg.Seed = uint64(v)
			return nil
		},
		get: func(s *Solver) any { return int(s.cfg.Seed) },
	},
	"threads": {
		kind: intOption,
		setInt: func(s *Solver, v int) error {
			if v < 1 {
				return errors.Errorf("threads must be at least 1, got %d", v)
			}
			s.threads = v
			return nil
		},
		get: func(s *Solver) any { return s.threads },
	},
	"pricing": {
		kind: stringOption,
		setString: func(s *Solver, v string) error {
			kind, err := engine.ParsePricing(v)
			if err != nil {
				return err
			}
			s.cfg.Pricing = kind
			s.pricingSet = true
			return nil
		},
		get: func(s *Solver) any { return s.cfg.Pricing.String() },
	},
	"pricing_race": {
		kind: stringOption,
		setString: func(s *Solver, v string) error {
			parts := strings.Split(v, ",")
			if len(parts) != 2 {
				return errors.Errorf("pricing_race needs two strategies, got %q", v)
			}
			for k, p := range parts {
				kind, err := engine.ParsePricing(p)
				if err != nil {
					return err
				}
				s.cfg.Race[k] = kind
			}
			return nil
		},
		get: func(s *Solver) any { return s.cfg.Race[0].String() + "," + s.cfg.Race[1].String() },
	},
	"algorithm": {
		kind: stringOption,
		setString: func(s *Solver, v string) error {
			alg, err := engine.ParseAlgorithm(v)
			if err != nil {
				return err
			}
			s.cfg.Algorithm = alg
			return nil
		},
		get: func(s *Solver) any { return s.cfg.Algorithm.String() },
	},
}

func lookupOption(op, name string, kind optionKind) (option, error) {
	opt, ok := options[name]
	if !ok {
		return option{}, newErrorMsg(op, fmt.Sprintf("unknown option %q", name))
	}
	if opt.kind != kind {
		return option{}, newErrorMsg(op, fmt.Sprintf("option %q is a %s option", name, opt.kind))
	}
	return opt, nil
}
