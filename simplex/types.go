// Package simplex solves linear programs with a pure-Go primal and dual
// simplex method.
//
// # High-Level API Example
//
// The high-level API uses the Model struct to define a problem:
//
//	model := simplex.Model{
//		ColCosts: []float64{1.0, 1.0},
//		ColLower: []float64{0.0, 0.0},
//		ColUpper: []float64{10.0, 10.0},
//	}
//	model.AddDenseRow(1.0, []float64{1.0, 1.0}, 5.0) // 1 <= x + y <= 5
//
//	solution, err := model.Solve()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("Optimal values:", solution.ColValues)
//
// # Low-Level API Example
//
// The low-level API builds a problem incrementally and sets options by name:
//
//	solver, err := simplex.NewSolver()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer solver.Close()
//
//	solver.SetStringOption("pricing", "steepest-edge")
//	// ... add variables and constraints
//	solution, err := solver.Run()
package simplex

import (
	"fmt"

	"github.com/bartolsthoorn/gosimplex/internal/engine"
)

// Status represents the result status of a solver operation.
type Status int

const (
	// StatusError indicates the operation failed with an error.
	StatusError Status = -1
	// StatusOK indicates the operation succeeded.
	StatusOK Status = 0
	// StatusWarning indicates the operation succeeded with warnings.
	StatusWarning Status = 1
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusError:
		return "Error"
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "Warning"
	default:
		return "Unknown"
	}
}

// ModelStatus represents the status of a solved model.
type ModelStatus int

const (
	// ModelStatusNotSet indicates the model status has not been set.
	ModelStatusNotSet ModelStatus = iota
	// ModelStatusModelError indicates an error in the model.
	ModelStatusModelError
	// ModelStatusSolveError indicates a numerical failure during solve.
	ModelStatusSolveError
	// ModelStatusModelEmpty indicates the model is empty.
	ModelStatusModelEmpty
	// ModelStatusOptimal indicates an optimal solution was found.
	ModelStatusOptimal
	// ModelStatusInfeasible indicates the model is infeasible.
	ModelStatusInfeasible
	// ModelStatusUnbounded indicates the model is unbounded.
	ModelStatusUnbounded
	// ModelStatusTimeLimit indicates the time limit was reached.
	ModelStatusTimeLimit
	// ModelStatusIterationLimit indicates the iteration limit was reached.
	ModelStatusIterationLimit
	// ModelStatusUnknown indicates an unknown status.
	ModelStatusUnknown
)

// String returns a human-readable representation of the model status.
func (s ModelStatus) String() string {
	names := []string{
		"NotSet", "ModelError", "SolveError", "ModelEmpty", "Optimal",
		"Infeasible", "Unbounded", "TimeLimit", "IterationLimit", "Unknown",
	}
	if int(s) >= 0 && int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// IsOptimal returns true if the model was solved to optimality.
func (s ModelStatus) IsOptimal() bool {
	return s == ModelStatusOptimal
}

// HasSolution returns true if the model has a valid solution.
func (s ModelStatus) HasSolution() bool {
	return s == ModelStatusOptimal ||
		s == ModelStatusTimeLimit ||
		s == ModelStatusIterationLimit
}

func modelStatusFromEngine(status engine.Status) ModelStatus {
	switch status {
	case engine.Optimal:
		return ModelStatusOptimal
	case engine.PrimalInfeasible:
		return ModelStatusInfeasible
	case engine.DualInfeasible:
		return ModelStatusUnbounded
	case engine.TimeLimit:
		return ModelStatusTimeLimit
	case engine.IterationLimit:
		return ModelStatusIterationLimit
	default:
		return ModelStatusUnknown
	}
}

// BasisStatus represents the basis status of a variable or constraint.
type BasisStatus int

const (
	// BasisStatusLower indicates the variable is at its lower bound.
	BasisStatusLower BasisStatus = iota
	// BasisStatusBasic indicates the variable is basic.
	BasisStatusBasic
	// BasisStatusUpper indicates the variable is at its upper bound.
	BasisStatusUpper
	// BasisStatusZero indicates the variable is free and set to zero.
	BasisStatusZero
	// BasisStatusNonbasic indicates the variable is fixed and nonbasic.
	BasisStatusNonbasic
)

// String returns a human-readable representation of the basis status.
func (s BasisStatus) String() string {
	switch s {
	case BasisStatusLower:
		return "Lower"
	case BasisStatusBasic:
		return "Basic"
	case BasisStatusUpper:
		return "Upper"
	case BasisStatusZero:
		return "Zero"
	case BasisStatusNonbasic:
		return "Nonbasic"
	default:
		return "Unknown"
	}
}

// Row logicals run opposite to row activities, so their bound side flips.
func basisStatusFromEngine(st engine.VarState, logical bool) BasisStatus {
	switch st {
	case engine.Basic:
		return BasisStatusBasic
	case engine.AtLower:
		if logical {
			return BasisStatusUpper
		}
		return BasisStatusLower
	case engine.AtUpper:
		if logical {
			return BasisStatusLower
		}
		return BasisStatusUpper
	case engine.NonbasicFree:
		return BasisStatusZero
	default:
		return BasisStatusNonbasic
	}
}

func basisStatusToEngine(st BasisStatus, logical bool) engine.VarState {
	switch st {
	case BasisStatusBasic:
		return engine.Basic
	case BasisStatusLower:
		if logical {
			return engine.AtUpper
		}
		return engine.AtLower
	case BasisStatusUpper:
		if logical {
			return engine.AtLower
		}
		return engine.AtUpper
	case BasisStatusZero:
		return engine.NonbasicFree
	default:
		return engine.NonbasicFixed
	}
}

// Nonzero represents a non-zero entry in a sparse matrix.
// Row and Col are zero-indexed.
type Nonzero struct {
	Row int
	Col int
	Val float64
}

// Iteration is the per-iteration record passed to an observer.
type Iteration = engine.Iteration

// ----------------------------------------------------------------------------
// Errors
// ----------------------------------------------------------------------------

// Error represents a solver error with context about which operation failed.
// Numerical faults of the engine are available through errors.As on Err.
type Error struct {
	Op     string // Operation that failed (e.g., "Run", "SetOption")
	Status Status
	Msg    string // Additional context
	Err    error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("simplex: %s failed: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("simplex: %s failed with status %s", e.Op, e.Status)
}

// Unwrap returns the underlying engine error, if any.
func (e *Error) Unwrap() error { return e.Err }

// newError wraps err as an Error. Returns nil if err is nil.
func newError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Status: StatusError, Msg: err.Error(), Err: err}
}

// newErrorMsg creates a new Error with an additional message.
func newErrorMsg(op, msg string) error {
	return &Error{Op: op, Status: StatusError, Msg: msg}
}
