package simplex

import (
	"github.com/pkg/errors"

	"github.com/bartolsthoorn/gosimplex/internal/engine"
	"github.com/bartolsthoorn/gosimplex/internal/model"
)

// Solution contains the results from solving a linear program.
type Solution struct {
	// Status indicates the outcome of the solve.
	Status ModelStatus

	// ColValues contains the primal solution values for each column (variable).
	ColValues []float64

	// ColDuals contains the reduced cost of each column.
	ColDuals []float64

	// RowValues contains the activity of each row (constraint).
	RowValues []float64

	// RowDuals contains the dual value of each row.
	RowDuals []float64

	// ColBasis contains the basis status for each column.
	ColBasis []BasisStatus

	// RowBasis contains the basis status for each row.
	RowBasis []BasisStatus

	// Objective is the value of the objective function at the solution.
	Objective float64

	// Iterations is the number of simplex iterations performed.
	Iterations int

	basis *SavedBasis
}

func newSolution(md *model.Model, res *engine.Result) *Solution {
	n, m := md.Structurals(), md.Rows()
	sol := &Solution{
		Status:     modelStatusFromEngine(res.Status),
		ColValues:  make([]float64, n),
		ColDuals:   make([]float64, n),
		RowValues:  make([]float64, m),
		RowDuals:   make([]float64, m),
		ColBasis:   make([]BasisStatus, n),
		RowBasis:   make([]BasisStatus, m),
		Objective:  res.Objective,
		Iterations: res.Iterations,
	}
	sign := 1.0
	if md.Maximize() {
		sign = -1
	}
	for j := range n {
		sol.ColValues[j] = res.Values[j]
		sol.ColDuals[j] = sign * res.ReducedCosts[j]
		sol.ColBasis[j] = basisStatusFromEngine(res.States[j], false)
	}
	rhs := md.RHS()
	for i := range m {
		sol.RowValues[i] = rhs[i] - res.Values[n+i]
		sol.RowDuals[i] = sign * res.Duals[i]
		sol.RowBasis[i] = basisStatusFromEngine(res.States[n+i], true)
	}

	b := &SavedBasis{
		Head:   make([]string, m),
		Status: make(map[string]BasisStatus, n+m),
	}
	for i, j := range res.Head {
		b.Head[i] = md.Variable(j).Name
	}
	for j := range md.NumVariables() {
		v := md.Variable(j)
		b.Status[v.Name] = basisStatusFromEngine(res.States[j], v.Logical)
	}
	sol.basis = b
	return sol
}

// IsOptimal returns true if the solution is optimal.
func (s *Solution) IsOptimal() bool {
	return s.Status == ModelStatusOptimal
}

// IsInfeasible returns true if the model is infeasible.
func (s *Solution) IsInfeasible() bool {
	return s.Status == ModelStatusInfeasible
}

// IsUnbounded returns true if the model is unbounded.
func (s *Solution) IsUnbounded() bool {
	return s.Status == ModelStatusUnbounded
}

// IsTimeLimit returns true if the solve terminated due to time limit.
func (s *Solution) IsTimeLimit() bool {
	return s.Status == ModelStatusTimeLimit
}

// HasSolution returns true if the solution contains valid values.
func (s *Solution) HasSolution() bool {
	return s.Status.HasSolution()
}

// Value returns the solution value for a variable by index.
// Returns 0 if the index is out of range.
func (s *Solution) Value(index int) float64 {
	if index < 0 || index >= len(s.ColValues) {
		return 0
	}
	return s.ColValues[index]
}

// Basis returns the final basis keyed by variable name, or nil when the
// model had no rows and columns. It can be passed to WithStartingBasis to
// warm start a related model.
func (s *Solution) Basis() *SavedBasis {
	return s.basis
}

// SavedBasis is a basis keyed by column and row names. Unnamed columns and
// rows are called C<index> and R<index>.
type SavedBasis struct {
	// Head lists the basic variables in basis order. When empty, the basic
	// variables of Status are taken in column-then-row order.
	Head []string
	// Status holds the status of every variable. Missing names default
	// to a nonbasic status that fits their bounds.
	Status map[string]BasisStatus
}

func (b *SavedBasis) start(md *model.Model) (*engine.Start, error) {
	states := make([]engine.VarState, md.NumVariables())
	for j := range states {
		states[j] = engine.AtLower
	}
	basic := 0
	for name, st := range b.Status {
		j, ok := md.Lookup(name)
		if !ok {
			return nil, errors.Errorf("basis names unknown variable %q", name)
		}
		states[j] = basisStatusToEngine(st, md.Variable(j).Logical)
		if st == BasisStatusBasic {
			basic++
		}
	}
	if basic != md.Rows() {
		return nil, errors.Errorf("basis has %d basic variables, want %d", basic, md.Rows())
	}
	start := &engine.Start{States: states}
	if len(b.Head) == 0 {
		return start, nil
	}
	if len(b.Head) != md.Rows() {
		return nil, errors.Errorf("basis head has %d entries, want %d", len(b.Head), md.Rows())
	}
	start.Head = make([]int, len(b.Head))
	for i, name := range b.Head {
		j, ok := md.Lookup(name)
		if !ok || b.Status[name] != BasisStatusBasic {
			return nil, errors.Errorf("basis head names nonbasic variable %q", name)
		}
		start.Head[i] = j
	}
	return start, nil
}
