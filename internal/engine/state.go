package engine

import (
	"math"

	"github.com/pkg/errors"

	"github.com/bartolsthoorn/gosimplex/internal/basis"
	"github.com/bartolsthoorn/gosimplex/internal/kernel"
	"github.com/bartolsthoorn/gosimplex/internal/model"
	"github.com/bartolsthoorn/gosimplex/internal/partition"
)

// View is the read-only window pricing strategies get on the iterate.
// It must not be mutated while a pricing call is in flight.
type View interface {
	Rows() int
	NumVariables() int
	Version() int
	BasicAt(i int) int
	BasicValue(i int) float64
	StateOf(j int) VarState
	ReducedCost(j int) float64
	Variable(j int) *model.Variable
	FtranColumn(j int, out []float64)
	Ftran(x []float64)
	BtranUnit(i int, out []float64)
	Btran(x []float64)
	ColumnDot(j int, v []float64) float64
}

// State is the simplex iterate: basis head, variable states and values,
// simplex multipliers and reduced costs.
type State struct {
	md    *model.Model
	basis basis.Basis
	mode  kernel.Mode

	m, total int
	head     []int
	vars     *partition.List // VarState partitions; attached is the basis position
	x        []float64       // all variables
	xB       []float64       // basic values by position
	y        []float64
	d        []float64
	version  int
}

var _ View = (*State)(nil)

func newState(md *model.Model, b basis.Basis) *State {
	m, total := md.Rows(), md.NumVariables()
	return &State{
		md:    md,
		basis: b,
		mode:  kernel.Stable,
		m:     m,
		total: total,
		head:  make([]int, m),
		vars:  partition.New(total, int(numVarStates)),
		x:     make([]float64, total),
		xB:    make([]float64, m),
		y:     make([]float64, m),
		d:     make([]float64, total),
	}
}

// slackBasis makes every logical basic and puts each structural at a
// finite bound, or at zero when free.
func (s *State) slackBasis() {
	s.vars.Reset()
	n := s.md.Structurals()
	for j := range n {
		s.setNonbasic(j, s.defaultNonbasic(j))
	}
	for i := range s.m {
		s.head[i] = n + i
		s.vars.Insert(n+i, int(Basic), i)
	}
}

func (s *State) defaultNonbasic(j int) VarState {
	v := s.md.Variable(j)
	switch v.Type {
	case model.Fixed:
		return NonbasicFixed
	case model.Free:
		return NonbasicFree
	case model.Minus:
		return AtUpper
	default:
		return AtLower
	}
}

// load installs a basis given by per-variable states. head, when non-nil,
// fixes the basis order of the basic variables. Nonbasic states that do not
// fit the bounds are replaced by the default for the variable.
func (s *State) load(states []VarState, head []int) error {
	if len(states) != s.total {
		return errors.Errorf("basis has %d states, want %d", len(states), s.total)
	}
	basic := 0
	for _, st := range states {
		if st == Basic {
			basic++
		}
	}
	if basic != s.m {
		return errors.Errorf("basis has %d basic variables, want %d", basic, s.m)
	}
	if head == nil {
		head = make([]int, 0, s.m)
		for j, st := range states {
			if st == Basic {
				head = append(head, j)
			}
		}
	}
	if len(head) != s.m {
		return errors.Errorf("basis head has %d entries, want %d", len(head), s.m)
	}
	seen := make([]bool, s.total)
	for _, j := range head {
		if j < 0 || j >= s.total || states[j] != Basic || seen[j] {
			return errors.Errorf("basis head entry %d is not a distinct basic variable", j)
		}
		seen[j] = true
	}

	s.vars.Reset()
	for pos, j := range head {
		s.head[pos] = j
		s.vars.Insert(j, int(Basic), pos)
	}
	for j, st := range states {
		if st == Basic {
			continue
		}
		if !s.fits(j, st) {
			st = s.defaultNonbasic(j)
		}
		s.setNonbasic(j, st)
	}
	return nil
}

func (s *State) fits(j int, st VarState) bool {
	v := s.md.Variable(j)
	switch st {
	case AtLower:
		return v.HasLower() && v.Type != model.Fixed
	case AtUpper:
		return v.HasUpper() && v.Type != model.Fixed
	case NonbasicFixed:
		return v.Type == model.Fixed
	case NonbasicFree:
		return v.Type == model.Free
	}
	return false
}

// setNonbasic moves j to a nonbasic state and sets its value.
func (s *State) setNonbasic(j int, st VarState) {
	s.vars.Insert(j, int(st), -1)
	s.x[j] = s.nonbasicValue(j, st)
}

func (s *State) nonbasicValue(j int, st VarState) float64 {
	v := s.md.Variable(j)
	switch st {
	case AtLower, NonbasicFixed:
		return v.Lower
	case AtUpper:
		return v.Upper
	default:
		return 0
	}
}

// resyncNonbasic snaps nonbasic values to their current bounds, used after
// bounds are perturbed or restored.
func (s *State) resyncNonbasic() {
	for j := range s.total {
		st := VarState(s.vars.Where(j))
		if st == Basic {
			continue
		}
		if !s.fits(j, st) {
			st = s.defaultNonbasic(j)
			s.vars.Move(j, int(st))
		}
		s.x[j] = s.nonbasicValue(j, st)
	}
}

// leavingState is the nonbasic state of a variable leaving at its lower or
// upper bound.
func (s *State) leavingState(j int, toUpper bool) VarState {
	v := s.md.Variable(j)
	switch {
	case v.Type == model.Fixed:
		return NonbasicFixed
	case toUpper && v.HasUpper():
		return AtUpper
	case v.HasLower():
		return AtLower
	case v.HasUpper():
		return AtUpper
	default:
		return NonbasicFree
	}
}

// invert refactorizes and resynchronizes the attached basis positions.
func (s *State) invert() error {
	if err := s.basis.Invert(s.head); err != nil {
		return err
	}
	for i, j := range s.head {
		s.vars.SetAttached(j, i)
	}
	return nil
}

// computePrimal sets xB = B⁻¹(b − N·x_N).
func (s *State) computePrimal() {
	copy(s.xB, s.md.RHS())
	for j := range s.total {
		if VarState(s.vars.Where(j)) == Basic || s.x[j] == 0 {
			continue
		}
		s.md.AddColumn(s.mode, s.xB, -s.x[j], j)
	}
	s.basis.Ftran(s.xB, s.mode)
	for i, j := range s.head {
		s.x[j] = s.xB[i]
	}
}

// computeDuals sets y = B⁻ᵀc_B and d = c − Aᵀy.
func (s *State) computeDuals() {
	for i, j := range s.head {
		s.y[i] = s.md.Cost(j)
	}
	s.basis.Btran(s.y, s.mode)
	for j := range s.total {
		if VarState(s.vars.Where(j)) == Basic {
			s.d[j] = 0
			continue
		}
		s.d[j] = kernel.Add(s.md.Cost(j), -s.md.ColumnDot(s.mode, j, s.y))
	}
}

// recompute refreshes values and duals from scratch.
func (s *State) recompute() {
	s.computePrimal()
	s.computeDuals()
	s.version++
}

// pivot replaces the variable at position r by q. The leaving variable
// moves to the given nonbasic state; x_q takes enterValue.
func (s *State) pivot(r, q int, enterValue float64, leave VarState) {
	p := s.head[r]
	s.setNonbasic(p, leave)
	s.head[r] = q
	s.vars.Insert(q, int(Basic), r)
	s.x[q] = enterValue
	s.xB[r] = enterValue
}

// flip moves a boxed nonbasic variable to its opposite bound.
func (s *State) flip(j int) {
	switch VarState(s.vars.Where(j)) {
	case AtLower:
		s.setNonbasic(j, AtUpper)
	case AtUpper:
		s.setNonbasic(j, AtLower)
	}
}

// objective returns the working objective cᵀx.
func (s *State) objective() float64 {
	return s.md.Objective(s.mode, s.x)
}

// dualInfeasibility returns the largest reduced-cost sign violation.
func (s *State) dualInfeasibility() (worst float64, at int) {
	at = -1
	for j := range s.total {
		var v float64
		switch VarState(s.vars.Where(j)) {
		case AtLower:
			v = -s.d[j]
		case AtUpper:
			v = s.d[j]
		case NonbasicFree:
			v = math.Abs(s.d[j])
		}
		if v > worst {
			worst, at = v, j
		}
	}
	return worst, at
}

// Rows implements View.
func (s *State) Rows() int { return s.m }

// NumVariables implements View.
func (s *State) NumVariables() int { return s.total }

// Version implements View.
func (s *State) Version() int { return s.version }

// BasicAt implements View.
func (s *State) BasicAt(i int) int { return s.head[i] }

// BasicValue implements View.
func (s *State) BasicValue(i int) float64 { return s.xB[i] }

// StateOf implements View.
func (s *State) StateOf(j int) VarState { return VarState(s.vars.Where(j)) }

// ReducedCost implements View.
func (s *State) ReducedCost(j int) float64 { return s.d[j] }

// Variable implements View.
func (s *State) Variable(j int) *model.Variable { return s.md.Variable(j) }

// FtranColumn implements View.
func (s *State) FtranColumn(j int, out []float64) { s.basis.FtranColumn(j, out, s.mode) }

// Ftran implements View.
func (s *State) Ftran(x []float64) { s.basis.Ftran(x, s.mode) }

// BtranUnit implements View.
func (s *State) BtranUnit(i int, out []float64) { s.basis.BtranUnit(i, out, s.mode) }

// Btran implements View.
func (s *State) Btran(x []float64) { s.basis.Btran(x, s.mode) }

// ColumnDot implements View.
func (s *State) ColumnDot(j int, v []float64) float64 { return s.md.ColumnDot(s.mode, j, v) }

// Value returns the current value of variable j.
func (s *State) Value(j int) float64 {
	if st := VarState(s.vars.Where(j)); st == Basic {
		return s.xB[s.vars.Attached(j)]
	}
	return s.x[j]
}
