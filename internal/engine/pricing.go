package engine

import (
	"math"

	"github.com/pkg/errors"
)

// Pivot carries the data of one basis change to the pricing strategies.
// All vectors refer to the basis before the change.
type Pivot struct {
	Phase    Phase
	Entering int
	Leaving  int
	Row      int
	Column   []float64 // B⁻¹a_entering, by position
	RowVec   []float64 // B⁻ᵀe_row, by position
	PivotRow []float64 // ρᵀa_j for every variable
}

// Element returns the pivot element taken from the column.
func (p *Pivot) Element() float64 { return p.Column[p.Row] }

// Strategy chooses an improving candidate. Primal strategies return an
// entering variable, dual strategies a leaving basis position.
type Strategy interface {
	PricePhase1() (int, bool)
	PricePhase2() (int, bool)
	// Update is called with the basis before the pivot is applied.
	Update(p *Pivot)
	// Reset re-anchors the weights; called on phase changes.
	Reset()
	Lock(index int)
	LockLastIndex()
	ReleaseUsed()
}

// NewStrategy builds the strategy of the given kind for an algorithm.
func NewStrategy(kind PricingKind, alg Algorithm, view View, shared *Shared, cfg Config) (Strategy, error) {
	if kind == Parallel {
		a, err := NewStrategy(cfg.Race[0], alg, view, shared, cfg)
		if err != nil {
			return nil, err
		}
		b, err := NewStrategy(cfg.Race[1], alg, view, shared, cfg)
		if err != nil {
			return nil, err
		}
		chooser := cfg.Chooser
		if chooser == nil {
			chooser = NewRandomChooser(cfg.Seed)
		}
		return NewController(a, b, chooser), nil
	}
	switch alg {
	case Primal:
		base := newPrimalBase(view, shared, cfg)
		switch kind {
		case Dantzig:
			return &primalDantzig{base}, nil
		case Devex:
			return newPrimalDevex(base), nil
		case SteepestEdge:
			return newPrimalSteepest(base), nil
		}
	case Dual:
		base := newDualBase(view, shared, cfg)
		switch kind {
		case Dantzig:
			return &dualDantzig{base}, nil
		case Devex:
			return newDualDevex(base), nil
		case SteepestEdge:
			return newDualSteepest(base), nil
		}
	}
	return nil, errors.WithStack(&ConfigError{Option: "pricing", Value: kind.String(), Reason: "no strategy for " + alg.String()})
}

// lockSet keeps candidates out of pricing until released.
type lockSet struct {
	locked []bool
	used   []int
	last   int
}

func newLockSet(n int) lockSet {
	return lockSet{locked: make([]bool, n), last: -1}
}

func (l *lockSet) Lock(index int) {
	if index < 0 || index >= len(l.locked) || l.locked[index] {
		return
	}
	l.locked[index] = true
	l.used = append(l.used, index)
}

func (l *lockSet) LockLastIndex() { l.Lock(l.last) }

func (l *lockSet) ReleaseUsed() {
	for _, i := range l.used {
		l.locked[i] = false
	}
	l.used = l.used[:0]
}

func (l *lockSet) isLocked(i int) bool { return l.locked[i] }

// primalBase is the candidate scan shared by the primal strategies.
type primalBase struct {
	view   View
	shared *Shared
	tol    float64
	simpri [2]*Simpri
	locks  lockSet
}

func newPrimalBase(view View, shared *Shared, cfg Config) *primalBase {
	return &primalBase{
		view:   view,
		shared: shared,
		tol:    cfg.OptimalityTolerance,
		simpri: [2]*Simpri{NewSimpri(cfg.Phase1), NewSimpri(cfg.Phase2)},
		locks:  newLockSet(view.NumVariables()),
	}
}

// improving reports whether moving nonbasic j against its reduced cost d
// decreases the objective.
func improving(st VarState, d, tol float64) bool {
	switch st {
	case AtLower:
		return d < -tol
	case AtUpper:
		return d > tol
	case NonbasicFree:
		return math.Abs(d) > tol
	}
	return false
}

// price scans nonbasic variables. score turns |d| and j into a priority.
func (b *primalBase) price(phase Phase, score func(j int, d float64) float64) (int, bool) {
	var (
		q  int
		ok bool
	)
	scan := func(cost func(j int) float64) {
		q, ok = b.simpri[phase-1].Scan(b.view.NumVariables(), func(j int) (float64, bool) {
			if b.locks.isLocked(j) {
				return 0, false
			}
			d := cost(j)
			if !improving(b.view.StateOf(j), d, b.tol) {
				return 0, false
			}
			return score(j, math.Abs(d)), true
		})
	}
	if phase == Phase1 {
		b.shared.InitPhase1(b.view.Version())
		b.shared.Read(func(f Feasibility) { scan(f.Phase1Cost) })
	} else {
		b.shared.InitPhase2(b.view.Version())
		scan(b.view.ReducedCost)
	}
	if ok {
		b.locks.last = q
	}
	return q, ok
}

func (b *primalBase) Lock(index int) { b.locks.Lock(index) }
func (b *primalBase) LockLastIndex() { b.locks.LockLastIndex() }
func (b *primalBase) ReleaseUsed()   { b.locks.ReleaseUsed() }

func (b *primalBase) resetScanners() {
	b.simpri[0].Reset()
	b.simpri[1].Reset()
}

// nonbasicCandidate reports whether j can ever enter.
func (b *primalBase) nonbasicCandidate(j int) bool {
	st := b.view.StateOf(j)
	return st != Basic && st != NonbasicFixed
}

// dualBase is the candidate scan shared by the dual strategies. Weights
// are indexed by variable so that reinversion may permute positions.
type dualBase struct {
	view   View
	shared *Shared
	simpri [2]*Simpri
	locks  lockSet
}

func newDualBase(view View, shared *Shared, cfg Config) *dualBase {
	return &dualBase{
		view:   view,
		shared: shared,
		simpri: [2]*Simpri{NewSimpri(cfg.Phase1), NewSimpri(cfg.Phase2)},
		locks:  newLockSet(view.NumVariables()),
	}
}

// price scans infeasible basis positions. score maps the violation and the
// basic variable to a priority.
func (b *dualBase) price(phase Phase, score func(j int, infeas float64) float64) (int, bool) {
	b.shared.InitPhase2(b.view.Version())
	var (
		r  int
		ok bool
	)
	b.shared.Read(func(f Feasibility) {
		r, ok = b.simpri[phase-1].Scan(b.view.Rows(), func(i int) (float64, bool) {
			if f.Class(i) == Feasible {
				return 0, false
			}
			j := b.view.BasicAt(i)
			if b.locks.isLocked(j) {
				return 0, false
			}
			return score(j, f.Infeasibility(i)), true
		})
	})
	if ok {
		b.locks.last = b.view.BasicAt(r)
	}
	return r, ok
}

// Lock takes a basis position, as returned by pricing.
func (b *dualBase) Lock(index int) { b.locks.Lock(b.view.BasicAt(index)) }
func (b *dualBase) LockLastIndex() { b.locks.LockLastIndex() }
func (b *dualBase) ReleaseUsed()   { b.locks.ReleaseUsed() }

func (b *dualBase) resetScanners() {
	b.simpri[0].Reset()
	b.simpri[1].Reset()
}
