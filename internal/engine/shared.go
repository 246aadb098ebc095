package engine

import (
	"sync"

	"github.com/bartolsthoorn/gosimplex/internal/kernel"
	"github.com/bartolsthoorn/gosimplex/internal/partition"
)

// Shared holds the feasibility bookkeeping that pricing strategies share:
// the partition of basis positions into below-lower, above-upper and
// feasible, the primal infeasibility measure and the composite phase-1
// reduced costs.
//
// Recomputation is first writer wins. InitPhase1 and InitPhase2 try the
// lock without blocking; a caller that finds it held, or finds the data
// already current for the iterate version, skips the work and returns
// false. Readers go through Read, which holds the read lock, so they wait
// for an in-flight recomputation instead of observing partial state.
type Shared struct {
	mu sync.RWMutex

	view    View
	feasTol float64

	version     int
	costVersion int

	positions *partition.List
	infeas    []float64 // by basis position
	measure   float64
	phase1    []float64 // composite reduced costs by variable
	c1        []float64
}

// NewShared returns the shared handle for an iterate.
func NewShared(view View, feasTol float64) *Shared {
	m := view.Rows()
	return &Shared{
		view:        view,
		feasTol:     feasTol,
		version:     -1,
		costVersion: -1,
		positions:   partition.New(m, numFeasibility),
		infeas:      make([]float64, m),
		phase1:      make([]float64, view.NumVariables()),
		c1:          make([]float64, m),
	}
}

// InitPhase2 recomputes the feasibility partition and measure for the
// given iterate version. It reports whether this call did the work.
func (s *Shared) InitPhase2(version int) bool {
	return s.refresh(version, false)
}

// InitPhase1 additionally recomputes the composite phase-1 reduced costs.
func (s *Shared) InitPhase1(version int) bool {
	return s.refresh(version, true)
}

func (s *Shared) refresh(version int, costs bool) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()
	if s.version == version && (!costs || s.costVersion == version) {
		return false
	}
	if s.version != version {
		s.computeFeasibility()
		s.version = version
	}
	if costs && s.costVersion != version {
		s.computePhase1Costs()
		s.costVersion = version
	}
	return true
}

func (s *Shared) computeFeasibility() {
	var acc kernel.Accumulator
	for i := range s.view.Rows() {
		v := s.view.Variable(s.view.BasicAt(i))
		x := s.view.BasicValue(i)
		switch {
		case x < v.Lower-s.feasTol:
			s.positions.Insert(i, BelowLower, 0)
			s.infeas[i] = v.Lower - x
		case x > v.Upper+s.feasTol:
			s.positions.Insert(i, AboveUpper, 0)
			s.infeas[i] = x - v.Upper
		default:
			s.positions.Insert(i, Feasible, 0)
			s.infeas[i] = 0
		}
		acc.Add(s.infeas[i])
	}
	s.measure = acc.Result()
}

// computePhase1Costs sets d1 = −Nᵀy1 with y1 = B⁻ᵀc1, where c1 is −1 for
// positions below their lower bound and +1 above their upper bound.
func (s *Shared) computePhase1Costs() {
	clear(s.c1)
	for i := range s.positions.Range(BelowLower) {
		s.c1[i] = -1
	}
	for i := range s.positions.Range(AboveUpper) {
		s.c1[i] = 1
	}
	s.view.Btran(s.c1)
	for j := range s.view.NumVariables() {
		if s.view.StateOf(j) == Basic {
			s.phase1[j] = 0
			continue
		}
		s.phase1[j] = -s.view.ColumnDot(j, s.c1)
	}
}

// Read calls fn with a consistent view of the shared data.
func (s *Shared) Read(fn func(f Feasibility)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(Feasibility{s: s})
}

// Measure returns the primal infeasibility measure.
func (s *Shared) Measure() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.measure
}

// Infeasible returns the number of infeasible basis positions.
func (s *Shared) Infeasible() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.positions.Size(BelowLower) + s.positions.Size(AboveUpper)
}

// Feasibility is a read-locked accessor handed out by Shared.Read.
type Feasibility struct {
	s *Shared
}

// Measure returns the sum of bound violations of basic variables.
func (f Feasibility) Measure() float64 { return f.s.measure }

// Class returns BelowLower, AboveUpper or Feasible for position i.
func (f Feasibility) Class(i int) int { return f.s.positions.Where(i) }

// Infeasibility returns the bound violation of position i.
func (f Feasibility) Infeasibility(i int) float64 { return f.s.infeas[i] }

// Phase1Cost returns the composite reduced cost of variable j.
func (f Feasibility) Phase1Cost(j int) float64 { return f.s.phase1[j] }
