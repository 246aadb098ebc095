package engine

import (
	"math"

	"github.com/bartolsthoorn/gosimplex/internal/kernel"
)

// minDualWeight bounds dual steepest-edge weights from below.
const minDualWeight = 1e-4

// dualDantzig prices by the largest primal infeasibility.
type dualDantzig struct {
	*dualBase
}

func (s *dualDantzig) PricePhase1() (int, bool) { return s.price(Phase1, dantzigScore) }
func (s *dualDantzig) PricePhase2() (int, bool) { return s.price(Phase2, dantzigScore) }
func (s *dualDantzig) Update(*Pivot)            {}
func (s *dualDantzig) Reset()                   { s.resetScanners() }

// dualDevex approximates ‖eᵢᵀB⁻¹N‖ restricted to the variables that were
// basic at the last reset.
type dualDevex struct {
	*dualBase
	weights []float64 // by variable
	ref     []bool
}

func newDualDevex(base *dualBase) *dualDevex {
	s := &dualDevex{
		dualBase: base,
		weights:  make([]float64, base.view.NumVariables()),
		ref:      make([]bool, base.view.NumVariables()),
	}
	s.Reset()
	return s
}

func (s *dualDevex) score(j int, infeas float64) float64 { return infeas / s.weights[j] }

func (s *dualDevex) PricePhase1() (int, bool) { return s.price(Phase1, s.score) }
func (s *dualDevex) PricePhase2() (int, bool) { return s.price(Phase2, s.score) }

// Reset makes the current basic variables the reference framework.
func (s *dualDevex) Reset() {
	for j := range s.weights {
		s.weights[j] = 1
		s.ref[j] = s.view.StateOf(j) == Basic
	}
	s.resetScanners()
}

// Update raises the weights of the rows touched by the pivot column.
func (s *dualDevex) Update(p *Pivot) {
	aq := p.Element()
	var acc kernel.Accumulator
	if s.ref[p.Leaving] {
		acc.Add(1)
	}
	for j, a := range p.PivotRow {
		if a != 0 && s.ref[j] && s.view.StateOf(j) != Basic {
			acc.Add(a * a)
		}
	}
	gamma := math.Sqrt(acc.Result())
	if s.weights[p.Leaving] > 3*gamma {
		s.Reset()
		return
	}
	for i, a := range p.Column {
		if a == 0 || i == p.Row {
			continue
		}
		j := s.view.BasicAt(i)
		s.weights[j] = math.Max(s.weights[j], math.Abs(a/aq)*gamma)
	}
	s.weights[p.Entering] = math.Max(gamma/math.Abs(aq), 1)
}

// dualSteepest keeps β = ‖eᵢᵀB⁻¹‖² for every basic variable.
type dualSteepest struct {
	*dualBase
	beta []float64 // by variable
	work []float64
}

func newDualSteepest(base *dualBase) *dualSteepest {
	s := &dualSteepest{
		dualBase: base,
		beta:     make([]float64, base.view.NumVariables()),
		work:     make([]float64, base.view.Rows()),
	}
	s.Reset()
	return s
}

func (s *dualSteepest) score(j int, infeas float64) float64 { return infeas * infeas / s.beta[j] }

func (s *dualSteepest) PricePhase1() (int, bool) { return s.price(Phase1, s.score) }
func (s *dualSteepest) PricePhase2() (int, bool) { return s.price(Phase2, s.score) }

// Reset computes the exact weights with one Btran per row.
func (s *dualSteepest) Reset() {
	for j := range s.beta {
		s.beta[j] = 1
	}
	for i := range s.view.Rows() {
		s.view.BtranUnit(i, s.work)
		s.beta[s.view.BasicAt(i)] = math.Max(kernel.SquaredNorm(s.work), minDualWeight)
	}
	s.resetScanners()
}

// Update applies the Forrest–Goldfarb recurrence
//
//	β_i ← max(β_i − 2(α_iq/α_rq)τ_i + (α_iq/α_rq)²β_r, minDualWeight),
//
// with τ = B⁻¹ρ_r, and gives the entering variable β_r/α_rq².
func (s *dualSteepest) Update(p *Pivot) {
	aq := p.Element()
	betaR := kernel.SquaredNorm(p.RowVec)
	copy(s.work, p.RowVec)
	s.view.Ftran(s.work)
	for i, a := range p.Column {
		if a == 0 || i == p.Row {
			continue
		}
		ratio := a / aq
		j := s.view.BasicAt(i)
		s.beta[j] = math.Max(s.beta[j]-2*ratio*s.work[i]+ratio*ratio*betaR, minDualWeight)
	}
	s.beta[p.Entering] = math.Max(betaR/(aq*aq), minDualWeight)
}
