package engine

import (
	"math"

	"github.com/bartolsthoorn/gosimplex/internal/kernel"
)

// primalDantzig prices by the largest reduced cost.
type primalDantzig struct {
	*primalBase
}

func dantzigScore(_ int, d float64) float64 { return d }

func (s *primalDantzig) PricePhase1() (int, bool) { return s.price(Phase1, dantzigScore) }
func (s *primalDantzig) PricePhase2() (int, bool) { return s.price(Phase2, dantzigScore) }
func (s *primalDantzig) Update(*Pivot)            {}
func (s *primalDantzig) Reset()                   { s.resetScanners() }

// primalDevex approximates the norm of B⁻¹a_j restricted to a reference
// framework of variables that were nonbasic at the last reset.
type primalDevex struct {
	*primalBase
	weights []float64
	ref     []bool
}

func newPrimalDevex(base *primalBase) *primalDevex {
	s := &primalDevex{
		primalBase: base,
		weights:    make([]float64, base.view.NumVariables()),
		ref:        make([]bool, base.view.NumVariables()),
	}
	s.Reset()
	return s
}

func (s *primalDevex) score(j int, d float64) float64 { return d / s.weights[j] }

func (s *primalDevex) PricePhase1() (int, bool) { return s.price(Phase1, s.score) }
func (s *primalDevex) PricePhase2() (int, bool) { return s.price(Phase2, s.score) }

// Reset makes every nonbasic variable the reference framework with weight 1.
func (s *primalDevex) Reset() {
	for j := range s.weights {
		s.weights[j] = 1
		s.ref[j] = s.view.StateOf(j) != Basic
	}
	s.resetScanners()
}

// Update raises the weights along the pivot row.
func (s *primalDevex) Update(p *Pivot) {
	q, aq := p.Entering, p.Element()
	var acc kernel.Accumulator
	if s.ref[q] {
		acc.Add(1)
	}
	for i, a := range p.Column {
		if a != 0 && s.ref[s.view.BasicAt(i)] {
			acc.Add(a * a)
		}
	}
	gamma := math.Sqrt(acc.Result())
	if s.weights[q] > 3*gamma {
		s.Reset()
		return
	}
	for j, a := range p.PivotRow {
		if a == 0 || j == q || !s.nonbasicCandidate(j) {
			continue
		}
		s.weights[j] = math.Max(s.weights[j], math.Abs(a/aq)*gamma)
	}
	s.weights[p.Leaving] = math.Max(gamma/math.Abs(aq), 1)
}

// primalSteepest keeps γ_j = 1 + ‖B⁻¹a_j‖² for every nonbasic variable.
type primalSteepest struct {
	*primalBase
	gamma []float64
	work  []float64
}

func newPrimalSteepest(base *primalBase) *primalSteepest {
	s := &primalSteepest{
		primalBase: base,
		gamma:      make([]float64, base.view.NumVariables()),
		work:       make([]float64, base.view.Rows()),
	}
	s.Reset()
	return s
}

func (s *primalSteepest) score(j int, d float64) float64 { return d * d / s.gamma[j] }

func (s *primalSteepest) PricePhase1() (int, bool) { return s.price(Phase1, s.score) }
func (s *primalSteepest) PricePhase2() (int, bool) { return s.price(Phase2, s.score) }

// Reset computes the exact weights with one Ftran per nonbasic variable.
func (s *primalSteepest) Reset() {
	for j := range s.gamma {
		s.gamma[j] = 1
		if !s.nonbasicCandidate(j) {
			continue
		}
		s.view.FtranColumn(j, s.work)
		s.gamma[j] = 1 + kernel.SquaredNorm(s.work)
	}
	s.resetScanners()
}

// Update applies the Goldfarb–Reid recurrence
//
//	γ_j ← max(γ_j − 2ᾱ_j·a_jᵀw + ᾱ_j²γ_q, 1 + ᾱ_j²),  ᾱ_j = α_rj/α_rq,
//
// with w = B⁻ᵀα_q. The leaving variable gets γ_q/α_rq².
func (s *primalSteepest) Update(p *Pivot) {
	q, aq := p.Entering, p.Element()
	gq := 1 + kernel.SquaredNorm(p.Column)
	copy(s.work, p.Column)
	s.view.Btran(s.work)
	for j, a := range p.PivotRow {
		if a == 0 || j == q || !s.nonbasicCandidate(j) {
			continue
		}
		ratio := a / aq
		g := s.gamma[j] - 2*ratio*s.view.ColumnDot(j, s.work) + ratio*ratio*gq
		s.gamma[j] = math.Max(g, 1+ratio*ratio)
	}
	s.gamma[p.Leaving] = math.Max(gq/(aq*aq), 1)
}
