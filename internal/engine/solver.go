// Package engine runs the primal and dual simplex iteration loops over the
// computational form built by package model.
package engine

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/bartolsthoorn/gosimplex/internal/basis"
	"github.com/bartolsthoorn/gosimplex/internal/model"
)

const (
	// degenerateStep is the largest step counted as degenerate.
	degenerateStep = 1e-12
	// perturbScale is the relative size of anti-degeneracy perturbations.
	perturbScale = 1e-6
	// mismatchTolerance bounds the relative difference between the pivot
	// element computed from the column and from the row.
	mismatchTolerance = 1e-7
)

// Result is the outcome of a solve. Values, ReducedCosts and States are
// indexed by variable (structurals, then one logical per row); Duals and
// Head by row. Duals and ReducedCosts are in the minimization sense.
type Result struct {
	Status           Status
	Values           []float64
	Duals            []float64
	ReducedCosts     []float64
	Head             []int
	States           []VarState
	Objective        float64
	Iterations       int
	Phase1Iterations int
	BadIterations    int
	Reinversions     int
	Elapsed          time.Duration
}

type solver struct {
	cfg Config
	md  *model.Model
	log *slog.Logger
	rng *rand.Rand

	st      *State
	shared  *Shared
	pricing Strategy
	alg     Algorithm
	phase   Phase

	primalExpand *expandTolerance
	dualExpand   *expandTolerance
	primalRatio  *PrimalRatioTest
	dualRatio    *DualRatioTest

	alpha []float64
	rho   []float64
	row   []float64

	start        time.Time
	iter         int
	phase1Iters  int
	bad          int
	reinversions int
	degenerate   int

	locked         bool
	released       bool
	verified       bool
	boundsDone     bool
	costsPerturbed bool
}

// Start is a starting basis. Head, when set, lists the basic variables in
// basis order; otherwise they are taken in index order.
type Start struct {
	States []VarState
	Head   []int
}

// Solve runs the configured simplex algorithm on md. start, when non-nil,
// gives the starting basis; a singular starting basis falls back to the
// slack basis. Termination is reported through Result.Status; the error is
// non-nil only for configuration and numerical faults.
func Solve(ctx context.Context, md *model.Model, cfg Config, start *Start) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := newSolver(md, cfg)
	if err := s.init(start); err != nil {
		return nil, err
	}
	status, err := s.run(ctx)
	s.restore()
	if err != nil {
		return nil, err
	}
	return s.result(status), nil
}

func newSolver(md *model.Model, cfg Config) *solver {
	opts := basis.DefaultOptions()
	opts.PivotTolerance = cfg.PivotTolerance
	opts.InvertFrequency = cfg.InvertFrequency
	st := newState(md, basis.NewProductForm(md, opts))
	return &solver{
		cfg:          cfg,
		md:           md,
		log:          cfg.logger(),
		rng:          rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1)),
		st:           st,
		primalExpand: newExpandTolerance(cfg.FeasibilityTolerance),
		dualExpand:   newExpandTolerance(cfg.OptimalityTolerance),
		primalRatio:  NewPrimalRatioTest(st, cfg),
		dualRatio:    NewDualRatioTest(st, cfg),
		alpha:        make([]float64, md.Rows()),
		rho:          make([]float64, md.Rows()),
		row:          make([]float64, md.NumVariables()),
	}
}

func (s *solver) init(start *Start) error {
	s.start = time.Now()
	if start != nil {
		if err := s.st.load(start.States, start.Head); err != nil {
			return errors.Wrap(err, "starting basis")
		}
		if err := s.st.invert(); err != nil {
			s.log.Warn("starting basis rejected, using slack basis", "err", err)
			start = nil
		}
	}
	if start == nil {
		s.st.slackBasis()
		if err := s.st.invert(); err != nil {
			return errors.Wrap(err, "slack basis")
		}
	}
	s.st.recompute()
	s.shared = NewShared(s.st, s.cfg.FeasibilityTolerance)
	return s.usePricing(s.cfg.Algorithm)
}

func (s *solver) usePricing(alg Algorithm) error {
	p, err := NewStrategy(s.cfg.Pricing, alg, s.st, s.shared, s.cfg)
	if err != nil {
		return err
	}
	s.pricing = p
	s.alg = alg
	s.phase = 0
	s.locked, s.released = false, false
	return nil
}

func (s *solver) run(ctx context.Context) (Status, error) {
	s.log.Info("solve started",
		"rows", s.md.Rows(),
		"columns", s.md.Structurals(),
		"nonzeros", s.md.NumNonzeros(),
		"algorithm", s.cfg.Algorithm.String(),
		"pricing", s.cfg.Pricing.String())
	var (
		status Status
		err    error
	)
	if s.cfg.Algorithm == Dual {
		status, err = s.dual(ctx)
	} else {
		status, err = s.primal(ctx)
	}
	if err != nil {
		s.log.Error("solve failed", "iteration", s.iter, "err", err)
		return status, err
	}
	s.log.Info("solve finished",
		"status", status.String(),
		"iterations", s.iter,
		"objective", s.md.ExternalObjective(s.st.x),
		"elapsed", time.Since(s.start))
	return status, nil
}

// limit checks the resource limits between iterations.
func (s *solver) limit(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return TimeLimit, nil
		}
		return Running, errors.Wrap(err, "solve interrupted")
	}
	if s.iter >= s.cfg.IterationLimit {
		return IterationLimit, nil
	}
	if s.cfg.TimeLimit > 0 && time.Since(s.start) >= s.cfg.TimeLimit {
		return TimeLimit, nil
	}
	return Running, nil
}

func (s *solver) setPhase(p Phase) {
	if s.phase == p {
		return
	}
	if s.phase != 0 {
		s.log.Info("phase change", "from", s.phase.String(), "to", p.String(), "iteration", s.iter)
	}
	s.phase = p
	s.pricing.Reset()
	s.primalExpand.Reset()
}

func (s *solver) lockCandidate() {
	s.pricing.LockLastIndex()
	s.locked = true
}

// releaseLocks gives locked candidates one more chance before the loop
// concludes that nothing improves.
func (s *solver) releaseLocks() bool {
	if !s.locked || s.released {
		return false
	}
	s.pricing.ReleaseUsed()
	s.locked, s.released = false, true
	return true
}

// verify refactorizes once before a terminal decision taken on an updated
// factorization. It reports whether the loop must price again.
func (s *solver) verify() (bool, error) {
	if s.verified || s.st.basis.Updates() == 0 {
		return false, nil
	}
	s.verified = true
	return true, s.reinvert("final check")
}

func (s *solver) reinvert(reason string) error {
	s.reinversions++
	if err := s.st.invert(); err != nil {
		return err
	}
	s.st.recompute()
	s.primalExpand.Reset()
	s.dualExpand.Reset()
	s.log.Debug("reinversion", "reason", reason, "iteration", s.iter)
	return nil
}

// recover handles a numerical fault raised by a basis update.
func (s *solver) recover(err error) error {
	var ne *NumericalError
	if errors.As(err, &ne) && s.st.basis.Updates() > 0 {
		s.log.Warn("numerical trouble, refactorizing", "err", err)
		s.lockCandidate()
		s.pricing.Reset()
		return s.reinvert("numerical trouble")
	}
	return err
}

// computeRow sets rho = B⁻ᵀe_r and row = ρᵀA.
func (s *solver) computeRow(r int) {
	s.st.BtranUnit(r, s.rho)
	s.md.PivotRow(s.st.mode, s.rho, s.row)
}

// checkPivot compares the pivot element from the column with the one from
// the row. A mismatch on an updated factorization triggers reinversion and
// reports false; a vanishing pivot on a fresh one is fatal.
func (s *solver) checkPivot(q, r int) (bool, error) {
	col, row := s.alpha[r], s.row[q]
	if math.Abs(col-row) <= mismatchTolerance*(1+math.Abs(col)) && math.Abs(col) > s.cfg.PivotTolerance {
		return true, nil
	}
	s.log.Warn("pivot mismatch", "row", r, "column", q, "from_column", col, "from_row", row)
	if s.st.basis.Updates() > 0 {
		return false, s.reinvert("pivot mismatch")
	}
	if math.Abs(col) <= s.cfg.PivotTolerance {
		return false, &NumericalError{Kind: basis.ZeroDivisor, Row: r, Col: q, Value: col}
	}
	return true, nil
}

func (s *solver) pivotRecord(phase Phase, q, r int) *Pivot {
	return &Pivot{
		Phase:    phase,
		Entering: q,
		Leaving:  s.st.BasicAt(r),
		Row:      r,
		Column:   s.alpha,
		RowVec:   s.rho,
		PivotRow: s.row,
	}
}

// progress refreshes the iterate after a basis change or bound flip.
func (s *solver) progress() error {
	s.verified = false
	if s.locked {
		s.pricing.ReleaseUsed()
		s.locked = false
	}
	s.released = false
	if s.st.basis.NeedsInversion() {
		return s.reinvert("frequency")
	}
	s.st.recompute()
	return nil
}

// reference is the quantity a sound iteration must not worsen.
func (s *solver) reference(phase Phase) float64 {
	if s.alg == Primal && phase == Phase1 {
		s.shared.InitPhase2(s.st.Version())
		return s.shared.Measure()
	}
	return s.st.objective()
}

// finishIteration runs the reference-objective check, the anti-degeneracy
// bookkeeping and telemetry.
func (s *solver) finishIteration(phase Phase, before float64, res RatioResult) error {
	s.iter++
	if phase == Phase1 {
		s.phase1Iters++
	}
	after := s.reference(phase)
	s.shared.InitPhase2(s.st.Version())
	measure := s.shared.Measure()

	var worse bool
	tol := s.cfg.OptimalityTolerance * (1 + math.Abs(before))
	if s.alg == Primal {
		worse = after > before+tol
	} else {
		worse = after < before-tol
	}

	it := Iteration{
		Number:        s.iter,
		Phase:         phase,
		Algorithm:     s.alg,
		Entering:      res.Entering,
		Leaving:       res.Leaving,
		PrimalStep:    res.PrimalStep,
		DualStep:      res.DualStep,
		Objective:     s.md.ExternalObjective(s.st.x),
		Infeasibility: measure,
		Flips:         len(res.Flips),
		BoundFlip:     res.Outcome == BoundFlip,
		Bad:           worse,
	}
	s.log.Debug("iteration", "it", it)
	if s.cfg.Observer != nil {
		s.cfg.Observer(it)
	}

	if worse {
		s.bad++
		s.log.Warn("bad iteration", "iteration", s.iter, "phase", phase.String(), "before", before, "after", after)
		if s.st.basis.Updates() > 0 {
			return s.reinvert("bad iteration")
		}
		s.primalExpand.Reset()
		s.dualExpand.Reset()
	}

	step := math.Abs(res.PrimalStep)
	expand := s.primalExpand
	if s.alg == Dual {
		step = math.Abs(res.DualStep)
		expand = s.dualExpand
	}
	if step <= degenerateStep {
		s.degenerate++
	} else {
		s.degenerate = 0
	}
	if s.degenerate >= s.cfg.DegenerateLimit && s.cfg.Perturbation {
		s.degenerate = 0
		s.perturb()
	}
	if expand.Advance() && s.st.basis.Updates() > 0 {
		return s.reinvert("expand cycle")
	}
	return nil
}

// perturb applies the anti-degeneracy perturbation of the running
// algorithm once per solve: relaxed bounds of the basic variables for the
// primal, cost shifts that widen dual feasibility for the dual.
func (s *solver) perturb() {
	st := s.st
	if s.alg == Primal {
		if s.boundsDone || s.md.BoundsPerturbed() {
			return
		}
		s.md.PerturbBounds(slices.Clone(st.head), s.rng, perturbScale)
		s.boundsDone = true
		st.recompute()
		s.log.Info("bounds perturbed", "iteration", s.iter)
		return
	}
	if s.costsPerturbed {
		return
	}
	for j := range st.total {
		delta := perturbScale * (1 + math.Abs(s.md.Cost(j))) * (0.5 + 0.5*s.rng.Float64())
		switch st.StateOf(j) {
		case AtLower:
			s.md.ShiftCost(j, delta)
		case AtUpper:
			s.md.ShiftCost(j, -delta)
		}
	}
	s.costsPerturbed = true
	st.recompute()
	s.log.Info("costs perturbed", "iteration", s.iter)
}

// unperturb restores perturbed bounds before a terminal decision and
// reports whether the loop must continue.
func (s *solver) unperturb() bool {
	if !s.md.BoundsPerturbed() {
		return false
	}
	s.md.ResetBounds()
	s.st.resyncNonbasic()
	s.st.recompute()
	s.verified = false
	s.log.Info("bound perturbation removed", "iteration", s.iter)
	return true
}

// restore undoes every model modification so results refer to the
// original problem.
func (s *solver) restore() {
	if !s.md.BoundsPerturbed() && !s.md.CostsShifted() {
		return
	}
	s.md.ResetBounds()
	s.md.ResetCosts()
	s.st.resyncNonbasic()
	s.st.recompute()
}

func (s *solver) result(status Status) *Result {
	st := s.st
	res := &Result{
		Status:           status,
		Values:           make([]float64, st.total),
		Duals:            slices.Clone(st.y),
		ReducedCosts:     slices.Clone(st.d),
		Head:             slices.Clone(st.head),
		States:           make([]VarState, st.total),
		Iterations:       s.iter,
		Phase1Iterations: s.phase1Iters,
		BadIterations:    s.bad,
		Reinversions:     s.reinversions,
		Elapsed:          time.Since(s.start),
	}
	for j := range st.total {
		res.Values[j] = st.Value(j)
		res.States[j] = st.StateOf(j)
	}
	res.Objective = s.md.ExternalObjective(res.Values)
	return res
}
