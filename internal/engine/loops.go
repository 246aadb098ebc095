package engine

import (
	"context"
	"math"

	"github.com/bartolsthoorn/gosimplex/internal/model"
)

// primal runs the primal simplex: phase 1 on the composite infeasibility
// costs while any basic variable violates a bound, phase 2 on the working
// costs once none does.
func (s *solver) primal(ctx context.Context) (Status, error) {
	for {
		if status, err := s.limit(ctx); status != Running || err != nil {
			return status, err
		}
		s.shared.InitPhase2(s.st.Version())
		phase := Phase2
		if s.shared.Infeasible() > 0 {
			phase = Phase1
		}
		s.setPhase(phase)

		var (
			q  int
			ok bool
		)
		if phase == Phase1 {
			q, ok = s.pricing.PricePhase1()
		} else {
			q, ok = s.pricing.PricePhase2()
		}
		if !ok {
			if s.releaseLocks() {
				continue
			}
			again, err := s.verify()
			if err != nil {
				return Running, err
			}
			if again || s.unperturb() {
				continue
			}
			if phase == Phase1 {
				s.log.Info("no improving candidate in phase 1", "infeasibility", s.shared.Measure())
				return PrimalInfeasible, nil
			}
			return Optimal, nil
		}
		status, err := s.primalIteration(phase, q)
		if err != nil || status != Running {
			return status, err
		}
	}
}

func (s *solver) primalIteration(phase Phase, q int) (Status, error) {
	st := s.st
	d := st.ReducedCost(q)
	if phase == Phase1 {
		s.shared.Read(func(f Feasibility) { d = f.Phase1Cost(q) })
	}
	dir := 1.0
	if d > 0 {
		dir = -1
	}
	before := s.reference(phase)
	st.FtranColumn(q, s.alpha)
	res := s.primalRatio.Run(&RatioInput{
		Phase:       phase,
		Entering:    q,
		Direction:   dir,
		ReducedCost: d,
		Vector:      s.alpha,
		Tau:         s.primalExpand.Value(),
	})

	switch res.Outcome {
	case Unbounded:
		if phase == Phase2 {
			s.log.Info("unbounded direction", "entering", q, "reduced_cost", d)
			return DualInfeasible, nil
		}
		// Phase-1 costs improve along a ray only through variables that
		// are already feasible; skip the candidate.
		s.lockCandidate()
		return Running, nil
	case BoundFlip:
		st.flip(q)
		if err := s.progress(); err != nil {
			return Running, err
		}
		return Running, s.finishIteration(phase, before, res)
	}

	r := res.Row
	s.computeRow(r)
	if ok, err := s.checkPivot(q, r); !ok || err != nil {
		return Running, err
	}
	s.pricing.Update(s.pivotRecord(phase, q, r))
	if err := st.basis.Append(s.alpha, r, q); err != nil {
		return Running, s.recover(err)
	}
	st.pivot(r, q, st.x[q]+dir*res.PrimalStep, st.leavingState(res.Leaving, res.ToUpper))
	if err := s.progress(); err != nil {
		return Running, err
	}
	return Running, s.finishIteration(phase, before, res)
}

// dual runs the dual simplex from a dual feasible start. Boxed variables
// with a wrong-signed reduced cost are flipped; the others get a cost shift
// that is removed once the dual loop ends.
func (s *solver) dual(ctx context.Context) (Status, error) {
	s.makeDualFeasible()
	s.setPhase(Phase2)
	for {
		if status, err := s.limit(ctx); status != Running || err != nil {
			return status, err
		}
		r, ok := s.pricing.PricePhase2()
		if !ok {
			if s.releaseLocks() {
				continue
			}
			again, err := s.verify()
			if err != nil {
				return Running, err
			}
			if again {
				continue
			}
			return s.dualFinish(ctx)
		}
		status, err := s.dualIteration(r)
		if err != nil || status != Running {
			return status, err
		}
	}
}

func (s *solver) makeDualFeasible() {
	st := s.st
	tol := s.cfg.OptimalityTolerance
	var flipped, shifted int
	for j := range st.total {
		d := st.d[j]
		boxed := st.Variable(j).Type == model.Bounded
		switch st.StateOf(j) {
		case AtLower:
			if d >= -tol {
				continue
			}
			if boxed {
				st.flip(j)
				flipped++
				continue
			}
			s.md.ShiftCost(j, s.shiftMargin()-d)
			shifted++
		case AtUpper:
			if d <= tol {
				continue
			}
			if boxed {
				st.flip(j)
				flipped++
				continue
			}
			s.md.ShiftCost(j, -s.shiftMargin()-d)
			shifted++
		case NonbasicFree:
			if math.Abs(d) <= tol {
				continue
			}
			s.md.ShiftCost(j, -d)
			shifted++
		}
	}
	if flipped+shifted > 0 {
		st.recompute()
		s.log.Info("dual start corrected", "flips", flipped, "shifts", shifted)
	}
}

// shiftMargin makes shifted reduced costs strictly feasible.
func (s *solver) shiftMargin() float64 {
	return s.cfg.OptimalityTolerance * (1 + s.rng.Float64())
}

func (s *solver) dualIteration(r int) (Status, error) {
	st := s.st
	p := st.BasicAt(r)
	v := st.Variable(p)
	x := st.BasicValue(r)
	sign, bound := 1.0, v.Lower
	if x > v.Upper {
		sign, bound = -1, v.Upper
	}

	before := s.reference(Phase2)
	s.computeRow(r)
	res := s.dualRatio.Run(&RatioInput{
		Phase:  Phase2,
		Row:    r,
		Sign:   sign,
		Slope:  math.Abs(x - bound),
		Vector: s.row,
		Tau:    s.dualExpand.Value(),
	})
	if res.Outcome == Unbounded {
		if st.basis.Updates() > 0 {
			return Running, s.reinvert("dual ray check")
		}
		s.log.Info("no dual breakpoint", "row", r, "variable", p, "infeasibility", math.Abs(x-bound))
		return PrimalInfeasible, nil
	}

	q := res.Entering
	for _, j := range res.Flips {
		st.flip(j)
	}
	if len(res.Flips) > 0 {
		st.computePrimal()
	}
	st.FtranColumn(q, s.alpha)
	if ok, err := s.checkPivot(q, r); !ok || err != nil {
		return Running, err
	}
	res.PrimalStep = (st.BasicValue(r) - bound) / s.alpha[r]
	s.pricing.Update(s.pivotRecord(Phase2, q, r))
	if err := st.basis.Append(s.alpha, r, q); err != nil {
		return Running, s.recover(err)
	}
	st.pivot(r, q, st.x[q]+res.PrimalStep, st.leavingState(p, res.ToUpper))
	if err := s.progress(); err != nil {
		return Running, err
	}
	return Running, s.finishIteration(Phase2, before, res)
}

// dualFinish removes cost shifts and hands a dual infeasible result to the
// primal simplex for clean-up.
func (s *solver) dualFinish(ctx context.Context) (Status, error) {
	st := s.st
	if s.md.CostsShifted() {
		s.md.ResetCosts()
		st.recompute()
		s.log.Info("cost shifts removed", "iteration", s.iter)
	}
	if worst, j := st.dualInfeasibility(); worst > s.cfg.OptimalityTolerance {
		s.log.Info("primal clean-up", "dual_infeasibility", worst, "variable", j)
		if err := s.usePricing(Primal); err != nil {
			return Running, err
		}
		return s.primal(ctx)
	}
	return Optimal, nil
}
