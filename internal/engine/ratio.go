package engine

import (
	"math"

	"github.com/bartolsthoorn/gosimplex/internal/breakpoint"
	"github.com/bartolsthoorn/gosimplex/internal/model"
)

// Outcome is the result kind of a ratio test.
type Outcome int

const (
	// Blocked means a basic variable leaves.
	Blocked Outcome = iota
	// BoundFlip means the entering variable reaches its opposite bound first.
	BoundFlip
	// Unbounded means nothing limits the step.
	Unbounded
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case Blocked:
		return "Blocked"
	case BoundFlip:
		return "BoundFlip"
	case Unbounded:
		return "Unbounded"
	default:
		return "Unknown"
	}
}

// RatioInput describes one ratio test. Primal tests use Entering,
// Direction, ReducedCost and the pivot column; dual tests use Row, Sign,
// Slope and the pivot row.
type RatioInput struct {
	Phase       Phase
	Entering    int
	Direction   float64
	ReducedCost float64
	Row         int
	Sign        float64
	Slope       float64
	Vector      []float64
	Tau         float64
}

// RatioResult is the pivot chosen by a ratio test. Flips lists nonbasic
// variables the caller must move to their opposite bound before pivoting.
type RatioResult struct {
	Outcome    Outcome
	Entering   int
	Leaving    int
	Row        int
	ToUpper    bool
	PrimalStep float64
	DualStep   float64
	Alpha      float64
	Flips      []int
}

// RatioTest computes step lengths for the current iterate.
type RatioTest interface {
	Run(in *RatioInput) RatioResult
}

// harris is the two-pass selection: pass one takes the smallest expanded
// ratio as the step bound, pass two takes the largest pivot among the
// breakpoints whose actual ratio stays within that bound.
func harris(h *breakpoint.Handler) *breakpoint.BreakPoint {
	h.SelectOrdering(true)
	first, ok := h.Next()
	if !ok {
		return nil
	}
	var best *breakpoint.BreakPoint
	for bp := range h.SecondPass(first.Expanded) {
		if best == nil || math.Abs(bp.Alpha) > math.Abs(best.Alpha) {
			best = bp
		}
	}
	return best
}

// PrimalRatioTest bounds the step of an entering variable. In phase 1 a
// basic variable outside its bounds blocks only when it reaches the bound
// it violates, so the infeasibility measure never grows along the step.
type PrimalRatioTest struct {
	st       *State
	h        *breakpoint.Handler
	toUpper  []bool
	pivotTol float64
	feasTol  float64
}

var _ RatioTest = (*PrimalRatioTest)(nil)

// NewPrimalRatioTest returns a ratio test over st.
func NewPrimalRatioTest(st *State, cfg Config) *PrimalRatioTest {
	return &PrimalRatioTest{
		st:       st,
		h:        breakpoint.New(breakpoint.Ascending),
		toUpper:  make([]bool, st.Rows()),
		pivotTol: cfg.PivotTolerance,
		feasTol:  cfg.FeasibilityTolerance,
	}
}

func (t *PrimalRatioTest) add(i int, alpha, dist, rate, tau float64, upper bool) {
	t.toUpper[i] = upper
	t.h.Add(breakpoint.BreakPoint{
		Index:    t.st.BasicAt(i),
		Row:      i,
		Value:    dist / rate,
		Expanded: (dist + tau) / rate,
		Alpha:    alpha,
	})
}

// Run implements RatioTest.
func (t *PrimalRatioTest) Run(in *RatioInput) RatioResult {
	t.h.Reset()
	for i, a := range in.Vector {
		if math.Abs(a) <= t.pivotTol {
			continue
		}
		delta := -in.Direction * a
		v := t.st.Variable(t.st.BasicAt(i))
		x := t.st.BasicValue(i)
		if in.Phase == Phase1 {
			switch {
			case x < v.Lower-t.feasTol:
				if delta > 0 {
					t.add(i, a, v.Lower-x, delta, in.Tau, false)
				}
				continue
			case x > v.Upper+t.feasTol:
				if delta < 0 {
					t.add(i, a, x-v.Upper, -delta, in.Tau, true)
				}
				continue
			}
		}
		switch {
		case delta < 0 && v.HasLower():
			t.add(i, a, x-v.Lower, -delta, in.Tau, false)
		case delta > 0 && v.HasUpper():
			t.add(i, a, v.Upper-x, delta, in.Tau, true)
		}
	}

	q := in.Entering
	span := t.st.Variable(q).Range()
	res := RatioResult{Entering: q, Leaving: -1, Row: -1}
	bp := harris(t.h)
	if bp == nil {
		if math.IsInf(span, 1) {
			res.Outcome = Unbounded
			return res
		}
		res.Outcome = BoundFlip
		res.PrimalStep = span
		return res
	}
	step := math.Max(bp.Value, 0)
	if span <= step {
		res.Outcome = BoundFlip
		res.PrimalStep = span
		return res
	}
	res.Outcome = Blocked
	res.Row = bp.Row
	res.Leaving = bp.Index
	res.ToUpper = t.toUpper[bp.Row]
	res.PrimalStep = step
	res.Alpha = bp.Alpha
	res.DualStep = in.ReducedCost / bp.Alpha
	return res
}

// DualRatioTest bounds the dual step of a leaving row with the long-step
// bound-flipping rule: boxed breakpoints are passed while the slope, the
// remaining primal infeasibility of the leaving row, stays positive.
type DualRatioTest struct {
	st       *State
	h        *breakpoint.Handler
	rest     *breakpoint.Handler
	pivotTol float64
	feasTol  float64
	flips    []int
}

var _ RatioTest = (*DualRatioTest)(nil)

// NewDualRatioTest returns a ratio test over st.
func NewDualRatioTest(st *State, cfg Config) *DualRatioTest {
	return &DualRatioTest{
		st:       st,
		h:        breakpoint.New(breakpoint.Ascending),
		rest:     breakpoint.New(breakpoint.Ascending),
		pivotTol: cfg.PivotTolerance,
		feasTol:  cfg.FeasibilityTolerance,
	}
}

// Run implements RatioTest. Under the dual step t the reduced costs move as
// d_j + t·Sign·α_rj, where Sign is +1 when the leaving variable goes to its
// lower bound and −1 when it goes to its upper bound.
func (t *DualRatioTest) Run(in *RatioInput) RatioResult {
	t.h.Reset()
	for j, a := range in.Vector {
		if math.Abs(a) <= t.pivotTol {
			continue
		}
		rate := in.Sign * a
		d := t.st.ReducedCost(j)
		var dist float64
		switch t.st.StateOf(j) {
		case AtLower:
			if rate >= 0 {
				continue
			}
			dist = d
		case AtUpper:
			if rate <= 0 {
				continue
			}
			dist = -d
		case NonbasicFree:
			dist = math.Max(-d/rate, 0) * math.Abs(rate)
		default:
			continue
		}
		abs := math.Abs(rate)
		t.h.Add(breakpoint.BreakPoint{
			Index:    j,
			Row:      -1,
			Value:    dist / abs,
			Expanded: (dist + in.Tau) / abs,
			Alpha:    a,
		})
	}

	res := RatioResult{Entering: -1, Leaving: t.st.BasicAt(in.Row), Row: in.Row, ToUpper: in.Sign < 0}
	t.flips = t.flips[:0]
	t.rest.Reset()
	slope := in.Slope
	t.h.SelectOrdering(false)
	passing := true
	for bp, ok := t.h.Next(); ok; bp, ok = t.h.Next() {
		if passing {
			v := t.st.Variable(bp.Index)
			if v.Type == model.Bounded {
				next := slope - math.Abs(bp.Alpha)*v.Range()
				if next > t.feasTol {
					slope = next
					t.flips = append(t.flips, bp.Index)
					continue
				}
			}
			passing = false
		}
		t.rest.Add(*bp)
	}

	bp := harris(t.rest)
	if bp == nil {
		res.Outcome = Unbounded
		res.Flips = t.flips
		return res
	}
	res.Outcome = Blocked
	res.Entering = bp.Index
	res.Alpha = bp.Alpha
	res.DualStep = in.Sign * math.Max(bp.Value, 0)
	res.Flips = t.flips
	return res
}
