package engine

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/bartolsthoorn/gosimplex/internal/basis"
	"github.com/bartolsthoorn/gosimplex/internal/model"
)

var (
	inf    = math.Inf(1)
	negInf = math.Inf(-1)
)

func mustModel(t *testing.T, spec model.Spec) *model.Model {
	t.Helper()
	md, err := model.New(spec)
	require.NoError(t, err)
	return md
}

// twoVariables is min x + y s.t. x + y >= 2, x <= 5, y <= 5, x, y >= 0.
func twoVariables(t *testing.T) *model.Model {
	return mustModel(t, model.Spec{
		NumCols:  2,
		NumRows:  3,
		Cost:     []float64{1, 1},
		RowLower: []float64{2, negInf, negInf},
		RowUpper: []float64{inf, 5, 5},
		Entries: []model.Entry{
			{Row: 0, Col: 0, Val: 1}, {Row: 0, Col: 1, Val: 1},
			{Row: 1, Col: 0, Val: 1},
			{Row: 2, Col: 1, Val: 1},
		},
	})
}

// conflicting is x >= 5 and x <= 1.
func conflicting(t *testing.T) *model.Model {
	return mustModel(t, model.Spec{
		NumCols:  1,
		NumRows:  2,
		Cost:     []float64{1},
		RowLower: []float64{5, negInf},
		RowUpper: []float64{inf, 1},
		Entries:  []model.Entry{{Row: 0, Col: 0, Val: 1}, {Row: 1, Col: 0, Val: 1}},
	})
}

// ray is max x with x >= 0 and no rows.
func ray(t *testing.T) *model.Model {
	return mustModel(t, model.Spec{
		NumCols:  1,
		Cost:     []float64{1},
		Maximize: true,
	})
}

func testConfig(alg Algorithm, kind PricingKind) Config {
	cfg := DefaultConfig()
	cfg.Algorithm = alg
	cfg.Pricing = kind
	return cfg
}

var (
	algorithms = []Algorithm{Primal, Dual}
	kinds      = []PricingKind{Dantzig, Devex, SteepestEdge, Parallel}
)

func TestTwoVariablesOptimal(t *testing.T) {
	for _, alg := range algorithms {
		for _, kind := range kinds {
			t.Run(alg.String()+"/"+kind.String(), func(t *testing.T) {
				md := twoVariables(t)
				res, err := Solve(context.Background(), md, testConfig(alg, kind), nil)
				require.NoError(t, err)
				require.Equal(t, Optimal, res.Status)
				assert.InDelta(t, 2.0, res.Objective, 1e-9)
				assert.InDelta(t, 2.0, res.Values[0]+res.Values[1], 1e-9)
				assert.Len(t, res.Head, 3)
				assert.False(t, md.CostsShifted())
				assert.False(t, md.BoundsPerturbed())
			})
		}
	}
}

func TestConflictingRowsInfeasible(t *testing.T) {
	for _, alg := range algorithms {
		for _, kind := range kinds {
			t.Run(alg.String()+"/"+kind.String(), func(t *testing.T) {
				res, err := Solve(context.Background(), conflicting(t), testConfig(alg, kind), nil)
				require.NoError(t, err)
				assert.Equal(t, PrimalInfeasible, res.Status)
			})
		}
	}
}

func TestRayDualInfeasible(t *testing.T) {
	for _, alg := range algorithms {
		for _, kind := range kinds {
			t.Run(alg.String()+"/"+kind.String(), func(t *testing.T) {
				cfg := testConfig(alg, kind)
				cfg.IterationLimit = 50
				res, err := Solve(context.Background(), ray(t), cfg, nil)
				require.NoError(t, err)
				assert.Equal(t, DualInfeasible, res.Status)
				assert.Less(t, res.Iterations, 50)
			})
		}
	}
}

// decoupled is min Σx_i s.t. x_i >= i for i = 1..n, each row on its own.
func decoupled(t *testing.T, n int) *model.Model {
	spec := model.Spec{NumCols: n, NumRows: n, Cost: make([]float64, n), RowLower: make([]float64, n)}
	for i := range n {
		spec.Cost[i] = 1
		spec.RowLower[i] = float64(i + 1)
		spec.Entries = append(spec.Entries, model.Entry{Row: i, Col: i, Val: 1})
	}
	return mustModel(t, spec)
}

// coupled is min x1 + 2x2 + 3x3 over covering rows.
func coupled(t *testing.T) *model.Model {
	return mustModel(t, model.Spec{
		NumCols:  3,
		NumRows:  4,
		Cost:     []float64{1, 2, 3},
		RowLower: []float64{4, 6, 5, 9},
		Entries: []model.Entry{
			{Row: 0, Col: 0, Val: 1}, {Row: 0, Col: 1, Val: 1},
			{Row: 1, Col: 1, Val: 1}, {Row: 1, Col: 2, Val: 1},
			{Row: 2, Col: 0, Val: 1}, {Row: 2, Col: 2, Val: 1},
			{Row: 3, Col: 0, Val: 1}, {Row: 3, Col: 1, Val: 1}, {Row: 3, Col: 2, Val: 1},
		},
	})
}

func phase1Measures(t *testing.T, md *model.Model, kind PricingKind) ([]float64, *Result) {
	t.Helper()
	var measures []float64
	cfg := testConfig(Primal, kind)
	cfg.Observer = func(it Iteration) {
		if it.Phase == Phase1 {
			measures = append(measures, it.Infeasibility)
		}
	}
	res, err := Solve(context.Background(), md, cfg, nil)
	require.NoError(t, err)
	return measures, res
}

func TestPhase1MeasureNonIncreasing(t *testing.T) {
	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			measures, res := phase1Measures(t, decoupled(t, 6), kind)
			require.Equal(t, Optimal, res.Status)
			assert.InDelta(t, 21.0, res.Objective, 1e-9)
			require.GreaterOrEqual(t, len(measures), 5)
			assert.LessOrEqual(t, measures[0], 21.0)
			for k := 1; k < len(measures); k++ {
				assert.LessOrEqual(t, measures[k], measures[k-1]+1e-9, "iteration %d", k)
			}

			measures, res = phase1Measures(t, coupled(t), kind)
			require.Equal(t, Optimal, res.Status)
			for k := 1; k < len(measures); k++ {
				assert.LessOrEqual(t, measures[k], measures[k-1]+1e-9, "coupled iteration %d", k)
			}
		})
	}
}

func TestCoupledAlgorithmsAgree(t *testing.T) {
	var objectives []float64
	for _, alg := range algorithms {
		for _, kind := range kinds {
			res, err := Solve(context.Background(), coupled(t), testConfig(alg, kind), nil)
			require.NoError(t, err)
			require.Equal(t, Optimal, res.Status, "%s/%s", alg, kind)
			objectives = append(objectives, res.Objective)
		}
	}
	for _, obj := range objectives[1:] {
		assert.InDelta(t, objectives[0], obj, 1e-7)
	}
}

func TestMaximizeWithOffset(t *testing.T) {
	// max 3x + 2y + 1 s.t. x + y <= 4, x + 3y <= 6, x <= 3.
	spec := model.Spec{
		NumCols:  2,
		NumRows:  2,
		Cost:     []float64{3, 2},
		ColUpper: []float64{3, inf},
		RowLower: []float64{negInf, negInf},
		RowUpper: []float64{4, 6},
		Entries: []model.Entry{
			{Row: 0, Col: 0, Val: 1}, {Row: 0, Col: 1, Val: 1},
			{Row: 1, Col: 0, Val: 1}, {Row: 1, Col: 1, Val: 3},
		},
		Maximize: true,
		Offset:   1,
	}
	for _, alg := range algorithms {
		for _, kind := range kinds {
			res, err := Solve(context.Background(), mustModel(t, spec), testConfig(alg, kind), nil)
			require.NoError(t, err)
			require.Equal(t, Optimal, res.Status, "%s/%s", alg, kind)
			assert.InDelta(t, 12.0, res.Objective, 1e-9)
			assert.InDelta(t, 3.0, res.Values[0], 1e-9)
			assert.InDelta(t, 1.0, res.Values[1], 1e-9)
		}
	}
}

// boxedCover is min x1 + 2x2 + 3x3 s.t. x1 + x2 + x3 >= 2.5, 0 <= x <= 1.
func boxedCover(t *testing.T) *model.Model {
	return mustModel(t, model.Spec{
		NumCols:  3,
		NumRows:  1,
		Cost:     []float64{1, 2, 3},
		ColUpper: []float64{1, 1, 1},
		RowLower: []float64{2.5},
		Entries: []model.Entry{
			{Row: 0, Col: 0, Val: 1}, {Row: 0, Col: 1, Val: 1}, {Row: 0, Col: 2, Val: 1},
		},
	})
}

func TestDualBoundFlipping(t *testing.T) {
	var flips int
	cfg := testConfig(Dual, Dantzig)
	cfg.Observer = func(it Iteration) { flips += it.Flips }
	res, err := Solve(context.Background(), boxedCover(t), cfg, nil)
	require.NoError(t, err)
	require.Equal(t, Optimal, res.Status)
	assert.InDelta(t, 4.5, res.Objective, 1e-9)
	assert.InDeltaSlice(t, []float64{1, 1, 0.5}, res.Values[:3], 1e-9)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, 2, flips)
	assert.Equal(t, AtUpper, res.States[0])
	assert.Equal(t, AtUpper, res.States[1])
	assert.Equal(t, Basic, res.States[2])

	res, err = Solve(context.Background(), boxedCover(t), testConfig(Primal, Devex), nil)
	require.NoError(t, err)
	require.Equal(t, Optimal, res.Status)
	assert.InDelta(t, 4.5, res.Objective, 1e-9)
}

func TestPerturbationIsRemoved(t *testing.T) {
	// max x + y s.t. x + y <= 2, x - y <= 0: the slack basis is degenerate.
	spec := model.Spec{
		NumCols:  2,
		NumRows:  2,
		Cost:     []float64{1, 1},
		RowLower: []float64{negInf, negInf},
		RowUpper: []float64{2, 0},
		Entries: []model.Entry{
			{Row: 0, Col: 0, Val: 1}, {Row: 0, Col: 1, Val: 1},
			{Row: 1, Col: 0, Val: 1}, {Row: 1, Col: 1, Val: -1},
		},
		Maximize: true,
	}
	for _, alg := range algorithms {
		md := mustModel(t, spec)
		cfg := testConfig(alg, Dantzig)
		cfg.DegenerateLimit = 1
		res, err := Solve(context.Background(), md, cfg, nil)
		require.NoError(t, err)
		require.Equal(t, Optimal, res.Status, alg.String())
		assert.InDelta(t, 2.0, res.Objective, 1e-6)
		assert.False(t, md.BoundsPerturbed())
		assert.False(t, md.CostsShifted())
	}
}

func TestLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IterationLimit = 0
	res, err := Solve(context.Background(), twoVariables(t), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, IterationLimit, res.Status)
	assert.Zero(t, res.Iterations)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	res, err = Solve(ctx, twoVariables(t), DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, TimeLimit, res.Status)

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = Solve(ctx, twoVariables(t), DefaultConfig(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStartingBasis(t *testing.T) {
	first, err := Solve(context.Background(), twoVariables(t), DefaultConfig(), nil)
	require.NoError(t, err)
	require.Equal(t, Optimal, first.Status)

	warm, err := Solve(context.Background(), twoVariables(t), DefaultConfig(),
		&Start{States: first.States, Head: first.Head})
	require.NoError(t, err)
	require.Equal(t, Optimal, warm.Status)
	assert.Zero(t, warm.Iterations)
	assert.InDelta(t, first.Objective, warm.Objective, 1e-12)

	// x, y0 and y1 leave row 2 empty.
	singular := []VarState{Basic, AtLower, Basic, Basic, AtLower}
	res, err := Solve(context.Background(), twoVariables(t), DefaultConfig(), &Start{States: singular})
	require.NoError(t, err)
	assert.Equal(t, Optimal, res.Status)
	assert.InDelta(t, 2.0, res.Objective, 1e-9)

	_, err = Solve(context.Background(), twoVariables(t), DefaultConfig(), &Start{States: []VarState{Basic}})
	assert.Error(t, err)
}

func TestLoadKeepsHeadOrder(t *testing.T) {
	md := twoVariables(t)
	st := newState(md, basis.NewProductForm(md, basis.DefaultOptions()))
	states := []VarState{Basic, Basic, AtLower, Basic, AtLower}

	require.NoError(t, st.load(states, []int{3, 1, 0}))
	assert.Equal(t, []int{3, 1, 0}, st.head)
	for pos, j := range st.head {
		assert.Equal(t, Basic, st.StateOf(j))
		assert.Equal(t, pos, st.vars.Attached(j))
	}

	require.NoError(t, st.load(states, nil))
	assert.Equal(t, []int{0, 1, 3}, st.head)

	assert.Error(t, st.load(states, []int{3, 1}))
	assert.Error(t, st.load(states, []int{3, 1, 2}))
	assert.Error(t, st.load(states, []int{3, 3, 0}))
}

func TestInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PivotTolerance = 0
	_, err := Solve(context.Background(), twoVariables(t), cfg, nil)
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "pivot_tolerance", ce.Option)
}

func TestFrequentReinversion(t *testing.T) {
	cfg := testConfig(Primal, SteepestEdge)
	cfg.InvertFrequency = 1
	res, err := Solve(context.Background(), coupled(t), cfg, nil)
	require.NoError(t, err)
	require.Equal(t, Optimal, res.Status)
	require.Positive(t, res.Iterations)
	assert.Positive(t, res.Reinversions)

	ref, err := Solve(context.Background(), coupled(t), DefaultConfig(), nil)
	require.NoError(t, err)
	assert.InDelta(t, ref.Objective, res.Objective, 1e-9)
}

// randomStandardForm builds min cᵀx s.t. Ax = b, x >= 0 with b = A·x0 for a
// positive x0 and c >= 0, so the problem is feasible and bounded. Every
// column gets at least one nonzero.
func randomStandardForm(rng *rand.Rand, m, n int) (c []float64, a *mat.Dense, b []float64) {
	a = mat.NewDense(m, n, nil)
	for i := range m {
		for j := range n {
			if rng.Float64() < 0.6 {
				a.Set(i, j, math.Round((rng.Float64()*10-5)*4)/4)
			}
		}
		a.Set(i, i, a.At(i, i)+6)
	}
	for j := range n {
		empty := true
		for i := range m {
			if a.At(i, j) != 0 {
				empty = false
				break
			}
		}
		if empty {
			a.Set(rng.IntN(m), j, 1+math.Round(rng.Float64()*8)/4)
		}
	}
	x0 := make([]float64, n)
	for j := range x0 {
		x0[j] = 0.5 + rng.Float64()
	}
	bv := mat.NewVecDense(m, nil)
	bv.MulVec(a, mat.NewVecDense(n, x0))
	b = bv.RawVector().Data
	c = make([]float64, n)
	for j := range c {
		c[j] = math.Round(rng.Float64()*20) / 4
	}
	return c, a, b
}

func TestAgainstGonumSimplex(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	checked := 0
	for trial := range 20 {
		m, n := 4, 9
		c, a, b := randomStandardForm(rng, m, n)
		want, _, err := lp.Simplex(c, a, b, 1e-10, nil)
		if err != nil {
			t.Logf("trial %d: reference solver: %v", trial, err)
			continue
		}
		checked++

		spec := model.Spec{NumCols: n, NumRows: m, Cost: c, RowLower: b, RowUpper: b}
		for i := range m {
			for j := range n {
				if v := a.At(i, j); v != 0 {
					spec.Entries = append(spec.Entries, model.Entry{Row: i, Col: j, Val: v})
				}
			}
		}
		for _, alg := range algorithms {
			for _, kind := range []PricingKind{Devex, SteepestEdge, Parallel} {
				res, err := Solve(context.Background(), mustModel(t, spec), testConfig(alg, kind), nil)
				require.NoError(t, err)
				require.Equal(t, Optimal, res.Status, "trial %d %s/%s", trial, alg, kind)
				assert.InDelta(t, want, res.Objective, 1e-6, "trial %d %s/%s", trial, alg, kind)
				for j := range n {
					assert.GreaterOrEqual(t, res.Values[j], -1e-7)
				}
			}
		}
	}
	require.GreaterOrEqual(t, checked, 10)
}
