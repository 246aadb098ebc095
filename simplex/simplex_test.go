package simplex

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

// lpModel returns
//
//	Min    f  =  x_0 +  x_1 + 3
//	s.t.                x_1 <= 7
//	       5 <=  x_0 + 2x_1 <= 15
//	       6 <= 3x_0 + 2x_1
//	0 <= x_0 <= 4; 1 <= x_1
func lpModel() Model {
	return Model{
		Offset:   3.0,
		ColCosts: []float64{1.0, 1.0},
		ColLower: []float64{0.0, 1.0},
		ColUpper: []float64{4.0, 1e30},
		ConstMatrix: []Nonzero{
			{0, 1, 1.0},
			{1, 0, 1.0},
			{1, 1, 2.0},
			{2, 0, 3.0},
			{2, 1, 2.0},
		},
		RowLower: []float64{-1e30, 5.0, 6.0},
		RowUpper: []float64{7.0, 15.0, 1e30},
	}
}

// TestLP tests a basic linear programming problem.
func TestLP(t *testing.T) {
	model := lpModel()

	sol, err := model.Solve(WithOutput(false))
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	if !sol.IsOptimal() {
		t.Fatalf("Expected optimal, got %s", sol.Status)
	}

	if !almostEqual(sol.ColValues[0], 0.5, 0.01) {
		t.Errorf("x0 = %f, expected 0.5", sol.ColValues[0])
	}
	if !almostEqual(sol.ColValues[1], 2.25, 0.01) {
		t.Errorf("x1 = %f, expected 2.25", sol.ColValues[1])
	}
	if !almostEqual(sol.Objective, 5.75, 0.01) {
		t.Errorf("Objective = %f, expected 5.75", sol.Objective)
	}
	want := []float64{2.25, 5.0, 6.0}
	for i, v := range want {
		if !almostEqual(sol.RowValues[i], v, 1e-6) {
			t.Errorf("row %d = %f, expected %f", i, sol.RowValues[i], v)
		}
	}
}

// TestLPMaximize tests a maximization LP problem.
func TestLPMaximize(t *testing.T) {
	model := lpModel()
	model.Maximize = true

	sol, err := model.Solve(WithOutput(false))
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	if !sol.IsOptimal() {
		t.Fatalf("Expected optimal, got %s", sol.Status)
	}

	if !almostEqual(sol.ColValues[0], 4.0, 0.01) {
		t.Errorf("x0 = %f, expected 4.0", sol.ColValues[0])
	}
	if !almostEqual(sol.ColValues[1], 5.5, 0.01) {
		t.Errorf("x1 = %f, expected 5.5", sol.ColValues[1])
	}
	if !almostEqual(sol.Objective, 12.5, 0.01) {
		t.Errorf("Objective = %f, expected 12.5", sol.Objective)
	}
}

func TestAlgorithmsAndPricing(t *testing.T) {
	for _, alg := range []string{"primal", "dual"} {
		for _, pricing := range []string{"dantzig", "devex", "steepest-edge", "parallel"} {
			t.Run(alg+"/"+pricing, func(t *testing.T) {
				model := lpModel()
				sol, err := model.Solve(WithAlgorithm(alg), WithPricing(pricing), WithSeed(7))
				if err != nil {
					t.Fatalf("Solve failed: %v", err)
				}
				if !sol.IsOptimal() {
					t.Fatalf("Expected optimal, got %s", sol.Status)
				}
				if !almostEqual(sol.Objective, 5.75, 1e-6) {
					t.Errorf("Objective = %f, expected 5.75", sol.Objective)
				}
			})
		}
	}
}

func TestThreadsRacePricing(t *testing.T) {
	model := lpModel()
	sol, err := model.Solve(WithThreads(4))
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !sol.IsOptimal() || !almostEqual(sol.Objective, 5.75, 1e-6) {
		t.Errorf("got %s with objective %f", sol.Status, sol.Objective)
	}
}

func TestAddDenseRow(t *testing.T) {
	model := Model{
		Offset:   3.0,
		ColCosts: []float64{1.0, 1.0},
		ColLower: []float64{0.0, 1.0},
		ColUpper: []float64{4.0, 1.0e30},
	}
	model.AddDenseRow(-1.0e30, []float64{0.0, 1.0}, 7.0)
	model.AddDenseRow(5.0, []float64{1.0, 2.0}, 15.0)
	model.AddDenseRow(6.0, []float64{3.0, 2.0}, 1.0e30)

	if model.NumVars() != 2 || model.NumConstraints() != 3 {
		t.Fatalf("dimensions %dx%d, expected 3x2", model.NumConstraints(), model.NumVars())
	}

	sol, err := model.Solve(WithOutput(false))
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	if !sol.IsOptimal() {
		t.Fatalf("Expected optimal, got %s", sol.Status)
	}

	if !almostEqual(sol.ColValues[0], 0.5, 0.01) {
		t.Errorf("x0 = %f, expected 0.5", sol.ColValues[0])
	}
	if !almostEqual(sol.ColValues[1], 2.25, 0.01) {
		t.Errorf("x1 = %f, expected 2.25", sol.ColValues[1])
	}
}

func TestRowHelpers(t *testing.T) {
	// Min -x - 2y  s.t.  x + y = 4, x <= 3, 2 <= y <= 3
	model := Model{
		ColCosts: []float64{-1.0, -2.0},
		ColLower: []float64{0.0, 0.0},
	}
	model.AddEqRow([]float64{1.0, 1.0}, 4.0)
	model.AddLeRow([]float64{1.0, 0.0}, 3.0)
	model.AddGeRow([]float64{0.0, 1.0}, 2.0)
	model.AddSparseRow(-1e30, []int{1}, []float64{1.0}, 3.0)

	sol, err := model.Solve()
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !sol.IsOptimal() {
		t.Fatalf("Expected optimal, got %s", sol.Status)
	}
	if !almostEqual(sol.Value(0), 1.0, 1e-6) || !almostEqual(sol.Value(1), 3.0, 1e-6) {
		t.Errorf("x = (%f, %f), expected (1, 3)", sol.Value(0), sol.Value(1))
	}
	if sol.Value(5) != 0 {
		t.Errorf("Value out of range = %f, expected 0", sol.Value(5))
	}
}

// TestLowLevelAPI tests the low-level solver API.
func TestLowLevelAPI(t *testing.T) {
	solver, err := NewSolver()
	if err != nil {
		t.Fatalf("NewSolver failed: %v", err)
	}
	defer solver.Close()

	if err := solver.SetBoolOption("output_flag", false); err != nil {
		t.Fatalf("SetBoolOption failed: %v", err)
	}

	// Add variables: 0 <= x0 <= 10, 0 <= x1 <= 10
	if err := solver.AddVars([]float64{0.0, 0.0}, []float64{10.0, 10.0}); err != nil {
		t.Fatalf("AddVars failed: %v", err)
	}

	// Set objective: minimize x0 + x1
	if err := solver.SetColCosts([]float64{1.0, 1.0}); err != nil {
		t.Fatalf("SetColCosts failed: %v", err)
	}

	// Add constraint: 5 <= x0 + 2*x1 <= 15
	if err := solver.AddRow(5.0, 15.0, []int{0, 1}, []float64{1.0, 2.0}); err != nil {
		t.Fatalf("AddRow failed: %v", err)
	}

	if solver.NumCol() != 2 || solver.NumRow() != 1 || solver.NumNonzero() != 2 {
		t.Fatalf("got %d cols, %d rows, %d nonzeros", solver.NumCol(), solver.NumRow(), solver.NumNonzero())
	}

	sol, err := solver.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !sol.IsOptimal() {
		t.Fatalf("Expected optimal, got %s", sol.Status)
	}

	// Minimum: x0 + 2*x1 = 5 (binding), minimize x0 + x1
	// Substituting x0 = 5 - 2*x1, minimize 5 - x1
	// Maximum x1 = 2.5 (from x0 >= 0), so x0 = 0, x1 = 2.5, objective = 2.5
	if !almostEqual(sol.ColValues[0], 0.0, 0.01) {
		t.Errorf("x0 = %f, expected 0.0", sol.ColValues[0])
	}
	if !almostEqual(sol.ColValues[1], 2.5, 0.01) {
		t.Errorf("x1 = %f, expected 2.5", sol.ColValues[1])
	}
	if !almostEqual(sol.Objective, 2.5, 0.01) {
		t.Errorf("Objective = %f, expected 2.5", sol.Objective)
	}

	// The row price is 1/2 and x0 prices out at 1 - 1/2.
	if !almostEqual(sol.RowDuals[0], 0.5, 1e-6) {
		t.Errorf("row dual = %f, expected 0.5", sol.RowDuals[0])
	}
	if !almostEqual(sol.ColDuals[0], 0.5, 1e-6) || !almostEqual(sol.ColDuals[1], 0, 1e-6) {
		t.Errorf("column duals = %v, expected [0.5 0]", sol.ColDuals)
	}
	if sol.ColBasis[0] != BasisStatusLower || sol.ColBasis[1] != BasisStatusBasic {
		t.Errorf("column basis = %v", sol.ColBasis)
	}
	if sol.RowBasis[0] != BasisStatusLower {
		t.Errorf("row basis = %s, expected Lower", sol.RowBasis[0])
	}

	iters, err := solver.GetIntInfo("simplex_iteration_count")
	if err != nil || iters != sol.Iterations {
		t.Errorf("simplex_iteration_count = %d (%v), expected %d", iters, err, sol.Iterations)
	}
	obj, err := solver.GetFloatInfo("objective_function_value")
	if err != nil || !almostEqual(obj, 2.5, 1e-6) {
		t.Errorf("objective_function_value = %f (%v)", obj, err)
	}
	status, err := solver.GetIntInfo("model_status")
	if err != nil || ModelStatus(status) != ModelStatusOptimal {
		t.Errorf("model_status = %d (%v)", status, err)
	}
	if _, err := solver.GetFloatInfo("mip_gap"); err == nil {
		t.Error("expected error for unknown info")
	}
}

func TestPassModel(t *testing.T) {
	solver, _ := NewSolver()
	defer solver.Close()

	// Max 3x + 2y  s.t.  x + y <= 4, x + 3y <= 7, x <= 3
	err := solver.PassModel(
		2, 3,
		[]float64{3, 2}, []float64{0, 0}, []float64{Inf(), Inf()},
		[]float64{NegInf(), NegInf(), NegInf()}, []float64{4, 7, 3},
		[]int{0, 2, 4}, []int{0, 1, 0, 1, 0}, []float64{1, 1, 1, 3, 1},
		true, 0,
	)
	if err != nil {
		t.Fatalf("PassModel failed: %v", err)
	}
	sol, err := solver.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !sol.IsOptimal() || !almostEqual(sol.Objective, 11, 1e-6) {
		t.Fatalf("got %s with objective %f, expected 11", sol.Status, sol.Objective)
	}
	if !almostEqual(sol.Value(0), 3, 1e-6) || !almostEqual(sol.Value(1), 1, 1e-6) {
		t.Errorf("x = %v, expected [3 1]", sol.ColValues)
	}
	// Maximization duals are reported for the original sense.
	if !almostEqual(sol.RowDuals[0], 2, 1e-6) || !almostEqual(sol.RowDuals[2], 1, 1e-6) {
		t.Errorf("row duals = %v, expected [2 0 1]", sol.RowDuals)
	}

	if err := solver.PassModel(2, 1, []float64{1}, nil, nil, nil, nil, nil, nil, nil, false, 0); err == nil {
		t.Error("expected error for short column data")
	}
}

func TestEmptyModel(t *testing.T) {
	model := Model{Offset: 2}

	sol, err := model.Solve(WithOutput(false))
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	if !sol.IsOptimal() {
		t.Fatalf("Expected optimal for empty model, got %s", sol.Status)
	}
	if sol.Objective != 2 {
		t.Errorf("Objective = %f, expected the offset", sol.Objective)
	}
}

func TestInfeasible(t *testing.T) {
	model := Model{
		ColCosts: []float64{1.0},
		ColLower: []float64{0.0},
		ColUpper: []float64{10.0},
	}
	// x >= 5
	model.AddDenseRow(5.0, []float64{1.0}, math.Inf(1))
	// x <= 3
	model.AddDenseRow(math.Inf(-1), []float64{1.0}, 3.0)

	for _, alg := range []string{"primal", "dual"} {
		sol, err := model.Solve(WithAlgorithm(alg))
		if err != nil {
			t.Fatalf("Solve failed: %v", err)
		}
		if !sol.IsInfeasible() {
			t.Errorf("%s: Expected infeasible, got %s", alg, sol.Status)
		}
		if sol.HasSolution() {
			t.Errorf("%s: infeasible result reports a solution", alg)
		}
	}
}

func TestUnbounded(t *testing.T) {
	// Min -x  s.t.  x - y <= 1, x, y >= 0
	model := Model{
		ColCosts: []float64{-1.0, 0.0},
		ColLower: []float64{0.0, 0.0},
	}
	model.AddLeRow([]float64{1.0, -1.0}, 1.0)

	sol, err := model.Solve()
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !sol.IsUnbounded() {
		t.Errorf("Expected unbounded, got %s", sol.Status)
	}
}

func TestIterationLimit(t *testing.T) {
	model := lpModel()
	sol, err := model.Solve(WithIterationLimit(0))
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if sol.Status != ModelStatusIterationLimit || !sol.HasSolution() {
		t.Errorf("got %s, expected IterationLimit", sol.Status)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := lpModel()
	_, err := model.SolveContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, expected context.Canceled", err)
	}
	var se *Error
	if !errors.As(err, &se) || se.Op != "Run" {
		t.Errorf("err = %#v, expected a Run error", err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), -1)
	defer cancel()
	sol, err := model.SolveContext(ctx)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !sol.IsTimeLimit() {
		t.Errorf("got %s, expected TimeLimit", sol.Status)
	}
}

func TestWarmStart(t *testing.T) {
	model := lpModel()
	model.ColNames = []string{"x", "y"}
	model.RowNames = []string{"cap", "mix", "floor"}

	first, err := model.Solve()
	if err != nil || !first.IsOptimal() {
		t.Fatalf("Solve failed: %v", err)
	}
	b := first.Basis()
	if len(b.Head) != 3 || len(b.Status) != 5 {
		t.Fatalf("basis has %d head entries and %d statuses", len(b.Head), len(b.Status))
	}
	if b.Status["x"] != first.ColBasis[0] || b.Status["floor"] != first.RowBasis[2] {
		t.Errorf("basis statuses disagree with the solution")
	}

	second, err := model.Solve(WithStartingBasis(b))
	if err != nil {
		t.Fatalf("warm Solve failed: %v", err)
	}
	if !second.IsOptimal() || !almostEqual(second.Objective, first.Objective, 1e-9) {
		t.Fatalf("warm start got %s with objective %f", second.Status, second.Objective)
	}
	if second.Iterations != 0 {
		t.Errorf("warm start took %d iterations, expected 0", second.Iterations)
	}

	reversed := &SavedBasis{Head: make([]string, len(b.Head)), Status: b.Status}
	for i, name := range b.Head {
		reversed.Head[len(b.Head)-1-i] = name
	}
	third, err := model.Solve(WithStartingBasis(reversed))
	if err != nil {
		t.Fatalf("Solve with reordered head failed: %v", err)
	}
	if !third.IsOptimal() || third.Iterations != 0 {
		t.Errorf("reordered head got %s after %d iterations", third.Status, third.Iterations)
	}

	shortHead := &SavedBasis{Head: b.Head[:2], Status: b.Status}
	if _, err := model.Solve(WithStartingBasis(shortHead)); err == nil {
		t.Error("expected error for a head shorter than the row count")
	}
	var nonbasic string
	for name, st := range b.Status {
		if st != BasisStatusBasic {
			nonbasic = name
			break
		}
	}
	wrongHead := &SavedBasis{Head: []string{b.Head[0], b.Head[1], nonbasic}, Status: b.Status}
	if _, err := model.Solve(WithStartingBasis(wrongHead)); err == nil {
		t.Error("expected error for a head naming a nonbasic variable")
	}

	bad := &SavedBasis{Status: map[string]BasisStatus{"z": BasisStatusBasic}}
	if _, err := model.Solve(WithStartingBasis(bad)); err == nil {
		t.Error("expected error for a basis naming an unknown variable")
	}
	short := &SavedBasis{Status: map[string]BasisStatus{"x": BasisStatusBasic}}
	if _, err := model.Solve(WithStartingBasis(short)); err == nil {
		t.Error("expected error for a basis with too few basic variables")
	}
}

func TestOptions(t *testing.T) {
	solver, _ := NewSolver()
	defer solver.Close()

	if err := solver.SetFloatOption("primal_feasibility_tolerance", 1e-8); err != nil {
		t.Fatalf("SetFloatOption failed: %v", err)
	}
	if v, _ := solver.GetFloatOption("primal_feasibility_tolerance"); v != 1e-8 {
		t.Errorf("primal_feasibility_tolerance = %g", v)
	}
	if err := solver.SetStringOption("pricing_race", "devex,dantzig"); err != nil {
		t.Fatalf("SetStringOption failed: %v", err)
	}
	if v, _ := solver.GetStringOption("pricing_race"); v != "devex,dantzig" {
		t.Errorf("pricing_race = %q", v)
	}
	if err := solver.SetIntOption("invert_frequency", 20); err != nil {
		t.Fatalf("SetIntOption failed: %v", err)
	}
	if v, _ := solver.GetIntOption("invert_frequency"); v != 20 {
		t.Errorf("invert_frequency = %d", v)
	}
	if err := solver.SetFloatOption("time_limit", 2.5); err != nil {
		t.Fatalf("SetFloatOption failed: %v", err)
	}
	if v, _ := solver.GetFloatOption("time_limit"); v != 2.5 {
		t.Errorf("time_limit = %g", v)
	}

	failures := []struct {
		name string
		set  func() error
	}{
		{"unknown", func() error { return solver.SetBoolOption("presolve", true) }},
		{"wrong kind", func() error { return solver.SetIntOption("pricing", 1) }},
		{"negative tolerance", func() error { return solver.SetFloatOption("pivot_tolerance", -1) }},
		{"bad pricing", func() error { return solver.SetStringOption("pricing", "partial") }},
		{"bad race", func() error { return solver.SetStringOption("pricing_race", "devex") }},
		{"bad algorithm", func() error { return solver.SetStringOption("algorithm", "barrier") }},
		{"zero threads", func() error { return solver.SetIntOption("threads", 0) }},
	}
	for _, f := range failures {
		err := f.set()
		var se *Error
		if !errors.As(err, &se) {
			t.Errorf("%s: err = %v, expected *Error", f.name, err)
		}
	}

	if err := solver.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if v, _ := solver.GetIntOption("invert_frequency"); v == 20 {
		t.Error("Clear kept invert_frequency")
	}

	model := lpModel()
	if _, err := model.Solve(WithStringOption("pricing", "newton")); err == nil {
		t.Error("expected error for an unknown pricing strategy")
	}
	sol, err := model.Solve(WithBoolOption("perturbation", false), WithFloatOption("pivot_tolerance", 1e-9))
	if err != nil || !sol.IsOptimal() {
		t.Errorf("Solve with options failed: %v", err)
	}
}

func TestLoggerAndObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	var seen int

	model := lpModel()
	sol, err := model.Solve(
		WithLogger(logger),
		WithObserver(func(it Iteration) { seen++ }),
	)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !strings.Contains(buf.String(), "solve finished") {
		t.Errorf("log output missing the finish record:\n%s", buf.String())
	}
	if seen == 0 || sol.Iterations == 0 {
		t.Errorf("observer saw %d records for %d iterations", seen, sol.Iterations)
	}
}

func TestInvalidModel(t *testing.T) {
	model := Model{
		ColCosts: []float64{1, 1},
		ColLower: []float64{0},
	}
	if _, err := model.Solve(); err == nil {
		t.Error("expected error for inconsistent ColLower length")
	}

	model = Model{ColCosts: []float64{1}, ColLower: []float64{2}, ColUpper: []float64{1}}
	if _, err := model.Solve(); err == nil {
		t.Error("expected error for crossed bounds")
	}

	model = Model{ConstMatrix: []Nonzero{{Row: -1, Col: 0, Val: 1}}}
	if _, err := model.Solve(); err == nil {
		t.Error("expected error for a negative row index")
	}
}

func TestNonzerosToCSR(t *testing.T) {
	nz := []Nonzero{{2, 1, 4}, {0, 0, 1}, {2, 0, 3}, {0, 0, 5}}
	start, index, value, err := nonzerosToCSR(nz, 4)
	if err != nil {
		t.Fatalf("nonzerosToCSR failed: %v", err)
	}
	wantStart := []int{0, 1, 1, 3}
	wantIndex := []int{0, 0, 1}
	wantValue := []float64{5, 3, 4}
	for i := range wantStart {
		if start[i] != wantStart[i] {
			t.Fatalf("start = %v, expected %v", start, wantStart)
		}
	}
	for i := range wantIndex {
		if index[i] != wantIndex[i] || value[i] != wantValue[i] {
			t.Fatalf("index = %v, value = %v", index, value)
		}
	}
}

func TestSolverInfinity(t *testing.T) {
	solver, err := NewSolver()
	if err != nil {
		t.Fatalf("NewSolver failed: %v", err)
	}
	defer solver.Close()

	inf := solver.Infinity()
	if !math.IsInf(inf, 1) {
		t.Errorf("Invalid infinity value: %f", inf)
	}
	if got := normalizeBounds([]float64{-1e30, 1e30, 5}); !math.IsInf(got[0], -1) || !math.IsInf(got[1], 1) || got[2] != 5 {
		t.Errorf("normalizeBounds = %v", got)
	}
}

// Benchmarks

func BenchmarkLPSolve(b *testing.B) {
	model := Model{
		ColCosts: []float64{1.0, 1.0},
		ColLower: []float64{0.0, 0.0},
		ColUpper: []float64{10.0, 10.0},
	}
	model.AddDenseRow(1.0, []float64{1.0, 1.0}, 5.0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := model.Solve(WithOutput(false))
		if err != nil {
			b.Fatal(err)
		}
	}
}
