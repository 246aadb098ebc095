package simplex

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/lmittmann/tint"

	"github.com/bartolsthoorn/gosimplex/internal/engine"
	"github.com/bartolsthoorn/gosimplex/internal/model"
)

// ----------------------------------------------------------------------------
// Solver (Low-Level API)
// ----------------------------------------------------------------------------

// Solver builds a model incrementally and solves it with the simplex engine.
// Options are set by name; see the Set*Option methods.
//
// A Solver is not safe for concurrent use.
type Solver struct {
	colCost  []float64
	colLower []float64
	colUpper []float64
	colNames []string

	rowLower []float64
	rowUpper []float64
	rowNames []string

	entries  []model.Entry
	maximize bool
	offset   float64

	cfg        engine.Config
	output     bool
	threads    int
	pricingSet bool
	logger     *slog.Logger
	observer   func(Iteration)
	start      *SavedBasis

	last *engine.Result
}

// NewSolver creates a new solver with default options.
func NewSolver() (*Solver, error) {
	s := &Solver{}
	s.resetOptions()
	return s, nil
}

func (s *Solver) resetOptions() {
	s.cfg = engine.DefaultConfig()
	s.output = false
	s.threads = 1
	s.pricingSet = false
	s.logger = nil
	s.observer = nil
}

// Close releases the model held by the solver.
// It is safe to call Close multiple times.
func (s *Solver) Close() {
	_ = s.ClearModel()
}

// Clear resets the solver to its initial state, clearing
// the model and resetting options to defaults.
func (s *Solver) Clear() error {
	s.resetOptions()
	return s.ClearModel()
}

// ClearModel removes all variables and constraints but keeps options.
func (s *Solver) ClearModel() error {
	s.colCost, s.colLower, s.colUpper, s.colNames = nil, nil, nil, nil
	s.rowLower, s.rowUpper, s.rowNames = nil, nil, nil
	s.entries = nil
	s.maximize, s.offset = false, 0
	return s.ClearSolver()
}

// ClearSolver clears solution data and the starting basis but keeps the model.
func (s *Solver) ClearSolver() error {
	s.start = nil
	s.last = nil
	return nil
}

// Infinity returns the value used to represent infinity. Bounds whose
// magnitude reaches InfiniteBound are treated as infinite as well.
func (s *Solver) Infinity() float64 {
	return math.Inf(1)
}

// NumCol returns the number of columns (variables) in the model.
func (s *Solver) NumCol() int {
	return len(s.colCost)
}

// NumRow returns the number of rows (constraints) in the model.
func (s *Solver) NumRow() int {
	return len(s.rowLower)
}

// NumNonzero returns the number of non-zero entries in the constraint matrix.
func (s *Solver) NumNonzero() int {
	return len(s.entries)
}

// SetBoolOption sets a boolean option.
func (s *Solver) SetBoolOption(name string, value bool) error {
	opt, err := lookupOption("SetBoolOption", name, boolOption)
	if err != nil {
		return err
	}
	opt.setBool(s, value)
	return nil
}

// SetIntOption sets an integer option.
func (s *Solver) SetIntOption(name string, value int) error {
	opt, err := lookupOption("SetIntOption", name, intOption)
	if err != nil {
		return err
	}
	return newError("SetIntOption", opt.setInt(s, value))
}

// SetFloatOption sets a floating-point option.
func (s *Solver) SetFloatOption(name string, value float64) error {
	opt, err := lookupOption("SetFloatOption", name, floatOption)
	if err != nil {
		return err
	}
	return newError("SetFloatOption", opt.setFloat(s, value))
}

// SetStringOption sets a string option.
func (s *Solver) SetStringOption(name, value string) error {
	opt, err := lookupOption("SetStringOption", name, stringOption)
	if err != nil {
		return err
	}
	return newError("SetStringOption", opt.setString(s, value))
}

// GetBoolOption returns the value of a boolean option.
func (s *Solver) GetBoolOption(name string) (bool, error) {
	opt, err := lookupOption("GetBoolOption", name, boolOption)
	if err != nil {
		return false, err
	}
	return opt.get(s).(bool), nil
}

// GetIntOption returns the value of an integer option.
func (s *Solver) GetIntOption(name string) (int, error) {
	opt, err := lookupOption("GetIntOption", name, intOption)
	if err != nil {
		return 0, err
	}
	return opt.get(s).(int), nil
}

// GetFloatOption returns the value of a floating-point option.
func (s *Solver) GetFloatOption(name string) (float64, error) {
	opt, err := lookupOption("GetFloatOption", name, floatOption)
	if err != nil {
		return 0, err
	}
	return opt.get(s).(float64), nil
}

// GetStringOption returns the value of a string option.
func (s *Solver) GetStringOption(name string) (string, error) {
	opt, err := lookupOption("GetStringOption", name, stringOption)
	if err != nil {
		return "", err
	}
	return opt.get(s).(string), nil
}

// SetLogger sends solver logs to l. It takes precedence over output_flag.
func (s *Solver) SetLogger(l *slog.Logger) {
	s.logger = l
}

// SetObserver installs a callback that receives every iteration record.
func (s *Solver) SetObserver(fn func(Iteration)) {
	s.observer = fn
}

// SetMaximize sets whether to maximize (true) or minimize (false).
func (s *Solver) SetMaximize(maximize bool) error {
	s.maximize = maximize
	return nil
}

// SetObjectiveOffset sets a constant offset for the objective function.
func (s *Solver) SetObjectiveOffset(offset float64) error {
	s.offset = offset
	return nil
}

// AddVar adds a single variable with the given bounds.
func (s *Solver) AddVar(lower, upper float64) error {
	return s.AddVars([]float64{lower}, []float64{upper})
}

// AddVars adds multiple variables with the given bounds.
func (s *Solver) AddVars(lower, upper []float64) error {
	if len(lower) != len(upper) {
		return newErrorMsg("AddVars", "lower and upper bounds must have same length")
	}
	for i := range lower {
		s.colCost = append(s.colCost, 0)
		s.colLower = append(s.colLower, lower[i])
		s.colUpper = append(s.colUpper, upper[i])
		s.colNames = append(s.colNames, "")
	}
	return nil
}

// AddRow adds a constraint with the given bounds and coefficients.
// The index and value slices define the sparse row coefficients.
func (s *Solver) AddRow(lower, upper float64, index []int, value []float64) error {
	if len(index) != len(value) {
		return newErrorMsg("AddRow", "index and value must have same length")
	}
	return s.AddRows([]float64{lower}, []float64{upper}, []int{0}, index, value)
}

// AddRows adds multiple constraints in compressed sparse row format.
func (s *Solver) AddRows(lower, upper []float64, starts, index []int, value []float64) error {
	if len(lower) != len(upper) {
		return newErrorMsg("AddRows", "lower and upper bounds must have same length")
	}
	if len(index) != len(value) {
		return newErrorMsg("AddRows", "index and value must have same length")
	}
	if len(lower) == 0 {
		return nil
	}
	if len(starts) != len(lower) {
		return newErrorMsg("AddRows", "starts must have one entry per row")
	}
	first := len(s.rowLower)
	var entries []model.Entry
	for r := range lower {
		end := len(index)
		if r+1 < len(starts) {
			end = starts[r+1]
		}
		if starts[r] < 0 || starts[r] > end || end > len(index) {
			return newErrorMsg("AddRows", "starts are not monotone")
		}
		for k := starts[r]; k < end; k++ {
			if index[k] < 0 || index[k] >= s.NumCol() {
				return newErrorMsg("AddRows", fmt.Sprintf("column index %d out of range", index[k]))
			}
			entries = append(entries, model.Entry{Row: first + r, Col: index[k], Val: value[k]})
		}
	}
	s.rowLower = append(s.rowLower, lower...)
	s.rowUpper = append(s.rowUpper, upper...)
	s.rowNames = append(s.rowNames, make([]string, len(lower))...)
	s.entries = append(s.entries, entries...)
	return nil
}

// SetColCost sets the objective coefficient for a column.
func (s *Solver) SetColCost(col int, cost float64) error {
	if col < 0 || col >= s.NumCol() {
		return newErrorMsg("SetColCost", "column index out of range")
	}
	s.colCost[col] = cost
	return nil
}

// SetColCosts sets the objective coefficients for a range of columns.
func (s *Solver) SetColCosts(costs []float64) error {
	if len(costs) > s.NumCol() {
		return newErrorMsg("SetColCosts", "more costs than columns")
	}
	copy(s.colCost, costs)
	return nil
}

// SetColBounds sets the bounds for a column.
func (s *Solver) SetColBounds(col int, lower, upper float64) error {
	if col < 0 || col >= s.NumCol() {
		return newErrorMsg("SetColBounds", "column index out of range")
	}
	s.colLower[col], s.colUpper[col] = lower, upper
	return nil
}

// SetColName names a column for basis import and export.
func (s *Solver) SetColName(col int, name string) error {
	if col < 0 || col >= s.NumCol() {
		return newErrorMsg("SetColName", "column index out of range")
	}
	s.colNames[col] = name
	return nil
}

// SetRowName names a row for basis import and export.
func (s *Solver) SetRowName(row int, name string) error {
	if row < 0 || row >= s.NumRow() {
		return newErrorMsg("SetRowName", "row index out of range")
	}
	s.rowNames[row] = name
	return nil
}

// PassModel passes a complete model to the solver in one call, replacing
// the current one. The matrix is given row-wise in compressed sparse row
// format with one start per row.
func (s *Solver) PassModel(
	numCol, numRow int,
	colCost, colLower, colUpper []float64,
	rowLower, rowUpper []float64,
	aStart, aIndex []int,
	aValue []float64,
	maximize bool,
	offset float64,
) error {
	if len(colCost) != numCol || len(colLower) != numCol || len(colUpper) != numCol {
		return newErrorMsg("PassModel", "column data must have numCol entries")
	}
	if len(rowLower) != numRow || len(rowUpper) != numRow {
		return newErrorMsg("PassModel", "row data must have numRow entries")
	}
	if err := s.ClearModel(); err != nil {
		return err
	}
	if err := s.AddVars(colLower, colUpper); err != nil {
		return err
	}
	if err := s.SetColCosts(colCost); err != nil {
		return err
	}
	if numRow > 0 {
		if err := s.AddRows(rowLower, rowUpper, aStart, aIndex, aValue); err != nil {
			return err
		}
	}
	s.maximize, s.offset = maximize, offset
	return nil
}

// SetStartingBasis makes the next Run start from b instead of the slack
// basis. A basis that turns out singular is replaced by the slack basis.
func (s *Solver) SetStartingBasis(b *SavedBasis) error {
	s.start = b
	return nil
}

// Run solves the model and returns the solution.
func (s *Solver) Run() (*Solution, error) {
	return s.RunContext(context.Background())
}

// RunContext solves the model. Cancelling ctx stops the solve between
// iterations; a deadline counts as the time limit.
func (s *Solver) RunContext(ctx context.Context) (*Solution, error) {
	if s.NumCol() == 0 && s.NumRow() == 0 {
		return &Solution{Status: ModelStatusOptimal, Objective: s.offset}, nil
	}
	md, err := model.New(s.spec())
	if err != nil {
		return nil, newError("Run", err)
	}
	var start *engine.Start
	if s.start != nil {
		if start, err = s.start.start(md); err != nil {
			return nil, newError("Run", err)
		}
	}
	res, err := engine.Solve(ctx, md, s.config(), start)
	if err != nil {
		return nil, newError("Run", err)
	}
	s.last = res
	return newSolution(md, res), nil
}

func (s *Solver) spec() model.Spec {
	spec := model.Spec{
		NumCols:  s.NumCol(),
		NumRows:  s.NumRow(),
		Cost:     s.colCost,
		ColLower: normalizeBounds(s.colLower),
		ColUpper: normalizeBounds(s.colUpper),
		RowLower: normalizeBounds(s.rowLower),
		RowUpper: normalizeBounds(s.rowUpper),
		Entries:  s.entries,
		Maximize: s.maximize,
		Offset:   s.offset,
	}
	spec.ColNames = fillNames(s.colNames, "C")
	spec.RowNames = fillNames(s.rowNames, "R")
	return spec
}

func (s *Solver) config() engine.Config {
	cfg := s.cfg
	if s.threads >= 2 && !s.pricingSet {
		cfg.Pricing = engine.Parallel
	}
	cfg.Logger = s.logger
	if cfg.Logger == nil && s.output {
		cfg.Logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: "15:04:05",
		}))
	}
	if s.observer != nil {
		cfg.Observer = engine.Observer(s.observer)
	}
	return cfg
}

// GetIntInfo returns an integer info value of the last run.
func (s *Solver) GetIntInfo(name string) (int, error) {
	if s.last == nil {
		return 0, newErrorMsg("GetIntInfo", "no solve has run")
	}
	switch name {
	case "simplex_iteration_count":
		return s.last.Iterations, nil
	case "phase1_iteration_count":
		return s.last.Phase1Iterations, nil
	case "bad_iteration_count":
		return s.last.BadIterations, nil
	case "reinversion_count":
		return s.last.Reinversions, nil
	case "model_status":
		return int(modelStatusFromEngine(s.last.Status)), nil
	}
	return 0, newErrorMsg("GetIntInfo", fmt.Sprintf("unknown info %q", name))
}

// GetFloatInfo returns a floating-point info value of the last run.
func (s *Solver) GetFloatInfo(name string) (float64, error) {
	if s.last == nil {
		return 0, newErrorMsg("GetFloatInfo", "no solve has run")
	}
	switch name {
	case "objective_function_value":
		return s.last.Objective, nil
	case "run_time":
		return s.last.Elapsed.Seconds(), nil
	}
	return 0, newErrorMsg("GetFloatInfo", fmt.Sprintf("unknown info %q", name))
}
