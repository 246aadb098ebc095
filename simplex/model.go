package simplex

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// Model represents a linear program.
// It provides a convenient way to define a problem without dealing with
// the low-level solver API directly.
//
// The model solves problems of the form:
//
//	Minimize (or Maximize): ColCosts · x + Offset
//	Subject to:             RowLower ≤ A·x ≤ RowUpper
//	And:                    ColLower ≤ x ≤ ColUpper
//
// Where A is the constraint matrix specified by ConstMatrix.
type Model struct {
	// Maximize indicates whether to maximize (true) or minimize (false).
	Maximize bool

	// Offset is a constant added to the objective function.
	Offset float64

	// ColCosts are the objective function coefficients for each variable.
	ColCosts []float64

	// ColLower are the lower bounds for each variable.
	// If empty, defaults to -∞.
	ColLower []float64

	// ColUpper are the upper bounds for each variable.
	// If empty, defaults to +∞.
	ColUpper []float64

	// RowLower are the lower bounds for each constraint.
	// Use NegInf() for no lower bound.
	RowLower []float64

	// RowUpper are the upper bounds for each constraint.
	// Use Inf() for no upper bound.
	RowUpper []float64

	// ConstMatrix defines the constraint matrix as a list of non-zero entries.
	// Each entry specifies (row, column, value).
	ConstMatrix []Nonzero

	// ColNames and RowNames optionally name columns and rows. Names key
	// the basis returned by Solution.Basis.
	ColNames []string
	RowNames []string
}

// AddDenseRow adds a constraint to the model using a dense coefficient vector.
// Zero coefficients are automatically filtered out.
//
// Example:
//
//	model.AddDenseRow(1.0, []float64{1.0, 2.0, 0.0, 3.0}, 10.0)
//	// Adds constraint: 1.0 <= x0 + 2*x1 + 3*x3 <= 10.0
func (m *Model) AddDenseRow(lower float64, coeffs []float64, upper float64) {
	row := len(m.RowLower)
	m.RowLower = append(m.RowLower, lower)
	m.RowUpper = append(m.RowUpper, upper)

	for col, val := range coeffs {
		if val != 0.0 {
			m.ConstMatrix = append(m.ConstMatrix, Nonzero{Row: row, Col: col, Val: val})
		}
	}
}

// AddSparseRow adds a constraint using sparse coefficient representation.
//
// Example:
//
//	model.AddSparseRow(1.0, []int{0, 1, 3}, []float64{1.0, 2.0, 3.0}, 10.0)
//	// Adds constraint: 1.0 <= x0 + 2*x1 + 3*x3 <= 10.0
func (m *Model) AddSparseRow(lower float64, cols []int, vals []float64, upper float64) {
	row := len(m.RowLower)
	m.RowLower = append(m.RowLower, lower)
	m.RowUpper = append(m.RowUpper, upper)

	for i, col := range cols {
		if vals[i] != 0.0 {
			m.ConstMatrix = append(m.ConstMatrix, Nonzero{Row: row, Col: col, Val: vals[i]})
		}
	}
}

// AddEqRow adds an equality constraint: sum(coeffs * x) = rhs.
func (m *Model) AddEqRow(coeffs []float64, rhs float64) {
	m.AddDenseRow(rhs, coeffs, rhs)
}

// AddLeRow adds a less-than-or-equal constraint: sum(coeffs * x) <= rhs.
func (m *Model) AddLeRow(coeffs []float64, rhs float64) {
	m.AddDenseRow(math.Inf(-1), coeffs, rhs)
}

// AddGeRow adds a greater-than-or-equal constraint: sum(coeffs * x) >= rhs.
func (m *Model) AddGeRow(coeffs []float64, rhs float64) {
	m.AddDenseRow(rhs, coeffs, math.Inf(1))
}

// NumVars returns the number of variables in the model.
func (m *Model) NumVars() int {
	_, maxCol := maxRowCol(m.ConstMatrix)
	return max(maxCol+1, len(m.ColCosts), len(m.ColLower), len(m.ColUpper), len(m.ColNames))
}

// NumConstraints returns the number of constraints in the model.
func (m *Model) NumConstraints() int {
	maxRow, _ := maxRowCol(m.ConstMatrix)
	return max(maxRow+1, len(m.RowLower), len(m.RowUpper), len(m.RowNames))
}

// Solve builds and solves the model, returning the solution.
//
// Options can be set using SolveOptions:
//
//	solution, err := model.Solve(
//		simplex.WithTimeLimit(60),
//		simplex.WithPricing("devex"),
//		simplex.WithOutput(false),
//	)
func (m *Model) Solve(opts ...SolveOption) (*Solution, error) {
	return m.SolveContext(context.Background(), opts...)
}

// SolveContext is like Solve but stops when ctx is done.
func (m *Model) SolveContext(ctx context.Context, opts ...SolveOption) (*Solution, error) {
	solver, err := NewSolver()
	if err != nil {
		return nil, err
	}
	defer solver.Close()

	cfg := defaultSolveConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.apply(solver); err != nil {
		return nil, err
	}

	numCol := m.NumVars()
	numRow := m.NumConstraints()

	if numCol == 0 && numRow == 0 {
		return &Solution{Status: ModelStatusOptimal, Objective: m.Offset}, nil
	}

	colCosts, err := expandSlice(numCol, m.ColCosts, 0.0)
	if err != nil {
		return nil, newErrorMsg("Solve", "inconsistent ColCosts length")
	}
	colLower, err := expandSlice(numCol, m.ColLower, math.Inf(-1))
	if err != nil {
		return nil, newErrorMsg("Solve", "inconsistent ColLower length")
	}
	colUpper, err := expandSlice(numCol, m.ColUpper, math.Inf(1))
	if err != nil {
		return nil, newErrorMsg("Solve", "inconsistent ColUpper length")
	}
	rowLower, err := expandSlice(numRow, m.RowLower, math.Inf(-1))
	if err != nil {
		return nil, newErrorMsg("Solve", "inconsistent RowLower length")
	}
	rowUpper, err := expandSlice(numRow, m.RowUpper, math.Inf(1))
	if err != nil {
		return nil, newErrorMsg("Solve", "inconsistent RowUpper length")
	}

	aStart, aIndex, aValue, err := nonzerosToCSR(m.ConstMatrix, numRow)
	if err != nil {
		return nil, err
	}

	err = solver.PassModel(
		numCol, numRow,
		colCosts, colLower, colUpper,
		rowLower, rowUpper,
		aStart, aIndex, aValue,
		m.Maximize,
		m.Offset,
	)
	if err != nil {
		return nil, err
	}
	if err := m.passNames(solver); err != nil {
		return nil, err
	}
	if cfg.start != nil {
		if err := solver.SetStartingBasis(cfg.start); err != nil {
			return nil, err
		}
	}

	return solver.RunContext(ctx)
}

func (m *Model) passNames(s *Solver) error {
	if len(m.ColNames) > s.NumCol() || len(m.RowNames) > s.NumRow() {
		return newErrorMsg("Solve", "more names than columns or rows")
	}
	for j, name := range m.ColNames {
		if err := s.SetColName(j, name); err != nil {
			return err
		}
	}
	for i, name := range m.RowNames {
		if err := s.SetRowName(i, name); err != nil {
			return err
		}
	}
	return nil
}

// SolveOption configures the solver behavior.
type SolveOption func(*solveConfig)

type solveConfig struct {
	output         *bool
	timeLimit      *float64
	iterationLimit *int
	threads        *int
	pricing        *string
	algorithm      *string
	seed           *int
	logger         *slog.Logger
	observer       func(Iteration)
	start          *SavedBasis
	extraBool      map[string]bool
	extraInt       map[string]int
	extraFloat     map[string]float64
	extraString    map[string]string
}

func defaultSolveConfig() *solveConfig {
	return &solveConfig{
		extraBool:   make(map[string]bool),
		extraInt:    make(map[string]int),
		extraFloat:  make(map[string]float64),
		extraString: make(map[string]string),
	}
}

func (c *solveConfig) apply(s *Solver) error {
	if c.output != nil {
		if err := s.SetBoolOption("output_flag", *c.output); err != nil {
			return err
		}
	}
	if c.timeLimit != nil {
		if err := s.SetFloatOption("time_limit", *c.timeLimit); err != nil {
			return err
		}
	}
	if c.iterationLimit != nil {
		if err := s.SetIntOption("iteration_limit", *c.iterationLimit); err != nil {
			return err
		}
	}
	if c.threads != nil {
		if err := s.SetIntOption("threads", *c.threads); err != nil {
			return err
		}
	}
	if c.pricing != nil {
		if err := s.SetStringOption("pricing", *c.pricing); err != nil {
			return err
		}
	}
	if c.algorithm != nil {
		if err := s.SetStringOption("algorithm", *c.algorithm); err != nil {
			return err
		}
	}
	if c.seed != nil {
		if err := s.SetIntOption("random_seed", *c.seed); err != nil {
			return err
		}
	}
	if c.logger != nil {
		s.SetLogger(c.logger)
	}
	if c.observer != nil {
		s.SetObserver(c.observer)
	}
	for k, v := range c.extraBool {
		if err := s.SetBoolOption(k, v); err != nil {
			return err
		}
	}
	for k, v := range c.extraInt {
		if err := s.SetIntOption(k, v); err != nil {
			return err
		}
	}
	for k, v := range c.extraFloat {
		if err := s.SetFloatOption(k, v); err != nil {
			return err
		}
	}
	for k, v := range c.extraString {
		if err := s.SetStringOption(k, v); err != nil {
			return err
		}
	}
	return nil
}

// WithOutput enables or disables solver output on stderr.
func WithOutput(enabled bool) SolveOption {
	return func(c *solveConfig) {
		c.output = &enabled
	}
}

// WithLogger sends solver logs to l.
func WithLogger(l *slog.Logger) SolveOption {
	return func(c *solveConfig) {
		c.logger = l
	}
}

// WithTimeLimit sets the time limit in seconds.
func WithTimeLimit(seconds float64) SolveOption {
	return func(c *solveConfig) {
		c.timeLimit = &seconds
	}
}

// WithTimeout is WithTimeLimit for a duration.
func WithTimeout(d time.Duration) SolveOption {
	return WithTimeLimit(d.Seconds())
}

// WithIterationLimit caps the number of simplex iterations.
func WithIterationLimit(n int) SolveOption {
	return func(c *solveConfig) {
		c.iterationLimit = &n
	}
}

// WithThreads sets the number of threads to use. Two or more threads
// race two pricing strategies unless WithPricing is given.
func WithThreads(n int) SolveOption {
	return func(c *solveConfig) {
		c.threads = &n
	}
}

// WithPricing selects the pricing strategy ("dantzig", "devex",
// "steepest-edge", "parallel").
func WithPricing(name string) SolveOption {
	return func(c *solveConfig) {
		c.pricing = &name
	}
}

// WithAlgorithm selects the simplex variant ("primal", "dual").
func WithAlgorithm(name string) SolveOption {
	return func(c *solveConfig) {
		c.algorithm = &name
	}
}

// WithSeed sets the random seed used for tie breaking and perturbation.
func WithSeed(seed int) SolveOption {
	return func(c *solveConfig) {
		c.seed = &seed
	}
}

// WithObserver installs a callback that receives every iteration record.
func WithObserver(fn func(Iteration)) SolveOption {
	return func(c *solveConfig) {
		c.observer = fn
	}
}

// WithStartingBasis starts the solve from b instead of the slack basis.
func WithStartingBasis(b *SavedBasis) SolveOption {
	return func(c *solveConfig) {
		c.start = b
	}
}

// WithBoolOption sets a custom boolean option.
func WithBoolOption(name string, value bool) SolveOption {
	return func(c *solveConfig) {
		c.extraBool[name] = value
	}
}

// WithIntOption sets a custom integer option.
func WithIntOption(name string, value int) SolveOption {
	return func(c *solveConfig) {
		c.extraInt[name] = value
	}
}

// WithFloatOption sets a custom floating-point option.
func WithFloatOption(name string, value float64) SolveOption {
	return func(c *solveConfig) {
		c.extraFloat[name] = value
	}
}

// WithStringOption sets a custom string option.
func WithStringOption(name, value string) SolveOption {
	return func(c *solveConfig) {
		c.extraString[name] = value
	}
}
