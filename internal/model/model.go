// Package model holds the computational form of a linear program.
//
// A problem with n structural columns and m rows
//
//	minimize    cᵀx
//	subject to  L ≤ Ax ≤ U,  l ≤ x ≤ u
//
// is stored as [A | I]·(x, y) = b with one logical variable yᵢ per row.
// The right-hand side bᵢ is the finite row bound (lower preferred) or zero
// for a free row, so that yᵢ = bᵢ − aᵢx is bounded by [bᵢ−Uᵢ, bᵢ−Lᵢ]. A
// maximization problem is stored with negated costs.
package model

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/bartolsthoorn/gosimplex/internal/kernel"
)

var (
	// ErrShape is returned when vector lengths do not match the dimensions.
	ErrShape = errors.New("model: inconsistent dimensions")
	// ErrIndex is returned for a matrix entry outside the dimensions.
	ErrIndex = errors.New("model: entry index out of range")
	// ErrBounds is returned when a lower bound exceeds its upper bound.
	ErrBounds = errors.New("model: lower bound exceeds upper bound")
	// ErrNaN is returned for NaN data or infinite costs and coefficients.
	ErrNaN = errors.New("model: non-finite data")
	// ErrName is returned for duplicate variable names.
	ErrName = errors.New("model: duplicate name")
)

// Entry is one nonzero of the structural matrix.
type Entry struct {
	Row int
	Col int
	Val float64
}

// Spec describes a problem in row-bounded form.
type Spec struct {
	NumCols  int
	NumRows  int
	Cost     []float64
	ColLower []float64
	ColUpper []float64
	RowLower []float64
	RowUpper []float64
	Entries  []Entry
	Maximize bool
	Offset   float64
	ColNames []string
	RowNames []string
}

// Model is the computational form consumed by the simplex engine.
type Model struct {
	rows, cols int
	vars       []Variable

	cost, origCost []float64
	rhs            []float64
	costShifted    bool
	boundsPerturb  bool

	colStart []int
	colIndex []int
	colValue []float64

	rowStart []int
	rowIndex []int
	rowValue []float64

	maximize bool
	offset   float64
	names    map[string]int
}

// New builds the computational form of spec.
func New(spec Spec) (*Model, error) {
	n, m := spec.NumCols, spec.NumRows
	if n < 0 || m < 0 {
		return nil, errors.Wrapf(ErrShape, "negative dimensions %dx%d", m, n)
	}
	cost, err := fill(n, spec.Cost, 0, "cost")
	if err != nil {
		return nil, err
	}
	colLower, err := fill(n, spec.ColLower, 0, "column lower")
	if err != nil {
		return nil, err
	}
	colUpper, err := fill(n, spec.ColUpper, math.Inf(1), "column upper")
	if err != nil {
		return nil, err
	}
	rowLower, err := fill(m, spec.RowLower, math.Inf(-1), "row lower")
	if err != nil {
		return nil, err
	}
	rowUpper, err := fill(m, spec.RowUpper, math.Inf(1), "row upper")
	if err != nil {
		return nil, err
	}
	if spec.ColNames != nil && len(spec.ColNames) != n {
		return nil, errors.Wrap(ErrShape, "column names")
	}
	if spec.RowNames != nil && len(spec.RowNames) != m {
		return nil, errors.Wrap(ErrShape, "row names")
	}

	total := n + m
	md := &Model{
		rows:     m,
		cols:     n,
		vars:     make([]Variable, total),
		cost:     make([]float64, total),
		origCost: make([]float64, total),
		rhs:      make([]float64, m),
		maximize: spec.Maximize,
		offset:   spec.Offset,
		names:    make(map[string]int, total),
	}

	for j := range n {
		if math.IsNaN(cost[j]) || math.IsInf(cost[j], 0) {
			return nil, errors.Wrapf(ErrNaN, "cost of column %d", j)
		}
		lo, up := colLower[j], colUpper[j]
		if math.IsNaN(lo) || math.IsNaN(up) {
			return nil, errors.Wrapf(ErrNaN, "bounds of column %d", j)
		}
		if lo > up {
			return nil, errors.Wrapf(ErrBounds, "column %d: [%g, %g]", j, lo, up)
		}
		c := cost[j]
		if spec.Maximize {
			c = -c
		}
		md.cost[j] = c
		name := fmt.Sprintf("C%d", j)
		if spec.ColNames != nil {
			name = spec.ColNames[j]
		}
		if err := md.addVariable(j, name, false, lo, up); err != nil {
			return nil, err
		}
	}
	for i := range m {
		lo, up := rowLower[i], rowUpper[i]
		if math.IsNaN(lo) || math.IsNaN(up) {
			return nil, errors.Wrapf(ErrNaN, "bounds of row %d", i)
		}
		if lo > up {
			return nil, errors.Wrapf(ErrBounds, "row %d: [%g, %g]", i, lo, up)
		}
		var b float64
		switch {
		case !math.IsInf(lo, -1):
			b = lo
		case !math.IsInf(up, 1):
			b = up
		}
		md.rhs[i] = b
		name := fmt.Sprintf("R%d", i)
		if spec.RowNames != nil {
			name = spec.RowNames[i]
		}
		if err := md.addVariable(n+i, name, true, b-up, b-lo); err != nil {
			return nil, err
		}
	}
	copy(md.origCost, md.cost)

	if err := md.buildMatrix(spec.Entries); err != nil {
		return nil, err
	}
	return md, nil
}

func fill(n int, v []float64, def float64, what string) ([]float64, error) {
	if len(v) == n {
		return v, nil
	}
	if len(v) == 0 {
		out := make([]float64, n)
		for i := range out {
			out[i] = def
		}
		return out, nil
	}
	return nil, errors.Wrapf(ErrShape, "%s has length %d, want %d", what, len(v), n)
}

func (md *Model) addVariable(j int, name string, logical bool, lo, up float64) error {
	if _, dup := md.names[name]; dup {
		return errors.Wrapf(ErrName, "%q", name)
	}
	md.names[name] = j
	md.vars[j] = Variable{
		Name:      name,
		Index:     j,
		Logical:   logical,
		Type:      Classify(lo, up),
		Lower:     lo,
		Upper:     up,
		origLower: lo,
		origUpper: up,
	}
	return nil
}

// buildMatrix stores [A | I] both column-wise and row-wise. Duplicate
// entries keep the last value; explicit zeros are dropped.
func (md *Model) buildMatrix(entries []Entry) error {
	n, m := md.cols, md.rows
	sorted := make([]Entry, 0, len(entries)+m)
	for _, e := range entries {
		if e.Row < 0 || e.Row >= m || e.Col < 0 || e.Col >= n {
			return errors.Wrapf(ErrIndex, "entry (%d,%d) in %dx%d", e.Row, e.Col, m, n)
		}
		if math.IsNaN(e.Val) || math.IsInf(e.Val, 0) {
			return errors.Wrapf(ErrNaN, "entry (%d,%d)", e.Row, e.Col)
		}
		sorted = append(sorted, e)
	}
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		if a.Col != b.Col {
			return a.Col - b.Col
		}
		return a.Row - b.Row
	})
	merged := sorted[:0]
	for _, e := range sorted {
		if k := len(merged) - 1; k >= 0 && merged[k].Row == e.Row && merged[k].Col == e.Col {
			merged[k].Val = e.Val
			continue
		}
		merged = append(merged, e)
	}
	nz := merged[:0]
	for _, e := range merged {
		if e.Val != 0 {
			nz = append(nz, e)
		}
	}
	for i := range m {
		nz = append(nz, Entry{Row: i, Col: n + i, Val: 1})
	}

	total := n + m
	md.colStart = make([]int, total+1)
	md.colIndex = make([]int, len(nz))
	md.colValue = make([]float64, len(nz))
	for _, e := range nz {
		md.colStart[e.Col+1]++
	}
	for j := range total {
		md.colStart[j+1] += md.colStart[j]
	}
	for k, e := range nz {
		md.colIndex[k] = e.Row
		md.colValue[k] = e.Val
	}

	md.rowStart = make([]int, m+1)
	md.rowIndex = make([]int, len(nz))
	md.rowValue = make([]float64, len(nz))
	for _, e := range nz {
		md.rowStart[e.Row+1]++
	}
	for i := range m {
		md.rowStart[i+1] += md.rowStart[i]
	}
	pos := slices.Clone(md.rowStart[:m])
	for _, e := range nz {
		k := pos[e.Row]
		md.rowIndex[k] = e.Col
		md.rowValue[k] = e.Val
		pos[e.Row]++
	}
	return nil
}

// Rows returns the number of constraints.
func (md *Model) Rows() int { return md.rows }

// Structurals returns the number of structural columns.
func (md *Model) Structurals() int { return md.cols }

// NumVariables returns the number of structural plus logical variables.
func (md *Model) NumVariables() int { return md.cols + md.rows }

// NumNonzeros returns the number of nonzeros of [A | I].
func (md *Model) NumNonzeros() int { return len(md.colValue) }

// Variable returns variable j. The pointer stays valid for the model's lifetime.
func (md *Model) Variable(j int) *Variable { return &md.vars[j] }

// Lookup returns the index of the variable with the given name.
func (md *Model) Lookup(name string) (int, bool) {
	j, ok := md.names[name]
	return j, ok
}

// Cost returns the working (minimization) cost of variable j.
func (md *Model) Cost(j int) float64 { return md.cost[j] }

// RHS returns the right-hand side vector. Callers must not modify it.
func (md *Model) RHS() []float64 { return md.rhs }

// Maximize reports whether the original problem was a maximization.
func (md *Model) Maximize() bool { return md.maximize }

// Column returns the sparse column of variable j. Callers must not modify it.
func (md *Model) Column(j int) (index []int, value []float64) {
	s, e := md.colStart[j], md.colStart[j+1]
	return md.colIndex[s:e], md.colValue[s:e]
}

// Row returns the sparse row i of [A | I]. Callers must not modify it.
func (md *Model) Row(i int) (index []int, value []float64) {
	s, e := md.rowStart[i], md.rowStart[i+1]
	return md.rowIndex[s:e], md.rowValue[s:e]
}

// ColumnCount returns the number of nonzeros in column j.
func (md *Model) ColumnCount(j int) int { return md.colStart[j+1] - md.colStart[j] }

// ColumnDot returns a_jᵀv.
func (md *Model) ColumnDot(mode kernel.Mode, j int, v []float64) float64 {
	idx, val := md.Column(j)
	return kernel.SparseDot(mode, idx, val, v)
}

// ScatterColumn sets dst to zero and writes a_j into it.
func (md *Model) ScatterColumn(j int, dst []float64) {
	clear(dst)
	idx, val := md.Column(j)
	for k, i := range idx {
		dst[i] = val[k]
	}
}

// AddColumn computes dst += alpha·a_j.
func (md *Model) AddColumn(mode kernel.Mode, dst []float64, alpha float64, j int) {
	idx, val := md.Column(j)
	kernel.SparseAddScaled(mode, dst, alpha, idx, val)
}

// PivotRow computes out[j] = ρᵀa_j for every variable using row-wise access.
func (md *Model) PivotRow(mode kernel.Mode, rho []float64, out []float64) {
	clear(out)
	for i, r := range rho {
		if r == 0 {
			continue
		}
		idx, val := md.Row(i)
		kernel.SparseAddScaled(mode, out, r, idx, val)
	}
}

// Objective returns the working objective cᵀx without offset.
func (md *Model) Objective(mode kernel.Mode, x []float64) float64 {
	return kernel.Dot(mode, md.cost, x)
}

// ExternalObjective returns the objective of x in the original sense,
// using the original costs and including the offset.
func (md *Model) ExternalObjective(x []float64) float64 {
	obj := kernel.Dot(kernel.Stable, md.origCost, x)
	if md.maximize {
		obj = -obj
	}
	return obj + md.offset
}

// Dense returns [A | I] as a dense matrix. It is meant for diagnostics and
// small problems.
func (md *Model) Dense() *mat.Dense {
	total := md.NumVariables()
	if md.rows == 0 || total == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(md.rows, total, nil)
	for j := range total {
		idx, val := md.Column(j)
		for k, i := range idx {
			d.Set(i, j, val[k])
		}
	}
	return d
}

// ShiftCost adds delta to the working cost of variable j.
func (md *Model) ShiftCost(j int, delta float64) {
	if delta == 0 {
		return
	}
	md.cost[j] += delta
	md.costShifted = true
}

// CostsShifted reports whether any working cost differs from its original.
func (md *Model) CostsShifted() bool { return md.costShifted }

// ResetCosts restores the original working costs.
func (md *Model) ResetCosts() {
	copy(md.cost, md.origCost)
	md.costShifted = false
}

// PerturbBounds relaxes the bounds of the given variables outwards by a
// random amount in [scale/2, scale]·(1+|bound|). Fixed and free variables
// are left alone.
func (md *Model) PerturbBounds(vars []int, rng *rand.Rand, scale float64) {
	for _, j := range vars {
		v := &md.vars[j]
		if v.Type == Fixed || v.Type == Free {
			continue
		}
		lo, up := v.Lower, v.Upper
		if v.HasLower() {
			lo -= scale * (0.5 + 0.5*rng.Float64()) * (1 + math.Abs(lo))
		}
		if v.HasUpper() {
			up += scale * (0.5 + 0.5*rng.Float64()) * (1 + math.Abs(up))
		}
		v.setBounds(lo, up)
		md.boundsPerturb = true
	}
}

// BoundsPerturbed reports whether any working bound differs from its original.
func (md *Model) BoundsPerturbed() bool { return md.boundsPerturb }

// ResetBounds restores the original bounds of every variable.
func (md *Model) ResetBounds() {
	for j := range md.vars {
		v := &md.vars[j]
		v.setBounds(v.origLower, v.origUpper)
	}
	md.boundsPerturb = false
}
