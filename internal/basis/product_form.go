package basis

import (
	"math"

	"github.com/pkg/errors"

	"github.com/bartolsthoorn/gosimplex/internal/kernel"
)

// Options tunes the product-form basis.
type Options struct {
	// PivotTolerance is the smallest acceptable pivot magnitude.
	PivotTolerance float64
	// Threshold is the Markowitz threshold: a candidate must reach this
	// fraction of its column's largest magnitude.
	Threshold float64
	// InvertFrequency is the number of updates after which NeedsInversion
	// reports true.
	InvertFrequency int
	// DropTolerance removes tiny eta entries.
	DropTolerance float64
}

// DefaultOptions returns the options used by the engine.
func DefaultOptions() Options {
	return Options{
		PivotTolerance:  1e-9,
		Threshold:       0.1,
		InvertFrequency: 100,
		DropTolerance:   1e-14,
	}
}

// ProductForm stores B⁻¹ as a product of elementary eta matrices
// E_k···E_1. Eta k pivots on row etaRow[k]; its off-pivot entries are kept
// in etaIndex/etaValue between etaStart[k] and etaStart[k+1].
type ProductForm struct {
	matrix Matrix
	rows   int
	opts   Options

	etaRow   []int
	etaPivot []float64
	etaStart []int
	etaIndex []int
	etaValue []float64

	updates int
}

var _ Basis = (*ProductForm)(nil)

// NewProductForm returns an empty product-form basis over matrix.
// Invert must be called before any solve.
func NewProductForm(matrix Matrix, opts Options) *ProductForm {
	if opts.InvertFrequency <= 0 {
		opts.InvertFrequency = DefaultOptions().InvertFrequency
	}
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultOptions().Threshold
	}
	return &ProductForm{
		matrix:   matrix,
		rows:     matrix.Rows(),
		opts:     opts,
		etaStart: []int{0},
	}
}

func (b *ProductForm) clearEtas() {
	b.etaRow = b.etaRow[:0]
	b.etaPivot = b.etaPivot[:0]
	b.etaStart = b.etaStart[:1]
	b.etaIndex = b.etaIndex[:0]
	b.etaValue = b.etaValue[:0]
	b.updates = 0
}

// pushEta records the eta that maps column alpha to e_row.
func (b *ProductForm) pushEta(alpha []float64, row int) {
	b.etaRow = append(b.etaRow, row)
	b.etaPivot = append(b.etaPivot, alpha[row])
	for i, v := range alpha {
		if i == row || math.Abs(v) <= b.opts.DropTolerance {
			continue
		}
		b.etaIndex = append(b.etaIndex, i)
		b.etaValue = append(b.etaValue, v)
	}
	b.etaStart = append(b.etaStart, len(b.etaIndex))
}

func (b *ProductForm) eta(k int) (idx []int, val []float64) {
	s, e := b.etaStart[k], b.etaStart[k+1]
	return b.etaIndex[s:e], b.etaValue[s:e]
}

// Etas returns the length of the eta chain.
func (b *ProductForm) Etas() int { return len(b.etaRow) }

// Updates implements Basis.
func (b *ProductForm) Updates() int { return b.updates }

// NeedsInversion implements Basis.
func (b *ProductForm) NeedsInversion() bool { return b.updates >= b.opts.InvertFrequency }

// Ftran implements Basis.
func (b *ProductForm) Ftran(x []float64, mode kernel.Mode) {
	for k, r := range b.etaRow {
		if x[r] == 0 {
			continue
		}
		xr := x[r] / b.etaPivot[k]
		x[r] = xr
		idx, val := b.eta(k)
		kernel.SparseAddScaled(mode, x, -xr, idx, val)
	}
}

// Btran implements Basis.
func (b *ProductForm) Btran(x []float64, mode kernel.Mode) {
	for k := len(b.etaRow) - 1; k >= 0; k-- {
		r := b.etaRow[k]
		idx, val := b.eta(k)
		dot := kernel.SparseDot(mode, idx, val, x)
		x[r] = kernel.Add(x[r], -dot) / b.etaPivot[k]
	}
}

// FtranColumn implements Basis.
func (b *ProductForm) FtranColumn(j int, out []float64, mode kernel.Mode) {
	clear(out)
	idx, val := b.matrix.Column(j)
	for k, i := range idx {
		out[i] = val[k]
	}
	b.Ftran(out, mode)
}

// BtranUnit implements Basis.
func (b *ProductForm) BtranUnit(r int, out []float64, mode kernel.Mode) {
	clear(out)
	out[r] = 1
	b.Btran(out, mode)
}

// Append implements Basis.
func (b *ProductForm) Append(alpha []float64, row, incoming int) error {
	if row < 0 || row >= b.rows {
		return errors.Errorf("basis: pivot row %d out of range [0,%d)", row, b.rows)
	}
	if p := alpha[row]; math.Abs(p) <= b.opts.PivotTolerance || math.IsNaN(p) {
		return &NumericalError{Kind: SingularPivot, Row: row, Col: incoming, Value: p}
	}
	b.pushEta(alpha, row)
	b.updates++
	return nil
}
