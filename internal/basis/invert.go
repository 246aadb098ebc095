package basis

import (
	"math"

	"github.com/pkg/errors"

	"github.com/bartolsthoorn/gosimplex/internal/kernel"
)

// factor is the working state of one inversion. Columns are dense copies of
// the basic columns, transformed in place by every eta pushed so far.
type factor struct {
	cols     [][]float64
	rowCount []int // nonzeros per unpivoted row over unpivoted columns
	colCount []int // nonzeros per unpivoted column over unpivoted rows
	rowDone  []bool
	colDone  []bool
	nz       []int
}

// Invert implements Basis using Gauss-Jordan elimination in product form
// with Markowitz threshold pivoting.
func (b *ProductForm) Invert(head []int) error {
	m := b.rows
	if len(head) != m {
		return errors.Wrapf(ErrHead, "got %d, want %d", len(head), m)
	}
	b.clearEtas()
	if m == 0 {
		return nil
	}

	f := &factor{
		cols:     make([][]float64, m),
		rowCount: make([]int, m),
		colCount: make([]int, m),
		rowDone:  make([]bool, m),
		colDone:  make([]bool, m),
		nz:       make([]int, 0, m),
	}
	for c, j := range head {
		col := make([]float64, m)
		idx, val := b.matrix.Column(j)
		for k, i := range idx {
			col[i] = val[k]
		}
		for i, v := range col {
			if v != 0 {
				f.rowCount[i]++
				f.colCount[c]++
			}
		}
		f.cols[c] = col
	}

	pivoted := make([]int, m)
	for range m {
		r, c := b.selectPivot(f)
		if r < 0 {
			return b.singular(f, head)
		}
		col := f.cols[c]
		b.pushEta(col, r)
		pivoted[r] = head[c]
		f.rowDone[r] = true
		f.colDone[c] = true

		f.nz = f.nz[:0]
		for i, v := range col {
			if v == 0 || i == r {
				continue
			}
			f.nz = append(f.nz, i)
			if !f.rowDone[i] {
				f.rowCount[i]--
			}
		}
		b.eliminate(f, col, r)
	}
	copy(head, pivoted)
	return nil
}

// eliminate applies the eta built from col on row r to every unpivoted column.
func (b *ProductForm) eliminate(f *factor, col []float64, r int) {
	pivot := col[r]
	for k, x := range f.cols {
		if f.colDone[k] || x[r] == 0 {
			continue
		}
		xr := x[r] / pivot
		x[r] = xr
		f.colCount[k]--
		for _, i := range f.nz {
			old := x[i]
			v := kernel.Add(old, -col[i]*xr)
			if math.Abs(v) <= b.opts.DropTolerance {
				v = 0
			}
			x[i] = v
			if f.rowDone[i] {
				continue
			}
			switch {
			case old == 0 && v != 0:
				f.rowCount[i]++
				f.colCount[k]++
			case old != 0 && v == 0:
				f.rowCount[i]--
				f.colCount[k]--
			}
		}
	}
}

// selectPivot returns the acceptable entry of least Markowitz merit
// (rowCount−1)(colCount−1). Ties go to the lowest row, then the lowest
// column. It returns (-1, -1) when no entry is acceptable.
func (b *ProductForm) selectPivot(f *factor) (row, col int) {
	row, col = -1, -1
	best := math.MaxInt
	for c, x := range f.cols {
		if f.colDone[c] {
			continue
		}
		var colMax float64
		for i, v := range x {
			if !f.rowDone[i] {
				colMax = math.Max(colMax, math.Abs(v))
			}
		}
		if colMax <= b.opts.PivotTolerance {
			continue
		}
		limit := math.Max(b.opts.Threshold*colMax, b.opts.PivotTolerance)
		for i, v := range x {
			if f.rowDone[i] || math.Abs(v) < limit {
				continue
			}
			merit := (f.rowCount[i] - 1) * (f.colCount[c] - 1)
			if merit < best || (merit == best && i < row) {
				best, row, col = merit, i, c
			}
		}
	}
	return row, col
}

func (b *ProductForm) singular(f *factor, head []int) error {
	e := &NumericalError{Kind: SingularBasis, Row: -1, Col: -1}
	for i, done := range f.rowDone {
		if !done {
			e.Row = i
			break
		}
	}
	for c, done := range f.colDone {
		if !done {
			e.Col = head[c]
			break
		}
	}
	b.clearEtas()
	return e
}
