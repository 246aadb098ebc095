// Package basis maintains the inverse of the simplex working basis.
package basis

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/bartolsthoorn/gosimplex/internal/kernel"
)

// Matrix gives column access to the constraint matrix [A | I].
type Matrix interface {
	Rows() int
	Column(j int) (index []int, value []float64)
}

// Basis is the factorized working basis B whose columns are the matrix
// columns listed in the basis head.
type Basis interface {
	// Invert refactorizes B from head. On success head is permuted so that
	// head[i] is the variable pivoted on row i.
	Invert(head []int) error
	// Ftran overwrites x with B⁻¹x.
	Ftran(x []float64, mode kernel.Mode)
	// Btran overwrites x with B⁻ᵀx.
	Btran(x []float64, mode kernel.Mode)
	// FtranColumn writes B⁻¹a_j into out.
	FtranColumn(j int, out []float64, mode kernel.Mode)
	// BtranUnit writes B⁻ᵀe_r into out.
	BtranUnit(r int, out []float64, mode kernel.Mode)
	// Append records the pivot replacing basis position row by variable
	// incoming, where alpha is B⁻¹a_incoming for the current B.
	Append(alpha []float64, row, incoming int) error
	// NeedsInversion reports whether the update chain is due for refactorization.
	NeedsInversion() bool
	// Updates returns the number of appended pivots since the last inversion.
	Updates() int
}

// Kind classifies a numerical fault.
type Kind int

const (
	// SingularPivot is a pivot element at or below the pivot tolerance.
	SingularPivot Kind = iota
	// SingularBasis means inversion found no acceptable pivot.
	SingularBasis
	// ZeroDivisor is a ratio-test pivot indistinguishable from zero.
	ZeroDivisor
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case SingularPivot:
		return "SingularPivot"
	case SingularBasis:
		return "SingularBasis"
	case ZeroDivisor:
		return "ZeroDivisor"
	default:
		return "Unknown"
	}
}

// NumericalError is a fatal numerical fault at a row and column (variable).
type NumericalError struct {
	Kind  Kind
	Row   int
	Col   int
	Value float64
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("numerical fault %s at row %d, column %d (value %g)", e.Kind, e.Row, e.Col, e.Value)
}

// ErrHead is returned when a basis head has the wrong length.
var ErrHead = errors.New("basis: head length does not match row count")
