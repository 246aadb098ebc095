// Package kernel provides the numeric primitives used by the simplex engine.
//
// Every routine comes in two flavours selected by Mode. Stable routines keep
// the positive and negative partial sums apart and flush the result to zero
// when the two cancel to within Epsilon of the larger magnitude; for n terms
// the absolute error is bounded by n·u·(P−N) where u is the unit roundoff and
// P, N are the positive and negative partial sums. Unstable routines delegate
// to gonum's floats package and carry the usual n·u·Σ|aᵢbᵢ| bound without
// cancellation flushing.
package kernel

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Mode selects the accumulation strategy of a primitive.
type Mode int

const (
	// Stable tracks positive and negative partial sums separately.
	Stable Mode = iota
	// Unstable uses plain accumulation.
	Unstable
)

// String returns a human-readable representation of the mode.
func (m Mode) String() string {
	switch m {
	case Stable:
		return "Stable"
	case Unstable:
		return "Unstable"
	default:
		return "Unknown"
	}
}

// Epsilon is the relative cancellation threshold of the stable routines.
const Epsilon = 1e-14

// Add returns a+b, or zero when the sum is a cancellation artefact.
func Add(a, b float64) float64 {
	s := a + b
	if math.Abs(s) <= Epsilon*math.Max(math.Abs(a), math.Abs(b)) {
		return 0
	}
	return s
}

// Accumulator sums values keeping positive and negative parts apart.
// The zero value is ready to use.
type Accumulator struct {
	pos, neg float64
}

// Add adds v to the running sum.
func (a *Accumulator) Add(v float64) {
	if v > 0 {
		a.pos += v
	} else {
		a.neg += v
	}
}

// Result returns the accumulated sum with cancellation flushing.
func (a *Accumulator) Result() float64 {
	return Add(a.pos, a.neg)
}

// Reset clears the accumulator.
func (a *Accumulator) Reset() {
	a.pos, a.neg = 0, 0
}

// Dot returns the dot product of two dense vectors of equal length.
func Dot(mode Mode, a, b []float64) float64 {
	if mode == Unstable {
		return floats.Dot(a, b)
	}
	var acc Accumulator
	for i, v := range a {
		acc.Add(v * b[i])
	}
	return acc.Result()
}

// SparseDot returns Σ val[k]·dense[idx[k]].
func SparseDot(mode Mode, idx []int, val []float64, dense []float64) float64 {
	if mode == Unstable {
		var s float64
		for k, i := range idx {
			s += val[k] * dense[i]
		}
		return s
	}
	var acc Accumulator
	for k, i := range idx {
		acc.Add(val[k] * dense[i])
	}
	return acc.Result()
}

// AddScaled computes dst += alpha·src for dense vectors.
func AddScaled(mode Mode, dst []float64, alpha float64, src []float64) {
	if mode == Unstable {
		floats.AddScaled(dst, alpha, src)
		return
	}
	for i, v := range src {
		if v != 0 {
			dst[i] = Add(dst[i], alpha*v)
		}
	}
}

// SparseAddScaled computes dst[idx[k]] += alpha·val[k].
func SparseAddScaled(mode Mode, dst []float64, alpha float64, idx []int, val []float64) {
	if mode == Unstable {
		for k, i := range idx {
			dst[i] += alpha * val[k]
		}
		return
	}
	for k, i := range idx {
		dst[i] = Add(dst[i], alpha*val[k])
	}
}

// SquaredNorm returns Σ v[i]².
func SquaredNorm(v []float64) float64 {
	return floats.Dot(v, v)
}

// MaxAbs returns the largest magnitude in v, or zero for an empty vector.
func MaxAbs(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return math.Max(math.Abs(floats.Max(v)), math.Abs(floats.Min(v)))
}

// Zero sets every entry of v to zero.
func Zero(v []float64) {
	clear(v)
}
