package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFlushesCancellation(t *testing.T) {
	assert.Equal(t, 0.0, Add(1.0, -1.0))
	assert.Equal(t, 0.0, Add(1e10, -1e10*(1+1e-16)))
	assert.InDelta(t, 3.0, Add(1, 2), 0)
	assert.InDelta(t, -1e-3, Add(1, -1.001), 1e-15)
}

func TestAccumulator(t *testing.T) {
	var acc Accumulator
	for _, v := range []float64{1e8, 1, -1e8, 2} {
		acc.Add(v)
	}
	assert.InDelta(t, 3.0, acc.Result(), 1e-6)

	acc.Reset()
	acc.Add(0.1)
	acc.Add(0.2)
	acc.Add(-0.30000000000000004)
	assert.Equal(t, 0.0, acc.Result())
}

func TestDotModesAgree(t *testing.T) {
	a := []float64{1, -2, 3, 0.5}
	b := []float64{4, 1, -1, 2}
	for _, mode := range []Mode{Stable, Unstable} {
		assert.InDelta(t, 0.0, Dot(mode, a, b), 1e-12, mode.String())
	}
	c := []float64{2, 0, 1, 1}
	assert.InDelta(t, 5.5, Dot(Stable, a, c), 1e-15)
	assert.InDelta(t, 5.5, Dot(Unstable, a, c), 1e-15)
}

func TestSparsePrimitives(t *testing.T) {
	dense := []float64{1, 2, 3, 4}
	idx := []int{0, 3}
	val := []float64{2, -0.5}
	for _, mode := range []Mode{Stable, Unstable} {
		assert.InDelta(t, 0.0, SparseDot(mode, idx, val, dense), 1e-15)

		dst := []float64{1, 1, 1, 1}
		SparseAddScaled(mode, dst, 2, idx, val)
		assert.Equal(t, []float64{5, 1, 1, 0}, dst)

		dst2 := []float64{1, 1}
		AddScaled(mode, dst2, -1, []float64{1, 0.5})
		assert.Equal(t, []float64{0, 0.5}, dst2)
	}
}

func TestNorms(t *testing.T) {
	v := []float64{3, -4}
	require.InDelta(t, 25.0, SquaredNorm(v), 0)
	require.InDelta(t, 4.0, MaxAbs(v), 0)
	require.Equal(t, 0.0, MaxAbs(nil))
	Zero(v)
	require.Equal(t, []float64{0, 0}, v)
	require.False(t, math.IsNaN(MaxAbs([]float64{-1})))
}
