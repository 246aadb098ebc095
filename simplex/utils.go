package simplex

import (
	"fmt"
	"math"
	"sort"
)

// InfiniteBound is the magnitude from which a bound counts as infinite,
// so that models written with 1e30 for "no bound" behave as intended.
const InfiniteBound = 1e20

// Inf returns positive infinity, suitable for unbounded variable bounds.
func Inf() float64 {
	return math.Inf(1)
}

// NegInf returns negative infinity, suitable for unbounded variable bounds.
func NegInf() float64 {
	return math.Inf(-1)
}

// normalizeBounds maps values beyond InfiniteBound to ±∞.
func normalizeBounds(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, b := range v {
		switch {
		case b >= InfiniteBound:
			out[i] = math.Inf(1)
		case b <= -InfiniteBound:
			out[i] = math.Inf(-1)
		default:
			out[i] = b
		}
	}
	return out
}

// fillNames returns nil when nothing is named, and otherwise names the
// unnamed entries prefix+index.
func fillNames(names []string, prefix string) []string {
	named := false
	for _, n := range names {
		if n != "" {
			named = true
			break
		}
	}
	if !named {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		if n == "" {
			n = fmt.Sprintf("%s%d", prefix, i)
		}
		out[i] = n
	}
	return out
}

// nonzerosToCSR converts a slice of Nonzero elements to compressed sparse
// row format with one start per row, including empty rows.
func nonzerosToCSR(nz []Nonzero, numRow int) (start, index []int, value []float64, err error) {
	sorted := make([]Nonzero, len(nz))
	copy(sorted, nz)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Col < sorted[j].Col
	})

	// Validate and deduplicate
	filtered := make([]Nonzero, 0, len(sorted))
	for _, n := range sorted {
		if n.Row < 0 || n.Col < 0 {
			return nil, nil, nil, newErrorMsg("nonzerosToCSR", "negative row or column index")
		}
		if n.Row >= numRow {
			return nil, nil, nil, newErrorMsg("nonzerosToCSR", "row index out of range")
		}
		// Merge duplicates (keep last value)
		if len(filtered) > 0 && filtered[len(filtered)-1].Row == n.Row && filtered[len(filtered)-1].Col == n.Col {
			filtered[len(filtered)-1].Val = n.Val
		} else {
			filtered = append(filtered, n)
		}
	}

	start = make([]int, numRow)
	index = make([]int, len(filtered))
	value = make([]float64, len(filtered))
	k := 0
	for r := range numRow {
		start[r] = k
		for k < len(filtered) && filtered[k].Row == r {
			index[k] = filtered[k].Col
			value[k] = filtered[k].Val
			k++
		}
	}
	return start, index, value, nil
}

// expandSlice expands a slice to length n if it's empty, filling with fillValue.
// Returns the original slice if it already has length n.
// Returns an error if the slice has a non-zero length that differs from n.
func expandSlice(n int, slice []float64, fillValue float64) ([]float64, error) {
	if len(slice) == n {
		return slice, nil
	}
	if len(slice) == 0 {
		result := make([]float64, n)
		for i := range result {
			result[i] = fillValue
		}
		return result, nil
	}
	return nil, newErrorMsg("expandSlice", "inconsistent slice length")
}

// maxRowCol finds the maximum row and column indices from a slice of nonzeros.
func maxRowCol(nz []Nonzero) (maxRow, maxCol int) {
	maxRow, maxCol = -1, -1
	for _, n := range nz {
		if n.Row > maxRow {
			maxRow = n.Row
		}
		if n.Col > maxCol {
			maxCol = n.Col
		}
	}
	return maxRow, maxCol
}
