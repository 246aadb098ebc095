// Package breakpoint collects ratio-test breakpoints and hands them out in
// key order with a lazy heap sort.
package breakpoint

import (
	"iter"
	"math"
)

// Order is the direction in which Next returns breakpoints.
type Order int

const (
	// Descending returns the largest key first.
	Descending Order = iota
	// Ascending returns the smallest key first.
	Ascending
)

// String returns a human-readable representation of the order.
func (o Order) String() string {
	switch o {
	case Descending:
		return "Descending"
	case Ascending:
		return "Ascending"
	default:
		return "Unknown"
	}
}

// BreakPoint is one candidate step length of a ratio test.
type BreakPoint struct {
	Index    int     // variable index
	Row      int     // basis position, or -1 for a nonbasic variable
	Value    float64 // actual ratio
	Expanded float64 // ratio under expanded bounds, +Inf when not relaxed
	Alpha    float64 // pivot element
	Slope    float64 // objective slope just beyond this breakpoint
}

// Handler owns the breakpoints of one ratio-test call. Slots [0, heap) form
// a heap on the selected key; slots [heap, n) hold extracted breakpoints,
// the k-th in order at n-1-k.
type Handler struct {
	order       Order
	points      []BreakPoint
	useExpanded bool
	heap        int
	cursor      int
}

// New returns an empty handler.
func New(order Order) *Handler {
	return &Handler{order: order}
}

// Order returns the handler's direction.
func (h *Handler) Order() Order { return h.order }

// Reset discards all breakpoints, keeping storage.
func (h *Handler) Reset() {
	h.points = h.points[:0]
	h.heap = 0
	h.cursor = 0
}

// Len returns the number of breakpoints.
func (h *Handler) Len() int { return len(h.points) }

// Insert appends a breakpoint with an expanded ratio.
func (h *Handler) Insert(index int, value, expanded float64) {
	h.Add(BreakPoint{Index: index, Row: -1, Value: value, Expanded: expanded})
}

// InsertActual appends a breakpoint without expand relaxation.
func (h *Handler) InsertActual(index int, value float64) {
	h.Insert(index, value, math.Inf(1))
}

// Add appends bp. The ordering must be selected again before Next.
func (h *Handler) Add(bp BreakPoint) {
	h.points = append(h.points, bp)
	h.heap = 0
	h.cursor = 0
}

func (h *Handler) key(i int) float64 {
	if h.useExpanded {
		return h.points[i].Expanded
	}
	return h.points[i].Value
}

// before reports whether slot i must come out before slot j.
func (h *Handler) before(i, j int) bool {
	ki, kj := h.key(i), h.key(j)
	if ki != kj {
		if h.order == Ascending {
			return ki < kj
		}
		return ki > kj
	}
	return h.points[i].Index < h.points[j].Index
}

func (h *Handler) down(i, n int) {
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		c := l
		if r := l + 1; r < n && h.before(r, l) {
			c = r
		}
		if !h.before(c, i) {
			return
		}
		h.points[i], h.points[c] = h.points[c], h.points[i]
		i = c
	}
}

// SelectOrdering keys the handler on expanded or actual ratios and rebuilds
// the heap in O(n).
func (h *Handler) SelectOrdering(useExpanded bool) {
	h.useExpanded = useExpanded
	h.heap = len(h.points)
	h.cursor = 0
	for i := h.heap/2 - 1; i >= 0; i-- {
		h.down(i, h.heap)
	}
}

// sorted returns the number of breakpoints already extracted in order.
func (h *Handler) sorted() int { return len(h.points) - h.heap }

func (h *Handler) extract() {
	h.heap--
	h.points[0], h.points[h.heap] = h.points[h.heap], h.points[0]
	h.down(0, h.heap)
}

// Get returns the k-th breakpoint in order, sorting lazily up to k. The
// pointer stays valid until the next Reset, Add or SelectOrdering.
func (h *Handler) Get(k int) *BreakPoint {
	if k < 0 || k >= len(h.points) {
		return nil
	}
	for h.sorted() <= k {
		h.extract()
	}
	return &h.points[len(h.points)-1-k]
}

// Next returns the next breakpoint in order and false once exhausted.
func (h *Handler) Next() (*BreakPoint, bool) {
	bp := h.Get(h.cursor)
	if bp == nil {
		return nil, false
	}
	h.cursor++
	return bp, true
}

// Rewind restarts Next from the first breakpoint without re-sorting.
func (h *Handler) Rewind() { h.cursor = 0 }

// SecondPass re-keys on actual ratios and yields, in order, every
// breakpoint whose actual ratio is at most limit.
func (h *Handler) SecondPass(limit float64) iter.Seq[*BreakPoint] {
	h.SelectOrdering(false)
	return func(yield func(*BreakPoint) bool) {
		for k := range len(h.points) {
			bp := h.Get(k)
			if bp.Value > limit {
				if h.order == Ascending {
					return
				}
				continue
			}
			if !yield(bp) {
				return
			}
		}
	}
}
