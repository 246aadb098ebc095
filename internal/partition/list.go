// Package partition implements an index list that assigns every element of
// [0, count) to at most one of a fixed number of partitions.
//
// Elements and partition headers live in one arena addressed by integers:
// slots [0, count) are elements, slots [count, count+partitions) are the
// sentinel headers of the circular doubly-linked partition rings. Every
// operation that touches a single element is O(1).
package partition

import (
	"fmt"
	"iter"
)

// None is returned by Where for an element that is in no partition.
const None = -1

// List is a partitioned index list. It is not safe for concurrent mutation.
type List struct {
	count      int
	partitions int
	prev       []int
	next       []int
	owner      []int // partition of each element, None when detached
	attached   []int
	sizes      []int
}

// New creates a list for count elements and the given number of partitions.
// All elements start detached.
func New(count, partitions int) *List {
	if count < 0 || partitions <= 0 {
		panic(fmt.Sprintf("partition: invalid dimensions count=%d partitions=%d", count, partitions))
	}
	slots := count + partitions
	l := &List{
		count:      count,
		partitions: partitions,
		prev:       make([]int, slots),
		next:       make([]int, slots),
		owner:      make([]int, count),
		attached:   make([]int, count),
		sizes:      make([]int, partitions),
	}
	for i := range count {
		l.owner[i] = None
		l.prev[i] = i
		l.next[i] = i
	}
	for p := range partitions {
		h := l.header(p)
		l.prev[h] = h
		l.next[h] = h
	}
	return l
}

// Count returns the number of elements the list was created for.
func (l *List) Count() int { return l.count }

// Partitions returns the number of partitions.
func (l *List) Partitions() int { return l.partitions }

func (l *List) header(p int) int { return l.count + p }

func (l *List) checkIndex(index int) {
	if index < 0 || index >= l.count {
		panic(fmt.Sprintf("partition: index %d out of range [0,%d)", index, l.count))
	}
}

func (l *List) checkPartition(p int) {
	if p < 0 || p >= l.partitions {
		panic(fmt.Sprintf("partition: partition %d out of range [0,%d)", p, l.partitions))
	}
}

// link appends slot index at the tail of partition p.
func (l *List) link(index, p int) {
	h := l.header(p)
	tail := l.prev[h]
	l.next[tail] = index
	l.prev[index] = tail
	l.next[index] = h
	l.prev[h] = index
	l.owner[index] = p
	l.sizes[p]++
}

func (l *List) unlink(index int) {
	p := l.owner[index]
	pr, nx := l.prev[index], l.next[index]
	l.next[pr] = nx
	l.prev[nx] = pr
	l.prev[index] = index
	l.next[index] = index
	l.owner[index] = None
	l.sizes[p]--
}

// Insert places a detached element into partition p with an attached value.
// Inserting an element that already belongs to a partition moves it.
func (l *List) Insert(index, p, attached int) {
	l.checkIndex(index)
	l.checkPartition(p)
	if l.owner[index] != None {
		l.unlink(index)
	}
	l.link(index, p)
	l.attached[index] = attached
}

// Move reassigns an element to partition p, keeping its attached value.
// Moving a detached element inserts it.
func (l *List) Move(index, p int) {
	l.checkIndex(index)
	l.checkPartition(p)
	if l.owner[index] == p {
		return
	}
	if l.owner[index] != None {
		l.unlink(index)
	}
	l.link(index, p)
}

// Remove detaches an element. Removing a detached element is a no-op.
func (l *List) Remove(index int) {
	l.checkIndex(index)
	if l.owner[index] != None {
		l.unlink(index)
	}
}

// Where returns the partition of index, or None when it is detached.
// An index outside [0, Count()) panics.
func (l *List) Where(index int) int {
	l.checkIndex(index)
	return l.owner[index]
}

// Attached returns the value attached to index.
func (l *List) Attached(index int) int {
	l.checkIndex(index)
	return l.attached[index]
}

// SetAttached replaces the value attached to index.
func (l *List) SetAttached(index, v int) {
	l.checkIndex(index)
	l.attached[index] = v
}

// Size returns the number of elements in partition p.
func (l *List) Size(p int) int {
	l.checkPartition(p)
	return l.sizes[p]
}

// Range returns the elements of partition p in insertion order. The element
// just yielded may be moved or removed by the caller; other mutations of the
// same partition during iteration give unspecified results.
func (l *List) Range(p int) iter.Seq[int] {
	l.checkPartition(p)
	return func(yield func(int) bool) {
		h := l.header(p)
		for cur := l.next[h]; cur != h; {
			nx := l.next[cur]
			if !yield(cur) {
				return
			}
			cur = nx
		}
	}
}

// Indices collects the elements of partition p into dst and returns it.
func (l *List) Indices(p int, dst []int) []int {
	dst = dst[:0]
	for i := range l.Range(p) {
		dst = append(dst, i)
	}
	return dst
}

// Clear detaches every element of partition p.
func (l *List) Clear(p int) {
	l.checkPartition(p)
	h := l.header(p)
	for cur := l.next[h]; cur != h; {
		nx := l.next[cur]
		l.prev[cur] = cur
		l.next[cur] = cur
		l.owner[cur] = None
		cur = nx
	}
	l.prev[h] = h
	l.next[h] = h
	l.sizes[p] = 0
}

// Reset detaches every element of every partition.
func (l *List) Reset() {
	for p := range l.partitions {
		l.Clear(p)
	}
}
