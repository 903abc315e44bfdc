package rank

import (
	"container/heap"
	"sort"
)

// Entry is one regular file discovered during a scan.
type Entry struct {
	Size int64
	Path string
}

// Higher reports whether a ranks above b: larger size wins, and equal sizes
// fall back to the lexicographically smaller path. Two distinct files never
// share a path, so the order is strict and total.
func Higher(a, b Entry) bool {
	if a.Size != b.Size {
		return a.Size > b.Size
	}
	return a.Path < b.Path
}

// entryHeap is a min-heap whose root is the worst-ranked entry held, so the
// cheapest entry to give up is always the one evicted on overflow.
type entryHeap []Entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return Higher(h[j], h[i]) }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(Entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Selector retains the best capacity entries seen so far. Inserts cost
// O(log capacity), so a full scan of M files is O(M log capacity) rather
// than the O(M log M) of collect-then-sort.
//
// A Selector is not safe for concurrent use; each scan worker owns its own.
type Selector struct {
	h        entryHeap
	capacity int
}

// NewSelector creates a Selector holding at most capacity entries.
// Capacity 0 is valid: every admitted entry is immediately evicted.
func NewSelector(capacity int) *Selector {
	return &Selector{
		h:        make(entryHeap, 0, capacity+1),
		capacity: capacity,
	}
}

// Add admits e, then evicts the single worst-ranked entry if the selector
// now exceeds its capacity.
func (s *Selector) Add(e Entry) {
	if len(s.h) == s.capacity && s.capacity > 0 && !Higher(e, s.h[0]) {
		// Ranks at or below the current worst: admitting it would evict it.
		return
	}
	heap.Push(&s.h, e)
	if len(s.h) > s.capacity {
		heap.Pop(&s.h)
	}
}

// Len returns the number of entries currently held.
func (s *Selector) Len() int { return len(s.h) }

// Drain consumes the selector and returns its entries in unspecified order.
// The selector must not be used afterwards.
func (s *Selector) Drain() []Entry {
	out := s.h
	s.h = nil
	return out
}

// Merge folds every selector into one fresh selector of the given capacity
// and returns the result in final order: size descending, path ascending.
// The output depends only on the multiset of held entries and the capacity,
// never on selector count or merge order — this is what makes the parallel
// scan reproducible.
func Merge(selectors []*Selector, capacity int) []Entry {
	final := NewSelector(capacity)
	for _, s := range selectors {
		for _, e := range s.Drain() {
			final.Add(e)
		}
	}
	out := final.Drain()
	sort.Slice(out, func(i, j int) bool { return Higher(out[i], out[j]) })
	return out
}
