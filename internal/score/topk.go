package score

import (
	"container/heap"
	"sort"

	"github.com/Aman-CERP/minisearch/internal/docid"
)

// Result is one scored candidate document.
type Result struct {
	DocID docid.ID
	Score float64
}

type resultHeap []Result

func (h resultHeap) Len() int { return len(h) }
func (h resultHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	// Ties broken by doc ID descending: the smaller doc ID is considered
	// the weaker result, so it sits at the min-heap's root and is evicted
	// first.
	return h[i].DocID.Compare(h[j].DocID) < 0
}
func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)   { *h = append(*h, x.(Result)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	*h = old[:n-1]
	return r
}

// TopK is a bounded min-heap of the best-scoring candidates seen so far.
// A capacity of 0 means unbounded: every positive-scoring offer is kept and
// the top-K upper-bound pruning optimisation does not apply.
type TopK struct {
	capacity int
	h        resultHeap
}

// NewTopK builds a TopK with the given capacity (0 for unbounded).
func NewTopK(capacity int) *TopK {
	return &TopK{capacity: capacity}
}

// Full reports whether the heap has reached capacity. Always false when
// unbounded.
func (t *TopK) Full() bool {
	return t.capacity > 0 && len(t.h) >= t.capacity
}

// Min returns the current weakest kept result, if the heap is non-empty.
func (t *TopK) Min() (Result, bool) {
	if len(t.h) == 0 {
		return Result{}, false
	}
	return t.h[0], true
}

// Offer inserts r if there is room, or if r beats the current weakest kept
// result (which is then evicted). Non-positive scores are never kept.
func (t *TopK) Offer(r Result) {
	if r.Score <= 0 {
		return
	}
	if t.capacity <= 0 {
		heap.Push(&t.h, r)
		return
	}
	if len(t.h) < t.capacity {
		heap.Push(&t.h, r)
		return
	}
	min := t.h[0]
	if r.Score > min.Score || (r.Score == min.Score && r.DocID.Compare(min.DocID) > 0) {
		t.h[0] = r
		heap.Fix(&t.h, 0)
	}
}

// Results returns a copy of the kept results sorted descending by score,
// ties broken by doc ID descending. The heap itself is left unchanged.
func (t *TopK) Results() []Result {
	out := make([]Result, len(t.h))
	copy(out, t.h)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocID.Compare(out[j].DocID) > 0
	})
	return out
}
