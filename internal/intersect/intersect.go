// Package intersect aligns the postings of several query terms (each
// possibly expanded into multiple fuzzy token variants) into a stream of
// candidate documents, using a per-term min-heap and galloping catch-up so
// the whole intersection runs in roughly the size of the shortest
// postings list rather than the product of all of them.
package intersect

import (
	"container/heap"
	"sort"

	"github.com/Aman-CERP/minisearch/internal/docid"
)

// Posting is the minimal shape intersect needs from a stored posting.
type Posting struct {
	DocID     docid.ID
	Positions []uint32
}

// PostingsIndex looks up the ordered-by-doc-ID postings vector for a token.
type PostingsIndex interface {
	Postings(tokenID uint32) ([]Posting, bool)
}

// Expansion is one fuzzy variant of a query term, already resolved to a
// token ID, paired with its edit distance from the original term text.
type Expansion struct {
	TokenID  uint32
	Distance int
}

// Expander resolves a query term (with its requested fuzziness) to every
// token it should match.
type Expander interface {
	Expand(fuzz int, text string) ([]Expansion, error)
}

// TermQuery is one query term as the intersector needs it.
type TermQuery struct {
	Text string
	Fuzz int
}

// GroupMember is one fuzzy variant of a term found in the current
// candidate document.
type GroupMember struct {
	TokenID  uint32
	DocIdx   int
	Distance int
}

// Candidate is one document aligned across every query term: Groups[i]
// holds every fuzzy variant of term i present in this document.
type Candidate struct {
	DocID  docid.ID
	Groups [][]GroupMember
}

type pointer struct {
	tokenID  uint32
	docIdx   int
	distance int
	docID    docid.ID
}

type termHeap []pointer

func (h termHeap) Len() int { return len(h) }
func (h termHeap) Less(i, j int) bool {
	return h[i].docID.Compare(h[j].docID) < 0
}
func (h termHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *termHeap) Push(x any)        { *h = append(*h, x.(pointer)) }
func (h *termHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	*h = old[:n-1]
	return p
}

// Iterator yields aligned candidate documents across every query term.
type Iterator struct {
	index PostingsIndex
	terms []*termHeap
	done  bool
}

// New builds an Iterator over the given terms. It returns (nil, false) if
// any term has no surviving postings at all (the intersection is
// statically empty).
func New(index PostingsIndex, expander Expander, queryTerms []TermQuery) (*Iterator, bool, error) {
	it := &Iterator{index: index, terms: make([]*termHeap, len(queryTerms))}

	for i, term := range queryTerms {
		expansions, err := expander.Expand(term.Fuzz, term.Text)
		if err != nil {
			return nil, false, err
		}

		h := &termHeap{}
		for _, exp := range expansions {
			postings, ok := index.Postings(exp.TokenID)
			if !ok || len(postings) == 0 {
				continue
			}
			heap.Push(h, pointer{
				tokenID:  exp.TokenID,
				docIdx:   0,
				distance: exp.Distance,
				docID:    postings[0].DocID,
			})
		}
		if h.Len() == 0 {
			return nil, false, nil
		}
		it.terms[i] = h
	}

	return it, true, nil
}

// Next returns the next aligned candidate document, or ok=false once the
// intersection is exhausted.
func (it *Iterator) Next() (*Candidate, bool, error) {
	if it.done {
		return nil, false, nil
	}

	n := len(it.terms)
	current := make([][]pointer, n)
	for i := range it.terms {
		group, ok := it.advanceTerm(i)
		if !ok {
			it.done = true
			return nil, false, nil
		}
		current[i] = group
	}

	for {
		target := current[0][0].docID
		for i := 1; i < n; i++ {
			if current[i][0].docID.Compare(target) > 0 {
				target = current[i][0].docID
			}
		}

		aligned := true
		for i := 0; i < n; i++ {
			if current[i][0].docID.Compare(target) != 0 {
				aligned = false
				break
			}
		}
		if aligned {
			break
		}

		for i := 0; i < n; i++ {
			if current[i][0].docID.Compare(target) == 0 {
				continue
			}
			it.gallop(i, target)
			group, ok := it.advanceTerm(i)
			if !ok {
				it.done = true
				return nil, false, nil
			}
			current[i] = group
		}
	}

	groups := make([][]GroupMember, n)
	for i, group := range current {
		members := make([]GroupMember, len(group))
		for j, p := range group {
			members[j] = GroupMember{TokenID: p.tokenID, DocIdx: p.docIdx, Distance: p.distance}
		}
		groups[i] = members
	}
	return &Candidate{DocID: target, Groups: groups}, true, nil
}

// advanceTerm pops every heap entry sharing the term's current minimum doc
// ID, pushing each one's successor (if any) back onto the heap, and
// returns the popped entries.
func (it *Iterator) advanceTerm(termIdx int) ([]pointer, bool) {
	h := it.terms[termIdx]
	if h.Len() == 0 {
		return nil, false
	}
	minID := (*h)[0].docID

	var group []pointer
	for h.Len() > 0 && (*h)[0].docID.Compare(minID) == 0 {
		p := heap.Pop(h).(pointer)
		group = append(group, p)

		postings, _ := it.index.Postings(p.tokenID)
		if p.docIdx+1 < len(postings) {
			heap.Push(h, pointer{
				tokenID:  p.tokenID,
				docIdx:   p.docIdx + 1,
				distance: p.distance,
				docID:    postings[p.docIdx+1].DocID,
			})
		}
	}
	return group, true
}

// gallop fast-forwards every heap entry of termIdx still behind target to
// the first posting with doc ID >= target, via binary search.
func (it *Iterator) gallop(termIdx int, target docid.ID) {
	h := it.terms[termIdx]
	for h.Len() > 0 && (*h)[0].docID.Compare(target) < 0 {
		p := heap.Pop(h).(pointer)
		postings, _ := it.index.Postings(p.tokenID)

		if p.docIdx+1 >= len(postings) {
			continue
		}
		rest := postings[p.docIdx+1:]
		idx := p.docIdx + 1 + sort.Search(len(rest), func(k int) bool {
			return rest[k].DocID.Compare(target) >= 0
		})
		if idx < len(postings) {
			heap.Push(h, pointer{
				tokenID:  p.tokenID,
				docIdx:   idx,
				distance: p.distance,
				docID:    postings[idx].DocID,
			})
		}
	}
}
