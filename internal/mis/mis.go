// Package mis implements Minimal Interval Semantic Match: for a candidate
// document aligned across every query term, it enumerates position
// windows bounded by the query's slop, one window per occurrence of the
// first term's token in the document.
package mis

import "github.com/Aman-CERP/minisearch/internal/docid"

// GroupMember is one fuzzy variant of a query term as found in a specific
// candidate document: its token ID, edit distance from the query text, and
// the ascending positions at which it occurs in that document.
type GroupMember struct {
	TokenID   uint32
	Distance  int
	Positions []uint32
}

// TokenMeta describes the group member that sat at the head of its group
// when a window closed.
type TokenMeta struct {
	TokenID  uint32
	TermFreq int
	Distance int
}

// Window is one matched position window within a candidate document.
type Window struct {
	DocID  docid.ID
	Slop   int
	Tokens []TokenMeta
}

type groupIter struct {
	members []GroupMember
	idx     []int
	head    int
}

func newGroupIter(members []GroupMember) *groupIter {
	g := &groupIter{members: members, idx: make([]int, len(members))}
	g.refreshHead()
	return g
}

// refreshHead finds the member currently holding the smallest unread
// position and records it as head; it returns false once every member is
// exhausted.
func (g *groupIter) refreshHead() (uint32, bool) {
	best := -1
	var bestPos uint32
	for i, m := range g.members {
		if g.idx[i] >= len(m.Positions) {
			continue
		}
		pos := m.Positions[g.idx[i]]
		if best == -1 || pos < bestPos {
			best = i
			bestPos = pos
		}
	}
	g.head = best
	if best == -1 {
		return 0, false
	}
	return bestPos, true
}

func (g *groupIter) peek() (uint32, bool) { return g.refreshHead() }

func (g *groupIter) next() {
	if g.head == -1 {
		return
	}
	g.idx[g.head]++
}

// closest advances the group until its current position strictly exceeds
// target, reporting that position, or false if the group is exhausted
// first.
func (g *groupIter) closest(target uint32) (uint32, bool) {
	for {
		pos, ok := g.refreshHead()
		if !ok {
			return 0, false
		}
		if pos > target {
			return pos, true
		}
		g.next()
	}
}

func (g *groupIter) lastMeta() TokenMeta {
	m := g.members[g.head]
	return TokenMeta{TokenID: m.TokenID, TermFreq: len(m.Positions), Distance: m.Distance}
}

func absDelta(a, b int) int {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}

// Search enumerates every slop-bounded window across groups (one per
// query term, in order) for a single candidate document.
func Search(docID docid.ID, groups [][]GroupMember, querySlop int) []Window {
	if len(groups) == 0 {
		return nil
	}

	iters := make([]*groupIter, len(groups))
	for i, g := range groups {
		iters[i] = newGroupIter(g)
	}

	var windows []Window
	for {
		w0, ok := iters[0].peek()
		if !ok {
			break
		}

		window := make([]uint32, len(iters))
		window[0] = w0
		totalSlop := 0
		completed := true
		exhausted := false

		for i := 1; i < len(iters); i++ {
			pos, ok := iters[i].closest(window[i-1])
			if !ok {
				exhausted = true
				completed = false
				break
			}
			window[i] = pos
			totalSlop += absDelta(int(window[i-1]), int(pos)-1)
			if totalSlop > querySlop {
				completed = false
				break
			}
		}

		if exhausted {
			break
		}

		if completed {
			tokens := make([]TokenMeta, len(iters))
			for i, it := range iters {
				tokens[i] = it.lastMeta()
			}
			windows = append(windows, Window{DocID: docID, Slop: totalSlop, Tokens: tokens})
		}

		iters[0].next()
	}
	return windows
}
