// Package trie implements a character trie over the set of live tokens,
// answering Levenshtein-bounded fuzzy searches via a vellum automaton used
// to prune the traversal, with the exact edit distance of each match
// computed directly.
package trie

import (
	"sort"
	"unicode/utf8"

	"github.com/blevesearch/vellum/levenshtein"
)

// node is a single trie node. Children are kept sorted by rune and probed
// with binary search, per the spec's ordered-vector-of-children design.
type node struct {
	char     rune
	isWord   bool
	children []*node
}

func (n *node) find(c rune) (*node, int) {
	i := sort.Search(len(n.children), func(i int) bool { return n.children[i].char >= c })
	if i < len(n.children) && n.children[i].char == c {
		return n.children[i], i
	}
	return nil, i
}

func (n *node) insertAt(i int, c *node) {
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = c
}

// Trie is a fuzzy-searchable set of tokens.
type Trie struct {
	root *node
}

// New returns an empty Trie.
func New() *Trie {
	return &Trie{root: &node{}}
}

// Add inserts word into the trie. A no-op if already present.
func (t *Trie) Add(word string) {
	n := t.root
	for _, c := range word {
		child, i := n.find(c)
		if child == nil {
			child = &node{char: c}
			n.insertAt(i, child)
		}
		n = child
	}
	n.isWord = true
}

// Delete removes word from the trie, pruning empty interior nodes bottom-up.
func (t *Trie) Delete(word string) {
	path := make([]*node, 0, len(word)+1)
	path = append(path, t.root)

	n := t.root
	for _, c := range word {
		child, _ := n.find(c)
		if child == nil {
			return // not present
		}
		path = append(path, child)
		n = child
	}
	if !n.isWord {
		return
	}
	n.isWord = false

	for i := len(path) - 1; i > 0; i-- {
		cur := path[i]
		if cur.isWord || len(cur.children) > 0 {
			break
		}
		parent := path[i-1]
		_, idx := parent.find(cur.char)
		parent.children = append(parent.children[:idx], parent.children[idx+1:]...)
	}
}

// Match is one fuzzy search hit: the stored word and its exact Levenshtein
// distance from the query.
type Match struct {
	Word     string
	Distance int
}

// Search returns every stored word within Levenshtein distance d of query,
// each paired with its exact distance. Order is unspecified.
func (t *Trie) Search(d int, query string) ([]Match, error) {
	automaton, err := levenshtein.New(query, uint8(d))
	if err != nil {
		return nil, err
	}

	var out []Match
	buf := make([]rune, 0, len(query)+d+1)
	var walk func(n *node, state int)
	walk = func(n *node, state int) {
		if n.isWord && automaton.IsMatch(state) {
			word := string(buf)
			out = append(out, Match{Word: word, Distance: editDistance(word, query)})
		}
		for _, child := range n.children {
			childState := stepAutomaton(automaton, state, child.char)
			if !automaton.CanMatch(childState) {
				continue
			}
			buf = append(buf, child.char)
			walk(child, childState)
			buf = buf[:len(buf)-1]
		}
	}
	walk(t.root, automaton.Start())
	return out, nil
}

// stepAutomaton advances the automaton over all UTF-8 bytes of c, since
// vellum's Automaton interface is byte-oriented (it is built to walk FSTs
// keyed by raw bytes).
func stepAutomaton(a *levenshtein.Levenshtein, state int, c rune) int {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], c)
	for i := 0; i < n; i++ {
		state = a.Accept(state, buf[i])
	}
	return state
}

// editDistance computes the exact Levenshtein distance between a and b via
// the standard two-row dynamic program, operating on runes so multi-byte
// UTF-8 characters count as one edit each.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			cur[j] = min3(del, ins, sub)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
