// Package score implements term-level BM25 scoring, the candidate
// max-score upper bound used to skip MIS entirely for hopeless candidates,
// and a bounded top-K result heap.
package score

import "math"

// Params are the BM25 tuning constants.
type Params struct {
	K           float64
	B           float64
	Epsilon     float64
	FuzzPenalty float64
}

// DefaultParams matches the engine's documented constants.
func DefaultParams() Params {
	return Params{K: 1.5, B: 0.75, Epsilon: 0.5, FuzzPenalty: 0.8}
}

// IDF is the inverse document frequency term, given the live document
// count N and a token's current postings-list length n_t.
func IDF(params Params, liveCount, postingsCount int64) float64 {
	n := float64(liveCount)
	nt := float64(postingsCount)
	return math.Log(((n-nt+params.Epsilon)/(nt+params.Epsilon))+1)
}

func rawTF(params Params, tf float64, docLen, avgDocLen float64) float64 {
	return (tf * (params.K + 1)) / (tf + params.K*(1-params.B+params.B*docLen/avgDocLen))
}

// TermScore is one token's BM25 contribution within a specific document,
// penalised by its fuzzy edit distance from the query term.
func TermScore(params Params, liveCount, postingsCount int64, termFreq int, docLen uint32, avgDocLen float64, editDistance int) float64 {
	idf := IDF(params, liveCount, postingsCount)
	raw := rawTF(params, float64(termFreq), float64(docLen), avgDocLen)
	penalty := math.Pow(params.FuzzPenalty, float64(editDistance))
	return idf * raw * penalty
}

// Variant is one fuzzy token variant of a query term's group, as observed
// in a specific candidate document.
type Variant struct {
	PostingsCount int64
	TermFreq      int
	Distance      int
}

// MaxBM25 is the candidate's score upper bound: for each term group, the
// best variant's term score, summed across groups, with no slop division.
// It is always >= any window score MIS could produce for this candidate,
// so it is safe to use for top-K pruning.
func MaxBM25(groups [][]Variant, liveCount int64, docLen uint32, avgDocLen float64, params Params) float64 {
	total := 0.0
	for _, group := range groups {
		best := 0.0
		for _, v := range group {
			s := TermScore(params, liveCount, v.PostingsCount, v.TermFreq, docLen, avgDocLen, v.Distance)
			if s > best {
				best = s
			}
		}
		total += best
	}
	return total
}

// WindowScore is a document's score from one MIS window: the sum of each
// group's head-member term score, divided by (slop + 1).
func WindowScore(terms []Variant, slop int, liveCount int64, docLen uint32, avgDocLen float64, params Params) float64 {
	total := 0.0
	for _, t := range terms {
		total += TermScore(params, liveCount, t.PostingsCount, t.TermFreq, docLen, avgDocLen, t.Distance)
	}
	return total / float64(slop+1)
}
