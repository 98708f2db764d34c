// Package analysis implements the text pipeline shared by documents and
// queries: lowercasing, Unicode word segmentation, stop-word filtering, and
// stemming.
package analysis

import (
	"bytes"
	"strings"

	"github.com/blevesearch/segment"
	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/english"
)

// DefaultStopWords is the standard English 35-word stop-word list.
var DefaultStopWords = []string{
	"a", "and", "are", "as", "at", "be", "but", "by",
	"for", "if", "in", "into", "is", "it",
	"no", "not", "of", "on", "or",
	"s", "such",
	"t", "that", "the", "their", "then", "there", "these", "they", "this", "to",
	"was", "will", "with", "www",
}

// Analyser lowercases, word-segments, filters stop words, and stems.
type Analyser struct {
	stopWords map[string]struct{}
}

// New builds an Analyser with the given stop-word set. A nil or empty set
// uses DefaultStopWords.
func New(stopWords []string) *Analyser {
	if len(stopWords) == 0 {
		stopWords = DefaultStopWords
	}
	set := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &Analyser{stopWords: set}
}

// DocumentResult is the analysis of one document: its retained token count
// and the ascending positions at which each stem occurs.
type DocumentResult struct {
	TokenCount int
	Positions  map[string][]uint32
}

// AnalyseDocument lowercases, segments, stop-filters, and stems text,
// returning stem -> ascending retained-token positions.
func (a *Analyser) AnalyseDocument(text string) DocumentResult {
	result := DocumentResult{Positions: make(map[string][]uint32)}

	var pos uint32
	for _, word := range words(text) {
		lower := strings.ToLower(word)
		if _, stop := a.stopWords[lower]; stop {
			continue
		}
		stem := stemWord(lower)
		if stem == "" {
			continue
		}
		result.Positions[stem] = append(result.Positions[stem], pos)
		pos++
	}
	result.TokenCount = int(pos)
	return result
}

// AnalyseTerm lowercases and stems a single query term (no segmentation —
// the query parser has already split the query into terms).
func (a *Analyser) AnalyseTerm(term string) string {
	return stemWord(strings.ToLower(term))
}

// IsStopWord reports whether word (case-insensitively) is in the stop-word
// set.
func (a *Analyser) IsStopWord(word string) bool {
	_, ok := a.stopWords[strings.ToLower(word)]
	return ok
}

// words splits text into its Unicode word segments, discarding
// non-"letter or number" segments (punctuation, whitespace).
func words(text string) []string {
	seg := segment.NewWordSegmenter(bytes.NewReader([]byte(text)))
	var out []string
	for seg.Segment() {
		switch seg.Type() {
		case segment.Letter, segment.Number, segment.Ideo, segment.Kana:
			out = append(out, string(seg.Bytes()))
		}
	}
	return out
}

func stemWord(word string) string {
	env := snowballstem.NewEnv(word)
	english.Stem(env)
	return env.Current()
}
