// Package engine orchestrates every other internal package into the
// single-writer search engine: the token hasher, fuzzy trie, analyser,
// document store, index log, query parser, intersector, MIS, and scorer.
package engine

import (
	"bytes"
	"encoding/gob"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Aman-CERP/minisearch/internal/analysis"
	"github.com/Aman-CERP/minisearch/internal/docid"
	"github.com/Aman-CERP/minisearch/internal/docstore"
	minierrors "github.com/Aman-CERP/minisearch/internal/errors"
	"github.com/Aman-CERP/minisearch/internal/indexlog"
	"github.com/Aman-CERP/minisearch/internal/intersect"
	"github.com/Aman-CERP/minisearch/internal/mis"
	"github.com/Aman-CERP/minisearch/internal/query"
	"github.com/Aman-CERP/minisearch/internal/score"
	"github.com/Aman-CERP/minisearch/internal/tokenhash"
	"github.com/Aman-CERP/minisearch/internal/trie"
)

// Config bundles every tunable the engine's components expose.
type Config struct {
	Docstore docstore.Config
	Indexlog indexlog.Config
	Score    score.Params

	BodyCacheSize int

	MetadataSaveAfterOperations int
	MetadataSaveAfterSeconds    int

	// DeleteBufferMinimum and DeleteBufferFraction together define the
	// batch-purge threshold: purge runs once len(pendingPurge) reaches
	// max(DeleteBufferMinimum, liveCount/DeleteBufferFraction).
	DeleteBufferMinimum int
	DeleteBufferFraction int

	StopWords []string
}

// DefaultConfig matches the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		Docstore:                    docstore.DefaultConfig(),
		Indexlog:                    indexlog.DefaultConfig(),
		Score:                       score.DefaultParams(),
		BodyCacheSize:               256,
		MetadataSaveAfterOperations: 100_000,
		MetadataSaveAfterSeconds:    10,
		DeleteBufferMinimum:         1000,
		DeleteBufferFraction:        20,
	}
}

// Document is a stored document as returned to callers.
type Document struct {
	ID      docid.ID
	Content string
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Score    float64
	Document Document
}

// Engine is the top-level, single-writer search engine for one index
// directory. Every exported method holds e.mu for its whole duration, so
// concurrent calls run one at a time.
type Engine struct {
	mu  sync.Mutex
	dir string
	cfg Config

	store  *docstore.Store
	log    *indexlog.Log
	hasher *tokenhash.Hasher
	trie   *trie.Trie
	an     *analysis.Analyser
	gen    *docid.Generator

	avgDocLen        float64
	opsSinceMetaSave int
	lastMetaSave     time.Time
}

type searchMeta struct {
	AvgDocLen float64
}

// Open loads (or initializes) the engine rooted at dir.
func Open(dir string, cfg Config) (*Engine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, minierrors.IOError("create engine dir", err)
	}

	e := &Engine{
		dir:          dir,
		cfg:          cfg,
		an:           analysis.New(cfg.StopWords),
		gen:          docid.NewGenerator(),
		lastMetaSave: time.Now(),
	}

	if err := e.loadMeta(); err != nil {
		return nil, err
	}

	hasher, err := tokenhash.Load(dir, func(msg string, err error) {
		slog.Warn(msg, slog.String("error", err.Error()))
	})
	if err != nil {
		return nil, err
	}
	e.hasher = hasher

	t := trie.New()
	for _, tok := range hasher.Tokens() {
		t.Add(tok)
	}
	e.trie = t

	log, err := indexlog.Open(filepath.Join(dir, "index"), cfg.Indexlog)
	if err != nil {
		return nil, err
	}
	e.log = log

	store, err := docstore.Open(dir, cfg.Docstore, cfg.BodyCacheSize)
	if err != nil {
		return nil, err
	}
	e.store = store

	return e, nil
}

func (e *Engine) metaPath() string { return filepath.Join(e.dir, "meta") }

func (e *Engine) loadMeta() error {
	data, err := os.ReadFile(e.metaPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return minierrors.IOError("read search meta", err)
	}
	if len(data) == 0 {
		return nil
	}
	var m searchMeta
	if decErr := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); decErr != nil {
		return minierrors.DecodingError("decode search meta", decErr)
	}
	e.avgDocLen = m.AvgDocLen
	return nil
}

func (e *Engine) saveMetaLocked() error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(searchMeta{AvgDocLen: e.avgDocLen}); err != nil {
		return minierrors.EncodingError("encode search meta", err)
	}
	if err := os.WriteFile(e.metaPath(), buf.Bytes(), 0o644); err != nil {
		return minierrors.IOError("write search meta", err)
	}
	e.opsSinceMetaSave = 0
	e.lastMetaSave = time.Now()
	return nil
}

func (e *Engine) maybeSaveMetaLocked() error {
	e.opsSinceMetaSave++
	due := e.opsSinceMetaSave >= e.cfg.MetadataSaveAfterOperations ||
		time.Since(e.lastMetaSave) >= time.Duration(e.cfg.MetadataSaveAfterSeconds)*time.Second
	if !due {
		return nil
	}
	return e.saveMetaLocked()
}

// Add analyses, indexes, and stores a new document, returning its ID.
func (e *Engine) Add(content string) (docid.ID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.gen.New()
	if err != nil {
		return docid.ID{}, minierrors.DocIDGenerationError(err)
	}

	result := e.an.AnalyseDocument(content)

	tokenIDs := make([]uint32, 0, len(result.Positions))
	for stem, positions := range result.Positions {
		tokenID, err := e.hasher.Add(stem)
		if err != nil {
			return docid.ID{}, err
		}
		e.trie.Add(stem) // no-op if already present
		tokenIDs = append(tokenIDs, tokenID)

		posting := indexlog.Posting{DocID: id, Positions: append([]uint32(nil), positions...)}
		if err := e.log.Add(tokenID, posting); err != nil {
			return docid.ID{}, err
		}
	}

	liveBefore := e.store.LiveCount()
	if err := e.store.Write(id, uint32(result.TokenCount), tokenIDs, []byte(content)); err != nil {
		return docid.ID{}, err
	}

	if liveBefore == 0 {
		e.avgDocLen = float64(result.TokenCount)
	} else {
		e.avgDocLen = (e.avgDocLen*float64(liveBefore) + float64(result.TokenCount)) / float64(liveBefore+1)
	}

	if err := e.maybeSaveMetaLocked(); err != nil {
		return docid.ID{}, err
	}
	return id, nil
}

// Get returns a stored document's content.
func (e *Engine) Get(id docid.ID) (Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, body, err := e.store.Get(id)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Content: string(body)}, nil
}

// Delete tombstones a document and, once the deferred purge buffer has
// grown large enough to be worth the batch cost, purges the affected
// postings from the index log, trie, and hasher. It reports whether the
// document existed.
func (e *Engine) Delete(id docid.ID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, existed, err := e.store.Delete(id)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}

	if e.shouldPurgeLocked() {
		if err := e.batchPurgeLocked(); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (e *Engine) shouldPurgeLocked() bool {
	pending := len(e.store.PendingPurge())
	if pending == 0 {
		return false
	}
	threshold := e.cfg.DeleteBufferMinimum
	if byFraction := e.store.LiveCount() / e.cfg.DeleteBufferFraction; byFraction > threshold {
		threshold = byFraction
	}
	return pending >= threshold
}

func (e *Engine) batchPurgeLocked() error {
	purge := e.store.PendingPurge()
	if len(purge) == 0 {
		return nil
	}

	purgeIDs := make(map[docid.ID]struct{}, len(purge))
	tokens := make(map[uint32]struct{})
	var totalLen uint64
	for id, doc := range purge {
		purgeIDs[id] = struct{}{}
		totalLen += uint64(doc.Len)
		for _, tok := range doc.Tokens {
			tokens[tok] = struct{}{}
		}
	}

	for tok := range tokens {
		if err := e.log.DeleteToken(tok, purgeIDs); err != nil {
			return err
		}
		if _, ok := e.log.Postings(tok); !ok {
			word, err := e.hasher.Delete(tok)
			if err != nil {
				return err
			}
			if word != "" {
				e.trie.Delete(word)
			}
		}
	}

	m := len(purge)
	liveCount := e.store.LiveCount()
	if liveCount > 0 {
		nBefore := float64(liveCount + m)
		e.avgDocLen = (e.avgDocLen*nBefore - float64(totalLen)) / float64(liveCount)
	} else {
		e.avgDocLen = 0
	}

	e.store.ClearPendingPurge()
	return e.maybeSaveMetaLocked()
}

// Flush forces the deferred purge, the index log, the token hasher, and
// the document store to persist every buffered write.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.batchPurgeLocked(); err != nil {
		return err
	}
	if err := e.log.Flush(); err != nil {
		return err
	}
	if err := e.hasher.Flush(); err != nil {
		return err
	}
	if err := e.store.Flush(); err != nil {
		return err
	}
	return e.saveMetaLocked()
}

// Merge compacts document-store segments past the deleted-ratio threshold.
func (e *Engine) Merge() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Merge()
}

// Stats is a snapshot of an index's size, for diagnostics and the MCP
// server's stats tool.
type Stats struct {
	DocCount     int
	SegmentCount int
	TokenCount   int
}

// Stats reports the current document, segment, and distinct-token counts.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		DocCount:     e.store.LiveCount(),
		SegmentCount: e.store.SegmentCount(),
		TokenCount:   len(e.hasher.Tokens()),
	}
}

// postingsAdapter exposes the index log as an intersect.PostingsIndex.
type postingsAdapter struct {
	log *indexlog.Log
}

func (a postingsAdapter) Postings(tokenID uint32) ([]intersect.Posting, bool) {
	ps, ok := a.log.Postings(tokenID)
	if !ok {
		return nil, false
	}
	out := make([]intersect.Posting, len(ps))
	for i, p := range ps {
		out[i] = intersect.Posting{DocID: p.DocID, Positions: p.Positions}
	}
	return out, true
}

// trieExpander resolves a query term to its fuzzy token variants: the trie
// is searched for words within the requested edit distance, and each
// surviving match (per the filter rule below) is resolved to its token ID.
type trieExpander struct {
	trie   *trie.Trie
	hasher *tokenhash.Hasher
}

func (x trieExpander) Expand(fuzz int, stem string) ([]intersect.Expansion, error) {
	matches, err := x.trie.Search(fuzz, stem)
	if err != nil {
		return nil, err
	}

	stemLen := len([]rune(stem))
	var out []intersect.Expansion
	for _, m := range matches {
		wordLen := len([]rune(m.Word))
		if m.Word != stem && !(stemLen > fuzz && wordLen > fuzz) {
			continue
		}
		tokenID, ok := x.hasher.Hash(m.Word)
		if !ok {
			continue
		}
		out = append(out, intersect.Expansion{TokenID: tokenID, Distance: m.Distance})
	}
	return out, nil
}

type tokenVariant struct {
	postingsCount int64
	termFreq      int
	distance      int
	positions     []uint32
}

// Search parses queryText, aligns it against the index, and returns its
// top-scoring documents. A negative or zero topK means unbounded.
func (e *Engine) Search(queryText string, topK int) ([]SearchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	parsed, err := query.Parse(strings.ToLower(queryText))
	if err != nil {
		return nil, err
	}

	terms := make([]intersect.TermQuery, len(parsed.Terms))
	for i, t := range parsed.Terms {
		terms[i] = intersect.TermQuery{Text: e.an.AnalyseTerm(t.Text), Fuzz: t.Fuzz}
	}

	expander := trieExpander{trie: e.trie, hasher: e.hasher}
	index := postingsAdapter{log: e.log}

	iter, ok, err := intersect.New(index, expander, terms)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	liveCount := int64(e.store.LiveCount())
	topk := score.NewTopK(topK)

	for {
		cand, ok, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		doc, found := e.store.Peek(cand.DocID)
		if !found {
			continue
		}

		variants := make(map[uint32]tokenVariant)
		groups := make([][]score.Variant, len(cand.Groups))
		misGroups := make([][]mis.GroupMember, len(cand.Groups))
		for gi, members := range cand.Groups {
			groups[gi] = make([]score.Variant, len(members))
			misGroups[gi] = make([]mis.GroupMember, len(members))
			for mi, gm := range members {
				postings, _ := e.log.Postings(gm.TokenID)
				var positions []uint32
				for _, p := range postings {
					if p.DocID == cand.DocID {
						positions = p.Positions
						break
					}
				}
				v := tokenVariant{
					postingsCount: int64(len(postings)),
					termFreq:      len(positions),
					distance:      gm.Distance,
					positions:     positions,
				}
				variants[gm.TokenID] = v
				groups[gi][mi] = score.Variant{PostingsCount: v.postingsCount, TermFreq: v.termFreq, Distance: v.distance}
				misGroups[gi][mi] = mis.GroupMember{TokenID: gm.TokenID, Distance: v.distance, Positions: positions}
			}
		}

		upperBound := score.MaxBM25(groups, liveCount, doc.Len, e.avgDocLen, e.cfg.Score)
		if topk.Full() {
			if min, ok := topk.Min(); ok && upperBound <= min.Score {
				continue
			}
		}

		windows := mis.Search(cand.DocID, misGroups, parsed.Slop)
		best := 0.0
		for _, w := range windows {
			windowTerms := make([]score.Variant, len(w.Tokens))
			for i, tm := range w.Tokens {
				v := variants[tm.TokenID]
				windowTerms[i] = score.Variant{PostingsCount: v.postingsCount, TermFreq: tm.TermFreq, Distance: tm.Distance}
			}
			if s := score.WindowScore(windowTerms, w.Slop, liveCount, doc.Len, e.avgDocLen, e.cfg.Score); s > best {
				best = s
			}
		}

		if best <= 0 {
			continue
		}
		topk.Offer(score.Result{DocID: cand.DocID, Score: best})
	}

	ranked := topk.Results()
	out := make([]SearchResult, 0, len(ranked))
	for _, r := range ranked {
		_, body, err := e.store.Get(r.DocID)
		if err != nil {
			return nil, err
		}
		out = append(out, SearchResult{Score: r.Score, Document: Document{ID: r.DocID, Content: string(body)}})
	}
	return out, nil
}
