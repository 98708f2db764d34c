// Package minisearch is the public API surface of the embeddable
// full-text search engine: open an index directory, add and remove
// documents, and run fuzzy/phrase BM25 queries against it.
//
// # Usage
//
//	idx, err := minisearch.Open("./data/index", minisearch.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//
//	id, err := idx.Add(ctx, "the quick brown fox jumps over the lazy dog")
//	results, err := idx.Search(ctx, `"quick fox"~2`, 10)
//
// # Thread Safety
//
// The underlying engine follows a single-writer model: every Index method
// runs under the engine's one mutex for its whole duration, so concurrent
// calls on one Index are serialized rather than run in parallel. Two Index
// values opened on the same directory do not coordinate with each other.
package minisearch

import (
	"context"

	"github.com/Aman-CERP/minisearch/internal/docid"
	"github.com/Aman-CERP/minisearch/internal/docstore"
	"github.com/Aman-CERP/minisearch/internal/engine"
	"github.com/Aman-CERP/minisearch/internal/indexlog"
	"github.com/Aman-CERP/minisearch/internal/score"
)

// Config controls every tunable of the underlying engine. The zero value
// is not ready to use; call DefaultConfig and override individual fields.
type Config = engine.Config

// DefaultConfig returns the engine's documented defaults.
func DefaultConfig() Config { return engine.DefaultConfig() }

// Document is a single stored document.
type Document struct {
	ID      string
	Content string
}

// Result is one ranked search hit.
type Result struct {
	Score    float64
	Document Document
}

// Index is an opened search index rooted at one directory.
type Index struct {
	eng *engine.Engine
}

// Open loads (or initializes) an index at dir.
func Open(dir string, cfg Config) (*Index, error) {
	eng, err := engine.Open(dir, cfg)
	if err != nil {
		return nil, err
	}
	return &Index{eng: eng}, nil
}

// Add analyses and stores content, returning its document ID.
//
// The context is accepted for API symmetry with the rest of the surface
// and is not currently checked mid-call: Add completes synchronously and
// does not block on I/O long enough to warrant cancellation.
func (idx *Index) Add(_ context.Context, content string) (string, error) {
	id, err := idx.eng.Add(content)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Get returns a previously added document by ID.
func (idx *Index) Get(_ context.Context, id string) (Document, error) {
	parsed, err := docid.Parse(id)
	if err != nil {
		return Document{}, err
	}
	doc, err := idx.eng.Get(parsed)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Content: doc.Content}, nil
}

// Delete tombstones a document by ID, reporting whether it existed.
func (idx *Index) Delete(_ context.Context, id string) (bool, error) {
	parsed, err := docid.Parse(id)
	if err != nil {
		return false, err
	}
	return idx.eng.Delete(parsed)
}

// Search parses and runs a query, returning its top-scoring documents. A
// non-positive topK means unbounded.
//
// Query syntax: a bag of whitespace-separated terms (AND semantics), or a
// double-quoted phrase. Append ~N to a term for a fixed edit-distance fuzzy
// match, or bare ~ to request the engine's length-scaled default fuzziness.
// A quoted phrase may be followed by ~N to set its slop (the maximum total
// positional drift tolerated across the phrase).
func (idx *Index) Search(_ context.Context, query string, topK int) ([]Result, error) {
	hits, err := idx.eng.Search(query, topK)
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = Result{Score: h.Score, Document: Document{ID: h.Document.ID.String(), Content: h.Document.Content}}
	}
	return out, nil
}

// Flush forces every buffered write — document bodies, index-log records,
// the token hasher, and the deferred delete purge — to disk.
func (idx *Index) Flush() error { return idx.eng.Flush() }

// Merge compacts document-store segments whose deleted-byte ratio has
// crossed the configured threshold.
func (idx *Index) Merge() error { return idx.eng.Merge() }

// Stats is a snapshot of an index's size.
type Stats = engine.Stats

// Stats reports the current document, segment, and distinct-token counts.
func (idx *Index) Stats() Stats { return idx.eng.Stats() }

// Close flushes every buffered write to disk, the same as Flush. It does
// not close the files the engine holds open.
func (idx *Index) Close() error {
	return idx.eng.Flush()
}

// DocstoreConfig and IndexlogConfig are re-exported so callers can tune
// the storage and index-log layers without importing internal packages.
type (
	DocstoreConfig = docstore.Config
	IndexlogConfig = indexlog.Config
	ScoreParams    = score.Params
)
