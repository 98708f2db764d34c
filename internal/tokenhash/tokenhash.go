// Package tokenhash implements the bijection between token strings and
// dense, non-zero u32 token IDs (the root data structure every other
// index component addresses tokens by).
package tokenhash

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"
	"time"

	minierrors "github.com/Aman-CERP/minisearch/internal/errors"
)

// OperationsThreshold is the number of add/delete calls after which Hasher
// flushes itself to disk, absent an earlier time-based flush.
const OperationsThreshold = 100_000

// FlushInterval is the wall-clock interval after which Hasher flushes
// itself to disk, absent an earlier operations-based flush.
const FlushInterval = 5 * time.Second

// persisted is the on-disk shape, gob-encoded as a single blob. Tokens[i]
// holds the token currently assigned ID i+1, or "" if that ID has been
// reclaimed onto the free-list (token text is always non-empty, so ""
// unambiguously marks a free slot).
type persisted struct {
	Tokens  []string
	Deleted []uint32
}

// Hasher is the bijective token store: ID 0 is never assigned, so callers
// can use it as a sentinel for "no token".
type Hasher struct {
	mu      sync.Mutex
	path    string
	byToken map[string]uint32
	tokens  []string
	deleted []uint32

	operations int
	lastFlush  time.Time
}

// Load reads the hasher state from <dir>/index/tokens, creating an empty
// store if the file does not exist. A decode failure is treated as the one
// permitted silent recovery in the spec's error taxonomy: log and start
// from empty, since the token store can always be rebuilt by reindexing.
func Load(dir string, warn func(msg string, err error)) (*Hasher, error) {
	path := filepath.Join(dir, "index", "tokens")
	h := &Hasher{
		path:      path,
		byToken:   make(map[string]uint32),
		lastFlush: time.Now(),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return h, nil
	}
	if err != nil {
		return nil, minierrors.IOError("reading token store", err)
	}
	if len(data) == 0 {
		return h, nil
	}

	var p persisted
	if decErr := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); decErr != nil {
		if warn != nil {
			warn("token store decode failed, starting from empty", decErr)
		}
		return h, nil
	}

	h.tokens = p.Tokens
	h.deleted = append(h.deleted, p.Deleted...)
	for i, tok := range p.Tokens {
		if tok != "" {
			h.byToken[tok] = uint32(i + 1)
		}
	}
	return h, nil
}

// Add returns the existing ID for token, or allocates one — preferring a
// reclaimed ID from the free-list over growing the dense array.
func (h *Hasher) Add(token string) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if id, ok := h.byToken[token]; ok {
		return id, nil
	}

	var id uint32
	if n := len(h.deleted); n > 0 {
		id = h.deleted[n-1]
		h.deleted = h.deleted[:n-1]
		h.tokens[id-1] = token
	} else {
		h.tokens = append(h.tokens, token)
		id = uint32(len(h.tokens))
	}
	h.byToken[token] = id

	return id, h.maybeFlushLocked()
}

// Hash returns the ID for token, if known.
func (h *Hasher) Hash(token string) (uint32, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.byToken[token]
	return id, ok
}

// Unhash returns the token text for id, if id is currently live.
func (h *Hasher) Unhash(id uint32) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unhashLocked(id)
}

func (h *Hasher) unhashLocked(id uint32) (string, bool) {
	if id == 0 || int(id) > len(h.tokens) {
		return "", false
	}
	tok := h.tokens[id-1]
	if tok == "" {
		return "", false
	}
	return tok, true
}

// Delete marks id's slot empty and pushes it onto the free-list, returning
// the token text it held (if any).
func (h *Hasher) Delete(id uint32) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tok, ok := h.unhashLocked(id)
	if !ok {
		return "", nil
	}

	h.tokens[id-1] = ""
	h.deleted = append(h.deleted, id)
	delete(h.byToken, tok)

	return tok, h.maybeFlushLocked()
}

func (h *Hasher) maybeFlushLocked() error {
	h.operations++
	if h.operations >= OperationsThreshold || time.Since(h.lastFlush) >= FlushInterval {
		return h.flushLocked()
	}
	return nil
}

// Flush writes the entire store to disk, truncating and replacing any
// previous contents.
func (h *Hasher) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.flushLocked()
}

func (h *Hasher) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return minierrors.IOError("creating index directory", err)
	}

	var buf bytes.Buffer
	p := persisted{Tokens: h.tokens, Deleted: h.deleted}
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return minierrors.EncodingError("encoding token store", err)
	}
	if err := os.WriteFile(h.path, buf.Bytes(), 0o644); err != nil {
		return minierrors.IOError("writing token store", err)
	}

	h.operations = 0
	h.lastFlush = time.Now()
	return nil
}

// Len returns the number of ID slots allocated, live or reclaimed.
func (h *Hasher) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tokens)
}

// Tokens returns every currently live token's text, in no particular
// order. Used to rebuild the fuzzy trie on load, since the trie itself is
// not persisted.
func (h *Hasher) Tokens() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.tokens)-len(h.deleted))
	for _, tok := range h.tokens {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
