// Package indexlog implements the engine's append-only posting log: every
// postings-vector insert or purge is written as one operation record, and
// the in-memory postings index is rebuilt by replaying those records
// newest-to-oldest at startup, without ever materialising intermediate
// states.
package indexlog

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Aman-CERP/minisearch/internal/docid"
	minierrors "github.com/Aman-CERP/minisearch/internal/errors"
)

// Posting records where a token occurs in one document.
type Posting struct {
	DocID     docid.ID
	Positions []uint32
}

type opcode byte

const (
	opDelete opcode = 0
	opAdd    opcode = 1
)

const (
	metaRecordSize = 28 // 16-byte doc id, 8-byte BE offset, 4-byte BE size
	headerSize     = 9  // 1-byte opcode, 4-byte BE token id, 4-byte BE postings count
)

// Config controls the log's flush policy.
type Config struct {
	BufferSize        int64
	SaveAfterOperations int
	SaveAfterSeconds    int
}

// DefaultConfig matches the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:          1 << 20,
		SaveAfterOperations: 100_000,
		SaveAfterSeconds:    5,
	}
}

// Log is the append-only posting operation log for one index directory,
// and the in-memory postings index it rebuilds on load.
type Log struct {
	mu  sync.Mutex
	cfg Config

	indexFile *os.File
	metaFile  *os.File

	indexSize int64 // bytes already flushed to the index file

	pendingIndex []byte
	pendingMeta  []byte
	opsSinceSave int
	lastFlush    time.Time

	postings map[uint32][]Posting
}

// Open loads (or initializes) the index log rooted at dir, replaying any
// existing records into an in-memory postings index.
func Open(dir string, cfg Config) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, minierrors.IOError("create indexlog dir", err)
	}

	indexFile, err := os.OpenFile(filepath.Join(dir, "index"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, minierrors.IOError("open index file", err)
	}
	metaFile, err := os.OpenFile(filepath.Join(dir, "meta"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, minierrors.IOError("open index meta file", err)
	}

	l := &Log{
		cfg:       cfg,
		indexFile: indexFile,
		metaFile:  metaFile,
		lastFlush: time.Now(),
		postings:  make(map[uint32][]Posting),
	}

	if err := l.replay(); err != nil {
		return nil, err
	}
	return l, nil
}

type metaRecord struct {
	docID  docid.ID
	offset uint64
	size   uint32
}

func (l *Log) replay() error {
	metaInfo, err := l.metaFile.Stat()
	if err != nil {
		return minierrors.IOError("stat index meta file", err)
	}
	metaBytes := make([]byte, metaInfo.Size())
	if metaInfo.Size() > 0 {
		if _, err := l.metaFile.ReadAt(metaBytes, 0); err != nil {
			return minierrors.IOError("read index meta file", err)
		}
	}
	if len(metaBytes)%metaRecordSize != 0 {
		return minierrors.DecodingError("index meta file size is not a multiple of the record size", nil)
	}

	var records []metaRecord
	for off := 0; off+metaRecordSize <= len(metaBytes); off += metaRecordSize {
		b := metaBytes[off : off+metaRecordSize]
		var rec metaRecord
		copy(rec.docID[:], b[:16])
		rec.offset = binary.BigEndian.Uint64(b[16:24])
		rec.size = binary.BigEndian.Uint32(b[24:28])
		records = append(records, rec)
	}

	indexInfo, err := l.indexFile.Stat()
	if err != nil {
		return minierrors.IOError("stat index file", err)
	}
	l.indexSize = indexInfo.Size()
	indexBytes := make([]byte, indexInfo.Size())
	if indexInfo.Size() > 0 {
		if _, err := l.indexFile.ReadAt(indexBytes, 0); err != nil {
			return minierrors.IOError("read index file", err)
		}
	}

	deleted := make(map[docid.ID]struct{})
	cursor := make(map[uint32]int)

	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if uint64(len(indexBytes)) < rec.offset+uint64(rec.size) {
			return minierrors.DecodingError("index payload out of bounds", nil)
		}
		payload := indexBytes[rec.offset : rec.offset+uint64(rec.size)]
		if len(payload) < headerSize {
			return minierrors.DecodingError("truncated index payload header", nil)
		}
		op := opcode(payload[0])
		tokenID := binary.BigEndian.Uint32(payload[1:5])
		count := binary.BigEndian.Uint32(payload[5:9])

		switch op {
		case opDelete:
			deleted[rec.docID] = struct{}{}
			if _, ok := cursor[tokenID]; !ok {
				cursor[tokenID] = int(count)
				l.postings[tokenID] = make([]Posting, count)
			}
		case opAdd:
			if _, ok := cursor[tokenID]; !ok {
				cursor[tokenID] = int(count)
				l.postings[tokenID] = make([]Posting, count)
			}
			if _, dead := deleted[rec.docID]; dead {
				continue
			}
			var p Posting
			dec := gob.NewDecoder(bytes.NewReader(payload[headerSize:]))
			if err := dec.Decode(&p); err != nil {
				return minierrors.DecodingError("decode posting", err)
			}
			cursor[tokenID]--
			slot := cursor[tokenID]
			if slot < 0 || slot >= len(l.postings[tokenID]) {
				return minierrors.DecodingError("posting cursor out of range", nil)
			}
			l.postings[tokenID][slot] = p
		default:
			return minierrors.DecodingError("unknown index log opcode", nil)
		}
	}

	for token, list := range l.postings {
		if len(list) == 0 {
			delete(l.postings, token)
		}
	}

	return nil
}

// Postings returns the current ordered postings vector for a token. The
// returned slice must not be mutated by the caller.
func (l *Log) Postings(tokenID uint32) ([]Posting, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.postings[tokenID]
	return p, ok
}

// Add appends a new posting to tokenID's postings vector and logs an ADD
// record.
func (l *Log) Add(tokenID uint32, p Posting) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.postings[tokenID] = append(l.postings[tokenID], p)
	count := uint32(len(l.postings[tokenID]))

	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(p); err != nil {
		return minierrors.EncodingError("encode posting", err)
	}

	return l.appendRecord(p.DocID, opAdd, tokenID, count, body.Bytes())
}

// DeleteToken removes every posting belonging to any of the given document
// IDs from tokenID's postings vector, logging one DELETE record per removed
// posting, each carrying the vector's length after the whole deletion. If
// the vector empties, the token is dropped from the in-memory index
// entirely (the caller is responsible for also purging it from the hasher
// and trie).
func (l *Log) DeleteToken(tokenID uint32, purge map[docid.ID]struct{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := l.postings[tokenID]
	kept := list[:0]
	var removed []docid.ID
	for _, p := range list {
		if _, dead := purge[p.DocID]; !dead {
			kept = append(kept, p)
			continue
		}
		removed = append(removed, p.DocID)
	}

	count := uint32(len(kept))
	for _, id := range removed {
		if err := l.appendRecord(id, opDelete, tokenID, count, nil); err != nil {
			return err
		}
	}

	if len(kept) == 0 {
		delete(l.postings, tokenID)
	} else {
		l.postings[tokenID] = kept
	}
	return nil
}

// Tokens reports every token ID currently present in the postings index, in
// ascending order.
func (l *Log) Tokens() []uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]uint32, 0, len(l.postings))
	for t := range l.postings {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (l *Log) appendRecord(docID docid.ID, op opcode, tokenID, count uint32, payload []byte) error {
	var header [headerSize]byte
	header[0] = byte(op)
	binary.BigEndian.PutUint32(header[1:5], tokenID)
	binary.BigEndian.PutUint32(header[5:9], count)

	offset := l.indexSize + int64(len(l.pendingIndex))

	l.pendingIndex = append(l.pendingIndex, header[:]...)
	l.pendingIndex = append(l.pendingIndex, payload...)

	var meta [metaRecordSize]byte
	copy(meta[:16], docID[:])
	binary.BigEndian.PutUint64(meta[16:24], uint64(offset))
	binary.BigEndian.PutUint32(meta[24:28], uint32(headerSize+len(payload)))
	l.pendingMeta = append(l.pendingMeta, meta[:]...)

	l.opsSinceSave++
	return l.maybeFlushLocked()
}

func (l *Log) maybeFlushLocked() error {
	due := int64(len(l.pendingIndex)) >= l.cfg.BufferSize ||
		l.opsSinceSave >= l.cfg.SaveAfterOperations ||
		time.Since(l.lastFlush) >= time.Duration(l.cfg.SaveAfterSeconds)*time.Second
	if !due {
		return nil
	}
	return l.flushLocked()
}

func (l *Log) flushLocked() error {
	if len(l.pendingIndex) > 0 {
		if _, err := l.indexFile.Write(l.pendingIndex); err != nil {
			return minierrors.IOError("write index file", err)
		}
		l.indexSize += int64(len(l.pendingIndex))
		l.pendingIndex = l.pendingIndex[:0]
	}
	if len(l.pendingMeta) > 0 {
		if _, err := l.metaFile.Write(l.pendingMeta); err != nil {
			return minierrors.IOError("write index meta file", err)
		}
		l.pendingMeta = l.pendingMeta[:0]
	}
	l.opsSinceSave = 0
	l.lastFlush = time.Now()
	return nil
}

// Flush forces any buffered records to disk.
func (l *Log) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushLocked()
}
