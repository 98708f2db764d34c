// Package docstore implements the engine's segmented, append-only document
// store: compressed document bodies in per-segment data files, length-
// prefixed metadata records describing where each body lives, and tombstone
// records marking deletions pending purge and compaction.
package docstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Aman-CERP/minisearch/internal/cache"
	"github.com/Aman-CERP/minisearch/internal/docid"
	minierrors "github.com/Aman-CERP/minisearch/internal/errors"
)

// Config controls buffering, segmentation, and merge behaviour.
type Config struct {
	SegmentSize               int64
	DocumentsBufferSize       int64
	DocumentsSaveAfterSeconds int
	MergeDeletedRatio         float64
}

// DefaultConfig matches the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		SegmentSize:               50 << 20,
		DocumentsBufferSize:       1 << 20,
		DocumentsSaveAfterSeconds: 5,
		MergeDeletedRatio:         0.3,
	}
}

// Location names where a document's compressed body lives: a segment and a
// byte range within that segment's data file.
type Location struct {
	Segment string
	Offset  uint64
	Size    uint64
}

// Document is the persisted record for one stored document: its identity,
// where its compressed body lives, its token count, and the distinct token
// IDs it contains (used to purge postings on delete without re-analysing).
type Document struct {
	ID       docid.ID
	Location Location
	Len      uint32
	Tokens   []uint32
}

type segmentState struct {
	dataSize     int64
	deletedBytes int64
	dataFile     *os.File
	metaFile     *os.File
	delFile      *os.File
}

// Store is the document store for one index directory. Its methods hold
// s.mu, so concurrent calls run one at a time.
type Store struct {
	mu  sync.Mutex
	dir string
	cfg Config

	segments map[string]*segmentState
	active   string

	docs map[docid.ID]*Document

	pendingPurge map[docid.ID]*Document

	pendingData []byte
	pendingMeta []byte
	lastFlush   time.Time

	bodies *cache.LRU
}

// Open loads (or initializes) the document store rooted at dir.
func Open(dir string, cfg Config, bodyCacheSize int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, minierrors.IOError("create docstore dir", err)
	}

	s := &Store{
		dir:          dir,
		cfg:          cfg,
		segments:     make(map[string]*segmentState),
		docs:         make(map[docid.ID]*Document),
		pendingPurge: make(map[docid.ID]*Document),
		lastFlush:    time.Now(),
		bodies:       cache.New(bodyCacheSize),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, minierrors.IOError("read docstore dir", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.ParseUint(e.Name(), 10, 64); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.loadSegment(name); err != nil {
			return nil, err
		}
	}

	if len(names) == 0 {
		s.active = newSegmentName("")
		if err := s.createSegment(s.active); err != nil {
			return nil, err
		}
	} else {
		s.active = names[len(names)-1]
	}

	return s, nil
}

func (s *Store) segDir(name string) string { return filepath.Join(s.dir, name) }

func (s *Store) createSegment(name string) error {
	dir := s.segDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return minierrors.IOError("create segment dir", err)
	}
	st, err := openSegmentFiles(dir)
	if err != nil {
		return err
	}
	s.segments[name] = st
	return nil
}

func openSegmentFiles(dir string) (*segmentState, error) {
	open := func(name string) (*os.File, error) {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, minierrors.IOError("open segment file "+name, err)
		}
		return f, nil
	}
	data, err := open("data")
	if err != nil {
		return nil, err
	}
	meta, err := open("meta")
	if err != nil {
		return nil, err
	}
	del, err := open("del")
	if err != nil {
		return nil, err
	}
	return &segmentState{dataFile: data, metaFile: meta, delFile: del}, nil
}

func (s *Store) loadSegment(name string) error {
	dir := s.segDir(name)
	st, err := openSegmentFiles(dir)
	if err != nil {
		return err
	}

	delInfo, err := st.delFile.Stat()
	if err != nil {
		return minierrors.IOError("stat del file", err)
	}
	delBytes, err := readAll(st.delFile, delInfo.Size())
	if err != nil {
		return err
	}
	tombstones := make(map[docid.ID]struct{})
	for off := 0; off+tombstoneSize <= len(delBytes); off += tombstoneSize {
		var id docid.ID
		copy(id[:], delBytes[off:off+16])
		size := binary.BigEndian.Uint64(delBytes[off+16 : off+24])
		tombstones[id] = struct{}{}
		st.deletedBytes += int64(size)
	}

	metaInfo, err := st.metaFile.Stat()
	if err != nil {
		return minierrors.IOError("stat meta file", err)
	}
	metaBytes, err := readAll(st.metaFile, metaInfo.Size())
	if err != nil {
		return err
	}
	docsInSegment, err := decodeMetaRecords(metaBytes)
	if err != nil {
		return err
	}
	for _, d := range docsInSegment {
		if _, dead := tombstones[d.ID]; dead {
			continue
		}
		doc := d
		s.docs[doc.ID] = &doc
	}

	dataInfo, err := st.dataFile.Stat()
	if err != nil {
		return minierrors.IOError("stat data file", err)
	}
	st.dataSize = dataInfo.Size()

	s.segments[name] = st
	return nil
}

const tombstoneSize = 24 // 16-byte doc id + 8-byte compressed size, big-endian

func readAll(f *os.File, size int64) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, 0); err != nil && size > 0 {
		return nil, minierrors.IOError("read file", err)
	}
	return buf, nil
}

func decodeMetaRecords(b []byte) ([]Document, error) {
	var out []Document
	for len(b) > 0 {
		if len(b) < 8 {
			return nil, minierrors.DecodingError("truncated meta record header", nil)
		}
		size := binary.BigEndian.Uint64(b[:8])
		b = b[8:]
		if uint64(len(b)) < size {
			return nil, minierrors.DecodingError("truncated meta record body", nil)
		}
		var doc Document
		dec := gob.NewDecoder(bytes.NewReader(b[:size]))
		if err := dec.Decode(&doc); err != nil {
			return nil, minierrors.DecodingError("decode document record", err)
		}
		out = append(out, doc)
		b = b[size:]
	}
	return out, nil
}

func encodeMetaRecord(doc Document) ([]byte, error) {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(doc); err != nil {
		return nil, minierrors.EncodingError("encode document record", err)
	}
	var out bytes.Buffer
	var sizeHdr [8]byte
	binary.BigEndian.PutUint64(sizeHdr[:], uint64(body.Len()))
	out.Write(sizeHdr[:])
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func newSegmentName(after string) string {
	name := strconv.FormatInt(time.Now().UnixNano(), 10)
	if name <= after {
		n, _ := strconv.ParseInt(after, 10, 64)
		name = strconv.FormatInt(n+1, 10)
	}
	return name
}

// Write stages a new document's compressed body and metadata into the
// in-memory buffer, then applies the store's flush/rotate policy.
func (s *Store) Write(id docid.ID, tokenLen uint32, tokenIDs []uint32, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	block, err := compressBody(content)
	if err != nil {
		return err
	}
	return s.appendRaw(id, tokenLen, tokenIDs, block, uint64(len(content)))
}

// appendRaw stages a document whose body is already LZ4-compressed (used
// both by Write and by Merge, which relocates bodies without recompressing
// them).
func (s *Store) appendRaw(id docid.ID, tokenLen uint32, tokenIDs []uint32, block []byte, uncompressedLen uint64) error {
	seg := s.segments[s.active]

	var dataEntry bytes.Buffer
	var lenHdr [4]byte
	binary.LittleEndian.PutUint32(lenHdr[:], uint32(uncompressedLen))
	dataEntry.Write(lenHdr[:])
	dataEntry.Write(block)

	offset := uint64(seg.dataSize) + uint64(len(s.pendingData))
	size := uint64(dataEntry.Len())

	doc := Document{
		ID:       id,
		Location: Location{Segment: s.active, Offset: offset, Size: size},
		Len:      tokenLen,
		Tokens:   tokenIDs,
	}
	metaEntry, err := encodeMetaRecord(doc)
	if err != nil {
		return err
	}

	s.pendingData = append(s.pendingData, dataEntry.Bytes()...)
	s.pendingMeta = append(s.pendingMeta, metaEntry...)
	s.docs[id] = &doc

	return s.maybeFlushLocked()
}

func (s *Store) maybeFlushLocked() error {
	due := int64(len(s.pendingData)) >= s.cfg.DocumentsBufferSize ||
		time.Since(s.lastFlush) >= time.Duration(s.cfg.DocumentsSaveAfterSeconds)*time.Second
	if !due {
		return nil
	}
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if len(s.pendingData) == 0 && len(s.pendingMeta) == 0 {
		s.lastFlush = time.Now()
		return nil
	}
	seg := s.segments[s.active]
	if len(s.pendingData) > 0 {
		if _, err := seg.dataFile.Write(s.pendingData); err != nil {
			return minierrors.IOError("write data segment", err)
		}
		seg.dataSize += int64(len(s.pendingData))
		s.pendingData = s.pendingData[:0]
	}
	if len(s.pendingMeta) > 0 {
		if _, err := seg.metaFile.Write(s.pendingMeta); err != nil {
			return minierrors.IOError("write meta segment", err)
		}
		s.pendingMeta = s.pendingMeta[:0]
	}
	s.lastFlush = time.Now()

	if seg.dataSize >= s.cfg.SegmentSize {
		name := newSegmentName(s.active)
		if err := s.createSegment(name); err != nil {
			return err
		}
		s.active = name
	}
	return nil
}

// Flush forces any buffered writes to disk.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// Peek returns a document's metadata without touching its compressed body.
func (s *Store) Peek(id docid.ID) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// Get returns a document's metadata and decompressed body.
func (s *Store) Get(id docid.ID) (Document, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return Document{}, nil, minierrors.NotFound(id.String())
	}

	if cached, ok := s.bodies.Get(id); ok {
		return *doc, cached, nil
	}

	raw, err := s.readBody(*doc)
	if err != nil {
		return Document{}, nil, err
	}
	content, err := decodeDataEntry(raw)
	if err != nil {
		return Document{}, nil, err
	}
	s.bodies.Put(id, content)
	return *doc, content, nil
}

func decodeDataEntry(raw []byte) ([]byte, error) {
	if len(raw) < 4 {
		return nil, minierrors.DecodingError("truncated data entry", nil)
	}
	uncompressedLen := binary.LittleEndian.Uint32(raw[:4])
	return decompressBody(raw[4:], int(uncompressedLen))
}

func (s *Store) readBody(doc Document) ([]byte, error) {
	seg, ok := s.segments[doc.Location.Segment]
	if !ok {
		return nil, minierrors.IOError("unknown segment "+doc.Location.Segment, nil)
	}

	onDisk := uint64(seg.dataSize)
	if doc.Location.Segment == s.active && doc.Location.Offset >= onDisk {
		start := doc.Location.Offset - onDisk
		end := start + doc.Location.Size
		if end > uint64(len(s.pendingData)) {
			return nil, minierrors.IOError("document body not yet flushed", nil)
		}
		buf := make([]byte, doc.Location.Size)
		copy(buf, s.pendingData[start:end])
		return buf, nil
	}

	buf := make([]byte, doc.Location.Size)
	if _, err := seg.dataFile.ReadAt(buf, int64(doc.Location.Offset)); err != nil {
		return nil, minierrors.IOError("read document body", err)
	}
	return buf, nil
}

// Delete removes a document from the live set, appends a tombstone record
// to its owning segment, and stages it for index purge. It reports whether
// the document existed.
func (s *Store) Delete(id docid.ID) (Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return Document{}, false, nil
	}
	delete(s.docs, id)

	seg, ok := s.segments[doc.Location.Segment]
	if !ok {
		return Document{}, false, minierrors.IOError("unknown segment "+doc.Location.Segment, nil)
	}

	var rec [tombstoneSize]byte
	copy(rec[:16], doc.ID[:])
	binary.BigEndian.PutUint64(rec[16:24], doc.Location.Size)
	if _, err := seg.delFile.Write(rec[:]); err != nil {
		return Document{}, false, minierrors.IOError("write tombstone", err)
	}
	seg.deletedBytes += int64(doc.Location.Size)

	s.pendingPurge[id] = doc
	s.bodies.Remove(id)

	return *doc, true, nil
}

// PendingPurge returns (and does not clear) the documents tombstoned since
// the last call to ClearPendingPurge.
func (s *Store) PendingPurge() map[docid.ID]Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[docid.ID]Document, len(s.pendingPurge))
	for id, doc := range s.pendingPurge {
		out[id] = *doc
	}
	return out
}

// ClearPendingPurge drops the pending-purge set after its consumer (the
// index) has applied the corresponding posting removals.
func (s *Store) ClearPendingPurge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingPurge = make(map[docid.ID]*Document)
}

// LiveCount returns the number of live (non-deleted) documents.
func (s *Store) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// SegmentCount returns the number of on-disk segments, including the
// active one.
func (s *Store) SegmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.segments)
}

// Merge compacts segments whose tombstoned-byte ratio meets or exceeds
// MergeDeletedRatio, relocating surviving documents into the active
// segment and removing the old segment directories.
func (s *Store) Merge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushLocked(); err != nil {
		return err
	}

	var names []string
	for name := range s.segments {
		if name == s.active {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		seg := s.segments[name]
		if seg.dataSize == 0 {
			continue
		}
		ratio := float64(seg.deletedBytes) / float64(seg.dataSize)
		if ratio < s.cfg.MergeDeletedRatio {
			continue
		}
		if err := s.mergeSegment(name); err != nil {
			return err
		}
	}
	return s.flushLocked()
}

func (s *Store) mergeSegment(name string) error {
	seg := s.segments[name]

	metaInfo, err := seg.metaFile.Stat()
	if err != nil {
		return minierrors.IOError("stat meta file", err)
	}
	metaBytes, err := readAll(seg.metaFile, metaInfo.Size())
	if err != nil {
		return err
	}
	records, err := decodeMetaRecords(metaBytes)
	if err != nil {
		return err
	}

	for _, doc := range records {
		live, ok := s.docs[doc.ID]
		if !ok || live.Location.Segment != name {
			continue // tombstoned, or superseded by a later write elsewhere
		}

		raw := make([]byte, doc.Location.Size)
		if _, err := seg.dataFile.ReadAt(raw, int64(doc.Location.Offset)); err != nil {
			return minierrors.IOError("read document body for merge", err)
		}
		if len(raw) < 4 {
			return minierrors.DecodingError("truncated data entry during merge", nil)
		}
		uncompressedLen := binary.LittleEndian.Uint32(raw[:4])
		if err := s.appendRaw(doc.ID, doc.Len, doc.Tokens, raw[4:], uint64(uncompressedLen)); err != nil {
			return err
		}
	}

	if err := s.flushLocked(); err != nil {
		return err
	}

	seg.dataFile.Close()
	seg.metaFile.Close()
	seg.delFile.Close()
	delete(s.segments, name)
	return os.RemoveAll(s.segDir(name))
}
