// Package catalog maintains a small SQLite-backed registry of index
// directories that the minisearch CLI has opened, so that `minisearch list`
// and `minisearch status` can report on indexes without scanning the
// filesystem for them.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry describes one registered index directory.
type Entry struct {
	Path         string
	OpenedAt     time.Time
	LastAccessed time.Time
	DocCount     int64
	SegmentCount int
}

// Store is the catalog's SQLite-backed registry.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS indexes (
	path          TEXT PRIMARY KEY,
	opened_at     TIMESTAMP NOT NULL,
	last_accessed TIMESTAMP NOT NULL,
	doc_count     INTEGER NOT NULL DEFAULT 0,
	segment_count INTEGER NOT NULL DEFAULT 0
);
`

// Open opens (creating if necessary) the catalog database at path using the
// given backend.
func Open(path string, backend Backend) (*Store, error) {
	driver, dsn, err := dsnFor(path, backend)
	if err != nil {
		return nil, err
	}

	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Register inserts a newly opened index, or refreshes last_accessed if it
// was already registered.
func (s *Store) Register(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve index path %s: %w", path, err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO indexes (path, opened_at, last_accessed, doc_count, segment_count)
		VALUES (?, ?, ?, 0, 0)
		ON CONFLICT(path) DO UPDATE SET last_accessed = excluded.last_accessed
	`, abs, now, now)
	if err != nil {
		return fmt.Errorf("failed to register index %s: %w", abs, err)
	}
	return nil
}

// Touch updates last_accessed and the reported document/segment counts for
// an already-registered index.
func (s *Store) Touch(ctx context.Context, path string, docCount int64, segmentCount int) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve index path %s: %w", path, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE indexes SET last_accessed = ?, doc_count = ?, segment_count = ?
		WHERE path = ?
	`, time.Now(), docCount, segmentCount, abs)
	if err != nil {
		return fmt.Errorf("failed to update index %s: %w", abs, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to confirm update for %s: %w", abs, err)
	}
	if rows == 0 {
		return fmt.Errorf("index %s is not registered", abs)
	}
	return nil
}

// Remove drops an index from the catalog, e.g. after its directory is deleted.
func (s *Store) Remove(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve index path %s: %w", path, err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM indexes WHERE path = ?`, abs); err != nil {
		return fmt.Errorf("failed to remove index %s: %w", abs, err)
	}
	return nil
}

// Get returns a single registered entry.
func (s *Store) Get(ctx context.Context, path string) (*Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve index path %s: %w", path, err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT path, opened_at, last_accessed, doc_count, segment_count
		FROM indexes WHERE path = ?
	`, abs)

	var e Entry
	if err := row.Scan(&e.Path, &e.OpenedAt, &e.LastAccessed, &e.DocCount, &e.SegmentCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query index %s: %w", abs, err)
	}
	return &e, nil
}

// List returns all registered indexes, most recently accessed first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, opened_at, last_accessed, doc_count, segment_count
		FROM indexes ORDER BY last_accessed DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.OpenedAt, &e.LastAccessed, &e.DocCount, &e.SegmentCount); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate indexes: %w", err)
	}
	return entries, nil
}

// DefaultCatalogPath returns $XDG_DATA_HOME/minisearch/catalog.db, falling
// back to ~/.local/share/minisearch/catalog.db.
func DefaultCatalogPath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "minisearch", "catalog.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".local", "share", "minisearch", "catalog.db")
	}
	return filepath.Join(home, ".local", "share", "minisearch", "catalog.db")
}
