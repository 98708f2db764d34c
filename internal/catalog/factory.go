package catalog

import (
	"fmt"

	// mattn/go-sqlite3 is the cgo-backed driver, registered under "sqlite3".
	_ "github.com/mattn/go-sqlite3"
	// modernc.org/sqlite is the pure-Go driver, registered under "sqlite".
	_ "modernc.org/sqlite"
)

// Backend selects which SQLite driver backs the catalog database.
type Backend string

const (
	// BackendCGO uses mattn/go-sqlite3, which requires a C toolchain but is
	// the faster, more battle-tested driver. The default.
	BackendCGO Backend = "sqlite3"

	// BackendPureGo uses modernc.org/sqlite, a pure-Go translation of
	// SQLite with no C toolchain requirement - useful for cross-compiled
	// or CGO_ENABLED=0 builds of the minisearch CLI.
	BackendPureGo Backend = "purego"
)

// dsnFor returns the registered driver name and DSN for the given backend.
func dsnFor(path string, backend Backend) (driver string, dsn string, err error) {
	switch backend {
	case BackendCGO, "":
		dsn := "?_journal_mode=WAL&_busy_timeout=5000"
		if path == "" {
			return "sqlite3", ":memory:", nil
		}
		return "sqlite3", path + dsn, nil

	case BackendPureGo:
		if path == "" {
			return "sqlite", ":memory:", nil
		}
		return "sqlite", path + "?_journal_mode=WAL&_busy_timeout=5000", nil

	default:
		return "", "", fmt.Errorf("unknown catalog backend: %s (valid options: %s, %s)", backend, BackendCGO, BackendPureGo)
	}
}
