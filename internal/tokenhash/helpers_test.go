package tokenhash

import (
	"os"
	"path/filepath"
)

func writeJunk(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("not a gob stream"), 0o644)
}
