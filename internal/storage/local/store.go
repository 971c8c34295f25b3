package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Store provides thread-safe JSON document storage in a directory.
// Writes go to a temp file in the same directory and are renamed into
// place, so a reader never sees a partially written document.
type Store struct {
	basePath string
	mu       sync.RWMutex
}

// NewStore creates a new local JSON store
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// Path returns the file path of a named document
func (s *Store) Path(name string) string {
	return filepath.Join(s.basePath, name+".json")
}

// Save atomically replaces a named document with data encoded as JSON
func (s *Store) Save(name string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	body = append(body, '\n')

	return writeAtomic(s.Path(name), body)
}

// Load decodes a named document into data
func (s *Store) Load(name string, data any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read file: %w", err)
	}

	if err := json.Unmarshal(body, data); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	return nil
}

// writeAtomic writes body to path via temp file, fsync and rename.
// The temp file is removed on any failure.
func writeAtomic(path string, body []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(body); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry after a rename. Some platforms do not
// support fsync on directories, so failures are only logged.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		slog.Debug("open dir for sync", "dir", dir, "error", err)
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		slog.Debug("sync dir after rename", "dir", dir, "error", err)
	}
}
