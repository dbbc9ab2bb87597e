// Package blob stores generated artifacts (target models, reference
// targets) on a filesystem abstraction so tests can run against memory.
package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// Entry describes one stored artifact.
type Entry struct {
	Path    string
	ModTime time.Time
}

// Store is the artifact collaborator consumed by the relay core.
type Store interface {
	// Put writes data at path, creating parent directories.
	Put(path string, data []byte) error
	// Get reads the artifact at path.
	Get(path string) ([]byte, error)
	// List returns every artifact under prefix.
	List(prefix string) ([]Entry, error)
	// Latest returns the newest artifact under prefix by timestamp;
	// ok is false when the prefix is empty.
	Latest(prefix string) (Entry, bool, error)
}

// FSStore is a filesystem-backed blob store.
type FSStore struct {
	fs afero.Fs
}

// NewFSStore wraps a filesystem. Production uses a base-path OS fs rooted
// at the configured blob directory; tests use afero.NewMemMapFs.
func NewFSStore(fs afero.Fs) *FSStore {
	return &FSStore{fs: fs}
}

// NewOSStore builds a store rooted at dir on the host filesystem.
func NewOSStore(dir string) *FSStore {
	return NewFSStore(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

// Put writes data at path, creating parent directories.
func (s *FSStore) Put(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create blob directory: %w", err)
		}
	}
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write blob %s: %w", path, err)
	}
	return nil
}

// Get reads the artifact at path.
func (s *FSStore) Get(path string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", path, err)
	}
	return data, nil
}

// List returns every artifact under prefix. A missing prefix directory is
// an empty listing, not an error.
func (s *FSStore) List(prefix string) ([]Entry, error) {
	exists, err := afero.DirExists(s.fs, prefix)
	if err != nil {
		return nil, fmt.Errorf("stat blob prefix %s: %w", prefix, err)
	}
	if !exists {
		return nil, nil
	}

	var entries []Entry
	err = afero.Walk(s.fs, prefix, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		entries = append(entries, Entry{Path: filepath.ToSlash(path), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list blobs under %s: %w", prefix, err)
	}
	return entries, nil
}

// Latest returns the newest artifact under prefix by timestamp.
func (s *FSStore) Latest(prefix string) (Entry, bool, error) {
	entries, err := s.List(prefix)
	if err != nil {
		return Entry{}, false, err
	}
	if len(entries) == 0 {
		return Entry{}, false, nil
	}

	latest := entries[0]
	for _, entry := range entries[1:] {
		if entry.ModTime.After(latest.ModTime) {
			latest = entry
		}
	}
	return latest, true, nil
}
