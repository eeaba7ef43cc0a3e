// Package recent keeps the list of recently processed files.
package recent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Entry is one recently processed file
type Entry struct {
	Path string    `yaml:"path"`
	At   time.Time `yaml:"at"`
}

// Store records processed files, most recent first
type Store interface {
	Add(paths ...string) error
	List() ([]Entry, error)
}

// FileStore is a Store persisted as a YAML document
type FileStore struct {
	path  string
	limit int
	now   func() time.Time
	mu    sync.Mutex
}

type document struct {
	Files []Entry `yaml:"files"`
}

// NewFileStore returns a store backed by path that keeps at most limit entries
func NewFileStore(path string, limit int) *FileStore {
	return &FileStore{path: path, limit: limit, now: time.Now}
}

// Add moves paths to the front of the list. Paths are made absolute; a path
// already listed is moved rather than duplicated.
func (s *FileStore) Add(paths ...string) error {
	if len(paths) == 0 || s.limit <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}

	now := s.now()
	added := make([]Entry, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for i := len(paths) - 1; i >= 0; i-- {
		abs, err := filepath.Abs(paths[i])
		if err != nil {
			return fmt.Errorf("resolving %s: %w", paths[i], err)
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		added = append(added, Entry{Path: abs, At: now})
	}
	for _, e := range entries {
		if !seen[e.Path] {
			added = append(added, e)
		}
	}
	if len(added) > s.limit {
		added = added[:s.limit]
	}
	return s.write(added)
}

// List returns the recorded entries, most recent first
func (s *FileStore) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) read() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing history %s: %w", s.path, err)
	}
	return doc.Files, nil
}

func (s *FileStore) write(entries []Entry) error {
	data, err := yaml.Marshal(document{Files: entries})
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".recent-*.yaml")
	if err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}

// Discard is a Store that records nothing
type Discard struct{}

func (Discard) Add(...string) error     { return nil }
func (Discard) List() ([]Entry, error) { return nil, nil }
