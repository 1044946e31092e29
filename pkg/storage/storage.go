// Package storage provides the durable key-value store every other component
// builds on. The default backend keeps one file per key under a data
// directory; an optional Postgres backend offers the same contract over a
// shared table.
package storage

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// Store is a durable string key-value store. A missing key is a valid,
// common state, not an error, so Get reports presence with a bool.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
	Keys() ([]string, error)
}

// FileStore persists each key as its own file under a single directory.
// Writes are last-writer-wins at whole-value granularity.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the data directory if needed and returns a store
// rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	// Keys contain separators and spaces, so escape them into safe names.
	return filepath.Join(s.dir, url.PathEscape(key))
}

// Get returns the stored value for key, or false if it was never set.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Set writes the value for key, replacing any previous value.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.path(key), []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Delete removes the key. Deleting an absent key is a no-op.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// Keys lists every stored key.
func (s *FileStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, err := url.PathUnescape(entry.Name())
		if err != nil {
			// Not one of ours; skip it.
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
