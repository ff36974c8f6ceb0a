// Package settings persists the file association that must survive a
// restart: the last display name and whether that file was encrypted.
// The password is never part of it.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Association is the persisted half of a session's file binding.
type Association struct {
	FileName      string `toml:"file_name"`
	FileEncrypted bool   `toml:"file_encrypted"`
}

// Store loads and saves the association.
type Store interface {
	Load() (Association, error)
	Save(a Association) error
}

// FileStore keeps the association in a TOML file.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store backed by path. The file is created on the
// first Save.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("settings: path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("settings: resolve path: %w", err)
	}
	return &FileStore{path: abs}, nil
}

// Path returns the absolute file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the association. A missing file yields the zero value.
func (s *FileStore) Load() (Association, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Association{}, nil
		}
		return Association{}, fmt.Errorf("settings: read: %w", err)
	}
	var a Association
	if err := toml.Unmarshal(data, &a); err != nil {
		return Association{}, fmt.Errorf("settings: parse %s: %w", s.path, err)
	}
	a.FileName = strings.TrimSpace(a.FileName)
	return a, nil
}

// Save writes the association, creating directories as needed.
func (s *FileStore) Save(a Association) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("settings: create dir: %w", err)
	}
	data, err := toml.Marshal(a)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("settings: write: %w", err)
	}
	return nil
}

// Memory is an in-process Store.
type Memory struct {
	mu sync.Mutex
	a  Association
}

var _ Store = (*Memory)(nil)

// Load returns the stored association.
func (m *Memory) Load() (Association, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.a, nil
}

// Save replaces the stored association.
func (m *Memory) Save(a Association) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.a = a
	return nil
}
