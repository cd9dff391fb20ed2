package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"TrendSentinel/internal/model"
)

// FileStore persists history as a JSON document.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the history file. A missing file yields an empty map.
func (s *FileStore) Load(_ context.Context) (model.HistoryMap, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.HistoryMap{}, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}
	var m model.HistoryMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", s.path, err)
	}
	if m == nil {
		m = model.HistoryMap{}
	}
	return m, nil
}

// Save writes m to a temporary file and renames it over the target, so a
// crash never leaves a half-written history.
func (s *FileStore) Save(_ context.Context, m model.HistoryMap) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
