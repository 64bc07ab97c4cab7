package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStateStore keeps sync cursors in a local JSON file.
type FileStateStore struct {
	path string
	mu   sync.Mutex
}

type stateFile struct {
	Cursors   map[string]uint64 `json:"cursors"`
	UpdatedAt string            `json:"updated_at"`
}

func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

func (s *FileStateStore) LastSynced(_ context.Context, name string, def uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return 0, err
	}
	block, ok := state.Cursors[name]
	if !ok {
		return def, nil
	}
	return block, nil
}

func (s *FileStateStore) SetLastSynced(_ context.Context, name string, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return err
	}
	if current, ok := state.Cursors[name]; ok && current >= block {
		return nil
	}
	state.Cursors[name] = block
	state.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

func (s *FileStateStore) read() (stateFile, error) {
	state := stateFile{Cursors: make(map[string]uint64)}

	stat, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return state, fmt.Errorf("stat state: %w", err)
	}
	if stat.IsDir() {
		return state, fmt.Errorf("state path is a directory")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return state, fmt.Errorf("read state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("parse state: %w", err)
	}
	if state.Cursors == nil {
		state.Cursors = make(map[string]uint64)
	}
	return state, nil
}
