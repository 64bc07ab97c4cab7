package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"launchScope/internal/model"
)

// JsonlStorage appends launch records to a JSONL file. Records already present
// in the file are skipped.
type JsonlStorage struct {
	path string

	mu     sync.Mutex
	seen   map[string]struct{}
	loaded bool
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path, seen: make(map[string]struct{})}
}

// InsertLaunchRecords appends the records not yet written as JSON lines.
func (s *JsonlStorage) InsertLaunchRecords(_ context.Context, records []model.LaunchRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	fresh := make([]model.LaunchRecord, 0, len(records))
	batch := make(map[string]struct{}, len(records))
	for _, record := range records {
		key := record.Key()
		if _, ok := s.seen[key]; ok {
			continue
		}
		if _, ok := batch[key]; ok {
			continue
		}
		batch[key] = struct{}{}
		fresh = append(fresh, record)
	}
	if len(fresh) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range fresh {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal launch record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write launch record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}

	for key := range batch {
		s.seen[key] = struct{}{}
	}
	return nil
}

// load seeds the seen set from the existing file once.
func (s *JsonlStorage) load() error {
	if s.loaded {
		return nil
	}

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record model.LaunchRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("parse existing record: %w", err)
		}
		s.seen[record.Key()] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan output file: %w", err)
	}

	s.loaded = true
	return nil
}
