package storage

import (
	"context"
	"sort"
	"sync"

	"launchScope/internal/model"
)

// MemoryStore is an in-process RecordStore and SyncStateStore.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]model.LaunchRecord
	cursors map[string]uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]model.LaunchRecord),
		cursors: make(map[string]uint64),
	}
}

func (m *MemoryStore) InsertLaunchRecords(_ context.Context, records []model.LaunchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if _, ok := m.records[r.Key()]; ok {
			continue
		}
		m.records[r.Key()] = r
	}
	return nil
}

func (m *MemoryStore) LastSynced(_ context.Context, name string, def uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	block, ok := m.cursors[name]
	if !ok {
		return def, nil
	}
	return block, nil
}

// SetLastSynced records block for name. The cursor never moves backward.
func (m *MemoryStore) SetLastSynced(_ context.Context, name string, block uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.cursors[name]; ok && current >= block {
		return nil
	}
	m.cursors[name] = block
	return nil
}

// Records returns the stored records ordered by block, tx hash and log index.
func (m *MemoryStore) Records() []model.LaunchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.LaunchRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Block != out[j].Block {
			return out[i].Block < out[j].Block
		}
		if out[i].TxHash != out[j].TxHash {
			return out[i].TxHash < out[j].TxHash
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out
}
