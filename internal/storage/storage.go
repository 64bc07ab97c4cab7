package storage

import (
	"context"

	"launchScope/internal/model"
)

// RecordStore persists launch records. Inserts are idempotent on
// (tx_hash, log_index) and an empty batch is a no-op.
type RecordStore interface {
	InsertLaunchRecords(ctx context.Context, records []model.LaunchRecord) error
}

// SyncStateStore persists named block cursors.
type SyncStateStore interface {
	// LastSynced returns the cursor value, or def when it was never set.
	LastSynced(ctx context.Context, name string, def uint64) (uint64, error)
	// SetLastSynced upserts the cursor value.
	SetLastSynced(ctx context.Context, name string, block uint64) error
}

// Cursor names.
const (
	CursorInstruction = "instruction"
	CursorLog         = "log"
)
