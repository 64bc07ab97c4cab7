package watcher

import (
	"context"

	"launchScope/internal/model"
)

// ChainReader is the subset of the chain client the loops depend on.
type ChainReader interface {
	CurrentSlot(ctx context.Context) (uint64, error)
	ListSlots(ctx context.Context, start, end uint64) ([]uint64, error)
	FetchBlock(ctx context.Context, slot uint64) (*model.Block, error)
}
