package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"launchScope/internal/chain"
	"launchScope/internal/extract"
	"launchScope/internal/model"
	"launchScope/internal/storage"
)

// fakeChain serves blocks from memory and records the windows it was asked for.
type fakeChain struct {
	mu        sync.Mutex
	tip       uint64
	blocks    map[uint64]*model.Block
	skipped   map[uint64]bool
	fetchErrs map[uint64]error
	windows   []BlockRange
	fetched   []uint64
}

func newFakeChain(tip uint64) *fakeChain {
	return &fakeChain{
		tip:       tip,
		blocks:    make(map[uint64]*model.Block),
		skipped:   make(map[uint64]bool),
		fetchErrs: make(map[uint64]error),
	}
}

func (c *fakeChain) addBlock(slot uint64, txs ...model.Transaction) {
	c.blocks[slot] = &model.Block{Slot: slot, Height: slot - 10, Time: int64(slot) * 2, Transactions: txs}
}

func (c *fakeChain) CurrentSlot(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip, nil
}

func (c *fakeChain) ListSlots(_ context.Context, start, end uint64) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windows = append(c.windows, BlockRange{From: start, To: end})
	var slots []uint64
	for s := start; s <= end; s++ {
		if _, ok := c.blocks[s]; ok || c.skipped[s] {
			slots = append(slots, s)
		}
	}
	return slots, nil
}

func (c *fakeChain) FetchBlock(_ context.Context, slot uint64) (*model.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fetchErrs[slot]; err != nil {
		return nil, err
	}
	if c.skipped[slot] {
		return nil, chain.ErrSlotSkipped
	}
	block, ok := c.blocks[slot]
	if !ok {
		return nil, fmt.Errorf("no block at %d", slot)
	}
	return block, nil
}

// sigExtractor emits one record per transaction whose signature is non-empty.
type sigExtractor struct{}

func (sigExtractor) Name() string { return "sig" }

func (sigExtractor) Extract(tx model.Transaction, block extract.BlockContext) ([]model.LaunchRecord, error) {
	if tx.Signature == "" {
		return nil, nil
	}
	return []model.LaunchRecord{{
		Address: "addr-" + tx.Signature,
		Amount:  model.ScaleAmount(100000000),
		Block:   block.Slot,
		TxHash:  tx.Signature,
		Time:    block.Time,
	}}, nil
}

// flakyStore fails the inserts whose 1-based call number is listed in failOn.
type flakyStore struct {
	*storage.MemoryStore
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
}

var errInsert = errors.New("insert failed")

func newFlakyStore(failOn ...int) *flakyStore {
	s := &flakyStore{MemoryStore: storage.NewMemoryStore(), failOn: make(map[int]bool)}
	for _, n := range failOn {
		s.failOn[n] = true
	}
	return s
}

func (s *flakyStore) InsertLaunchRecords(ctx context.Context, records []model.LaunchRecord) error {
	s.mu.Lock()
	s.calls++
	fail := s.failOn[s.calls]
	s.mu.Unlock()
	if fail {
		return errInsert
	}
	return s.MemoryStore.InsertLaunchRecords(ctx, records)
}
