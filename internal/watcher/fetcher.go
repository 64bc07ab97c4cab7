package watcher

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"launchScope/internal/metrics"
	"launchScope/internal/storage"
)

// FetcherConfig holds runtime settings for the queueing fetch loop.
type FetcherConfig struct {
	// Cursor is the processor's cursor the fetcher resumes from.
	Cursor       string
	StartBlock   uint64
	Step         uint64
	PollInterval time.Duration
	Retry        RetryPolicy
	Enabled      bool
}

// Fetcher walks the chain in windows and pushes every block, in slot order,
// onto the queue. It never writes the cursor; it keeps its own position in
// memory, seeded from the cursor on the first enabled tick.
type Fetcher struct {
	cfg     FetcherConfig
	chain   ChainReader
	queue   *BlockQueue
	state   storage.SyncStateStore
	logger  *zap.Logger
	enabled atomic.Bool

	next   uint64
	seeded bool
}

// NewFetcher builds a Fetcher with its dependencies.
func NewFetcher(cfg FetcherConfig, chainReader ChainReader, queue *BlockQueue, state storage.SyncStateStore, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Cursor == "" {
		cfg.Cursor = storage.CursorLog
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	f := &Fetcher{
		cfg:    cfg,
		chain:  chainReader,
		queue:  queue,
		state:  state,
		logger: logger.With(zap.String("loop", "fetch")),
	}
	f.enabled.Store(cfg.Enabled)
	return f
}

// SetEnabled toggles ingestion. It takes effect on the next tick.
func (f *Fetcher) SetEnabled(enabled bool) {
	f.enabled.Store(enabled)
}

// Enabled reports whether ingestion is on.
func (f *Fetcher) Enabled() bool {
	return f.enabled.Load()
}

// Run fetches once per poll interval until ctx is done.
func (f *Fetcher) Run(ctx context.Context) error {
	if f.cfg.Step == 0 {
		return fmt.Errorf("fetch step must be greater than zero")
	}
	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := f.FetchOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Error("fetch pass failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// FetchOnce enqueues every block between the fetch position and the chain tip.
// It is a no-op while ingestion is disabled.
func (f *Fetcher) FetchOnce(ctx context.Context) error {
	if !f.Enabled() {
		return nil
	}

	if !f.seeded {
		last, err := f.state.LastSynced(ctx, f.cfg.Cursor, f.cfg.StartBlock)
		if err != nil {
			return fmt.Errorf("load cursor: %w", err)
		}
		f.next = last + 1
		f.seeded = true
		f.logger.Info("resume from cursor", zap.String("cursor", f.cfg.Cursor), zap.Uint64("last_synced", last), zap.Uint64("from", f.next))
	}

	tip, err := callWithRetry(ctx, f.cfg.Retry, f.logger, "getSlot", f.chain.CurrentSlot)
	if err != nil {
		return fmt.Errorf("get current slot: %w", err)
	}
	if f.next > tip {
		return nil
	}

	ranges, err := SplitRange(f.next, tip, f.cfg.Step)
	if err != nil {
		return err
	}
	for _, window := range ranges {
		if err := f.fetchWindow(ctx, window); err != nil {
			metrics.WindowsProcessed.WithLabelValues("fetch", "error").Inc()
			return fmt.Errorf("window %d-%d: %w", window.From, window.To, err)
		}
		f.next = window.To + 1
		metrics.WindowsProcessed.WithLabelValues("fetch", "ok").Inc()
	}
	return nil
}

// fetchWindow pushes the blocks of window. The fetch position follows each
// pushed block so a failed window resumes after the last block queued.
func (f *Fetcher) fetchWindow(ctx context.Context, window BlockRange) error {
	slots, err := callWithRetry(ctx, f.cfg.Retry, f.logger, "getBlocks", func(ctx context.Context) ([]uint64, error) {
		return f.chain.ListSlots(ctx, window.From, window.To)
	})
	if err != nil {
		return fmt.Errorf("list slots: %w", err)
	}

	for _, slot := range slots {
		if slot < f.next {
			continue
		}
		block, err := fetchBlock(ctx, f.chain, f.cfg.Retry, f.logger, slot)
		if err != nil {
			return err
		}
		if block != nil {
			if err := f.queue.Push(ctx, block); err != nil {
				return err
			}
			metrics.BlocksFetched.WithLabelValues("fetch").Inc()
		}
		f.next = slot + 1
	}

	f.logger.Info("window queued", zap.Int("slots", len(slots)), zap.Uint64("from", window.From), zap.Uint64("to", window.To), zap.Int("queue", f.queue.Len()))
	return nil
}
