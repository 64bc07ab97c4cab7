package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"launchScope/internal/chain"
	"launchScope/internal/extract"
	"launchScope/internal/metrics"
	"launchScope/internal/model"
	"launchScope/internal/storage"
)

// SyncerConfig holds runtime settings for the direct extraction loop.
type SyncerConfig struct {
	Cursor         string
	StartBlock     uint64
	Step           uint64
	PollInterval   time.Duration
	Retry          RetryPolicy
	ExtractWorkers int
}

// Syncer walks the chain in windows, extracts launch records from every
// block and persists them before advancing its cursor.
type Syncer struct {
	cfg       SyncerConfig
	chain     ChainReader
	extractor extract.Extractor
	records   storage.RecordStore
	state     storage.SyncStateStore
	logger    *zap.Logger
}

// NewSyncer builds a Syncer with its dependencies.
func NewSyncer(cfg SyncerConfig, chainReader ChainReader, extractor extract.Extractor, records storage.RecordStore, state storage.SyncStateStore, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Cursor == "" {
		cfg.Cursor = storage.CursorInstruction
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Syncer{
		cfg:       cfg,
		chain:     chainReader,
		extractor: extractor,
		records:   records,
		state:     state,
		logger:    logger.With(zap.String("loop", "sync"), zap.String("extractor", extractor.Name())),
	}
}

// Run syncs immediately and then once per poll interval until ctx is done.
// Errors abort the current pass only.
func (s *Syncer) Run(ctx context.Context) error {
	if s.cfg.Step == 0 {
		return fmt.Errorf("sync step must be greater than zero")
	}
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := s.SyncOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("sync pass failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SyncOnce processes every window between the cursor and the chain tip.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	last, err := s.state.LastSynced(ctx, s.cfg.Cursor, s.cfg.StartBlock)
	if err != nil {
		return fmt.Errorf("load cursor: %w", err)
	}
	tip, err := callWithRetry(ctx, s.cfg.Retry, s.logger, "getSlot", s.chain.CurrentSlot)
	if err != nil {
		return fmt.Errorf("get current slot: %w", err)
	}

	s.logger.Debug("sync pass", zap.Uint64("last_synced", last), zap.Uint64("tip", tip))
	if last >= tip {
		return nil
	}
	return s.syncRange(ctx, last+1, tip, true)
}

// SyncRange processes [from, to] without touching the cursor.
func (s *Syncer) SyncRange(ctx context.Context, from, to uint64) error {
	return s.syncRange(ctx, from, to, false)
}

func (s *Syncer) syncRange(ctx context.Context, from, to uint64, advance bool) error {
	ranges, err := SplitRange(from, to, s.cfg.Step)
	if err != nil {
		return err
	}

	for _, window := range ranges {
		if err := ctx.Err(); err != nil {
			return err
		}

		records, err := s.processWindow(ctx, window)
		if err != nil {
			metrics.WindowsProcessed.WithLabelValues("sync", "error").Inc()
			return fmt.Errorf("window %d-%d: %w", window.From, window.To, err)
		}

		if err := s.records.InsertLaunchRecords(ctx, records); err != nil {
			metrics.WindowsProcessed.WithLabelValues("sync", "error").Inc()
			return fmt.Errorf("store window %d-%d: %w", window.From, window.To, err)
		}

		if advance {
			if err := s.state.SetLastSynced(ctx, s.cfg.Cursor, window.To); err != nil {
				return fmt.Errorf("advance cursor to %d: %w", window.To, err)
			}
			metrics.SyncedBlock.WithLabelValues(s.cfg.Cursor).Set(float64(window.To))
		}

		metrics.WindowsProcessed.WithLabelValues("sync", "ok").Inc()
		metrics.RecordsExtracted.WithLabelValues(s.extractor.Name()).Add(float64(len(records)))
		s.logger.Info("window complete", zap.Int("records", len(records)), zap.Uint64("from", window.From), zap.Uint64("to", window.To))
	}
	return nil
}

func (s *Syncer) processWindow(ctx context.Context, window BlockRange) ([]model.LaunchRecord, error) {
	slots, err := callWithRetry(ctx, s.cfg.Retry, s.logger, "getBlocks", func(ctx context.Context) ([]uint64, error) {
		return s.chain.ListSlots(ctx, window.From, window.To)
	})
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	var records []model.LaunchRecord
	for _, slot := range slots {
		block, err := fetchBlock(ctx, s.chain, s.cfg.Retry, s.logger, slot)
		if err != nil {
			return nil, err
		}
		if block == nil {
			continue
		}
		metrics.BlocksFetched.WithLabelValues("sync").Inc()

		result, err := extract.ExtractBlock(ctx, s.extractor, block, extract.BlockOptions{
			Workers: s.cfg.ExtractWorkers,
			Strict:  true,
			Logger:  s.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("extract slot %d: %w", slot, err)
		}
		for _, r := range result.Records {
			s.logger.Info("launch record",
				zap.String("address", r.Address),
				zap.String("amount", r.Amount.String()),
				zap.Uint64("slot", slot),
				zap.String("tx", r.TxHash),
			)
		}
		records = append(records, result.Records...)
	}
	return records, nil
}

// fetchBlock fetches slot with retries. A skipped slot yields a nil block.
func fetchBlock(ctx context.Context, chainReader ChainReader, policy RetryPolicy, logger *zap.Logger, slot uint64) (*model.Block, error) {
	block, err := callWithRetry(ctx, policy, logger, "getBlock", func(ctx context.Context) (*model.Block, error) {
		return chainReader.FetchBlock(ctx, slot)
	})
	if errors.Is(err, chain.ErrSlotSkipped) {
		logger.Debug("slot skipped", zap.Uint64("slot", slot))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch block %d: %w", slot, err)
	}
	return block, nil
}
