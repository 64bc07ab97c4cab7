package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"launchScope/internal/extract"
	"launchScope/internal/metrics"
	"launchScope/internal/model"
	"launchScope/internal/storage"
)

// ProcessorConfig holds runtime settings for the log processing loop.
type ProcessorConfig struct {
	Cursor         string
	IdleBackoff    time.Duration
	ExtractWorkers int
	// StrictLogs stops the loop on the first transaction whose logs cannot be
	// paired instead of skipping it.
	StrictLogs bool
}

// Processor drains the block queue, extracts launch records from program logs
// and persists them.
type Processor struct {
	cfg       ProcessorConfig
	queue     *BlockQueue
	extractor extract.Extractor
	records   storage.RecordStore
	state     storage.SyncStateStore
	logger    *zap.Logger

	lastAdvanced uint64
}

// NewProcessor builds a Processor with its dependencies.
func NewProcessor(cfg ProcessorConfig, queue *BlockQueue, extractor extract.Extractor, records storage.RecordStore, state storage.SyncStateStore, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Cursor == "" {
		cfg.Cursor = storage.CursorLog
	}
	if cfg.IdleBackoff <= 0 {
		cfg.IdleBackoff = time.Second
	}
	return &Processor{
		cfg:       cfg,
		queue:     queue,
		extractor: extractor,
		records:   records,
		state:     state,
		logger:    logger.With(zap.String("loop", "process"), zap.String("extractor", extractor.Name())),
	}
}

// Run processes queued blocks in order until ctx is done. A block whose
// records fail to persist is retried after the idle backoff.
func (p *Processor) Run(ctx context.Context) error {
	var pending *model.Block
	for {
		if pending == nil {
			block, ok, err := p.queue.Pop(ctx, p.cfg.IdleBackoff)
			if err != nil {
				return err
			}
			if !ok {
				p.logger.Debug("no block to process")
				continue
			}
			pending = block
		}

		err := p.ProcessBlock(ctx, pending)
		if err == nil {
			pending = nil
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var malformed *extract.MalformedLogsError
		if errors.As(err, &malformed) {
			return err
		}

		p.logger.Error("process block failed", zap.Uint64("slot", pending.Slot), zap.Error(err))
		if err := sleepCtx(ctx, p.cfg.IdleBackoff); err != nil {
			return err
		}
	}
}

// ProcessBlock extracts and persists the records of block, then advances the
// cursor to its slot.
func (p *Processor) ProcessBlock(ctx context.Context, block *model.Block) error {
	result, err := extract.ExtractBlock(ctx, p.extractor, block, extract.BlockOptions{
		Workers: p.cfg.ExtractWorkers,
		Strict:  p.cfg.StrictLogs,
		Logger:  p.logger,
	})
	if err != nil {
		return fmt.Errorf("extract slot %d: %w", block.Slot, err)
	}
	metrics.MalformedTransactions.Add(float64(len(result.Skipped)))

	if len(result.Records) > 0 {
		for _, r := range result.Records {
			p.logger.Info("launch record",
				zap.String("address", r.Address),
				zap.String("amount", r.Amount.String()),
				zap.Uint64("block", r.Block),
				zap.String("tx", r.TxHash),
				zap.Uint32("log_index", r.LogIndex),
			)
		}
		if err := p.records.InsertLaunchRecords(ctx, result.Records); err != nil {
			return fmt.Errorf("store slot %d: %w", block.Slot, err)
		}
	}

	if block.Slot > p.lastAdvanced {
		if err := p.state.SetLastSynced(ctx, p.cfg.Cursor, block.Slot); err != nil {
			return fmt.Errorf("advance cursor to %d: %w", block.Slot, err)
		}
		p.lastAdvanced = block.Slot
		metrics.SyncedBlock.WithLabelValues(p.cfg.Cursor).Set(float64(block.Slot))
	}

	metrics.BlocksProcessed.Inc()
	metrics.RecordsExtracted.WithLabelValues(p.extractor.Name()).Add(float64(len(result.Records)))
	p.logger.Debug("block processed", zap.Uint64("slot", block.Slot), zap.Uint64("height", block.Height), zap.Int("records", len(result.Records)))
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
