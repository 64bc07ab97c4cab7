package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchScope/internal/chain"
	"launchScope/internal/extract"
	"launchScope/internal/storage"
	"launchScope/internal/watcher"
)

func runBackfill(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	from, _ := cmd.Flags().GetUint64("from")
	to, _ := cmd.Flags().GetUint64("to")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chainOptions(cfg))
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	if to == 0 {
		tip, err := chainClient.CurrentSlot(ctx)
		if err != nil {
			return fmt.Errorf("get current slot: %w", err)
		}
		to = tip
	}
	if from > to {
		return fmt.Errorf("from (%d) is after to (%d)", from, to)
	}

	sink, err := openSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer sink.Close()

	syncer := watcher.NewSyncer(watcher.SyncerConfig{
		Cursor:         storage.CursorInstruction,
		Step:           cfg.DirectStep,
		Retry:          watcher.RetryPolicy{MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff},
		ExtractWorkers: cfg.ExtractWorkers,
	}, chainClient, extract.NewInstructionExtractor(cfg.Program(), cfg.ReceiverKey()), sink.records, sink.state, logger)

	logger.Info("backfill start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.Uint64("step", cfg.DirectStep),
		zap.String("sink", cfg.Sink),
	)

	if err := syncer.SyncRange(ctx, from, to); err != nil {
		return cleanExit(logger, err)
	}
	logger.Info("backfill complete", zap.Uint64("from", from), zap.Uint64("to", to))
	return nil
}
