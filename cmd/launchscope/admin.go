package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchScope/internal/config"
	"launchScope/internal/storage/postgres"
)

func openPostgres(cmd *cobra.Command) (*postgres.Store, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	cfg.Sink = config.SinkPostgres
	if err := cfg.ValidateSink(); err != nil {
		return nil, nil, err
	}

	store, err := postgres.NewStore(cmd.Context(), cfg.PGDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	logger.Debug("postgres connected", zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
	return store, logger, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	store, logger, err := openPostgres(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer store.Close()

	if err := store.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("schema ready")
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	store, logger, err := openPostgres(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	fmt.Fprintf(os.Stdout, "records:      %d\n", stats.Records)
	fmt.Fprintf(os.Stdout, "addresses:    %d\n", stats.Addresses)
	fmt.Fprintf(os.Stdout, "total amount: %s\n", stats.TotalAmount.String())
	fmt.Fprintf(os.Stdout, "latest block: %d\n", stats.LatestBlock)

	if limit <= 0 {
		return nil
	}
	recent, err := store.RecentRecords(ctx, 1, limit)
	if err != nil {
		return fmt.Errorf("load recent records: %w", err)
	}
	for _, r := range recent {
		fmt.Fprintf(os.Stdout, "%d\t%s\t%s\t%s:%d\n", r.Block, r.Address, r.Amount.String(), r.TxHash, r.LogIndex)
	}
	return nil
}
