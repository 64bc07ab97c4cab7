package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"launchScope/internal/chain"
	"launchScope/internal/config"
	"launchScope/internal/extract"
	"launchScope/internal/metrics"
	"launchScope/internal/storage"
	"launchScope/internal/watcher"
)

func main() {
	root := &cobra.Command{
		Use:          "launchscope",
		Short:        "Solana launch event indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the chain and index launch records",
		RunE:  runWatcher,
	}
	addChainFlags(runCmd.Flags())
	addSinkFlags(runCmd.Flags())
	runCmd.Flags().Uint64("start-block", 0, "slot before the first slot to index")
	runCmd.Flags().Bool("ingest-enabled", true, "enable the queueing fetch loop")
	runCmd.Flags().Bool("direct-enabled", false, "also run the instruction sync loop (requires receiver)")
	runCmd.Flags().Uint64("direct-step", 100, "slots per instruction sync window")
	runCmd.Flags().Uint64("queue-step", 1000, "slots per fetch window")
	runCmd.Flags().Int("queue-size", 1024, "block queue capacity")
	runCmd.Flags().Duration("poll-interval", time.Second, "delay between sync passes")
	runCmd.Flags().Duration("idle-backoff", time.Second, "processor wait when the queue is empty")
	runCmd.Flags().Int("extract-workers", 4, "parallel transaction extraction workers")
	runCmd.Flags().Bool("strict-logs", false, "stop on malformed program logs")
	runCmd.Flags().String("metrics-addr", ":9102", "prometheus listen address, empty disables")
	root.AddCommand(runCmd)

	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Index a fixed slot range with the instruction strategy",
		RunE:  runBackfill,
	}
	addChainFlags(backfillCmd.Flags())
	addSinkFlags(backfillCmd.Flags())
	backfillCmd.Flags().Uint64("from", 0, "first slot (inclusive)")
	backfillCmd.Flags().Uint64("to", 0, "last slot (inclusive), 0 means current tip")
	backfillCmd.Flags().Uint64("direct-step", 100, "slots per window")
	backfillCmd.Flags().Int("extract-workers", 4, "parallel transaction extraction workers")
	root.AddCommand(backfillCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the postgres schema",
		RunE:  runMigrate,
	}
	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(migrateCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print indexed totals and the latest records",
		RunE:  runStats,
	}
	statsCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	statsCmd.Flags().Int("limit", 10, "number of recent records to print")
	statsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(statsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addChainFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "Solana RPC URL")
	flags.String("launch-program", "", "launch program id (base58)")
	flags.String("receiver", "", "mint fee receiver (base58)")
	flags.Float64("rpc-rps", 0, "maximum RPC requests per second, 0 means unlimited")
	flags.Int("rpc-burst", 5, "RPC rate limiter burst")
	flags.Uint32("rpc-breaker-failures", 10, "consecutive RPC failures that open the circuit, 0 disables")
	flags.Duration("rpc-breaker-cooldown", 30*time.Second, "time the circuit stays open")
	flags.Int("max-retries", 5, "maximum retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func addSinkFlags(flags *pflag.FlagSet) {
	flags.String("sink", config.SinkPostgres, "record sink (postgres, jsonl)")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("out", "./data/launch_records.jsonl", "output JSONL path")
	flags.String("state-file", "./data/sync_state.json", "sync state file for the jsonl sink")
}

func runWatcher(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chainOptions(cfg))
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	sink, err := openSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer sink.Close()

	retry := watcher.RetryPolicy{MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff}
	w := watcher.New(logger)

	if cfg.DirectEnabled {
		w.Add("sync", watcher.NewSyncer(watcher.SyncerConfig{
			Cursor:         storage.CursorInstruction,
			StartBlock:     cfg.StartBlock,
			Step:           cfg.DirectStep,
			PollInterval:   cfg.PollInterval,
			Retry:          retry,
			ExtractWorkers: cfg.ExtractWorkers,
		}, chainClient, extract.NewInstructionExtractor(cfg.Program(), cfg.ReceiverKey()), sink.records, sink.state, logger))
	}

	queue := watcher.NewBlockQueue(cfg.QueueSize)
	fetcher := watcher.NewFetcher(watcher.FetcherConfig{
		Cursor:       storage.CursorLog,
		StartBlock:   cfg.StartBlock,
		Step:         cfg.QueueStep,
		PollInterval: cfg.PollInterval,
		Retry:        retry,
		Enabled:      cfg.IngestEnabled,
	}, chainClient, queue, sink.state, logger)
	w.Add("fetch", fetcher)

	// SIGUSR1 pauses queue ingestion, SIGUSR2 resumes it.
	toggles := make(chan os.Signal, 1)
	signal.Notify(toggles, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(toggles)
	w.Add("control", watcher.NewIngestControl(fetcher, toggles, syscall.SIGUSR1, syscall.SIGUSR2, logger))

	w.Add("process", watcher.NewProcessor(watcher.ProcessorConfig{
		Cursor:         storage.CursorLog,
		IdleBackoff:    cfg.IdleBackoff,
		ExtractWorkers: cfg.ExtractWorkers,
		StrictLogs:     cfg.StrictLogs,
	}, queue, extract.NewLogExtractor(cfg.Program()), sink.records, sink.state, logger))

	if cfg.MetricsAddr != "" {
		w.Add("metrics", metricsLoop{addr: cfg.MetricsAddr, logger: logger})
	}

	logger.Info("watcher start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("launch_program", cfg.LaunchProgram),
		zap.String("receiver", cfg.Receiver),
		zap.Uint64("start_block", cfg.StartBlock),
		zap.Bool("direct_enabled", cfg.DirectEnabled),
		zap.Bool("ingest_enabled", cfg.IngestEnabled),
		zap.Uint64("direct_step", cfg.DirectStep),
		zap.Uint64("queue_step", cfg.QueueStep),
		zap.String("sink", cfg.Sink),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	return cleanExit(logger, w.Run(ctx))
}

type metricsLoop struct {
	addr   string
	logger *zap.Logger
}

func (m metricsLoop) Run(ctx context.Context) error {
	return metrics.Serve(ctx, m.addr, m.logger)
}

// loadConfig loads and validates the configuration. forceDirect turns on the
// instruction strategy regardless of direct-enabled.
func loadConfig(cmd *cobra.Command, forceDirect bool) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}

	if forceDirect {
		cfg.DirectEnabled = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Sync()
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func cleanExit(logger *zap.Logger, err error) error {
	if errors.Is(err, context.Canceled) {
		logger.Info("shutdown complete")
		return nil
	}
	return err
}

func chainOptions(cfg config.Config) chain.Options {
	return chain.Options{
		RequestsPerSecond: cfg.RPCRequestsPerSecond,
		Burst:             cfg.RPCBurst,
		BreakerFailures:   cfg.RPCBreakerFailures,
		BreakerCooldown:   cfg.RPCBreakerCooldown,
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
