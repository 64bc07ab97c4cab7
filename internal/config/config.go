package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	SinkPostgres = "postgres"
	SinkJSONL    = "jsonl"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL        string
	LaunchProgram string
	Receiver      string
	StartBlock    uint64

	IngestEnabled  bool
	DirectEnabled  bool
	DirectStep     uint64
	QueueStep      uint64
	QueueSize      int
	PollInterval   time.Duration
	IdleBackoff    time.Duration
	ExtractWorkers int
	StrictLogs     bool

	Sink      string
	PGDSN     string
	Out       string
	StateFile string

	RPCRequestsPerSecond float64
	RPCBurst             int
	RPCBreakerFailures   uint32
	RPCBreakerCooldown   time.Duration

	MaxRetries   int
	RetryBackoff time.Duration
	MetricsAddr  string
	LogLevel     string

	program  solana.PublicKey
	receiver solana.PublicKey
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LAUNCHSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("ingest-enabled", true)
	v.SetDefault("direct-enabled", false)
	v.SetDefault("direct-step", uint64(100))
	v.SetDefault("queue-step", uint64(1000))
	v.SetDefault("queue-size", 1024)
	v.SetDefault("poll-interval", time.Second)
	v.SetDefault("idle-backoff", time.Second)
	v.SetDefault("extract-workers", 4)
	v.SetDefault("sink", SinkPostgres)
	v.SetDefault("out", "./data/launch_records.jsonl")
	v.SetDefault("state-file", "./data/sync_state.json")
	v.SetDefault("rpc-burst", 5)
	v.SetDefault("rpc-breaker-failures", uint32(10))
	v.SetDefault("rpc-breaker-cooldown", 30*time.Second)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("metrics-addr", ":9102")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:               strings.TrimSpace(v.GetString("rpc")),
		LaunchProgram:        strings.TrimSpace(v.GetString("launch-program")),
		Receiver:             strings.TrimSpace(v.GetString("receiver")),
		StartBlock:           v.GetUint64("start-block"),
		IngestEnabled:        v.GetBool("ingest-enabled"),
		DirectEnabled:        v.GetBool("direct-enabled"),
		DirectStep:           v.GetUint64("direct-step"),
		QueueStep:            v.GetUint64("queue-step"),
		QueueSize:            v.GetInt("queue-size"),
		PollInterval:         v.GetDuration("poll-interval"),
		IdleBackoff:          v.GetDuration("idle-backoff"),
		ExtractWorkers:       v.GetInt("extract-workers"),
		StrictLogs:           v.GetBool("strict-logs"),
		Sink:                 strings.ToLower(strings.TrimSpace(v.GetString("sink"))),
		PGDSN:                v.GetString("pg-dsn"),
		Out:                  v.GetString("out"),
		StateFile:            v.GetString("state-file"),
		RPCRequestsPerSecond: v.GetFloat64("rpc-rps"),
		RPCBurst:             v.GetInt("rpc-burst"),
		RPCBreakerFailures:   v.GetUint32("rpc-breaker-failures"),
		RPCBreakerCooldown:   v.GetDuration("rpc-breaker-cooldown"),
		MaxRetries:           v.GetInt("max-retries"),
		RetryBackoff:         v.GetDuration("retry-backoff"),
		MetricsAddr:          v.GetString("metrics-addr"),
		LogLevel:             v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the settings the watcher needs and parses the program keys.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.LaunchProgram == "" {
		return fmt.Errorf("launch-program is required")
	}
	program, err := solana.PublicKeyFromBase58(c.LaunchProgram)
	if err != nil {
		return fmt.Errorf("invalid launch-program %q: %w", c.LaunchProgram, err)
	}
	c.program = program

	if c.DirectEnabled {
		if c.Receiver == "" {
			return fmt.Errorf("receiver is required when direct-enabled is set")
		}
		receiver, err := solana.PublicKeyFromBase58(c.Receiver)
		if err != nil {
			return fmt.Errorf("invalid receiver %q: %w", c.Receiver, err)
		}
		c.receiver = receiver
		if c.DirectStep == 0 {
			return fmt.Errorf("direct-step must be greater than zero")
		}
	}
	if c.QueueStep == 0 {
		return fmt.Errorf("queue-step must be greater than zero")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max-retries must not be negative")
	}

	return c.ValidateSink()
}

// ValidateSink checks only the storage settings.
func (c *Config) ValidateSink() error {
	switch c.Sink {
	case SinkPostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres sink")
		}
	case SinkJSONL:
		if c.Out == "" || c.StateFile == "" {
			return fmt.Errorf("out and state-file are required for the jsonl sink")
		}
	default:
		return fmt.Errorf("unknown sink %q (want %s or %s)", c.Sink, SinkPostgres, SinkJSONL)
	}
	return nil
}

// Program returns the launch program key parsed by Validate.
func (c Config) Program() solana.PublicKey {
	return c.program
}

// ReceiverKey returns the fee receiver key parsed by Validate.
func (c Config) ReceiverKey() solana.PublicKey {
	return c.receiver
}
