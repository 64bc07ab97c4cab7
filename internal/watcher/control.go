package watcher

import (
	"context"
	"os"

	"go.uber.org/zap"
)

// Switch is something that can be paused and resumed at runtime.
type Switch interface {
	SetEnabled(enabled bool)
	Enabled() bool
}

// IngestControl pauses target on the pause signal and resumes it on the
// resume signal.
type IngestControl struct {
	target  Switch
	signals <-chan os.Signal
	pause   os.Signal
	resume  os.Signal
	logger  *zap.Logger
}

func NewIngestControl(target Switch, signals <-chan os.Signal, pause, resume os.Signal, logger *zap.Logger) *IngestControl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestControl{
		target:  target,
		signals: signals,
		pause:   pause,
		resume:  resume,
		logger:  logger.With(zap.String("loop", "control")),
	}
}

// Run applies signals until ctx is done.
func (c *IngestControl) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-c.signals:
			switch sig {
			case c.pause:
				c.target.SetEnabled(false)
			case c.resume:
				c.target.SetEnabled(true)
			default:
				continue
			}
			c.logger.Info("ingestion toggled", zap.String("signal", sig.String()), zap.Bool("enabled", c.target.Enabled()))
		}
	}
}
