package watcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Loop is a long-running ingestion task.
type Loop interface {
	Run(ctx context.Context) error
}

// Watcher supervises the ingestion loops. The loops are expected to run for
// the lifetime of the process, so any of them returning stops the others.
type Watcher struct {
	loops  map[string]Loop
	order  []string
	logger *zap.Logger
}

func New(logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{loops: make(map[string]Loop), logger: logger}
}

// Add registers a loop under name. Nil loops are ignored.
func (w *Watcher) Add(name string, loop Loop) {
	if loop == nil {
		return
	}
	if _, ok := w.loops[name]; !ok {
		w.order = append(w.order, name)
	}
	w.loops[name] = loop
}

// Run starts every loop and waits for the first one to end.
func (w *Watcher) Run(ctx context.Context) error {
	if len(w.loops) == 0 {
		return fmt.Errorf("no ingestion loop configured")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range w.order {
		name, loop := name, w.loops[name]
		g.Go(func() error {
			w.logger.Info("loop start", zap.String("loop", name))
			err := loop.Run(gctx)
			if err == nil {
				err = fmt.Errorf("%s loop exited unexpectedly", name)
			}
			if gctx.Err() == nil {
				w.logger.Error("loop stopped", zap.String("loop", name), zap.Error(err))
			}
			return fmt.Errorf("%s: %w", name, err)
		})
	}
	return g.Wait()
}
