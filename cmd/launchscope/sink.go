package main

import (
	"context"
	"fmt"

	"launchScope/internal/config"
	"launchScope/internal/storage"
	"launchScope/internal/storage/postgres"
)

type sink struct {
	records storage.RecordStore
	state   storage.SyncStateStore
	close   func()
}

func (s sink) Close() {
	if s.close != nil {
		s.close()
	}
}

func openSink(ctx context.Context, cfg config.Config) (sink, error) {
	switch cfg.Sink {
	case config.SinkPostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return sink{}, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return sink{}, fmt.Errorf("migrate postgres: %w", err)
		}
		return sink{records: store, state: store, close: store.Close}, nil
	case config.SinkJSONL:
		return sink{
			records: storage.NewJsonlStorage(cfg.Out),
			state:   storage.NewFileStateStore(cfg.StateFile),
		}, nil
	default:
		return sink{}, fmt.Errorf("unknown sink %q", cfg.Sink)
	}
}
