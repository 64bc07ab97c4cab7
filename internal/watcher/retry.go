package watcher

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"launchScope/internal/chain"
	"launchScope/internal/metrics"
)

// RetryPolicy bounds retries of RPC calls.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// callWithRetry runs fn until it succeeds, the retries are exhausted, or ctx
// is done, doubling the delay after each attempt. Skipped slots are final.
func callWithRetry[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, method string, fn func(context.Context) (T, error)) (T, error) {
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := policy.Backoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		out, err := fn(ctx)
		if err == nil || errors.Is(err, chain.ErrSlotSkipped) {
			return out, err
		}
		metrics.RPCErrors.WithLabelValues(method).Inc()
		logger.Warn("rpc call failed", zap.String("method", method), zap.Int("attempt", attempt+1), zap.Error(err))
		if attempt >= maxRetries || ctx.Err() != nil {
			return out, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
