package watcher

import (
	"context"
	"time"

	"launchScope/internal/metrics"
	"launchScope/internal/model"
)

// BlockQueue hands fetched blocks to the log processor in fetch order.
// Push blocks while the queue is full.
type BlockQueue struct {
	ch chan *model.Block
}

func NewBlockQueue(size int) *BlockQueue {
	if size <= 0 {
		size = 1024
	}
	return &BlockQueue{ch: make(chan *model.Block, size)}
}

// Push enqueues block, waiting for room until ctx is done.
func (q *BlockQueue) Push(ctx context.Context, block *model.Block) error {
	select {
	case q.ch <- block:
		metrics.QueueDepth.Set(float64(len(q.ch)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop dequeues the oldest block, waiting at most wait. ok is false when
// nothing arrived in time.
func (q *BlockQueue) Pop(ctx context.Context, wait time.Duration) (block *model.Block, ok bool, err error) {
	select {
	case block = <-q.ch:
		metrics.QueueDepth.Set(float64(len(q.ch)))
		return block, true, nil
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case block = <-q.ch:
		metrics.QueueDepth.Set(float64(len(q.ch)))
		return block, true, nil
	case <-timer.C:
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Len returns the number of queued blocks.
func (q *BlockQueue) Len() int {
	return len(q.ch)
}
