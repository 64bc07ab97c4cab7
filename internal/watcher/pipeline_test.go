package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"launchScope/internal/extract"
	"launchScope/internal/model"
	"launchScope/internal/storage"
)

func drain(t *testing.T, q *BlockQueue) []uint64 {
	t.Helper()
	var slots []uint64
	for {
		block, ok, err := q.Pop(context.Background(), time.Millisecond)
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if !ok {
			return slots
		}
		slots = append(slots, block.Slot)
	}
}

func TestBlockQueueFIFO(t *testing.T) {
	ctx := context.Background()
	q := NewBlockQueue(4)
	for _, slot := range []uint64{3, 1, 2} {
		if err := q.Push(ctx, &model.Block{Slot: slot}); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	got := drain(t, q)
	if len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("queue order mismatch: %v", got)
	}
}

func TestBlockQueuePushRespectsContext(t *testing.T) {
	q := NewBlockQueue(1)
	if err := q.Push(context.Background(), &model.Block{Slot: 1}); err != nil {
		t.Fatalf("push: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Push(ctx, &model.Block{Slot: 2}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded on full queue, got %v", err)
	}
}

func newTestFetcher(c *fakeChain, q *BlockQueue, state storage.SyncStateStore, enabled bool) *Fetcher {
	return NewFetcher(FetcherConfig{
		StartBlock: 99,
		Step:       1000,
		Retry:      RetryPolicy{Backoff: time.Millisecond},
		Enabled:    enabled,
	}, c, q, state, nil)
}

func TestFetcherDisabledIsNoop(t *testing.T) {
	c := newFakeChain(200)
	c.addBlock(150)
	q := NewBlockQueue(16)
	f := newTestFetcher(c, q, storage.NewMemoryStore(), false)

	if err := f.FetchOnce(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if q.Len() != 0 || len(c.windows) != 0 {
		t.Fatalf("disabled fetcher touched the chain")
	}

	f.SetEnabled(true)
	if err := f.FetchOnce(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 queued block, got %d", q.Len())
	}
}

func TestFetcherDoesNotRequeue(t *testing.T) {
	ctx := context.Background()
	c := newFakeChain(200)
	c.addBlock(120)
	c.addBlock(180)
	c.skipped[150] = true
	q := NewBlockQueue(16)
	f := newTestFetcher(c, q, storage.NewMemoryStore(), true)

	if err := f.FetchOnce(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := f.FetchOnce(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	got := drain(t, q)
	if len(got) != 2 || got[0] != 120 || got[1] != 180 {
		t.Fatalf("queued slots mismatch: %v", got)
	}

	c.mu.Lock()
	c.tip = 260
	c.mu.Unlock()
	c.addBlock(250)
	if err := f.FetchOnce(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	got = drain(t, q)
	if len(got) != 1 || got[0] != 250 {
		t.Fatalf("expected only the new block, got %v", got)
	}
	if last := c.windows[len(c.windows)-1]; last.From != 201 || last.To != 260 {
		t.Fatalf("window mismatch: %+v", last)
	}
}

func TestFetcherResumesAfterFailedBlock(t *testing.T) {
	ctx := context.Background()
	c := newFakeChain(200)
	c.addBlock(120)
	c.addBlock(180)
	c.fetchErrs[180] = errors.New("timeout")
	q := NewBlockQueue(16)
	f := newTestFetcher(c, q, storage.NewMemoryStore(), true)

	if err := f.FetchOnce(ctx); err == nil {
		t.Fatalf("expected fetch error")
	}
	delete(c.fetchErrs, 180)
	if err := f.FetchOnce(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	got := drain(t, q)
	if len(got) != 2 || got[0] != 120 || got[1] != 180 {
		t.Fatalf("queued slots mismatch: %v", got)
	}
}

func TestFetcherSeedsFromCursor(t *testing.T) {
	ctx := context.Background()
	c := newFakeChain(200)
	c.addBlock(120)
	c.addBlock(180)
	state := storage.NewMemoryStore()
	if err := state.SetLastSynced(ctx, storage.CursorLog, 150); err != nil {
		t.Fatalf("set cursor: %v", err)
	}
	q := NewBlockQueue(16)

	if err := newTestFetcher(c, q, state, true).FetchOnce(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	got := drain(t, q)
	if len(got) != 1 || got[0] != 180 {
		t.Fatalf("expected resume after cursor, got %v", got)
	}
}

func mintTx(program, sig string, users ...string) model.Transaction {
	logs := []string{"Program " + program + " invoke [1]"}
	for _, u := range users {
		logs = append(logs, "Program log: Mint user = "+u+",amount = 100000000")
	}
	logs = append(logs, "Program "+program+" success")
	return model.Transaction{Signature: sig, HasMeta: true, Logs: logs}
}

func TestProcessorPersistThenAdvance(t *testing.T) {
	ctx := context.Background()
	program := testProgram()
	store := newFlakyStore(1)
	p := NewProcessor(ProcessorConfig{IdleBackoff: time.Millisecond}, NewBlockQueue(1), extract.NewLogExtractor(program), store, store, nil)

	block := &model.Block{Slot: 300, Height: 280, Time: 9, Transactions: []model.Transaction{
		mintTx(program.String(), "tx-1", "alice", "bob"),
	}}

	if err := p.ProcessBlock(ctx, block); !errors.Is(err, errInsert) {
		t.Fatalf("expected insert error, got %v", err)
	}
	last, _ := store.LastSynced(ctx, storage.CursorLog, 0)
	if last != 0 {
		t.Fatalf("cursor advanced before persistence: %d", last)
	}

	if err := p.ProcessBlock(ctx, block); err != nil {
		t.Fatalf("process: %v", err)
	}
	last, _ = store.LastSynced(ctx, storage.CursorLog, 0)
	if last != 300 {
		t.Fatalf("expected cursor 300, got %d", last)
	}
	records := store.Records()
	if len(records) != 2 || records[0].LogIndex != 0 || records[1].LogIndex != 1 || records[0].Block != 280 {
		t.Fatalf("records mismatch: %+v", records)
	}

	if err := p.ProcessBlock(ctx, block); err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	if got := len(store.Records()); got != 2 {
		t.Fatalf("reprocessing created duplicates: %d", got)
	}
}

func TestProcessorEmptyBlock(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	p := NewProcessor(ProcessorConfig{}, NewBlockQueue(1), extract.NewLogExtractor(testProgram()), store, store, nil)

	if err := p.ProcessBlock(ctx, &model.Block{Slot: 7}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if store.calls != 0 {
		t.Fatalf("empty block reached the store")
	}
	last, _ := store.LastSynced(ctx, storage.CursorLog, 0)
	if last != 7 {
		t.Fatalf("expected cursor 7, got %d", last)
	}
}

func TestProcessorRunSkipsMalformed(t *testing.T) {
	program := testProgram()
	store := newFlakyStore()
	q := NewBlockQueue(4)
	p := NewProcessor(ProcessorConfig{IdleBackoff: time.Millisecond}, q, extract.NewLogExtractor(program), store, store, nil)

	bad := model.Transaction{Signature: "bad", HasMeta: true, Logs: []string{"Program " + program.String() + " invoke [1]"}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = q.Push(ctx, &model.Block{Slot: 1, Transactions: []model.Transaction{bad, mintTx(program.String(), "good", "alice")}})
	_ = q.Push(ctx, &model.Block{Slot: 2, Transactions: []model.Transaction{mintTx(program.String(), "next", "bob")}})

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(store.Records()) < 2 {
		select {
		case err := <-done:
			t.Fatalf("processor stopped: %v", err)
		case <-deadline:
			t.Fatalf("timed out, records=%d", len(store.Records()))
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestProcessorRunStrictStops(t *testing.T) {
	program := testProgram()
	store := newFlakyStore()
	q := NewBlockQueue(4)
	p := NewProcessor(ProcessorConfig{IdleBackoff: time.Millisecond, StrictLogs: true}, q, extract.NewLogExtractor(program), store, store, nil)

	bad := model.Transaction{Signature: "bad", HasMeta: true, Logs: []string{"Program " + program.String() + " invoke [1]"}}
	_ = q.Push(context.Background(), &model.Block{Slot: 1, Transactions: []model.Transaction{bad}})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := p.Run(ctx)
	var malformed *extract.MalformedLogsError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedLogsError, got %v", err)
	}
}

func TestProcessorRunRetriesFailedInsert(t *testing.T) {
	program := testProgram()
	store := newFlakyStore(1, 2)
	q := NewBlockQueue(4)
	p := NewProcessor(ProcessorConfig{IdleBackoff: time.Millisecond}, q, extract.NewLogExtractor(program), store, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = q.Push(ctx, &model.Block{Slot: 5, Transactions: []model.Transaction{mintTx(program.String(), "tx", "alice")}})

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		last, _ := store.LastSynced(context.Background(), storage.CursorLog, 0)
		if last == 5 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("block was not retried")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
	if got := len(store.Records()); got != 1 {
		t.Fatalf("expected 1 record, got %d", got)
	}
}
