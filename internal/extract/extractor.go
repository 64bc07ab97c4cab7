package extract

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"launchScope/internal/model"
)

// Extractor turns one decoded transaction into zero or more launch records.
type Extractor interface {
	Name() string
	Extract(tx model.Transaction, block BlockContext) ([]model.LaunchRecord, error)
}

// BlockContext carries the block-level fields records are stamped with.
type BlockContext struct {
	Slot   uint64
	Height uint64
	Time   int64
}

// ContextOf returns the BlockContext of block.
func ContextOf(block *model.Block) BlockContext {
	return BlockContext{Slot: block.Slot, Height: block.Height, Time: block.Time}
}

// TxError is a failure to extract from a single transaction.
type TxError struct {
	Signature string
	Err       error
}

func (e *TxError) Error() string {
	return "transaction " + e.Signature + ": " + e.Err.Error()
}

func (e *TxError) Unwrap() error {
	return e.Err
}

// BlockOptions controls ExtractBlock.
type BlockOptions struct {
	// Workers bounds the number of transactions scanned concurrently; <= 0 means unbounded.
	Workers int
	// Strict aborts the whole block on the first transaction error instead of
	// reporting it through Skipped.
	Strict bool
	Logger *zap.Logger
}

// BlockResult is the merged output of ExtractBlock.
type BlockResult struct {
	Records []model.LaunchRecord
	Skipped []*TxError
}

// ExtractBlock applies ex to every transaction of block in parallel and merges
// the records in transaction order.
func ExtractBlock(ctx context.Context, ex Extractor, block *model.Block, opts BlockOptions) (BlockResult, error) {
	if block == nil || len(block.Transactions) == 0 {
		return BlockResult{}, nil
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bctx := ContextOf(block)
	perTx := make([][]model.LaunchRecord, len(block.Transactions))
	errs := make([]*TxError, len(block.Transactions))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i := range block.Transactions {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := ex.Extract(block.Transactions[i], bctx)
			if err != nil {
				txErr := &TxError{Signature: block.Transactions[i].Signature, Err: err}
				if opts.Strict {
					return txErr
				}
				errs[i] = txErr
				return nil
			}
			perTx[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BlockResult{}, err
	}

	var result BlockResult
	for i := range perTx {
		if txErr := errs[i]; txErr != nil {
			logger.Warn("skip transaction",
				zap.String("extractor", ex.Name()),
				zap.Uint64("slot", block.Slot),
				zap.String("tx", txErr.Signature),
				zap.Error(txErr.Err),
			)
			result.Skipped = append(result.Skipped, txErr)
			continue
		}
		result.Records = append(result.Records, perTx[i]...)
	}
	return result, nil
}
