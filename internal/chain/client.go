package chain

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"launchScope/internal/model"
)

// JSON-RPC error codes the node returns for slots that will never hold a block.
const (
	codeSlotSkipped            = -32007
	codeLongTermStorageSkipped = -32009
)

// ErrSlotSkipped is returned by FetchBlock when the slot has no block.
var ErrSlotSkipped = errors.New("slot skipped")

// Options tunes how hard the client leans on the node.
type Options struct {
	// RequestsPerSecond caps outgoing calls. Zero means unlimited.
	RequestsPerSecond float64
	Burst             int
	// BreakerFailures consecutive failures open the circuit for BreakerCooldown.
	// Zero disables the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Client is a read-only Solana JSON-RPC client.
type Client struct {
	rpcClient  *rpc.Client
	commitment solrpc.CommitmentType
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		rpcClient:  rpcClient,
		commitment: solrpc.CommitmentConfirmed,
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	if opts.BreakerFailures > 0 {
		cooldown := opts.BreakerCooldown
		if cooldown <= 0 {
			cooldown = 30 * time.Second
		}
		failures := opts.BreakerFailures
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "solana-rpc",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || isSkipped(err) || errors.Is(err, context.Canceled)
			},
		})
	}
	return c, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

type commitmentConfig struct {
	Commitment solrpc.CommitmentType `json:"commitment"`
}

type blockConfig struct {
	Encoding                       string                `json:"encoding"`
	TransactionDetails             string                `json:"transactionDetails"`
	Rewards                        bool                  `json:"rewards"`
	Commitment                     solrpc.CommitmentType `json:"commitment"`
	MaxSupportedTransactionVersion uint64                `json:"maxSupportedTransactionVersion"`
}

// CurrentSlot returns the slot of the chain tip.
func (c *Client) CurrentSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	err := c.call(ctx, &slot, "getSlot", commitmentConfig{Commitment: c.commitment})
	return slot, err
}

// ListSlots returns the slots in [start, end] that hold a confirmed block.
func (c *Client) ListSlots(ctx context.Context, start, end uint64) ([]uint64, error) {
	var slots []uint64
	err := c.call(ctx, &slots, "getBlocks", start, end, commitmentConfig{Commitment: c.commitment})
	return slots, err
}

// FetchBlock returns the block at slot with full transaction detail.
func (c *Client) FetchBlock(ctx context.Context, slot uint64) (*model.Block, error) {
	var result *solrpc.GetBlockResult
	err := c.call(ctx, &result, "getBlock", slot, blockConfig{
		Encoding:                       "base64",
		TransactionDetails:             "full",
		Rewards:                        false,
		Commitment:                     c.commitment,
		MaxSupportedTransactionVersion: 0,
	})
	if err != nil {
		if isSkipped(err) {
			return nil, ErrSlotSkipped
		}
		return nil, err
	}
	if result == nil {
		return nil, ErrSlotSkipped
	}
	return ConvertBlock(slot, result), nil
}

// call sends one request through the rate limiter and circuit breaker.
func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if c.breaker == nil {
		return c.rpcClient.CallContext(ctx, result, method, args...)
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.rpcClient.CallContext(ctx, result, method, args...)
	})
	return err
}

func isSkipped(err error) bool {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	code := rpcErr.ErrorCode()
	return code == codeSlotSkipped || code == codeLongTermStorageSkipped
}
