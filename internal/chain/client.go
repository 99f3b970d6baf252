// Package chain is the outbound EVM client layer: AssetDAO reads, DLOOP
// token reads, and signed governance transactions. All methods take a
// context and classify node failures as transient (retryable) or contract
// (terminal) via errors.go.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ClientConfig holds RPC connection parameters.
type ClientConfig struct {
	RPCURL      string
	ChainID     int64
	CallTimeout time.Duration
	MaxRetries  int
}

// Client wraps an ethclient connection with per-call timeouts and
// transient-error retries.
type Client struct {
	eth         *ethclient.Client
	chainID     int64
	callTimeout time.Duration
	maxRetries  int
	logger      *slog.Logger
}

// New dials the RPC endpoint and verifies the reported chain ID matches the
// configured one.
func New(ctx context.Context, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	id, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}
	if id.Int64() != cfg.ChainID {
		eth.Close()
		return nil, fmt.Errorf("chain: endpoint reports chain %d, config expects %d", id.Int64(), cfg.ChainID)
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		eth:         eth,
		chainID:     cfg.ChainID,
		callTimeout: timeout,
		maxRetries:  cfg.MaxRetries,
		logger:      logger.With(slog.String("component", "chain")),
	}, nil
}

// Underlying exposes the raw ethclient for callers that need it.
func (c *Client) Underlying() *ethclient.Client { return c.eth }

// ChainID returns the configured chain ID.
func (c *Client) ChainID() int64 { return c.chainID }

// BlockNumber returns the current chain height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.withRetry(ctx, "block_number", func(ctx context.Context) error {
		var err error
		height, err = c.eth.BlockNumber(ctx)
		return err
	})
	return height, err
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// withRetry runs fn under the per-call timeout, retrying transient failures
// with exponential backoff. Contract/ABI errors are returned on the first
// attempt; the same call would revert the same way.
func (c *Client) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := uint(c.maxRetries + 1)
	if attempts < 1 {
		attempts = 1
	}

	return retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
			defer cancel()
			return fn(callCtx)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsTransient),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WarnContext(ctx, "chain: retrying call",
				slog.String("op", op),
				slog.Uint64("attempt", uint64(n+1)),
				slog.String("error", err.Error()),
			)
		}),
	)
}
