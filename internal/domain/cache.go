package domain

import (
	"context"
	"time"
)

// ProposalCache provides fast proposal lookups for dashboard reads.
type ProposalCache interface {
	Set(ctx context.Context, p Proposal) error
	Get(ctx context.Context, id int64) (Proposal, error)
	SetList(ctx context.Context, key string, ps []Proposal) error
	GetList(ctx context.Context, key string) ([]Proposal, error)
	Invalidate(ctx context.Context, id int64) error
	InvalidateLists(ctx context.Context) error
}

// BalanceCache stores recent token balance reads keyed by address.
type BalanceCache interface {
	Set(ctx context.Context, b TokenBalance) error
	Get(ctx context.Context, address string) (TokenBalance, error)
	SetHealth(ctx context.Context, h ProtocolHealth) error
	GetHealth(ctx context.Context) (ProtocolHealth, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out of governance events to the WS hub and
// the notifier.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
