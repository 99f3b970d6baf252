package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dloopdao/governd/internal/domain"
)

const (
	defaultBalanceTTL = 60 * time.Second
	healthTTL         = 30 * time.Second

	healthKey = "protocol:health"
)

// BalanceCache implements domain.BalanceCache. Balance reads hit the chain
// on a miss, so the TTL here directly bounds RPC load per address.
type BalanceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBalanceCache creates a BalanceCache backed by the given Client. A
// non-positive ttl falls back to the default.
func NewBalanceCache(c *Client, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = defaultBalanceTTL
	}
	return &BalanceCache{rdb: c.Underlying(), ttl: ttl}
}

func balanceKey(address string) string {
	return "balance:" + strings.ToLower(address)
}

// Set stores a balance snapshot keyed by lowercased address.
func (bc *BalanceCache) Set(ctx context.Context, b domain.TokenBalance) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("redis: marshal balance %s: %w", b.Address, err)
	}
	if err := bc.rdb.Set(ctx, balanceKey(b.Address), data, bc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set balance %s: %w", b.Address, err)
	}
	return nil
}

// Get retrieves a balance snapshot for an address.
// It returns domain.ErrNotFound when the key does not exist.
func (bc *BalanceCache) Get(ctx context.Context, address string) (domain.TokenBalance, error) {
	data, err := bc.rdb.Get(ctx, balanceKey(address)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.TokenBalance{}, domain.ErrNotFound
		}
		return domain.TokenBalance{}, fmt.Errorf("redis: get balance %s: %w", address, err)
	}

	var b domain.TokenBalance
	if err := json.Unmarshal(data, &b); err != nil {
		return domain.TokenBalance{}, fmt.Errorf("redis: unmarshal balance %s: %w", address, err)
	}
	return b, nil
}

// SetHealth stores the protocol-wide health snapshot.
func (bc *BalanceCache) SetHealth(ctx context.Context, h domain.ProtocolHealth) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("redis: marshal protocol health: %w", err)
	}
	if err := bc.rdb.Set(ctx, healthKey, data, healthTTL).Err(); err != nil {
		return fmt.Errorf("redis: set protocol health: %w", err)
	}
	return nil
}

// GetHealth retrieves the protocol-wide health snapshot.
// It returns domain.ErrNotFound when no snapshot is cached.
func (bc *BalanceCache) GetHealth(ctx context.Context) (domain.ProtocolHealth, error) {
	data, err := bc.rdb.Get(ctx, healthKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ProtocolHealth{}, domain.ErrNotFound
		}
		return domain.ProtocolHealth{}, fmt.Errorf("redis: get protocol health: %w", err)
	}

	var h domain.ProtocolHealth
	if err := json.Unmarshal(data, &h); err != nil {
		return domain.ProtocolHealth{}, fmt.Errorf("redis: unmarshal protocol health: %w", err)
	}
	return h, nil
}

// Compile-time interface check.
var _ domain.BalanceCache = (*BalanceCache)(nil)
