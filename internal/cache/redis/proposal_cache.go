package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dloopdao/governd/internal/domain"
)

const (
	proposalTTL     = 30 * time.Second
	proposalListTTL = 15 * time.Second

	// proposalListIndex tracks every cached list key so InvalidateLists can
	// drop them all without a SCAN.
	proposalListIndex = "proposal:lists"
)

// ProposalCache implements domain.ProposalCache using Redis hashes with
// JSON-serialized proposal data. List results are cached under caller-chosen
// keys with a shorter TTL since they go stale on every tally change.
//
// Key schema:
//
//	proposal:{id}        - hash with field "data" containing JSON
//	proposal:list:{key}  - string value of a JSON array
type ProposalCache struct {
	rdb *redis.Client
}

// NewProposalCache creates a ProposalCache backed by the given Client.
func NewProposalCache(c *Client) *ProposalCache {
	return &ProposalCache{rdb: c.Underlying()}
}

func proposalKey(id int64) string {
	return "proposal:" + strconv.FormatInt(id, 10)
}

func proposalListKey(key string) string {
	return "proposal:list:" + key
}

// Set stores a proposal in the cache with a short TTL.
func (pc *ProposalCache) Set(ctx context.Context, p domain.Proposal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: marshal proposal %d: %w", p.ID, err)
	}

	key := proposalKey(p.ID)

	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, proposalTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set proposal %d: %w", p.ID, err)
	}
	return nil
}

// Get retrieves a proposal by ID.
// It returns domain.ErrNotFound when the key does not exist.
func (pc *ProposalCache) Get(ctx context.Context, id int64) (domain.Proposal, error) {
	data, err := pc.rdb.HGet(ctx, proposalKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Proposal{}, domain.ErrNotFound
		}
		return domain.Proposal{}, fmt.Errorf("redis: get proposal %d: %w", id, err)
	}

	var p domain.Proposal
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Proposal{}, fmt.Errorf("redis: unmarshal proposal %d: %w", id, err)
	}
	return p, nil
}

// SetList caches a list result under the given key and records the key in
// the list index so it can be invalidated in bulk.
func (pc *ProposalCache) SetList(ctx context.Context, key string, ps []domain.Proposal) error {
	data, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("redis: marshal proposal list %s: %w", key, err)
	}

	lk := proposalListKey(key)

	pipe := pc.rdb.TxPipeline()
	pipe.Set(ctx, lk, data, proposalListTTL)
	pipe.SAdd(ctx, proposalListIndex, lk)
	pipe.Expire(ctx, proposalListIndex, time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set proposal list %s: %w", key, err)
	}
	return nil
}

// GetList retrieves a cached list result.
// It returns domain.ErrNotFound when the key does not exist.
func (pc *ProposalCache) GetList(ctx context.Context, key string) ([]domain.Proposal, error) {
	data, err := pc.rdb.Get(ctx, proposalListKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get proposal list %s: %w", key, err)
	}

	var ps []domain.Proposal
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("redis: unmarshal proposal list %s: %w", key, err)
	}
	return ps, nil
}

// Invalidate removes a single proposal from the cache. List keys are left to
// InvalidateLists since any list may contain the proposal.
func (pc *ProposalCache) Invalidate(ctx context.Context, id int64) error {
	if err := pc.rdb.Del(ctx, proposalKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate proposal %d: %w", id, err)
	}
	return nil
}

// InvalidateLists drops every cached list result.
func (pc *ProposalCache) InvalidateLists(ctx context.Context) error {
	keys, err := pc.rdb.SMembers(ctx, proposalListIndex).Result()
	if err != nil {
		return fmt.Errorf("redis: read proposal list index: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	pipe := pc.rdb.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.Del(ctx, proposalListIndex)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: invalidate proposal lists: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ProposalCache = (*ProposalCache)(nil)
