package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dloopdao/governd/internal/domain"
)

// TokenReader reads DLOOP token state from the chain.
type TokenReader interface {
	BalanceOf(ctx context.Context, holder string) (domain.TokenBalance, error)
	TotalSupply(ctx context.Context) (float64, error)
}

// HeightReader reports the current chain height.
type HeightReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// TokenService serves token balances and the protocol-wide health summary.
// Both are cache-aside over chain reads since balance queries are the
// hottest dashboard endpoint.
type TokenService struct {
	token       TokenReader
	height      HeightReader
	cache       domain.BalanceCache
	proposals   domain.ProposalStore
	delegations domain.DelegationStore
	nodes       domain.AINodeStore
	logger      *slog.Logger
	now         func() time.Time
}

// NewTokenService creates a TokenService with all required dependencies.
func NewTokenService(
	token TokenReader,
	height HeightReader,
	cache domain.BalanceCache,
	proposals domain.ProposalStore,
	delegations domain.DelegationStore,
	nodes domain.AINodeStore,
	logger *slog.Logger,
) *TokenService {
	return &TokenService{
		token:       token,
		height:      height,
		cache:       cache,
		proposals:   proposals,
		delegations: delegations,
		nodes:       nodes,
		logger:      logger,
		now:         time.Now,
	}
}

// GetBalance returns an address's balance snapshot, reading the chain only
// on a cache miss.
func (s *TokenService) GetBalance(ctx context.Context, address string) (domain.TokenBalance, error) {
	if b, err := s.cache.Get(ctx, address); err == nil {
		return b, nil
	}

	b, err := s.token.BalanceOf(ctx, address)
	if err != nil {
		return domain.TokenBalance{}, fmt.Errorf("token_service: balance of %s: %w", address, err)
	}
	b.UpdatedAt = s.now()

	if cacheErr := s.cache.Set(ctx, b); cacheErr != nil {
		s.logger.WarnContext(ctx, "token_service: cache set failed",
			slog.String("address", address),
			slog.String("error", cacheErr.Error()),
		)
	}
	return b, nil
}

// TotalSupply returns the DLOOP total supply in whole tokens.
func (s *TokenService) TotalSupply(ctx context.Context) (float64, error) {
	supply, err := s.token.TotalSupply(ctx)
	if err != nil {
		return 0, fmt.Errorf("token_service: total supply: %w", err)
	}
	return supply, nil
}

// ProtocolHealth assembles the dashboard header summary from the chain and
// the local stores. The snapshot is cached briefly; a partial failure in
// any one input degrades that field to zero rather than failing the whole
// summary.
func (s *TokenService) ProtocolHealth(ctx context.Context) (domain.ProtocolHealth, error) {
	if h, err := s.cache.GetHealth(ctx); err == nil {
		return h, nil
	}

	h := domain.ProtocolHealth{UpdatedAt: s.now()}

	supply, err := s.token.TotalSupply(ctx)
	if err != nil {
		return domain.ProtocolHealth{}, fmt.Errorf("token_service: protocol health: %w", err)
	}
	h.TotalSupply = supply
	h.CirculatingSupply = supply

	if delegated, err := s.delegations.SumDelegated(ctx); err == nil {
		h.TotalDelegated = delegated
	} else {
		s.logger.WarnContext(ctx, "token_service: sum delegated failed", slog.String("error", err.Error()))
	}

	if count, err := s.proposals.CountActive(ctx); err == nil {
		h.ActiveProposals = count
	} else {
		s.logger.WarnContext(ctx, "token_service: active proposal count failed", slog.String("error", err.Error()))
	}

	if count, err := s.proposals.CountExecuted(ctx); err == nil {
		h.ExecutedProposals = count
	} else {
		s.logger.WarnContext(ctx, "token_service: executed proposal count failed", slog.String("error", err.Error()))
	}

	if nodes, err := s.nodes.CountActive(ctx); err == nil {
		h.ActiveAINodes = nodes
	} else {
		s.logger.WarnContext(ctx, "token_service: ai node count failed", slog.String("error", err.Error()))
	}

	if height, err := s.height.BlockNumber(ctx); err == nil {
		h.ChainHeight = height
	} else {
		s.logger.WarnContext(ctx, "token_service: block number failed", slog.String("error", err.Error()))
	}

	if cacheErr := s.cache.SetHealth(ctx, h); cacheErr != nil {
		s.logger.WarnContext(ctx, "token_service: cache health failed", slog.String("error", cacheErr.Error()))
	}
	return h, nil
}
