// Package service contains the application services that sit between the
// HTTP/WS surface and the chain, store and cache layers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dloopdao/governd/internal/domain"
	"github.com/dloopdao/governd/internal/governance"
)

// ProposalReader reads proposals from the chain.
type ProposalReader interface {
	ProposalCount(ctx context.Context) (int64, error)
	GetProposal(ctx context.Context, id int64) (domain.Proposal, error)
}

// ProposalView is a proposal decorated with its derived status and voting
// statistics. Status fields are recomputed on every read and never persisted.
type ProposalView struct {
	ID             int64                  `json:"id"`
	Proposer       string                 `json:"proposer"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Type           domain.ProposalType    `json:"type"`
	AssetAddress   string                 `json:"assetAddress"`
	AssetSymbol    string                 `json:"assetSymbol,omitempty"`
	Amount         float64                `json:"amount"`
	ForVotes       float64                `json:"forVotes"`
	AgainstVotes   float64                `json:"againstVotes"`
	Status         domain.ProposalStatus  `json:"status"`
	ReadyToExecute bool                   `json:"readyToExecute"`
	Deadline       time.Time              `json:"deadline"`
	Stats          governance.VotingStats `json:"stats"`
	Executed       bool                   `json:"executed"`
	Canceled       bool                   `json:"canceled"`
	CreatedAt      time.Time              `json:"createdAt"`
	ExecutedTx     string                 `json:"executedTx,omitempty"`
}

// ProposalService serves dashboard proposal reads. Reads are cache-aside:
// Redis first, then postgres, then the chain as a last resort for a proposal
// the indexer has not stored yet.
type ProposalService struct {
	proposals domain.ProposalStore
	votes     domain.VoteStore
	cache     domain.ProposalCache
	chain     ProposalReader
	resolver  *governance.Resolver
	logger    *slog.Logger
	now       func() time.Time
}

// NewProposalService creates a ProposalService with all required dependencies.
func NewProposalService(
	proposals domain.ProposalStore,
	votes domain.VoteStore,
	cache domain.ProposalCache,
	chain ProposalReader,
	resolver *governance.Resolver,
	logger *slog.Logger,
) *ProposalService {
	return &ProposalService{
		proposals: proposals,
		votes:     votes,
		cache:     cache,
		chain:     chain,
		resolver:  resolver,
		logger:    logger,
		now:       time.Now,
	}
}

// view derives the display form of a proposal at the current instant.
func (s *ProposalService) view(p domain.Proposal) ProposalView {
	res := s.resolver.Resolve(p, s.now())
	return ProposalView{
		ID:             p.ID,
		Proposer:       p.Proposer,
		Title:          p.Title,
		Description:    p.Description,
		Type:           p.Type,
		AssetAddress:   p.AssetAddress,
		AssetSymbol:    p.AssetSymbol,
		Amount:         p.Amount,
		ForVotes:       p.ForVotes,
		AgainstVotes:   p.AgainstVotes,
		Status:         res.Status,
		ReadyToExecute: res.ReadyToExecute,
		Deadline:       res.Deadline,
		Stats:          res.Stats,
		Executed:       p.Executed,
		Canceled:       p.Canceled,
		CreatedAt:      p.CreatedAt,
		ExecutedTx:     p.ExecutedTx,
	}
}

// GetProposal retrieves a proposal by ID, checking the cache first, then the
// store, then the chain. Chain hits are written back to the store so the
// indexer does not have to rediscover them.
func (s *ProposalService) GetProposal(ctx context.Context, id int64) (ProposalView, error) {
	if p, err := s.cache.Get(ctx, id); err == nil {
		return s.view(p), nil
	}

	p, err := s.proposals.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) && s.chain != nil {
		p, err = s.chain.GetProposal(ctx, id)
		if err == nil {
			if storeErr := s.proposals.Upsert(ctx, p); storeErr != nil {
				s.logger.WarnContext(ctx, "proposal_service: backfill store failed",
					slog.Int64("proposal_id", id),
					slog.String("error", storeErr.Error()),
				)
			}
		}
	}
	if err != nil {
		return ProposalView{}, fmt.Errorf("proposal_service: get %d: %w", id, err)
	}

	if cacheErr := s.cache.Set(ctx, p); cacheErr != nil {
		s.logger.WarnContext(ctx, "proposal_service: cache set failed",
			slog.Int64("proposal_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}

	return s.view(p), nil
}

// ListProposals returns proposals matching the filter, resolved at read time.
// The list cache key encodes the filter and pagination so distinct queries
// never collide.
func (s *ProposalService) ListProposals(ctx context.Context, filter domain.ProposalFilter, opts domain.ListOpts) ([]ProposalView, error) {
	key := listKey(filter, opts)

	if ps, err := s.cache.GetList(ctx, key); err == nil {
		return s.views(ps), nil
	}

	ps, err := s.proposals.List(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("proposal_service: list: %w", err)
	}

	if cacheErr := s.cache.SetList(ctx, key, ps); cacheErr != nil {
		s.logger.WarnContext(ctx, "proposal_service: cache list set failed",
			slog.String("key", key),
			slog.String("error", cacheErr.Error()),
		)
	}

	return s.views(ps), nil
}

func (s *ProposalService) views(ps []domain.Proposal) []ProposalView {
	views := make([]ProposalView, 0, len(ps))
	for _, p := range ps {
		views = append(views, s.view(p))
	}
	return views
}

// Stats returns the voting statistics for a single proposal.
func (s *ProposalService) Stats(ctx context.Context, id int64) (governance.VotingStats, error) {
	v, err := s.GetProposal(ctx, id)
	if err != nil {
		return governance.VotingStats{}, err
	}
	return v.Stats, nil
}

// ListVotes returns the individual vote records for a proposal.
func (s *ProposalService) ListVotes(ctx context.Context, proposalID int64, opts domain.ListOpts) ([]domain.VoteRecord, error) {
	vs, err := s.votes.ListByProposal(ctx, proposalID, opts)
	if err != nil {
		return nil, fmt.Errorf("proposal_service: list votes for %d: %w", proposalID, err)
	}
	return vs, nil
}

// Count returns the total number of indexed proposals.
func (s *ProposalService) Count(ctx context.Context) (int64, error) {
	count, err := s.proposals.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("proposal_service: count: %w", err)
	}
	return count, nil
}

func listKey(filter domain.ProposalFilter, opts domain.ListOpts) string {
	return fmt.Sprintf("%s:%s:%s:%d:%d", filter.Status, filter.Type, filter.Proposer, opts.Limit, opts.Offset)
}
