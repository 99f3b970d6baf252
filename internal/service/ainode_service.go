package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dloopdao/governd/internal/domain"
)

// AINodeService serves the AI-node registry and maintains per-node voting
// performance as proposals reach terminal status.
type AINodeService struct {
	nodes       domain.AINodeStore
	delegations domain.DelegationStore
	votes       domain.VoteStore
	logger      *slog.Logger
}

// NewAINodeService creates an AINodeService with all required dependencies.
func NewAINodeService(
	nodes domain.AINodeStore,
	delegations domain.DelegationStore,
	votes domain.VoteStore,
	logger *slog.Logger,
) *AINodeService {
	return &AINodeService{
		nodes:       nodes,
		delegations: delegations,
		votes:       votes,
		logger:      logger,
	}
}

// Register adds or updates a node registry entry.
func (s *AINodeService) Register(ctx context.Context, n domain.AINode) error {
	if err := s.nodes.Upsert(ctx, n); err != nil {
		return fmt.Errorf("ainode_service: register %s: %w", n.Address, err)
	}
	return nil
}

// Get returns a node by row ID.
func (s *AINodeService) Get(ctx context.Context, id int64) (domain.AINode, error) {
	n, err := s.nodes.GetByID(ctx, id)
	if err != nil {
		return domain.AINode{}, fmt.Errorf("ainode_service: get %d: %w", id, err)
	}
	return n, nil
}

// ListActive returns active nodes ordered by delegated power.
func (s *AINodeService) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.AINode, error) {
	ns, err := s.nodes.ListActive(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("ainode_service: list: %w", err)
	}
	return ns, nil
}

// ScoreProposal updates vote-accuracy counters for every registered node
// that voted on a finished proposal. A vote counts as won when it matched
// the final outcome: support on a passed or executed proposal, opposition
// on a failed one. Called by the indexer when a proposal turns terminal.
func (s *AINodeService) ScoreProposal(ctx context.Context, proposalID int64, passed bool) error {
	votes, err := s.votes.ListByProposal(ctx, proposalID, domain.ListOpts{Limit: 1000})
	if err != nil {
		return fmt.Errorf("ainode_service: load votes for %d: %w", proposalID, err)
	}

	for _, v := range votes {
		won := v.Support == passed
		err := s.nodes.RecordVote(ctx, v.Voter, won)
		// Voters that are not registered nodes are expected and skipped.
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "ainode_service: record vote failed",
				slog.String("voter", v.Voter),
				slog.Int64("proposal_id", proposalID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
