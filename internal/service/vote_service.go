package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dloopdao/governd/internal/domain"
	"github.com/dloopdao/governd/internal/governance"
)

// TxSubmitter signs and submits governance transactions with the operator
// key.
type TxSubmitter interface {
	From() string
	Vote(ctx context.Context, proposalID int64, support bool) (string, error)
	ExecuteProposal(ctx context.Context, proposalID int64) (string, error)
	CancelProposal(ctx context.Context, proposalID int64) (string, error)
	CreateProposal(ctx context.Context, pType domain.ProposalType, asset string, amount float64, description string) (string, error)
}

// VoteService handles governance mutations: casting votes, executing and
// cancelling proposals, and creating new ones. Every mutation goes through
// the chain; local state is only updated after the transaction is accepted
// by the node, and caches are invalidated rather than optimistically
// patched.
type VoteService struct {
	proposals domain.ProposalStore
	votes     domain.VoteStore
	cache     domain.ProposalCache
	submitter TxSubmitter
	resolver  *governance.Resolver
	bus       domain.SignalBus
	audit     domain.AuditStore
	logger    *slog.Logger
	now       func() time.Time
}

// NewVoteService creates a VoteService with all required dependencies.
func NewVoteService(
	proposals domain.ProposalStore,
	votes domain.VoteStore,
	cache domain.ProposalCache,
	submitter TxSubmitter,
	resolver *governance.Resolver,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *VoteService {
	return &VoteService{
		proposals: proposals,
		votes:     votes,
		cache:     cache,
		submitter: submitter,
		resolver:  resolver,
		bus:       bus,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

// CastVote submits a vote transaction for the operator address. The proposal
// must still be active; votes on terminal or expired proposals are rejected
// before any chain call is made.
func (s *VoteService) CastVote(ctx context.Context, proposalID int64, support bool) (string, error) {
	p, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return "", fmt.Errorf("vote_service: load proposal %d: %w", proposalID, err)
	}

	res := s.resolver.Resolve(p, s.now())
	if res.Status != domain.ProposalStatusActive {
		return "", fmt.Errorf("vote_service: proposal %d is %s: %w", proposalID, res.Status, domain.ErrVotingClosed)
	}

	voter := s.submitter.From()
	voted, err := s.votes.HasVoted(ctx, proposalID, voter)
	if err != nil {
		return "", fmt.Errorf("vote_service: check prior vote on %d: %w", proposalID, err)
	}
	if voted {
		return "", fmt.Errorf("vote_service: %s already voted on %d: %w", voter, proposalID, domain.ErrAlreadyVoted)
	}

	txHash, err := s.submitter.Vote(ctx, proposalID, support)
	if err != nil {
		return "", fmt.Errorf("vote_service: vote on %d: %w", proposalID, err)
	}

	record := domain.VoteRecord{
		ProposalID: proposalID,
		Voter:      voter,
		Support:    support,
		TxHash:     txHash,
		CastAt:     s.now(),
	}
	if err := s.votes.Insert(ctx, record); err != nil {
		s.logger.WarnContext(ctx, "vote_service: record vote failed",
			slog.Int64("proposal_id", proposalID),
			slog.String("error", err.Error()),
		)
	}

	s.afterMutation(ctx, proposalID, "vote_cast", map[string]any{
		"proposal_id": proposalID,
		"voter":       voter,
		"support":     support,
		"tx_hash":     txHash,
	})
	return txHash, nil
}

// ExecuteProposal submits an execution transaction. Eligibility is
// recomputed here from current state; a proposal that is merely "passed" but
// not yet past its deadline with quorum and majority is rejected.
func (s *VoteService) ExecuteProposal(ctx context.Context, proposalID int64) (string, error) {
	p, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return "", fmt.Errorf("vote_service: load proposal %d: %w", proposalID, err)
	}

	res := s.resolver.Resolve(p, s.now())
	if !res.ReadyToExecute {
		return "", fmt.Errorf("vote_service: proposal %d not executable (status %s): %w",
			proposalID, res.Status, domain.ErrNotExecutable)
	}

	txHash, err := s.submitter.ExecuteProposal(ctx, proposalID)
	if err != nil {
		return "", fmt.Errorf("vote_service: execute %d: %w", proposalID, err)
	}

	s.afterMutation(ctx, proposalID, "proposal_executed", map[string]any{
		"proposal_id": proposalID,
		"tx_hash":     txHash,
	})
	return txHash, nil
}

// CancelProposal submits a cancellation transaction. Executed and already
// cancelled proposals are rejected locally; the contract enforces the
// proposer check.
func (s *VoteService) CancelProposal(ctx context.Context, proposalID int64) (string, error) {
	p, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return "", fmt.Errorf("vote_service: load proposal %d: %w", proposalID, err)
	}
	if p.Executed || p.Canceled {
		return "", fmt.Errorf("vote_service: proposal %d already finalized: %w", proposalID, domain.ErrProposalFinal)
	}

	txHash, err := s.submitter.CancelProposal(ctx, proposalID)
	if err != nil {
		return "", fmt.Errorf("vote_service: cancel %d: %w", proposalID, err)
	}

	s.afterMutation(ctx, proposalID, "proposal_canceled", map[string]any{
		"proposal_id": proposalID,
		"tx_hash":     txHash,
	})
	return txHash, nil
}

// CreateProposal submits a proposal-creation transaction. The indexer picks
// up the new proposal on its next poll; no local row is written here since
// the chain assigns the ID.
func (s *VoteService) CreateProposal(ctx context.Context, pType domain.ProposalType, asset string, amount float64, description string) (string, error) {
	txHash, err := s.submitter.CreateProposal(ctx, pType, asset, amount, description)
	if err != nil {
		return "", fmt.Errorf("vote_service: create proposal: %w", err)
	}

	s.afterMutation(ctx, 0, "proposal_created", map[string]any{
		"type":    string(pType),
		"asset":   asset,
		"amount":  amount,
		"tx_hash": txHash,
	})
	return txHash, nil
}

// afterMutation invalidates caches, appends an audit entry and publishes a
// bus event. All three are best-effort; the transaction already succeeded.
func (s *VoteService) afterMutation(ctx context.Context, proposalID int64, event string, detail map[string]any) {
	if proposalID != 0 {
		if err := s.cache.Invalidate(ctx, proposalID); err != nil {
			s.logger.WarnContext(ctx, "vote_service: cache invalidate failed",
				slog.Int64("proposal_id", proposalID),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := s.cache.InvalidateLists(ctx); err != nil {
		s.logger.WarnContext(ctx, "vote_service: list invalidate failed",
			slog.String("error", err.Error()),
		)
	}

	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "vote_service: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}

	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return
	}
	payload, err := json.Marshal(domain.GovernanceEvent{
		Type:       event,
		ProposalID: proposalID,
		Payload:    detailJSON,
		At:         s.now(),
	})
	if err != nil {
		return
	}
	channel := domain.ChannelProposals
	if event == "vote_cast" {
		channel = domain.ChannelVotes
	}
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "vote_service: publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
