package governance

import (
	"time"

	"github.com/dloopdao/governd/internal/domain"
)

// DefaultVotingPeriod is the voting window applied when a proposal carries
// no explicit deadline.
const DefaultVotingPeriod = 72 * time.Hour

// Resolution is the full derived view of a proposal at one instant.
// ReadyToExecute is always recomputed from tallies and deadline, never read
// from chain state or a prior resolution.
type Resolution struct {
	Status         domain.ProposalStatus `json:"status"`
	ReadyToExecute bool                  `json:"ready_to_execute"`
	Deadline       time.Time             `json:"deadline"`
	Stats          VotingStats           `json:"stats"`
}

// Resolver derives canonical proposal statuses. The zero value is not
// usable; construct with NewResolver.
type Resolver struct {
	quorum       float64
	votingPeriod time.Duration
}

// NewResolver creates a Resolver with the given quorum threshold (whole
// tokens) and voting period. Non-positive arguments fall back to the
// protocol defaults.
func NewResolver(quorum float64, votingPeriod time.Duration) *Resolver {
	if quorum <= 0 {
		quorum = QuorumThreshold
	}
	if votingPeriod <= 0 {
		votingPeriod = DefaultVotingPeriod
	}
	return &Resolver{quorum: quorum, votingPeriod: votingPeriod}
}

// Deadline returns the proposal's voting deadline, deriving it from
// CreatedAt when no explicit end was supplied.
func (r *Resolver) Deadline(p domain.Proposal) time.Time {
	if p.VotingEnds != nil && !p.VotingEnds.IsZero() {
		return *p.VotingEnds
	}
	return p.CreatedAt.Add(r.votingPeriod)
}

// Resolve derives the proposal's status and execution eligibility at the
// given instant. It is total and pure: exactly one status comes back for
// any input, and identical inputs always produce identical results.
//
// Priority order:
//  1. executed flag (absorbing, beats everything)
//  2. canceled flag (absorbing, displays as failed)
//  3. a terminal on-chain state enum, when present (authoritative)
//  4. deadline heuristic: active before the deadline; afterwards passed
//     only on strict majority AND quorum, otherwise failed
//
// A tie is failed (majority requires forVotes strictly greater), and zero
// votes after the deadline is failed.
func (r *Resolver) Resolve(p domain.Proposal, now time.Time) Resolution {
	deadline := r.Deadline(p)
	stats := CalculateVotingStatsWithQuorum(p.ForVotes, p.AgainstVotes, r.quorum)

	res := Resolution{
		Deadline: deadline,
		Stats:    stats,
	}
	res.Status = r.resolveStatus(p, deadline, stats, now)

	// Execution eligibility is recomputed from tallies and deadline
	// regardless of how the status itself was derived.
	res.ReadyToExecute = res.Status == domain.ProposalStatusPassed &&
		!p.Executed && !p.Canceled &&
		!now.Before(deadline) &&
		majorityAchieved(p) && stats.MeetsQuorum

	return res
}

func (r *Resolver) resolveStatus(p domain.Proposal, deadline time.Time, stats VotingStats, now time.Time) domain.ProposalStatus {
	if p.Executed {
		return domain.ProposalStatusExecuted
	}
	if p.Canceled {
		return domain.ProposalStatusFailed
	}

	// A terminal contract-reported state wins over the deadline heuristic.
	// Non-terminal states (Pending, Active) carry no information the clock
	// does not, so they fall through.
	if p.ChainState != nil {
		switch *p.ChainState {
		case domain.ChainStateExecuted:
			return domain.ProposalStatusExecuted
		case domain.ChainStateDefeated, domain.ChainStateExpired:
			return domain.ProposalStatusFailed
		case domain.ChainStateSucceeded, domain.ChainStateQueued:
			return domain.ProposalStatusPassed
		}
	}

	if now.Before(deadline) {
		return domain.ProposalStatusActive
	}
	if majorityAchieved(p) && stats.MeetsQuorum {
		return domain.ProposalStatusPassed
	}
	return domain.ProposalStatusFailed
}

// majorityAchieved requires strictly more for-votes than against, and at
// least one for-vote: an untouched proposal never passes.
func majorityAchieved(p domain.Proposal) bool {
	return p.ForVotes > p.AgainstVotes && p.ForVotes > 0
}

// ResolveStatus derives a proposal's resolution using the protocol-default
// quorum and voting period. Call sites that carry operator-tuned governance
// parameters should hold their own Resolver instead.
func ResolveStatus(p domain.Proposal, now time.Time) Resolution {
	return NewResolver(QuorumThreshold, DefaultVotingPeriod).Resolve(p, now)
}
