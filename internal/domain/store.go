package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ProposalFilter narrows proposal list queries.
type ProposalFilter struct {
	Status   ProposalStatus // empty means all
	Type     ProposalType   // empty means all
	Proposer string         // empty means all
}

// ProposalStore persists indexed proposals.
type ProposalStore interface {
	Upsert(ctx context.Context, p Proposal) error
	UpsertBatch(ctx context.Context, ps []Proposal) error
	GetByID(ctx context.Context, id int64) (Proposal, error)
	List(ctx context.Context, filter ProposalFilter, opts ListOpts) ([]Proposal, error)
	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	CountExecuted(ctx context.Context) (int64, error)
	MaxID(ctx context.Context) (int64, error)
	ListTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]Proposal, error)
	DeleteBatch(ctx context.Context, ids []int64) error
}

// VoteStore persists individual vote records.
type VoteStore interface {
	Insert(ctx context.Context, v VoteRecord) error
	HasVoted(ctx context.Context, proposalID int64, voter string) (bool, error)
	ListByProposal(ctx context.Context, proposalID int64, opts ListOpts) ([]VoteRecord, error)
	ListByVoter(ctx context.Context, voter string, opts ListOpts) ([]VoteRecord, error)
}

// DelegationStore persists delegation state.
type DelegationStore interface {
	Upsert(ctx context.Context, d Delegation) error
	GetByDelegator(ctx context.Context, delegator string) (Delegation, error)
	ListByDelegatee(ctx context.Context, delegatee string, opts ListOpts) ([]Delegation, error)
	SumDelegated(ctx context.Context) (float64, error)
	Delete(ctx context.Context, delegator string) error
}

// AINodeStore persists AI-node registry entries and performance metrics.
type AINodeStore interface {
	Upsert(ctx context.Context, n AINode) error
	GetByID(ctx context.Context, id int64) (AINode, error)
	GetByAddress(ctx context.Context, address string) (AINode, error)
	ListActive(ctx context.Context, opts ListOpts) ([]AINode, error)
	CountActive(ctx context.Context) (int64, error)
	RecordVote(ctx context.Context, address string, onWinningSide bool) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log of governance actions.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
