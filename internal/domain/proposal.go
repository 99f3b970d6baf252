package domain

import "time"

// ProposalStatus is the canonical display status of a proposal. It is always
// derived from the proposal's fields and the current time, never stored as
// ground truth.
type ProposalStatus string

const (
	ProposalStatusActive   ProposalStatus = "active"
	ProposalStatusPassed   ProposalStatus = "passed"
	ProposalStatusFailed   ProposalStatus = "failed"
	ProposalStatusExecuted ProposalStatus = "executed"
)

// ProposalType classifies what a proposal asks the DAO treasury to do.
type ProposalType string

const (
	ProposalTypeInvest ProposalType = "invest"
	ProposalTypeDivest ProposalType = "divest"
)

// ChainState is the raw proposal state enum as reported by the AssetDAO
// contract. It is not always present and not always trustworthy.
type ChainState uint8

const (
	ChainStatePending   ChainState = 0
	ChainStateActive    ChainState = 1
	ChainStateDefeated  ChainState = 2
	ChainStateSucceeded ChainState = 3
	ChainStateQueued    ChainState = 4
	ChainStateExecuted  ChainState = 5
	ChainStateExpired   ChainState = 6
)

// Proposal is an AssetDAO governance proposal as indexed from the chain.
// ForVotes and AgainstVotes are normalized whole-token amounts (18-decimal
// fixed point already divided out).
type Proposal struct {
	ID           int64
	Proposer     string
	Title        string
	Description  string
	Type         ProposalType
	AssetAddress string
	AssetSymbol  string
	Amount       float64
	ForVotes     float64
	AgainstVotes float64
	Executed     bool
	Canceled     bool
	ChainState   *ChainState // nil when the contract did not report one
	CreatedAt    time.Time
	VotingEnds   *time.Time // nil when the deadline must be derived
	ExecutedTx   string
	UpdatedAt    time.Time
}

// VoteRecord is a single vote cast on a proposal.
type VoteRecord struct {
	ProposalID int64
	Voter      string
	Support    bool
	Weight     float64 // whole-token voting weight
	TxHash     string
	CastAt     time.Time
}
