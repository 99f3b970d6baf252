package domain

import "time"

// Delegation assigns voting weight from a token holder to another address
// without transferring token ownership.
type Delegation struct {
	ID        int64
	Delegator string
	Delegatee string
	Amount    float64 // whole-token voting weight
	ToAINode  bool    // true when the delegatee is a registered AI node
	TxHash    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AINode is a strategy-execution address that can receive delegated voting
// power. Performance metrics are maintained off-chain by the indexer.
type AINode struct {
	ID             int64
	Address        string
	Name           string
	Strategy       string
	Accuracy       float64 // fraction of votes on the winning side, 0..1
	VotesCast      int64
	DelegatedPower float64 // whole-token units currently delegated
	Active         bool
	RegisteredAt   time.Time
	UpdatedAt      time.Time
}
