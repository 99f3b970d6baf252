package domain

import "time"

// TokenBalance is a DLOOP balance snapshot for a single address.
type TokenBalance struct {
	Address   string
	Balance   float64 // whole tokens
	Delegated float64 // portion currently delegated away
	UpdatedAt time.Time
}

// ProtocolHealth summarizes protocol-wide state for the dashboard header.
type ProtocolHealth struct {
	TotalSupply       float64
	CirculatingSupply float64
	TotalDelegated    float64
	ActiveProposals   int64
	ExecutedProposals int64
	ActiveAINodes     int64
	ChainHeight       uint64
	IndexerLagSeconds int64
	UpdatedAt         time.Time
}
