package domain

import (
	"encoding/json"
	"time"
)

// Event channels published on the signal bus and fanned out to WS clients.
const (
	ChannelProposals   = "proposals"
	ChannelVotes       = "votes"
	ChannelDelegations = "delegations"
	ChannelAINodes     = "ainodes"
	ChannelHealth      = "health"
)

// GovernanceEvent is the envelope for every message on the signal bus.
type GovernanceEvent struct {
	Type       string          `json:"type"` // e.g. "proposal_created", "vote_cast"
	ProposalID int64           `json:"proposal_id,omitempty"`
	Address    string          `json:"address,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	At         time.Time       `json:"at"`
}

// ServiceStatus is a summary of the daemon's current operational state.
type ServiceStatus struct {
	Mode             string `json:"mode"`
	ChainConnected   bool   `json:"chain_connected"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	IndexedProposals int64  `json:"indexed_proposals"`
	ChainHeight      uint64 `json:"chain_height"`
}
