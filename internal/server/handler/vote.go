package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// VoteService defines the proposal mutation methods the vote handler requires
// from the service layer.
type VoteService interface {
	CastVote(ctx context.Context, proposalID int64, support bool) (string, error)
	ExecuteProposal(ctx context.Context, proposalID int64) (string, error)
	CancelProposal(ctx context.Context, proposalID int64) (string, error)
}

// VoteHandler serves the proposal mutation endpoints. All of them submit a
// transaction and return its hash; the indexer updates the stored proposal
// once the chain reflects the change.
type VoteHandler struct {
	votes  VoteService
	logger *slog.Logger
}

// NewVoteHandler creates a VoteHandler with the given service and logger.
// votes may be nil when the daemon runs without an operator key; the
// mutation endpoints then return 503.
func NewVoteHandler(votes VoteService, logger *slog.Logger) *VoteHandler {
	return &VoteHandler{
		votes:  votes,
		logger: logger,
	}
}

// castVoteRequest is the JSON body for the vote endpoint.
type castVoteRequest struct {
	Support bool `json:"support"`
}

// txResponse wraps the hash of a submitted transaction.
type txResponse struct {
	TxHash string `json:"tx_hash"`
}

// CastVote submits a vote on a proposal.
// POST /api/proposals/{id}/vote
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	id, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	if h.votes == nil {
		writeError(w, http.StatusServiceUnavailable, "no operator key configured")
		return
	}

	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	txHash, err := h.votes.CastVote(r.Context(), id, req.Support)
	if err != nil {
		writeChainError(w, r, h.logger, "cast vote", err)
		return
	}

	writeJSON(w, http.StatusAccepted, txResponse{TxHash: txHash})
}

// ExecuteProposal executes a passed proposal whose timelock has elapsed.
// POST /api/proposals/{id}/execute
func (h *VoteHandler) ExecuteProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	if h.votes == nil {
		writeError(w, http.StatusServiceUnavailable, "no operator key configured")
		return
	}

	txHash, err := h.votes.ExecuteProposal(r.Context(), id)
	if err != nil {
		writeChainError(w, r, h.logger, "execute proposal", err)
		return
	}

	writeJSON(w, http.StatusAccepted, txResponse{TxHash: txHash})
}

// CancelProposal cancels a proposal that has not been finalized.
// POST /api/proposals/{id}/cancel
func (h *VoteHandler) CancelProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	if h.votes == nil {
		writeError(w, http.StatusServiceUnavailable, "no operator key configured")
		return
	}

	txHash, err := h.votes.CancelProposal(r.Context(), id)
	if err != nil {
		writeChainError(w, r, h.logger, "cancel proposal", err)
		return
	}

	writeJSON(w, http.StatusAccepted, txResponse{TxHash: txHash})
}
