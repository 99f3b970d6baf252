package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dloopdao/governd/internal/domain"
	"github.com/dloopdao/governd/internal/governance"
	"github.com/dloopdao/governd/internal/service"
)

// ProposalService defines the read methods the proposal handler requires
// from the service layer. It is declared locally so the handler package does
// not depend on the concrete service implementation.
type ProposalService interface {
	GetProposal(ctx context.Context, id int64) (service.ProposalView, error)
	ListProposals(ctx context.Context, filter domain.ProposalFilter, opts domain.ListOpts) ([]service.ProposalView, error)
	Stats(ctx context.Context, id int64) (governance.VotingStats, error)
	ListVotes(ctx context.Context, proposalID int64, opts domain.ListOpts) ([]domain.VoteRecord, error)
	Count(ctx context.Context) (int64, error)
}

// ProposalCreator submits new proposals to the chain.
type ProposalCreator interface {
	CreateProposal(ctx context.Context, pType domain.ProposalType, asset string, amount float64, description string) (string, error)
}

// ProposalHandler serves proposal-related HTTP endpoints.
type ProposalHandler struct {
	proposals ProposalService
	creator   ProposalCreator
	logger    *slog.Logger
}

// NewProposalHandler creates a ProposalHandler with the given services and
// logger. creator may be nil when the daemon runs without an operator key;
// POST /api/proposals then returns 503.
func NewProposalHandler(proposals ProposalService, creator ProposalCreator, logger *slog.Logger) *ProposalHandler {
	return &ProposalHandler{
		proposals: proposals,
		creator:   creator,
		logger:    logger,
	}
}

// listProposalsResponse wraps the list endpoint output with metadata.
type listProposalsResponse struct {
	Proposals []service.ProposalView `json:"proposals"`
	Total     int64                  `json:"total"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
}

// ListProposals returns proposals with optional status/type filters.
// GET /api/proposals?status=active&type=invest&limit=50&offset=0
func (h *ProposalHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	q := r.URL.Query()
	filter := domain.ProposalFilter{
		Status:   domain.ProposalStatus(q.Get("status")),
		Type:     domain.ProposalType(q.Get("type")),
		Proposer: q.Get("proposer"),
	}

	proposals, err := h.proposals.ListProposals(r.Context(), filter, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list proposals failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list proposals")
		return
	}

	total, err := h.proposals.Count(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count proposals failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count proposals")
		return
	}

	writeJSON(w, http.StatusOK, listProposalsResponse{
		Proposals: proposals,
		Total:     total,
		Limit:     opts.Limit,
		Offset:    opts.Offset,
	})
}

// GetProposal returns a single proposal with derived status.
// GET /api/proposals/{id}
func (h *ProposalHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseProposalID(w, r)
	if !ok {
		return
	}

	v, err := h.proposals.GetProposal(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "proposal not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get proposal failed",
			slog.Int64("proposal_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get proposal")
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// GetStats returns the voting statistics for a proposal.
// GET /api/proposals/{id}/stats
func (h *ProposalHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	id, ok := parseProposalID(w, r)
	if !ok {
		return
	}

	stats, err := h.proposals.Stats(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "proposal not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: proposal stats failed",
			slog.Int64("proposal_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get proposal stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ListVotes returns the individual vote records for a proposal.
// GET /api/proposals/{id}/votes
func (h *ProposalHandler) ListVotes(w http.ResponseWriter, r *http.Request) {
	id, ok := parseProposalID(w, r)
	if !ok {
		return
	}

	votes, err := h.proposals.ListVotes(r.Context(), id, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list votes failed",
			slog.Int64("proposal_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list votes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"votes": votes})
}

// createProposalRequest is the body for proposal creation.
type createProposalRequest struct {
	Type        string  `json:"type"` // "invest" or "divest"
	Asset       string  `json:"asset"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// CreateProposal submits a new proposal transaction.
// POST /api/proposals
func (h *ProposalHandler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	if h.creator == nil {
		writeError(w, http.StatusServiceUnavailable, "no operator key configured")
		return
	}

	var req createProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Asset == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "asset and positive amount are required")
		return
	}

	pType := governance.InferProposalType(req.Type, "", req.Description)

	txHash, err := h.creator.CreateProposal(r.Context(), pType, req.Asset, req.Amount, req.Description)
	if err != nil {
		writeChainError(w, r, h.logger, "create proposal", err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"tx_hash": txHash})
}

// parseProposalID extracts and validates the {id} path parameter. On failure
// it writes a 400 and returns ok=false.
func parseProposalID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := pathParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid proposal id")
		return 0, false
	}
	return id, true
}
