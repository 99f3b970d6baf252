package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dloopdao/governd/internal/domain"
)

// DelegationService defines the methods the delegation handler requires from
// the service layer.
type DelegationService interface {
	Delegate(ctx context.Context, delegatee string, amount float64) (string, error)
	GetByDelegator(ctx context.Context, delegator string) (domain.Delegation, error)
	ListByDelegatee(ctx context.Context, delegatee string, opts domain.ListOpts) ([]domain.Delegation, error)
}

// DelegationHandler serves delegation HTTP endpoints.
type DelegationHandler struct {
	delegations DelegationService
	canSubmit   bool
	logger      *slog.Logger
}

// NewDelegationHandler creates a DelegationHandler. canSubmit is false when
// the daemon runs without an operator key; POST then returns 503.
func NewDelegationHandler(delegations DelegationService, canSubmit bool, logger *slog.Logger) *DelegationHandler {
	return &DelegationHandler{
		delegations: delegations,
		canSubmit:   canSubmit,
		logger:      logger,
	}
}

// listDelegationsResponse wraps the list delegations response.
type listDelegationsResponse struct {
	Delegations []domain.Delegation `json:"delegations"`
}

// ListDelegations returns the delegation for a delegator, or all delegations
// pointed at a delegatee.
// GET /api/delegations?delegator=0x...  or  ?delegatee=0x...
func (h *DelegationHandler) ListDelegations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	delegator := strings.TrimSpace(q.Get("delegator"))
	delegatee := strings.TrimSpace(q.Get("delegatee"))

	if delegator == "" && delegatee == "" {
		writeError(w, http.StatusBadRequest, "delegator or delegatee query parameter required")
		return
	}

	if delegator != "" {
		d, err := h.delegations.GetByDelegator(r.Context(), delegator)
		if err != nil {
			writeChainError(w, r, h.logger, "get delegation", err)
			return
		}
		writeJSON(w, http.StatusOK, listDelegationsResponse{Delegations: []domain.Delegation{d}})
		return
	}

	opts := parseListOpts(r)
	ds, err := h.delegations.ListByDelegatee(r.Context(), delegatee, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list delegations failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list delegations")
		return
	}
	if ds == nil {
		ds = []domain.Delegation{}
	}

	writeJSON(w, http.StatusOK, listDelegationsResponse{Delegations: ds})
}

// createDelegationRequest is the JSON body for the delegate endpoint.
type createDelegationRequest struct {
	Delegatee string  `json:"delegatee"`
	Amount    float64 `json:"amount"`
}

// CreateDelegation submits a delegation transaction for the operator wallet.
// POST /api/delegations
func (h *DelegationHandler) CreateDelegation(w http.ResponseWriter, r *http.Request) {
	if !h.canSubmit {
		writeError(w, http.StatusServiceUnavailable, "no operator key configured")
		return
	}

	var req createDelegationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Delegatee == "" {
		writeError(w, http.StatusBadRequest, "delegatee is required")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	txHash, err := h.delegations.Delegate(r.Context(), req.Delegatee, req.Amount)
	if err != nil {
		writeChainError(w, r, h.logger, "create delegation", err)
		return
	}

	writeJSON(w, http.StatusAccepted, txResponse{TxHash: txHash})
}
