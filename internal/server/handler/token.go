package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dloopdao/governd/internal/domain"
)

// TokenService defines the methods the token handler requires from the
// service layer.
type TokenService interface {
	GetBalance(ctx context.Context, address string) (domain.TokenBalance, error)
	TotalSupply(ctx context.Context) (float64, error)
	ProtocolHealth(ctx context.Context) (domain.ProtocolHealth, error)
}

// TokenHandler serves DLOOP token and protocol-level HTTP endpoints.
type TokenHandler struct {
	tokens TokenService
	logger *slog.Logger
}

// NewTokenHandler creates a TokenHandler with the given service and logger.
func NewTokenHandler(tokens TokenService, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		tokens: tokens,
		logger: logger,
	}
}

// GetBalance returns the DLOOP balance for an address.
// GET /api/token/balance/{address}
func (h *TokenHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(pathParam(r, "address"))
	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	bal, err := h.tokens.GetBalance(r.Context(), address)
	if err != nil {
		writeChainError(w, r, h.logger, "get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, bal)
}

// supplyResponse wraps the total supply response.
type supplyResponse struct {
	TotalSupply float64 `json:"total_supply"`
}

// GetSupply returns the DLOOP total supply in whole tokens.
// GET /api/token/supply
func (h *TokenHandler) GetSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := h.tokens.TotalSupply(r.Context())
	if err != nil {
		writeChainError(w, r, h.logger, "get supply", err)
		return
	}

	writeJSON(w, http.StatusOK, supplyResponse{TotalSupply: supply})
}

// GetProtocolHealth returns the protocol-wide dashboard summary.
// GET /api/protocol/health
func (h *TokenHandler) GetProtocolHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.tokens.ProtocolHealth(r.Context())
	if err != nil {
		writeChainError(w, r, h.logger, "protocol health", err)
		return
	}

	writeJSON(w, http.StatusOK, health)
}
