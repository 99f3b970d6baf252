package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dloopdao/governd/internal/chain"
	"github.com/dloopdao/governd/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}

// writeChainError maps a failed governance mutation to an HTTP status and a
// human-readable message. Raw node output never reaches the client.
func writeChainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	status := http.StatusInternalServerError
	msg := chain.HumanMessage(err)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrVotingClosed):
		status, msg = http.StatusConflict, "The voting period for this proposal has ended."
	case errors.Is(err, domain.ErrAlreadyVoted):
		status, msg = http.StatusConflict, "You have already voted on this proposal."
	case errors.Is(err, domain.ErrNotExecutable):
		status, msg = http.StatusConflict, "This proposal cannot be executed yet."
	case errors.Is(err, domain.ErrProposalFinal):
		status, msg = http.StatusConflict, "This proposal has already been finalized."
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case chain.IsTransient(err), errors.Is(err, domain.ErrChainUnavailable):
		status = http.StatusBadGateway
	}

	logger.ErrorContext(r.Context(), "handler: "+op+" failed",
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	writeError(w, status, msg)
}
