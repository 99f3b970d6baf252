package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the health-check endpoint. Beyond process liveness it
// can probe registered dependencies (Postgres, Redis) and degrade the
// response when one is unreachable.
type HealthHandler struct {
	logger *slog.Logger
	checks map[string]func(context.Context) error
}

// NewHealthHandler creates a HealthHandler with the provided logger.
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		logger: logger,
		checks: make(map[string]func(context.Context) error),
	}
}

// WithCheck registers a named dependency probe that runs on every health
// request. Probes should be cheap; they run sequentially.
func (h *HealthHandler) WithCheck(name string, fn func(context.Context) error) *HealthHandler {
	h.checks[name] = fn
	return h
}

// HealthCheck responds with the service liveness and the state of each
// registered dependency. A failing dependency turns the response into a 503
// so load balancers pull the replica.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	deps := make(map[string]string, len(h.checks))
	for name, fn := range h.checks {
		if err := fn(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "health probe failed",
				slog.String("dependency", name),
				slog.String("error", err.Error()),
			)
			deps[name] = "down"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	resp := map[string]any{
		"status":    status,
		"service":   "governd",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if len(deps) > 0 {
		resp["dependencies"] = deps
	}
	writeJSON(w, code, resp)
}
