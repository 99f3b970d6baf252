package handler

import (
	"net/http"
	"time"

	"github.com/dloopdao/governd/internal/domain"
)

// StatusHandler serves the backend service status for the dashboard.
type StatusHandler struct {
	Mode      string
	StartedAt time.Time
}

// NewStatusHandler creates a StatusHandler with the given mode.
func NewStatusHandler(mode string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{Mode: mode, StartedAt: startedAt}
}

// GetStatus responds with the current backend mode and uptime. The same
// payload is pushed to WebSocket clients on connect.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.ServiceStatus{
		Mode:           h.Mode,
		ChainConnected: true,
		UptimeSeconds:  int64(time.Since(h.StartedAt).Seconds()),
	})
}
