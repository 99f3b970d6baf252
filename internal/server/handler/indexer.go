package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// IndexerHandler serves the manual reindex trigger endpoint.
type IndexerHandler struct {
	logger    *slog.Logger
	triggerCh chan<- struct{} // when non-nil, sending forces one index pass
}

// NewIndexerHandler creates an IndexerHandler with the given logger.
func NewIndexerHandler(logger *slog.Logger) *IndexerHandler {
	return &IndexerHandler{logger: logger}
}

// WithTriggerChannel sets the channel to send on when a reindex is requested.
// The scraper loop must receive from this channel to run one pass.
func (h *IndexerHandler) WithTriggerChannel(ch chan<- struct{}) *IndexerHandler {
	h.triggerCh = ch
	return h
}

// TriggerSync enqueues one index pass. The send is non-blocking so repeated
// requests coalesce while a pass is pending.
// POST /api/indexer/sync
func (h *IndexerHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "handler: reindex requested")
	if h.triggerCh != nil {
		select {
		case h.triggerCh <- struct{}{}:
		default:
			// already triggered and not yet consumed
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"message":      "index pass enqueued",
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
