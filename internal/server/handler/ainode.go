package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dloopdao/governd/internal/domain"
)

// AINodeService defines the methods the AI node handler requires from the
// service layer.
type AINodeService interface {
	Get(ctx context.Context, id int64) (domain.AINode, error)
	ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.AINode, error)
}

// AINodeHandler serves AI node HTTP endpoints.
type AINodeHandler struct {
	nodes  AINodeService
	logger *slog.Logger
}

// NewAINodeHandler creates an AINodeHandler with the given service and logger.
func NewAINodeHandler(nodes AINodeService, logger *slog.Logger) *AINodeHandler {
	return &AINodeHandler{
		nodes:  nodes,
		logger: logger,
	}
}

// listAINodesResponse wraps the list nodes response.
type listAINodesResponse struct {
	Nodes []domain.AINode `json:"nodes"`
}

// ListAINodes returns active AI nodes ordered by delegated power.
// GET /api/ainodes?limit=50&offset=0
func (h *AINodeHandler) ListAINodes(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	nodes, err := h.nodes.ListActive(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list ai nodes failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list ai nodes")
		return
	}
	if nodes == nil {
		nodes = []domain.AINode{}
	}

	writeJSON(w, http.StatusOK, listAINodesResponse{Nodes: nodes})
}

// GetAINode returns a single AI node by its ID.
// GET /api/ainodes/{id}
func (h *AINodeHandler) GetAINode(w http.ResponseWriter, r *http.Request) {
	raw := pathParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return
	}

	node, err := h.nodes.Get(r.Context(), id)
	if err != nil {
		writeChainError(w, r, h.logger, "get ai node", err)
		return
	}

	writeJSON(w, http.StatusOK, node)
}
