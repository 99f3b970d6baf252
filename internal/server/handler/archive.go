package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dloopdao/governd/internal/domain"
)

// ArchiveBrowser reads archived governance objects out of cold storage.
type ArchiveBrowser interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]domain.BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// ArchiveHandler serves proposal archives and governance snapshots that the
// retention sweep moved into object storage.
type ArchiveHandler struct {
	blobs  ArchiveBrowser
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler. blobs may be nil when the
// mode runs without object storage; requests then return 503.
func NewArchiveHandler(blobs ArchiveBrowser, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		blobs:  blobs,
		logger: logger,
	}
}

type archiveObject struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

type listArchiveResponse struct {
	Objects []archiveObject `json:"objects"`
}

// ListArchive returns the stored archive objects under a prefix.
// GET /api/archive?prefix=archive/proposals/
func (h *ArchiveHandler) ListArchive(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "archive storage not available")
		return
	}

	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "archive/proposals/"
	}
	if !allowedArchivePath(prefix) {
		writeError(w, http.StatusBadRequest, "invalid archive prefix")
		return
	}

	infos, err := h.blobs.List(r.Context(), prefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list archive failed",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list archive")
		return
	}

	objects := make([]archiveObject, 0, len(infos))
	for _, info := range infos {
		objects = append(objects, archiveObject{
			Path:         info.Path,
			Size:         info.Size,
			LastModified: info.LastModified,
		})
	}
	writeJSON(w, http.StatusOK, listArchiveResponse{Objects: objects})
}

// GetArchiveObject streams one archived object. HEAD answers existence
// without downloading the body.
// GET /api/archive/{path...}
func (h *ArchiveHandler) GetArchiveObject(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "archive storage not available")
		return
	}

	path := pathParam(r, "path")
	if !allowedArchivePath(path) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if r.Method == http.MethodHead {
		ok, err := h.blobs.Exists(r.Context(), path)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "handler: archive head failed",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", archiveContentType(path))
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := h.blobs.Get(r.Context(), path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get archive object failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read archive object")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", archiveContentType(path))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "handler: archive stream interrupted",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// allowedArchivePath confines browsing to the key spaces the archiver
// writes. Anything else in the bucket stays unreachable.
func allowedArchivePath(path string) bool {
	if strings.Contains(path, "..") || strings.HasPrefix(path, "/") {
		return false
	}
	return strings.HasPrefix(path, "archive/") || strings.HasPrefix(path, "snapshots/")
}

func archiveContentType(path string) string {
	switch {
	case strings.HasSuffix(path, ".jsonl"):
		return "application/x-ndjson"
	case strings.HasSuffix(path, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
