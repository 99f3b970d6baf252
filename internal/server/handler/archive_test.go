package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dloopdao/governd/internal/domain"
)

type fakeArchiveBrowser struct {
	objects map[string][]byte
	infos   []domain.BlobInfo
	listed  []string
}

func (b *fakeArchiveBrowser) Get(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := b.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeArchiveBrowser) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	b.listed = append(b.listed, prefix)
	return b.infos, nil
}

func (b *fakeArchiveBrowser) Exists(_ context.Context, path string) (bool, error) {
	_, ok := b.objects[path]
	return ok, nil
}

func newArchiveHandler(blobs ArchiveBrowser) *ArchiveHandler {
	return NewArchiveHandler(blobs, slog.New(slog.DiscardHandler))
}

func TestGetArchiveObjectStreams(t *testing.T) {
	blobs := &fakeArchiveBrowser{objects: map[string][]byte{
		"archive/proposals/2026-08-30/1-2.jsonl": []byte("{\"id\":1}\n{\"id\":2}\n"),
	}}
	h := newArchiveHandler(blobs)

	r := httptest.NewRequest(http.MethodGet, "/api/archive/archive/proposals/2026-08-30/1-2.jsonl", nil)
	r.SetPathValue("path", "archive/proposals/2026-08-30/1-2.jsonl")
	w := httptest.NewRecorder()

	h.GetArchiveObject(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
	assert.Equal(t, "{\"id\":1}\n{\"id\":2}\n", w.Body.String())
}

func TestGetArchiveObjectMissing(t *testing.T) {
	h := newArchiveHandler(&fakeArchiveBrowser{})

	r := httptest.NewRequest(http.MethodGet, "/api/archive/snapshots/2026-08-30.json", nil)
	r.SetPathValue("path", "snapshots/2026-08-30.json")
	w := httptest.NewRecorder()

	h.GetArchiveObject(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetArchiveObjectRejectsOutsidePaths(t *testing.T) {
	blobs := &fakeArchiveBrowser{objects: map[string][]byte{
		"secrets/api.key": []byte("x"),
	}}
	h := newArchiveHandler(blobs)

	for _, path := range []string{"secrets/api.key", "archive/../secrets/api.key", "/archive/a.jsonl"} {
		r := httptest.NewRequest(http.MethodGet, "/api/archive/"+path, nil)
		r.SetPathValue("path", path)
		w := httptest.NewRecorder()

		h.GetArchiveObject(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code, "path %q must stay unreachable", path)
	}
}

func TestHeadArchiveObjectSkipsBody(t *testing.T) {
	blobs := &fakeArchiveBrowser{objects: map[string][]byte{
		"snapshots/2026-08-30.json": []byte("{}"),
	}}
	h := newArchiveHandler(blobs)

	r := httptest.NewRequest(http.MethodHead, "/api/archive/snapshots/2026-08-30.json", nil)
	r.SetPathValue("path", "snapshots/2026-08-30.json")
	w := httptest.NewRecorder()

	h.GetArchiveObject(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestListArchiveDefaultsToProposalPrefix(t *testing.T) {
	blobs := &fakeArchiveBrowser{infos: []domain.BlobInfo{
		{Path: "governance/archive/proposals/2026-08-30/1-500.jsonl", Size: 42},
	}}
	h := newArchiveHandler(blobs)

	r := httptest.NewRequest(http.MethodGet, "/api/archive", nil)
	w := httptest.NewRecorder()

	h.ListArchive(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"archive/proposals/"}, blobs.listed)

	var resp listArchiveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Objects, 1)
	assert.Equal(t, int64(42), resp.Objects[0].Size)
}

func TestArchiveUnavailableWithoutStorage(t *testing.T) {
	h := newArchiveHandler(nil)

	r := httptest.NewRequest(http.MethodGet, "/api/archive", nil)
	w := httptest.NewRecorder()
	h.ListArchive(w, r)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
