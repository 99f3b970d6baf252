package s3blob

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	puts       []string
	multiparts []string
	partSize   int64
}

func (w *recordingWriter) Put(_ context.Context, path string, _ io.Reader, _ string) error {
	w.puts = append(w.puts, path)
	return nil
}

func (w *recordingWriter) PutMultipart(_ context.Context, path string, _ io.Reader, partSize int64) error {
	w.multiparts = append(w.multiparts, path)
	w.partSize = partSize
	return nil
}

func TestUploadSwitchesToMultipartPastThreshold(t *testing.T) {
	w := &recordingWriter{}
	a := NewArchiver(w, nil, nil)
	ctx := context.Background()

	require.NoError(t, a.upload(ctx, "archive/proposals/small.jsonl", make([]byte, 1024), "application/x-ndjson"))
	require.NoError(t, a.upload(ctx, "archive/proposals/large.jsonl", make([]byte, multipartThreshold), "application/x-ndjson"))

	assert.Equal(t, []string{"archive/proposals/small.jsonl"}, w.puts)
	assert.Equal(t, []string{"archive/proposals/large.jsonl"}, w.multiparts)
	assert.Equal(t, int64(multipartPartSize), w.partSize)
}

func TestArchivePathIncludesIDRange(t *testing.T) {
	before := time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "archive/proposals/2026-08-30/1-500.jsonl", archivePath(1, 500, before))
}
