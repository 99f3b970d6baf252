package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dloopdao/governd/internal/domain"
)

// archiveBatchSize bounds how many proposals one upload covers.
const archiveBatchSize = 500

// Archive objects past the threshold go through the multipart upload
// manager. The part size is the S3 minimum.
const (
	multipartThreshold = 8 << 20
	multipartPartSize  = 5 << 20
)

// ArchiveImpl moves terminal proposals out of the primary database into
// object storage and writes periodic governance snapshots. Rows are deleted
// from postgres only after the archive object is uploaded.
type ArchiveImpl struct {
	writer    domain.BlobWriter
	proposals domain.ProposalStore
	audit     domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, proposals domain.ProposalStore, audit domain.AuditStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer:    writer,
		proposals: proposals,
		audit:     audit,
	}
}

// ArchiveProposals queries executed and canceled proposals last touched
// before the cutoff, serializes them to JSONL, uploads the file, and prunes
// the archived rows. It loops until no terminal proposals remain before the
// cutoff and returns the total archived count.
func (a *ArchiveImpl) ArchiveProposals(ctx context.Context, before time.Time) (int64, error) {
	var total int64

	for {
		batch, err := a.proposals.ListTerminalBefore(ctx, before, archiveBatchSize)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive proposals query: %w", err)
		}
		if len(batch) == 0 {
			return total, nil
		}

		buf, err := marshalJSONL(batch)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive proposals marshal: %w", err)
		}

		path := archivePath(batch[0].ID, batch[len(batch)-1].ID, before)
		if err := a.upload(ctx, path, buf, "application/x-ndjson"); err != nil {
			return total, fmt.Errorf("s3blob: archive proposals upload: %w", err)
		}

		ids := make([]int64, 0, len(batch))
		for _, p := range batch {
			ids = append(ids, p.ID)
		}
		if err := a.proposals.DeleteBatch(ctx, ids); err != nil {
			return total, fmt.Errorf("s3blob: prune archived proposals: %w", err)
		}

		total += int64(len(batch))

		if err := a.audit.Log(ctx, "archive.proposals", map[string]any{
			"path":   path,
			"count":  len(batch),
			"before": before.Format(time.RFC3339),
		}); err != nil {
			return total, fmt.Errorf("s3blob: archive proposals audit log: %w", err)
		}

		if len(batch) < archiveBatchSize {
			return total, nil
		}
	}
}

// upload picks plain or multipart upload based on payload size.
func (a *ArchiveImpl) upload(ctx context.Context, path string, buf []byte, contentType string) error {
	if len(buf) >= multipartThreshold {
		return a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), multipartPartSize)
	}
	return a.writer.Put(ctx, path, bytes.NewReader(buf), contentType)
}

// governanceSnapshot is the daily summary object written alongside archives.
type governanceSnapshot struct {
	TakenAt           time.Time `json:"taken_at"`
	TotalProposals    int64     `json:"total_proposals"`
	ActiveProposals   int64     `json:"active_proposals"`
	ExecutedProposals int64     `json:"executed_proposals"`
}

// WriteSnapshot uploads a point-in-time proposal census to
// snapshots/YYYY-MM-DD.json.
func (a *ArchiveImpl) WriteSnapshot(ctx context.Context) error {
	now := time.Now().UTC()
	snap := governanceSnapshot{TakenAt: now}

	var err error
	if snap.TotalProposals, err = a.proposals.Count(ctx); err != nil {
		return fmt.Errorf("s3blob: snapshot count: %w", err)
	}
	if snap.ActiveProposals, err = a.proposals.CountActive(ctx); err != nil {
		return fmt.Errorf("s3blob: snapshot active count: %w", err)
	}
	if snap.ExecutedProposals, err = a.proposals.CountExecuted(ctx); err != nil {
		return fmt.Errorf("s3blob: snapshot executed count: %w", err)
	}

	buf, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("s3blob: snapshot marshal: %w", err)
	}

	path := fmt.Sprintf("snapshots/%s.json", now.Format("2006-01-02"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/json"); err != nil {
		return fmt.Errorf("s3blob: snapshot upload: %w", err)
	}
	return nil
}

// archivePath builds the S3 key for an archive file. Including the ID range
// keeps successive batches within one day from overwriting each other.
//
//	archive/proposals/2026-08-30/1-500.jsonl
func archivePath(firstID, lastID int64, before time.Time) string {
	return fmt.Sprintf("archive/proposals/%s/%d-%d.jsonl", before.Format("2006-01-02"), firstID, lastID)
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
