// Package archive exports settled guess attempts to blob storage and prunes
// them from the primary store.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/predictbot/internal/domain"
)

// Archiver implements domain.Archiver: settled rows older than the retention
// window are written to blob storage as newline-delimited JSON and then
// deleted. Rows are only deleted after a successful upload.
type Archiver struct {
	store  domain.GuessStore
	blob   domain.BlobWriter
	logger *slog.Logger
}

// New creates an Archiver.
func New(store domain.GuessStore, blob domain.BlobWriter, logger *slog.Logger) *Archiver {
	return &Archiver{
		store:  store,
		blob:   blob,
		logger: logger.With("component", "archiver"),
	}
}

// ArchiveBefore exports and prunes settled attempts older than before.
func (a *Archiver) ArchiveBefore(ctx context.Context, before time.Time) (int, error) {
	recs, err := a.store.ListSettledBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("archive: list settled: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return 0, fmt.Errorf("archive: encode guess %s: %w", rec.ID, err)
		}
	}

	now := time.Now().UTC()
	path := fmt.Sprintf("guesses/%s/guesses-%d.ndjson", now.Format("2006/01/02"), now.UnixNano())
	if err := a.blob.Put(ctx, path, &buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("archive: upload %s: %w", path, err)
	}

	deleted, err := a.store.DeleteSettledBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("archive: prune: %w", err)
	}

	a.logger.Info("archived settled guesses",
		"path", path,
		"exported", len(recs),
		"deleted", deleted,
		"before", before.Format(time.RFC3339))
	return len(recs), nil
}

// RunLoop archives on a fixed interval until ctx ends. retention is how old a
// settled row must be before it is exported.
func (a *Archiver) RunLoop(ctx context.Context, interval, retention time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.ArchiveBefore(ctx, time.Now().Add(-retention)); err != nil {
				a.logger.Error("archive pass failed", "error", err)
			}
		}
	}
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
