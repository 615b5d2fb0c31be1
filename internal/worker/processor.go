// Package worker consumes thumbnail jobs from the queue, independently of
// request handling.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/fileden/fileden/internal/blob"
	"github.com/fileden/fileden/internal/queue"
	"github.com/fileden/fileden/internal/store"
	"github.com/fileden/fileden/internal/thumb"
)

// Processor is plugged into the asynq worker loop. Each job walks
// validate -> resolve -> generate -> persist; client-shape failures are
// fatal (SkipRetry), everything else is left to asynq's retry policy.
type Processor struct {
	store store.FileStore
	blobs blob.Store
	log   *zap.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(files store.FileStore, blobs blob.Store, log *zap.Logger) *Processor {
	return &Processor{store: files, blobs: blobs, log: log}
}

// Handler registers the thumbnail job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ThumbnailTask, p.HandleThumbnail)
	return mux
}

// HandleThumbnail processes one thumbnail job. Repeated runs for the same
// job are idempotent: each width overwrites the same derived handle.
func (p *Processor) HandleThumbnail(ctx context.Context, task *asynq.Task) error {
	var payload queue.ThumbnailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.FileID == 0 {
		return fmt.Errorf("missing file id: %w", asynq.SkipRetry)
	}
	if payload.OwnerID == 0 {
		return fmt.Errorf("missing owner id: %w", asynq.SkipRetry)
	}

	rec, err := p.store.GetByOwnerAndID(ctx, payload.FileID, payload.OwnerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Creation is synchronous with the upload response, so an
			// absent record will not appear on a later attempt.
			p.log.Warn("thumbnail job for unknown file",
				zap.Int64("fileId", payload.FileID),
				zap.Int64("ownerId", payload.OwnerID))
			return fmt.Errorf("file not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("resolve record: %w", err)
	}

	src, err := p.blobs.Get(ctx, rec.BlobRef)
	if err != nil {
		return fmt.Errorf("read original blob: %w", err)
	}

	for _, width := range thumb.Widths {
		scaled, err := thumb.Generate(src, width)
		if err != nil {
			// Fail fast: a partial set of widths is treated as a failed
			// job and retried whole.
			return fmt.Errorf("generate %dpx thumbnail: %w", width, err)
		}
		if err := p.blobs.PutAt(ctx, blob.DerivedHandle(rec.BlobRef, width), scaled); err != nil {
			return fmt.Errorf("persist %dpx thumbnail: %w", width, err)
		}
	}
	p.log.Info("thumbnails generated",
		zap.Int64("fileId", rec.ID),
		zap.String("blobRef", rec.BlobRef),
		zap.Ints("widths", thumb.Widths))
	return nil
}
