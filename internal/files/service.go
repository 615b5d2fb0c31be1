// Package files implements the caller-facing file-tree operations: upload
// orchestration, metadata reads, listings, publish toggles, and byte reads.
// It consumes an already-resolved caller identity; routing and token
// resolution live above it.
package files

import (
	"context"
	"encoding/base64"
	"errors"
	"mime"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fileden/fileden/internal/auth"
	"github.com/fileden/fileden/internal/blob"
	"github.com/fileden/fileden/internal/model"
	"github.com/fileden/fileden/internal/store"
	"github.com/fileden/fileden/internal/thumb"
)

// Enqueuer hands thumbnail jobs to the durable queue. A successful call only
// guarantees the job was accepted, not that it ran.
type Enqueuer interface {
	EnqueueThumbnail(ctx context.Context, fileID, ownerID int64) error
}

// UploadRequest is the validated-and-defaulted upload payload. ParentID
// defaults to the root sentinel and IsPublic to false before the request
// reaches Create.
type UploadRequest struct {
	Name     string
	Kind     model.Kind
	ParentID int64
	IsPublic bool
	Data     string // base64, required for file/image kinds
}

// Content is the result of a byte read.
type Content struct {
	Data     []byte
	MimeType string
}

// Service orchestrates the stores and the queue.
type Service struct {
	store store.FileStore
	blobs blob.Store
	queue Enqueuer
	log   *zap.Logger
}

// NewService constructs a Service.
func NewService(files store.FileStore, blobs blob.Store, queue Enqueuer, log *zap.Logger) *Service {
	return &Service{store: files, blobs: blobs, queue: queue, log: log}
}

// Create validates req in a fixed order (name, kind, parent, data), persists
// the blob before the metadata so a failed write never leaves a record
// pointing at missing bytes, and enqueues thumbnail work for images after
// the record is durable. Enqueue failures are logged, not surfaced; the
// upload itself already succeeded.
func (s *Service) Create(ctx context.Context, callerID int64, req UploadRequest) (model.FileView, error) {
	if req.Name == "" {
		return model.FileView{}, ErrMissingName
	}
	if !req.Kind.Valid() {
		return model.FileView{}, ErrMissingType
	}
	if req.ParentID != model.RootParentID {
		parent, err := s.store.GetByID(ctx, req.ParentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return model.FileView{}, ErrParentNotFound
			}
			return model.FileView{}, internalErr("lookup parent", err)
		}
		if parent.Kind != model.KindFolder {
			return model.FileView{}, ErrParentNotFolder
		}
	}
	if req.Kind.HasBlob() && req.Data == "" {
		return model.FileView{}, ErrMissingData
	}

	rec := &model.FileRecord{
		OwnerID:  callerID,
		Name:     req.Name,
		Kind:     req.Kind,
		ParentID: req.ParentID,
		IsPublic: req.IsPublic,
	}

	if req.Kind.HasBlob() {
		payload, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			return model.FileView{}, ErrInvalidData
		}
		handle, err := s.blobs.Put(ctx, payload)
		if err != nil {
			return model.FileView{}, internalErr("persist blob", err)
		}
		rec.BlobRef = handle
	}

	stored, err := s.store.Create(ctx, rec)
	if err != nil {
		// The blob (if any) is now an orphan with no metadata pointing at
		// it; harmless, reclaimable by a sweep.
		return model.FileView{}, internalErr("persist record", err)
	}

	if stored.Kind == model.KindImage {
		if err := s.queue.EnqueueThumbnail(ctx, stored.ID, callerID); err != nil {
			s.log.Error("enqueue thumbnail job failed",
				zap.Int64("fileId", stored.ID),
				zap.Int64("ownerId", callerID),
				zap.Error(err))
		}
	}
	return stored.View(), nil
}

// Get returns the metadata projection of a record the caller may read.
func (s *Service) Get(ctx context.Context, id, callerID int64) (model.FileView, error) {
	rec, err := s.lookupReadable(ctx, id, callerID)
	if err != nil {
		return model.FileView{}, err
	}
	return rec.View(), nil
}

// List returns one page of the caller's records: all of them when parentID
// is nil, otherwise those under the given parent.
func (s *Service) List(ctx context.Context, callerID int64, parentID *int64, page int) ([]model.FileView, error) {
	var (
		recs []model.FileRecord
		err  error
	)
	if parentID == nil {
		recs, err = s.store.ListByOwner(ctx, callerID, page)
	} else {
		recs, err = s.store.ListByParent(ctx, *parentID, callerID, page)
	}
	if err != nil {
		return nil, internalErr("list files", err)
	}
	views := make([]model.FileView, 0, len(recs))
	for i := range recs {
		views = append(views, recs[i].View())
	}
	return views, nil
}

// SetPublish flips the visibility flag on a record the caller owns.
// Applying the same value twice is a no-op with the same observable state.
func (s *Service) SetPublish(ctx context.Context, id, callerID int64, value bool) (model.FileView, error) {
	rec, err := s.store.SetPublic(ctx, id, callerID, value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.FileView{}, ErrNotFound
		}
		return model.FileView{}, internalErr("set public", err)
	}
	return rec.View(), nil
}

// ReadBytes returns the stored bytes of a readable file/image record, or the
// derived thumbnail at the given width when width is non-zero. The MIME type
// comes from the record name's extension.
func (s *Service) ReadBytes(ctx context.Context, id, callerID int64, width int) (Content, error) {
	rec, err := s.lookupReadable(ctx, id, callerID)
	if err != nil {
		return Content{}, err
	}
	if rec.Kind == model.KindFolder {
		return Content{}, ErrFolderNoContent
	}
	handle := rec.BlobRef
	if width != 0 {
		if !thumb.ValidWidth(width) {
			return Content{}, ErrInvalidSize
		}
		handle = blob.DerivedHandle(rec.BlobRef, width)
	}
	data, err := s.blobs.Get(ctx, handle)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return Content{}, ErrNotFound
		}
		return Content{}, internalErr("read blob", err)
	}
	return Content{Data: data, MimeType: mimeTypeFor(rec.Name)}, nil
}

func (s *Service) lookupReadable(ctx context.Context, id, callerID int64) (*model.FileRecord, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, internalErr("lookup record", err)
	}
	if !auth.CanRead(rec, callerID) {
		// Same answer as an absent record.
		return nil, ErrNotFound
	}
	return rec, nil
}

func mimeTypeFor(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
