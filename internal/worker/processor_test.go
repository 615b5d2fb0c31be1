package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/fileden/fileden/internal/blob"
	"github.com/fileden/fileden/internal/model"
	"github.com/fileden/fileden/internal/queue"
	"github.com/fileden/fileden/internal/store"
	"github.com/fileden/fileden/internal/thumb"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 30, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func thumbnailTask(t *testing.T, payload queue.ThumbnailPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask(queue.ThumbnailTask, data)
}

func setup(t *testing.T) (*Processor, *store.MemoryStore, *blob.DiskStore) {
	t.Helper()
	st := store.NewMemoryStore()
	blobs, err := blob.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	return NewProcessor(st, blobs, zap.NewNop()), st, blobs
}

func TestHandleThumbnailGeneratesAllWidths(t *testing.T) {
	p, st, blobs := setup(t)
	ctx := context.Background()

	handle, err := blobs.Put(ctx, pngBytes(t, 800, 600))
	if err != nil {
		t.Fatalf("put original: %v", err)
	}
	rec, err := st.Create(ctx, &model.FileRecord{OwnerID: 1, Name: "pic.png", Kind: model.KindImage, BlobRef: handle})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	task := thumbnailTask(t, queue.ThumbnailPayload{FileID: rec.ID, OwnerID: 1})
	if err := p.HandleThumbnail(ctx, task); err != nil {
		t.Fatalf("handle: %v", err)
	}

	for _, width := range thumb.Widths {
		data, err := blobs.Get(ctx, blob.DerivedHandle(handle, width))
		if err != nil {
			t.Fatalf("derived blob %d missing: %v", width, err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("decode %d: %v", width, err)
		}
		if img.Bounds().Dx() != width {
			t.Errorf("width %d: got %d", width, img.Bounds().Dx())
		}
	}
}

func TestHandleThumbnailIdempotent(t *testing.T) {
	p, st, blobs := setup(t)
	ctx := context.Background()

	handle, err := blobs.Put(ctx, pngBytes(t, 400, 400))
	if err != nil {
		t.Fatalf("put original: %v", err)
	}
	rec, err := st.Create(ctx, &model.FileRecord{OwnerID: 1, Name: "pic.png", Kind: model.KindImage, BlobRef: handle})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	task := thumbnailTask(t, queue.ThumbnailPayload{FileID: rec.ID, OwnerID: 1})
	if err := p.HandleThumbnail(ctx, task); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := blobs.Get(ctx, blob.DerivedHandle(handle, 100))
	if err != nil {
		t.Fatalf("get first: %v", err)
	}
	// A redelivered job overwrites the same derived handles.
	if err := p.HandleThumbnail(ctx, task); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, err := blobs.Get(ctx, blob.DerivedHandle(handle, 100))
	if err != nil {
		t.Fatalf("get second: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("repeated runs must produce the same derived blob")
	}
}

func TestHandleThumbnailMissingFieldsFatal(t *testing.T) {
	p, _, _ := setup(t)
	ctx := context.Background()

	cases := []queue.ThumbnailPayload{
		{OwnerID: 1},
		{FileID: 1},
	}
	for _, payload := range cases {
		err := p.HandleThumbnail(ctx, thumbnailTask(t, payload))
		if !errors.Is(err, asynq.SkipRetry) {
			t.Errorf("payload %+v: got %v, want SkipRetry", payload, err)
		}
	}
}

func TestHandleThumbnailUnknownFileFatal(t *testing.T) {
	p, _, _ := setup(t)

	err := p.HandleThumbnail(context.Background(), thumbnailTask(t, queue.ThumbnailPayload{FileID: 42, OwnerID: 7}))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("got %v, want SkipRetry", err)
	}
}

func TestHandleThumbnailForeignOwnerFatal(t *testing.T) {
	p, st, blobs := setup(t)
	ctx := context.Background()

	handle, err := blobs.Put(ctx, pngBytes(t, 200, 200))
	if err != nil {
		t.Fatalf("put original: %v", err)
	}
	rec, err := st.Create(ctx, &model.FileRecord{OwnerID: 1, Name: "pic.png", Kind: model.KindImage, BlobRef: handle})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	// Resolution is scoped to (fileId, ownerId); a mismatched owner looks
	// like an absent file.
	err = p.HandleThumbnail(ctx, thumbnailTask(t, queue.ThumbnailPayload{FileID: rec.ID, OwnerID: 2}))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("got %v, want SkipRetry", err)
	}
}

func TestHandleThumbnailCorruptImageRetryable(t *testing.T) {
	p, st, blobs := setup(t)
	ctx := context.Background()

	handle, err := blobs.Put(ctx, []byte("not an image"))
	if err != nil {
		t.Fatalf("put original: %v", err)
	}
	rec, err := st.Create(ctx, &model.FileRecord{OwnerID: 1, Name: "pic.png", Kind: model.KindImage, BlobRef: handle})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	err = p.HandleThumbnail(ctx, thumbnailTask(t, queue.ThumbnailPayload{FileID: rec.ID, OwnerID: 1}))
	if err == nil {
		t.Fatal("expected an error for corrupt image data")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatal("generation failures are left to the retry policy")
	}
	// Fail fast: no derived blob may exist after a failed job.
	for _, width := range thumb.Widths {
		if _, err := blobs.Get(ctx, blob.DerivedHandle(handle, width)); !errors.Is(err, blob.ErrNotFound) {
			t.Errorf("derived blob %d must not exist, got %v", width, err)
		}
	}
}
