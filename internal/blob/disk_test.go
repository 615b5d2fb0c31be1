package blob

import (
	"context"
	"errors"
	"testing"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	ctx := context.Background()

	content := []byte("hello blob")
	handle, err := store.Put(ctx, content)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if handle == "" {
		t.Fatal("expected non-empty handle")
	}

	got, err := store.Get(ctx, handle)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestDiskStoreDistinctHandles(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	ctx := context.Background()

	a, err := store.Put(ctx, []byte("a"))
	if err != nil {
		t.Fatalf("put a: %v", err)
	}
	b, err := store.Put(ctx, []byte("b"))
	if err != nil {
		t.Fatalf("put b: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct handles, both were %q", a)
	}
}

func TestDiskStoreGetMissing(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	if _, err := store.Get(context.Background(), "no-such-handle"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDiskStorePutAtOverwrites(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	ctx := context.Background()

	handle := DerivedHandle("original", 500)
	if err := store.PutAt(ctx, handle, []byte("first")); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := store.PutAt(ctx, handle, []byte("second")); err != nil {
		t.Fatalf("second put: %v", err)
	}
	got, err := store.Get(ctx, handle)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected overwrite, got %q", got)
	}
}

func TestDerivedHandle(t *testing.T) {
	if got := DerivedHandle("abc", 500); got != "abc_500" {
		t.Fatalf("unexpected derived handle %q", got)
	}
	if DerivedHandle("abc", 250) != DerivedHandle("abc", 250) {
		t.Fatal("derived handle must be deterministic")
	}
}
