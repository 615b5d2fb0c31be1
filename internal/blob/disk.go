package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DiskStore keeps blobs as flat files under a root directory. Writes go
// through a temp file followed by an atomic rename, so readers never observe
// a partially written blob.
type DiskStore struct {
	root string
}

// NewDiskStore creates the root directory if absent.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob dir %s: %w", root, err)
	}
	return &DiskStore{root: root}, nil
}

// Root returns the configured root directory.
func (s *DiskStore) Root() string {
	return s.root
}

// Put writes data under a fresh uuid handle and returns the handle.
func (s *DiskStore) Put(ctx context.Context, data []byte) (string, error) {
	handle := uuid.NewString()
	if err := s.PutAt(ctx, handle, data); err != nil {
		return "", err
	}
	return handle, nil
}

// PutAt writes data under the given handle, replacing any previous content.
func (s *DiskStore) PutAt(_ context.Context, handle string, data []byte) error {
	path := filepath.Join(s.root, handle)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write blob: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename blob: %w", err)
	}
	return nil
}

// Get returns the bytes stored under handle.
func (s *DiskStore) Get(_ context.Context, handle string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, handle))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read blob %s: %w", handle, err)
	}
	return data, nil
}
