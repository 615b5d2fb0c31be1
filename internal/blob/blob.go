// Package blob persists raw byte content under opaque location handles,
// independently of the file-tree metadata.
package blob

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when a handle resolves to no stored bytes.
var ErrNotFound = errors.New("blob not found")

// Store is the byte-content backend. Put generates a fresh handle; PutAt
// overwrites a caller-chosen handle and is used by the thumbnail worker so
// repeated runs stay idempotent. Concurrent writes to distinct handles are
// safe; a concurrent rewrite of the same handle is a full overwrite.
type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	PutAt(ctx context.Context, handle string, data []byte) error
	Get(ctx context.Context, handle string) ([]byte, error)
}

// DerivedHandle names a scaled copy of the blob at handle. The name is a pure
// function of the original handle and the target width, so regenerating a
// thumbnail lands on the same object.
func DerivedHandle(handle string, width int) string {
	return fmt.Sprintf("%s_%d", handle, width)
}
