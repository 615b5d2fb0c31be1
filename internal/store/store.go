// Package store persists file-tree and user metadata. Two implementations
// exist: Postgres for production and an in-memory store for tests.
package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/fileden/fileden/internal/model"
)

// PageSize is the fixed number of records per listing page.
const PageSize = 20

var (
	// ErrNotFound covers both "record absent" and "record not owned by the
	// caller"; the two are deliberately indistinguishable so callers cannot
	// probe for the existence of other users' records.
	ErrNotFound = errors.New("record not found")

	// ErrEmailTaken signals a duplicate registration.
	ErrEmailTaken = errors.New("email already registered")
)

// FileStore is the metadata backend for the file hierarchy. Listings are
// ordered by id (insertion order) and paginated at PageSize. SetPublic is
// atomic per record; concurrent calls resolve last-writer-wins.
type FileStore interface {
	Create(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error)
	GetByID(ctx context.Context, id int64) (*model.FileRecord, error)
	GetByOwnerAndID(ctx context.Context, id, ownerID int64) (*model.FileRecord, error)
	ListByOwner(ctx context.Context, ownerID int64, page int) ([]model.FileRecord, error)
	ListByParent(ctx context.Context, parentID, ownerID int64, page int) ([]model.FileRecord, error)
	SetPublic(ctx context.Context, id, ownerID int64, value bool) (*model.FileRecord, error)
	CountFiles(ctx context.Context) (int64, error)
}

// UserStore is the account backend.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// NormalizePage parses a page query parameter. Absent, non-numeric, or
// negative values normalize to page 0.
func NormalizePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 0 {
		return 0
	}
	return page
}
