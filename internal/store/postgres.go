package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fileden/fileden/internal/model"
)

// PostgresStore wraps all SQL used by the API and the worker.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a store over an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const fileColumns = `id, owner_id, name, kind, parent_id, is_public, blob_ref, created_at, updated_at`

func scanFile(row pgx.Row) (*model.FileRecord, error) {
	var rec model.FileRecord
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &rec.Kind, &rec.ParentID,
		&rec.IsPublic, &rec.BlobRef, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return &rec, nil
}

// Create inserts a record and returns it with the assigned id.
func (s *PostgresStore) Create(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error) {
	now := time.Now().UTC()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO files (owner_id, name, kind, parent_id, is_public, blob_ref, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
		RETURNING `+fileColumns,
		rec.OwnerID, rec.Name, rec.Kind, rec.ParentID, rec.IsPublic, rec.BlobRef, now)
	stored, err := scanFile(row)
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}
	return stored, nil
}

// GetByID returns a record by id regardless of owner.
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*model.FileRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id=$1`, id)
	return scanFile(row)
}

// GetByOwnerAndID returns a record only when the owner matches.
func (s *PostgresStore) GetByOwnerAndID(ctx context.Context, id, ownerID int64) (*model.FileRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id=$1 AND owner_id=$2`, id, ownerID)
	return scanFile(row)
}

// ListByOwner returns one page of the owner's records in insertion order.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID int64, page int) ([]model.FileRecord, error) {
	return s.list(ctx, `SELECT `+fileColumns+` FROM files WHERE owner_id=$1 ORDER BY id LIMIT $2 OFFSET $3`,
		ownerID, PageSize, offset(page))
}

// ListByParent returns one page of the owner's records under a parent.
func (s *PostgresStore) ListByParent(ctx context.Context, parentID, ownerID int64, page int) ([]model.FileRecord, error) {
	return s.list(ctx, `SELECT `+fileColumns+` FROM files WHERE parent_id=$1 AND owner_id=$2 ORDER BY id LIMIT $3 OFFSET $4`,
		parentID, ownerID, PageSize, offset(page))
}

func (s *PostgresStore) list(ctx context.Context, sql string, args ...any) ([]model.FileRecord, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	var out []model.FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return out, nil
}

func offset(page int) int {
	if page < 0 {
		page = 0
	}
	return page * PageSize
}

// SetPublic flips the visibility flag in a single UPDATE scoped by owner, so
// concurrent calls on the same id stay last-writer-wins with no torn state.
func (s *PostgresStore) SetPublic(ctx context.Context, id, ownerID int64, value bool) (*model.FileRecord, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE files SET is_public=$1, updated_at=$2
		WHERE id=$3 AND owner_id=$4
		RETURNING `+fileColumns,
		value, time.Now().UTC(), id, ownerID)
	return scanFile(row)
}

// CountFiles returns the total number of file records.
func (s *PostgresStore) CountFiles(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return n, nil
}

// CreateUser inserts an account row.
func (s *PostgresStore) CreateUser(ctx context.Context, email, passwordHash string) (*model.User, error) {
	now := time.Now().UTC()
	var user model.User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, created_at)
		VALUES ($1,$2,$3)
		RETURNING id, email, password_hash, created_at`,
		email, passwordHash, now).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail returns the account for an email address.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email=$1`, email))
}

// GetUserByID returns an account by id.
func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id=$1`, id))
}

func (s *PostgresStore) scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

// CountUsers returns the total number of accounts.
func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
