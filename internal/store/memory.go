package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fileden/fileden/internal/model"
)

// MemoryStore is an in-memory FileStore + UserStore used in tests and as a
// substitute backend. An RWMutex guards both maps; records are copied on the
// way in and out so callers never share internal state.
type MemoryStore struct {
	mu         sync.RWMutex
	files      map[int64]*model.FileRecord
	users      map[int64]*model.User
	nextFileID int64
	nextUserID int64
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files: make(map[int64]*model.FileRecord),
		users: make(map[int64]*model.User),
	}
}

// Create assigns the next id and stores a copy of rec.
func (m *MemoryStore) Create(_ context.Context, rec *model.FileRecord) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextFileID++
	stored := *rec
	stored.ID = m.nextFileID
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.files[stored.ID] = &stored
	out := stored
	return &out, nil
}

// GetByID returns a record by id regardless of owner.
func (m *MemoryStore) GetByID(_ context.Context, id int64) (*model.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

// GetByOwnerAndID returns a record only when the owner matches.
func (m *MemoryStore) GetByOwnerAndID(_ context.Context, id, ownerID int64) (*model.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.files[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

// ListByOwner returns one page of the owner's records in insertion order.
func (m *MemoryStore) ListByOwner(_ context.Context, ownerID int64, page int) ([]model.FileRecord, error) {
	return m.listPage(page, func(rec *model.FileRecord) bool {
		return rec.OwnerID == ownerID
	}), nil
}

// ListByParent returns one page of the owner's records under a parent.
func (m *MemoryStore) ListByParent(_ context.Context, parentID, ownerID int64, page int) ([]model.FileRecord, error) {
	return m.listPage(page, func(rec *model.FileRecord) bool {
		return rec.ParentID == parentID && rec.OwnerID == ownerID
	}), nil
}

func (m *MemoryStore) listPage(page int, match func(*model.FileRecord) bool) []model.FileRecord {
	if page < 0 {
		page = 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []model.FileRecord
	for _, rec := range m.files {
		if match(rec) {
			all = append(all, *rec)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := page * PageSize
	if start >= len(all) {
		return nil
	}
	end := start + PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// SetPublic flips visibility under the write lock; absent and not-owned are
// both reported as ErrNotFound.
func (m *MemoryStore) SetPublic(_ context.Context, id, ownerID int64, value bool) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.files[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	rec.IsPublic = value
	rec.UpdatedAt = time.Now().UTC()
	out := *rec
	return &out, nil
}

// CountFiles returns the total number of file records.
func (m *MemoryStore) CountFiles(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.files)), nil
}

// CreateUser inserts an account, rejecting duplicate emails.
func (m *MemoryStore) CreateUser(_ context.Context, email, passwordHash string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, ErrEmailTaken
		}
	}
	m.nextUserID++
	user := &model.User{
		ID:           m.nextUserID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[user.ID] = user
	out := *user
	return &out, nil
}

// GetUserByEmail returns the account for an email address.
func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// GetUserByID returns an account by id.
func (m *MemoryStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

// CountUsers returns the total number of accounts.
func (m *MemoryStore) CountUsers(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}
