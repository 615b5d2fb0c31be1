package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when a token does not resolve to a live session.
var ErrNoSession = errors.New("no session for token")

// SessionStore issues and resolves opaque bearer tokens. Every core
// operation takes a resolved caller id as a precondition; resolution failing
// means the request fails closed with Unauthorized.
type SessionStore interface {
	Create(ctx context.Context, userID int64) (string, error)
	Resolve(ctx context.Context, token string) (int64, error)
	Destroy(ctx context.Context, token string) error
}

func sessionKey(token string) string {
	return fmt.Sprintf("auth_%s", token)
}

// RedisSessions keeps sessions as auth_<token> keys with a TTL.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessions constructs a session store over an open redis client.
func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl}
}

// Create issues a fresh uuid token for userID.
func (s *RedisSessions) Create(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, sessionKey(token), userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Resolve maps a token back to its user id.
func (s *RedisSessions) Resolve(ctx context.Context, token string) (int64, error) {
	val, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNoSession
		}
		return 0, fmt.Errorf("resolve session: %w", err)
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, ErrNoSession
	}
	return userID, nil
}

// Destroy removes the session; destroying an unknown token is not an error.
func (s *RedisSessions) Destroy(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// MemorySessions is the in-process SessionStore used in tests. TTLs are
// ignored; tests are short-lived.
type MemorySessions struct {
	mu     sync.RWMutex
	tokens map[string]int64
}

// NewMemorySessions constructs an empty MemorySessions.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{tokens: make(map[string]int64)}
}

// Create issues a fresh uuid token for userID.
func (s *MemorySessions) Create(_ context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = userID
	s.mu.Unlock()
	return token, nil
}

// Resolve maps a token back to its user id.
func (s *MemorySessions) Resolve(_ context.Context, token string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.tokens[token]
	if !ok {
		return 0, ErrNoSession
	}
	return userID, nil
}

// Destroy removes the session.
func (s *MemorySessions) Destroy(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	return nil
}
