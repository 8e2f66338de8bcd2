package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rubberworks/queuegate/internal/domain/models"
)

// ErrSessionNotFound indicates an unknown, deleted or expired session.
var ErrSessionNotFound = errors.New("session not found")

// Store persists server-side sessions.
type Store interface {
	Save(ctx context.Context, session models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// NewStore returns a Redis store when kvURL is set and an in-memory store otherwise.
func NewStore(ctx context.Context, kvURL string) (Store, error) {
	if kvURL == "" {
		return NewMemoryStore(), nil
	}
	opts, err := redis.ParseURL(kvURL)
	if err != nil {
		return nil, fmt.Errorf("parse kv url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping kv store: %w", err)
	}
	return NewRedisStore(rdb), nil
}

// MemoryStore keeps sessions in process memory. Expired sessions are swept on every Save,
// so memory stays bounded by the sessions live within one TTL.
type MemoryStore struct {
	sessions map[string]models.Session
	mu       sync.RWMutex
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]models.Session),
		now:      time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, existing := range s.sessions {
		if existing.Expired(now) {
			delete(s.sessions, id)
		}
	}
	s.sessions[session.ID] = session
	return nil
}

// Len reports the number of stored sessions, expired ones included until the next sweep.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Expired(s.now()) {
		_ = s.Delete(context.Background(), id)
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// RedisStore keeps sessions in Redis as JSON with a TTL matching the session expiry.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func sessionKey(id string) string {
	return "session:" + id
}

func (s *RedisStore) Save(ctx context.Context, session models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("save session %s: already expired", session.ID)
	}
	if err := s.rdb.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	payload, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
