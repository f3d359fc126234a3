package userstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uniserve/uniserve/pkg/auth"
)

const statePrefix = "oauth_state:"

// RedisStateStore keeps one-time OAuth CSRF states in redis. Expiry is
// redis-side TTL; consumption is GETDEL, so a state redeems at most once
// even across concurrent callbacks.
type RedisStateStore struct {
	client *redis.Client
}

var _ auth.StateStore = (*RedisStateStore)(nil)

// NewRedisStateStore creates a state store on the given client.
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) StoreState(ctx context.Context, state string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return errors.New("state expiry is in the past")
	}
	return s.client.Set(ctx, statePrefix+state, "1", ttl).Err()
}

func (s *RedisStateStore) ConsumeState(ctx context.Context, state string) error {
	err := s.client.GetDel(ctx, statePrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return auth.ErrStateNotFound
	}
	return err
}

// MemoryStateStore is the in-process equivalent for tests and dev runs.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

var _ auth.StateStore = (*MemoryStateStore)(nil)

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]time.Time)}
}

func (s *MemoryStateStore) StoreState(ctx context.Context, state string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state] = expiresAt
	return nil
}

func (s *MemoryStateStore) ConsumeState(ctx context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.states[state]
	if !ok {
		return auth.ErrStateNotFound
	}
	delete(s.states, state)
	if time.Now().After(expiresAt) {
		return auth.ErrStateNotFound
	}
	return nil
}
