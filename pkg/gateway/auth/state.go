package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrStateNotFound = errors.New("login state not found or expired")

// StateStore remembers the OAuth state parameter between the login redirect
// and the callback. Consume is single-use.
type StateStore interface {
	Save(ctx context.Context, state, returnTo string) error
	Consume(ctx context.Context, state string) (string, error)
}

type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: ttl, prefix: "cler:oauth-state:"}
}

func (s *RedisStateStore) Save(ctx context.Context, state, returnTo string) error {
	ok, err := s.client.SetNX(ctx, s.prefix+state, returnTo, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("login state collision")
	}
	return nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	value, err := s.client.GetDel(ctx, s.prefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrStateNotFound
	}
	return value, err
}

// MemoryStateStore is the single-process fallback used when Redis is not
// configured.
type MemoryStateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryState
	nowFunc func() time.Time
}

type memoryState struct {
	returnTo string
	expires  time.Time
}

func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	return &MemoryStateStore{ttl: ttl, entries: make(map[string]memoryState), nowFunc: time.Now}
}

func (s *MemoryStateStore) Save(_ context.Context, state, returnTo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	for k, v := range s.entries {
		if now.After(v.expires) {
			delete(s.entries, k)
		}
	}
	s.entries[state] = memoryState{returnTo: returnTo, expires: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[state]
	delete(s.entries, state)
	if !ok || s.nowFunc().After(entry.expires) {
		return "", ErrStateNotFound
	}
	return entry.returnTo, nil
}
