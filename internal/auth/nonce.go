package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const noncePrefix = "auth:nonce:v1:"

// NonceStore keeps issued sign-in nonces until they are consumed or expire.
type NonceStore interface {
	Put(ctx context.Context, nonce, address string, ttl time.Duration) error
	// Consume removes the nonce and returns the address it was issued for.
	Consume(ctx context.Context, nonce string) (string, error)
}

// RedisNonceStore stores nonces with a TTL and consumes them atomically with GETDEL.
type RedisNonceStore struct {
	client *redis.Client
}

// NewRedisNonceStore builds a Redis-backed nonce store.
func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client}
}

func (s *RedisNonceStore) Put(ctx context.Context, nonce, address string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, noncePrefix+nonce, address, ttl).Result()
	if err != nil {
		return fmt.Errorf("store nonce: %w", err)
	}
	if !ok {
		return fmt.Errorf("nonce collision")
	}
	return nil
}

func (s *RedisNonceStore) Consume(ctx context.Context, nonce string) (string, error) {
	address, err := s.client.GetDel(ctx, noncePrefix+nonce).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidChallenge
	}
	if err != nil {
		return "", fmt.Errorf("consume nonce: %w", err)
	}
	return address, nil
}

type nonceEntry struct {
	address   string
	expiresAt time.Time
}

type memoryNonceStore struct {
	mu      sync.Mutex
	entries map[string]nonceEntry
	now     func() time.Time
}

// NewMemoryNonceStore builds an in-process nonce store for tests and local development.
func NewMemoryNonceStore() NonceStore {
	return &memoryNonceStore{entries: make(map[string]nonceEntry), now: time.Now}
}

func (m *memoryNonceStore) Put(_ context.Context, nonce, address string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[nonce]; exists {
		return fmt.Errorf("nonce collision")
	}
	m.entries[nonce] = nonceEntry{address: address, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *memoryNonceStore) Consume(_ context.Context, nonce string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[nonce]
	delete(m.entries, nonce)
	if !ok || !m.now().Before(entry.expiresAt) {
		return "", ErrInvalidChallenge
	}
	return entry.address, nil
}
