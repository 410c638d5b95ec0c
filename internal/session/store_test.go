package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedisStore(client), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	sess := New("user-1", "dave@example.com", "0xabc1230000000000000000000000000000000000", time.Now(), time.Hour)
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, key := range mr.Keys() {
		if strings.Contains(key, sess.ID) {
			t.Fatalf("raw token must not appear in redis key %s", key)
		}
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != sess.ID || got.UserID != "user-1" || got.Email != "dave@example.com" {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	sess := New("user-2", "", "0xabc1230000000000000000000000000000000000", time.Now(), time.Minute)
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
}

func TestRedisStoreUnknownToken(t *testing.T) {
	store, _ := newRedisStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Get(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty token, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	live := New("user-3", "", "0xabc1230000000000000000000000000000000000", time.Now(), time.Hour)
	expired := New("user-4", "", "0xabc1230000000000000000000000000000000000", time.Now().Add(-2*time.Hour), time.Hour)
	if err := store.Create(ctx, live); err != nil {
		t.Fatalf("create live: %v", err)
	}
	if err := store.Create(ctx, expired); err != nil {
		t.Fatalf("create expired: %v", err)
	}

	if _, err := store.Get(ctx, live.ID); err != nil {
		t.Fatalf("get live: %v", err)
	}
	if _, err := store.Get(ctx, expired.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be rejected, got %v", err)
	}
}
