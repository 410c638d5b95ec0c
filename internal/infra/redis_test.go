package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()
	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Fatalf("expected value in miniredis, got %q", got)
	}
}

func TestNewRedisClientEmptyURL(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "")
	if err != nil || client != nil {
		t.Fatalf("expected nil client without error, got %v %v", client, err)
	}
}

func TestNewRedisClientBadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "http://nope"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNewPostgresPoolRequiresURL(t *testing.T) {
	if _, err := NewPostgresPool(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
