package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shillmonger/TrustLoanETH/internal/logging"
	"github.com/shillmonger/TrustLoanETH/internal/session"
)

func setupTestApp(t *testing.T) (*fiber.App, *atomic.Int32, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New()
	logger := logging.Discard()
	calls := &atomic.Int32{}
	app.Use(Idempotency(cache, time.Minute, logger))
	app.Post("/resource", func(c *fiber.Ctx) error {
		n := calls.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "call": n})
	})
	app.Post("/broken", func(c *fiber.Ctx) error {
		calls.Add(1)
		return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}

	return app, calls, cleanup
}

func newPost(path, idemKey string) *http.Request {
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if idemKey != "" {
		req.Header.Set(idempotencyKeyHeader, idemKey)
	}
	return req
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	for i := 0; i < 2; i++ {
		resp, err := app.Test(newPost("/resource", ""))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusCreated {
			t.Fatalf("expected %d got %d", fiber.StatusCreated, resp.StatusCode)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", calls.Load())
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	resp, err := app.Test(newPost("/resource", "abc123"))
	if err != nil {
		t.Fatalf("first request: %v", err)
	}

	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()

	// Second request should return the cached response without invoking handler again.
	resp2, err := app.Test(newPost("/resource", "abc123"))
	if err != nil {
		t.Fatalf("second request: %v", err)
	}

	if resp2.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, resp2.StatusCode)
	}
	if resp2.Header.Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay marker header")
	}

	cachedPayload, err := io.ReadAll(resp2.Body)
	if err != nil {
		t.Fatalf("read cached body: %v", err)
	}
	resp2.Body.Close()

	if string(cachedPayload) != string(payload) {
		t.Fatalf("expected cached payload %s got %s", string(payload), string(cachedPayload))
	}

	var decoded map[string]any
	if err := json.Unmarshal(cachedPayload, &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls.Load())
	}
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	for i := 0; i < 2; i++ {
		resp, err := app.Test(newPost("/broken", "retry-me"))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusInternalServerError {
			t.Fatalf("expected 500 got %d", resp.StatusCode)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("expected failed request to be retried, handler ran %d times", calls.Load())
	}
}

func TestIdempotencyKeysAreScopedPerSession(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	store := session.NewMemoryStore()
	alice := session.New("user-a", "", "", time.Now(), time.Hour)
	bob := session.New("user-b", "", "", time.Now(), time.Hour)
	for _, s := range []session.Session{alice, bob} {
		if err := store.Create(context.Background(), s); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	var calls atomic.Int32
	app := fiber.New()
	app.Post("/me", RequireSession(store, logging.Discard()), Idempotency(cache, time.Minute, logging.Discard()), func(c *fiber.Ctx) error {
		calls.Add(1)
		s, _ := session.FromCtx(c)
		return c.SendString(s.UserID)
	})

	post := func(token string) (int, string) {
		req := newPost("/me", "shared-key")
		if token != "" {
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	if code, body := post(alice.ID); code != fiber.StatusOK || body != "user-a" {
		t.Fatalf("alice: %d %s", code, body)
	}
	if code, body := post(""); code != fiber.StatusUnauthorized || strings.Contains(body, "user-a") {
		t.Fatalf("anonymous request must not see a stored response: %d %s", code, body)
	}
	if code, body := post(bob.ID); code != fiber.StatusOK || body != "user-b" {
		t.Fatalf("bob must run his own request: %d %s", code, body)
	}
	if code, body := post(alice.ID); code != fiber.StatusOK || body != "user-a" {
		t.Fatalf("alice replay: %d %s", code, body)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one handler run per session, got %d", calls.Load())
	}
}

func TestIdempotencyReplayKeepsFreshRequestID(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Use(RequestID())
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
	})

	for _, id := range []string{"req-first", "req-second"} {
		req := newPost("/resource", "same-key")
		req.Header.Set(requestIDHeader, id)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if got := resp.Header.Get(requestIDHeader); got != id {
			t.Fatalf("expected request id %q, got %q", id, got)
		}
	}
}
