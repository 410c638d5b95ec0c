// Package session resolves opaque session tokens to the identity they were issued for.
package session

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// CookieName carries the session token for browser clients.
const CookieName = "session_id"

const localsKey = "session"

// ErrNotFound is returned for unknown, deleted or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session binds a token to an identity. ID is the bearer token and is never persisted in clear.
type Session struct {
	ID        string    `json:"-"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}

// New issues a session with a fresh random token.
func New(userID, email, address string, now time.Time, ttl time.Duration) Session {
	return Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		Address:   address,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func hashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Attach stores the resolved session on the request.
func Attach(c *fiber.Ctx, s Session) {
	c.Locals(localsKey, s)
}

// TokenFromRequest reads the token from the session cookie, falling back to a bearer header.
func TokenFromRequest(c *fiber.Ctx) string {
	if token := c.Cookies(CookieName); token != "" {
		return token
	}
	authz := c.Get(fiber.HeaderAuthorization)
	if len(authz) > len("Bearer ") && strings.EqualFold(authz[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(authz[len("Bearer "):])
	}
	return ""
}

// FromCtx returns the session attached by the session middleware.
func FromCtx(c *fiber.Ctx) (Session, bool) {
	s, ok := c.Locals(localsKey).(Session)
	return s, ok
}
