package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shillmonger/TrustLoanETH/internal/session"
)

// RequireSession resolves the session cookie or bearer token and attaches the
// session to the request. Missing, unknown or expired sessions get 401.
func RequireSession(store session.Store, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := session.TokenFromRequest(c)
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
		}
		sess, err := store.Get(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
			}
			logger.Error("session lookup failed", slog.Any("error", err))
			return fiber.NewError(http.StatusInternalServerError, "Internal server error")
		}
		session.Attach(c, sess)
		return c.Next()
	}
}
