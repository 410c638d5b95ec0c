package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shillmonger/TrustLoanETH/internal/auth"
)

// RegisterAuthRoutes wires wallet sign-in endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/nonce", rateLimiter, h.Nonce)
	group.Post("/session", rateLimiter, h.SignIn)
	group.Delete("/session", h.SignOut)
}
