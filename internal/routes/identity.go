package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shillmonger/TrustLoanETH/internal/identity"
	"github.com/shillmonger/TrustLoanETH/internal/middleware"
)

// RegisterIdentityRoutes wires onboarding and wallet detection endpoints.
// save-user keeps its {"error": ...} envelope for middleware rejections too.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler, rateLimiter, idempotent fiber.Handler) {
	r.Post("/register", rateLimiter, idempotent, h.Register)
	r.Post("/save-user", middleware.ErrorField(), rateLimiter, idempotent, h.SaveUser)
	r.Post("/wallet/detect", h.Detect)
}
