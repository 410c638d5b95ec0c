package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shillmonger/TrustLoanETH/internal/identity"
)

// RegisterUserWalletRoutes wires the session-bound wallet endpoint. Handlers
// in guards run in order after requireSession.
func RegisterUserWalletRoutes(r fiber.Router, h *identity.Handler, requireSession fiber.Handler, guards ...fiber.Handler) {
	group := r.Group("/user", append([]fiber.Handler{requireSession}, guards...)...)
	group.Get("/wallet", h.GetWallet)
	group.Post("/wallet", h.UpdateWallet)
}
