package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shillmonger/TrustLoanETH/internal/feequote"
)

// RegisterFeeQuoteRoutes wires the advisory loan fee quote.
func RegisterFeeQuoteRoutes(r fiber.Router, h *feequote.Handler) {
	r.Get("/loan/fee-quote", h.Get)
}
