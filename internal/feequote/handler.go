package feequote

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler exposes the fee quote endpoint.
type Handler struct {
	quoter *Quoter
}

func NewHandler(quoter *Quoter) *Handler {
	return &Handler{quoter: quoter}
}

// Get quotes the fee for the amount query parameter.
func (h *Handler) Get(c *fiber.Ctx) error {
	raw := strings.TrimSpace(c.Query("amount"))
	if raw == "" {
		return fiber.NewError(http.StatusBadRequest, "Amount is required")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid amount")
	}
	q, err := h.quoter.Quote(amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid amount")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "data": q})
}
