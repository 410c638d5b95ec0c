package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorField renders *fiber.Error values raised further down the chain as
// {"error": message} instead of the app-wide envelope. Other errors pass
// through to the app error handler.
func ErrorField() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		return err
	}
}
