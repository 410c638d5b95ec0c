package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/shillmonger/TrustLoanETH/internal/metrics"
)

// Metrics records request count and latency by method and matched route.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		route := c.Route().Path
		if route == "" || (route == "/" && c.Path() != "/") {
			route = "unmatched"
		}
		m.ObserveRequest(c.Method(), route, status, time.Since(start))
		return err
	}
}
