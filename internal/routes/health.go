package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds a readiness endpoint reporting each configured backend.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := fiber.Map{"store": d.Cfg.StoreDriver}
		healthy := true
		report := func(name string, err error) {
			if err != nil {
				checks[name] = err.Error()
				healthy = false
				return
			}
			checks[name] = "ok"
		}
		if d.Mongo != nil {
			report("mongo", d.Mongo.Ping(ctx))
		}
		if d.DB != nil {
			report("postgres", d.DB.Ping(ctx))
		}
		if d.Cache != nil {
			report("redis", d.Cache.Ping(ctx).Err())
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
