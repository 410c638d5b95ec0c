package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/shillmonger/TrustLoanETH/internal/identity"
	"github.com/shillmonger/TrustLoanETH/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app  *fiber.App
	deps routes.Deps
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(deps routes.Deps) (*Server, error) {
	app := NewApp(deps.Cfg.AppName, deps.Logger)

	if err := routes.Setup(app, deps); err != nil {
		return nil, err
	}

	return &Server{app: app, deps: deps}, nil
}

// NewApp builds a Fiber app with the JSON error envelope.
func NewApp(name string, logger *slog.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      name,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: ErrorHandler(logger),
	})
}

// ErrorHandler renders returned errors as {success:false, message}. Errors that are
// not *fiber.Error never leak their text to the client.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := http.StatusInternalServerError
		message := identity.MsgInternal

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			logger.Error("unhandled error",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Any("error", err),
			)
		}

		return c.Status(code).JSON(fiber.Map{"success": false, "message": message})
	}
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.deps.Cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
