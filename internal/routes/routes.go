package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shillmonger/TrustLoanETH/internal/auth"
	"github.com/shillmonger/TrustLoanETH/internal/config"
	"github.com/shillmonger/TrustLoanETH/internal/feequote"
	"github.com/shillmonger/TrustLoanETH/internal/identity"
	"github.com/shillmonger/TrustLoanETH/internal/infra"
	"github.com/shillmonger/TrustLoanETH/internal/metrics"
	"github.com/shillmonger/TrustLoanETH/internal/middleware"
	"github.com/shillmonger/TrustLoanETH/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	Mongo   *infra.MongoConnector
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Identities overrides the store selected by Cfg.StoreDriver.
	Identities identity.Repository
	// AccessLog enables Fiber's plain text access log.
	AccessLog bool
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	identityRepo, err := IdentityRepository(d)
	if err != nil {
		return err
	}
	quoter, err := feequote.NewQuoter(feequote.Config{
		Percent:       d.Cfg.FeePercent,
		TokenDecimals: d.Cfg.FeeDecimals,
		Recipient:     d.Cfg.AdminWallet,
	})
	if err != nil {
		return fmt.Errorf("fee quote: %w", err)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.AccessLog {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.Metrics(d.Metrics))
	app.Use(middleware.Timeout(d.Cfg.RequestTimeout))

	// Health and metrics
	RegisterHealthRoutes(app, d)
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	// Services and handlers
	var (
		sessions session.Store
		nonces   auth.NonceStore
	)
	if d.Cache != nil {
		sessions = session.NewRedisStore(d.Cache)
		nonces = auth.NewRedisNonceStore(d.Cache)
	} else {
		sessions = session.NewMemoryStore()
		nonces = auth.NewMemoryNonceStore()
	}

	var recorder identity.Recorder
	if d.Metrics != nil {
		recorder = d.Metrics
	}
	identitySvc := identity.NewService(identityRepo)
	identityHandler := identity.NewHandler(identitySvc, d.Logger, recorder)
	authSvc := auth.NewService(identitySvc, sessions, nonces, auth.Config{
		NonceTTL:   d.Cfg.NonceTTL,
		SessionTTL: d.Cfg.SessionTTL,
	})
	authHandler := auth.NewHandler(authSvc, auth.CookieConfig{Secure: d.Cfg.CookieSecure, Domain: d.Cfg.CookieDomain}, d.Logger)
	feeHandler := feequote.NewHandler(quoter)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Idempotency keys are mounted per route so session-bound routes resolve
	// the caller first. Auth routes issue tokens and are never replayed.
	var idempotent fiber.Handler = func(c *fiber.Ctx) error { return c.Next() }
	if d.Cache != nil {
		idempotent = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	// Public routes
	RegisterIdentityRoutes(api, identityHandler, middleware.RateLimit(d.Cache, "register", d.Cfg.RegisterPerMin, d.Logger), idempotent)
	RegisterAuthRoutes(api, authHandler, middleware.RateLimit(d.Cache, "auth", d.Cfg.RegisterPerMin, d.Logger))
	RegisterFeeQuoteRoutes(api, feeHandler)

	// Session-bound routes
	RegisterUserWalletRoutes(api, identityHandler, middleware.RequireSession(sessions, d.Logger), idempotent)

	return nil
}

// IdentityRepository selects the identity store for the configured driver.
func IdentityRepository(d Deps) (identity.Repository, error) {
	if d.Identities != nil {
		return d.Identities, nil
	}
	switch d.Cfg.StoreDriver {
	case config.StoreMongo:
		if d.Mongo == nil {
			return nil, fmt.Errorf("mongo connector is required when STORE_DRIVER=mongo")
		}
		return identity.NewMongoRepository(d.Mongo, d.Cfg.MongoDatabase), nil
	case config.StorePostgres:
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when STORE_DRIVER=postgres")
		}
		return identity.NewPostgresRepository(d.DB), nil
	case config.StoreMemory, "":
		return identity.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", d.Cfg.StoreDriver)
	}
}
