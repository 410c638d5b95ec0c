package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shillmonger/TrustLoanETH/internal/config"
	"github.com/shillmonger/TrustLoanETH/internal/infra"
	"github.com/shillmonger/TrustLoanETH/internal/logging"
	"github.com/shillmonger/TrustLoanETH/internal/metrics"
	"github.com/shillmonger/TrustLoanETH/internal/routes"
	"github.com/shillmonger/TrustLoanETH/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.WithService(logging.New(cfg.LogLevel), cfg.AppName, cfg.AppEnv)

	ctx := context.Background()
	deps := routes.Deps{
		Cfg:       cfg,
		Logger:    logger,
		Metrics:   metrics.New(),
		AccessLog: cfg.IsDev(),
	}

	switch cfg.StoreDriver {
	case config.StoreMongo:
		deps.Mongo = infra.NewMongoConnector(cfg.MongoURI)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := deps.Mongo.Close(closeCtx); err != nil {
				logger.Warn("close mongo", "error", err)
			}
		}()
	case config.StorePostgres:
		db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		deps.DB = db
	default:
		logger.Warn("using in-memory identity store; records are lost on restart")
	}

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		deps.Cache = cache
	}

	if cfg.StoreDriver == config.StoreMongo {
		// Index creation also forces the first connect; a failure here is retried lazily per request.
		repo, err := routes.IdentityRepository(deps)
		if err == nil {
			err = repo.EnsureIndexes(ctx)
		}
		if err != nil {
			logger.Warn("ensure identity indexes", "error", err)
		}
	}

	srv, err := server.New(deps)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
