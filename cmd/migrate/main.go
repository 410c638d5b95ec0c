package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/shillmonger/TrustLoanETH/internal/config"
	"github.com/shillmonger/TrustLoanETH/internal/identity"
	"github.com/shillmonger/TrustLoanETH/internal/infra"
	"github.com/shillmonger/TrustLoanETH/internal/logging"
	"github.com/shillmonger/TrustLoanETH/internal/migrations"
	"github.com/shillmonger/TrustLoanETH/internal/routes"
)

func main() {
	backfill := flag.Bool("backfill-providers", false, "persist the default wallet provider on records that have none")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg, *backfill, logger.Info); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, backfill bool, logf func(msg string, args ...any)) error {
	deps := routes.Deps{Cfg: cfg}

	switch cfg.StoreDriver {
	case config.StorePostgres:
		if err := migrations.Up(cfg.DatabaseURL); err != nil {
			return err
		}
		logf("postgres migrations applied")
		if !backfill {
			return nil
		}
		db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		deps.DB = db
	case config.StoreMongo:
		mongo := infra.NewMongoConnector(cfg.MongoURI)
		defer func() { _ = mongo.Close(context.Background()) }()
		deps.Mongo = mongo
	default:
		return fmt.Errorf("nothing to migrate for store driver %q", cfg.StoreDriver)
	}

	repo, err := routes.IdentityRepository(deps)
	if err != nil {
		return err
	}
	if err := repo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	logf("identity indexes ensured", "store", cfg.StoreDriver)

	if backfill {
		n, err := identity.NewService(repo).BackfillProviders(ctx)
		if err != nil {
			return err
		}
		logf("wallet providers backfilled", "updated", n)
	}
	return nil
}
