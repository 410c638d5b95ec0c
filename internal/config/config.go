package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shillmonger/TrustLoanETH/internal/wallet"
)

const (
	defaultAppName        = "TrustLoan"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultMongoDatabase  = "trustloan"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultRequestTimeout = 5 * time.Second
	defaultSessionTTL     = 7 * 24 * time.Hour
	defaultNonceTTL       = 5 * time.Minute
	defaultRegisterRate   = 10
	defaultFeePercent     = "10"
	defaultFeeDecimals    = 6
	defaultAdminWallet    = "0x96bebc6C5F7547a8A1ADDC0a0aA80744D9c99065"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	StoreDriver    string
	MongoURI       string
	MongoDatabase  string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	RequestTimeout time.Duration
	SessionTTL     time.Duration
	NonceTTL       time.Duration
	CookieSecure   bool
	CookieDomain   string
	RegisterPerMin int
	FeePercent     decimal.Decimal
	FeeDecimals    int32
	AdminWallet    string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		StoreDriver:    strings.ToLower(os.Getenv("STORE_DRIVER")),
		MongoURI:       os.Getenv("MONGODB_URI"),
		MongoDatabase:  getEnv("MONGODB_DATABASE", defaultMongoDatabase),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		CookieDomain:   os.Getenv("COOKIE_DOMAIN"),
		AdminWallet:    getEnv("ADMIN_WALLET", defaultAdminWallet),
		RegisterPerMin: defaultRegisterRate,
		FeeDecimals:    defaultFeeDecimals,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = durationFromEnv("REQUEST_TIMEOUT", defaultRequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationFromEnv("SESSION_TTL", defaultSessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.NonceTTL, err = durationFromEnv("NONCE_TTL", defaultNonceTTL); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid COOKIE_SECURE: %w", err)
		}
		cfg.CookieSecure = b
	} else {
		cfg.CookieSecure = !cfg.IsDev()
	}

	if v := os.Getenv("REGISTER_RATE_PER_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid REGISTER_RATE_PER_MIN: %q", v)
		}
		cfg.RegisterPerMin = n
	}

	cfg.FeePercent, err = decimal.NewFromString(getEnv("FEE_PERCENT", defaultFeePercent))
	if err != nil {
		return Config{}, fmt.Errorf("invalid FEE_PERCENT: %w", err)
	}
	if v := os.Getenv("FEE_TOKEN_DECIMALS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FEE_TOKEN_DECIMALS: %w", err)
		}
		cfg.FeeDecimals = int32(n)
	}
	if !wallet.IsValidAddress(cfg.AdminWallet) {
		return Config{}, fmt.Errorf("ADMIN_WALLET must be a 0x-prefixed 40 hex digit address")
	}

	if cfg.StoreDriver == "" {
		cfg.StoreDriver = cfg.defaultStoreDriver()
	}
	switch cfg.StoreDriver {
	case StoreMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGODB_URI must be set when STORE_DRIVER=mongo")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when STORE_DRIVER=postgres")
		}
	case StoreMemory:
		if !cfg.IsDev() {
			return Config{}, fmt.Errorf("STORE_DRIVER=memory is only allowed in development")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.RedisURL == "" && !cfg.IsDev() {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	return cfg, nil
}

func (c Config) defaultStoreDriver() string {
	switch {
	case c.MongoURI != "":
		return StoreMongo
	case c.DatabaseURL != "":
		return StorePostgres
	default:
		return StoreMemory
	}
}

// IsDev reports whether the process runs in a local development environment.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// durationFromEnv reads KEY_SECONDS as whole seconds, or KEY as a Go duration.
func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	secondsKey := key + "_SECONDS"
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
