package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const rateLimitPrefix = "rl:v1:"

// RateLimit caps requests per client IP per minute for one named bucket.
// With Redis it uses a shared fixed window (INCR + EXPIRE) and fails open on
// cache errors; without Redis it falls back to an in-process token bucket.
func RateLimit(cache *redis.Client, bucket string, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	if cache == nil {
		return localRateLimit(bucket, maxPerMin, logger)
	}
	return func(c *fiber.Ctx) error {
		key := rateLimitPrefix + bucket + ":" + c.IP()
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			logger.Warn("rate limit check failed", slog.String("bucket", bucket), slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return tooManyRequests(c, bucket, logger)
		}
		return c.Next()
	}
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func localRateLimit(bucket string, maxPerMin int, logger *slog.Logger) fiber.Handler {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*ipLimiter)
		every    = rate.Every(time.Minute / time.Duration(maxPerMin))
		sweepAt  = time.Now().Add(5 * time.Minute)
	)
	return func(c *fiber.Ctx) error {
		now := time.Now()
		mu.Lock()
		if now.After(sweepAt) {
			for ip, l := range limiters {
				if now.Sub(l.lastSeen) > 5*time.Minute {
					delete(limiters, ip)
				}
			}
			sweepAt = now.Add(5 * time.Minute)
		}
		l, ok := limiters[c.IP()]
		if !ok {
			l = &ipLimiter{limiter: rate.NewLimiter(every, maxPerMin)}
			limiters[c.IP()] = l
		}
		l.lastSeen = now
		allowed := l.limiter.AllowN(now, 1)
		mu.Unlock()

		if !allowed {
			return tooManyRequests(c, bucket, logger)
		}
		return c.Next()
	}
}

func tooManyRequests(c *fiber.Ctx, bucket string, logger *slog.Logger) error {
	logger.Warn("rate limit exceeded", slog.String("bucket", bucket), slog.String("ip", c.IP()))
	c.Set(fiber.HeaderRetryAfter, "60")
	return fiber.NewError(http.StatusTooManyRequests, "Too many requests, try again later")
}
