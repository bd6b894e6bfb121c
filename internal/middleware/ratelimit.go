package middleware

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimiter is a fixed-window request limiter keyed by client IP and
// backed by Redis. Redis failures let the request through.
type RateLimiter struct {
	rdb         *redis.Client
	maxRequests int
	window      time.Duration
}

// NewRateLimiter creates a rate limiter allowing maxRequests per window.
func NewRateLimiter(rdb *redis.Client, maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, maxRequests: maxRequests, window: window}
}

// Handler returns a Fiber middleware handler for rate limiting.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 250*time.Millisecond)
		defer cancel()

		count, ttl, err := rl.hit(ctx, rateLimitKeyPrefix+c.IP())
		if err != nil {
			slog.Warn("rate limiter unavailable, allowing request", "error", err)
			return c.Next()
		}

		remaining := max(0, int64(rl.maxRequests)-count)
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.maxRequests))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))

		if count > int64(rl.maxRequests) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ttl.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"retry_after": int(ttl.Seconds()),
			})
		}
		return c.Next()
	}
}

// hit counts one request against key and returns the count in the current
// window with the time left until it resets.
func (rl *RateLimiter) hit(ctx context.Context, key string) (int64, time.Duration, error) {
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rl.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, rl.window)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}
