package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "ratelimit:"

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c *fiber.Ctx) string

type RateLimiter struct {
	client   *redis.Client
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	keyFunc  KeyFunc
}

// NewRateLimiter allows requests per window with a burst of requests.
// Limiters are kept in memory and their burst is mirrored to Redis so a
// restarted instance resumes with the stored value.
func NewRateLimiter(client *redis.Client, requests int, window time.Duration, keyFunc KeyFunc) *RateLimiter {
	if client == nil {
		zap.L().Error("Redis client passed to NewRateLimiter is nil")
		panic("Redis client passed to NewRateLimiter is nil")
	}

	if window <= 0 {
		window = 15 * time.Minute
		zap.L().Warn("Invalid window provided to NewRateLimiter, defaulting", zap.Duration("default_window", window))
	}
	if requests <= 0 {
		requests = 100
		zap.L().Warn("Invalid request budget provided to NewRateLimiter, defaulting", zap.Int("default_requests", requests))
	}
	if keyFunc == nil {
		keyFunc = func(c *fiber.Ctx) string { return c.IP() }
	}

	return &RateLimiter{
		client:   client,
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		ttl:      window,
		keyFunc:  keyFunc,
	}
}

func (rl *RateLimiter) GetLimiter(ctx context.Context, key string) *rate.Limiter {
	rl.mu.Lock()
	limiter, exists := rl.limiters[key]
	if !exists {
		initialBurst := rl.burst

		val, err := rl.client.Get(ctx, keyPrefix+key).Int()
		if err == nil && val > 0 {
			if val <= rl.burst {
				initialBurst = val
			}
			zap.L().Debug(
				"Initializing limiter from Redis state",
				zap.String("key", key),
				zap.Int("redis_burst_val", val),
				zap.Int("initial_burst", initialBurst),
			)
		} else if err != nil && err != redis.Nil {
			zap.L().Error("Error getting rate limit state from Redis", zap.String("key", key), zap.Error(err))
		}

		limiter = rate.NewLimiter(rl.limit, initialBurst)
		rl.limiters[key] = limiter

		time.AfterFunc(rl.ttl, func() {
			rl.mu.Lock()
			defer rl.mu.Unlock()
			zap.L().Debug("Removing limiter from memory due to TTL", zap.String("key", key))
			delete(rl.limiters, key)
		})
	}
	rl.mu.Unlock()

	if err := rl.client.Set(ctx, keyPrefix+key, limiter.Burst(), rl.ttl).Err(); err != nil {
		zap.L().Error("Error setting rate limit state to Redis", zap.String("key", key), zap.Error(err))
	}

	return limiter
}

func (rl *RateLimiter) RateLimitMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rl.keyFunc(c)
		if key == "" {
			zap.L().Warn("Rate limiter cannot identify the client")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Access Forbidden: Cannot identify client.",
			})
		}

		limiter := rl.GetLimiter(c.UserContext(), key)

		if !limiter.Allow() {
			zap.L().Warn("Rate limit exceeded", zap.String("key", key))

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many requests, please try again later.",
			})
		}

		return c.Next()
	}
}
