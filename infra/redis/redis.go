package redisdb

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/greenfina/greenfina/config"
)

func NewRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.REDIS_ADDRESS,
		Password:     cfg.REDIS_PASSWORD,
		DB:           0,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		MaxRetries:   3,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.REDIS_ADDRESS, err)
	}
	zap.L().Info("Redis connected", zap.String("address", cfg.REDIS_ADDRESS), zap.String("response", pong))

	return client, nil
}

// ConnectWithRetry blocks until Redis answers or ctx is cancelled.
func ConnectWithRetry(ctx context.Context, cfg *config.Config, retryDelay time.Duration) (*redis.Client, error) {
	for {
		client, err := NewRedis(cfg)
		if err == nil {
			return client, nil
		}

		zap.L().Error("Failed to connect to Redis, retrying",
			zap.Duration("retry_in", retryDelay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

// WatchConnection pings the client periodically and logs health transitions.
func WatchConnection(ctx context.Context, client *redis.Client, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()

		switch {
		case err != nil && healthy:
			healthy = false
			zap.L().Error("Redis ping failed", zap.Error(err))
		case err == nil && !healthy:
			healthy = true
			zap.L().Info("Redis connection restored")
		}
	}
}