// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"fmt"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/carterperez-dev/templates/bookshelf/internal/config"
)

const (
	redisPingTimeout    = 5 * time.Second
	redisConnectRetries = 3
)

// Redis holds the shared counters of the login throttle, so attempts are
// counted across replicas. A nil *Redis is valid and means "not configured".
type Redis struct {
	client  *redis.Client
	limiter *redis_rate.Limiter
}

// NewRedis connects with exponential backoff and fails if the server never
// answers a PING.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := waitForRedis(ctx, client); err != nil {
		_ = client.Close() //nolint:errcheck // cleanup on connection failure
		return nil, err
	}

	return &Redis{
		client:  client,
		limiter: redis_rate.NewLimiter(client),
	}, nil
}

func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	return opts, nil
}

func waitForRedis(ctx context.Context, client *redis.Client) error {
	backoff := retry.WithMaxRetries(
		redisConnectRetries,
		retry.NewExponential(connectBackoffBase),
	)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()

		if err := client.Ping(pingCtx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Limiter returns the redis_rate limiter backing the login throttle, or nil
// when Redis is not configured.
func (r *Redis) Limiter() *redis_rate.Limiter {
	if r == nil {
		return nil
	}
	return r.limiter
}

func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

// Ping reports readiness for the health and admin endpoints.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, span := StartSpan(ctx, "redis.ping")
	defer span.End()

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := r.client.Ping(pingCtx).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis ping failed: %w", err)
	}

	return nil
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.client.PoolStats()
}
