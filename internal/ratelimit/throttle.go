// AngelaMos | 2026
// throttle.go

package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/templates/bookshelf/internal/config"
)

const (
	throttleKeyPrefix = "throttle:login:"
	cleanupInterval   = 5 * time.Minute
	entryTTL          = 10 * time.Minute
)

// LoginThrottle caps login attempts per account email and client address
// pair, so one caller cannot lock an account out for everyone else. It uses
// Redis when a client is configured and falls back to in-process limiters
// otherwise or when Redis errors.
type LoginThrottle struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	limit    redis_rate.Limit
}

// NewLoginThrottle counts attempts in Redis through limiter. A nil limiter
// keeps the throttle process local.
func NewLoginThrottle(limiter *redis_rate.Limiter, cfg config.LoginThrottleConfig) *LoginThrottle {
	return &LoginThrottle{
		limiter:  limiter,
		fallback: newLocalLimiter(),
		limit: redis_rate.Limit{
			Rate:   cfg.Attempts,
			Burst:  cfg.Attempts,
			Period: cfg.Period,
		},
	}
}

// Allow spends one attempt for email from clientIP. Callers apply it before
// any credential lookup so known and unknown accounts are throttled alike.
func (t *LoginThrottle) Allow(ctx context.Context, email, clientIP string) Decision {
	key := throttleKey(email, clientIP)

	if t.limiter != nil {
		res, err := t.limiter.Allow(ctx, key, t.limit)
		if err == nil {
			return Decision{
				Allowed:    res.Allowed > 0,
				Limit:      t.limit.Rate,
				Remaining:  res.Remaining,
				RetryAfter: res.RetryAfter,
			}
		}
		slog.Warn("login throttle redis error, using local limiter",
			"error", err,
		)
	}

	return t.fallback.allow(key, t.limit)
}

func throttleKey(email, clientIP string) string {
	return throttleKeyPrefix +
		strings.ToLower(strings.TrimSpace(email)) + ":" +
		strings.TrimSpace(clientIP)
}

// Run evicts idle local limiters until ctx is done.
func (t *LoginThrottle) Run(ctx context.Context) {
	t.fallback.run(ctx)
}

type limiterEntry struct {
	limiter    *rate.Limiter
	mu         sync.Mutex
	lastAccess time.Time
}

type localLimiter struct {
	limiters sync.Map
	now      func() time.Time
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{now: time.Now}
}

func (l *localLimiter) run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(l.now().Add(-entryTTL))
		}
	}
}

func (l *localLimiter) evict(cutoff time.Time) {
	l.limiters.Range(func(key, value any) bool {
		entry, ok := value.(*limiterEntry)
		if !ok {
			return true
		}
		entry.mu.Lock()
		idle := entry.lastAccess.Before(cutoff)
		entry.mu.Unlock()
		if idle {
			l.limiters.Delete(key)
		}
		return true
	})
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) Decision {
	ratePerSec := float64(limit.Rate) / limit.Period.Seconds()
	now := l.now()

	entryI, loaded := l.limiters.Load(key)
	if !loaded {
		newEntry := &limiterEntry{
			limiter:    rate.NewLimiter(rate.Limit(ratePerSec), limit.Burst),
			lastAccess: now,
		}
		entryI, _ = l.limiters.LoadOrStore(key, newEntry)
	}

	entry, ok := entryI.(*limiterEntry)
	if !ok {
		panic(fmt.Sprintf("ratelimit: unexpected limiter entry %T", entryI))
	}

	entry.mu.Lock()
	entry.lastAccess = now
	entry.mu.Unlock()

	allowed := entry.limiter.AllowN(now, 1)

	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	var retryAfter time.Duration
	if !allowed {
		retryAfter = time.Duration(float64(time.Second) / ratePerSec)
	}

	return Decision{
		Allowed:    allowed,
		Limit:      limit.Rate,
		Remaining:  remaining,
		RetryAfter: retryAfter,
	}
}
