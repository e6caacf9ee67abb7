// AngelaMos | 2026
// fixedwindow.go

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/carterperez-dev/templates/bookshelf/internal/config"
)

// Decision is the outcome of one admission attempt.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type window struct {
	count int
	start time.Time
}

// FixedWindow admits up to capacity requests per key per window. Bursts of up
// to twice the capacity across a window edge are accepted.
type FixedWindow struct {
	mu       sync.Mutex
	windows  map[string]*window
	capacity int
	length   time.Duration
	sweep    time.Duration
	now      func() time.Time
}

type Option func(*FixedWindow)

func WithClock(now func() time.Time) Option {
	return func(l *FixedWindow) {
		l.now = now
	}
}

func NewFixedWindow(cfg config.RateLimitConfig, opts ...Option) *FixedWindow {
	sweep := cfg.CleanupInterval
	if sweep <= 0 {
		sweep = time.Minute
	}

	l := &FixedWindow{
		windows:  make(map[string]*window),
		capacity: cfg.Capacity,
		length:   cfg.Window,
		sweep:    sweep,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Admit counts one request for key. The read-modify-write happens under the
// limiter lock, so concurrent callers on the same key never share a count.
func (l *FixedWindow) Admit(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.start.Add(l.length)) {
		w = &window{start: now}
		l.windows[key] = w
	}

	retryAfter := w.start.Add(l.length).Sub(now)

	if w.count >= l.capacity {
		return Decision{
			Allowed:    false,
			Limit:      l.capacity,
			Remaining:  0,
			RetryAfter: retryAfter,
		}
	}

	w.count++

	return Decision{
		Allowed:    true,
		Limit:      l.capacity,
		Remaining:  l.capacity - w.count,
		RetryAfter: retryAfter,
	}
}

func (l *FixedWindow) Allow(key string) bool {
	return l.Admit(key).Allowed
}

func (l *FixedWindow) Window() time.Duration {
	return l.length
}

// Len reports how many keys currently hold a window, expired or not.
func (l *FixedWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Run drops expired windows every sweep interval until ctx is done.
func (l *FixedWindow) Run(ctx context.Context) {
	ticker := time.NewTicker(l.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func (l *FixedWindow) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if !now.Before(w.start.Add(l.length)) {
			delete(l.windows, key)
			removed++
		}
	}

	return removed
}
