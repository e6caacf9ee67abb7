// AngelaMos | 2026
// fixedwindow_test.go

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/carterperez-dev/templates/bookshelf/internal/config"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func newManualClock() *manualClock {
	return &manualClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func defaultWindowConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Window:          5 * time.Second,
		Capacity:        3,
		CleanupInterval: time.Minute,
	}
}

func TestFixedWindow_SaturatesAtCapacity(t *testing.T) {
	clock := newManualClock()
	l := NewFixedWindow(defaultWindowConfig(), WithClock(clock.Now))

	for i := range 3 {
		d := l.Admit("ip:1")
		require.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, 3, d.Limit)
		assert.Equal(t, 2-i, d.Remaining)
		clock.Advance(time.Second)
	}

	d := l.Admit("ip:1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 2*time.Second, d.RetryAfter)

	d = l.Admit("ip:1")
	assert.False(t, d.Allowed, "rejections do not free capacity")
}

func TestFixedWindow_ResetsAfterWindow(t *testing.T) {
	clock := newManualClock()
	l := NewFixedWindow(defaultWindowConfig(), WithClock(clock.Now))

	for range 3 {
		require.True(t, l.Allow("ip:1"))
	}
	require.False(t, l.Allow("ip:1"))

	clock.Advance(4999 * time.Millisecond)
	assert.False(t, l.Allow("ip:1"))

	clock.Advance(time.Millisecond)
	d := l.Admit("ip:1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
	assert.Equal(t, 5*time.Second, d.RetryAfter)
}

func TestFixedWindow_KeysAreIndependent(t *testing.T) {
	clock := newManualClock()
	l := NewFixedWindow(defaultWindowConfig(), WithClock(clock.Now))

	for range 3 {
		require.True(t, l.Allow("ip:1"))
	}
	assert.False(t, l.Allow("ip:1"))
	assert.True(t, l.Allow("ip:2"))
	assert.Equal(t, 2, l.Len())
}

func TestFixedWindow_ConcurrentAdmitsNeverExceedCapacity(t *testing.T) {
	clock := newManualClock()
	cfg := defaultWindowConfig()
	cfg.Capacity = 50
	l := NewFixedWindow(cfg, WithClock(clock.Now))

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	for range 500 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(50), allowed.Load())
}

func TestFixedWindow_Sweep(t *testing.T) {
	clock := newManualClock()
	l := NewFixedWindow(defaultWindowConfig(), WithClock(clock.Now))

	for i := range 10 {
		l.Allow(fmt.Sprintf("ip:%d", i))
	}
	clock.Advance(3 * time.Second)
	l.Allow("ip:fresh")

	assert.Equal(t, 0, l.Sweep())
	assert.Equal(t, 11, l.Len())

	clock.Advance(2 * time.Second)
	assert.Equal(t, 10, l.Sweep())
	assert.Equal(t, 1, l.Len())
}

func TestFixedWindow_RunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := defaultWindowConfig()
	cfg.CleanupInterval = 10 * time.Millisecond
	cfg.Window = time.Millisecond
	l := NewFixedWindow(cfg)

	l.Allow("ip:1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
