package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/consult/backend/internal/apperr"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCacheExpiresStrictlyAfterDeadline(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache[string, int](time.Minute)
	cache.SetClock(clock.Now)

	cache.Set("k", 42)

	clock.Advance(time.Minute)
	got, ok := cache.Get("k")
	require.True(t, ok, "entry must still be readable exactly at expiry")
	assert.Equal(t, 42, got)

	clock.Advance(time.Nanosecond)
	_, ok = cache.Get("k")
	assert.False(t, ok)
}

func TestCachePerEntryTTLAndLenPurges(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache[string, string](time.Hour)
	cache.SetClock(clock.Now)

	cache.SetWithTTL("short", "a", time.Second)
	cache.Set("long", "b")
	assert.Equal(t, 2, cache.Len())

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, cache.Len())

	cache.Delete("long")
	assert.Equal(t, 0, cache.Len())
}

func TestRateLimiterAllowsExactlyLimit(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(LimiterConfig{Limit: 5, Window: time.Minute, BlockDuration: time.Minute})
	limiter.SetClock(clock.Now)

	for i := 0; i < 5; i++ {
		require.True(t, limiter.Allow("ip-1"), "call %d should pass", i+1)
	}
	assert.False(t, limiter.Allow("ip-1"))
	assert.True(t, limiter.Allow("ip-2"), "keys are independent")
}

func TestRateLimiterBlockLastsBlockDuration(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(LimiterConfig{Limit: 1, Window: time.Second, BlockDuration: 10 * time.Second})
	limiter.SetClock(clock.Now)

	require.True(t, limiter.Allow("k"))
	require.False(t, limiter.Allow("k"))

	clock.Advance(2 * time.Second)
	assert.False(t, limiter.Allow("k"), "still blocked after window reset")
	assert.Greater(t, limiter.RetryAfter("k"), time.Duration(0))

	clock.Advance(9 * time.Second)
	assert.True(t, limiter.Allow("k"))
}

func TestRateLimiterPermanentBlockAndReset(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(LimiterConfig{Limit: 2, Window: time.Minute, BlockDuration: time.Second})
	limiter.SetClock(clock.Now)

	for i := 0; i < 7; i++ {
		limiter.Allow("abuser")
	}
	clock.Advance(time.Hour)
	assert.False(t, limiter.Allow("abuser"), "permanent block survives window resets")
	assert.Equal(t, time.Duration(-1), limiter.RetryAfter("abuser"))

	limiter.Reset("abuser")
	assert.True(t, limiter.Allow("abuser"))
	assert.Equal(t, 1, limiter.Remaining("abuser"))
}

func TestRateLimiterSweepDropsIdleWindows(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(LimiterConfig{Limit: 3, Window: time.Second})
	limiter.SetClock(clock.Now)

	limiter.Allow("a")
	limiter.Allow("b")
	clock.Advance(2 * time.Second)

	assert.Equal(t, 2, limiter.Sweep())
	assert.Equal(t, 0, limiter.Len())
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), RetryConfig{MaxRetries: 5, BaseDelay: time.Millisecond}, func(context.Context) (string, error) {
		calls++
		return "", apperr.Validation("bad input")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRetryRetriesNetworkErrorsUntilSuccess(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond}, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, apperr.Network(nil, "flaky")
		}
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, 3, calls)
}

func TestRetryReturnsLastErrorUnchanged(t *testing.T) {
	last := apperr.Network(errors.New("still down"), "upstream unreachable")
	calls := 0
	err := RetryDo(context.Background(), RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return last
	})

	assert.Same(t, last, err)
	assert.Equal(t, 3, calls)
}

func TestBackoffDoubles(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, cfg.Backoff(0))
	assert.Equal(t, 400*time.Millisecond, cfg.Backoff(2))

	jittered := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxJitter: 50 * time.Millisecond}.Backoff(1)
	assert.GreaterOrEqual(t, jittered, 200*time.Millisecond)
	assert.Less(t, jittered, 250*time.Millisecond)
}

func TestMonitorTrackPreservesResult(t *testing.T) {
	monitor := NewMonitor(nil, prometheus.NewRegistry())
	wantErr := errors.New("boom")

	got, err := Track(context.Background(), monitor, "op", func(context.Context) (int, error) {
		return 3, wantErr
	})
	assert.Equal(t, 3, got)
	assert.Same(t, wantErr, err)

	monitor.Start("label")
	assert.GreaterOrEqual(t, monitor.Stop("label"), time.Duration(0))
	assert.Equal(t, time.Duration(0), monitor.Stop("never-started"))

	monitor.Degraded("vector", "delete")
	assert.Equal(t, float64(1), monitor.DegradedCount("vector", "delete"))
}

func TestSweeperStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan struct{}, 1)
	done := StartSweeper(ctx, "test", time.Millisecond, nil, func() int {
		select {
		case swept <- struct{}{}:
		default:
		}
		return 0
	})

	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("sweep never ran")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
