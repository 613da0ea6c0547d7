package resilience

import (
	"sync"
	"time"
)

// LimiterConfig describes a fixed-window limit.
type LimiterConfig struct {
	Limit         int
	Window        time.Duration
	BlockDuration time.Duration
}

// DefaultLimiterConfig is the general-purpose API limit.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{Limit: 3, Window: time.Second, BlockDuration: time.Minute}
}

// ChatLimiterConfig is the per-session/IP chat message limit.
func ChatLimiterConfig() LimiterConfig {
	return LimiterConfig{Limit: 20, Window: time.Hour, BlockDuration: time.Hour}
}

// permanentFactor is the multiple of the base limit inside one window that
// bans a key for the lifetime of the process.
const permanentFactor = 3

type limiterWindow struct {
	start        time.Time
	count        int
	blockedUntil time.Time
}

// RateLimiter is a fixed-window counter keyed by session, user or IP.
type RateLimiter struct {
	mu        sync.Mutex
	cfg       LimiterConfig
	windows   map[string]*limiterWindow
	permanent map[string]struct{}
	now       func() time.Time
}

// NewRateLimiter builds a limiter. Zero fields in cfg take the defaults.
func NewRateLimiter(cfg LimiterConfig) *RateLimiter {
	def := DefaultLimiterConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = cfg.Window
	}
	return &RateLimiter{
		cfg:       cfg,
		windows:   make(map[string]*limiterWindow),
		permanent: make(map[string]struct{}),
		now:       time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (l *RateLimiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Config returns the effective limiter configuration.
func (l *RateLimiter) Config() LimiterConfig {
	return l.cfg
}

// Allow counts one request for key and reports whether it may proceed.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, banned := l.permanent[key]; banned {
		return false
	}

	now := l.now()
	w, ok := l.windows[key]
	if !ok {
		w = &limiterWindow{start: now}
		l.windows[key] = w
	} else if !now.Before(w.start.Add(l.cfg.Window)) {
		w.start = now
		w.count = 0
	}

	w.count++
	if w.count > l.cfg.Limit*permanentFactor {
		l.permanent[key] = struct{}{}
		delete(l.windows, key)
		return false
	}
	if now.Before(w.blockedUntil) {
		return false
	}
	if w.count > l.cfg.Limit {
		w.blockedUntil = now.Add(l.cfg.BlockDuration)
		return false
	}
	return true
}

// Remaining reports how many requests key may still make in the current
// window without consuming one.
func (l *RateLimiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, banned := l.permanent[key]; banned {
		return 0
	}
	w, ok := l.windows[key]
	now := l.now()
	if !ok || !now.Before(w.start.Add(l.cfg.Window)) {
		if ok && now.Before(w.blockedUntil) {
			return 0
		}
		return l.cfg.Limit
	}
	if now.Before(w.blockedUntil) || w.count >= l.cfg.Limit {
		return 0
	}
	return l.cfg.Limit - w.count
}

// RetryAfter reports how long key must wait before its next allowed request.
// Permanently blocked keys report -1.
func (l *RateLimiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, banned := l.permanent[key]; banned {
		return -1
	}
	w, ok := l.windows[key]
	if !ok {
		return 0
	}
	now := l.now()
	wait := time.Duration(0)
	if now.Before(w.blockedUntil) {
		wait = w.blockedUntil.Sub(now)
	}
	if w.count >= l.cfg.Limit {
		if reset := w.start.Add(l.cfg.Window).Sub(now); reset > wait {
			wait = reset
		}
	}
	return wait
}

// Reset clears both the window and any permanent block for key.
func (l *RateLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.windows, key)
	delete(l.permanent, key)
	l.mu.Unlock()
}

// Sweep drops windows that have elapsed and are no longer blocking. It is
// safe to call from a background ticker; correctness never depends on it.
func (l *RateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.windows {
		if !now.Before(w.start.Add(l.cfg.Window)) && !now.Before(w.blockedUntil) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys, including permanent blocks.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows) + len(l.permanent)
}
