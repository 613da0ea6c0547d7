package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/zhouzirui/consult/backend/internal/apperr"
)

// RetryConfig bounds Retry. MaxRetries counts attempts after the first one.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxJitter  time.Duration
}

// DefaultRetryConfig retries provider calls three times starting at 200ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: 200 * time.Millisecond, MaxJitter: 100 * time.Millisecond}
}

// Backoff returns the delay before retry number attempt (0-based):
// base * 2^attempt plus up to MaxJitter of jitter.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	delay := c.BaseDelay * time.Duration(1<<attempt)
	if c.MaxJitter > 0 {
		delay += time.Duration(rand.Int64N(int64(c.MaxJitter)))
	}
	return delay
}

// Retry runs op until it succeeds, returns an error that classifies as
// non-retryable, or the retry budget is exhausted. The last error is returned
// unchanged.
func Retry[T any](ctx context.Context, cfg RetryConfig, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 0; ; attempt++ {
		result, err = op(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= cfg.MaxRetries || !apperr.Classify(err).Retryable {
			return result, err
		}

		timer := time.NewTimer(cfg.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, err
		case <-timer.C:
		}
	}
}

// RetryDo is Retry for operations without a result.
func RetryDo(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error) error {
	_, err := Retry(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
