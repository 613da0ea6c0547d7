package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartSweeper runs sweep every interval until ctx is cancelled. The returned
// channel is closed once the goroutine has exited.
func StartSweeper(ctx context.Context, name string, interval time.Duration, logger *zap.Logger, sweep func() int) <-chan struct{} {
	if logger == nil {
		logger = zap.NewNop()
	}
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		logger.Info("sweeper started", zap.String("name", name), zap.Duration("interval", interval))

		for {
			select {
			case <-ticker.C:
				if removed := sweep(); removed > 0 {
					logger.Debug("sweeper evicted entries", zap.String("name", name), zap.Int("removed", removed))
				}
			case <-ctx.Done():
				logger.Info("sweeper shutting down", zap.String("name", name), zap.Error(ctx.Err()))
				return
			}
		}
	}()
	return done
}
