// Package analytics records chat events. Delivery is best-effort: events are
// queued and dropped when the queue is full.
package analytics

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Event describes one user-visible interaction.
type Event struct {
	Name       string
	SessionID  string
	Intent     string
	Model      string
	Tokens     int
	Confidence float64
	Latency    time.Duration
	Properties map[string]any
	At         time.Time
}

// Sink receives events. Track must not block the caller.
type Sink interface {
	Track(Event)
}

// Nop discards events.
type Nop struct{}

// Track implements Sink.
func (Nop) Track(Event) {}

// LogSink writes events to a dedicated zap logger from a background goroutine.
type LogSink struct {
	logger  *zap.Logger
	queue   chan Event
	dropped atomic.Int64
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewLogSink starts a sink with the given queue size.
func NewLogSink(logger *zap.Logger, queueSize int) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	s := &LogSink{
		logger: logger.Named("analytics"),
		queue:  make(chan Event, queueSize),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Track enqueues ev, dropping it when the queue is full or the sink closed.
func (s *LogSink) Track(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.queue <- ev:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns the number of discarded events.
func (s *LogSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close flushes queued events and stops the writer.
func (s *LogSink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

func (s *LogSink) run() {
	defer s.wg.Done()
	for ev := range s.queue {
		fields := []zap.Field{
			zap.String("event", ev.Name),
			zap.String("session_id", ev.SessionID),
			zap.Time("at", ev.At),
		}
		if ev.Intent != "" {
			fields = append(fields, zap.String("intent", ev.Intent))
		}
		if ev.Model != "" {
			fields = append(fields, zap.String("model", ev.Model))
		}
		if ev.Tokens > 0 {
			fields = append(fields, zap.Int("tokens", ev.Tokens))
		}
		if ev.Confidence > 0 {
			fields = append(fields, zap.Float64("confidence", ev.Confidence))
		}
		if ev.Latency > 0 {
			fields = append(fields, zap.Duration("latency", ev.Latency))
		}
		if len(ev.Properties) > 0 {
			fields = append(fields, zap.Any("properties", ev.Properties))
		}
		s.logger.Info("analytics event", fields...)
	}
}
