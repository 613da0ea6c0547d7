package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

// Monitor times labelled operations, logs their duration and records them in
// a Prometheus histogram. It also counts degradation signals.
type Monitor struct {
	mu        sync.Mutex
	starts    map[string]time.Time
	logger    *zap.Logger
	slow      time.Duration
	durations *prometheus.HistogramVec
	degraded  *prometheus.CounterVec
}

// NewMonitor registers its collectors on reg. A nil reg keeps the collectors
// unregistered, which is what tests want.
func NewMonitor(logger *zap.Logger, reg prometheus.Registerer) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	return &Monitor{
		starts: make(map[string]time.Time),
		logger: logger,
		slow:   2 * time.Second,
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "consult",
			Name:      "operation_duration_seconds",
			Help:      "Duration of timed operations by label.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"label"}),
		degraded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consult",
			Name:      "degradation_total",
			Help:      "Operations that continued with reduced fidelity.",
		}, []string{"component", "operation"}),
	}
}

// Start records the start time for label.
func (m *Monitor) Start(label string) {
	m.mu.Lock()
	m.starts[label] = time.Now()
	m.mu.Unlock()
}

// Stop ends the timer for label, logs and records the elapsed time. Stopping
// an unknown label returns zero.
func (m *Monitor) Stop(label string) time.Duration {
	m.mu.Lock()
	start, ok := m.starts[label]
	delete(m.starts, label)
	m.mu.Unlock()
	if !ok {
		return 0
	}
	elapsed := time.Since(start)
	m.observe(label, elapsed)
	return elapsed
}

// Time starts an independent timer and returns the function that stops it.
// Unlike Start/Stop it is safe for overlapping calls with the same label.
func (m *Monitor) Time(label string) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		elapsed := time.Since(start)
		m.observe(label, elapsed)
		return elapsed
	}
}

// Degraded records that component served op with reduced fidelity.
func (m *Monitor) Degraded(component, op string, fields ...zap.Field) {
	m.degraded.WithLabelValues(component, op).Inc()
	m.logger.Warn("operation degraded",
		append([]zap.Field{zap.Bool("degraded", true), zap.String("component", component), zap.String("operation", op)}, fields...)...)
}

// DegradedCount returns the number of degradation signals for component/op.
func (m *Monitor) DegradedCount(component, op string) float64 {
	return counterValue(m.degraded.WithLabelValues(component, op))
}

func (m *Monitor) observe(label string, elapsed time.Duration) {
	m.durations.WithLabelValues(label).Observe(elapsed.Seconds())
	if elapsed > m.slow {
		m.logger.Warn("slow operation", zap.String("label", label), zap.Duration("elapsed", elapsed))
		return
	}
	m.logger.Debug("operation completed", zap.String("label", label), zap.Duration("elapsed", elapsed))
}

// Track times fn under label and returns its result untouched.
func Track[T any](ctx context.Context, m *Monitor, label string, fn func(ctx context.Context) (T, error)) (T, error) {
	if m == nil {
		return fn(ctx)
	}
	stop := m.Time(label)
	defer stop()
	return fn(ctx)
}

func counterValue(c prometheus.Counter) float64 {
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		return 0
	}
	return metric.GetCounter().GetValue()
}
