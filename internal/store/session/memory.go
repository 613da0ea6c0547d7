// Package session holds live chat sessions.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/consult/backend/internal/apperr"
	"github.com/zhouzirui/consult/backend/internal/model/chat"
	"github.com/zhouzirui/consult/backend/internal/resilience"
)

// Store persists sessions with a sliding TTL.
type Store interface {
	// Get returns a copy of the session or a NotFound error when it is
	// unknown or expired.
	Get(ctx context.Context, id string) (*chat.Session, error)
	// Put stores a copy of s and restarts its TTL.
	Put(ctx context.Context, s *chat.Session) error
	Delete(ctx context.Context, id string) error
	Len() int
}

// MemoryStore keeps sessions in process memory. Sessions do not survive a
// restart.
type MemoryStore struct {
	cache  *resilience.Cache[string, *chat.Session]
	ttl    time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   <-chan struct{}
}

// NewMemoryStore creates a store whose sessions expire ttl after their last
// write.
func NewMemoryStore(ttl time.Duration, logger *zap.Logger) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		cache:  resilience.NewCache[string, *chat.Session](ttl),
		ttl:    ttl,
		logger: logger.Named("session-store"),
	}
}

// SetClock replaces the time source, for tests.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.cache.SetClock(now)
}

// TTL returns the sliding expiry.
func (m *MemoryStore) TTL() time.Duration {
	return m.ttl
}

// Get implements Store. Expired sessions are evicted on read.
func (m *MemoryStore) Get(_ context.Context, id string) (*chat.Session, error) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, apperr.NotFound("session %s not found", id).With("sessionId", id)
	}
	return s.Clone(), nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, s *chat.Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session store: session id is required")
	}
	m.cache.Set(s.ID, s.Clone())
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}

// Len implements Store. Expired sessions are purged first.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

// Sweep evicts expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	return m.cache.Purge()
}

// Start launches the periodic sweep. Calling Start twice is a no-op.
func (m *MemoryStore) Start(ctx context.Context, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = resilience.StartSweeper(ctx, "sessions", interval, m.logger, m.Sweep)
}

// Close stops the sweep and waits for it to exit.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
