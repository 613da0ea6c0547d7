// Package chat orchestrates chat sessions: rate limiting, sanitizing,
// profile inference, reply synthesis and persistence.
package chat

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/consult/backend/internal/analysis/intent"
	"github.com/zhouzirui/consult/backend/internal/analytics"
	"github.com/zhouzirui/consult/backend/internal/apperr"
	"github.com/zhouzirui/consult/backend/internal/model/chat"
	"github.com/zhouzirui/consult/backend/internal/model/content"
	"github.com/zhouzirui/consult/backend/internal/resilience"
	"github.com/zhouzirui/consult/backend/internal/service/recommend"
	"github.com/zhouzirui/consult/backend/internal/service/response"
	"github.com/zhouzirui/consult/backend/internal/store/session"
)

const (
	defaultMaxMessageLength = 1000
	maxSuggestions          = 3
)

// Sanitizer cleans raw user input and caps it to maxLen characters.
type Sanitizer interface {
	Sanitize(input string, maxLen int) string
}

// SanitizerFunc adapts a function to Sanitizer.
type SanitizerFunc func(input string, maxLen int) string

// Sanitize implements Sanitizer.
func (f SanitizerFunc) Sanitize(input string, maxLen int) string { return f(input, maxLen) }

// Recommender ranks catalog services for a query.
type Recommender interface {
	Recommend(query string, profile chat.Profile) []recommend.Recommendation
}

// Searcher finds related site content.
type Searcher interface {
	Search(ctx context.Context, query string, opts content.SearchOptions) []content.SearchResult
}

// Config tunes the orchestrator.
type Config struct {
	MaxMessageLength int
}

// Deps are the collaborators of Service. Store, Synthesizer, Sanitizer and
// Limiter are required.
type Deps struct {
	Store       session.Store
	Synthesizer *response.Synthesizer
	Sanitizer   Sanitizer
	Limiter     *resilience.RateLimiter
	Recommender Recommender
	Searcher    Searcher
	Analytics   analytics.Sink
	Logger      *zap.Logger
	Monitor     *resilience.Monitor
	Now         func() time.Time
}

// SendResult is the outcome of SendMessage.
type SendResult struct {
	Session *chat.Session `json:"session"`
	Reply   chat.Message  `json:"reply"`
}

// Stats summarizes orchestrator state.
type Stats struct {
	ActiveSessions int `json:"activeSessions"`
	LimitedKeys    int `json:"limitedKeys"`
	BusySessions   int `json:"busySessions"`
}

// Service encapsulates conversation state management.
type Service struct {
	cfg       Config
	store     session.Store
	synth     *response.Synthesizer
	sanitizer Sanitizer
	limiter   *resilience.RateLimiter
	recs      Recommender
	search    Searcher
	events    analytics.Sink
	logger    *zap.Logger
	monitor   *resilience.Monitor
	now       func() time.Time
	locks     *keyedMutex
}

// NewService wires the orchestrator.
func NewService(cfg Config, deps Deps) (*Service, error) {
	if deps.Store == nil || deps.Synthesizer == nil || deps.Sanitizer == nil || deps.Limiter == nil {
		return nil, fmt.Errorf("chat service: store, synthesizer, sanitizer and limiter are required")
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = defaultMaxMessageLength
	}
	if deps.Analytics == nil {
		deps.Analytics = analytics.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Monitor == nil {
		deps.Monitor = resilience.NewMonitor(deps.Logger, nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Service{
		cfg:       cfg,
		store:     deps.Store,
		synth:     deps.Synthesizer,
		sanitizer: deps.Sanitizer,
		limiter:   deps.Limiter,
		recs:      deps.Recommender,
		search:    deps.Searcher,
		events:    deps.Analytics,
		logger:    deps.Logger.Named("chat"),
		monitor:   deps.Monitor,
		now:       deps.Now,
		locks:     newKeyedMutex(),
	}, nil
}

// CreateSession provisions a session seeded with the default profile merged
// with seed, and greets the visitor.
func (s *Service) CreateSession(ctx context.Context, seed *chat.Profile) (*chat.Session, error) {
	profile := chat.DefaultProfile()
	if seed != nil {
		profile = profile.Merge(*seed)
	}

	welcome := s.synth.Welcome(profile)
	if strings.TrimSpace(welcome.Content) == "" {
		welcome.Content = response.FallbackGreeting
		welcome.Tokens = response.EstimateTokens(welcome.Content)
	}

	now := s.now().UTC()
	sess := &chat.Session{
		ID:        uuid.NewString(),
		Messages:  []chat.Message{s.assistantMessage(welcome, profile, nil, now)},
		Profile:   profile,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    chat.StatusActive,
		Metadata:  chat.SessionMetadata{TotalTokens: welcome.Tokens},
	}

	if err := s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("session created", zap.String("session_id", sess.ID))
	s.events.Track(analytics.Event{Name: "session_created", SessionID: sess.ID, At: now})
	return sess.Clone(), nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(ctx context.Context, id string) (*chat.Session, error) {
	return s.store.Get(ctx, id)
}

// SendMessage appends a user message and the synthesized reply. The session
// is staged on a copy and persisted only once both messages are in place.
func (s *Service) SendMessage(ctx context.Context, id, raw, limiterKey string) (*SendResult, error) {
	if limiterKey == "" {
		limiterKey = id
	}
	if !s.limiter.Allow(limiterKey) {
		retry := s.limiter.RetryAfter(limiterKey)
		s.logger.Warn("rate limit exceeded", zap.String("session_id", id), zap.Duration("retry_after", retry))
		return nil, apperr.RateLimit("too many messages, please slow down").
			With("retryAfterSeconds", int(math.Ceil(retry.Seconds())))
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	staged, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if staged.Status == chat.StatusClosed {
		return nil, apperr.Validation("session %s is closed", id).With("sessionId", id)
	}

	text := s.sanitizer.Sanitize(raw, s.cfg.MaxMessageLength)
	if text == "" {
		return nil, apperr.Validation("message is empty after sanitization")
	}

	received := s.now().UTC()
	userTokens := response.EstimateTokens(text)
	staged.Messages = append(staged.Messages, chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleUser,
		Content:   text,
		Timestamp: received,
		Metadata:  chat.MessageMetadata{Tokens: userTokens},
	})
	staged.Profile = staged.Profile.Merge(intent.InferProfile(staged.UserUtterances()))

	stop := s.monitor.Time("chat.reply")
	reply := s.synth.Reply(ctx, staged.Messages, staged.Profile)
	elapsed := stop()

	suggestions := s.suggest(ctx, reply.Intent, text, staged.Profile)
	replied := s.now().UTC()
	assistant := s.assistantMessage(reply, staged.Profile, suggestions, replied)
	staged.Messages = append(staged.Messages, assistant)

	meta := &staged.Metadata
	meta.TotalTokens += userTokens + reply.Tokens
	ms := float64(elapsed) / float64(time.Millisecond)
	meta.AvgResponseTime = (meta.AvgResponseTime*float64(meta.Replies) + ms) / float64(meta.Replies+1)
	meta.Replies++
	staged.UpdatedAt = replied

	if err := s.store.Put(ctx, staged); err != nil {
		return nil, fmt.Errorf("failed to persist session %s: %w", id, err)
	}

	s.events.Track(analytics.Event{
		Name:       "message_replied",
		SessionID:  id,
		Intent:     string(reply.Intent),
		Model:      reply.Model,
		Tokens:     userTokens + reply.Tokens,
		Confidence: reply.Confidence,
		Latency:    elapsed,
		Properties: map[string]any{"suggestions": len(suggestions)},
		At:         replied,
	})

	return &SendResult{Session: staged.Clone(), Reply: assistant}, nil
}

// CloseSession marks the session closed. It stays readable until its TTL
// elapses. Closing twice is a no-op.
func (s *Service) CloseSession(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.Status == chat.StatusClosed {
		return nil
	}

	sess.Status = chat.StatusClosed
	sess.UpdatedAt = s.now().UTC()
	if err := s.store.Put(ctx, sess); err != nil {
		return fmt.Errorf("failed to close session %s: %w", id, err)
	}

	s.events.Track(analytics.Event{Name: "session_closed", SessionID: id, At: sess.UpdatedAt})
	return nil
}

// Recommend scores the catalog for query. A nil profile means defaults.
func (s *Service) Recommend(query string, profile *chat.Profile) []recommend.Recommendation {
	if s.recs == nil {
		return []recommend.Recommendation{}
	}
	p := chat.DefaultProfile()
	if profile != nil {
		p = p.Merge(*profile)
	}
	return s.recs.Recommend(query, p)
}

// Search queries site content. Without a searcher it returns no results.
func (s *Service) Search(ctx context.Context, query string, opts content.SearchOptions) []content.SearchResult {
	if s.search == nil {
		return []content.SearchResult{}
	}
	return s.search.Search(ctx, query, opts)
}

// Stats reports orchestrator counters.
func (s *Service) Stats() Stats {
	return Stats{
		ActiveSessions: s.store.Len(),
		LimitedKeys:    s.limiter.Len(),
		BusySessions:   s.locks.len(),
	}
}

func (s *Service) suggest(ctx context.Context, in intent.Intent, text string, profile chat.Profile) []chat.Suggestion {
	switch in {
	case intent.ServiceInquiry:
		if s.recs == nil {
			return nil
		}
		recs := s.recs.Recommend(text, profile)
		out := make([]chat.Suggestion, 0, min(len(recs), maxSuggestions))
		for _, r := range recs[:min(len(recs), maxSuggestions)] {
			out = append(out, chat.Suggestion{ID: r.ID, Title: r.Title, Kind: "service", Score: float64(r.RelevanceScore)})
		}
		return out
	case intent.Portfolio:
		if s.search == nil {
			return nil
		}
		results := s.search.Search(ctx, text, content.SearchOptions{Limit: maxSuggestions, Type: "case-study"})
		out := make([]chat.Suggestion, 0, len(results))
		for _, r := range results {
			title, _ := r.Metadata["title"].(string)
			out = append(out, chat.Suggestion{ID: r.ID, Title: title, Kind: "case-study", Score: r.Similarity})
		}
		return out
	}
	return nil
}

func (s *Service) assistantMessage(reply response.Reply, profile chat.Profile, suggestions []chat.Suggestion, at time.Time) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleAssistant,
		Content:   reply.Content,
		Timestamp: at,
		Metadata: chat.MessageMetadata{
			Tokens:      reply.Tokens,
			Model:       reply.Model,
			Intent:      string(reply.Intent),
			Context:     contextLabel(profile),
			Confidence:  reply.Confidence,
			Suggestions: suggestions,
		},
	}
}

// contextLabel summarizes the profile facts a reply was conditioned on.
func contextLabel(p chat.Profile) string {
	parts := make([]string, 0, 2)
	if p.Industry != "" {
		parts = append(parts, "industry:"+p.Industry)
	}
	if p.CompanySize != "" {
		parts = append(parts, "size:"+string(p.CompanySize))
	}
	if len(parts) == 0 {
		return "general"
	}
	return strings.Join(parts, ",")
}
