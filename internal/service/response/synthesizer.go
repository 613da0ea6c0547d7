// Package response turns a classified user message into an assistant reply.
package response

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/zhouzirui/consult/backend/internal/analysis/intent"
	"github.com/zhouzirui/consult/backend/internal/apperr"
	"github.com/zhouzirui/consult/backend/internal/model/chat"
	"github.com/zhouzirui/consult/backend/internal/resilience"
)

// TemplateModel tags replies produced from canned templates.
const TemplateModel = "template"

// Completer produces free-form replies from an external model.
type Completer interface {
	Complete(ctx context.Context, history []chat.Message, profile chat.Profile, intent string) (string, error)
	Model() string
}

// Config controls whether and how the completer is used.
type Config struct {
	CompletionEnabled bool
	Timeout           time.Duration
	Retry             resilience.RetryConfig
}

// Reply is a synthesized assistant message body with its metadata.
type Reply struct {
	Content    string
	Intent     intent.Intent
	Confidence float64
	Model      string
	Tokens     int
}

// Synthesizer composes replies, preferring the completer when enabled and
// falling back to templates on any completer failure.
type Synthesizer struct {
	completer Completer
	enabled   bool
	timeout   time.Duration
	retry     resilience.RetryConfig
	logger    *zap.Logger
	monitor   *resilience.Monitor
}

// NewSynthesizer creates a Synthesizer. completer may be nil.
func NewSynthesizer(cfg Config, completer Completer, logger *zap.Logger, monitor *resilience.Monitor) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Synthesizer{
		completer: completer,
		enabled:   cfg.CompletionEnabled && completer != nil,
		timeout:   timeout,
		retry:     cfg.Retry,
		logger:    logger.Named("response"),
		monitor:   monitor,
	}
}

// CompletionEnabled reports whether replies may come from the completer.
func (s *Synthesizer) CompletionEnabled() bool {
	return s.enabled
}

// Welcome returns the first assistant message of a session.
func (s *Synthesizer) Welcome(profile chat.Profile) Reply {
	text := welcomeText(profile)
	if text == "" {
		text = FallbackGreeting
	}
	return Reply{
		Content:    text,
		Intent:     intent.Greeting,
		Confidence: intent.PatternConfidence,
		Model:      TemplateModel,
		Tokens:     EstimateTokens(text),
	}
}

// Reply answers the last user message in history. It never fails.
func (s *Synthesizer) Reply(ctx context.Context, history []chat.Message, profile chat.Profile) Reply {
	var last string
	if n := len(history); n > 0 {
		last = history[n-1].Content
	}
	match := intent.Classify(last)

	if s.enabled {
		text, err := s.complete(ctx, history, profile, match.Intent)
		if err == nil {
			return Reply{
				Content:    text,
				Intent:     match.Intent,
				Confidence: match.Confidence,
				Model:      s.completer.Model(),
				Tokens:     EstimateTokens(text),
			}
		}
		kind := zap.String("kind", string(apperr.Classify(err).Kind))
		if s.monitor != nil {
			s.monitor.Degraded("response", "complete", kind, zap.Error(err))
		} else {
			s.logger.Warn("completion failed, using template", kind, zap.Error(err))
		}
	}

	text := Compose(match.Intent, profile)
	return Reply{
		Content:    text,
		Intent:     match.Intent,
		Confidence: match.Confidence,
		Model:      TemplateModel,
		Tokens:     EstimateTokens(text),
	}
}

func (s *Synthesizer) complete(ctx context.Context, history []chat.Message, profile chat.Profile, in intent.Intent) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return resilience.Track(ctx, s.monitor, "response.complete", func(ctx context.Context) (string, error) {
		return resilience.Retry(ctx, s.retry, func(ctx context.Context) (string, error) {
			return s.completer.Complete(ctx, history, profile, string(in))
		})
	})
}

// Compose renders the canned reply for in.
func Compose(in intent.Intent, profile chat.Profile) string {
	composer, ok := composers[in]
	if !ok {
		composer = composers[intent.General]
	}
	return composer(profile)
}

// EstimateTokens approximates token usage as one token per four characters.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
