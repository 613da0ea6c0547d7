package chat

import "time"

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// SessionMetadata aggregates usage counters for a session.
type SessionMetadata struct {
	TotalTokens     int     `json:"totalTokens"`
	AvgResponseTime float64 `json:"avgResponseTimeMs"`
	Replies         int     `json:"replies"`
}

// Session captures a transient anonymous conversation.
type Session struct {
	ID        string          `json:"id"`
	Messages  []Message       `json:"messages"`
	Profile   Profile         `json:"profile"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Status    Status          `json:"status"`
	Metadata  SessionMetadata `json:"metadata"`
}

// Clone returns a deep copy so callers can stage changes without exposing
// half-written state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	for i := range cp.Messages {
		if sugg := cp.Messages[i].Metadata.Suggestions; sugg != nil {
			cp.Messages[i].Metadata.Suggestions = append([]Suggestion(nil), sugg...)
		}
	}
	cp.Profile = s.Profile.Clone()
	return &cp
}

// UserUtterances returns the content of every user message in order.
func (s *Session) UserUtterances() []string {
	out := make([]string, 0, len(s.Messages))
	for _, msg := range s.Messages {
		if msg.Role == RoleUser {
			out = append(out, msg.Content)
		}
	}
	return out
}
