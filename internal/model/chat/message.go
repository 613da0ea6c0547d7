package chat

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageMetadata carries synthesis details for a single turn.
type MessageMetadata struct {
	Tokens      int          `json:"tokens"`
	Model       string       `json:"model,omitempty"`
	Intent      string       `json:"intent,omitempty"`
	Context     string       `json:"context,omitempty"`
	Confidence  float64      `json:"confidence,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// Suggestion is a follow-up item attached to an assistant reply, such as a
// recommended service or a related case study.
type Suggestion struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Kind  string  `json:"kind"`
	Score float64 `json:"score"`
}

// Message is one immutable turn in a conversation.
type Message struct {
	ID        string          `json:"id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  MessageMetadata `json:"metadata"`
}
