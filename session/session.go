package session

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of one exchange.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Exchange is a single recorded turn in a conversation.
type Exchange struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a bounded, evict-able conversational memory keyed by an opaque
// identifier. History is oldest-first and never exceeds the store's
// MaxHistory.
type Session struct {
	ID           string     `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActivity time.Time  `json:"last_activity"`
	History      []Exchange `json:"history"`
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		LastActivity: now,
	}
}
