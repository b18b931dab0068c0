package memory

import (
	"fmt"
	"time"
)

// Role tags who authored a log entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation log.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"` // nil when timestamps are disabled
}

// Validate checks that the role is one the log accepts.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
	}
}

func cloneMessages(ms []Message) []Message {
	out := make([]Message, len(ms))
	for i, m := range ms {
		if m.Timestamp != nil {
			ts := *m.Timestamp
			m.Timestamp = &ts
		}
		out[i] = m
	}
	return out
}
