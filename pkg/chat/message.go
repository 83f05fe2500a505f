package chat

import (
	"time"

	"github.com/rs/zerolog"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is a single entry in a branch history. It is immutable once
// finalized; only the in-flight assistant placeholder grows its Content, and
// mood/reasoning are set exactly once when the stream completes.
type Message struct {
	ID        MessageID `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Time      time.Time `json:"time"`
	PersonaID string    `json:"personaID,omitempty"`
	Model     string    `json:"model,omitempty"`
	Mood      string    `json:"mood,omitempty"`
	MoodValue *float64  `json:"moodValue,omitempty"`
	Energy    *float64  `json:"energy,omitempty"`
	Reasoning string    `json:"reasoning,omitempty"`
	Pending   bool      `json:"pending,omitempty"`
}

type MessageOption func(*Message)

func WithMessageID(id MessageID) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

func WithTime(t time.Time) MessageOption {
	return func(m *Message) {
		m.Time = t
	}
}

func WithPersonaID(personaID string) MessageOption {
	return func(m *Message) {
		m.PersonaID = personaID
	}
}

func WithModel(model string) MessageOption {
	return func(m *Message) {
		m.Model = model
	}
}

func WithPending() MessageOption {
	return func(m *Message) {
		m.Pending = true
	}
}

func NewMessage(role Role, content string, options ...MessageOption) *Message {
	ret := &Message{
		ID:      NewMessageID(),
		Role:    role,
		Content: content,
		Time:    time.Now(),
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func (m *Message) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("id", m.ID.String()).
		Str("role", string(m.Role)).
		Int("content_length", len(m.Content)).
		Bool("pending", m.Pending)
	if m.Mood != "" {
		ev.Str("mood", m.Mood)
	}
}
