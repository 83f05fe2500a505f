package events

import "github.com/rs/zerolog"

// EventMetadata correlates a streaming event with the chat, branch and
// placeholder message it belongs to. Events are applied to the message by id
// rather than by branch position, so late events for a deselected branch
// still land on the right message.
type EventMetadata struct {
	ChatID    string `json:"chat_id,omitempty"`
	BranchID  string `json:"branch_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Model     string `json:"model,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	if em.ChatID != "" {
		e.Str("chat_id", em.ChatID)
	}
	if em.BranchID != "" {
		e.Str("branch_id", em.BranchID)
	}
	if em.MessageID != "" {
		e.Str("message_id", em.MessageID)
	}
	if em.Model != "" {
		e.Str("model", em.Model)
	}
}
