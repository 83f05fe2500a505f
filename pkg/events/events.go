package events

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

type EventType string

const (
	// Reasoning trace events. The trace accumulates in a transient buffer,
	// never in the message content itself.
	EventTypeThinkingStart EventType = "thinking_start"
	EventTypeThinking      EventType = "thinking"
	EventTypeThinkingEnd   EventType = "thinking_end"

	// EventTypeContent carries one text delta for the pending assistant message.
	EventTypeContent EventType = "content"

	// EventTypeDone finalizes the pending message with its server-side id and
	// optional mood annotations.
	EventTypeDone EventType = "done"

	// EventTypeError terminates the stream; the transport also synthesizes one
	// of these when the connection drops.
	EventTypeError EventType = "error"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// raw frame this event was decoded from, if any
	payload []byte
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

// SetPayload stores the raw JSON frame on the event implementation.
func (e *EventImpl) SetPayload(b []byte) {
	e.payload = b
}

// SetMetadata fills in correlation fields that the wire frame did not carry;
// fields already present on the event are kept.
func (e *EventImpl) SetMetadata(meta EventMetadata) {
	if e.Metadata_.ChatID == "" {
		e.Metadata_.ChatID = meta.ChatID
	}
	if e.Metadata_.BranchID == "" {
		e.Metadata_.BranchID = meta.BranchID
	}
	if e.Metadata_.MessageID == "" {
		e.Metadata_.MessageID = meta.MessageID
	}
	if e.Metadata_.Model == "" {
		e.Metadata_.Model = meta.Model
	}
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

var _ Event = &EventImpl{}

type EventThinkingStart struct {
	EventImpl
}

func NewThinkingStartEvent(metadata EventMetadata) *EventThinkingStart {
	return &EventThinkingStart{
		EventImpl: EventImpl{Type_: EventTypeThinkingStart, Metadata_: metadata},
	}
}

var _ Event = &EventThinkingStart{}

type EventThinking struct {
	EventImpl
	Content string `json:"content"`
}

func NewThinkingEvent(metadata EventMetadata, content string) *EventThinking {
	return &EventThinking{
		EventImpl: EventImpl{Type_: EventTypeThinking, Metadata_: metadata},
		Content:   content,
	}
}

var _ Event = &EventThinking{}

type EventThinkingEnd struct {
	EventImpl
}

func NewThinkingEndEvent(metadata EventMetadata) *EventThinkingEnd {
	return &EventThinkingEnd{
		EventImpl: EventImpl{Type_: EventTypeThinkingEnd, Metadata_: metadata},
	}
}

var _ Event = &EventThinkingEnd{}

type EventContent struct {
	EventImpl
	Content string `json:"content"`
}

func NewContentEvent(metadata EventMetadata, content string) *EventContent {
	return &EventContent{
		EventImpl: EventImpl{Type_: EventTypeContent, Metadata_: metadata},
		Content:   content,
	}
}

var _ Event = &EventContent{}

type EventDone struct {
	EventImpl
	MessageID string   `json:"message_id"`
	Mood      string   `json:"mood,omitempty"`
	MoodValue *float64 `json:"mood_value,omitempty"`
	Energy    *float64 `json:"energy,omitempty"`
}

func NewDoneEvent(metadata EventMetadata, messageID string) *EventDone {
	return &EventDone{
		EventImpl: EventImpl{Type_: EventTypeDone, Metadata_: metadata},
		MessageID: messageID,
	}
}

var _ Event = &EventDone{}

type EventError struct {
	EventImpl
	Message string `json:"message"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl: EventImpl{Type_: EventTypeError, Metadata_: metadata},
		Message:   err.Error(),
	}
}

var _ Event = &EventError{}

// NewEventFromJSON decodes one wire frame into a typed event. Unknown event
// types decode into a bare EventImpl so that the caller can skip them; a
// malformed frame returns an error without corrupting any accumulated state.
func NewEventFromJSON(b []byte) (Event, error) {
	var e *EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, err
	}

	e.payload = b

	switch e.Type_ {
	case EventTypeThinkingStart:
		return toTypedEvent[EventThinkingStart](e)
	case EventTypeThinking:
		return toTypedEvent[EventThinking](e)
	case EventTypeThinkingEnd:
		return toTypedEvent[EventThinkingEnd](e)
	case EventTypeContent:
		return toTypedEvent[EventContent](e)
	case EventTypeDone:
		return toTypedEvent[EventDone](e)
	case EventTypeError:
		return toTypedEvent[EventError](e)
	}

	return e, nil
}

func toTypedEvent[T any](e *EventImpl) (*T, error) {
	var ret *T
	err := json.Unmarshal(e.payload, &ret)
	if err != nil {
		return nil, err
	}
	if setter, ok := any(ret).(interface{ SetPayload([]byte) }); ok {
		setter.SetPayload(e.payload)
	}
	return ret, nil
}

func (e EventThinking) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("content", e.Content)
}

func (e EventContent) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("content", e.Content)
}

func (e EventDone) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("message_id", e.MessageID)
	if e.Mood != "" {
		ev.Str("mood", e.Mood)
	}
}

func (e EventError) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("error", e.Message)
}
