package streaming

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/loom/pkg/chat"
	"github.com/go-go-golems/loom/pkg/events"
)

// Reducer applies an ordered stream of events to exactly one pre-allocated
// placeholder assistant message. Content deltas append in arrival order;
// thinking deltas accumulate in a transient buffer that is only captured onto
// the message at done. An error event replaces the content with a
// user-visible error string but keeps the message in its branch.
type Reducer struct {
	chat      *chat.Chat
	messageID chat.MessageID

	thinking       strings.Builder
	thinkingActive bool
	terminal       bool

	// OnFinish runs once after done or error, before the loading flag has
	// been observed by anyone else. The store uses it to flush persistence
	// and release the stream guard.
	OnFinish func()
}

func NewReducer(c *chat.Chat, messageID chat.MessageID) *Reducer {
	return &Reducer{
		chat:      c,
		messageID: messageID,
	}
}

// Terminal reports whether a done or error event has been applied.
func (r *Reducer) Terminal() bool {
	return r.terminal
}

// Thinking returns the reasoning trace accumulated so far.
func (r *Reducer) Thinking() string {
	return r.thinking.String()
}

// Apply folds one event into the placeholder message. Events of unknown type
// are ignored; events arriving after a terminal event are dropped.
func (r *Reducer) Apply(e events.Event) error {
	if r.terminal {
		log.Debug().
			Str("type", string(e.Type())).
			Str("message_id", r.messageID.String()).
			Msg("dropping event after terminal")
		return nil
	}

	msg, _, ok := r.chat.FindMessage(r.messageID)
	if !ok {
		// The branch holding the placeholder was deleted mid-stream.
		return &chat.NotFoundError{Resource: "message", ID: r.messageID.String()}
	}

	switch ev := e.(type) {
	case *events.EventThinkingStart:
		r.thinkingActive = true
	case *events.EventThinking:
		if r.thinkingActive {
			r.thinking.WriteString(ev.Content)
		}
	case *events.EventThinkingEnd:
		r.thinkingActive = false
	case *events.EventContent:
		msg.Content += ev.Content
	case *events.EventDone:
		r.finalize(msg, ev)
	case *events.EventError:
		r.fail(msg, ev)
	default:
		log.Debug().Str("type", string(e.Type())).Msg("ignoring unknown stream event")
	}

	return nil
}

func (r *Reducer) finalize(msg *chat.Message, ev *events.EventDone) {
	if ev.Mood != "" {
		msg.Mood = ev.Mood
	}
	msg.MoodValue = ev.MoodValue
	msg.Energy = ev.Energy
	if model := ev.Metadata().Model; model != "" {
		msg.Model = model
	}
	if r.thinking.Len() > 0 {
		msg.Reasoning = r.thinking.String()
	}
	msg.Pending = false
	r.finish()

	log.Debug().
		Str("message_id", r.messageID.String()).
		Str("server_message_id", ev.MessageID).
		Int("content_length", len(msg.Content)).
		Msg("stream finalized")
}

func (r *Reducer) fail(msg *chat.Message, ev *events.EventError) {
	msg.Content = "Error: " + ev.Message
	msg.Pending = false
	r.finish()

	log.Warn().
		Str("message_id", r.messageID.String()).
		Str("error", ev.Message).
		Msg("stream failed")
}

func (r *Reducer) finish() {
	r.terminal = true
	r.thinkingActive = false
	r.chat.Loading = false
	if r.OnFinish != nil {
		r.OnFinish()
	}
}
