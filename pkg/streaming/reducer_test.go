package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/loom/pkg/chat"
	"github.com/go-go-golems/loom/pkg/events"
)

func newStreamingChat(t *testing.T) (*chat.Chat, *chat.Message) {
	t.Helper()
	c := chat.NewChat("streaming")
	placeholder := chat.NewMessage(chat.RoleAssistant, "", chat.WithPending())
	c.RootBranch().Append(
		chat.NewMessage(chat.RoleUser, "Hi"),
		placeholder,
	)
	c.Loading = true
	return c, placeholder
}

func TestReducerContentOrdering(t *testing.T) {
	c, placeholder := newStreamingChat(t)
	r := NewReducer(c, placeholder.ID)
	meta := events.EventMetadata{}

	require.NoError(t, r.Apply(events.NewContentEvent(meta, "He")))
	require.NoError(t, r.Apply(events.NewContentEvent(meta, "llo")))
	require.NoError(t, r.Apply(events.NewDoneEvent(meta, "srv-1")))

	assert.Equal(t, "Hello", placeholder.Content)
	assert.False(t, placeholder.Pending)
	assert.False(t, c.Loading)
	assert.True(t, r.Terminal())

	// Order is significant: the reversed sequence yields a different string.
	c2, p2 := newStreamingChat(t)
	r2 := NewReducer(c2, p2.ID)
	require.NoError(t, r2.Apply(events.NewContentEvent(meta, "llo")))
	require.NoError(t, r2.Apply(events.NewContentEvent(meta, "He")))
	require.NoError(t, r2.Apply(events.NewDoneEvent(meta, "srv-2")))
	assert.Equal(t, "lloHe", p2.Content)
}

func TestReducerDoneCapturesThinkingAndMood(t *testing.T) {
	c, placeholder := newStreamingChat(t)
	r := NewReducer(c, placeholder.ID)
	meta := events.EventMetadata{Model: "loom-large"}

	require.NoError(t, r.Apply(events.NewThinkingStartEvent(meta)))
	require.NoError(t, r.Apply(events.NewThinkingEvent(meta, "let me ")))
	require.NoError(t, r.Apply(events.NewThinkingEvent(meta, "think")))
	require.NoError(t, r.Apply(events.NewThinkingEndEvent(meta)))
	require.NoError(t, r.Apply(events.NewContentEvent(meta, "sure")))

	// Thinking stays off the message until done.
	assert.Equal(t, "sure", placeholder.Content)
	assert.Empty(t, placeholder.Reasoning)

	mv := 0.8
	en := 0.5
	done := events.NewDoneEvent(meta, "srv-1")
	done.Mood = "happy"
	done.MoodValue = &mv
	done.Energy = &en
	require.NoError(t, r.Apply(done))

	assert.Equal(t, "sure", placeholder.Content)
	assert.Equal(t, "let me think", placeholder.Reasoning)
	assert.Equal(t, "happy", placeholder.Mood)
	require.NotNil(t, placeholder.MoodValue)
	assert.Equal(t, 0.8, *placeholder.MoodValue)
	require.NotNil(t, placeholder.Energy)
	assert.Equal(t, 0.5, *placeholder.Energy)
	assert.Equal(t, "loom-large", placeholder.Model)
	assert.False(t, placeholder.Pending)
}

func TestReducerThinkingOutsideBlockIgnored(t *testing.T) {
	c, placeholder := newStreamingChat(t)
	r := NewReducer(c, placeholder.ID)
	meta := events.EventMetadata{}

	// No thinking_start yet, so the delta is dropped.
	require.NoError(t, r.Apply(events.NewThinkingEvent(meta, "stray")))
	require.NoError(t, r.Apply(events.NewDoneEvent(meta, "srv-1")))
	assert.Empty(t, placeholder.Reasoning)
}

func TestReducerErrorPreservesMessage(t *testing.T) {
	c, placeholder := newStreamingChat(t)
	r := NewReducer(c, placeholder.ID)
	meta := events.EventMetadata{}

	require.NoError(t, r.Apply(events.NewContentEvent(meta, "partial ans")))
	require.NoError(t, r.Apply(events.NewErrorEvent(meta, assert.AnError)))

	msg, _, ok := c.FindMessage(placeholder.ID)
	require.True(t, ok, "error must not remove the message from its branch")
	assert.Equal(t, "Error: "+assert.AnError.Error(), msg.Content)
	assert.False(t, msg.Pending)
	assert.False(t, c.Loading)
	assert.True(t, r.Terminal())
}

func TestReducerDropsEventsAfterTerminal(t *testing.T) {
	c, placeholder := newStreamingChat(t)
	r := NewReducer(c, placeholder.ID)
	meta := events.EventMetadata{}

	require.NoError(t, r.Apply(events.NewContentEvent(meta, "done")))
	require.NoError(t, r.Apply(events.NewDoneEvent(meta, "srv-1")))
	require.NoError(t, r.Apply(events.NewContentEvent(meta, " late")))
	require.NoError(t, r.Apply(events.NewErrorEvent(meta, assert.AnError)))

	assert.Equal(t, "done", placeholder.Content)
}

func TestReducerUnknownEventTolerated(t *testing.T) {
	c, placeholder := newStreamingChat(t)
	r := NewReducer(c, placeholder.ID)
	meta := events.EventMetadata{}

	unknown, err := events.NewEventFromJSON([]byte(`{"type":"heartbeat"}`))
	require.NoError(t, err)
	require.NoError(t, r.Apply(unknown))
	require.NoError(t, r.Apply(events.NewContentEvent(meta, "ok")))
	require.NoError(t, r.Apply(events.NewDoneEvent(meta, "srv-1")))

	assert.Equal(t, "ok", placeholder.Content)
}

func TestReducerOnFinishRunsOnce(t *testing.T) {
	c, placeholder := newStreamingChat(t)
	r := NewReducer(c, placeholder.ID)
	meta := events.EventMetadata{}

	calls := 0
	r.OnFinish = func() { calls++ }

	require.NoError(t, r.Apply(events.NewDoneEvent(meta, "srv-1")))
	require.NoError(t, r.Apply(events.NewDoneEvent(meta, "srv-1")))
	assert.Equal(t, 1, calls)
}

func TestReducerMissingPlaceholder(t *testing.T) {
	c, placeholder := newStreamingChat(t)
	r := NewReducer(c, placeholder.ID)

	// Simulate the placeholder's branch being deleted mid-stream.
	c.Branches = []*chat.Branch{chat.NewRootBranch()}

	err := r.Apply(events.NewContentEvent(events.EventMetadata{}, "late"))
	assert.ErrorIs(t, err, chat.ErrMessageNotFound)
}
