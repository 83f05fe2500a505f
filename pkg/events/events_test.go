package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventFromJSONContent(t *testing.T) {
	frame := []byte(`{"type":"content","content":"Hello","meta":{"chat_id":"c1"}}`)
	e, err := NewEventFromJSON(frame)
	require.NoError(t, err)

	content, ok := e.(*EventContent)
	require.True(t, ok)
	assert.Equal(t, EventTypeContent, content.Type())
	assert.Equal(t, "Hello", content.Content)
	assert.Equal(t, "c1", content.Metadata().ChatID)
	assert.Equal(t, frame, content.Payload())
}

func TestNewEventFromJSONDone(t *testing.T) {
	e, err := NewEventFromJSON([]byte(`{"type":"done","message_id":"srv-1","mood":"happy","mood_value":0.8,"energy":0.5}`))
	require.NoError(t, err)

	done, ok := e.(*EventDone)
	require.True(t, ok)
	assert.Equal(t, "srv-1", done.MessageID)
	assert.Equal(t, "happy", done.Mood)
	require.NotNil(t, done.MoodValue)
	assert.Equal(t, 0.8, *done.MoodValue)
	require.NotNil(t, done.Energy)
	assert.Equal(t, 0.5, *done.Energy)
}

func TestNewEventFromJSONError(t *testing.T) {
	e, err := NewEventFromJSON([]byte(`{"type":"error","message":"model overloaded"}`))
	require.NoError(t, err)

	errEv, ok := e.(*EventError)
	require.True(t, ok)
	assert.Equal(t, "model overloaded", errEv.Message)
}

func TestNewEventFromJSONUnknownType(t *testing.T) {
	e, err := NewEventFromJSON([]byte(`{"type":"heartbeat"}`))
	require.NoError(t, err)

	// Unknown types decode into a bare event that the reducer ignores.
	assert.Equal(t, EventType("heartbeat"), e.Type())
	_, isContent := e.(*EventContent)
	assert.False(t, isContent)
}

func TestNewEventFromJSONMalformed(t *testing.T) {
	_, err := NewEventFromJSON([]byte(`{"type":"content","content":`))
	assert.Error(t, err)
}

func TestSetMetadataKeepsExistingFields(t *testing.T) {
	e, err := NewEventFromJSON([]byte(`{"type":"content","content":"x","meta":{"chat_id":"from-wire"}}`))
	require.NoError(t, err)

	content := e.(*EventContent)
	content.SetMetadata(EventMetadata{ChatID: "local", BranchID: "b1", Model: "m1"})

	assert.Equal(t, "from-wire", content.Metadata().ChatID)
	assert.Equal(t, "b1", content.Metadata().BranchID)
	assert.Equal(t, "m1", content.Metadata().Model)
}
