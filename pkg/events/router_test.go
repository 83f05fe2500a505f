package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDeliversPublishedEvents(t *testing.T) {
	router, err := NewEventRouter()
	require.NoError(t, err)
	defer func() {
		_ = router.Close()
	}()

	topic := ChatTopic("c1")

	var mu sync.Mutex
	var received []Event
	router.AddHandler("collect", topic, func(msg *message.Message) error {
		e, err := NewEventFromJSON(msg.Payload)
		if err != nil {
			return err
		}
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = router.Run(ctx)
	}()
	<-router.Running()

	manager := NewPublisherManager()
	manager.SubscribePublisher(topic, router.Publisher)

	meta := EventMetadata{ChatID: "c1"}
	require.NoError(t, manager.Publish(NewContentEvent(meta, "He")))
	require.NoError(t, manager.Publish(NewContentEvent(meta, "llo")))
	require.NoError(t, manager.Publish(NewDoneEvent(meta, "srv-1")))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 3
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	first, ok := received[0].(*EventContent)
	require.True(t, ok)
	assert.Equal(t, "He", first.Content)
	assert.Equal(t, EventTypeDone, received[2].Type())
}

func TestPublisherManagerSequenceNumbers(t *testing.T) {
	manager := NewPublisherManager()
	pub := &capturingPublisher{}
	manager.SubscribePublisher("t", pub)

	meta := EventMetadata{}
	require.NoError(t, manager.Publish(NewContentEvent(meta, "a")))
	require.NoError(t, manager.Publish(NewContentEvent(meta, "b")))

	require.Len(t, pub.messages, 2)
	assert.Equal(t, "0", pub.messages[0].Metadata.Get("sequence_number"))
	assert.Equal(t, "1", pub.messages[1].Metadata.Get("sequence_number"))
}

type capturingPublisher struct {
	messages []*message.Message
}

func (p *capturingPublisher) Publish(_ string, msgs ...*message.Message) error {
	p.messages = append(p.messages, msgs...)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }
