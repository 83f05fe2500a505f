package remote

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/loom/pkg/events"
)

// maxFrameSize bounds one NDJSON frame; content arrives as deltas so frames
// stay small, this is purely a guard against a misbehaving server.
const maxFrameSize = 1024 * 1024

var framePrefix = []byte("data: ")

// StreamEvents opens the completion stream for req and decodes it frame by
// frame into typed events. Malformed frames are skipped with a warning; they
// must never corrupt accumulated state. If the connection drops before a
// terminal done/error frame, a terminal error event is synthesized so the
// reducer always observes a terminal event. The channel closes after the
// terminal event.
func (c *Client) StreamEvents(ctx context.Context, req SendRequest) (<-chan events.Event, error) {
	body, err := c.OpenStream(ctx, req)
	if err != nil {
		return nil, err
	}

	meta := events.EventMetadata{
		ChatID:   req.ChatID,
		BranchID: req.BranchID,
		Model:    req.Model,
	}

	ch := make(chan events.Event)
	go func() {
		defer close(ch)
		defer func() {
			_ = body.Close()
		}()

		terminal := decodeFrames(ctx, body, meta, ch)
		if !terminal {
			// Dropped connection surfaces as a terminal error event; the
			// reducer has no timeout of its own.
			emit(ctx, ch, events.NewErrorEvent(meta, errors.New("stream disconnected")))
		}
	}()

	return ch, nil
}

func decodeFrames(ctx context.Context, body io.Reader, meta events.EventMetadata, ch chan<- events.Event) bool {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		line = bytes.TrimPrefix(line, framePrefix)
		if len(line) == 0 {
			continue
		}

		e, err := events.NewEventFromJSON(line)
		if err != nil {
			log.Warn().Err(err).Str("frame", string(line)).Msg("skipping malformed stream frame")
			continue
		}

		if !emit(ctx, ch, withMetadata(e, meta)) {
			return true
		}

		if e.Type() == events.EventTypeDone || e.Type() == events.EventTypeError {
			return true
		}
	}

	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("stream read failed")
	}
	return false
}

// withMetadata fills in correlation metadata the server did not provide.
func withMetadata(e events.Event, meta events.EventMetadata) events.Event {
	type metaSetter interface {
		SetMetadata(events.EventMetadata)
	}
	if s, ok := e.(metaSetter); ok {
		s.SetMetadata(meta)
	}
	return e
}

func emit(ctx context.Context, ch chan<- events.Event, e events.Event) bool {
	select {
	case ch <- e:
		return true
	case <-ctx.Done():
		return false
	}
}
