package sync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/loom/pkg/chat"
)

type PersonaOp string

const (
	PersonaOpCreate PersonaOp = "create"
	PersonaOpUpdate PersonaOp = "update"
	PersonaOpDelete PersonaOp = "delete"
)

// PersonaPusher is the slice of RemoteAPI the outbox needs.
type PersonaPusher interface {
	CreatePersona(ctx context.Context, p *chat.Persona) error
	UpdatePersona(ctx context.Context, p *chat.Persona) error
	DeletePersona(ctx context.Context, id string) error
}

type personaTask struct {
	Op        PersonaOp
	Persona   *chat.Persona
	PersonaID string
	Attempts  int
}

const (
	outboxInitialBackoff = time.Second
	outboxMaxBackoff     = time.Minute
)

// Outbox queues persona pushes to the remote service. A failed push is
// re-enqueued with capped exponential backoff instead of being dropped, so
// eventual consistency survives flaky connectivity. The local mutation is
// never rolled back.
type Outbox struct {
	remote PersonaPusher

	mu     sync.Mutex
	queue  []personaTask
	notify chan struct{}
}

func NewOutbox(remote PersonaPusher) *Outbox {
	return &Outbox{
		remote: remote,
		notify: make(chan struct{}, 1),
	}
}

// EnqueueCreate schedules a persona create push.
func (o *Outbox) EnqueueCreate(p *chat.Persona) {
	o.enqueue(personaTask{Op: PersonaOpCreate, Persona: p, PersonaID: p.ID})
}

// EnqueueUpdate schedules a persona update push.
func (o *Outbox) EnqueueUpdate(p *chat.Persona) {
	o.enqueue(personaTask{Op: PersonaOpUpdate, Persona: p, PersonaID: p.ID})
}

// EnqueueDelete schedules a persona delete push.
func (o *Outbox) EnqueueDelete(id string) {
	o.enqueue(personaTask{Op: PersonaOpDelete, PersonaID: id})
}

func (o *Outbox) enqueue(task personaTask) {
	o.mu.Lock()
	o.queue = append(o.queue, task)
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// Len returns the number of queued pushes.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Run processes the queue until the context is cancelled.
func (o *Outbox) Run(ctx context.Context) {
	for {
		processed, backoff := o.ProcessOne(ctx)
		if processed && backoff == 0 {
			continue
		}

		var timer <-chan time.Time
		if backoff > 0 {
			timer = time.After(backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-o.notify:
		case <-timer:
		}
	}
}

// ProcessOne attempts the head of the queue. It returns whether a task was
// attempted and, on failure, how long to back off before the next attempt.
func (o *Outbox) ProcessOne(ctx context.Context) (bool, time.Duration) {
	o.mu.Lock()
	if len(o.queue) == 0 {
		o.mu.Unlock()
		return false, 0
	}
	task := o.queue[0]
	o.queue = o.queue[1:]
	o.mu.Unlock()

	err := o.push(ctx, task)
	if err == nil {
		return true, 0
	}

	task.Attempts++
	log.Warn().Err(err).
		Str("op", string(task.Op)).
		Str("persona_id", task.PersonaID).
		Int("attempts", task.Attempts).
		Msg("persona push failed, re-enqueueing")

	o.mu.Lock()
	o.queue = append([]personaTask{task}, o.queue...)
	o.mu.Unlock()

	return true, backoffFor(task.Attempts)
}

func (o *Outbox) push(ctx context.Context, task personaTask) error {
	switch task.Op {
	case PersonaOpCreate:
		return o.remote.CreatePersona(ctx, task.Persona)
	case PersonaOpUpdate:
		return o.remote.UpdatePersona(ctx, task.Persona)
	case PersonaOpDelete:
		return o.remote.DeletePersona(ctx, task.PersonaID)
	}
	return nil
}

func backoffFor(attempts int) time.Duration {
	d := outboxInitialBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= outboxMaxBackoff {
			return outboxMaxBackoff
		}
	}
	return d
}
