package sync

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/loom/pkg/chat"
	"github.com/go-go-golems/loom/pkg/persist"
)

type fakeRemote struct {
	chats    []*chat.Chat
	personas []*chat.Persona
	groups   []*chat.Group
	tags     []*chat.Tag
	dreams   []*chat.Dream
	journal  []*chat.JournalEntry

	chatsErr error

	created []string
	updated []string
	deleted []string

	failPushes int
}

func (f *fakeRemote) ListChats(context.Context) ([]*chat.Chat, error) {
	return f.chats, f.chatsErr
}
func (f *fakeRemote) ListPersonas(context.Context) ([]*chat.Persona, error) {
	return f.personas, nil
}
func (f *fakeRemote) ListGroups(context.Context) ([]*chat.Group, error) { return f.groups, nil }
func (f *fakeRemote) ListTags(context.Context) ([]*chat.Tag, error)    { return f.tags, nil }
func (f *fakeRemote) ListDreams(context.Context) ([]*chat.Dream, error) {
	return f.dreams, nil
}
func (f *fakeRemote) ListJournal(context.Context) ([]*chat.JournalEntry, error) {
	return f.journal, nil
}

func (f *fakeRemote) CreatePersona(_ context.Context, p *chat.Persona) error {
	if f.failPushes > 0 {
		f.failPushes--
		return errors.New("connection refused")
	}
	f.created = append(f.created, p.ID)
	return nil
}

func (f *fakeRemote) UpdatePersona(_ context.Context, p *chat.Persona) error {
	f.updated = append(f.updated, p.ID)
	return nil
}

func (f *fakeRemote) DeletePersona(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

var _ RemoteAPI = (*fakeRemote)(nil)

func TestLoadFlushRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := persist.NewMemoryStore()
	s := NewSynchronizer(cache, nil)

	cols := &Collections{
		Chats:    []*chat.Chat{chat.NewChat("one"), chat.NewChat("two")},
		Personas: []*chat.Persona{{ID: "p1", Name: "Sam"}},
		Tags:     []*chat.Tag{{ID: "t1", Name: "work"}},
	}
	require.NoError(t, s.FlushLocal(ctx, cols))

	loaded, err := s.LoadLocal(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Chats, 2)
	assert.Equal(t, cols.Chats[0].ID, loaded.Chats[0].ID)
	require.NoError(t, loaded.Chats[0].Validate())
	require.Len(t, loaded.Personas, 1)
	assert.Equal(t, "Sam", loaded.Personas[0].Name)
	require.Len(t, loaded.Tags, 1)
}

func TestMergeChatsByID(t *testing.T) {
	shared := chat.NewChat("shared")
	sharedRemote := &chat.Chat{ID: shared.ID, Title: "shared but renamed remotely"}
	localOnly := chat.NewChat("local only")
	remoteOnly := chat.NewChat("remote only")

	merged := MergeChatsByID(
		[]*chat.Chat{shared, localOnly},
		[]*chat.Chat{sharedRemote, remoteOnly},
	)

	require.Len(t, merged, 3)
	// The local copy of a shared chat wins; remote-only chats are appended.
	assert.Equal(t, "shared", merged[0].Title)
	assert.Equal(t, "local only", merged[1].Title)
	assert.Equal(t, remoteOnly.ID, merged[2].ID)
}

func TestPullRemoteOverwritesWhenNonEmpty(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{
		personas: []*chat.Persona{{ID: "p-remote", Name: "Remote"}},
		dreams:   []*chat.Dream{{ID: "d1"}},
	}
	s := NewSynchronizer(persist.NewMemoryStore(), remote)

	local := &Collections{
		Personas: []*chat.Persona{{ID: "p-local", Name: "Local"}},
		Groups:   []*chat.Group{{ID: "g-local", Name: "Local group"}},
	}

	merged, err := s.PullRemote(ctx, local)
	require.NoError(t, err)

	// Non-empty remote personas replace local; empty remote groups leave
	// local untouched.
	require.Len(t, merged.Personas, 1)
	assert.Equal(t, "p-remote", merged.Personas[0].ID)
	require.Len(t, merged.Groups, 1)
	assert.Equal(t, "g-local", merged.Groups[0].ID)
	require.Len(t, merged.Dreams, 1)
}

func TestPullRemoteFailureKeepsLocal(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{chatsErr: errors.New("server down")}
	s := NewSynchronizer(persist.NewMemoryStore(), remote)

	local := &Collections{Chats: []*chat.Chat{chat.NewChat("keep me")}}
	got, err := s.PullRemote(ctx, local)
	require.Error(t, err)
	require.Len(t, got.Chats, 1)
	assert.Equal(t, "keep me", got.Chats[0].Title)
}

func TestPullRemoteWithoutRemote(t *testing.T) {
	s := NewSynchronizer(persist.NewMemoryStore(), nil)
	local := &Collections{Chats: []*chat.Chat{chat.NewChat("offline")}}

	got, err := s.PullRemote(context.Background(), local)
	require.NoError(t, err)
	assert.Same(t, local, got)
	assert.Nil(t, s.Outbox())
}

func TestOutboxRetriesFailedPush(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{failPushes: 2}
	o := NewOutbox(remote)

	o.EnqueueCreate(&chat.Persona{ID: "p1", Name: "Sam"})

	// First two attempts fail and re-enqueue with growing backoff.
	processed, backoff := o.ProcessOne(ctx)
	assert.True(t, processed)
	assert.Equal(t, outboxInitialBackoff, backoff)
	assert.Equal(t, 1, o.Len())

	processed, backoff = o.ProcessOne(ctx)
	assert.True(t, processed)
	assert.Equal(t, 2*outboxInitialBackoff, backoff)

	// Third attempt succeeds and drains the queue.
	processed, backoff = o.ProcessOne(ctx)
	assert.True(t, processed)
	assert.Zero(t, backoff)
	assert.Zero(t, o.Len())
	assert.Equal(t, []string{"p1"}, remote.created)
}

func TestOutboxPreservesOrder(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	o := NewOutbox(remote)

	o.EnqueueCreate(&chat.Persona{ID: "p1"})
	o.EnqueueUpdate(&chat.Persona{ID: "p1"})
	o.EnqueueDelete("p2")

	for i := 0; i < 3; i++ {
		processed, backoff := o.ProcessOne(ctx)
		require.True(t, processed)
		require.Zero(t, backoff)
	}

	assert.Equal(t, []string{"p1"}, remote.created)
	assert.Equal(t, []string{"p1"}, remote.updated)
	assert.Equal(t, []string{"p2"}, remote.deleted)
}

func TestBackoffIsCapped(t *testing.T) {
	assert.Equal(t, outboxInitialBackoff, backoffFor(1))
	assert.Equal(t, 2*outboxInitialBackoff, backoffFor(2))
	assert.Equal(t, outboxMaxBackoff, backoffFor(20))
}
