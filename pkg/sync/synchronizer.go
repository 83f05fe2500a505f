package sync

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/loom/pkg/chat"
	"github.com/go-go-golems/loom/pkg/persist"
)

// RemoteAPI is the slice of the remote client the synchronizer depends on.
type RemoteAPI interface {
	ListChats(ctx context.Context) ([]*chat.Chat, error)
	ListPersonas(ctx context.Context) ([]*chat.Persona, error)
	ListGroups(ctx context.Context) ([]*chat.Group, error)
	ListTags(ctx context.Context) ([]*chat.Tag, error)
	ListDreams(ctx context.Context) ([]*chat.Dream, error)
	ListJournal(ctx context.Context) ([]*chat.JournalEntry, error)
	CreatePersona(ctx context.Context, p *chat.Persona) error
	UpdatePersona(ctx context.Context, p *chat.Persona) error
	DeletePersona(ctx context.Context, id string) error
}

// Collections is the unit of state the synchronizer moves between memory, the
// local cache, and the remote service. Dreams and journal entries are pulled
// from remote but never cached locally.
type Collections struct {
	Chats    []*chat.Chat
	Personas []*chat.Persona
	Groups   []*chat.Group
	Tags     []*chat.Tag
	Dreams   []*chat.Dream
	Journal  []*chat.JournalEntry
}

// Synchronizer mirrors in-memory state to the local durable cache and
// reconciles with the remote service on a best-effort basis. The local cache
// is the authority for reload; remote failures are logged, never fatal.
type Synchronizer struct {
	cache  persist.CacheStore
	remote RemoteAPI
	outbox *Outbox
}

func NewSynchronizer(cache persist.CacheStore, remote RemoteAPI) *Synchronizer {
	ret := &Synchronizer{
		cache:  cache,
		remote: remote,
	}
	if remote != nil {
		ret.outbox = NewOutbox(remote)
	}
	return ret
}

// Outbox exposes the persona push queue, nil when no remote is configured.
func (s *Synchronizer) Outbox() *Outbox {
	return s.outbox
}

// LoadLocal reads all cached namespaces. Called once at startup, before any
// remote pull.
func (s *Synchronizer) LoadLocal(ctx context.Context) (*Collections, error) {
	cols := &Collections{}
	if _, err := s.cache.Load(ctx, persist.NamespaceChats, &cols.Chats); err != nil {
		return nil, err
	}
	if _, err := s.cache.Load(ctx, persist.NamespacePersonas, &cols.Personas); err != nil {
		return nil, err
	}
	if _, err := s.cache.Load(ctx, persist.NamespaceGroups, &cols.Groups); err != nil {
		return nil, err
	}
	if _, err := s.cache.Load(ctx, persist.NamespaceTags, &cols.Tags); err != nil {
		return nil, err
	}
	return cols, nil
}

// FlushLocal rewrites the cached namespaces from the given state. It runs
// synchronously after every mutation; a write failure is logged and reported
// but in-memory state stays authoritative for the session.
func (s *Synchronizer) FlushLocal(ctx context.Context, cols *Collections) error {
	var firstErr error
	save := func(ns persist.Namespace, v interface{}) {
		if err := s.cache.Save(ctx, ns, v); err != nil {
			log.Error().Err(err).Str("namespace", string(ns)).Msg("cache write failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	save(persist.NamespaceChats, cols.Chats)
	save(persist.NamespacePersonas, cols.Personas)
	save(persist.NamespaceGroups, cols.Groups)
	save(persist.NamespaceTags, cols.Tags)
	return firstErr
}

// PullRemote fetches the remote collections and reconciles them with local
// state. Personas, groups, tags, dreams and journal entries overwrite local
// state when the remote returns non-empty data. Chats are merged by id union:
// remote chats absent locally are appended, local-only chats are retained,
// and nothing is pushed back. The asymmetry is deliberate (local first).
func (s *Synchronizer) PullRemote(ctx context.Context, local *Collections) (*Collections, error) {
	if s.remote == nil {
		return local, nil
	}

	pulled := &Collections{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		chats, err := s.remote.ListChats(gctx)
		if err != nil {
			return err
		}
		pulled.Chats = chats
		return nil
	})
	g.Go(func() error {
		personas, err := s.remote.ListPersonas(gctx)
		if err != nil {
			return err
		}
		pulled.Personas = personas
		return nil
	})
	g.Go(func() error {
		groups, err := s.remote.ListGroups(gctx)
		if err != nil {
			return err
		}
		pulled.Groups = groups
		return nil
	})
	g.Go(func() error {
		tags, err := s.remote.ListTags(gctx)
		if err != nil {
			return err
		}
		pulled.Tags = tags
		return nil
	})
	g.Go(func() error {
		dreams, err := s.remote.ListDreams(gctx)
		if err != nil {
			return err
		}
		pulled.Dreams = dreams
		return nil
	})
	g.Go(func() error {
		journal, err := s.remote.ListJournal(gctx)
		if err != nil {
			return err
		}
		pulled.Journal = journal
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("remote pull failed, keeping local state")
		return local, err
	}

	merged := &Collections{
		Chats:    MergeChatsByID(local.Chats, pulled.Chats),
		Personas: local.Personas,
		Groups:   local.Groups,
		Tags:     local.Tags,
		Dreams:   pulled.Dreams,
		Journal:  pulled.Journal,
	}
	if len(pulled.Personas) > 0 {
		merged.Personas = pulled.Personas
	}
	if len(pulled.Groups) > 0 {
		merged.Groups = pulled.Groups
	}
	if len(pulled.Tags) > 0 {
		merged.Tags = pulled.Tags
	}

	return merged, nil
}

// MergeChatsByID unions two chat lists by id. Local chats keep their order
// and content; remote chats not present locally are appended.
func MergeChatsByID(local []*chat.Chat, pulled []*chat.Chat) []*chat.Chat {
	seen := make(map[chat.ChatID]bool, len(local))
	out := make([]*chat.Chat, 0, len(local)+len(pulled))
	for _, c := range local {
		seen[c.ID] = true
		out = append(out, c)
	}
	for _, c := range pulled {
		if seen[c.ID] {
			continue
		}
		out = append(out, c)
	}
	return out
}
