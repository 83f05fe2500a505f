package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/loom/pkg/chat"
	"github.com/go-go-golems/loom/pkg/events"
	"github.com/go-go-golems/loom/pkg/persist"
	"github.com/go-go-golems/loom/pkg/remote"
	"github.com/go-go-golems/loom/pkg/streaming"
	loomsync "github.com/go-go-golems/loom/pkg/sync"
)

// StoreImpl owns the chat collection. A single mutex serializes all mutation,
// matching the cooperative single-writer model: stream events and caller
// operations interleave but never mutate concurrently.
type StoreImpl struct {
	mu   sync.Mutex
	cols *loomsync.Collections

	cache        persist.CacheStore
	synchronizer *loomsync.Synchronizer
	transport    StreamTransport
	remoteAPI    loomsync.RemoteAPI
	publisher    *events.PublisherManager
	guard        *streaming.Guard
}

var _ Store = (*StoreImpl)(nil)

type StoreOption func(*StoreImpl)

// WithCache sets the local durable cache. Defaults to an in-memory store.
func WithCache(cache persist.CacheStore) StoreOption {
	return func(s *StoreImpl) {
		s.cache = cache
	}
}

// WithRemote wires a remote client as both the sync target and the stream
// transport.
func WithRemote(client *remote.Client) StoreOption {
	return func(s *StoreImpl) {
		s.remoteAPI = client
		s.transport = client
	}
}

// WithTransport overrides the stream transport, used by tests.
func WithTransport(transport StreamTransport) StoreOption {
	return func(s *StoreImpl) {
		s.transport = transport
	}
}

// WithRemoteAPI overrides the sync target, used by tests.
func WithRemoteAPI(api loomsync.RemoteAPI) StoreOption {
	return func(s *StoreImpl) {
		s.remoteAPI = api
	}
}

// WithPublisher republishes every stream event to the given manager so UI
// collaborators can subscribe per chat topic.
func WithPublisher(publisher *events.PublisherManager) StoreOption {
	return func(s *StoreImpl) {
		s.publisher = publisher
	}
}

func NewStore(options ...StoreOption) *StoreImpl {
	ret := &StoreImpl{
		cols:  &loomsync.Collections{},
		guard: streaming.NewGuard(),
	}

	for _, option := range options {
		option(ret)
	}

	if ret.cache == nil {
		ret.cache = persist.NewMemoryStore()
	}
	ret.synchronizer = loomsync.NewSynchronizer(ret.cache, ret.remoteAPI)

	return ret
}

// Initialize loads the local cache, then reconciles with the remote service
// and starts the outbox worker. A failed remote pull leaves local state
// authoritative.
func (s *StoreImpl) Initialize(ctx context.Context) error {
	cols, err := s.synchronizer.LoadLocal(ctx)
	if err != nil {
		return err
	}

	merged, err := s.synchronizer.PullRemote(ctx, cols)
	if err != nil {
		log.Warn().Err(err).Msg("initial remote pull failed, continuing with local state")
		merged = cols
	}

	s.mu.Lock()
	s.cols = merged
	s.mu.Unlock()

	if outbox := s.synchronizer.Outbox(); outbox != nil {
		go outbox.Run(ctx)
	}

	return s.flush(ctx)
}

// flush serializes the full collection state to the local cache. The
// caller does not need to hold the mutex; a deep snapshot is taken here.
// The marshal in FlushLocal runs with the mutex released, so the snapshot
// must not share mutable objects with live state: a stream goroutine may be
// appending to a placeholder message the whole time.
func (s *StoreImpl) flush(ctx context.Context) error {
	s.mu.Lock()
	cols := &loomsync.Collections{
		Chats:    make([]*chat.Chat, len(s.cols.Chats)),
		Personas: make([]*chat.Persona, len(s.cols.Personas)),
		Groups:   append([]*chat.Group(nil), s.cols.Groups...),
		Tags:     append([]*chat.Tag(nil), s.cols.Tags...),
	}
	for i, c := range s.cols.Chats {
		cols.Chats[i] = c.Clone()
	}
	for i, p := range s.cols.Personas {
		copied := *p
		cols.Personas[i] = &copied
	}
	s.mu.Unlock()

	return s.synchronizer.FlushLocal(ctx, cols)
}

func (s *StoreImpl) findChat(id chat.ChatID) (*chat.Chat, bool) {
	for _, c := range s.cols.Chats {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

func (s *StoreImpl) CreateChat(ctx context.Context, title string, options ...chat.ChatOption) (*chat.Chat, error) {
	s.mu.Lock()
	c := chat.NewChat(title, options...)
	s.cols.Chats = append(s.cols.Chats, c)
	snapshot := c.Clone()
	s.mu.Unlock()

	log.Debug().Object("chat", c).Msg("created chat")

	if err := s.flush(ctx); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

func (s *StoreImpl) DeleteChat(ctx context.Context, id chat.ChatID) error {
	s.mu.Lock()
	found := false
	filtered := make([]*chat.Chat, 0, len(s.cols.Chats))
	for _, c := range s.cols.Chats {
		if c.ID == id {
			found = true
			continue
		}
		filtered = append(filtered, c)
	}
	s.cols.Chats = filtered
	s.mu.Unlock()

	if !found {
		return &chat.NotFoundError{Resource: "chat", ID: id.String()}
	}
	return s.flush(ctx)
}

func (s *StoreImpl) RenameChat(ctx context.Context, id chat.ChatID, title string) error {
	s.mu.Lock()
	c, ok := s.findChat(id)
	if ok {
		c.Title = title
	}
	s.mu.Unlock()

	if !ok {
		return &chat.NotFoundError{Resource: "chat", ID: id.String()}
	}
	return s.flush(ctx)
}

func (s *StoreImpl) GetChat(id chat.ChatID) (*chat.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.findChat(id)
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

func (s *StoreImpl) ListChats() []*chat.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*chat.Chat, 0, len(s.cols.Chats))
	for _, c := range s.cols.Chats {
		out = append(out, c.Clone())
	}
	return out
}

func (s *StoreImpl) ActiveMessages(id chat.ChatID) ([]*chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.findChat(id)
	if !ok {
		return nil, &chat.NotFoundError{Resource: "chat", ID: id.String()}
	}
	msgs := chat.ActiveMessages(c)
	out := make([]*chat.Message, len(msgs))
	for i, m := range msgs {
		copied := *m
		out[i] = &copied
	}
	return out, nil
}

func (s *StoreImpl) BranchTree(id chat.ChatID) ([]*chat.BranchNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.findChat(id)
	if !ok {
		return nil, &chat.NotFoundError{Resource: "chat", ID: id.String()}
	}
	return chat.BranchTree(c.Clone()), nil
}

// SendMessage appends the user message and an empty pending assistant
// message, marks the chat loading, and binds the response stream to the
// placeholder. It returns the placeholder so callers can track it by id. A
// second send on the same branch while a stream is active is rejected with
// chat.ErrStreamActive.
func (s *StoreImpl) SendMessage(ctx context.Context, id chat.ChatID, content string) (*chat.Message, error) {
	s.mu.Lock()
	c, ok := s.findChat(id)
	if !ok {
		s.mu.Unlock()
		return nil, &chat.NotFoundError{Resource: "chat", ID: id.String()}
	}

	branch := chat.ActiveBranch(c)
	release, err := s.guard.Acquire(c.ID, branch.ID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	userMsg := chat.NewMessage(chat.RoleUser, content, chat.WithPersonaID(c.UserPersonaID))
	placeholder := chat.NewMessage(chat.RoleAssistant, "",
		chat.WithPersonaID(c.AIPersonaID),
		chat.WithModel(c.Model),
		chat.WithPending(),
	)
	branch.Append(userMsg, placeholder)
	c.Loading = true

	req := remote.SendRequest{
		ChatID:        c.ID.String(),
		BranchID:      branch.ID.String(),
		Message:       content,
		Model:         c.Model,
		UserPersonaID: c.UserPersonaID,
		AIPersonaID:   c.AIPersonaID,
	}

	reducer := streaming.NewReducer(c, placeholder.ID)
	reducer.OnFinish = func() {
		release()
		go func() {
			if err := s.flush(context.Background()); err != nil {
				log.Error().Err(err).Msg("post-stream flush failed")
			}
		}()
	}

	placeholderCopy := *placeholder
	s.mu.Unlock()

	if err := s.flush(ctx); err != nil {
		log.Error().Err(err).Msg("pre-stream flush failed")
	}

	if s.transport == nil {
		// No transport configured; fail the placeholder right away so it
		// stays visible with a diagnostic, matching the error event path.
		s.applyEvent(reducer, events.NewErrorEvent(events.EventMetadata{
			ChatID:    req.ChatID,
			BranchID:  req.BranchID,
			MessageID: placeholder.ID.String(),
		}, chat.ErrValidation))
		return &placeholderCopy, nil
	}

	ch, err := s.transport.StreamEvents(ctx, req)
	if err != nil {
		s.applyEvent(reducer, events.NewErrorEvent(events.EventMetadata{
			ChatID:    req.ChatID,
			BranchID:  req.BranchID,
			MessageID: placeholder.ID.String(),
		}, err))
		return &placeholderCopy, nil
	}

	go func() {
		for e := range ch {
			s.applyEvent(reducer, e)
		}
		// The transport guarantees a terminal event, but a closed channel
		// without one must still release the guard and clear loading.
		if !reducer.Terminal() {
			s.applyEvent(reducer, events.NewErrorEvent(events.EventMetadata{
				ChatID:   req.ChatID,
				BranchID: req.BranchID,
			}, context.Canceled))
		}
	}()

	return &placeholderCopy, nil
}

func (s *StoreImpl) applyEvent(reducer *streaming.Reducer, e events.Event) {
	s.mu.Lock()
	err := reducer.Apply(e)
	s.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Str("type", string(e.Type())).Msg("could not apply stream event")
	}
	if s.publisher != nil {
		s.publisher.PublishBlind(e)
	}
}

// EditMessage forks the active branch at the given message. The new branch
// becomes active; the source branch and everything after the edit point stay
// reachable. Forking a branch with an active stream is rejected.
func (s *StoreImpl) EditMessage(ctx context.Context, id chat.ChatID, messageID chat.MessageID, newContent string, branchName string) (*chat.Branch, error) {
	s.mu.Lock()
	c, ok := s.findChat(id)
	if !ok {
		s.mu.Unlock()
		return nil, &chat.NotFoundError{Resource: "chat", ID: id.String()}
	}

	source := chat.ActiveBranch(c)
	if s.guard.Active(c.ID, source.ID) {
		s.mu.Unlock()
		return nil, chat.ErrStreamActive
	}

	branch, err := chat.Fork(c, messageID, newContent, branchName)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	snapshot := branch.Clone()
	s.mu.Unlock()

	if err := s.flush(ctx); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

func (s *StoreImpl) SwitchBranch(ctx context.Context, id chat.ChatID, branchID chat.BranchID) error {
	s.mu.Lock()
	c, ok := s.findChat(id)
	var err error
	if !ok {
		err = &chat.NotFoundError{Resource: "chat", ID: id.String()}
	} else {
		err = chat.SwitchBranch(c, branchID)
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	return s.flush(ctx)
}

func (s *StoreImpl) RenameBranch(ctx context.Context, id chat.ChatID, branchID chat.BranchID, name string) error {
	s.mu.Lock()
	c, ok := s.findChat(id)
	var err error
	if !ok {
		err = &chat.NotFoundError{Resource: "chat", ID: id.String()}
	} else {
		err = chat.RenameBranch(c, branchID, name)
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	return s.flush(ctx)
}

func (s *StoreImpl) DeleteBranch(ctx context.Context, id chat.ChatID, branchID chat.BranchID) error {
	s.mu.Lock()
	c, ok := s.findChat(id)
	var err error
	if !ok {
		err = &chat.NotFoundError{Resource: "chat", ID: id.String()}
	} else {
		err = chat.DeleteBranch(c, branchID)
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	return s.flush(ctx)
}

func (s *StoreImpl) ListPersonas() []*chat.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*chat.Persona, len(s.cols.Personas))
	for i, p := range s.cols.Personas {
		copied := *p
		out[i] = &copied
	}
	return out
}

func (s *StoreImpl) CreatePersona(ctx context.Context, p *chat.Persona) error {
	s.mu.Lock()
	copied := *p
	s.cols.Personas = append(s.cols.Personas, &copied)
	s.mu.Unlock()

	if outbox := s.synchronizer.Outbox(); outbox != nil {
		outbox.EnqueueCreate(&copied)
	}
	return s.flush(ctx)
}

func (s *StoreImpl) UpdatePersona(ctx context.Context, p *chat.Persona) error {
	s.mu.Lock()
	found := false
	for i, existing := range s.cols.Personas {
		if existing.ID == p.ID {
			copied := *p
			s.cols.Personas[i] = &copied
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return &chat.NotFoundError{Resource: "persona", ID: p.ID}
	}
	if outbox := s.synchronizer.Outbox(); outbox != nil {
		outbox.EnqueueUpdate(p)
	}
	return s.flush(ctx)
}

func (s *StoreImpl) DeletePersona(ctx context.Context, id string) error {
	s.mu.Lock()
	found := false
	filtered := make([]*chat.Persona, 0, len(s.cols.Personas))
	for _, p := range s.cols.Personas {
		if p.ID == id {
			found = true
			continue
		}
		filtered = append(filtered, p)
	}
	s.cols.Personas = filtered
	s.mu.Unlock()

	if !found {
		return &chat.NotFoundError{Resource: "persona", ID: id}
	}
	if outbox := s.synchronizer.Outbox(); outbox != nil {
		outbox.EnqueueDelete(id)
	}
	return s.flush(ctx)
}

func (s *StoreImpl) ListGroups() []*chat.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*chat.Group, len(s.cols.Groups))
	for i, g := range s.cols.Groups {
		copied := *g
		out[i] = &copied
	}
	return out
}

func (s *StoreImpl) ListTags() []*chat.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*chat.Tag, len(s.cols.Tags))
	for i, tg := range s.cols.Tags {
		copied := *tg
		out[i] = &copied
	}
	return out
}

func (s *StoreImpl) ListDreams() []*chat.Dream {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*chat.Dream, len(s.cols.Dreams))
	for i, d := range s.cols.Dreams {
		copied := *d
		out[i] = &copied
	}
	return out
}

func (s *StoreImpl) ListJournal() []*chat.JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*chat.JournalEntry, len(s.cols.Journal))
	for i, e := range s.cols.Journal {
		copied := *e
		out[i] = &copied
	}
	return out
}

func (s *StoreImpl) Close() error {
	return s.cache.Close()
}
