package store

import (
	"context"

	"github.com/go-go-golems/loom/pkg/chat"
	"github.com/go-go-golems/loom/pkg/events"
	"github.com/go-go-golems/loom/pkg/remote"
)

// StreamTransport opens a response stream for a send request. Implemented by
// remote.Client; tests substitute a channel-backed fake.
type StreamTransport interface {
	StreamEvents(ctx context.Context, req remote.SendRequest) (<-chan events.Event, error)
}

// Store is the aggregate root over the chat collection. It is an explicit,
// constructed service, not a process-wide singleton; everything it depends on
// is injected so tests can run it fully in memory.
//
// All mutating operations synchronously rewrite the local cache before any
// remote work happens; remote synchronization is best-effort and never blocks
// the caller.
type Store interface {
	// Chat lifecycle.
	CreateChat(ctx context.Context, title string, options ...chat.ChatOption) (*chat.Chat, error)
	DeleteChat(ctx context.Context, id chat.ChatID) error
	RenameChat(ctx context.Context, id chat.ChatID, title string) error
	GetChat(id chat.ChatID) (*chat.Chat, bool)
	ListChats() []*chat.Chat

	// Derived views over the selected branch.
	ActiveMessages(id chat.ChatID) ([]*chat.Message, error)
	BranchTree(id chat.ChatID) ([]*chat.BranchNode, error)

	// Messaging and branching.
	SendMessage(ctx context.Context, id chat.ChatID, content string) (*chat.Message, error)
	EditMessage(ctx context.Context, id chat.ChatID, messageID chat.MessageID, newContent string, branchName string) (*chat.Branch, error)
	SwitchBranch(ctx context.Context, id chat.ChatID, branchID chat.BranchID) error
	RenameBranch(ctx context.Context, id chat.ChatID, branchID chat.BranchID, name string) error
	DeleteBranch(ctx context.Context, id chat.ChatID, branchID chat.BranchID) error

	// Persona mutations push to remote through the outbox.
	ListPersonas() []*chat.Persona
	CreatePersona(ctx context.Context, p *chat.Persona) error
	UpdatePersona(ctx context.Context, p *chat.Persona) error
	DeletePersona(ctx context.Context, id string) error

	// Read-only collections pulled at initialization.
	ListGroups() []*chat.Group
	ListTags() []*chat.Tag
	ListDreams() []*chat.Dream
	ListJournal() []*chat.JournalEntry

	Close() error
}
