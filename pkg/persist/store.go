package persist

import (
	"context"
	"errors"
)

// Namespace keys one entity collection inside the local durable cache.
type Namespace string

const (
	NamespaceChats       Namespace = "chats"
	NamespacePersonas    Namespace = "personas"
	NamespaceGroups      Namespace = "groups"
	NamespaceTags        Namespace = "tags"
	NamespacePreferences Namespace = "preferences"
)

var ErrStoreClosed = errors.New("cache store is closed")

// CacheStore is the local durable cache behind the chat store. Each namespace
// holds one JSON document that is read once at startup and rewritten after
// every mutation. The cache is the authority for reload and restart.
type CacheStore interface {
	// Load unmarshals the namespace's document into v. A namespace that was
	// never written is not an error; v is left untouched and ok is false.
	Load(ctx context.Context, ns Namespace, v interface{}) (ok bool, err error)
	// Save marshals v and replaces the namespace's document.
	Save(ctx context.Context, ns Namespace, v interface{}) error
	Close() error
}
