package persist

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is a thread-safe in-memory CacheStore, used in tests and as a
// fallback when no cache directory is configured. Documents are kept in their
// marshaled form so Load/Save round-trip exactly like the file store.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[Namespace][]byte
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: map[Namespace][]byte{},
	}
}

func (s *MemoryStore) Load(_ context.Context, ns Namespace, v interface{}) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrStoreClosed
	}

	doc, ok := s.docs[ns]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(doc, v); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) Save(_ context.Context, ns Namespace, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	doc, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.docs[ns] = doc
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ CacheStore = (*MemoryStore)(nil)
