package persist

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileStore keeps one pretty-printed JSON document per namespace under a base
// directory. Writes go through a temp file and rename so a crash mid-write
// never leaves a namespace half-serialized.
type FileStore struct {
	mu      sync.Mutex
	baseDir string
	closed  bool
}

func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "could not create cache directory")
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(ns Namespace) string {
	return filepath.Join(s.baseDir, string(ns)+".json")
}

func (s *FileStore) Load(_ context.Context, ns Namespace, v interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrStoreClosed
	}

	data, err := os.ReadFile(s.path(ns))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "could not read namespace %s", ns)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "could not decode namespace %s", ns)
	}
	return true, nil
}

func (s *FileStore) Save(_ context.Context, ns Namespace, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "could not encode namespace %s", ns)
	}

	tmp, err := os.CreateTemp(s.baseDir, string(ns)+"-*.json")
	if err != nil {
		return errors.Wrap(err, "could not create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "could not write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "could not close temp file")
	}

	if err := os.Rename(tmpName, s.path(ns)); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "could not replace namespace %s", ns)
	}
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ CacheStore = (*FileStore)(nil)
