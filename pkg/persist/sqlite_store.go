package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const sqliteCacheSchemaV1 = `
CREATE TABLE IF NOT EXISTS cache (
    namespace TEXT PRIMARY KEY,
    payload_json TEXT NOT NULL,
    updated_at_ms INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteStore persists namespace documents in a SQLite database.
//
// Storage format intentionally keeps one JSON payload per namespace row so the
// domain schema can evolve without SQL column churn while still getting
// durable single-file persistence.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite cache store: empty dsn")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(sqliteCacheSchemaV1); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "could not migrate cache schema")
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, ns Namespace, v interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrStoreClosed
	}

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM cache WHERE namespace = ?`, string(ns),
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "could not read namespace %s", ns)
	}

	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return false, errors.Wrapf(err, "could not decode namespace %s", ns)
	}
	return true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, ns Namespace, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "could not encode namespace %s", ns)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache (namespace, payload_json, updated_at_ms) VALUES (?, ?, ?)
		 ON CONFLICT(namespace) DO UPDATE SET payload_json = excluded.payload_json, updated_at_ms = excluded.updated_at_ms`,
		string(ns), string(payload), time.Now().UnixMilli(),
	)
	if err != nil {
		return errors.Wrapf(err, "could not write namespace %s", ns)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var _ CacheStore = (*SQLiteStore)(nil)
