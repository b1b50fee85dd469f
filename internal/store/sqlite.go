package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// pointerSchema holds named integer pointers; the gateway uses one row.
const pointerSchema = `
CREATE TABLE IF NOT EXISTS rotation_pointer (
    name       TEXT PRIMARY KEY,
    value      INTEGER NOT NULL CHECK (value >= 0),
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const DefaultPointerName = "url_index"

// SQLiteStore keeps the pointer in an embedded SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	name   string
	mu     sync.Mutex
	closed bool
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// schema exists. name selects the row; empty means DefaultPointerName.
func NewSQLiteStore(ctx context.Context, dbPath, name string) (*SQLiteStore, error) {
	if name == "" {
		name = DefaultPointerName
	}

	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}

	// Writers are serialized by the router; one connection avoids
	// SQLITE_BUSY between pooled connections.
	database.SetMaxOpenConns(1)

	if _, err := database.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := database.ExecContext(ctx, pointerSchema); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: database, name: name}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	var value int64
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM rotation_pointer WHERE name = ?", s.name).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("load pointer %q: %w", s.name, err)
	}

	if value < 0 {
		return 0, fmt.Errorf("%w: %d", ErrCorrupt, value)
	}

	return int(value), nil
}

func (s *SQLiteStore) Save(ctx context.Context, value int) error {
	if value < 0 {
		return ErrNegative
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO rotation_pointer (name, value, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.name, value)
	if err != nil {
		return fmt.Errorf("save pointer %q: %w", s.name, err)
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
