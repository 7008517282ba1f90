// Package storage persists users, sessions and playlists in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist or is not owned by the
// caller.
var ErrNotFound = errors.New("storage: not found")

// Store is a SQLite-backed store.
type Store struct {
	db *sql.DB
}

// Options configures the SQLite connection.
type Options struct {
	BusyTimeout time.Duration
}

// sqliteDSN applies pragmas through the DSN so every pooled connection gets them.
func sqliteDSN(path string, options Options) string {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	query := url.Values{}
	query.Add("_pragma", "foreign_keys(1)")
	query.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", int(options.BusyTimeout/time.Millisecond)))
	query.Add("_pragma", "journal_mode(WAL)")
	query.Add("_pragma", "synchronous(NORMAL)")
	return dsn + "?" + query.Encode()
}

// Open opens the database at path and creates the schema if needed.
func Open(ctx context.Context, path string, options Options) (*Store, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path, options))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	s := &Store{db: db}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates missing tables and indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			spotify_id TEXT NOT NULL UNIQUE,
			token TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
		`CREATE TABLE IF NOT EXISTS playlists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			elements TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_playlists_owner_id ON playlists(owner_id)`,
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return errors.Wrap(err, "failed to create schema")
			}
		}
		return nil
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
