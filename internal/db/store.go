package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding drafts, confirmed action items
// and stored email categories
type Store struct {
	db *sql.DB
}

// Open opens (and creates/migrates) the database at the given path
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	// Ensure file exists with strict perms
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		f, err := os.OpenFile(dbPath, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("create database file: %w", err)
		}
		f.Close()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys=ON;")
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout=5000;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrations are applied in order; migration i moves user_version from i to i+1
var migrations = []string{
	// v1: key/value entries (drafts collection and per-email field cache)
	`
CREATE TABLE IF NOT EXISTS kv_entries (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
`,
	// v2: confirmed action items
	`
CREATE TABLE IF NOT EXISTS action_items (
  id                   TEXT PRIMARY KEY,
  email_id             TEXT NOT NULL,
  description          TEXT NOT NULL,
  deadline             TEXT NOT NULL DEFAULT '',
  priority             TEXT NOT NULL DEFAULT 'Medium',
  completed            BOOLEAN NOT NULL DEFAULT FALSE,
  source_email_subject TEXT NOT NULL DEFAULT '',
  confirmed_at         DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_action_items_completed ON action_items(completed, confirmed_at);
`,
	// v3: categories assigned by bulk classification
	`
CREATE TABLE IF NOT EXISTS email_categories (
  email_id   TEXT PRIMARY KEY,
  category   TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
`,
	// v4: extraction candidate an item was confirmed from
	`
ALTER TABLE action_items ADD COLUMN candidate_id TEXT NOT NULL DEFAULT '';
`,
}

func (s *Store) migrate(ctx context.Context) error {
	// user_version based migrations
	var ver int
	_ = s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver)

	for ver < len(migrations) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, migrations[ver])
		if err == nil {
			_, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d;", ver+1))
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate v%d: %w", ver+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		ver++
	}
	return nil
}

// Version returns the applied schema version
func (s *Store) Version(ctx context.Context) (int, error) {
	var ver int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver); err != nil {
		return 0, err
	}
	return ver, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for use by domain stores
func (s *Store) DB() *sql.DB {
	return s.db
}
