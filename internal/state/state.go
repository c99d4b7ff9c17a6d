// Package state persists small user preferences, such as whether the
// overlay should be active, in a SQLite key/value table.
package state

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

const (
	ErrOpen  = errors.ErrorCode("state_open_failed")
	ErrRead  = errors.ErrorCode("state_read_failed")
	ErrWrite = errors.ErrorCode("state_write_failed")
)

const (
	schemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS settings (
	       key         TEXT PRIMARY KEY,
	       value       TEXT NOT NULL,
	       updated_at  TEXT NOT NULL
	   );
	   INSERT OR IGNORE INTO schema_versions (version, applied_at)
	   VALUES (1, datetime('now'));`

	upsertSQL = `
    INSERT INTO settings (key, value, updated_at)
    VALUES (?, ?, datetime('now'))
    ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
)

// Store is a persistent key/value store. Writes are durable when the call
// returns.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

func Open(path string) (*Store, error) {
	errFactory := errors.New()

	if path == "" {
		return nil, errFactory.WithMessage(ErrOpen, "empty state database path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errFactory.Wrap(ErrOpen, err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_sync=FULL&_busy_timeout=5000")
	if err != nil {
		return nil, errFactory.Wrap(ErrOpen, err)
	}

	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrOpen, struct {
			Phase string
			Error string
		}{
			Phase: "create_tables",
			Error: err.Error(),
		})
	}

	log := logger.With("state")
	log.Debug().Str("path", path).Int("schema_version", schemaVersion).Msg("State store opened")

	return &Store{db: db, log: log}, nil
}

// GetBool returns the value stored under key, or def if none is stored.
func (s *Store) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	errFactory := errors.New()

	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, errFactory.Wrap(ErrRead, err)
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		s.log.Warn().Str("key", key).Str("value", raw).Msg("Ignoring malformed stored value")
		return def, nil
	}

	return v, nil
}

func (s *Store) SetBool(ctx context.Context, key string, v bool) error {
	if _, err := s.db.ExecContext(ctx, upsertSQL, key, strconv.FormatBool(v)); err != nil {
		return errors.New().Wrap(ErrWrite, err)
	}

	s.log.Debug().Str("key", key).Bool("value", v).Msg("State updated")

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
