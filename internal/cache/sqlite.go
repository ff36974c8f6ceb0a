package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/daybook/internal/models"
)

// NotesKey is the single slot holding the serialized collection.
const NotesKey = "notes"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite stores the collection in a one-row key/value table.
type SQLite struct {
	conn   *sql.DB
	logger *slog.Logger
}

var _ Cache = (*SQLite)(nil)

// OpenSQLite opens (or creates) the cache database and applies the schema.
func OpenSQLite(dsn string, logger *slog.Logger) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_sync=FULL")
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: apply schema: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLite{conn: conn, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Read returns the cached collection.
func (s *SQLite) Read(ctx context.Context) (models.Collection, error) {
	var data []byte
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, NotesKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Collection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read: %w", err)
	}
	return decode(data, s.logger), nil
}

// Write replaces the cached collection.
func (s *SQLite) Write(ctx context.Context, c models.Collection) error {
	data, err := encode(c)
	if err != nil {
		return wrapWrite("encode", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, NotesKey, data)
	if err != nil {
		return wrapWrite("upsert", err)
	}
	return nil
}

// Clear deletes the cached collection.
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, NotesKey); err != nil {
		return wrapWrite("clear", err)
	}
	return nil
}
