package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS mention_cursors (
	bot_id          TEXT PRIMARY KEY,
	last_mention_id TEXT NOT NULL,
	updated_at      INTEGER NOT NULL
)`

// CursorStore persists cursors in a single SQLite file.
type CursorStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

// Open opens (or creates) the SQLite file at path and applies the schema.
func Open(path string) (*CursorStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &CursorStore{db: db}, nil
}

// Close releases the database handle.
func (s *CursorStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetCursor returns the stored cursor for botID or storage.ErrNotFound.
func (s *CursorStore) GetCursor(ctx context.Context, botID string) (domain.Cursor, error) {
	if botID == "" {
		return "", storage.ErrInvalidInput
	}

	var cursor string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_mention_id FROM mention_cursors WHERE bot_id = ?`, botID,
	).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get cursor: %w", err)
	}
	return domain.Cursor(cursor), nil
}

// SetCursor upserts the cursor for botID.
func (s *CursorStore) SetCursor(ctx context.Context, botID string, cursor domain.Cursor) error {
	if botID == "" || cursor.IsZero() {
		return storage.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO mention_cursors (bot_id, last_mention_id, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (bot_id) DO UPDATE SET
	last_mention_id = excluded.last_mention_id,
	updated_at = excluded.updated_at
`, botID, cursor.String(), time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
