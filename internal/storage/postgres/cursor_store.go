package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/storage"
)

// CursorStore is a PostgreSQL implementation of storage.CursorStore.
// Uses table mention_cursors: one row per bot id.
type CursorStore struct {
	pool *Pool
}

// NewCursorStore creates a new PostgreSQL cursor store.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

// GetCursor returns the last processed mention id for botID.
func (s *CursorStore) GetCursor(ctx context.Context, botID string) (domain.Cursor, error) {
	if botID == "" {
		return "", storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT last_mention_id
		FROM mention_cursors
		WHERE bot_id = $1
	`, botID)

	var cursor string
	if err := row.Scan(&cursor); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get cursor: %w", err)
	}

	return domain.Cursor(cursor), nil
}

// SetCursor saves the last processed mention id for botID.
// Uses upsert to handle initial insert and subsequent updates.
func (s *CursorStore) SetCursor(ctx context.Context, botID string, cursor domain.Cursor) error {
	if botID == "" || cursor.IsZero() {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO mention_cursors (bot_id, last_mention_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (bot_id) DO UPDATE
		SET last_mention_id = EXCLUDED.last_mention_id,
		    updated_at = NOW()
	`, botID, cursor.String())
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
