package storage

import (
	"context"

	"mention-token-bot/internal/domain"
)

// CursorStore persists the mention cursor per bot identity.
// This enables resumption after restarts without reprocessing mentions.
type CursorStore interface {
	// GetCursor returns the last processed mention id for botID.
	// Returns ErrNotFound if no cursor has been saved yet.
	GetCursor(ctx context.Context, botID string) (domain.Cursor, error)

	// SetCursor saves the last processed mention id for botID.
	SetCursor(ctx context.Context, botID string, cursor domain.Cursor) error
}
