package storage

import (
	"context"

	"mention-token-bot/internal/domain"
)

// LaunchStore provides access to the token_launches ledger.
type LaunchStore interface {
	// Insert adds a new launch. Returns ErrDuplicateKey if launch_id or source_url exists.
	Insert(ctx context.Context, l *domain.Launch) error

	// GetBySourceURL retrieves the launch for a source post. Returns ErrNotFound if not exists.
	GetBySourceURL(ctx context.Context, sourceURL string) (*domain.Launch, error)

	// ListRecent retrieves up to limit launches, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.Launch, error)
}

// CycleOutcomeStore provides access to cycle_outcomes storage.
type CycleOutcomeStore interface {
	// Insert appends a cycle outcome.
	Insert(ctx context.Context, o *domain.CycleOutcome) error

	// ListRecent retrieves up to limit outcomes for botID, newest first.
	ListRecent(ctx context.Context, botID string, limit int) ([]*domain.CycleOutcome, error)
}
