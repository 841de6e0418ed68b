package memory

import (
	"context"
	"sync"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/storage"
)

// CursorStore is an in-memory implementation of storage.CursorStore.
// State is lost on restart.
type CursorStore struct {
	mu      sync.RWMutex
	cursors map[string]domain.Cursor // keyed by bot id
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{
		cursors: make(map[string]domain.Cursor),
	}
}

// GetCursor returns the last processed mention id for botID.
func (s *CursorStore) GetCursor(_ context.Context, botID string) (domain.Cursor, error) {
	if botID == "" {
		return "", storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cursors[botID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return c, nil
}

// SetCursor saves the last processed mention id for botID.
func (s *CursorStore) SetCursor(_ context.Context, botID string, cursor domain.Cursor) error {
	if botID == "" || cursor.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[botID] = cursor
	return nil
}

var _ storage.CursorStore = (*CursorStore)(nil)
