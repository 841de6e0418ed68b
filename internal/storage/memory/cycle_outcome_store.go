package memory

import (
	"context"
	"sync"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/storage"
)

// DefaultCycleCapacity bounds the in-memory cycle history.
const DefaultCycleCapacity = 1000

// CycleOutcomeStore is an in-memory implementation of storage.CycleOutcomeStore.
// Keeps the most recent outcomes up to capacity; older rows are dropped.
type CycleOutcomeStore struct {
	mu       sync.RWMutex
	outcomes []*domain.CycleOutcome // append order
	capacity int
}

// NewCycleOutcomeStore creates a new in-memory cycle outcome store.
func NewCycleOutcomeStore(capacity int) *CycleOutcomeStore {
	if capacity <= 0 {
		capacity = DefaultCycleCapacity
	}
	return &CycleOutcomeStore{capacity: capacity}
}

// Insert appends a cycle outcome.
func (s *CycleOutcomeStore) Insert(_ context.Context, o *domain.CycleOutcome) error {
	if o == nil || o.BotID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	outcomeCopy := *o
	s.outcomes = append(s.outcomes, &outcomeCopy)
	if over := len(s.outcomes) - s.capacity; over > 0 {
		s.outcomes = append(s.outcomes[:0:0], s.outcomes[over:]...)
	}
	return nil
}

// ListRecent retrieves up to limit outcomes for botID, newest first.
func (s *CycleOutcomeStore) ListRecent(_ context.Context, botID string, limit int) ([]*domain.CycleOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CycleOutcome
	for i := len(s.outcomes) - 1; i >= 0; i-- {
		if s.outcomes[i].BotID != botID {
			continue
		}
		outcomeCopy := *s.outcomes[i]
		result = append(result, &outcomeCopy)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

var _ storage.CycleOutcomeStore = (*CycleOutcomeStore)(nil)
