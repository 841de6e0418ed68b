package memory

import (
	"context"
	"sort"
	"sync"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/storage"
)

// LaunchStore is an in-memory implementation of storage.LaunchStore.
type LaunchStore struct {
	mu          sync.RWMutex
	byID        map[string]*domain.Launch // keyed by launch_id
	bySourceURL map[string]*domain.Launch // keyed by source_url (unique)
}

// NewLaunchStore creates a new in-memory launch store.
func NewLaunchStore() *LaunchStore {
	return &LaunchStore{
		byID:        make(map[string]*domain.Launch),
		bySourceURL: make(map[string]*domain.Launch),
	}
}

// Insert adds a new launch. Returns ErrDuplicateKey if launch_id or source_url already exists.
func (s *LaunchStore) Insert(_ context.Context, l *domain.Launch) error {
	if l == nil || l.LaunchID == "" || l.SourceURL == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[l.LaunchID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.bySourceURL[l.SourceURL]; exists {
		return storage.ErrDuplicateKey
	}

	launchCopy := *l
	s.byID[l.LaunchID] = &launchCopy
	s.bySourceURL[l.SourceURL] = &launchCopy
	return nil
}

// GetBySourceURL retrieves the launch for a source post. Returns ErrNotFound if not exists.
func (s *LaunchStore) GetBySourceURL(_ context.Context, sourceURL string) (*domain.Launch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.bySourceURL[sourceURL]
	if !exists {
		return nil, storage.ErrNotFound
	}

	launchCopy := *l
	return &launchCopy, nil
}

// ListRecent retrieves up to limit launches ordered by created_at DESC, launch_id ASC.
func (s *LaunchStore) ListRecent(_ context.Context, limit int) ([]*domain.Launch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Launch, 0, len(s.byID))
	for _, l := range s.byID {
		launchCopy := *l
		result = append(result, &launchCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].LaunchID < result[j].LaunchID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.LaunchStore = (*LaunchStore)(nil)
