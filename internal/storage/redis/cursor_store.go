package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/storage"
)

// DefaultKeyPrefix namespaces cursor keys.
const DefaultKeyPrefix = "mention-token-bot:cursor"

// CursorStore keeps one string key per bot: <prefix>:<botID> -> last mention id.
type CursorStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewCursorStore creates a redis-backed cursor store. Empty prefix uses DefaultKeyPrefix.
func NewCursorStore(client goredis.UniversalClient, prefix string) *CursorStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &CursorStore{client: client, prefix: prefix}
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

func (s *CursorStore) key(botID string) string {
	return s.prefix + ":" + botID
}

// GetCursor returns the stored cursor for botID or storage.ErrNotFound.
func (s *CursorStore) GetCursor(ctx context.Context, botID string) (domain.Cursor, error) {
	if botID == "" {
		return "", storage.ErrInvalidInput
	}

	val, err := s.client.Get(ctx, s.key(botID)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis GET %s: %w", s.key(botID), err)
	}
	return domain.Cursor(val), nil
}

// SetCursor stores the cursor for botID without expiry.
func (s *CursorStore) SetCursor(ctx context.Context, botID string, cursor domain.Cursor) error {
	if botID == "" || cursor.IsZero() {
		return storage.ErrInvalidInput
	}

	if err := s.client.Set(ctx, s.key(botID), cursor.String(), 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", s.key(botID), err)
	}
	return nil
}
