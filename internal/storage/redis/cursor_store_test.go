package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/storage"
)

func setupStore(t *testing.T, prefix string) (*CursorStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCursorStore(client, prefix), mr
}

func TestCursorStore_SetAndGet(t *testing.T) {
	store, mr := setupStore(t, "")
	ctx := context.Background()

	require.NoError(t, store.SetCursor(ctx, "bot1", "1800000000000000001"))

	got, err := store.GetCursor(ctx, "bot1")
	require.NoError(t, err)
	assert.Equal(t, domain.Cursor("1800000000000000001"), got)

	raw, err := mr.Get(DefaultKeyPrefix + ":bot1")
	require.NoError(t, err)
	assert.Equal(t, "1800000000000000001", raw)
}

func TestCursorStore_CustomPrefix(t *testing.T) {
	store, mr := setupStore(t, "staging")
	ctx := context.Background()

	require.NoError(t, store.SetCursor(ctx, "bot1", "42"))
	assert.True(t, mr.Exists("staging:bot1"))
}

func TestCursorStore_NotFound(t *testing.T) {
	store, _ := setupStore(t, "")

	_, err := store.GetCursor(context.Background(), "bot1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCursorStore_InvalidInput(t *testing.T) {
	store, _ := setupStore(t, "")
	ctx := context.Background()

	assert.ErrorIs(t, store.SetCursor(ctx, "", "1"), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.SetCursor(ctx, "bot1", ""), storage.ErrInvalidInput)

	_, err := store.GetCursor(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestCursorStore_ServerDown(t *testing.T) {
	store, mr := setupStore(t, "")
	mr.Close()

	_, err := store.GetCursor(context.Background(), "bot1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}
