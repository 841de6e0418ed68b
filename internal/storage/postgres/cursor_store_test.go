package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/storage"
)

func TestCursorStore_SetAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCursorStore(pool)

	require.NoError(t, store.SetCursor(ctx, "bot1", "1800000000000000001"))

	got, err := store.GetCursor(ctx, "bot1")
	require.NoError(t, err)
	assert.Equal(t, domain.Cursor("1800000000000000001"), got)
}

func TestCursorStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCursorStore(pool)

	_, err := store.GetCursor(context.Background(), "bot1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCursorStore_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCursorStore(pool)

	require.NoError(t, store.SetCursor(ctx, "bot1", "100"))
	require.NoError(t, store.SetCursor(ctx, "bot1", "200"))
	require.NoError(t, store.SetCursor(ctx, "bot2", "50"))

	got, err := store.GetCursor(ctx, "bot1")
	require.NoError(t, err)
	assert.Equal(t, domain.Cursor("200"), got)

	got, err = store.GetCursor(ctx, "bot2")
	require.NoError(t, err)
	assert.Equal(t, domain.Cursor("50"), got)
}

func TestCursorStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCursorStore(pool)

	err := store.SetCursor(context.Background(), "bot1", "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
