package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/storage"
)

func openTestStore(t *testing.T, path string) *CursorStore {
	t.Helper()

	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCursorStore_SetAndGet(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "cursor.db"))
	ctx := context.Background()

	require.NoError(t, store.SetCursor(ctx, "bot1", "100"))
	require.NoError(t, store.SetCursor(ctx, "bot1", "200"))

	got, err := store.GetCursor(ctx, "bot1")
	require.NoError(t, err)
	assert.Equal(t, domain.Cursor("200"), got)
}

func TestCursorStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.db")
	ctx := context.Background()

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.SetCursor(ctx, "bot1", "1800000000000000001"))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	got, err := second.GetCursor(ctx, "bot1")
	require.NoError(t, err)
	assert.Equal(t, domain.Cursor("1800000000000000001"), got)
}

func TestCursorStore_NotFound(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "cursor.db"))

	_, err := store.GetCursor(context.Background(), "bot1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCursorStore_InvalidInput(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "cursor.db"))

	assert.ErrorIs(t, store.SetCursor(context.Background(), "bot1", ""), storage.ErrInvalidInput)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}
