package app

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mention-token-bot/internal/config"
	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/storage/memory"
	redisstore "mention-token-bot/internal/storage/redis"
	sqlitestore "mention-token-bot/internal/storage/sqlite"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestOpenStores_Memory(t *testing.T) {
	s, err := OpenStores(context.Background(), config.Storage{CursorBackend: config.BackendMemory}, quietLogger())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &memory.CursorStore{}, s.Cursors)
	assert.IsType(t, &memory.LaunchStore{}, s.Launches)
	assert.IsType(t, &memory.CycleOutcomeStore{}, s.Outcomes)
}

func TestOpenStores_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.db")
	ctx := context.Background()

	s, err := OpenStores(ctx, config.Storage{CursorBackend: config.BackendSQLite, SQLitePath: path}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &sqlitestore.CursorStore{}, s.Cursors)
	require.NoError(t, s.Cursors.SetCursor(ctx, "42", "102"))
	s.Close()

	// Reopening sees the persisted value.
	s, err = OpenStores(ctx, config.Storage{CursorBackend: config.BackendSQLite, SQLitePath: path}, quietLogger())
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Cursors.GetCursor(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, domain.Cursor("102"), got)
}

func TestOpenStores_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := OpenStores(ctx, config.Storage{
		CursorBackend:  config.BackendRedis,
		RedisAddr:      mr.Addr(),
		RedisKeyPrefix: "test:cursor",
	}, quietLogger())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &redisstore.CursorStore{}, s.Cursors)
	require.NoError(t, s.Cursors.SetCursor(ctx, "42", "103"))

	v, err := mr.Get("test:cursor:42")
	require.NoError(t, err)
	assert.Equal(t, "103", v)
}

func TestOpenStores_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := OpenStores(context.Background(), config.Storage{
		CursorBackend: config.BackendRedis,
		RedisAddr:     addr,
	}, quietLogger())
	assert.Error(t, err)
}

func TestOpenStores_UnknownBackend(t *testing.T) {
	_, err := OpenStores(context.Background(), config.Storage{CursorBackend: "etcd"}, quietLogger())
	assert.Error(t, err)
}

func TestStores_CloseIsIdempotent(t *testing.T) {
	calls := 0
	s := &Stores{closers: []func(){func() { calls++ }}}

	s.Close()
	s.Close()

	assert.Equal(t, 1, calls)
}

func TestFallback(t *testing.T) {
	assert.Nil(t, Fallback(config.Poll{}))

	fb := Fallback(config.Poll{FallbackSymbol: "tweet coin", FallbackName: "  Tweet Token  "})
	require.NotNil(t, fb)
	assert.Equal(t, "TWEETCO", fb.Symbol)
	assert.Equal(t, "Tweet Token", fb.Name)
}

func TestDialChain_RequiresSignerKey(t *testing.T) {
	_, err := DialChain(context.Background(), config.Chain{RPCURL: "http://127.0.0.1:1"}, true, quietLogger())
	assert.Error(t, err)
}
