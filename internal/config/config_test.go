package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBotEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"X_BEARER_TOKEN":       "bearer",
		"X_API_KEY":            "key",
		"X_API_SECRET":         "secret",
		"X_ACCESS_TOKEN":       "token",
		"X_ACCESS_SECRET":      "token-secret",
		"OPENAI_API_KEY":       "sk-test",
		"CHAIN_RPC_URL":        "http://localhost:8545",
		"DEPLOYER_PRIVATE_KEY": "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
	} {
		t.Setenv(k, v)
	}
}

func TestParseEnv_Defaults(t *testing.T) {
	setBotEnv(t)

	var cfg Bot
	require.NoError(t, ParseEnv(&cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://api.x.com", cfg.Social.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Social.RequestTimeout)
	assert.Equal(t, "gpt-4o", cfg.Completion.Model)
	assert.Equal(t, int64(100), cfg.Completion.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Completion.Temperature, 1e-9)
	assert.Equal(t, DefaultFactoryAddress, cfg.Chain.FactoryAddress)
	assert.Equal(t, 2*time.Minute, cfg.Chain.ConfirmTimeout)
	assert.Equal(t, 15*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 5*time.Second, cfg.Poll.ErrorBackoff)
	assert.Equal(t, 10*time.Minute, cfg.Poll.MentionWindow)
	assert.Equal(t, 10, cfg.Poll.BatchSize)
	assert.Equal(t, SelectNewest, cfg.Poll.SelectionPolicy)
	assert.True(t, cfg.Poll.CheckBeforeDeploy)
	assert.False(t, cfg.Poll.HasFallback())
	assert.Equal(t, BackendMemory, cfg.Storage.CursorBackend)
	assert.Equal(t, "token_launches", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestParseEnv_MissingCredential(t *testing.T) {
	setBotEnv(t)
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")

	var cfg Bot
	err := ParseEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestParseEnv_Overrides(t *testing.T) {
	setBotEnv(t)
	t.Setenv("POLL_INTERVAL", "3s")
	t.Setenv("SELECTION_POLICY", "all")
	t.Setenv("CHECK_BEFORE_DEPLOY", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	var cfg Bot
	require.NoError(t, ParseEnv(&cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3*time.Second, cfg.Poll.Interval)
	assert.Equal(t, SelectAll, cfg.Poll.SelectionPolicy)
	assert.False(t, cfg.Poll.CheckBeforeDeploy)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestPoll_Validate(t *testing.T) {
	base := Poll{
		Interval:        time.Second,
		ErrorBackoff:    time.Second,
		MentionWindow:   time.Minute,
		BatchSize:       10,
		SelectionPolicy: SelectNewest,
	}
	require.NoError(t, base.Validate())

	withID := base
	withID.BotID = "1234567890123456789"
	require.NoError(t, withID.Validate())

	tests := []struct {
		name   string
		mutate func(p *Poll)
	}{
		{"batch too small", func(p *Poll) { p.BatchSize = 4 }},
		{"batch too large", func(p *Poll) { p.BatchSize = 101 }},
		{"unknown policy", func(p *Poll) { p.SelectionPolicy = "oldest" }},
		{"zero interval", func(p *Poll) { p.Interval = 0 }},
		{"half fallback", func(p *Poll) { p.FallbackSymbol = "MEME" }},
		{"non-numeric bot id", func(p *Poll) { p.BotID = "pressf-bot" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestStorage_Validate(t *testing.T) {
	assert.NoError(t, Storage{CursorBackend: BackendMemory}.Validate())
	assert.Error(t, Storage{CursorBackend: BackendPostgres}.Validate())
	assert.Error(t, Storage{CursorBackend: BackendRedis}.Validate())
	assert.NoError(t, Storage{CursorBackend: BackendRedis, RedisAddr: "localhost:6379"}.Validate())
	assert.Error(t, Storage{CursorBackend: "etcd"}.Validate())
}

func TestBot_ValidateRequiresSigner(t *testing.T) {
	setBotEnv(t)
	os.Unsetenv("DEPLOYER_PRIVATE_KEY")

	var cfg Bot
	require.NoError(t, ParseEnv(&cfg))
	assert.Error(t, cfg.Validate())
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("OPENAI_API_KEY=from-file\nOPENAI_MODEL=gpt-4o-mini\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("OPENAI_MODEL", "")
	os.Unsetenv("OPENAI_MODEL")

	var cfg Completion
	require.NoError(t, Load(&cfg))

	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
}
