// Package config loads typed configuration from the environment.
//
// Each component has its own struct so that one-shot tools only require the
// credentials they use. An optional .env file in the working directory is
// loaded first; variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultFactoryAddress is the token factory on Optimism Sepolia.
const DefaultFactoryAddress = "0xe7D3930eabD922202B7f9C11084AB4D91444Ba2A"

// Selection policies for mentions within one batch.
const (
	SelectNewest = "newest"
	SelectAll    = "all"
)

// Cursor store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
)

// Social configures the mentions API client.
type Social struct {
	BearerToken       string        `env:"X_BEARER_TOKEN,required"`
	APIKey            string        `env:"X_API_KEY,required"`
	APISecret         string        `env:"X_API_SECRET,required"`
	AccessToken       string        `env:"X_ACCESS_TOKEN,required"`
	AccessSecret      string        `env:"X_ACCESS_SECRET,required"`
	BaseURL           string        `env:"X_API_BASE_URL" envDefault:"https://api.x.com"`
	RequestTimeout    time.Duration `env:"X_REQUEST_TIMEOUT" envDefault:"15s"`
	RequestsPerSecond float64       `env:"X_REQUESTS_PER_SECOND" envDefault:"1"`
}

// Completion configures the suggestion provider.
type Completion struct {
	APIKey      string        `env:"OPENAI_API_KEY,required"`
	BaseURL     string        `env:"OPENAI_BASE_URL"`
	Model       string        `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	MaxTokens   int64         `env:"OPENAI_MAX_TOKENS" envDefault:"100"`
	Temperature float64       `env:"OPENAI_TEMPERATURE" envDefault:"0.7"`
	Timeout     time.Duration `env:"OPENAI_TIMEOUT" envDefault:"30s"`
}

// Chain configures the registry and deployer.
type Chain struct {
	RPCURL         string        `env:"CHAIN_RPC_URL,required"`
	PrivateKey     string        `env:"DEPLOYER_PRIVATE_KEY"`
	FactoryAddress string        `env:"TOKEN_FACTORY_ADDRESS" envDefault:"0xe7D3930eabD922202B7f9C11084AB4D91444Ba2A"`
	ChainID        int64         `env:"CHAIN_ID" envDefault:"0"`
	CallTimeout    time.Duration `env:"CHAIN_CALL_TIMEOUT" envDefault:"15s"`
	ConfirmTimeout time.Duration `env:"CHAIN_CONFIRM_TIMEOUT" envDefault:"2m"`
}

// Poll configures the polling loop and the per-mention pipeline.
type Poll struct {
	// BotID is the bot's numeric X user id. It keys the cursor and the
	// mentions timeline. Empty resolves it with /2/users/me.
	BotID             string        `env:"BOT_ID"`
	Interval          time.Duration `env:"POLL_INTERVAL" envDefault:"15s"`
	ErrorBackoff      time.Duration `env:"ERROR_BACKOFF" envDefault:"5s"`
	MentionWindow     time.Duration `env:"MENTION_WINDOW" envDefault:"10m"`
	BatchSize         int           `env:"MENTION_BATCH_SIZE" envDefault:"10"`
	SelectionPolicy   string        `env:"SELECTION_POLICY" envDefault:"newest"`
	CheckBeforeDeploy bool          `env:"CHECK_BEFORE_DEPLOY" envDefault:"true"`
	FallbackSymbol    string        `env:"FALLBACK_SYMBOL"`
	FallbackName      string        `env:"FALLBACK_NAME"`
}

// Storage selects and configures persistence backends.
type Storage struct {
	CursorBackend  string `env:"CURSOR_BACKEND" envDefault:"memory"`
	PostgresDSN    string `env:"POSTGRES_DSN"`
	PostgresConns  int32  `env:"POSTGRES_MAX_CONNS" envDefault:"4"`
	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"mention-token-bot.db"`
	ClickhouseDSN  string `env:"CLICKHOUSE_DSN"`
}

// Kafka configures the optional launch event publisher.
type Kafka struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC_LAUNCHES" envDefault:"token_launches"`
}

// HTTP configures the status server.
type HTTP struct {
	Addr string `env:"HTTP_ADDR" envDefault:":9090"`
}

// Bot is the full configuration of the polling service.
type Bot struct {
	Social     Social
	Completion Completion
	Chain      Chain
	Poll       Poll
	Storage    Storage
	Kafka      Kafka
	HTTP       HTTP
}

// LoadDotEnv loads .env from the working directory if present.
// Existing environment variables are not overridden.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load applies .env and parses target, then validates it when it knows how.
func Load(target any) error {
	if err := LoadDotEnv(); err != nil {
		return err
	}
	if err := ParseEnv(target); err != nil {
		return err
	}
	if v, ok := target.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

// Validate checks polling options.
func (p Poll) Validate() error {
	if p.BotID != "" && !isDigits(p.BotID) {
		return fmt.Errorf("BOT_ID must be the numeric X user id, got %q", p.BotID)
	}
	if p.Interval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if p.ErrorBackoff <= 0 {
		return fmt.Errorf("ERROR_BACKOFF must be positive")
	}
	if p.MentionWindow <= 0 {
		return fmt.Errorf("MENTION_WINDOW must be positive")
	}
	if p.BatchSize < 5 || p.BatchSize > 100 {
		return fmt.Errorf("MENTION_BATCH_SIZE must be in [5, 100], got %d", p.BatchSize)
	}
	switch p.SelectionPolicy {
	case SelectNewest, SelectAll:
	default:
		return fmt.Errorf("SELECTION_POLICY must be %q or %q, got %q", SelectNewest, SelectAll, p.SelectionPolicy)
	}
	if (p.FallbackSymbol == "") != (p.FallbackName == "") {
		return fmt.Errorf("FALLBACK_SYMBOL and FALLBACK_NAME must be set together")
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// HasFallback reports whether an explicit fallback suggestion is configured.
func (p Poll) HasFallback() bool {
	return p.FallbackSymbol != "" && p.FallbackName != ""
}

// Validate checks that the selected backend has its connection settings.
func (s Storage) Validate() error {
	switch s.CursorBackend {
	case BackendMemory:
	case BackendPostgres:
		if s.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for cursor backend %q", s.CursorBackend)
		}
	case BackendRedis:
		if s.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for cursor backend %q", s.CursorBackend)
		}
	case BackendSQLite:
		if s.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for cursor backend %q", s.CursorBackend)
		}
	default:
		return fmt.Errorf("unknown CURSOR_BACKEND %q", s.CursorBackend)
	}
	return nil
}

// RequireSigner fails when no deployer key is configured.
func (c Chain) RequireSigner() error {
	if c.PrivateKey == "" {
		return fmt.Errorf("DEPLOYER_PRIVATE_KEY is required to deploy tokens")
	}
	return nil
}

// Validate checks the full bot configuration.
func (b Bot) Validate() error {
	if err := b.Poll.Validate(); err != nil {
		return err
	}
	if err := b.Storage.Validate(); err != nil {
		return err
	}
	return b.Chain.RequireSigner()
}
