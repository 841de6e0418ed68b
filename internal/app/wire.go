package app

import (
	"context"
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/ethclient"
	goredis "github.com/redis/go-redis/v9"

	"mention-token-bot/internal/chain"
	"mention-token-bot/internal/config"
	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/notify"
	"mention-token-bot/internal/pipeline"
	"mention-token-bot/internal/social"
	"mention-token-bot/internal/storage"
	chstore "mention-token-bot/internal/storage/clickhouse"
	"mention-token-bot/internal/storage/memory"
	"mention-token-bot/internal/storage/migrations"
	pgstore "mention-token-bot/internal/storage/postgres"
	redisstore "mention-token-bot/internal/storage/redis"
	sqlitestore "mention-token-bot/internal/storage/sqlite"
	"mention-token-bot/internal/suggest"
)

// cycleHistory bounds the in-memory cycle outcome ring.
const cycleHistory = 1000

// Chain holds the node connection and the factory components built on it.
type Chain struct {
	Client   *ethclient.Client
	Factory  *chain.Factory
	Registry *chain.Registry
	Deployer *chain.Deployer // nil unless a signer was requested
}

// Close releases the node connection.
func (c *Chain) Close() {
	c.Client.Close()
}

// DialChain connects to the RPC node and binds the factory.
// withSigner also builds a Deployer from the configured private key.
func DialChain(ctx context.Context, cfg config.Chain, withSigner bool, logger *log.Logger) (*Chain, error) {
	if withSigner {
		if err := cfg.RequireSigner(); err != nil {
			return nil, err
		}
	}

	client, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return nil, err
	}

	factory, err := chain.NewFactory(cfg.FactoryAddress, client)
	if err != nil {
		client.Close()
		return nil, err
	}
	registry := chain.NewRegistry(factory, chain.RegistryOptions{CallTimeout: cfg.CallTimeout, Logger: logger})
	c := &Chain{Client: client, Factory: factory, Registry: registry}

	if !withSigner {
		return c, nil
	}

	signer, err := chain.NewSigner(ctx, cfg.PrivateKey, cfg.ChainID, client)
	if err != nil {
		client.Close()
		return nil, err
	}
	logger.Printf("deployer account %s", signer.From.Hex())
	c.Deployer = chain.NewDeployer(chain.DeployerOptions{
		Transactor:     factory,
		Waiter:         chain.MinedWaiter{Backend: client},
		Lookup:         registry,
		Signer:         signer,
		SendTimeout:    cfg.CallTimeout,
		ConfirmTimeout: cfg.ConfirmTimeout,
		Logger:         logger,
	})
	return c, nil
}

// NewSocialClient builds the mentions API client from config.
func NewSocialClient(s config.Social, p config.Poll) *social.HTTPClient {
	return social.NewHTTPClient(s,
		social.WithBatchSize(p.BatchSize),
		social.WithMentionWindow(p.MentionWindow),
		social.WithRateLimit(s.RequestsPerSecond),
	)
}

// Fallback returns the configured fallback suggestion, or nil.
func Fallback(p config.Poll) *domain.TokenSuggestion {
	if !p.HasFallback() {
		return nil
	}
	s := suggest.Normalize(domain.TokenSuggestion{Symbol: p.FallbackSymbol, Name: p.FallbackName})
	return &s
}

// ProcessorDeps are the collaborators of a pipeline.Processor.
type ProcessorDeps struct {
	Social    social.Client
	Suggester suggest.Provider
	Chain     *Chain
	Launches  storage.LaunchStore
	Events    notify.LaunchPublisher
	Poll      config.Poll
	Logger    *log.Logger
}

// NewProcessor assembles the per-mention pipeline.
func NewProcessor(d ProcessorDeps) *pipeline.Processor {
	return pipeline.New(pipeline.Options{
		Posts:             d.Social,
		Suggester:         d.Suggester,
		Registry:          d.Chain.Registry,
		Deployer:          d.Chain.Deployer,
		Announcer:         notify.NewReplyPublisher(d.Social, d.Logger),
		Launches:          d.Launches,
		Events:            d.Events,
		CheckBeforeDeploy: d.Poll.CheckBeforeDeploy,
		Fallback:          Fallback(d.Poll),
		Logger:            d.Logger,
	})
}

// Stores groups the persistence backends selected by config.
type Stores struct {
	Cursors  storage.CursorStore
	Launches storage.LaunchStore
	Outcomes storage.CycleOutcomeStore

	closers []func()
}

// Close releases every opened backend.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStores connects the configured backends and applies migrations.
// Launches go to PostgreSQL and cycle outcomes to ClickHouse when their DSNs
// are set; otherwise both stay in memory.
func OpenStores(ctx context.Context, cfg config.Storage, logger *log.Logger) (*Stores, error) {
	s := &Stores{}

	var pool *pgstore.Pool
	if cfg.PostgresDSN != "" {
		var err error
		pool, err = pgstore.NewPool(ctx, cfg.PostgresDSN, cfg.PostgresConns)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.Launches = pgstore.NewLaunchStore(pool)
		logger.Println("launch ledger: postgres")
	} else {
		s.Launches = memory.NewLaunchStore()
		logger.Println("launch ledger: memory")
	}

	switch cfg.CursorBackend {
	case config.BackendMemory:
		s.Cursors = memory.NewCursorStore()
	case config.BackendPostgres:
		if pool == nil {
			s.Close()
			return nil, fmt.Errorf("cursor backend %q requires POSTGRES_DSN", cfg.CursorBackend)
		}
		s.Cursors = pgstore.NewCursorStore(pool)
	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		s.closers = append(s.closers, func() {
			if err := client.Close(); err != nil {
				logger.Printf("close redis: %v", err)
			}
		})
		if err := client.Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		s.Cursors = redisstore.NewCursorStore(client, cfg.RedisKeyPrefix)
	case config.BackendSQLite:
		store, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() {
			if err := store.Close(); err != nil {
				logger.Printf("close sqlite: %v", err)
			}
		})
		s.Cursors = store
	default:
		s.Close()
		return nil, fmt.Errorf("unknown cursor backend %q", cfg.CursorBackend)
	}
	logger.Printf("cursor store: %s", cfg.CursorBackend)

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		s.closers = append(s.closers, func() {
			if err := conn.Close(); err != nil {
				logger.Printf("close clickhouse: %v", err)
			}
		})
		s.Outcomes = chstore.NewCycleOutcomeStore(conn)
		logger.Println("cycle history: clickhouse")
	} else {
		s.Outcomes = memory.NewCycleOutcomeStore(cycleHistory)
		logger.Println("cycle history: memory")
	}

	return s, nil
}
