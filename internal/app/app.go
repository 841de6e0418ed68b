// Package app wires configuration into running components.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"mention-token-bot/internal/config"
	"mention-token-bot/internal/cursor"
	"mention-token-bot/internal/httpapi"
	"mention-token-bot/internal/notify"
	"mention-token-bot/internal/orchestrator"
	"mention-token-bot/internal/social"
	"mention-token-bot/internal/suggest"
)

// App centralizes dependency wiring for the polling service.
type App struct {
	cfg    config.Bot
	logger *log.Logger

	social    *social.HTTPClient
	chain     *Chain
	stores    *Stores
	publisher *notify.KafkaLaunchPublisher

	orchestrator *orchestrator.Orchestrator
	http         *httpapi.Server
}

// NewApp connects every backend and builds the polling loop.
// On error, anything already opened is released.
func NewApp(ctx context.Context, cfg config.Bot, logger *log.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.cleanup()
		}
	}()

	policy, err := cursor.ParsePolicy(cfg.Poll.SelectionPolicy)
	if err != nil {
		return nil, err
	}

	a.social = NewSocialClient(cfg.Social, cfg.Poll)
	botID, err := a.resolveBotID(ctx)
	if err != nil {
		return nil, err
	}

	a.chain, err = DialChain(ctx, cfg.Chain, true, logger)
	if err != nil {
		return nil, fmt.Errorf("connect chain: %w", err)
	}

	a.stores, err = OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}

	var events notify.LaunchPublisher = notify.NopLaunchPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		a.publisher = notify.NewKafkaLaunchPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		events = a.publisher
		logger.Printf("launch events: kafka topic %s", cfg.Kafka.Topic)
	}

	cur := cursor.New(botID, a.stores.Cursors, cursor.Options{Logger: logger})
	if err := cur.Load(ctx); err != nil {
		return nil, err
	}

	processor := NewProcessor(ProcessorDeps{
		Social:    a.social,
		Suggester: suggest.NewOpenAIProvider(cfg.Completion, suggest.OpenAIOptions{Logger: logger}),
		Chain:     a.chain,
		Launches:  a.stores.Launches,
		Events:    events,
		Poll:      cfg.Poll,
		Logger:    logger,
	})

	a.orchestrator = orchestrator.New(orchestrator.Options{
		Mentions:     a.social,
		Processor:    processor,
		Cursor:       cur,
		Outcomes:     a.stores.Outcomes,
		Policy:       policy,
		PollInterval: cfg.Poll.Interval,
		ErrorBackoff: cfg.Poll.ErrorBackoff,
		Logger:       logger,
	})

	a.http = httpapi.New(httpapi.Options{
		Addr:     cfg.HTTP.Addr,
		Status:   a.orchestrator,
		Launches: a.stores.Launches,
		Cycles:   a.stores.Outcomes,
		Tokens:   a.chain.Registry,
		Logger:   logger,
	})

	return a, nil
}

// resolveBotID uses BOT_ID or asks the API who we are.
func (a *App) resolveBotID(ctx context.Context) (string, error) {
	if a.cfg.Poll.BotID != "" {
		return a.cfg.Poll.BotID, nil
	}
	me, err := a.social.Me(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve bot id: %w", err)
	}
	a.logger.Printf("running as @%s (%s)", me.Username, me.ID)
	return me.ID, nil
}

// Run starts the polling loop and the status server and blocks until ctx
// cancellation or a fatal error.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.orchestrator.Run(gctx)
	})

	g.Go(func() error {
		if err := a.http.Run(gctx); err != nil {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (a *App) cleanup() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Printf("error closing kafka publisher: %v", err)
		}
		a.publisher = nil
	}
	if a.stores != nil {
		a.stores.Close()
		a.stores = nil
	}
	if a.chain != nil {
		a.chain.Close()
		a.chain = nil
	}
}
