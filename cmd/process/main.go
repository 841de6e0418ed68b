// Package main processes a single mention once:
//
//	process <mentionId> <originalPostId>
//
// Exit code 1 only for missing arguments or configuration; pipeline failures
// are logged and exit 0.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mention-token-bot/internal/app"
	"mention-token-bot/internal/config"
	"mention-token-bot/internal/pipeline"
	"mention-token-bot/internal/storage/memory"
	"mention-token-bot/internal/suggest"
)

type processConfig struct {
	Social     config.Social
	Completion config.Completion
	Chain      config.Chain
	Poll       config.Poll
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: process <mentionId> <originalPostId>")
}

func main() {
	if len(os.Args) < 3 || os.Args[1] == "" || os.Args[2] == "" {
		usage()
		os.Exit(1)
	}
	job := pipeline.Job{MentionID: os.Args[1], PostID: os.Args[2]}

	logger := log.New(os.Stderr, "[process] ", log.LstdFlags)

	var cfg processConfig
	if err := config.Load(&cfg); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Poll.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chainClient, err := app.DialChain(ctx, cfg.Chain, true, logger)
	if err != nil {
		logger.Fatalf("Failed to connect chain: %v", err)
	}
	defer chainClient.Close()

	processor := app.NewProcessor(app.ProcessorDeps{
		Social:    app.NewSocialClient(cfg.Social, cfg.Poll),
		Suggester: suggest.NewOpenAIProvider(cfg.Completion, suggest.OpenAIOptions{Logger: logger}),
		Chain:     chainClient,
		Launches:  memory.NewLaunchStore(),
		Poll:      cfg.Poll,
		Logger:    logger,
	})

	res, err := processor.Process(ctx, job)
	if err != nil {
		logger.Printf("Failed to process mention %s: %v", job.MentionID, err)
		return
	}

	switch res.Status {
	case pipeline.StatusDeployed:
		logger.Printf("Deployed %s (%s) at %s, tx %s",
			res.Launch.TokenName, res.Launch.TokenSymbol, res.Launch.TokenAddress, res.Launch.TransactionHash)
	case pipeline.StatusExists:
		logger.Printf("Token already exists for %s at %s", res.SourceURL, res.Existing.TokenAddress)
	default:
		logger.Printf("Mention %s ended with %s: %v", job.MentionID, res.Status, res.Err)
	}
}
