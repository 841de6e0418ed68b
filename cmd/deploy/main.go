// Package main deploys a token through the factory for one source URL.
// The registry is checked first; -force skips the check.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mention-token-bot/internal/app"
	"mention-token-bot/internal/config"
	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/suggest"
)

func main() {
	name := flag.String("name", "", "Token name (<= 15 chars)")
	symbol := flag.String("symbol", "", "Token symbol (<= 7 chars)")
	sourceURL := flag.String("url", "", "Source post URL")
	sourceUser := flag.String("user", "", "Source post author handle")
	force := flag.Bool("force", false, "Deploy without checking the registry first")
	flag.Parse()

	if *name == "" || *symbol == "" || *sourceURL == "" || *sourceUser == "" {
		fmt.Fprintln(os.Stderr, "usage: deploy -name <name> -symbol <symbol> -url <source url> -user <handle> [-force]")
		os.Exit(1)
	}

	logger := log.New(os.Stderr, "[deploy] ", log.LstdFlags)

	var cfg config.Chain
	if err := config.Load(&cfg); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := app.DialChain(ctx, cfg, true, logger)
	if err != nil {
		logger.Fatalf("Failed to connect chain: %v", err)
	}
	defer c.Close()

	if !*force {
		existing, err := c.Registry.Lookup(ctx, *sourceURL)
		if err != nil {
			logger.Fatalf("Existence check failed: %v", err)
		}
		if existing != nil {
			logger.Printf("Token already exists for %s at %s", *sourceURL, existing.TokenAddress)
			return
		}
	}

	s := suggest.Normalize(domain.TokenSuggestion{Symbol: *symbol, Name: *name})
	d, err := c.Deployer.Deploy(ctx, domain.DeployRequest{
		Name:       s.Name,
		Symbol:     s.Symbol,
		SourceURL:  *sourceURL,
		SourceUser: *sourceUser,
	})
	if err != nil {
		logger.Fatalf("Deploy failed: %v", err)
	}

	fmt.Printf("token:  %s\ntx:     %s\nblock:  %d\n", d.TokenAddress, d.TransactionHash, d.BlockNumber)
}
