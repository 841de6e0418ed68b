// Package main runs the mention polling service:
// - Polling loop: mentions → suggestion → deploy → reply
// - Status server: /health, /status, /launches, /cycles, /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mention-token-bot/internal/app"
	"mention-token-bot/internal/config"
)

// shutdownGrace bounds the wait for the current cycle after a signal.
const shutdownGrace = 30 * time.Second

func main() {
	httpAddr := flag.String("http-addr", "", "Status server address (overrides HTTP_ADDR)")
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lshortfile)

	var cfg config.Bot
	if err := config.Load(&cfg); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Channel to signal completion
	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, finishing current cycle...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(shutdownGrace):
			logger.Printf("Graceful shutdown timed out after %s, forcing exit", shutdownGrace)
			os.Exit(1)
		case <-done:
		}
	}()

	bot, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to start: %v", err)
	}

	err = bot.Run(ctx)
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Bot error: %v", err)
	}
	logger.Println("Shutdown complete")
}
