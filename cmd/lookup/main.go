// Package main queries the token factory by source URL or by source user.
// With POSTGRES_DSN set, -url also prints the bot's own launch ledger row.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"mention-token-bot/internal/app"
	"mention-token-bot/internal/config"
	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/storage"
	pgstore "mention-token-bot/internal/storage/postgres"
)

type lookupConfig struct {
	Chain   config.Chain
	Storage config.Storage
}

// urlView is the printed form of a -url lookup.
type urlView struct {
	Token  tokenView      `json:"token"`
	Launch *domain.Launch `json:"launch,omitempty"`
}

// tokenView is the printed form of a record.
type tokenView struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	TotalSupply string `json:"total_supply"`
	SourceURL   string `json:"source_url"`
	SourceUser  string `json:"source_user"`
}

func view(r *domain.TokenRecord) tokenView {
	v := tokenView{
		Address:    r.TokenAddress,
		Name:       r.TokenName,
		Symbol:     r.TokenSymbol,
		SourceURL:  r.SourceURL,
		SourceUser: r.SourceUser,
	}
	if r.TotalSupply != nil {
		v.TotalSupply = r.TotalSupply.String()
	}
	return v
}

func main() {
	sourceURL := flag.String("url", "", "Source post URL")
	sourceUser := flag.String("user", "", "Source post author handle")
	count := flag.Bool("count", false, "Print the total number of deployed tokens")
	flag.Parse()

	if *sourceURL == "" && *sourceUser == "" && !*count {
		fmt.Fprintln(os.Stderr, "usage: lookup -url <source url> | -user <handle> | -count")
		os.Exit(1)
	}

	logger := log.New(os.Stderr, "[lookup] ", log.LstdFlags)

	var cfg lookupConfig
	if err := config.Load(&cfg); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	c, err := app.DialChain(ctx, cfg.Chain, false, logger)
	if err != nil {
		logger.Fatalf("Failed to connect chain: %v", err)
	}
	defer c.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	switch {
	case *count:
		n, err := c.Registry.TokenCount(ctx)
		if err != nil {
			logger.Fatalf("Token count failed: %v", err)
		}
		fmt.Println(n.String())

	case *sourceURL != "":
		rec, err := c.Registry.Lookup(ctx, *sourceURL)
		if err != nil {
			logger.Fatalf("Lookup failed: %v", err)
		}
		if rec == nil {
			logger.Printf("No token for %s", *sourceURL)
			os.Exit(2)
		}
		out := urlView{Token: view(rec)}
		if cfg.Storage.PostgresDSN != "" {
			out.Launch = ledgerRow(ctx, cfg.Storage, *sourceURL, logger)
		}
		if err := enc.Encode(out); err != nil {
			logger.Fatalf("Failed to write output: %v", err)
		}

	default:
		recs, err := c.Registry.TokensByUser(ctx, *sourceUser)
		if err != nil {
			logger.Fatalf("Lookup failed: %v", err)
		}
		out := make([]tokenView, 0, len(recs))
		for _, r := range recs {
			out = append(out, view(r))
		}
		if err := enc.Encode(out); err != nil {
			logger.Fatalf("Failed to write output: %v", err)
		}
	}
}

// ledgerRow reads the launch recorded by the bot for sourceURL, if any.
func ledgerRow(ctx context.Context, cfg config.Storage, sourceURL string, logger *log.Logger) *domain.Launch {
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, cfg.PostgresConns)
	if err != nil {
		logger.Printf("Launch ledger unavailable: %v", err)
		return nil
	}
	defer pool.Close()

	l, err := pgstore.NewLaunchStore(pool).GetBySourceURL(ctx, sourceURL)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Printf("Launch ledger lookup failed: %v", err)
		}
		return nil
	}
	return l
}
