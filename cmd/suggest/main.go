// Package main prints a token suggestion for a piece of text.
// Text comes from -text or, when omitted, from stdin.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"mention-token-bot/internal/config"
	"mention-token-bot/internal/suggest"
)

func main() {
	text := flag.String("text", "", "Post text to tokenize (default: read stdin)")
	flag.Parse()

	logger := log.New(os.Stderr, "[suggest] ", log.LstdFlags)

	input := *text
	if input == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Fatalf("Failed to read stdin: %v", err)
		}
		input = strings.TrimSpace(string(data))
	}
	if input == "" {
		fmt.Fprintln(os.Stderr, "usage: suggest -text <post text>  (or pipe text on stdin)")
		os.Exit(1)
	}

	var cfg config.Completion
	if err := config.Load(&cfg); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	provider := suggest.NewOpenAIProvider(cfg, suggest.OpenAIOptions{Logger: logger})
	s, err := provider.Suggest(context.Background(), input)
	if err != nil {
		logger.Fatalf("Suggestion failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		logger.Fatalf("Failed to write output: %v", err)
	}
}
