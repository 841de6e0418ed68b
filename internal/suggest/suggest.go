// Package suggest derives a token name and symbol from a post's text.
package suggest

import (
	"context"
	"fmt"

	"mention-token-bot/internal/domain"
)

// Provider suggests a token for a post.
// Implementations must not substitute defaults on failure.
type Provider interface {
	Suggest(ctx context.Context, text string) (*domain.TokenSuggestion, error)
}

const promptTemplate = `Suggest a meme coin token symbol (all caps, <=7 chars) and name (<=15 chars) for this viral tweet. Respond in JSON: {"symbol": "...", "name": "..."}
Tweet: "%s"`

// BuildPrompt embeds text into the fixed suggestion prompt.
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}

// ParseError means the completion could not be turned into a suggestion.
type ParseError struct {
	Response string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse suggestion: %s", e.Reason)
}

// ProviderError wraps a failed completion request.
type ProviderError struct {
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion request failed (%d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion request failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
