package stub

import (
	"context"
	"sync"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/suggest"
)

// Provider returns canned suggestions keyed by post text.
type Provider struct {
	mu sync.Mutex

	ByText  map[string]domain.TokenSuggestion
	Default *domain.TokenSuggestion // used when text has no entry
	Err     error                   // returned by every call when set
	Calls   []string
}

// NewProvider creates an empty stub provider.
func NewProvider() *Provider {
	return &Provider{ByText: make(map[string]domain.TokenSuggestion)}
}

// Compile-time interface check.
var _ suggest.Provider = (*Provider)(nil)

// Suggest returns the canned suggestion for text, or a ParseError.
func (p *Provider) Suggest(_ context.Context, text string) (*domain.TokenSuggestion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, text)
	if p.Err != nil {
		return nil, p.Err
	}
	if s, ok := p.ByText[text]; ok {
		return &s, nil
	}
	if p.Default != nil {
		s := *p.Default
		return &s, nil
	}
	return nil, &suggest.ParseError{Response: "", Reason: "no canned suggestion"}
}
