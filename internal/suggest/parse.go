package suggest

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"

	"mention-token-bot/internal/domain"
)

var objectPattern = regexp.MustCompile(`\{[^}]+\}`)

// Parse extracts a suggestion from a completion body.
// The whole body is tried as JSON first, then the first {...} span in it.
func Parse(body string) (*domain.TokenSuggestion, error) {
	var s domain.TokenSuggestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &s); err != nil {
		span := objectPattern.FindString(body)
		if span == "" {
			return nil, &ParseError{Response: body, Reason: "no JSON object in response"}
		}
		if err := json.Unmarshal([]byte(span), &s); err != nil {
			return nil, &ParseError{Response: body, Reason: "invalid JSON object: " + err.Error()}
		}
	}

	normalized := Normalize(s)
	if normalized.Symbol == "" || normalized.Name == "" {
		return nil, &ParseError{Response: body, Reason: "symbol or name missing"}
	}
	return &normalized, nil
}

// Normalize enforces the factory's symbol and name bounds.
func Normalize(s domain.TokenSuggestion) domain.TokenSuggestion {
	symbol := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s.Symbol)

	return domain.TokenSuggestion{
		Symbol: truncate(strings.ToUpper(symbol), domain.MaxSymbolLength),
		Name:   truncate(strings.TrimSpace(s.Name), domain.MaxNameLength),
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
