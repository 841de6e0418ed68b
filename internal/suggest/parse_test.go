package suggest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mention-token-bot/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want domain.TokenSuggestion
	}{
		{
			name: "plain json",
			body: `{"symbol": "PRESSF", "name": "PayRespects"}`,
			want: domain.TokenSuggestion{Symbol: "PRESSF", Name: "PayRespects"},
		},
		{
			name: "json inside prose",
			body: "Sure! Here you go: {\"symbol\": \"DOGE2\", \"name\": \"Doge Two\"} Enjoy.",
			want: domain.TokenSuggestion{Symbol: "DOGE2", Name: "Doge Two"},
		},
		{
			name: "fenced block",
			body: "```json\n{\"symbol\": \"CAT\", \"name\": \"Cat Coin\"}\n```",
			want: domain.TokenSuggestion{Symbol: "CAT", Name: "Cat Coin"},
		},
		{
			name: "normalized",
			body: `{"symbol": "moon shot coin", "name": "  The Moonshot Coin Of Legends  "}`,
			want: domain.TokenSuggestion{Symbol: "MOONSHO", Name: "The Moonshot Co"},
		},
		{
			name: "first object wins",
			body: `a {"symbol": "ONE", "name": "First"} b {"symbol": "TWO", "name": "Second"}`,
			want: domain.TokenSuggestion{Symbol: "ONE", Name: "First"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no object", "I cannot help with that."},
		{"broken object", `{"symbol": PRESSF}`},
		{"missing name", `{"symbol": "PRESSF"}`},
		{"blank symbol", `{"symbol": "   ", "name": "Blank"}`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.body)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "expected ParseError, got %v", err)
			assert.Equal(t, tt.body, pe.Response)
		})
	}
}

func TestNormalize_MultibyteTruncation(t *testing.T) {
	got := Normalize(domain.TokenSuggestion{Symbol: "ñandú€€€€", Name: "ünïcödé ñame that is long"})
	assert.Equal(t, "ÑANDÚ€€", got.Symbol)
	assert.Equal(t, []rune("ünïcödé ñame th"), []rune(got.Name))
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("gm")
	assert.Contains(t, p, `Respond in JSON: {"symbol": "...", "name": "..."}`)
	assert.Contains(t, p, "\nTweet: \"gm\"")
}
