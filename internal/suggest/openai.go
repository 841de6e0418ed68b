package suggest

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"mention-token-bot/internal/config"
	"mention-token-bot/internal/domain"
)

// Default completion parameters.
const (
	DefaultModel       = "gpt-4o"
	DefaultMaxTokens   = 100
	DefaultTemperature = 0.7
	DefaultTimeout     = 30 * time.Second
)

// OpenAIProvider implements Provider with the chat completions API.
type OpenAIProvider struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
	timeout     time.Duration
	logger      *log.Logger
}

// OpenAIOptions configures OpenAIProvider beyond the env config.
type OpenAIOptions struct {
	Logger         *log.Logger
	RequestOptions []option.RequestOption // appended after the defaults
}

// NewOpenAIProvider creates a provider. SDK retries are disabled; the caller
// decides what to do with a failed suggestion.
func NewOpenAIProvider(cfg config.Completion, opts OpenAIOptions) *OpenAIProvider {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	p := &OpenAIProvider{
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      logger,
	}
	if p.model == "" {
		p.model = DefaultModel
	}
	if p.maxTokens <= 0 {
		p.maxTokens = DefaultMaxTokens
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.temperature < 0 || p.temperature > 2 {
		logger.Printf("temperature %v out of range, using %v", p.temperature, DefaultTemperature)
		p.temperature = DefaultTemperature
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(p.timeout),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts.RequestOptions...)

	p.client = openai.NewClient(reqOpts...)
	return p
}

// Compile-time interface check.
var _ Provider = (*OpenAIProvider)(nil)

// Suggest requests one completion for text and parses it.
func (p *OpenAIProvider) Suggest(ctx context.Context, text string) (*domain.TokenSuggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(text)),
		},
		MaxTokens:   openai.Int(p.maxTokens),
		Temperature: openai.Float(p.temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &ProviderError{StatusCode: apiErr.StatusCode, Err: err}
		}
		return nil, &ProviderError{Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &ParseError{Reason: "completion has no choices"}
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	s, err := Parse(content)
	if err != nil {
		p.logger.Printf("unparseable suggestion (%d bytes)", len(content))
		return nil, err
	}
	return s, nil
}
