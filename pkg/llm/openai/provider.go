// Package openai implements llm.Provider on top of the official OpenAI Go SDK.
// Any OpenAI-compatible endpoint works, GitHub Models being the default.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/papercomputeco/inkwell/pkg/llm"
)

const (
	DefaultBaseURL    = "https://models.github.ai/inference"
	DefaultModel      = "openai/gpt-4.1"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 1
)

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not configured")

// Provider is an llm.Provider backed by the chat completions API.
type Provider struct {
	client     openai.Client
	model      string
	timeout    time.Duration
	maxRetries int
}

// Option configures a Provider.
type Option func(*config)

type config struct {
	model      string
	apiKey     string
	baseURL    string
	timeout    time.Duration
	maxRetries int
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *config) {
		if model != "" {
			c.model = model
		}
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *config) { c.apiKey = key }
}

// WithBaseURL points the provider at a different OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets how many times a failed attempt is retried.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// New creates a Provider. Unlike the SDK it does not fall back to the
// environment: a missing key is reported as ErrMissingAPIKey.
func New(opts ...Option) (*Provider, error) {
	cfg := config{
		model:      DefaultModel,
		baseURL:    DefaultBaseURL,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
	}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.apiKey),
		option.WithBaseURL(cfg.baseURL),
		option.WithRequestTimeout(cfg.timeout),
		option.WithMaxRetries(cfg.maxRetries),
	)

	return &Provider{
		client:     client,
		model:      cfg.model,
		timeout:    cfg.timeout,
		maxRetries: cfg.maxRetries,
	}, nil
}

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.model
}

// Timeout returns the per-attempt request timeout.
func (p *Provider) Timeout() time.Duration {
	return p.timeout
}

// MaxRetries returns how many times a failed attempt is retried.
func (p *Provider) MaxRetries() int {
	return p.maxRetries
}

// Complete sends one chat completion request and returns the first choice.
func (p *Provider) Complete(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: toOpenAIMessages(messages),
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	return &llm.Response{
		Model:            completion.Model,
		Content:          completion.Choices[0].Message.Content,
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
	}, nil
}

func toOpenAIMessages(msgs []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, len(msgs))
	for i, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			out[i] = openai.SystemMessage(m.Content)
		case llm.RoleAssistant:
			out[i] = openai.AssistantMessage(m.Content)
		default:
			out[i] = openai.UserMessage(m.Content)
		}
	}
	return out
}
