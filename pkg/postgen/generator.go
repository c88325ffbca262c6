// Package postgen turns a topic and a tone into an AI-written post draft.
//
// A generation is one chat completion call: a fixed system prompt plus a user
// turn naming the topic and style. Retries and timeouts belong to the provider.
// Every failure past validation surfaces as a GenerationError carrying the
// user-facing prefix.
package postgen

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/inkwell/pkg/llm"
	"github.com/papercomputeco/inkwell/pkg/merkle"
	"github.com/papercomputeco/inkwell/pkg/metrics"
	"github.com/papercomputeco/inkwell/pkg/ratelimit"
)

// ProviderFactory returns the provider to use for a generation. It is called
// per request so a missing API key is reported as a generation failure rather
// than preventing startup.
type ProviderFactory func() (llm.Provider, error)

// Static returns a factory that always yields p.
func Static(p llm.Provider) ProviderFactory {
	return func() (llm.Provider, error) { return p, nil }
}

// DraftStore receives the lineage of each successful generation.
type DraftStore interface {
	PutDraft(ctx context.Context, node *merkle.Node) (bool, error)
}

// Result is a generated draft.
type Result struct {
	Content          string `json:"content"`
	DraftHash        string `json:"draft_hash,omitempty"`
	Model            string `json:"model,omitempty"`
	Style            Style  `json:"style"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
}

// Generator runs post generations.
type Generator struct {
	newProvider ProviderFactory
	drafts      DraftStore
	limiter     *ratelimit.Limiter
	metrics     metrics.Collector
	logger      *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithDrafts records the lineage of every generated draft in store.
func WithDrafts(store DraftStore) Option {
	return func(g *Generator) { g.drafts = store }
}

// WithLimiter applies a per-user rate limit.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(g *Generator) { g.limiter = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c metrics.Collector) Option {
	return func(g *Generator) { g.metrics = c }
}

// New creates a Generator.
func New(factory ProviderFactory, logger *zap.Logger, opts ...Option) *Generator {
	g := &Generator{
		newProvider: factory,
		metrics:     metrics.NewNoopCollector(),
		logger:      logger,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate validates req, calls the model once and returns its text.
func (g *Generator) Generate(ctx context.Context, userID string, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		g.metrics.RecordError(ctx, "generate", "validation")
		return nil, err
	}

	if !g.limiter.Allow(userID) {
		g.metrics.RecordError(ctx, "generate", "rate_limited")
		g.logger.Warn("generation rate limited", zap.String("user_id", userID))
		return nil, ErrRateLimited
	}

	start := time.Now()
	resp, err := g.complete(ctx, req)
	if err != nil {
		g.metrics.RecordGeneration(ctx, string(req.Style), "error", time.Since(start))
		g.metrics.RecordError(ctx, "generate", errorType(err))
		g.logger.Error("post generation failed",
			zap.String("user_id", userID),
			zap.String("style", string(req.Style)),
			zap.Error(err),
		)
		return nil, &GenerationError{Cause: err}
	}

	g.metrics.RecordGeneration(ctx, string(req.Style), "success", time.Since(start))
	g.metrics.RecordTokens(ctx, resp.PromptTokens, resp.CompletionTokens)

	result := &Result{
		Content:          resp.Content,
		Model:            resp.Model,
		Style:            req.Style,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
	}

	// A lineage write failure never fails the generation.
	if g.drafts != nil {
		hash, err := g.storeDraft(ctx, req, resp)
		if err != nil {
			g.metrics.RecordError(ctx, "generate", "draft_storage")
			g.logger.Error("failed to store draft", zap.Error(err))
		} else {
			result.DraftHash = hash
		}
	}

	g.logger.Info("post generated",
		zap.String("user_id", userID),
		zap.String("style", string(req.Style)),
		zap.String("model", resp.Model),
		zap.Int("completion_tokens", resp.CompletionTokens),
		zap.Duration("duration", time.Since(start)),
	)

	return result, nil
}

func (g *Generator) complete(ctx context.Context, req Request) (*llm.Response, error) {
	provider, err := g.newProvider()
	if err != nil {
		return nil, err
	}
	return provider.Complete(ctx, req.Messages())
}

func (g *Generator) storeDraft(ctx context.Context, req Request, resp *llm.Response) (string, error) {
	nodes := merkle.Chain(
		merkle.Bucket{Role: string(llm.RoleSystem), Content: SystemPrompt},
		merkle.Bucket{Role: string(llm.RoleUser), Content: req.UserPrompt(), Style: string(req.Style)},
		merkle.Bucket{Role: string(llm.RoleAssistant), Content: resp.Content, Model: resp.Model, Style: string(req.Style)},
	)

	for _, n := range nodes {
		isNew, err := g.drafts.PutDraft(ctx, n)
		if err != nil {
			return "", err
		}
		g.logger.Debug("stored draft node",
			zap.String("hash", n.Hash[:16]),
			zap.String("role", n.Bucket.Role),
			zap.Bool("new", isNew),
		)
	}

	return nodes[len(nodes)-1].Hash, nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "upstream"
	}
}
