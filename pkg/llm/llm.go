// Package llm provides internal representations of chat completion requests
// and responses, independent of the hosted API that serves them.
package llm

import "context"

// Provider performs a single chat completion call.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (*Response, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, messages []Message) (*Response, error)

// Complete calls f.
func (f ProviderFunc) Complete(ctx context.Context, messages []Message) (*Response, error) {
	return f(ctx, messages)
}
