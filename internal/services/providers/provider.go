// Package providers contains one adapter per upstream LLM provider. Every
// adapter exposes the same capability: send one chat request, return one
// normalized outcome. Provider-specific message-role conventions and response
// shapes never leak past this package.
package providers

import "context"

// Message is a single role-tagged chat turn.
type Message struct {
	Role    string `json:"role" binding:"required"` // system, user, assistant
	Content string `json:"content" binding:"required"`
	Name    string `json:"name,omitempty"`
}

// Params are the generation parameters forwarded to the provider.
type Params struct {
	Temperature *float64
	MaxTokens   int
}

// Outcome is the normalized result of one provider call. Token counts are
// measured by the provider, not estimated.
type Outcome struct {
	Content      string
	FinishReason string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Adapter is the capability contract every provider implements.
type Adapter interface {
	// Name returns the provider identifier used in the catalog.
	Name() string
	// Invoke sends one chat request. It returns a normalized outcome or an
	// error; it never returns both.
	Invoke(ctx context.Context, modelID string, messages []Message, params Params) (*Outcome, error)
}

// Registry maps provider identifiers to adapters. Lookup is static: an entry
// whose provider has no registered adapter is a configuration error for that
// entry, not a reason to inspect types at runtime.
type Registry map[string]Adapter

// Register adds an adapter under its own name.
func (r Registry) Register(a Adapter) {
	r[a.Name()] = a
}

// Lookup returns the adapter for a provider identifier.
func (r Registry) Lookup(provider string) (Adapter, bool) {
	a, ok := r[provider]
	return a, ok
}
