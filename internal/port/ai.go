package port

import (
	"context"
	"slices"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
)

// Provider is the part shared by every external model adapter.
type Provider interface {
	// ID returns the registry key of this provider (e.g. "openai", "gemini").
	ID() domain.ProviderID

	// Configured reports whether the credential needed to call the provider is present.
	// Local providers that need no credential always report true.
	Configured() bool
}

// EmbeddingProvider turns text into a vector. It makes exactly one outbound
// call per invocation and classifies failures as *ProviderError.
type EmbeddingProvider interface {
	Provider
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CompletionProvider answers a single-turn prompt with plain text.
type CompletionProvider interface {
	Provider
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProviderRegistry maps provider ids to capability-typed adapters.
type ProviderRegistry struct {
	embedders  map[domain.ProviderID]EmbeddingProvider
	completers map[domain.ProviderID]CompletionProvider
	order      []domain.ProviderID
}

// NewProviderRegistry returns an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		embedders:  make(map[domain.ProviderID]EmbeddingProvider),
		completers: make(map[domain.ProviderID]CompletionProvider),
	}
}

// Register adds p under its ID for every capability it implements.
func (r *ProviderRegistry) Register(p Provider) {
	id := p.ID()
	if e, ok := p.(EmbeddingProvider); ok {
		r.embedders[id] = e
	}
	if c, ok := p.(CompletionProvider); ok {
		r.completers[id] = c
	}
	if !slices.Contains(r.order, id) {
		r.order = append(r.order, id)
	}
}

// Embedder returns the embedding adapter registered for id.
func (r *ProviderRegistry) Embedder(id domain.ProviderID) (EmbeddingProvider, bool) {
	e, ok := r.embedders[id]
	return e, ok
}

// Completer returns the completion adapter registered for id.
func (r *ProviderRegistry) Completer(id domain.ProviderID) (CompletionProvider, bool) {
	c, ok := r.completers[id]
	return c, ok
}

// IDs returns registered provider ids in registration order.
func (r *ProviderRegistry) IDs() []domain.ProviderID {
	return slices.Clone(r.order)
}
