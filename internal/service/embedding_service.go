package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

// EmbeddingService turns text into a vector using the first embedding provider that succeeds.
type EmbeddingService struct {
	registry *port.ProviderRegistry
	timeout  time.Duration
}

// NewEmbeddingService creates an embedding orchestrator. timeout bounds each provider attempt
// (zero means no bound beyond ctx).
func NewEmbeddingService(registry *port.ProviderRegistry, timeout time.Duration) *EmbeddingService {
	return &EmbeddingService{registry: registry, timeout: timeout}
}

// Embed tries the preferred providers in order. Ids without embedding support or
// without a credential are skipped. Any failure advances to the next provider.
func (s *EmbeddingService) Embed(ctx context.Context, text string, preferred []domain.ProviderID) (domain.EmbeddingResult, error) {
	candidates := make([]port.EmbeddingProvider, 0, len(preferred))
	for _, id := range preferred {
		p, ok := s.registry.Embedder(id)
		if !ok {
			slog.Warn("embedding provider does not support embeddings, skipping", "provider", id)
			continue
		}
		if !p.Configured() {
			slog.Debug("embedding provider has no credential, skipping", "provider", id)
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return domain.EmbeddingResult{}, port.ErrNoProvidersAvailable
	}

	var lastErr error
	for _, p := range candidates {
		vec, err := s.attempt(ctx, p, text)
		if err == nil {
			slog.Debug("embedding provider succeeded", "provider", p.ID(), "dims", len(vec))
			return domain.EmbeddingResult{Vector: vec, Provider: p.ID()}, nil
		}
		if ctx.Err() != nil {
			return domain.EmbeddingResult{}, ctx.Err()
		}
		slog.Warn("embedding provider failed", "provider", p.ID(), "error", err)
		lastErr = err
	}

	return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", port.ErrNoProvidersAvailable, lastErr)
}

func (s *EmbeddingService) attempt(ctx context.Context, p port.EmbeddingProvider, text string) ([]float32, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return p.Embed(ctx, text)
}

// ValidateVector rejects empty or non-finite vectors and, when dimension > 0,
// vectors of the wrong length.
func ValidateVector(vec []float32, dimension int) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: vector is empty", port.ErrInvalidEmbedding)
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-numeric value at index %d", port.ErrInvalidEmbedding, i)
		}
	}
	if dimension > 0 && len(vec) != dimension {
		return fmt.Errorf("%w: got %d, want %d", port.ErrDimensionMismatch, len(vec), dimension)
	}
	return nil
}
