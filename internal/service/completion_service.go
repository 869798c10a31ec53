package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

// CompletionService answers a prompt with the first completion provider that succeeds,
// moving on only when a provider is busy, out of credit, down locally or timed out.
type CompletionService struct {
	registry *port.ProviderRegistry
	timeout  time.Duration
}

// NewCompletionService creates a completion orchestrator.
func NewCompletionService(registry *port.ProviderRegistry, timeout time.Duration) *CompletionService {
	return &CompletionService{registry: registry, timeout: timeout}
}

// Complete tries the preferred providers in order.
//
// An unknown id or a non-retryable failure is returned as is. Providers without a
// credential are skipped. When every attempted provider failed retry-worthily the
// result is port.ErrAllProvidersRateLimited; when nothing could be attempted it is
// port.ErrNoProvidersAvailable.
func (s *CompletionService) Complete(ctx context.Context, prompt string, preferred []domain.ProviderID) (domain.CompletionResult, error) {
	attempted := 0
	var lastErr error

	for _, id := range preferred {
		p, ok := s.registry.Completer(id)
		if !ok {
			return domain.CompletionResult{}, port.NewProviderError(id, port.ErrUnsupportedProvider, 0, nil)
		}
		if !p.Configured() {
			slog.Info("completion provider has no credential, skipping", "provider", id)
			continue
		}

		attempted++
		text, err := s.attempt(ctx, p, prompt)
		if err == nil {
			slog.Info("completion provider succeeded", "provider", id)
			return domain.CompletionResult{Text: text, Provider: id}, nil
		}
		if ctx.Err() != nil {
			return domain.CompletionResult{}, ctx.Err()
		}
		if !port.IsRetryWorthy(err) {
			slog.Error("completion provider failed", "provider", id, "error", err)
			return domain.CompletionResult{}, err
		}
		slog.Warn("completion provider unavailable, trying next", "provider", id, "error", err)
		lastErr = err
	}

	if attempted == 0 {
		return domain.CompletionResult{}, port.ErrNoProvidersAvailable
	}
	return domain.CompletionResult{}, fmt.Errorf("%w: %w", port.ErrAllProvidersRateLimited, lastErr)
}

func (s *CompletionService) attempt(ctx context.Context, p port.CompletionProvider, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return p.Complete(ctx, prompt)
}
