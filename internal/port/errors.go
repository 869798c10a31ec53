package port

import (
	"errors"
	"fmt"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
)

// Sentinel errors used across ports.
var (
	// Provider failure kinds.
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRateLimited         = errors.New("rate limited")
	ErrPaymentRequired     = errors.New("payment required")
	ErrConnectionRefused   = errors.New("connection refused")
	ErrUnsupportedProvider = errors.New("provider not supported")
	ErrMalformedResponse   = errors.New("malformed provider response")
	ErrTimeout             = errors.New("provider timed out")
	ErrUpstream            = errors.New("provider request failed")

	// Orchestration outcomes.
	ErrNoProvidersAvailable    = errors.New("no providers available")
	ErrAllProvidersRateLimited = errors.New("all LLM providers are currently rate limited")

	// Ingestion.
	ErrEmptyChunkSet      = errors.New("no text chunks found")
	ErrInvalidEmbedding   = errors.New("invalid embedding")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrUnsupportedContent = errors.New("unsupported content")

	// Lookups.
	ErrSourceNotFound  = errors.New("source not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrAPIKeyNotFound  = errors.New("API key not found")
	ErrAPIKeyExists    = errors.New("API key already exists")
)

// ProviderError is a classified failure of a single provider call.
// errors.Is matches both the Kind sentinel and the underlying cause.
type ProviderError struct {
	Provider   domain.ProviderID
	Kind       error
	StatusCode int
	Err        error
}

// NewProviderError builds a ProviderError; cause may be nil.
func NewProviderError(provider domain.ProviderID, kind error, status int, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, StatusCode: status, Err: cause}
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsRetryWorthy reports whether a completion failure should advance to the next provider
// instead of aborting the request.
func IsRetryWorthy(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrPaymentRequired) ||
		errors.Is(err, ErrConnectionRefused) ||
		errors.Is(err, ErrTimeout)
}
