package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

const maxErrorBody = 512

// postJSON sends payload to url and returns the raw body of a 200 response.
// Non-200 statuses and transport failures come back as *port.ProviderError.
func postJSON(ctx context.Context, client *http.Client, provider domain.ProviderID, local bool, url string, headers map[string]string, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, provider, local, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, classifyStatus(provider, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(ctx, provider, local, err)
	}
	return body, nil
}

// classifyStatus maps an HTTP error status onto the provider failure taxonomy.
func classifyStatus(provider domain.ProviderID, status int, detail string) error {
	var kind error
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = port.ErrUnauthorized
	case http.StatusPaymentRequired:
		kind = port.ErrPaymentRequired
	case http.StatusTooManyRequests:
		kind = port.ErrRateLimited
	default:
		kind = port.ErrUpstream
	}
	var cause error
	if detail != "" {
		cause = errors.New(detail)
	}
	return port.NewProviderError(provider, kind, status, cause)
}

// classifyTransport maps a failure that produced no HTTP response.
// Connection refused is only recoverable for providers running on this host.
func classifyTransport(ctx context.Context, provider domain.ProviderID, local bool, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return port.NewProviderError(provider, port.ErrTimeout, 0, err)
	case local && errors.Is(err, syscall.ECONNREFUSED):
		return port.NewProviderError(provider, port.ErrConnectionRefused, 0, err)
	default:
		return port.NewProviderError(provider, port.ErrUpstream, 0, err)
	}
}

func malformed(provider domain.ProviderID, format string, args ...any) error {
	return port.NewProviderError(provider, port.ErrMalformedResponse, 0, fmt.Errorf(format, args...))
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
