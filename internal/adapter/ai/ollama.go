package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

// OllamaEndpointConfig holds the configuration for a single Ollama endpoint.
type OllamaEndpointConfig struct {
	BaseURL string // e.g. http://localhost:11434 or https://ollama.com
	Model   string // e.g. nomic-embed-text, llama3
	Token   string // Bearer token for Ollama Cloud (empty = no auth)
}

// OllamaProvider implements embeddings and completions using the native Ollama REST API.
// Supports separate endpoints for embed vs chat (different URLs, models, and tokens).
type OllamaProvider struct {
	embed      OllamaEndpointConfig
	chat       OllamaEndpointConfig
	maxTokens  int
	httpClient *http.Client
}

// NewOllamaProvider creates a new Ollama-backed provider with separate embed/chat configs.
func NewOllamaProvider(embed, chat OllamaEndpointConfig, maxTokens int, client *http.Client) *OllamaProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaProvider{
		embed:      embed,
		chat:       chat,
		maxTokens:  maxTokens,
		httpClient: client,
	}
}

// ID returns "ollama".
func (o *OllamaProvider) ID() domain.ProviderID {
	return domain.ProviderOllama
}

// Configured is always true: a local daemon needs no credential and a cloud
// endpoint is only selected when a token is present.
func (o *OllamaProvider) Configured() bool {
	return true
}

// Embed generates a vector embedding for the given text.
func (o *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]any{
		"model": o.embed.Model,
		"input": text,
	}

	body, err := o.post(ctx, o.embed, "/api/embed", payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, malformed(domain.ProviderOllama, "decode embedding: %v", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, malformed(domain.ProviderOllama, "empty embedding")
	}

	return resp.Embeddings[0], nil
}

// Complete sends the prompt as a single user message and returns the reply.
func (o *OllamaProvider) Complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model": o.chat.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream": false,
	}
	if o.maxTokens > 0 {
		payload["options"] = map[string]any{"num_predict": o.maxTokens}
	}

	body, err := o.post(ctx, o.chat, "/api/chat", payload)
	if err != nil {
		return "", err
	}

	var resp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", malformed(domain.ProviderOllama, "decode chat: %v", err)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return "", malformed(domain.ProviderOllama, "empty message content")
	}

	return resp.Message.Content, nil
}

// post is a helper for POST requests to an Ollama endpoint (with optional bearer token).
// An endpoint without a token is treated as a local daemon.
func (o *OllamaProvider) post(ctx context.Context, cfg OllamaEndpointConfig, path string, payload any) ([]byte, error) {
	var headers map[string]string
	if cfg.Token != "" {
		headers = map[string]string{"Authorization": "Bearer " + cfg.Token}
	}
	url := strings.TrimRight(cfg.BaseURL, "/") + path
	return postJSON(ctx, o.httpClient, domain.ProviderOllama, cfg.Token == "", url, headers, payload)
}

var (
	_ port.EmbeddingProvider  = (*OllamaProvider)(nil)
	_ port.CompletionProvider = (*OllamaProvider)(nil)
)
