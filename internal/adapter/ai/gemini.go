package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

// DefaultGeminiBaseURL is the Generative Language API root.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	BaseURL    string
	APIKey     string
	ChatModel  string // e.g. gemini-1.5-pro-latest
	EmbedModel string // e.g. embedding-001
	MaxTokens  int
	HTTPClient *http.Client
}

// GeminiProvider implements embeddings and completions against the Gemini REST API.
// The key travels in the x-goog-api-key header so it never shows up in error URLs.
type GeminiProvider struct {
	cfg        GeminiConfig
	httpClient *http.Client
}

// NewGeminiProvider creates a Gemini adapter.
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &GeminiProvider{cfg: cfg, httpClient: client}
}

// ID returns "gemini".
func (g *GeminiProvider) ID() domain.ProviderID {
	return domain.ProviderGemini
}

// Configured reports whether GEMINI_API_KEY is set.
func (g *GeminiProvider) Configured() bool {
	return g.cfg.APIKey != ""
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// Embed calls models/{model}:embedContent.
func (g *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]any{
		"content": geminiContent{Parts: []geminiPart{{Text: text}}},
	}

	body, err := g.post(ctx, g.cfg.EmbedModel, "embedContent", payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Embedding struct {
			Values []float32 `json:"values"`
		} `json:"embedding"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, malformed(domain.ProviderGemini, "decode embedding: %v", err)
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, malformed(domain.ProviderGemini, "empty embedding")
	}
	return resp.Embedding.Values, nil
}

// Complete calls models/{model}:generateContent and extracts the first part of the first candidate.
func (g *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"contents": []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	if g.cfg.MaxTokens > 0 {
		payload["generationConfig"] = map[string]any{"maxOutputTokens": g.cfg.MaxTokens}
	}

	body, err := g.post(ctx, g.cfg.ChatModel, "generateContent", payload)
	if err != nil {
		return "", err
	}
	return extractGeminiText(body)
}

// extractGeminiText normalizes candidates[0].content.parts[0] to text. A part
// without a text field is returned as its raw JSON.
func extractGeminiText(body []byte) (string, error) {
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []json.RawMessage `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", malformed(domain.ProviderGemini, "decode completion: %v", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", malformed(domain.ProviderGemini, "unexpected response structure: %s", truncate(string(body), 200))
	}

	raw := resp.Candidates[0].Content.Parts[0]
	var part geminiPart
	if err := json.Unmarshal(raw, &part); err == nil && part.Text != "" {
		return part.Text, nil
	}
	if s := strings.TrimSpace(string(raw)); s != "" && s != "null" && s != "{}" {
		return s, nil
	}
	return "", malformed(domain.ProviderGemini, "candidate part has no content")
}

func (g *GeminiProvider) post(ctx context.Context, model, method string, payload any) ([]byte, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:%s", strings.TrimRight(g.cfg.BaseURL, "/"), model, method)
	headers := map[string]string{"x-goog-api-key": g.cfg.APIKey}
	return postJSON(ctx, g.httpClient, domain.ProviderGemini, false, url, headers, payload)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var (
	_ port.EmbeddingProvider  = (*GeminiProvider)(nil)
	_ port.CompletionProvider = (*GeminiProvider)(nil)
)
