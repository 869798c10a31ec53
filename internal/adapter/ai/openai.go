package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

// OpenAIConfig configures an OpenAI-compatible endpoint (OpenAI, OpenRouter,
// DeepSeek, LM Studio).
type OpenAIConfig struct {
	ID         domain.ProviderID
	BaseURL    string // e.g. https://api.openai.com/v1/
	APIKey     string
	ChatModel  string
	EmbedModel string // empty = the endpoint is not used for embeddings
	Dimensions int    // requested output size for models that support it
	MaxTokens  int
	Local      bool // runs on this host; needs no credential
	HTTPClient *http.Client
}

// OpenAIChatProvider implements port.CompletionProvider for OpenAI-compatible
// chat completion APIs via the official SDK.
type OpenAIChatProvider struct {
	cfg    OpenAIConfig
	client openai.Client
}

// OpenAIProvider adds embeddings to OpenAIChatProvider.
type OpenAIProvider struct {
	*OpenAIChatProvider
}

// NewOpenAIProvider returns a completion-only adapter, or a completion and
// embedding adapter when cfg.EmbedModel is set.
func NewOpenAIProvider(cfg OpenAIConfig) port.Provider {
	chat := newOpenAIChatProvider(cfg)
	if cfg.EmbedModel == "" {
		return chat
	}
	return &OpenAIProvider{OpenAIChatProvider: chat}
}

func newOpenAIChatProvider(cfg OpenAIConfig) *OpenAIChatProvider {
	apiKey := cfg.APIKey
	if cfg.Local && apiKey == "" {
		apiKey = string(cfg.ID)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &OpenAIChatProvider{
		cfg:    cfg,
		client: openai.NewClient(opts...),
	}
}

// ID returns the registry key of this endpoint.
func (p *OpenAIChatProvider) ID() domain.ProviderID {
	return p.cfg.ID
}

// Configured reports whether an API key is set (always true for local endpoints).
func (p *OpenAIChatProvider) Configured() bool {
	return p.cfg.Local || p.cfg.APIKey != ""
}

// Complete sends prompt as a single user message and returns the first choice.
func (p *OpenAIChatProvider) Complete(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.cfg.ChatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if p.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.cfg.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", p.classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", malformed(p.cfg.ID, "no choices in completion response")
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", malformed(p.cfg.ID, "empty message content")
	}
	return content, nil
}

// Embed returns the embedding of text using the configured embedding model.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.cfg.EmbedModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	}
	if p.cfg.Dimensions > 0 && strings.HasPrefix(p.cfg.EmbedModel, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(p.cfg.Dimensions))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, p.classify(ctx, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, malformed(p.cfg.ID, "no embedding in response")
	}
	return toFloat32(resp.Data[0].Embedding), nil
}

func (p *OpenAIChatProvider) classify(ctx context.Context, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(p.cfg.ID, apiErr.StatusCode, apiErr.Message)
	}
	return classifyTransport(ctx, p.cfg.ID, p.cfg.Local, err)
}

var (
	_ port.CompletionProvider = (*OpenAIChatProvider)(nil)
	_ port.EmbeddingProvider  = (*OpenAIProvider)(nil)
)
