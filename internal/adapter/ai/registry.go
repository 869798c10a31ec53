package ai

import (
	"net/http"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
	"github.com/arturoeanton/helpdesk-rag/pkg/config"
)

// Base URLs of the hosted OpenAI-compatible endpoints.
const (
	OpenAIBaseURL     = "https://api.openai.com/v1/"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1/"
	DeepSeekBaseURL   = "https://api.deepseek.com/v1/"
)

// NewRegistry builds the provider registry from application configuration.
// Registration order is openai, openrouter, gemini, deepseek, lmstudio, ollama.
// Unconfigured providers are still registered; callers skip them via Configured.
func NewRegistry(cfg *config.Config) *port.ProviderRegistry {
	client := &http.Client{}
	reg := port.NewProviderRegistry()

	reg.Register(NewOpenAIProvider(OpenAIConfig{
		ID:         domain.ProviderOpenAI,
		BaseURL:    OpenAIBaseURL,
		APIKey:     cfg.OpenAIAPIKey,
		ChatModel:  cfg.OpenAIChatModel,
		EmbedModel: cfg.OpenAIEmbedModel,
		Dimensions: cfg.EmbeddingDimension,
		MaxTokens:  cfg.MaxTokens,
		HTTPClient: client,
	}))

	reg.Register(NewOpenAIProvider(OpenAIConfig{
		ID:         domain.ProviderOpenRouter,
		BaseURL:    OpenRouterBaseURL,
		APIKey:     cfg.OpenRouterAPIKey,
		ChatModel:  cfg.OpenRouterChatModel,
		MaxTokens:  cfg.MaxTokens,
		HTTPClient: client,
	}))

	reg.Register(NewGeminiProvider(GeminiConfig{
		APIKey:     cfg.GeminiAPIKey,
		ChatModel:  cfg.GeminiChatModel,
		EmbedModel: cfg.GeminiEmbedModel,
		MaxTokens:  cfg.MaxTokens,
		HTTPClient: client,
	}))

	reg.Register(NewOpenAIProvider(OpenAIConfig{
		ID:         domain.ProviderDeepSeek,
		BaseURL:    DeepSeekBaseURL,
		APIKey:     cfg.DeepSeekAPIKey,
		ChatModel:  cfg.DeepSeekChatModel,
		MaxTokens:  cfg.MaxTokens,
		HTTPClient: client,
	}))

	reg.Register(NewOpenAIProvider(OpenAIConfig{
		ID:         domain.ProviderLMStudio,
		BaseURL:    cfg.LMStudioURL,
		ChatModel:  cfg.LMStudioModel,
		MaxTokens:  cfg.MaxTokens,
		Local:      true,
		HTTPClient: client,
	}))

	reg.Register(NewOllamaProvider(
		OllamaEndpointConfig{BaseURL: cfg.OllamaURL, Model: cfg.OllamaEmbedModel, Token: cfg.OllamaToken},
		OllamaEndpointConfig{BaseURL: cfg.OllamaURL, Model: cfg.OllamaModel, Token: cfg.OllamaToken},
		cfg.MaxTokens,
		client,
	))

	return reg
}
