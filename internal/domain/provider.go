package domain

// ProviderID identifies an external embedding or completion provider.
type ProviderID string

// Known provider identifiers.
const (
	ProviderOpenAI     ProviderID = "openai"
	ProviderOpenRouter ProviderID = "openrouter"
	ProviderGemini     ProviderID = "gemini"
	ProviderDeepSeek   ProviderID = "deepseek"
	ProviderLMStudio   ProviderID = "lmstudio"
	ProviderOllama     ProviderID = "ollama"
)

// EmbeddingResult is the vector produced for a piece of text and the provider that produced it.
type EmbeddingResult struct {
	Vector   []float32  `json:"-"`
	Provider ProviderID `json:"provider"`
}

// CompletionResult is the normalized text answer of a completion provider.
type CompletionResult struct {
	Text     string     `json:"text"`
	Provider ProviderID `json:"provider"`
}

// ProviderIDs converts plain strings (as stored in the bot config) to provider ids.
func ProviderIDs(names []string) []ProviderID {
	ids := make([]ProviderID, 0, len(names))
	for _, n := range names {
		ids = append(ids, ProviderID(n))
	}
	return ids
}
