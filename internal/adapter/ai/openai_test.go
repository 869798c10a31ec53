package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arturoeanton/helpdesk-rag/internal/adapter/ai"
	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

const chatCompletionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-test",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Restart it."}}]
}`

const embeddingJSON = `{
  "object": "list",
  "model": "text-embedding-3-small",
  "data": [{"object": "embedding", "index": 0, "embedding": [0.5, -0.25, 1]}],
  "usage": {"prompt_tokens": 1, "total_tokens": 1}
}`

var _ = Describe("OpenAI-compatible provider", func() {
	var (
		server   *httptest.Server
		status   int
		body     string
		lastPath string
		lastReq  map[string]any
		lastAuth string
	)

	BeforeEach(func() {
		status, body = http.StatusOK, chatCompletionJSON
		lastReq = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastPath = r.URL.Path
			lastAuth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&lastReq)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
		DeferCleanup(server.Close)
	})

	newProvider := func(cfg ai.OpenAIConfig) port.Provider {
		if cfg.ID == "" {
			cfg.ID = domain.ProviderOpenAI
		}
		cfg.BaseURL = server.URL + "/v1/"
		cfg.HTTPClient = server.Client()
		return ai.NewOpenAIProvider(cfg)
	}

	Describe("capabilities", func() {
		It("is completion-only without an embedding model", func() {
			p := newProvider(ai.OpenAIConfig{ID: domain.ProviderDeepSeek, APIKey: "k", ChatModel: "deepseek-chat"})
			_, isEmbedder := p.(port.EmbeddingProvider)
			_, isCompleter := p.(port.CompletionProvider)
			Expect(isEmbedder).To(BeFalse())
			Expect(isCompleter).To(BeTrue())
		})

		It("reports configured only with a key unless local", func() {
			Expect(newProvider(ai.OpenAIConfig{ChatModel: "m"}).Configured()).To(BeFalse())
			Expect(newProvider(ai.OpenAIConfig{APIKey: "k", ChatModel: "m"}).Configured()).To(BeTrue())
			Expect(newProvider(ai.OpenAIConfig{ID: domain.ProviderLMStudio, Local: true, ChatModel: "m"}).Configured()).To(BeTrue())
		})
	})

	Describe("Complete", func() {
		It("sends a single user message and returns the first choice", func() {
			p := newProvider(ai.OpenAIConfig{APIKey: "sk-test", ChatModel: "gpt-test", MaxTokens: 64}).(port.CompletionProvider)

			text, err := p.Complete(context.Background(), "How do I fix it?")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Restart it."))
			Expect(lastPath).To(Equal("/v1/chat/completions"))
			Expect(lastAuth).To(Equal("Bearer sk-test"))
			Expect(lastReq).To(HaveKeyWithValue("model", "gpt-test"))
			Expect(lastReq).To(HaveKeyWithValue("max_tokens", BeNumerically("==", 64)))
			Expect(lastReq["messages"]).To(HaveLen(1))
		})

		DescribeTable("classifies HTTP failures",
			func(code int, kind error) {
				status, body = code, `{"error": {"message": "nope"}}`
				p := newProvider(ai.OpenAIConfig{APIKey: "k", ChatModel: "m"}).(port.CompletionProvider)

				_, err := p.Complete(context.Background(), "hi")
				Expect(err).To(MatchError(kind))

				var pe *port.ProviderError
				Expect(err).To(BeAssignableToTypeOf(pe))
			},
			Entry("429", http.StatusTooManyRequests, port.ErrRateLimited),
			Entry("402", http.StatusPaymentRequired, port.ErrPaymentRequired),
			Entry("401", http.StatusUnauthorized, port.ErrUnauthorized),
			Entry("403", http.StatusForbidden, port.ErrUnauthorized),
			Entry("500", http.StatusInternalServerError, port.ErrUpstream),
		)

		It("reports an empty choice list as malformed", func() {
			body = `{"id": "x", "object": "chat.completion", "created": 0, "model": "m", "choices": []}`
			p := newProvider(ai.OpenAIConfig{APIKey: "k", ChatModel: "m"}).(port.CompletionProvider)

			_, err := p.Complete(context.Background(), "hi")
			Expect(err).To(MatchError(port.ErrMalformedResponse))
		})
	})

	Describe("Embed", func() {
		It("requests the configured dimension for text-embedding-3 models", func() {
			body = embeddingJSON
			p := newProvider(ai.OpenAIConfig{APIKey: "k", EmbedModel: "text-embedding-3-small", Dimensions: 3}).(port.EmbeddingProvider)

			vec, err := p.Embed(context.Background(), "printer")
			Expect(err).NotTo(HaveOccurred())
			Expect(vec).To(Equal([]float32{0.5, -0.25, 1}))
			Expect(lastPath).To(Equal("/v1/embeddings"))
			Expect(lastReq).To(HaveKeyWithValue("input", "printer"))
			Expect(lastReq).To(HaveKeyWithValue("dimensions", BeNumerically("==", 3)))
		})

		It("omits the dimension for other models", func() {
			body = embeddingJSON
			p := newProvider(ai.OpenAIConfig{APIKey: "k", EmbedModel: "text-embedding-ada-002", Dimensions: 3}).(port.EmbeddingProvider)

			_, err := p.Embed(context.Background(), "printer")
			Expect(err).NotTo(HaveOccurred())
			Expect(lastReq).NotTo(HaveKey("dimensions"))
		})
	})
})
