// Package testutil holds fakes shared by the test suites.
package testutil

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
	"github.com/arturoeanton/helpdesk-rag/pkg/config"
)

// FakeEmbedder is an embedding-only provider.
type FakeEmbedder struct {
	Name         domain.ProviderID
	Unconfigured bool
	EmbedFn      func(ctx context.Context, text string) ([]float32, error)

	mu    sync.Mutex
	calls []string
}

func (f *FakeEmbedder) ID() domain.ProviderID { return f.Name }
func (f *FakeEmbedder) Configured() bool      { return !f.Unconfigured }

func (f *FakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	return f.EmbedFn(ctx, text)
}

// Calls returns the texts embedded so far.
func (f *FakeEmbedder) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// FakeCompleter is a completion-only provider.
type FakeCompleter struct {
	Name         domain.ProviderID
	Unconfigured bool
	CompleteFn   func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (f *FakeCompleter) ID() domain.ProviderID { return f.Name }
func (f *FakeCompleter) Configured() bool      { return !f.Unconfigured }

func (f *FakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.CompleteFn(ctx, prompt)
}

// Prompts returns the prompts received so far.
func (f *FakeCompleter) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// Answer returns a CompleteFn that always replies text.
func Answer(text string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return text, nil }
}

// Fail returns a CompleteFn that always fails with a provider error of kind.
func Fail(id domain.ProviderID, kind error) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) {
		return "", port.NewProviderError(id, kind, 0, nil)
	}
}

// FailEmbed returns an EmbedFn that always fails with a provider error of kind.
func FailEmbed(id domain.ProviderID, kind error) func(context.Context, string) ([]float32, error) {
	return func(context.Context, string) ([]float32, error) {
		return nil, port.NewProviderError(id, kind, 0, nil)
	}
}

// Vector returns an EmbedFn that always returns v.
func Vector(v []float32) func(context.Context, string) ([]float32, error) {
	return func(context.Context, string) ([]float32, error) { return v, nil }
}

// TopicEmbedder maps text mentioning any keyword to +e0 and everything else to -e0,
// so on-topic pairs have distance -1 and off-topic pairs distance 1 under <#>.
func TopicEmbedder(dimension int, keywords ...string) func(context.Context, string) ([]float32, error) {
	return func(_ context.Context, text string) ([]float32, error) {
		v := make([]float32, dimension)
		v[0] = -1
		lower := strings.ToLower(text)
		for _, k := range keywords {
			if strings.Contains(lower, strings.ToLower(k)) {
				v[0] = 1
				break
			}
		}
		return v, nil
	}
}

// Registry registers providers in order.
func Registry(providers ...port.Provider) *port.ProviderRegistry {
	r := port.NewProviderRegistry()
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// StaticBot is an in-memory bot configuration.
type StaticBot struct {
	mu     sync.Mutex
	Config config.BotConfig
}

// NewStaticBot returns a bot config with the given completion order and embedding order.
func NewStaticBot(models, embedders []string) *StaticBot {
	return &StaticBot{Config: config.BotConfig{
		RejectionMessage:   config.DefaultRejectionMessage,
		Models:             models,
		ModelIsList:        true,
		EmbeddingProviders: embedders,
	}}
}

func (b *StaticBot) Current() config.BotConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Config
}

func (b *StaticBot) Update(cfg config.BotConfig) (config.BotConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Config = cfg
	return cfg, nil
}

func (b *StaticBot) Reload() error { return nil }

// FakeExtractor returns fixed text for any file or URL.
type FakeExtractor struct {
	Text string
	Err  error
}

func (f *FakeExtractor) ExtractFile(context.Context, port.UploadedFile) (string, error) {
	return f.Text, f.Err
}

func (f *FakeExtractor) ExtractURL(context.Context, string) (string, error) {
	return f.Text, f.Err
}

// WriteTempFile writes content to a new file in dir and returns its path.
func WriteTempFile(dir, pattern, content string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// Words returns n space-separated words, each prefixed with prefix.
func Words(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = prefix
	}
	return strings.Join(parts, " ")
}
