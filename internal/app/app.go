// Package app assembles adapters, services and transports from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arturoeanton/helpdesk-rag/internal/adapter/ai"
	"github.com/arturoeanton/helpdesk-rag/internal/adapter/extract"
	"github.com/arturoeanton/helpdesk-rag/internal/adapter/store"
	"github.com/arturoeanton/helpdesk-rag/internal/handler"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
	"github.com/arturoeanton/helpdesk-rag/internal/service"
	"github.com/arturoeanton/helpdesk-rag/pkg/config"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Stores bundles the storage ports.
type Stores struct {
	Knowledge port.KnowledgeStore
	Vectors   port.VectorSearcher
	Chats     port.ChatStore
	APIKeys   port.APIKeyStore
	Close     func() error
}

// App holds the assembled application.
type App struct {
	Config    *config.Config
	Bot       handler.BotConfigManager
	Registry  *port.ProviderRegistry
	Stores    Stores
	Extractor port.TextExtractor
	Logger    *slog.Logger

	Embeddings  *service.EmbeddingService
	Completions *service.CompletionService
	Chat        *service.ChatService
	Ingest      *service.IngestService
}

// New builds the application from cfg: bot config file, provider registry and stores.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	bot, err := config.NewBotConfigStore(cfg.BotConfigPath)
	if err != nil {
		return nil, fmt.Errorf("bot config: %w", err)
	}

	stores, err := OpenStores(cfg)
	if err != nil {
		return nil, err
	}

	return Assemble(cfg, logger, bot, ai.NewRegistry(cfg), stores, extract.New(nil)), nil
}

// OpenStores opens the storage backend selected by cfg.StoreDriver.
func OpenStores(cfg *config.Config) (Stores, error) {
	switch cfg.StoreDriver {
	case DriverPostgres:
		pg, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return Stores{}, fmt.Errorf("connect to database: %w", err)
		}
		if err := pg.EnsureSchema(context.Background(), cfg.EmbeddingDimension); err != nil {
			pg.Close()
			return Stores{}, fmt.Errorf("prepare database schema: %w", err)
		}
		return Stores{
			Knowledge: pg,
			Vectors:   store.NewVectorStore(pg),
			Chats:     pg,
			APIKeys:   pg,
			Close:     pg.Close,
		}, nil
	case DriverMemory:
		return MemoryStores(store.NewMemoryStore()), nil
	default:
		return Stores{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// MemoryStores exposes one in-memory store through every storage port.
func MemoryStores(m *store.MemoryStore) Stores {
	return Stores{
		Knowledge: m,
		Vectors:   m,
		Chats:     m,
		APIKeys:   m,
		Close:     func() error { return nil },
	}
}

// Assemble wires services from already constructed dependencies.
func Assemble(
	cfg *config.Config,
	logger *slog.Logger,
	bot handler.BotConfigManager,
	registry *port.ProviderRegistry,
	stores Stores,
	extractor port.TextExtractor,
) *App {
	embeddings := service.NewEmbeddingService(registry, cfg.ProviderTimeout)
	completions := service.NewCompletionService(registry, cfg.ProviderTimeout)

	return &App{
		Config:      cfg,
		Bot:         bot,
		Registry:    registry,
		Stores:      stores,
		Extractor:   extractor,
		Logger:      logger,
		Embeddings:  embeddings,
		Completions: completions,
		Chat: service.NewChatService(embeddings, completions, stores.Vectors, stores.Chats, bot, service.RetrievalOptions{
			TopK:      cfg.RetrievalTopK,
			Threshold: cfg.RetrievalThreshold,
			Dimension: cfg.EmbeddingDimension,
		}),
		Ingest: service.NewIngestService(stores.Knowledge, extractor, embeddings, bot, cfg.ChunkSize, cfg.EmbeddingDimension),
	}
}

// Close releases the stores.
func (a *App) Close() error {
	if a.Stores.Close == nil {
		return nil
	}
	return a.Stores.Close()
}

// ConfiguredProviders lists registered provider ids that have a credential.
func (a *App) ConfiguredProviders() (embedding, completion []string) {
	for _, id := range a.Registry.IDs() {
		if e, ok := a.Registry.Embedder(id); ok && e.Configured() {
			embedding = append(embedding, string(id))
		}
		if c, ok := a.Registry.Completer(id); ok && c.Configured() {
			completion = append(completion, string(id))
		}
	}
	return embedding, completion
}
