package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

// IngestService turns uploaded files and web pages into stored, embedded chunks.
// Each source is ingested in a single transaction: either all of its chunks are
// stored or none are.
type IngestService struct {
	store      port.KnowledgeStore
	extractor  port.TextExtractor
	embeddings *EmbeddingService
	bot        BotConfigSource
	chunkSize  int
	dimension  int
}

// NewIngestService creates a new ingestion service.
func NewIngestService(
	store port.KnowledgeStore,
	extractor port.TextExtractor,
	embeddings *EmbeddingService,
	bot BotConfigSource,
	chunkSize, dimension int,
) *IngestService {
	return &IngestService{
		store:      store,
		extractor:  extractor,
		embeddings: embeddings,
		bot:        bot,
		chunkSize:  chunkSize,
		dimension:  dimension,
	}
}

// IngestFile ingests a file already saved to disk. On any failure the file is removed.
func (s *IngestService) IngestFile(ctx context.Context, uploaderID string, f port.UploadedFile) (doc *domain.Document, chunks int, err error) {
	defer func() {
		if err != nil && f.Path != "" {
			if rmErr := os.Remove(f.Path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				slog.Warn("failed to remove upload", "path", f.Path, "error", rmErr)
			}
		}
	}()

	text, err := s.extractor.ExtractFile(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("extract %s: %w", f.OriginalName, err)
	}

	parts := ChunkText(text, s.chunkSize)
	if len(parts) == 0 {
		return nil, 0, fmt.Errorf("%w in document", port.ErrEmptyChunkSet)
	}

	err = s.store.WithinTx(ctx, func(tx port.KnowledgeTx) error {
		created, err := tx.CreateDocument(ctx, &domain.Document{
			Filename:     f.Filename,
			OriginalName: f.OriginalName,
			MimeType:     f.MimeType,
			Size:         f.Size,
			UploaderID:   uploaderID,
			CreatedAt:    time.Now(),
		})
		if err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		doc = created
		return s.embedAll(ctx, tx, parts, func(c *domain.Chunk) { c.DocumentID = &created.ID })
	})
	if err != nil {
		return nil, 0, err
	}

	slog.Info("📄 Document ingested", "id", doc.ID, "name", doc.OriginalName, "chunks", len(parts))
	return doc, len(parts), nil
}

// IngestURL fetches a page and ingests its body text.
func (s *IngestService) IngestURL(ctx context.Context, addedBy, url, title, description string) (*domain.URLSource, int, error) {
	text, err := s.extractor.ExtractURL(ctx, url)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", url, err)
	}

	parts := ChunkText(text, s.chunkSize)
	if len(parts) == 0 {
		return nil, 0, fmt.Errorf("%w in URL", port.ErrEmptyChunkSet)
	}

	var src *domain.URLSource
	err = s.store.WithinTx(ctx, func(tx port.KnowledgeTx) error {
		created, err := tx.CreateURLSource(ctx, &domain.URLSource{
			URL:         url,
			Title:       title,
			Description: description,
			AddedBy:     addedBy,
			CreatedAt:   time.Now(),
		})
		if err != nil {
			return fmt.Errorf("create url source: %w", err)
		}
		src = created
		return s.embedAll(ctx, tx, parts, func(c *domain.Chunk) { c.URLSourceID = &created.ID })
	})
	if err != nil {
		return nil, 0, err
	}

	slog.Info("🌐 URL ingested", "id", src.ID, "url", src.URL, "chunks", len(parts))
	return src, len(parts), nil
}

func (s *IngestService) embedAll(ctx context.Context, tx port.KnowledgeTx, parts []string, owner func(*domain.Chunk)) error {
	order := domain.ProviderIDs(s.bot.Current().EmbeddingOrder())
	for i, part := range parts {
		emb, err := s.embeddings.Embed(ctx, part, order)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", i, err)
		}
		if err := ValidateVector(emb.Vector, s.dimension); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}

		c := &domain.Chunk{
			Content:   part,
			Vector:    emb.Vector,
			Metadata:  map[string]any{"chunkIndex": i, "provider": string(emb.Provider)},
			CreatedAt: time.Now(),
		}
		owner(c)
		if err := tx.InsertChunk(ctx, c); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	return nil
}

// Sources lists every document and URL source.
func (s *IngestService) Sources(ctx context.Context) ([]domain.Document, []domain.URLSource, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list documents: %w", err)
	}
	urls, err := s.store.ListURLSources(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list url sources: %w", err)
	}
	return docs, urls, nil
}

// DeleteSource removes a source and all of its chunks.
func (s *IngestService) DeleteSource(ctx context.Context, id int64) error {
	return s.store.DeleteSource(ctx, id)
}
