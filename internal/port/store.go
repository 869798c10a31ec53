package port

import (
	"context"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
)

// KnowledgeTx is the write side of one ingestion unit. Nothing written
// through it is visible to queries until the enclosing transaction commits.
type KnowledgeTx interface {
	CreateDocument(ctx context.Context, d *domain.Document) (*domain.Document, error)
	CreateURLSource(ctx context.Context, u *domain.URLSource) (*domain.URLSource, error)
	InsertChunk(ctx context.Context, c *domain.Chunk) error
}

// KnowledgeStore persists sources and their chunks.
type KnowledgeStore interface {
	// WithinTx runs fn in a transaction; the transaction commits only if fn returns nil.
	WithinTx(ctx context.Context, fn func(tx KnowledgeTx) error) error

	ListDocuments(ctx context.Context) ([]domain.Document, error)
	ListURLSources(ctx context.Context) ([]domain.URLSource, error)

	// DeleteSource removes the document and/or URL source with the given id
	// together with every chunk they own.
	DeleteSource(ctx context.Context, id int64) error
}

// VectorSearcher answers nearest-neighbor queries over stored chunks.
type VectorSearcher interface {
	// NearestNeighbors returns at most k chunks ordered by ascending distance.
	NearestNeighbors(ctx context.Context, query []float32, k int) ([]domain.ScoredChunk, error)
}

// ChatStore persists chat logs and sessions.
type ChatStore interface {
	CreateChatLog(ctx context.Context, l *domain.ChatLog) error
	ListChatLogs(ctx context.Context, userID, sessionID string) ([]domain.ChatLog, error)
	ListAllChatLogs(ctx context.Context, limit int) ([]domain.ChatLog, error)
	ClearChatLogs(ctx context.Context, userID string) error

	CreateSession(ctx context.Context, s *domain.ChatSession) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, userID string) ([]domain.ChatSession, error)
	// DeleteSession removes the session and its logs; ErrSessionNotFound when
	// the session does not exist or belongs to another user.
	DeleteSession(ctx context.Context, userID, sessionID string) error
}

// APIKeyStore persists widget API keys.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, k *domain.APIKey) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]domain.APIKey, error)
	// UpdateAPIKey applies the non-nil fields of patch; ErrAPIKeyNotFound when absent.
	UpdateAPIKey(ctx context.Context, id int64, patch domain.APIKeyPatch) (*domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, id int64) error
	// FindActiveAPIKey returns the active key with this value; ErrAPIKeyNotFound otherwise.
	FindActiveAPIKey(ctx context.Context, key string) (*domain.APIKey, error)
}
