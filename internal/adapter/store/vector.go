package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

// VectorStore runs pgvector nearest-neighbor queries over stored chunks.
type VectorStore struct {
	store *PostgresStore
}

// NewVectorStore creates a vector store backed by the given Postgres store.
func NewVectorStore(store *PostgresStore) *VectorStore {
	return &VectorStore{store: store}
}

// NearestNeighbors orders chunks by negative inner product (<#>), smallest first.
// Ties keep insertion order.
func (v *VectorStore) NearestNeighbors(ctx context.Context, query []float32, k int) ([]domain.ScoredChunk, error) {
	q := `SELECT c.id, c.document_id, c.url_source_id, c.content, c.metadata, c.created_at,
	             c.embedding <#> $1::vector AS distance
	      FROM chunks c
	      ORDER BY distance ASC, c.id ASC
	      LIMIT $2`

	rows, err := v.store.db.QueryContext(ctx, q, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", err)
	}
	defer rows.Close()

	results := []domain.ScoredChunk{}
	for rows.Next() {
		var (
			sc       domain.ScoredChunk
			docID    sql.NullInt64
			urlID    sql.NullInt64
			metadata []byte
		)
		if err := rows.Scan(&sc.ID, &docID, &urlID, &sc.Content, &metadata, &sc.CreatedAt, &sc.Distance); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if docID.Valid {
			sc.DocumentID = &docID.Int64
		}
		if urlID.Valid {
			sc.URLSourceID = &urlID.Int64
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &sc.Metadata); err != nil {
				return nil, fmt.Errorf("decode chunk metadata: %w", err)
			}
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

// pgKnowledgeTx writes one source and its chunks inside a database transaction.
type pgKnowledgeTx struct {
	tx         *sql.Tx
	insertStmt *sql.Stmt
}

func (t *pgKnowledgeTx) CreateDocument(ctx context.Context, d *domain.Document) (*domain.Document, error) {
	query := `INSERT INTO documents (filename, original_name, mime_type, size, uploader_id)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id, filename, original_name, mime_type, size, uploader_id, created_at`

	var out domain.Document
	err := t.tx.QueryRowContext(ctx, query, d.Filename, d.OriginalName, d.MimeType, d.Size, d.UploaderID).Scan(
		&out.ID, &out.Filename, &out.OriginalName, &out.MimeType, &out.Size, &out.UploaderID, &out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return &out, nil
}

func (t *pgKnowledgeTx) CreateURLSource(ctx context.Context, u *domain.URLSource) (*domain.URLSource, error) {
	query := `INSERT INTO url_sources (url, title, description, added_by)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id, url, title, description, added_by, created_at`

	var out domain.URLSource
	err := t.tx.QueryRowContext(ctx, query, u.URL, u.Title, u.Description, u.AddedBy).Scan(
		&out.ID, &out.URL, &out.Title, &out.Description, &out.AddedBy, &out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create url source: %w", err)
	}
	return &out, nil
}

// InsertChunk reuses one prepared statement for every chunk of the transaction.
func (t *pgKnowledgeTx) InsertChunk(ctx context.Context, c *domain.Chunk) error {
	if t.insertStmt == nil {
		stmt, err := t.tx.PrepareContext(ctx,
			`INSERT INTO chunks (document_id, url_source_id, content, embedding, metadata)
			 VALUES ($1, $2, $3, $4::vector, $5)
			 RETURNING id, created_at`)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		t.insertStmt = stmt
	}

	metadata, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("encode chunk metadata: %w", err)
	}

	if err := t.insertStmt.QueryRowContext(ctx,
		c.DocumentID, c.URLSourceID, c.Content, pgvector.NewVector(c.Vector), string(metadata),
	).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

func (t *pgKnowledgeTx) close() {
	if t.insertStmt != nil {
		t.insertStmt.Close()
	}
}

var (
	_ port.VectorSearcher = (*VectorStore)(nil)
	_ port.KnowledgeTx    = (*pgKnowledgeTx)(nil)
)
