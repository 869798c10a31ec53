package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

// Schema is the idempotent DDL applied by EnsureSchema.
//
//go:embed schema.sql
var Schema string

// PostgresStore handles all relational database operations.
// Schema: schema.sql (documents, url_sources, chunks, chat_sessions, chat_logs, api_keys).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// EnsureSchema applies Schema and checks that the stored vector width equals dimension.
// A dimension of 0 skips the check.
func (s *PostgresStore) EnsureSchema(ctx context.Context, dimension int) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if dimension <= 0 {
		return nil
	}

	// pgvector stores the declared dimension as the column's type modifier.
	var width int
	err := s.db.QueryRowContext(ctx,
		`SELECT atttypmod FROM pg_attribute
		 WHERE attrelid = 'chunks'::regclass AND attname = 'embedding'`,
	).Scan(&width)
	if err != nil {
		return fmt.Errorf("read embedding width: %w", err)
	}
	if width != dimension {
		return fmt.Errorf("%w: chunks.embedding is VECTOR(%d), EMBEDDING_DIMENSION is %d",
			port.ErrDimensionMismatch, width, dimension)
	}
	return nil
}

// WithinTx runs fn in a transaction that commits only when fn returns nil.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx port.KnowledgeTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ktx := &pgKnowledgeTx{tx: tx}
	defer ktx.close()

	if err := fn(ktx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- Documents & URL sources ---

// ListDocuments returns every uploaded document, oldest first.
func (s *PostgresStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	query := `SELECT id, filename, original_name, mime_type, size, uploader_id, created_at
	          FROM documents ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.Filename, &d.OriginalName, &d.MimeType, &d.Size, &d.UploaderID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListURLSources returns every ingested URL, oldest first.
func (s *PostgresStore) ListURLSources(ctx context.Context) ([]domain.URLSource, error) {
	query := `SELECT id, url, title, description, added_by, created_at
	          FROM url_sources ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list url sources: %w", err)
	}
	defer rows.Close()

	urls := []domain.URLSource{}
	for rows.Next() {
		var u domain.URLSource
		if err := rows.Scan(&u.ID, &u.URL, &u.Title, &u.Description, &u.AddedBy, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan url source: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// DeleteSource deletes the document or URL source with this id, and its chunks.
// Both tables draw ids from source_id_seq, so at most one row matches.
func (s *PostgresStore) DeleteSource(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var affected int64
	for _, q := range []string{
		`DELETE FROM chunks WHERE document_id = $1 OR url_source_id = $1`,
		`DELETE FROM documents WHERE id = $1`,
		`DELETE FROM url_sources WHERE id = $1`,
	} {
		res, err := tx.ExecContext(ctx, q, id)
		if err != nil {
			return fmt.Errorf("delete source: %w", err)
		}
		n, _ := res.RowsAffected()
		affected += n
	}
	if affected == 0 {
		return port.ErrSourceNotFound
	}
	return tx.Commit()
}

// --- Chat logs ---

// CreateChatLog records one exchange.
func (s *PostgresStore) CreateChatLog(ctx context.Context, l *domain.ChatLog) error {
	query := `INSERT INTO chat_logs (user_id, session_id, message, response, model_used)
	          VALUES ($1, NULLIF($2, ''), $3, $4, $5)
	          RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query, l.UserID, l.SessionID, l.Message, l.Response, l.ModelUsed).
		Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("create chat log: %w", err)
	}
	return nil
}

// ListChatLogs returns a user's logs oldest first; an empty sessionID means all sessions.
func (s *PostgresStore) ListChatLogs(ctx context.Context, userID, sessionID string) ([]domain.ChatLog, error) {
	query := `SELECT id, user_id, COALESCE(session_id, ''), message, response, model_used, created_at
	          FROM chat_logs
	          WHERE user_id = $1 AND ($2 = '' OR session_id = $2)
	          ORDER BY created_at ASC, id ASC`
	return s.queryChatLogs(ctx, query, userID, sessionID)
}

// ListAllChatLogs returns the most recent logs across users, newest first.
func (s *PostgresStore) ListAllChatLogs(ctx context.Context, limit int) ([]domain.ChatLog, error) {
	query := `SELECT id, user_id, COALESCE(session_id, ''), message, response, model_used, created_at
	          FROM chat_logs
	          ORDER BY created_at DESC, id DESC
	          LIMIT $1`
	if limit <= 0 {
		limit = 100
	}
	return s.queryChatLogs(ctx, query, limit)
}

func (s *PostgresStore) queryChatLogs(ctx context.Context, query string, args ...any) ([]domain.ChatLog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chat logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.ChatLog{}
	for rows.Next() {
		var l domain.ChatLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.SessionID, &l.Message, &l.Response, &l.ModelUsed, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// ClearChatLogs deletes every log of a user.
func (s *PostgresStore) ClearChatLogs(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_logs WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear chat logs: %w", err)
	}
	return nil
}

// --- Chat sessions ---

// CreateSession inserts a session with a caller-chosen id.
func (s *PostgresStore) CreateSession(ctx context.Context, cs *domain.ChatSession) (*domain.ChatSession, error) {
	query := `INSERT INTO chat_sessions (id, user_id, name)
	          VALUES ($1, $2, $3)
	          RETURNING id, user_id, name, created_at`

	var out domain.ChatSession
	err := s.db.QueryRowContext(ctx, query, cs.ID, cs.UserID, cs.Name).
		Scan(&out.ID, &out.UserID, &out.Name, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &out, nil
}

// ListSessions returns a user's sessions, newest first.
func (s *PostgresStore) ListSessions(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	query := `SELECT id, user_id, name, created_at FROM chat_sessions
	          WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.ChatSession{}
	for rows.Next() {
		var cs domain.ChatSession
		if err := rows.Scan(&cs.ID, &cs.UserID, &cs.Name, &cs.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, cs)
	}
	return sessions, rows.Err()
}

// DeleteSession deletes a session owned by userID and its logs.
func (s *PostgresStore) DeleteSession(ctx context.Context, userID, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return port.ErrSessionNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_logs WHERE session_id = $1 AND user_id = $2`, sessionID, userID); err != nil {
		return fmt.Errorf("delete session logs: %w", err)
	}
	return tx.Commit()
}

// --- API keys ---

// CreateAPIKey inserts a key; a duplicate value yields port.ErrAPIKeyExists.
func (s *PostgresStore) CreateAPIKey(ctx context.Context, k *domain.APIKey) (*domain.APIKey, error) {
	query := `INSERT INTO api_keys (key, description, active)
	          VALUES ($1, $2, $3)
	          RETURNING ` + apiKeyColumns

	out, err := scanAPIKey(s.db.QueryRowContext(ctx, query, k.Key, k.Description, k.Active))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, port.ErrAPIKeyExists
		}
		return nil, fmt.Errorf("create api key: %w", err)
	}
	return out, nil
}

// ListAPIKeys returns every key, oldest first.
func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]domain.APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	keys := []domain.APIKey{}
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

// UpdateAPIKey applies the set fields of patch. An empty description keeps the old one.
func (s *PostgresStore) UpdateAPIKey(ctx context.Context, id int64, patch domain.APIKeyPatch) (*domain.APIKey, error) {
	query := `UPDATE api_keys
	          SET active = COALESCE($2, active),
	              description = COALESCE(NULLIF($3, ''), description),
	              updated_at = NOW()
	          WHERE id = $1
	          RETURNING ` + apiKeyColumns

	var active sql.NullBool
	if patch.Active != nil {
		active = sql.NullBool{Bool: *patch.Active, Valid: true}
	}
	var description sql.NullString
	if patch.Description != nil {
		description = sql.NullString{String: *patch.Description, Valid: true}
	}

	out, err := scanAPIKey(s.db.QueryRowContext(ctx, query, id, active, description))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update api key: %w", err)
	}
	return out, nil
}

// DeleteAPIKey removes a key. Deleting a missing key is not an error.
func (s *PostgresStore) DeleteAPIKey(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	return nil
}

// FindActiveAPIKey looks up an active key by value.
func (s *PostgresStore) FindActiveAPIKey(ctx context.Context, key string) (*domain.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key = $1 AND active`

	out, err := scanAPIKey(s.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find api key: %w", err)
	}
	return out, nil
}

const apiKeyColumns = `id, key, description, active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAPIKey(row rowScanner) (*domain.APIKey, error) {
	var k domain.APIKey
	if err := row.Scan(&k.ID, &k.Key, &k.Description, &k.Active, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	return &k, nil
}

var (
	_ port.KnowledgeStore = (*PostgresStore)(nil)
	_ port.ChatStore      = (*PostgresStore)(nil)
	_ port.APIKeyStore    = (*PostgresStore)(nil)
)
