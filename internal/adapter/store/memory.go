package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

// ErrDuplicateURL is returned when a URL source already exists.
var ErrDuplicateURL = errors.New("url source already exists")

// MemoryStore implements the knowledge, vector and chat ports in process.
// Used for STORE_DRIVER=memory, the CLI and tests.
type MemoryStore struct {
	// mu guards every map and counter below
	mu sync.RWMutex

	nextID   int64
	docs     map[int64]domain.Document
	urls     map[int64]domain.URLSource
	chunks   []domain.Chunk // insertion order
	logs     []domain.ChatLog
	sessions map[string]domain.ChatSession
	apiKeys  map[int64]domain.APIKey
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[int64]domain.Document),
		urls:     make(map[int64]domain.URLSource),
		sessions: make(map[string]domain.ChatSession),
		apiKeys:  make(map[int64]domain.APIKey),
	}
}

func (s *MemoryStore) id() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// WithinTx buffers writes made by fn and applies them only if fn returns nil.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx port.KnowledgeTx) error) error {
	tx := &memoryTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range tx.urls {
		if s.hasURLLocked(u.URL) {
			return fmt.Errorf("%w: %s", ErrDuplicateURL, u.URL)
		}
	}
	for _, d := range tx.docs {
		s.docs[d.ID] = d
	}
	for _, u := range tx.urls {
		s.urls[u.ID] = u
	}
	s.chunks = append(s.chunks, tx.chunks...)
	return nil
}

func (s *MemoryStore) hasURLLocked(url string) bool {
	for _, u := range s.urls {
		if u.URL == url {
			return true
		}
	}
	return false
}

// ListDocuments returns documents in creation order.
func (s *MemoryStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// ListURLSources returns URL sources in creation order.
func (s *MemoryStore) ListURLSources(_ context.Context) ([]domain.URLSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	urls := make([]domain.URLSource, 0, len(s.urls))
	for _, u := range s.urls {
		urls = append(urls, u)
	}
	sort.Slice(urls, func(i, j int) bool { return urls[i].ID < urls[j].ID })
	return urls, nil
}

// DeleteSource removes the source with this id and its chunks.
func (s *MemoryStore) DeleteSource(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, isDoc := s.docs[id]
	_, isURL := s.urls[id]
	if !isDoc && !isURL {
		return port.ErrSourceNotFound
	}
	delete(s.docs, id)
	delete(s.urls, id)
	s.chunks = slices.DeleteFunc(s.chunks, func(c domain.Chunk) bool {
		return c.SourceID() == id
	})
	return nil
}

// NearestNeighbors ranks chunks by negative inner product, ties by insertion order.
func (s *MemoryStore) NearestNeighbors(_ context.Context, query []float32, k int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	scored := make([]domain.ScoredChunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		if len(c.Vector) != len(query) {
			s.mu.RUnlock()
			return nil, fmt.Errorf("%w: stored %d, query %d", port.ErrDimensionMismatch, len(c.Vector), len(query))
		}
		scored = append(scored, domain.ScoredChunk{Chunk: c, Distance: -dot(c.Vector, query)})
	}
	s.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	if k >= 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// --- Chat ---

// CreateChatLog appends a log entry.
func (s *MemoryStore) CreateChatLog(_ context.Context, l *domain.ChatLog) error {
	l.ID = s.id()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *l)
	return nil
}

// ListChatLogs returns a user's logs oldest first; an empty sessionID means all sessions.
func (s *MemoryStore) ListChatLogs(_ context.Context, userID, sessionID string) ([]domain.ChatLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.ChatLog{}
	for _, l := range s.logs {
		if l.UserID == userID && (sessionID == "" || l.SessionID == sessionID) {
			out = append(out, l)
		}
	}
	return out, nil
}

// ListAllChatLogs returns up to limit logs, newest first.
func (s *MemoryStore) ListAllChatLogs(_ context.Context, limit int) ([]domain.ChatLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ChatLog, 0, len(s.logs))
	for i := len(s.logs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.logs[i])
	}
	return out, nil
}

// ClearChatLogs deletes every log of a user.
func (s *MemoryStore) ClearChatLogs(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = slices.DeleteFunc(s.logs, func(l domain.ChatLog) bool { return l.UserID == userID })
	return nil
}

// CreateSession stores a session under its id.
func (s *MemoryStore) CreateSession(_ context.Context, cs *domain.ChatSession) (*domain.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[cs.ID]; ok {
		return nil, fmt.Errorf("session %s already exists", cs.ID)
	}
	out := *cs
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now()
	}
	s.sessions[out.ID] = out
	return &out, nil
}

// ListSessions returns a user's sessions, newest first.
func (s *MemoryStore) ListSessions(_ context.Context, userID string) ([]domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.ChatSession{}
	for _, cs := range s.sessions {
		if cs.UserID == userID {
			out = append(out, cs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// DeleteSession removes a session owned by userID and its logs.
func (s *MemoryStore) DeleteSession(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.sessions[sessionID]
	if !ok || cs.UserID != userID {
		return port.ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	s.logs = slices.DeleteFunc(s.logs, func(l domain.ChatLog) bool {
		return l.SessionID == sessionID && l.UserID == userID
	})
	return nil
}

// --- API keys ---

// CreateAPIKey stores a key; key values are unique.
func (s *MemoryStore) CreateAPIKey(_ context.Context, k *domain.APIKey) (*domain.APIKey, error) {
	id := s.id()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.apiKeys {
		if existing.Key == k.Key {
			return nil, port.ErrAPIKeyExists
		}
	}
	out := *k
	out.ID = id
	now := time.Now()
	out.CreatedAt, out.UpdatedAt = now, now
	s.apiKeys[id] = out
	return &out, nil
}

// ListAPIKeys returns keys in creation order.
func (s *MemoryStore) ListAPIKeys(_ context.Context) ([]domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]domain.APIKey, 0, len(s.apiKeys))
	for _, k := range s.apiKeys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })
	return keys, nil
}

// UpdateAPIKey applies the set fields of patch.
func (s *MemoryStore) UpdateAPIKey(_ context.Context, id int64, patch domain.APIKeyPatch) (*domain.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.apiKeys[id]
	if !ok {
		return nil, port.ErrAPIKeyNotFound
	}
	if patch.Active != nil {
		k.Active = *patch.Active
	}
	if patch.Description != nil && *patch.Description != "" {
		k.Description = *patch.Description
	}
	k.UpdatedAt = time.Now()
	s.apiKeys[id] = k
	return &k, nil
}

// DeleteAPIKey removes a key. Deleting a missing key is not an error.
func (s *MemoryStore) DeleteAPIKey(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.apiKeys, id)
	return nil
}

// FindActiveAPIKey looks up an active key by value.
func (s *MemoryStore) FindActiveAPIKey(_ context.Context, key string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, k := range s.apiKeys {
		if k.Key == key && k.Active {
			return &k, nil
		}
	}
	return nil, port.ErrAPIKeyNotFound
}

// memoryTx collects the writes of one WithinTx call.
type memoryTx struct {
	store  *MemoryStore
	docs   []domain.Document
	urls   []domain.URLSource
	chunks []domain.Chunk
}

func (t *memoryTx) CreateDocument(_ context.Context, d *domain.Document) (*domain.Document, error) {
	out := *d
	out.ID = t.store.id()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now()
	}
	t.docs = append(t.docs, out)
	return &out, nil
}

func (t *memoryTx) CreateURLSource(_ context.Context, u *domain.URLSource) (*domain.URLSource, error) {
	t.store.mu.RLock()
	dup := t.store.hasURLLocked(u.URL)
	t.store.mu.RUnlock()
	if dup {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateURL, u.URL)
	}

	out := *u
	out.ID = t.store.id()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now()
	}
	t.urls = append(t.urls, out)
	return &out, nil
}

func (t *memoryTx) InsertChunk(_ context.Context, c *domain.Chunk) error {
	if (c.DocumentID == nil) == (c.URLSourceID == nil) {
		return errors.New("chunk must belong to exactly one source")
	}
	c.ID = t.store.id()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	stored := *c
	stored.Vector = slices.Clone(c.Vector)
	t.chunks = append(t.chunks, stored)
	return nil
}

var (
	_ port.KnowledgeStore = (*MemoryStore)(nil)
	_ port.VectorSearcher = (*MemoryStore)(nil)
	_ port.ChatStore      = (*MemoryStore)(nil)
	_ port.APIKeyStore    = (*MemoryStore)(nil)
)
