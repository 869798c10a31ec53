package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
	"github.com/arturoeanton/helpdesk-rag/pkg/config"
)

// ErrEmptySessionName is returned when a session is created without a name.
var ErrEmptySessionName = errors.New("session name required")

// BotConfigSource yields the current bot configuration snapshot.
type BotConfigSource interface {
	Current() config.BotConfig
}

// RetrievalOptions tune the retrieval gate.
type RetrievalOptions struct {
	TopK      int     // neighbors fetched per question
	Threshold float64 // max distance of the closest neighbor for a question to be in scope
	Dimension int     // expected vector length, 0 disables the check
}

// ChatService answers questions from the knowledge base and keeps chat history.
type ChatService struct {
	embeddings  *EmbeddingService
	completions *CompletionService
	vectors     port.VectorSearcher
	chats       port.ChatStore
	bot         BotConfigSource
	opts        RetrievalOptions
}

// NewChatService creates a new chat service.
func NewChatService(
	embeddings *EmbeddingService,
	completions *CompletionService,
	vectors port.VectorSearcher,
	chats port.ChatStore,
	bot BotConfigSource,
	opts RetrievalOptions,
) *ChatService {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	return &ChatService{
		embeddings:  embeddings,
		completions: completions,
		vectors:     vectors,
		chats:       chats,
		bot:         bot,
		opts:        opts,
	}
}

// Ask runs the retrieval-augmented pipeline for one message and records the exchange.
// Out-of-scope questions get the rejection message without calling a completion provider.
func (s *ChatService) Ask(ctx context.Context, userID, sessionID, message string) (*domain.ChatReply, error) {
	bot := s.bot.Current()
	rejection := bot.Rejection()

	slog.Info("chat request", "user_id", userID, "session_id", sessionID, "models", bot.PreferredModels())

	hits, err := s.retrieve(ctx, message, bot)
	if err != nil {
		return nil, err
	}

	if !Relevant(hits, s.opts.Threshold) {
		slog.Info("no relevant context, rejecting", "hits", len(hits), "closest", closestDistance(hits))
		reply := &domain.ChatReply{
			Response:         rejection,
			RelatedQuestions: []string{},
			ModelUsed:        domain.ProviderID(bot.PrimaryModel()),
		}
		if err := s.record(ctx, userID, sessionID, message, reply); err != nil {
			return nil, err
		}
		return reply, nil
	}

	prompt := BuildPrompt(BuildContext(hits), rejection, message)
	result, err := s.completions.Complete(ctx, prompt, domain.ProviderIDs(bot.PreferredModels()))
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	reply := &domain.ChatReply{
		Response:         PostProcess(result.Text, rejection),
		RelatedQuestions: []string{},
		ModelUsed:        result.Provider,
		InScope:          true,
	}
	if err := s.record(ctx, userID, sessionID, message, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// Search returns the k chunks closest to query, without gating.
func (s *ChatService) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		k = s.opts.TopK
	}
	bot := s.bot.Current()
	emb, err := s.embeddings.Embed(ctx, query, domain.ProviderIDs(bot.EmbeddingOrder()))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if err := ValidateVector(emb.Vector, s.opts.Dimension); err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.vectors.NearestNeighbors(ctx, emb.Vector, k)
}

func (s *ChatService) retrieve(ctx context.Context, message string, bot config.BotConfig) ([]domain.ScoredChunk, error) {
	emb, err := s.embeddings.Embed(ctx, message, domain.ProviderIDs(bot.EmbeddingOrder()))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if err := ValidateVector(emb.Vector, s.opts.Dimension); err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.vectors.NearestNeighbors(ctx, emb.Vector, s.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", err)
	}
	for i, h := range hits {
		slog.Debug("retrieved chunk", "rank", i+1, "distance", h.Distance, "source_id", h.SourceID())
	}
	return hits, nil
}

func (s *ChatService) record(ctx context.Context, userID, sessionID, message string, reply *domain.ChatReply) error {
	err := s.chats.CreateChatLog(ctx, &domain.ChatLog{
		UserID:    userID,
		SessionID: sessionID,
		Message:   message,
		Response:  reply.Response,
		ModelUsed: string(reply.ModelUsed),
		CreatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("save chat log: %w", err)
	}
	return nil
}

// History returns a user's chat logs, oldest first, optionally limited to one session.
func (s *ChatService) History(ctx context.Context, userID, sessionID string) ([]domain.ChatLog, error) {
	return s.chats.ListChatLogs(ctx, userID, sessionID)
}

// ClearHistory deletes every chat log of a user.
func (s *ChatService) ClearHistory(ctx context.Context, userID string) error {
	return s.chats.ClearChatLogs(ctx, userID)
}

// CreateSession creates a named chat session for a user.
func (s *ChatService) CreateSession(ctx context.Context, userID, name string) (*domain.ChatSession, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptySessionName
	}
	return s.chats.CreateSession(ctx, &domain.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now(),
	})
}

// ListSessions returns a user's sessions, newest first.
func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	return s.chats.ListSessions(ctx, userID)
}

// DeleteSession removes a session owned by userID together with its logs.
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	return s.chats.DeleteSession(ctx, userID, sessionID)
}

// AllChatLogs returns the most recent chat logs of every user, newest first.
func (s *ChatService) AllChatLogs(ctx context.Context, limit int) ([]domain.ChatLog, error) {
	return s.chats.ListAllChatLogs(ctx, limit)
}

func closestDistance(hits []domain.ScoredChunk) any {
	if len(hits) == 0 {
		return nil
	}
	return hits[0].Distance
}
