package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

var (
	askToolName    = "ask"
	askDescription = "Ask the help desk a question. The answer is grounded in the ingested knowledge base; out-of-scope questions get the configured rejection message."

	searchToolName    = "search_knowledge"
	searchDescription = "Semantic search over the ingested knowledge base. Returns the closest chunks with their distance (smaller is closer)."
)

// AskInput is the input of the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the knowledge base"`
}

// AskOutput is the output of the ask tool.
type AskOutput struct {
	Answer    string `json:"answer"`
	ModelUsed string `json:"model_used"`
	InScope   bool   `json:"in_scope"`
}

// SearchInput is the input of the search_knowledge tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to search for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of chunks to return (default: 3)"`
}

// SearchResult is one matching chunk.
type SearchResult struct {
	ChunkID  int64   `json:"chunk_id"`
	SourceID int64   `json:"source_id"`
	Distance float64 `json:"distance"`
	Content  string  `json:"content"`
}

// SearchOutput is the output of the search_knowledge tool.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger
	logger.Debug("MCP ask request", "question", input.Question)

	if input.Question == "" {
		return toolError("question is required"), AskOutput{}, nil
	}

	reply, err := s.config.Knowledge.Ask(ctx, UserID, "", input.Question)
	if err != nil {
		logger.Error("MCP ask failed", "error", err)
		if errors.Is(err, port.ErrAllProvidersRateLimited) {
			return toolError("All AI models are currently busy. Please try again in a few seconds."), AskOutput{}, nil
		}
		return toolError("Failed to answer: %v", err), AskOutput{}, nil
	}

	return nil, AskOutput{
		Answer:    reply.Response,
		ModelUsed: string(reply.ModelUsed),
		InScope:   reply.InScope,
	}, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger
	logger.Debug("MCP search request", "query", input.Query, "top_k", input.TopK)

	if input.Query == "" {
		return toolError("query is required"), SearchOutput{}, nil
	}

	hits, err := s.config.Knowledge.Search(ctx, input.Query, input.TopK)
	if err != nil {
		logger.Error("MCP search failed", "error", err)
		return toolError("Failed to search knowledge base: %v", err), SearchOutput{}, nil
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, SearchResult{
			ChunkID:  h.ID,
			SourceID: h.SourceID(),
			Distance: h.Distance,
			Content:  h.Content,
		})
	}
	return nil, SearchOutput{Query: input.Query, Results: results, Count: len(results)}, nil
}
