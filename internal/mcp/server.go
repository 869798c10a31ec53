// Package mcp exposes the knowledge base to external agents over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
)

// UserID is recorded on chat logs written by the ask tool.
const UserID = "mcp"

// Knowledge is the part of the chat service the tools need.
type Knowledge interface {
	Ask(ctx context.Context, userID, sessionID, message string) (*domain.ChatReply, error)
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}

// Config configures the MCP server.
type Config struct {
	Knowledge Knowledge
	Name      string
	Version   string
	Port      string
	Logger    *slog.Logger
}

// Server serves the ask and search_knowledge tools over streamable HTTP.
type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer registers the tools and builds a stateless HTTP handler.
func NewServer(c Config) (*Server, error) {
	if c.Knowledge == nil {
		return nil, errors.New("knowledge service is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if c.Name == "" {
		c.Name = "helpdesk-rag"
	}

	s := &Server{config: c}

	mcpServer := mcp.NewServer(&mcp.Implementation{Name: c.Name, Version: c.Version}, &mcp.ServerOptions{})
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        askToolName,
		Description: askDescription,
	}, s.handleAsk)
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        searchToolName,
		Description: searchDescription,
	}, s.handleSearch)

	s.mcpServer = mcpServer
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return mcpServer },
		&mcp.StreamableHTTPOptions{Stateless: true},
	)
	return s, nil
}

// Handler returns the HTTP handler for the MCP endpoint.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves /mcp on the configured port until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", s.handler)

	srv := &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.config.Logger.Info("🔌 MCP server listening", "port", s.config.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}
