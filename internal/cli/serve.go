package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arturoeanton/helpdesk-rag/pkg/config"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.Config
			embedding, completion := a.ConfiguredProviders()
			slog.Info("🚀 Starting "+cfg.AppName,
				"port", cfg.Port,
				"store", cfg.StoreDriver,
				"embedding_providers", embedding,
				"completion_providers", completion,
				"mcp_enabled", cfg.MCPEnabled,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if w, ok := a.Bot.(*config.BotConfigStore); ok {
				if err := w.Watch(ctx); err != nil {
					slog.Warn("bot config hot reload disabled", "error", err)
				}
			}

			// ── MCP Server (separate port) ───────────────────────────────
			if cfg.MCPEnabled {
				mcpServer, err := a.MCP()
				if err != nil {
					return err
				}
				go func() {
					if err := mcpServer.Start(ctx); err != nil {
						slog.Error("MCP server failed", "error", err)
					}
				}()
			}

			// ── HTTP ─────────────────────────────────────────────────────
			httpApp := a.HTTP()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := httpApp.ShutdownWithContext(shutdownCtx); err != nil {
					slog.Error("shutdown failed", "error", err)
				}
			}()

			slog.Info("🌐 Fiber listening", "port", cfg.Port)
			return httpApp.Listen(":" + cfg.Port)
		},
	}
}
