package app

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/handler"
	"github.com/arturoeanton/helpdesk-rag/internal/mcp"
	"github.com/arturoeanton/helpdesk-rag/internal/middleware"
)

// Version is reported by the health check and the MCP server.
const Version = "1.0.0"

const maxUploadBytes = 20 << 20

// JWTConfig returns the token settings derived from configuration.
func (a *App) JWTConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		Secret:    a.Config.JWTSecret,
		Issuer:    a.Config.JWTIssuer,
		ExpiresIn: time.Duration(a.Config.JWTExpiration) * time.Hour,
	}
}

// HTTP builds the Fiber application with every route mounted under /api.
func (a *App) HTTP() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      a.Config.AppName,
		BodyLimit:    maxUploadBytes,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.AccessLog(a.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{a.Config.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.APIKeyHeader},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	}))

	knowledgeHandler := handler.NewKnowledgeHandler(a.Ingest, a.Config.UploadDir)
	chatHandler := handler.NewChatHandler(a.Chat)

	// ── Public Routes ────────────────────────────────────────────────────
	app.Get("/api/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"app":     a.Config.AppName,
			"version": Version,
		})
	})
	app.Get("/api/knowledge/status", knowledgeHandler.Status)

	// ── Widget Routes (API key) ──────────────────────────────────────────
	// Registered before the JWT group so the bearer check never runs for them.
	app.Post("/api/widget/chat", middleware.RequireAPIKey(a.Stores.APIKeys), chatHandler.Chat)

	// ── Protected Routes ─────────────────────────────────────────────────
	api := app.Group("/api", middleware.Authenticate(a.JWTConfig()))

	chatHandler.Register(api)
	knowledgeHandler.Register(api)

	admin := api.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	handler.NewAdminHandler(a.Bot, a.Chat, a.Stores.APIKeys).Register(admin)

	return app
}

// MCP builds the MCP server over the chat service.
func (a *App) MCP() (*mcp.Server, error) {
	return mcp.NewServer(mcp.Config{
		Knowledge: a.Chat,
		Name:      "helpdesk-rag",
		Version:   Version,
		Port:      a.Config.MCPPort,
		Logger:    a.Logger,
	})
}
