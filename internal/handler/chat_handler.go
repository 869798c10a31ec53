package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/helpdesk-rag/internal/middleware"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
	"github.com/arturoeanton/helpdesk-rag/internal/service"
)

// BusyMessage is returned with 503 when every completion provider is rate limited.
const BusyMessage = "All AI models are currently busy. Please try again in a few seconds."

// ChatHandler handles chat, history and session endpoints.
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Register sets up chat routes.
func (h *ChatHandler) Register(router fiber.Router) {
	chat := router.Group("/chat")
	chat.Post("/", h.Chat)
	chat.Get("/history", h.History)
	chat.Post("/clear", h.Clear)
	chat.Post("/sessions", h.CreateSession)
	chat.Get("/sessions", h.ListSessions)
	chat.Delete("/sessions/:id", h.DeleteSession)
}

// Chat answers one message.
func (h *ChatHandler) Chat(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var body struct {
		Message   string `json:"message"`
		SessionID string `json:"sessionId"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if body.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "message required"})
	}

	reply, err := h.chat.Ask(c.Context(), uc.UserID, body.SessionID, body.Message)
	if err != nil {
		if errors.Is(err, port.ErrAllProvidersRateLimited) {
			slog.Warn("all completion providers busy", "user_id", uc.UserID, "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": BusyMessage})
		}
		slog.Error("chat failed", "user_id", uc.UserID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "chat failed: " + err.Error()})
	}

	return c.JSON(reply)
}

// History lists the caller's chat logs, optionally for one session.
func (h *ChatHandler) History(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	logs, err := h.chat.History(c.Context(), uc.UserID, c.Query("sessionId"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(logs)
}

// Clear deletes the caller's chat logs.
func (h *ChatHandler) Clear(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	if err := h.chat.ClearHistory(c.Context(), uc.UserID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Chat history cleared"})
}

// CreateSession creates a named session.
func (h *ChatHandler) CreateSession(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	session, err := h.chat.CreateSession(c.Context(), uc.UserID, body.Name)
	if errors.Is(err, service.ErrEmptySessionName) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Session name required"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

// ListSessions lists the caller's sessions, newest first.
func (h *ChatHandler) ListSessions(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	sessions, err := h.chat.ListSessions(c.Context(), uc.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(sessions)
}

// DeleteSession deletes one of the caller's sessions and its logs.
func (h *ChatHandler) DeleteSession(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	err := h.chat.DeleteSession(c.Context(), uc.UserID, c.Params("id"))
	if errors.Is(err, port.ErrSessionNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Session deleted"})
}
