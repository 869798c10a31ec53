package handler

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
	"github.com/arturoeanton/helpdesk-rag/internal/service"
	"github.com/arturoeanton/helpdesk-rag/pkg/config"
)

// BotConfigManager reads and persists the bot configuration.
type BotConfigManager interface {
	Current() config.BotConfig
	Update(cfg config.BotConfig) (config.BotConfig, error)
	Reload() error
}

// AdminHandler handles admin-only endpoints.
type AdminHandler struct {
	bot  BotConfigManager
	chat *service.ChatService
	keys port.APIKeyStore
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(bot BotConfigManager, chat *service.ChatService, keys port.APIKeyStore) *AdminHandler {
	return &AdminHandler{bot: bot, chat: chat, keys: keys}
}

// Register sets up admin routes on router, which the caller mounts at /admin
// behind the admin role check.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/config", h.GetConfig)
	router.Post("/config", h.UpdateConfig)
	router.Post("/config/reload", h.ReloadConfig)
	router.Get("/chatlogs", h.ChatLogs)

	router.Get("/apikeys", h.ListAPIKeys)
	router.Post("/apikeys", h.CreateAPIKey)
	router.Patch("/apikeys/:id", h.UpdateAPIKey)
	router.Delete("/apikeys/:id", h.DeleteAPIKey)
}

// GetConfig returns the active bot configuration.
func (h *AdminHandler) GetConfig(c fiber.Ctx) error {
	return c.JSON(h.bot.Current())
}

// UpdateConfig persists a new bot configuration and activates it.
func (h *AdminHandler) UpdateConfig(c fiber.Ctx) error {
	var body config.BotConfig
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid config: " + err.Error()})
	}
	if body.ModelIsList && !slices.ContainsFunc(body.Models, func(m string) bool { return strings.TrimSpace(m) != "" }) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid config: model list is empty"})
	}

	updated, err := h.bot.Update(body)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Config updated", "config": updated})
}

// ReloadConfig re-reads the configuration file.
func (h *AdminHandler) ReloadConfig(c fiber.Ctx) error {
	if err := h.bot.Reload(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Config reloaded", "config": h.bot.Current()})
}

// ChatLogs lists recent chat logs of all users.
func (h *AdminHandler) ChatLogs(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))

	logs, err := h.chat.AllChatLogs(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"logs":  logs,
		"count": len(logs),
	})
}

// --- API keys ---

// ListAPIKeys lists every widget API key.
func (h *AdminHandler) ListAPIKeys(c fiber.Ctx) error {
	keys, err := h.keys.ListAPIKeys(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(keys)
}

// CreateAPIKey stores a new active key. A random key is generated when none is given.
func (h *AdminHandler) CreateAPIKey(c fiber.Ctx) error {
	var body struct {
		Key         string `json:"key"`
		Description string `json:"description"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	key := strings.TrimSpace(body.Key)
	if key == "" {
		key = uuid.NewString()
	}

	created, err := h.keys.CreateAPIKey(c.Context(), &domain.APIKey{
		Key:         key,
		Description: body.Description,
		Active:      true,
	})
	if errors.Is(err, port.ErrAPIKeyExists) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateAPIKey toggles a key or changes its description.
func (h *AdminHandler) UpdateAPIKey(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	var patch domain.APIKeyPatch
	if err := c.Bind().JSON(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	updated, err := h.keys.UpdateAPIKey(c.Context(), id, patch)
	if errors.Is(err, port.ErrAPIKeyNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(updated)
}

// DeleteAPIKey removes a key.
func (h *AdminHandler) DeleteAPIKey(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	if err := h.keys.DeleteAPIKey(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "API key deleted"})
}
