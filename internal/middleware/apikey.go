package middleware

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

// APIKeyHeader carries the widget key; the apiKey query parameter is the fallback.
const APIKeyHeader = "X-API-Key"

// APIKeyLookup resolves an active API key by value.
type APIKeyLookup interface {
	FindActiveAPIKey(ctx context.Context, key string) (*domain.APIKey, error)
}

// RequireAPIKey admits requests carrying an active API key and injects a widget
// identity, so chat history is kept per key.
func RequireAPIKey(keys APIKeyLookup) fiber.Handler {
	return func(c fiber.Ctx) error {
		key := c.Get(APIKeyHeader)
		if key == "" {
			key = c.Query("apiKey")
		}
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "API key required"})
		}

		found, err := keys.FindActiveAPIKey(c.Context(), key)
		if errors.Is(err, port.ErrAPIKeyNotFound) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Invalid or inactive API key"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		c.Locals(userKey, &domain.UserContext{
			UserID: "apikey:" + strconv.FormatInt(found.ID, 10),
			Name:   found.Description,
			Role:   domain.RoleWidget,
		})
		return c.Next()
	}
}
