package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
)

// AccessLog logs one structured line per request, including the caller's user id.
func AccessLog(logger *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		// Capture before the handler runs; fiber reuses the context afterwards.
		method := c.Method()
		path := c.Path()
		ip := c.IP()

		err := c.Next()

		userID := "anonymous"
		if uc := GetUserContext(c); uc != nil {
			userID = uc.UserID
		}

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		switch {
		case err != nil || status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}

		logger.Log(c.Context(), level, "http request",
			"method", method,
			"path", path,
			"status", status,
			"user_id", userID,
			"ip", ip,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}
