package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/arturoeanton/helpdesk-rag/internal/middleware"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
	"github.com/arturoeanton/helpdesk-rag/internal/service"
)

// KnowledgeHandler handles knowledge base ingestion and listing.
type KnowledgeHandler struct {
	ingest    *service.IngestService
	uploadDir string
}

// NewKnowledgeHandler creates a new knowledge handler. Uploads are saved under uploadDir.
func NewKnowledgeHandler(ingest *service.IngestService, uploadDir string) *KnowledgeHandler {
	return &KnowledgeHandler{ingest: ingest, uploadDir: uploadDir}
}

// Register sets up authenticated knowledge routes.
func (h *KnowledgeHandler) Register(router fiber.Router) {
	kb := router.Group("/knowledge")
	kb.Post("/upload", h.Upload)
	kb.Post("/url", h.AddURL)
	kb.Get("/list", h.List)
	kb.Delete("/:id", h.Delete)
}

// Status is the unauthenticated liveness check of the knowledge API.
func (h *KnowledgeHandler) Status(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Upload saves a multipart file and ingests it.
func (h *KnowledgeHandler) Upload(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file uploaded"})
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fmt.Sprintf("create upload dir: %v", err)})
	}
	stored := uuid.NewString() + filepath.Ext(fh.Filename)
	path := filepath.Join(h.uploadDir, stored)
	if err := c.SaveFile(fh, path); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fmt.Sprintf("save upload: %v", err)})
	}

	doc, chunks, err := h.ingest.IngestFile(c.Context(), uc.UserID, port.UploadedFile{
		Path:         path,
		Filename:     stored,
		OriginalName: fh.Filename,
		MimeType:     fh.Header.Get("Content-Type"),
		Size:         fh.Size,
	})
	if err != nil {
		slog.Error("upload failed", "file", fh.Filename, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Upload failed: " + err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Document uploaded",
		"document": doc,
		"chunks":   chunks,
	})
}

// AddURL scrapes a page and ingests its body text.
func (h *KnowledgeHandler) AddURL(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var body struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if body.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url required"})
	}

	src, chunks, err := h.ingest.IngestURL(c.Context(), uc.UserID, body.URL, body.Title, body.Description)
	if err != nil {
		slog.Error("add url failed", "url", body.URL, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Add URL failed: " + err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "URL source added",
		"urlSource": src,
		"chunks":    chunks,
	})
}

// List returns all documents and URL sources.
func (h *KnowledgeHandler) List(c fiber.Ctx) error {
	docs, urls, err := h.ingest.Sources(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"documents": docs, "urls": urls})
}

// Delete removes a source and its chunks.
func (h *KnowledgeHandler) Delete(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	err = h.ingest.DeleteSource(c.Context(), id)
	if errors.Is(err, port.ErrSourceNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Source not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Source deleted"})
}
