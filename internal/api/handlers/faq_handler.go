// Package handlers contains the HTTP surface of the assistant.
package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fleetassist/backend/internal/greeting"
	"github.com/fleetassist/backend/internal/rag"
	"github.com/fleetassist/backend/internal/storage/models"
	"github.com/fleetassist/backend/pkg/logger"
)

const maxQueryLength = 1000

type searchRequest struct {
	Query string `json:"query"`
}

// CorpusLister exposes the read side of the FAQ store.
type CorpusLister interface {
	ListFAQs(ctx context.Context) ([]models.FAQEntry, error)
}

type FAQHandler struct {
	pipeline *rag.Pipeline
	greeter  *greeting.Service
	corpus   CorpusLister
}

func NewFAQHandler(pipeline *rag.Pipeline, greeter *greeting.Service, corpus CorpusLister) *FAQHandler {
	return &FAQHandler{pipeline: pipeline, greeter: greeter, corpus: corpus}
}

// Search answers one support question.
func (h *FAQHandler) Search(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body.",
		})
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query must not be empty.",
		})
	}
	if len(query) > maxQueryLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is too long.",
		})
	}

	resp, err := h.pipeline.Answer(c.Context(), UserKey(c), query)
	if err != nil {
		if se, ok := rag.AsSafetyError(err); ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  se.Message,
				"reason": string(se.Reason),
			})
		}

		logger.Error("search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to answer the question.",
		})
	}

	return c.JSON(resp)
}

// Greeting opens a session with a personalized greeting.
func (h *FAQHandler) Greeting(c *fiber.Ctx) error {
	return c.JSON(h.greeter.Greet(c.Context(), UserKey(c)))
}

// List returns the whole FAQ corpus.
func (h *FAQHandler) List(c *fiber.Ctx) error {
	entries, err := h.corpus.ListFAQs(c.Context())
	if err != nil {
		logger.Error("failed to list faqs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load FAQs.",
		})
	}

	return c.JSON(fiber.Map{
		"faqs":  entries,
		"count": len(entries),
	})
}

// UserKey identifies the caller: the X-User-ID header when present,
// otherwise the client IP for anonymous sessions.
func UserKey(c *fiber.Ctx) string {
	if id := strings.TrimSpace(c.Get("X-User-ID")); id != "" {
		return id
	}
	return c.IP()
}
