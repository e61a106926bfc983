package handlers

import (
	"context"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fleetassist/backend/pkg/logger"
)

type importHTMLRequest struct {
	URL      string `json:"url"`
	Category string `json:"category"`
}

// HTMLImporter scrapes question/answer pairs from a help page into the
// corpus.
type HTMLImporter interface {
	ImportHTML(ctx context.Context, pageURL, category string) (int, error)
}

type AdminHandler struct {
	importer HTMLImporter
}

func NewAdminHandler(importer HTMLImporter) *AdminHandler {
	return &AdminHandler{importer: importer}
}

// ImportHTML pulls a help-center page into the FAQ corpus.
func (h *AdminHandler) ImportHTML(c *fiber.Ctx) error {
	var req importHTMLRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body.",
		})
	}

	pageURL := strings.TrimSpace(req.URL)
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A valid http or https page URL is required.",
		})
	}

	imported, err := h.importer.ImportHTML(c.Context(), pageURL, strings.TrimSpace(req.Category))
	if err != nil {
		logger.Error("html import failed",
			zap.String("url", pageURL),
			zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to import the page.",
		})
	}

	logger.Info("html import complete",
		zap.String("url", pageURL),
		zap.Int("entries", imported))
	return c.JSON(fiber.Map{"imported": imported})
}
