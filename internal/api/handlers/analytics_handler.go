package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fleetassist/backend/internal/storage/models"
	"github.com/fleetassist/backend/pkg/logger"
)

// AnalyticsReader exposes the aggregate views over the analytics table.
type AnalyticsReader interface {
	GetAnalyticsStats(ctx context.Context) (*models.AnalyticsStats, error)
	GetSentimentDistribution(ctx context.Context) (*models.SentimentDistribution, error)
	GetIntentDistribution(ctx context.Context) ([]models.IntentCount, error)
}

type AnalyticsHandler struct {
	reader AnalyticsReader
}

func NewAnalyticsHandler(reader AnalyticsReader) *AnalyticsHandler {
	return &AnalyticsHandler{reader: reader}
}

// Stats reports pipeline-wide aggregates: totals, match rate, fallback
// rate and average quality scores.
func (h *AnalyticsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.reader.GetAnalyticsStats(c.Context())
	if err != nil {
		logger.Error("failed to load analytics stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load analytics.",
		})
	}

	return c.JSON(fiber.Map{
		"total_queries":             stats.TotalQueries,
		"faq_match_rate":            stats.FAQMatchRate,
		"ai_fallback_rate":          stats.AIFallbackRate,
		"avg_similarity_score":      stats.AvgSimilarityScore,
		"avg_misunderstanding_risk": stats.AvgMisunderstandingRisk,
		"avg_grounding_confidence":  stats.AvgGroundingConfidence,
		"avg_response_quality":      stats.AvgResponseQuality,
	})
}

// Sentiments reports how query sentiment is distributed.
func (h *AnalyticsHandler) Sentiments(c *fiber.Ctx) error {
	dist, err := h.reader.GetSentimentDistribution(c.Context())
	if err != nil {
		logger.Error("failed to load sentiment distribution", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load analytics.",
		})
	}

	return c.JSON(fiber.Map{
		"positive":   dist.Positive,
		"neutral":    dist.Neutral,
		"negative":   dist.Negative,
		"frustrated": dist.Frustrated,
	})
}

// Intents reports which intents users ask about most.
func (h *AnalyticsHandler) Intents(c *fiber.Ctx) error {
	counts, err := h.reader.GetIntentDistribution(c.Context())
	if err != nil {
		logger.Error("failed to load intent distribution", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load analytics.",
		})
	}

	intents := make([]fiber.Map, 0, len(counts))
	for _, ic := range counts {
		intents = append(intents, fiber.Map{
			"intent":     ic.Intent,
			"count":      ic.Count,
			"percentage": ic.Percentage,
		})
	}

	return c.JSON(fiber.Map{"intents": intents})
}
