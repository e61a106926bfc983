package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fleetassist/backend/internal/storage/models"
	"github.com/fleetassist/backend/pkg/logger"
	"github.com/fleetassist/backend/pkg/retry"
)

// store is the persistence surface the sink writes to.
type store interface {
	InsertAnalyticsRecord(ctx context.Context, rec *models.AnalyticsRecord) error
}

// Sink persists analytics records off the critical path. Writes are
// retried because a record is worth a second attempt, but failures are
// only logged: analytics must never fail the query that produced them.
type Sink struct {
	store    store
	retryCfg retry.Config
}

func NewSink(st store) *Sink {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 3
	return &Sink{store: st, retryCfg: cfg}
}

// Record assigns identity and timestamps to the record and writes it.
// The record ID is returned even when the write ultimately failed so
// callers can still correlate logs.
func (s *Sink) Record(ctx context.Context, rec *models.AnalyticsRecord) string {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	err := retry.Do(ctx, s.retryCfg, func() error {
		return s.store.InsertAnalyticsRecord(ctx, rec)
	})
	if err != nil {
		logger.Error("failed to persist analytics record",
			zap.String("record_id", rec.ID),
			zap.String("user_id", rec.UserID),
			zap.Error(err))
	}

	return rec.ID
}

// BuildRecord assembles a full analytics record from tagging output and
// pipeline facts.
func BuildRecord(userID, query, intentName string, tags Tags, faqMatched bool, similarity float64, fallbackAI bool, groundingConfidence float64, isGrounded bool) *models.AnalyticsRecord {
	return &models.AnalyticsRecord{
		UserID:                     userID,
		Query:                      query,
		Intent:                     intentName,
		FAQMatched:                 faqMatched,
		SimilarityScore:            similarity,
		Persona:                    tags.Persona,
		PersonaConfidence:          tags.PersonaScore,
		Sentiment:                  tags.Sentiment,
		SentimentScore:             tags.SentimentScore,
		FallbackAIUsed:             fallbackAI,
		MisunderstandingRisk:       tags.MisunderstandingRisk,
		MisunderstandingIndicators: tags.MisunderstandingIndicators,
		ShouldRequestClarification: tags.ShouldRequestClarification,
		QueryMetadata:              tags.Query,
		GroundingConfidence:        groundingConfidence,
		IsGrounded:                 isGrounded,
		ResponseQuality:            responseQuality(similarity, groundingConfidence, tags.MisunderstandingRisk),
	}
}

// responseQuality is a coarse composite used for trend dashboards, not
// user-facing decisions.
func responseQuality(similarity, groundingConfidence, risk float64) float64 {
	q := 0.4*similarity + 0.4*groundingConfidence + 0.2*(1.0-risk)
	if q < 0 {
		return 0
	}
	if q > 1 {
		return 1
	}
	return q
}
