package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/fleetassist/backend/internal/storage/models"
	"github.com/fleetassist/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS faqs (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		category TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_faqs_category ON faqs(category);

	CREATE TABLE IF NOT EXISTS analytics (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		query TEXT NOT NULL,
		intent TEXT,
		faq_matched INTEGER NOT NULL DEFAULT 0,
		similarity_score REAL,
		persona TEXT,
		persona_confidence REAL,
		sentiment TEXT,
		sentiment_score REAL,
		fallback_ai_used INTEGER NOT NULL DEFAULT 0,
		misunderstanding_risk REAL,
		misunderstanding_indicators TEXT,
		should_request_clarification INTEGER NOT NULL DEFAULT 0,
		query_complexity REAL,
		query_word_count INTEGER,
		query_char_count INTEGER,
		query_is_vague INTEGER,
		query_has_technical_terms INTEGER,
		grounding_confidence REAL,
		is_grounded INTEGER NOT NULL DEFAULT 0,
		response_quality REAL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analytics_user ON analytics(user_id);
	CREATE INDEX IF NOT EXISTS idx_analytics_created ON analytics(created_at);
	CREATE INDEX IF NOT EXISTS idx_analytics_intent ON analytics(intent);

	CREATE TABLE IF NOT EXISTS user_profiles (
		id TEXT PRIMARY KEY,
		email TEXT,
		full_name TEXT,
		preferred_name TEXT,
		tone TEXT,
		detail_level TEXT,
		language TEXT,
		interaction_count INTEGER NOT NULL DEFAULT 0,
		last_interaction INTEGER,
		recent_queries TEXT
	);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// ListFAQs returns the full corpus in stable insertion order.
func (c *Client) ListFAQs(ctx context.Context) ([]models.FAQEntry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, question, answer, IFNULL(category, ''), created_at, updated_at FROM faqs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list faqs: %w", err)
	}
	defer rows.Close()

	var entries []models.FAQEntry
	for rows.Next() {
		var e models.FAQEntry
		var createdAt, updatedAt int64

		if err := rows.Scan(&e.ID, &e.Question, &e.Answer, &e.Category, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan faq row: %w", err)
		}

		e.CreatedAt = time.Unix(createdAt, 0)
		e.UpdatedAt = time.Unix(updatedAt, 0)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (c *Client) UpsertFAQ(ctx context.Context, entry *models.FAQEntry) error {
	query := `
		INSERT INTO faqs (id, question, answer, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			question = excluded.question,
			answer = excluded.answer,
			category = excluded.category,
			updated_at = excluded.updated_at
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.Question,
		entry.Answer,
		entry.Category,
		entry.CreatedAt.Unix(),
		entry.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert faq: %w", err)
	}

	logger.Debug("FAQ upserted", zap.String("faq_id", entry.ID))
	return nil
}

func (c *Client) CountFAQs(ctx context.Context) (int, error) {
	var count int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM faqs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count faqs: %w", err)
	}
	return count, nil
}

func (c *Client) InsertAnalyticsRecord(ctx context.Context, record *models.AnalyticsRecord) error {
	indicatorsJSON, _ := json.Marshal(record.MisunderstandingIndicators)

	query := `
		INSERT INTO analytics (id, user_id, query, intent, faq_matched, similarity_score,
			persona, persona_confidence, sentiment, sentiment_score, fallback_ai_used,
			misunderstanding_risk, misunderstanding_indicators, should_request_clarification,
			query_complexity, query_word_count, query_char_count, query_is_vague,
			query_has_technical_terms, grounding_confidence, is_grounded, response_quality, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.UserID,
		record.Query,
		record.Intent,
		boolToInt(record.FAQMatched),
		record.SimilarityScore,
		record.Persona,
		record.PersonaConfidence,
		record.Sentiment,
		record.SentimentScore,
		boolToInt(record.FallbackAIUsed),
		record.MisunderstandingRisk,
		string(indicatorsJSON),
		boolToInt(record.ShouldRequestClarification),
		record.QueryMetadata.Complexity,
		record.QueryMetadata.WordCount,
		record.QueryMetadata.CharCount,
		boolToInt(record.QueryMetadata.IsVague),
		boolToInt(record.QueryMetadata.HasTechnicalTerms),
		record.GroundingConfidence,
		boolToInt(record.IsGrounded),
		record.ResponseQuality,
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analytics record: %w", err)
	}

	logger.Debug("Analytics recorded",
		zap.String("record_id", record.ID),
		zap.String("intent", record.Intent),
	)

	return nil
}

func (c *Client) GetAnalyticsStats(ctx context.Context) (*models.AnalyticsStats, error) {
	query := `
		SELECT COUNT(*),
			IFNULL(AVG(similarity_score), 0),
			IFNULL(AVG(faq_matched), 0),
			IFNULL(AVG(fallback_ai_used), 0),
			IFNULL(AVG(misunderstanding_risk), 0),
			IFNULL(AVG(grounding_confidence), 0),
			IFNULL(AVG(response_quality), 0)
		FROM analytics
	`

	var stats models.AnalyticsStats
	err := c.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalQueries,
		&stats.AvgSimilarityScore,
		&stats.FAQMatchRate,
		&stats.AIFallbackRate,
		&stats.AvgMisunderstandingRisk,
		&stats.AvgGroundingConfidence,
		&stats.AvgResponseQuality,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get analytics stats: %w", err)
	}

	return &stats, nil
}

func (c *Client) GetSentimentDistribution(ctx context.Context) (*models.SentimentDistribution, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT sentiment, COUNT(*) FROM analytics GROUP BY sentiment`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sentiment distribution: %w", err)
	}
	defer rows.Close()

	var dist models.SentimentDistribution
	for rows.Next() {
		var sentiment string
		var count int
		if err := rows.Scan(&sentiment, &count); err != nil {
			return nil, fmt.Errorf("failed to scan sentiment row: %w", err)
		}

		switch sentiment {
		case "positive":
			dist.Positive = count
		case "negative":
			dist.Negative = count
		case "frustrated":
			dist.Frustrated = count
		default:
			dist.Neutral += count
		}
	}

	return &dist, rows.Err()
}

func (c *Client) GetIntentDistribution(ctx context.Context) ([]models.IntentCount, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT IFNULL(intent, 'general'), COUNT(*) FROM analytics GROUP BY intent ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get intent distribution: %w", err)
	}
	defer rows.Close()

	var counts []models.IntentCount
	total := 0
	for rows.Next() {
		var ic models.IntentCount
		if err := rows.Scan(&ic.Intent, &ic.Count); err != nil {
			return nil, fmt.Errorf("failed to scan intent row: %w", err)
		}
		total += ic.Count
		counts = append(counts, ic)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range counts {
		if total > 0 {
			counts[i].Percentage = float64(counts[i].Count) / float64(total) * 100
		}
	}

	return counts, nil
}

func (c *Client) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `
		SELECT id, IFNULL(email, ''), IFNULL(full_name, ''), IFNULL(preferred_name, ''),
			IFNULL(tone, ''), IFNULL(detail_level, ''), IFNULL(language, ''),
			interaction_count, last_interaction, IFNULL(recent_queries, '[]')
		FROM user_profiles WHERE id = ?
	`

	var p models.UserProfile
	var lastInteraction sql.NullInt64
	var recentJSON string

	err := c.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.PreferredName,
		&p.Preferences.Tone,
		&p.Preferences.DetailLevel,
		&p.Preferences.Language,
		&p.InteractionCount,
		&lastInteraction,
		&recentJSON,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	if lastInteraction.Valid {
		t := time.Unix(lastInteraction.Int64, 0)
		p.LastInteraction = &t
	}

	json.Unmarshal([]byte(recentJSON), &p.RecentQueries)

	return &p, nil
}

func (c *Client) UpsertUserProfile(ctx context.Context, profile *models.UserProfile) error {
	recentJSON, _ := json.Marshal(profile.RecentQueries)

	var lastInteraction interface{}
	if profile.LastInteraction != nil {
		lastInteraction = profile.LastInteraction.Unix()
	}

	query := `
		INSERT INTO user_profiles (id, email, full_name, preferred_name, tone, detail_level,
			language, interaction_count, last_interaction, recent_queries)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			full_name = excluded.full_name,
			preferred_name = excluded.preferred_name,
			tone = excluded.tone,
			detail_level = excluded.detail_level,
			language = excluded.language,
			interaction_count = excluded.interaction_count,
			last_interaction = excluded.last_interaction,
			recent_queries = excluded.recent_queries
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		profile.ID,
		profile.Email,
		profile.FullName,
		profile.PreferredName,
		profile.Preferences.Tone,
		profile.Preferences.DetailLevel,
		profile.Preferences.Language,
		profile.InteractionCount,
		lastInteraction,
		string(recentJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user profile: %w", err)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
