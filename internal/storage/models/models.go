package models

import "time"

// FAQEntry is one row of the support knowledge base. Entries are immutable
// while a query is being served; the corpus may change between queries.
type FAQEntry struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QueryMetadata describes the shape of an incoming query.
type QueryMetadata struct {
	Complexity        float64 `json:"complexity"`
	WordCount         int     `json:"word_count"`
	CharCount         int     `json:"char_count"`
	IsVague           bool    `json:"is_vague"`
	HasTechnicalTerms bool    `json:"has_technical_terms"`
}

// AnalyticsRecord is the durable observability record written once per
// served query. It is never mutated after creation.
type AnalyticsRecord struct {
	ID                         string
	UserID                     string
	Query                      string
	Intent                     string
	FAQMatched                 bool
	SimilarityScore            float64
	Persona                    string
	PersonaConfidence          float64
	Sentiment                  string
	SentimentScore             float64
	FallbackAIUsed             bool
	MisunderstandingRisk       float64
	MisunderstandingIndicators []string
	ShouldRequestClarification bool
	QueryMetadata              QueryMetadata
	GroundingConfidence        float64
	IsGrounded                 bool
	ResponseQuality            float64
	CreatedAt                  time.Time
}

// RecentQuery is one entry of a user's capped interaction history.
type RecentQuery struct {
	Topic           string    `json:"topic"`
	Query           string    `json:"query"`
	Timestamp       time.Time `json:"timestamp"`
	ResponseQuality float64   `json:"response_quality"`
}

// Preferences holds per-user response tuning.
type Preferences struct {
	Tone        string `json:"tone"`
	DetailLevel string `json:"detail_level"`
	Language    string `json:"language"`
}

// UserProfile backs the memory collaborator: who the user is and what they
// have been asking about.
type UserProfile struct {
	ID               string        `json:"id"`
	Email            string        `json:"email,omitempty"`
	FullName         string        `json:"full_name,omitempty"`
	PreferredName    string        `json:"preferred_name,omitempty"`
	InteractionCount int           `json:"interaction_count"`
	LastInteraction  *time.Time    `json:"last_interaction,omitempty"`
	Preferences      Preferences   `json:"preferences"`
	RecentQueries    []RecentQuery `json:"recent_queries"`
}

// AnalyticsStats is an aggregate view over the analytics table.
type AnalyticsStats struct {
	TotalQueries            int
	AvgSimilarityScore      float64
	FAQMatchRate            float64
	AIFallbackRate          float64
	AvgMisunderstandingRisk float64
	AvgGroundingConfidence  float64
	AvgResponseQuality      float64
}

// SentimentDistribution counts queries per detected sentiment bucket.
type SentimentDistribution struct {
	Positive   int
	Neutral    int
	Negative   int
	Frustrated int
}

// IntentCount is one bucket of the intent distribution.
type IntentCount struct {
	Intent     string
	Count      int
	Percentage float64
}
