// Package analytics derives presentation metadata from a finished
// exchange: query traits, sentiment, answer persona and an estimate of how
// likely the user was misunderstood. Tagging is strictly best-effort and
// never fails the request it describes.
package analytics

import (
	"math"
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/fleetassist/backend/internal/lexicon"
	"github.com/fleetassist/backend/internal/storage/models"
	"github.com/fleetassist/backend/pkg/logger"
)

// Sentiment labels, ordered by precedence.
const (
	SentimentFrustrated = "frustrated"
	SentimentNegative   = "negative"
	SentimentPositive   = "positive"
	SentimentNeutral    = "neutral"
)

const PersonaNeutral = "neutral"

// personaOrder fixes tie-breaking when marker counts are equal.
var personaOrder = []string{"friendly", "professional", "technical"}

const (
	clarificationThreshold = 0.6
	vagueMinimum           = 2
)

// Tags is the full metadata bundle for one exchange.
type Tags struct {
	Query          models.QueryMetadata
	Sentiment      string
	SentimentScore float64
	Persona        string
	PersonaScore   float64

	MisunderstandingRisk       float64
	MisunderstandingIndicators []string
	ShouldRequestClarification bool
}

// Exchange describes the finished pipeline run being tagged.
type Exchange struct {
	Query            string
	Answer           string
	SimilarityScore  float64
	IntentConfidence float64
}

type Tagger struct {
	lex *lexicon.Lexicon
}

func NewTagger(lex *lexicon.Lexicon) *Tagger {
	return &Tagger{lex: lex}
}

// Tag computes all metadata for an exchange. A panic anywhere inside
// degrades to neutral tags rather than failing the caller.
func (t *Tagger) Tag(ex Exchange) (tags Tags) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("analytics tagging failed, using neutral tags",
				zap.Any("panic", r))
			tags = neutralTags()
		}
	}()

	queryWords := tokenize(ex.Query)
	answerWords := tokenize(ex.Answer)

	tags.Query = t.queryMetadata(ex.Query, queryWords)
	tags.Sentiment, tags.SentimentScore = t.sentiment(ex.Query)
	tags.Persona, tags.PersonaScore = t.persona(ex.Answer)

	tags.MisunderstandingRisk, tags.MisunderstandingIndicators = t.misunderstandingRisk(ex, queryWords, answerWords, tags.Query.IsVague)
	tags.ShouldRequestClarification = tags.MisunderstandingRisk > clarificationThreshold

	return tags
}

func neutralTags() Tags {
	return Tags{
		Sentiment: SentimentNeutral,
		Persona:   PersonaNeutral,
	}
}

// queryMetadata scores structural traits of the query itself.
func (t *Tagger) queryMetadata(query string, words []string) models.QueryMetadata {
	queryLower := strings.ToLower(query)

	special := 0
	for _, r := range query {
		switch r {
		case '?', '!', '@', '#', '$', '%', '&', '*', '(', ')', '[', ']', '{', '}':
			special++
		}
	}

	technical := countAny(queryLower, t.lex.TechnicalTerms)

	complexity := float64(len(words)) / 20.0
	if special > 0 {
		complexity += 0.1
	}
	if technical > 0 {
		complexity += 0.2
	}
	complexity = math.Min(1.0, complexity)

	vague := countAny(queryLower, t.lex.VagueWords)

	return models.QueryMetadata{
		Complexity:        complexity,
		WordCount:         len(words),
		CharCount:         len(query),
		IsVague:           vague >= vagueMinimum,
		HasTechnicalTerms: technical > 0,
	}
}

// sentiment classifies the query text. Frustration takes precedence over
// negative which takes precedence over positive, so ties never soften the
// reading.
func (t *Tagger) sentiment(query string) (string, float64) {
	queryLower := strings.ToLower(query)

	frustrated := countAny(queryLower, t.lex.FrustratedWords)
	negative := countAny(queryLower, t.lex.NegativeWords)
	positive := countAny(queryLower, t.lex.PositiveWords)

	switch {
	case frustrated > 0:
		return SentimentFrustrated, -0.8
	case negative > 0 && negative >= positive:
		return SentimentNegative, -float64(negative) / float64(negative+positive)
	case positive > 0:
		return SentimentPositive, float64(positive) / float64(positive+negative+1)
	default:
		return SentimentNeutral, 0
	}
}

// persona buckets the answer's tone by marker counts, tie-broken in a
// fixed bucket order. The score is the winning bucket's share of all
// marker hits.
func (t *Tagger) persona(answer string) (string, float64) {
	answerLower := strings.ToLower(answer)

	total := 0
	counts := make(map[string]int, len(personaOrder))
	for _, bucket := range personaOrder {
		n := countAny(answerLower, t.lex.PersonaMarkers[bucket])
		counts[bucket] = n
		total += n
	}

	if total == 0 {
		return PersonaNeutral, 0
	}

	best := personaOrder[0]
	for _, bucket := range personaOrder[1:] {
		if counts[bucket] > counts[best] {
			best = bucket
		}
	}

	return best, float64(counts[best]) / float64(total)
}

// misunderstandingRisk sums independent risk signals and clamps to [0, 1].
func (t *Tagger) misunderstandingRisk(ex Exchange, queryWords, answerWords []string, isVague bool) (float64, []string) {
	risk := 0.0
	var indicators []string

	if ex.SimilarityScore < 0.4 {
		risk += 0.3
		indicators = append(indicators, "low_similarity_score")
	}

	if isVague {
		risk += 0.2
		indicators = append(indicators, "vague_query")
	}

	if len(queryWords) > 0 && len(answerWords) > 10*len(queryWords) {
		risk += 0.1
		indicators = append(indicators, "verbose_response")
	}

	answerLower := strings.ToLower(ex.Answer)
	for _, phrase := range t.lex.UncertaintyPhrases {
		if strings.Contains(answerLower, phrase) {
			risk += 0.2
			indicators = append(indicators, "uncertain_response")
			break
		}
	}

	if ex.IntentConfidence < 0.3 {
		risk += 0.2
		indicators = append(indicators, "low_intent_confidence")
	}

	return math.Min(1.0, risk), indicators
}

// tokenize splits text into word tokens. Punctuation-only tokens are
// dropped so counts track words the way a reader would. Falls back to
// whitespace splitting if the tokenizer cannot build a document.
func tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithSegmentation(false))
	if err != nil {
		return strings.Fields(text)
	}

	tokens := doc.Tokens()
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if hasLetterOrDigit(tok.Text) {
			words = append(words, tok.Text)
		}
	}
	return words
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r > 127 {
			return true
		}
	}
	return false
}

// countAny reports how many of the needles occur in text. Each needle
// counts at most once, so repetition never inflates a reading.
func countAny(text string, needles []string) int {
	n := 0
	for _, needle := range needles {
		if strings.Contains(text, strings.ToLower(needle)) {
			n++
		}
	}
	return n
}
