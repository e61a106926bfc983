// Package search implements the lexical FAQ matcher: normalized,
// synonym-expanded string similarity with a domain-aware category boost.
package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fleetassist/backend/internal/intent"
	"github.com/fleetassist/backend/internal/lexicon"
	"github.com/fleetassist/backend/internal/storage/models"
)

const (
	// answerWeight discounts similarity against the answer text so a
	// question-side match always dominates an answer-side one.
	answerWeight = 0.5

	// categoryBoost rewards entries whose category agrees with the
	// query's coarse domain.
	categoryBoost = 1.2

	directWeight   = 0.4
	expandedWeight = 0.6
)

var nonWord = regexp.MustCompile(`[^\w\s]`)
var whitespace = regexp.MustCompile(`\s+`)

// Match is one scored FAQ candidate.
type Match struct {
	Entry models.FAQEntry
	Score float64
}

type Matcher struct {
	synonyms   map[string][]string
	classifier *intent.Classifier
	threshold  float64
	topK       int
}

func NewMatcher(lex *lexicon.Lexicon, classifier *intent.Classifier, threshold float64, topK int) *Matcher {
	if threshold <= 0 {
		threshold = 0.3
	}
	if topK <= 0 {
		topK = 5
	}
	return &Matcher{
		synonyms:   lex.Synonyms,
		classifier: classifier,
		threshold:  threshold,
		topK:       topK,
	}
}

// Normalize lowercases, strips punctuation and collapses runs of
// whitespace so surface formatting never influences scores.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = nonWord.ReplaceAllString(text, "")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// expand appends the synonym expansions of each token after the original
// tokens, preserving the originals so expansion can only add signal.
func (m *Matcher) expand(text string) string {
	tokens := strings.Fields(text)
	expanded := make([]string, 0, len(tokens)*2)
	expanded = append(expanded, tokens...)

	for _, token := range tokens {
		expanded = append(expanded, m.synonyms[token]...)
	}

	return strings.Join(expanded, " ")
}

// Similarity blends the raw and synonym-expanded match ratios of two
// already-normalized strings.
func (m *Matcher) Similarity(a, b string) float64 {
	direct := matchRatio(a, b)
	expanded := matchRatio(m.expand(a), m.expand(b))
	return directWeight*direct + expandedWeight*expanded
}

// Search scores every corpus entry against the query and returns at most
// topK matches at or above the threshold, highest first. Ties keep corpus
// order. An empty query or corpus yields no matches.
func (m *Matcher) Search(query string, corpus []models.FAQEntry) []Match {
	normQuery := Normalize(query)
	if normQuery == "" || len(corpus) == 0 {
		return nil
	}

	domain := string(m.classifier.ClassifyDomain(query))

	matches := make([]Match, 0, len(corpus))
	for _, entry := range corpus {
		score := m.scoreEntry(normQuery, domain, entry)
		if score >= m.threshold {
			matches = append(matches, Match{Entry: entry, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > m.topK {
		matches = matches[:m.topK]
	}
	return matches
}

func (m *Matcher) scoreEntry(normQuery, domain string, entry models.FAQEntry) float64 {
	questionSim := m.Similarity(normQuery, Normalize(entry.Question))
	answerSim := m.Similarity(normQuery, Normalize(entry.Answer))

	score := questionSim
	if weighted := answerWeight * answerSim; weighted > score {
		score = weighted
	}

	if categoryMatches(entry.Category, domain) {
		score *= categoryBoost
		if score > 1.0 {
			score = 1.0
		}
	}

	return score
}

// categoryMatches checks substring containment in either direction so a
// short category tag like "vehicle" agrees with "vehicle_management".
func categoryMatches(category, domain string) bool {
	if category == "" || domain == "" {
		return false
	}
	category = strings.ToLower(category)
	return strings.Contains(domain, category) || strings.Contains(category, domain)
}
