// Package grounding decides how much trust to place in a drafted answer
// based on the retrieval evidence behind it, and filters stale corpus
// entries out of that evidence.
package grounding

import (
	"fmt"
	"strings"

	"github.com/fleetassist/backend/internal/lexicon"
	"github.com/fleetassist/backend/internal/search"
	"github.com/fleetassist/backend/internal/storage/models"
)

// hedgeThreshold is the confidence below which answers get a hedging note.
const hedgeThreshold = 0.6

const hedgeNote = "\n\nNote: I'm not fully certain this answers your question. If it doesn't, try rephrasing or contact support@fleetassist.io."

// Result is the grounding assessment of one answer.
type Result struct {
	Answer     string
	IsGrounded bool
	Confidence float64
}

type Grounder struct {
	stalenessMarkers []string
}

func NewGrounder(lex *lexicon.Lexicon) *Grounder {
	return &Grounder{stalenessMarkers: lex.StalenessMarkers}
}

// Ground stamps the answer with a grounding verdict. Confidence is the
// best supporting match score; with no evidence the answer is replaced by
// a fixed no-match message at zero confidence.
func (g *Grounder) Ground(query, answer string, matches []search.Match) Result {
	if len(matches) == 0 {
		return Result{
			Answer:     NoMatchAnswer(query),
			IsGrounded: false,
			Confidence: 0,
		}
	}

	confidence := 0.0
	for _, m := range matches {
		if m.Score > confidence {
			confidence = m.Score
		}
	}

	if confidence < hedgeThreshold {
		answer += hedgeNote
	}

	return Result{
		Answer:     answer,
		IsGrounded: true,
		Confidence: confidence,
	}
}

// Fresh reports whether an entry's answer is free of staleness markers
// such as "coming soon" or "deprecated". Stale entries must never reach
// the user as evidence.
func (g *Grounder) Fresh(entry models.FAQEntry) bool {
	answerLower := strings.ToLower(entry.Answer)
	for _, marker := range g.stalenessMarkers {
		if strings.Contains(answerLower, marker) {
			return false
		}
	}
	return true
}

// FilterFresh drops stale matches, preserving order.
func (g *Grounder) FilterFresh(matches []search.Match) []search.Match {
	fresh := matches[:0]
	for _, m := range matches {
		if g.Fresh(m.Entry) {
			fresh = append(fresh, m)
		}
	}
	return fresh
}

// NoMatchAnswer is the fixed response for queries with no usable evidence.
func NoMatchAnswer(query string) string {
	return fmt.Sprintf("I couldn't find information about %q in our knowledge base. Please try rephrasing your question, or reach out to support@fleetassist.io for help.", query)
}
