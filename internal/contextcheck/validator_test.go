package contextcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetassist/backend/internal/intent"
	"github.com/fleetassist/backend/internal/lexicon"
	"github.com/fleetassist/backend/internal/search"
	"github.com/fleetassist/backend/internal/storage/models"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()

	lex, err := lexicon.Default()
	require.NoError(t, err)

	classifier, err := intent.NewClassifier(lex)
	require.NoError(t, err)

	return NewValidator(classifier)
}

func matchFor(question string, score float64) search.Match {
	return search.Match{
		Entry: models.FAQEntry{ID: "faq-x", Question: question, Answer: "some answer"},
		Score: score,
	}
}

func TestAppropriateRejectsCrossedRegistrationAndPassword(t *testing.T) {
	v := newTestValidator(t)

	// Registration query against a password question is never appropriate,
	// regardless of score.
	assert.False(t, v.Appropriate("how do I sign up", matchFor("How do I reset my password?", 0.95)))

	// And the inverse.
	assert.False(t, v.Appropriate("I forgot my password", matchFor("How do I create account for my team?", 0.95)))
}

func TestAppropriateVehicleQueries(t *testing.T) {
	v := newTestValidator(t)

	// Weak off-topic match for a vehicle query is rejected.
	assert.False(t, v.Appropriate("how do I add a vehicle", matchFor("How do I export reports?", 0.4)))

	// A strong match survives even when the question lacks vehicle keywords.
	assert.True(t, v.Appropriate("how do I add a vehicle", matchFor("How do I export reports?", 0.7)))

	// On-topic vehicle match is fine at any score.
	assert.True(t, v.Appropriate("how do I add a vehicle", matchFor("How do I add a vehicle to my fleet?", 0.35)))
}

func TestAppropriateGeneralQueries(t *testing.T) {
	v := newTestValidator(t)

	assert.True(t, v.Appropriate("what are your features", matchFor("What can this product do?", 0.31)))
}

func TestShouldOverride(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name     string
		query    string
		question string
		want     bool
	}{
		{"registration query, password match", "how do I register", "What if I forgot my password?", true},
		{"password query, registration match", "reset my password", "How do I sign up?", true},
		{"vehicle query, maintenance match", "add a new vehicle", "How do I schedule maintenance service?", true},
		{"aligned domains", "add a new vehicle", "How do I add a vehicle?", false},
		{"general query never overrides", "tell me about pricing", "How do I reset my password?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := []search.Match{matchFor(tt.question, 0.8)}
			assert.Equal(t, tt.want, v.ShouldOverride(tt.query, matches))
		})
	}
}

func TestShouldOverrideEmptyMatches(t *testing.T) {
	v := newTestValidator(t)
	assert.False(t, v.ShouldOverride("how do I register", nil))
}
