package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetassist/backend/internal/lexicon"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()

	lex, err := lexicon.Default()
	require.NoError(t, err)

	c, err := NewClassifier(lex)
	require.NoError(t, err)
	return c
}

func TestClassifyDomain(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		query string
		want  Domain
	}{
		{"how do I sign up", DomainRegistration},
		{"I forgot my password", DomainPasswordHelp},
		{"add a truck to my fleet", DomainVehicle},
		{"when is my oil change due", DomainMaintenance},
		{"show fuel consumption trends", DomainFuel},
		{"tell me a joke", DomainGeneral},
		{"", DomainGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ClassifyDomain(tt.query))
		})
	}
}

func TestClassifyDomainOrderIsFixed(t *testing.T) {
	c := newTestClassifier(t)

	// Registration keywords win over password keywords when both appear.
	assert.Equal(t, DomainRegistration, c.ClassifyDomain("register a new password"))
}

func TestDetectIntent(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		query      string
		wantIntent string
	}{
		{"how do I add a new vehicle", "add_vehicle"},
		{"schedule maintenance for my van", "maintenance"},
		{"set a reminder for inspection", "reminder"},
		{"track cost of fuel", "track_cost"},
		{"how do I create account", "account_setup"},
		{"I can't login", "login"},
		{"export my data", "export"},
		{"where is my gps location", "gps"},
		{"invite a team member", "team"},
		{"driver license compliance", "compliance"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			name, confidence := c.DetectIntent(tt.query)
			assert.Equal(t, tt.wantIntent, name)
			assert.GreaterOrEqual(t, confidence, 0.9)
			assert.LessOrEqual(t, confidence, 1.0)
		})
	}
}

func TestDetectIntentNoMatch(t *testing.T) {
	c := newTestClassifier(t)

	name, confidence := c.DetectIntent("what's the weather like")
	assert.Equal(t, IntentGeneral, name)
	assert.Zero(t, confidence)
}

func TestDetectIntentRepeatedStemEscalates(t *testing.T) {
	c := newTestClassifier(t)

	_, once := c.DetectIntent("schedule maintenance")
	assert.Equal(t, 0.9, once)

	_, twice := c.DetectIntent("maintenance costs for maintenance work")
	assert.Equal(t, 1.0, twice)
}

func TestPatternStem(t *testing.T) {
	assert.Equal(t, "add", patternStem("add.*vehicle"))
	assert.Equal(t, "maint", patternStem("maintenance"))
	assert.Equal(t, "gps", patternStem("gps"))
	assert.Equal(t, "", patternStem(".*"))
}
