package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetassist/backend/internal/intent"
	"github.com/fleetassist/backend/internal/lexicon"
	"github.com/fleetassist/backend/internal/storage/models"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()

	lex, err := lexicon.Default()
	require.NoError(t, err)

	classifier, err := intent.NewClassifier(lex)
	require.NoError(t, err)

	return NewMatcher(lex, classifier, 0.3, 5)
}

func testCorpus() []models.FAQEntry {
	return []models.FAQEntry{
		{ID: "faq-1", Question: "How do I add a vehicle to my fleet?", Answer: "Go to the Vehicles page and click Add Vehicle.", Category: "vehicle"},
		{ID: "faq-2", Question: "How do I track fuel costs?", Answer: "Open the Fuel tab and log each fill-up.", Category: "fuel"},
		{ID: "faq-3", Question: "How do I schedule maintenance?", Answer: "Use the Maintenance page to set service intervals.", Category: "maintenance"},
		{ID: "faq-4", Question: "Can I export my reports?", Answer: "Reports can be exported as CSV or PDF.", Category: "reports"},
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Add A Vehicle", "add a vehicle"},
		{"strips punctuation", "how do I add a vehicle?!", "how do i add a vehicle"},
		{"collapses whitespace", "add   a \t vehicle", "add a vehicle"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestMatchRatio(t *testing.T) {
	assert.Equal(t, 1.0, matchRatio("", ""))
	assert.Equal(t, 1.0, matchRatio("abc", "abc"))
	assert.Equal(t, 0.0, matchRatio("abc", "xyz"))

	// "abcd" vs "bcde" share "bcd": 2*3/8.
	assert.InDelta(t, 0.75, matchRatio("abcd", "bcde"), 1e-9)

	ratio := matchRatio("add a vehicle", "add a new vehicle")
	assert.Greater(t, ratio, 0.8)
	assert.Less(t, ratio, 1.0)
}

func TestMatchRatioSymmetricRange(t *testing.T) {
	pairs := [][2]string{
		{"track fuel costs", "fuel cost tracking"},
		{"reset my password", "how do i reset my password"},
		{"a", "aaaa"},
	}

	for _, pair := range pairs {
		ab := matchRatio(pair[0], pair[1])
		assert.GreaterOrEqual(t, ab, 0.0)
		assert.LessOrEqual(t, ab, 1.0)
	}
}

func TestSearchExactQuestionRanksFirst(t *testing.T) {
	m := newTestMatcher(t)
	corpus := testCorpus()

	matches := m.Search("How do I track fuel costs?", corpus)
	require.NotEmpty(t, matches)
	assert.Equal(t, "faq-2", matches[0].Entry.ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestSearchSynonymExpansion(t *testing.T) {
	m := newTestMatcher(t)
	corpus := testCorpus()

	// "car" is not in any question but expands toward "vehicle".
	withSynonym := m.Search("how do I add a car", corpus)
	require.NotEmpty(t, withSynonym)
	assert.Equal(t, "faq-1", withSynonym[0].Entry.ID)
}

func TestSearchEmptyInputs(t *testing.T) {
	m := newTestMatcher(t)

	assert.Empty(t, m.Search("", testCorpus()))
	assert.Empty(t, m.Search("   ?!", testCorpus()))
	assert.Empty(t, m.Search("add a vehicle", nil))
}

func TestSearchThresholdFiltersNoise(t *testing.T) {
	m := newTestMatcher(t)
	corpus := testCorpus()

	matches := m.Search("zzzz qqqq xxxx", corpus)
	assert.Empty(t, matches)
}

func TestSearchTopKBound(t *testing.T) {
	lex, err := lexicon.Default()
	require.NoError(t, err)
	classifier, err := intent.NewClassifier(lex)
	require.NoError(t, err)

	m := NewMatcher(lex, classifier, 0.01, 2)
	matches := m.Search("how do I", testCorpus())
	assert.LessOrEqual(t, len(matches), 2)
}

func TestSearchOrderingIsStable(t *testing.T) {
	lex, err := lexicon.Default()
	require.NoError(t, err)
	classifier, err := intent.NewClassifier(lex)
	require.NoError(t, err)
	m := NewMatcher(lex, classifier, 0.01, 10)

	corpus := []models.FAQEntry{
		{ID: "first", Question: "identical question text", Answer: "one", Category: ""},
		{ID: "second", Question: "identical question text", Answer: "one", Category: ""},
	}

	matches := m.Search("identical question text", corpus)
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].Entry.ID)
	assert.Equal(t, "second", matches[1].Entry.ID)
}

func TestCategoryBoostCapped(t *testing.T) {
	m := newTestMatcher(t)

	corpus := []models.FAQEntry{
		{ID: "boosted", Question: "How do I add a vehicle?", Answer: "Vehicles page.", Category: "vehicle"},
	}

	matches := m.Search("How do I add a vehicle?", corpus)
	require.Len(t, matches, 1)
	assert.LessOrEqual(t, matches[0].Score, 1.0)
}
