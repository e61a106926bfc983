package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLexicon(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 1, lex.Version)
	assert.NotEmpty(t, lex.Synonyms)
	assert.NotEmpty(t, lex.DomainKeywords)
	assert.NotEmpty(t, lex.IntentPatterns)
	assert.NotEmpty(t, lex.StalenessMarkers)
	assert.NotEmpty(t, lex.PersonaMarkers["friendly"])

	// Every domain the classifier registers must have keywords.
	for _, domain := range []string{"registration", "password", "vehicle", "maintenance", "fuel"} {
		assert.NotEmpty(t, lex.DomainKeywords[domain], "domain %s", domain)
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	lex, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, lex.Synonyms)
}

func TestLoadCustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	content := `
version: 2
synonyms:
  add: [create]
domain_keywords:
  registration: [register]
  password: [password]
  vehicle: [vehicle]
  maintenance: [maintenance]
  fuel: [fuel]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	lex, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, lex.Version)
	assert.Equal(t, []string{"create"}, lex.Synonyms["add"])
}

func TestLoadRejectsIncompleteTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/lexicon.yaml")
	assert.Error(t, err)
}
