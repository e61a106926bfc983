// Package lexicon holds the keyword, synonym and pattern tables that drive
// the matching, classification and safety heuristics. The tables live in
// versioned YAML so matcher behavior can change without a code change; one
// canonical table exists per classification axis.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type Lexicon struct {
	Version int `yaml:"version"`

	Synonyms       map[string][]string `yaml:"synonyms"`
	IntentPatterns map[string][]string `yaml:"intent_patterns"`
	DomainKeywords map[string][]string `yaml:"domain_keywords"`

	SpamKeywords      []string `yaml:"spam_keywords"`
	AbusePatterns     []string `yaml:"abuse_patterns"`
	InjectionKeywords []string `yaml:"injection_keywords"`
	MaliciousPatterns []string `yaml:"malicious_patterns"`

	StalenessMarkers []string `yaml:"staleness_markers"`

	PositiveWords   []string `yaml:"positive_words"`
	NegativeWords   []string `yaml:"negative_words"`
	FrustratedWords []string `yaml:"frustrated_words"`

	VagueWords     []string `yaml:"vague_words"`
	TechnicalTerms []string `yaml:"technical_terms"`

	PersonaMarkers     map[string][]string `yaml:"persona_markers"`
	UncertaintyPhrases []string            `yaml:"uncertainty_phrases"`
}

// Default returns the embedded lexicon.
func Default() (*Lexicon, error) {
	return parse(defaultYAML)
}

// Load reads a lexicon from a YAML file, falling back to the embedded
// default when path is empty.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}

	return parse(data)
}

func parse(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}

	if len(lex.Synonyms) == 0 || len(lex.DomainKeywords) == 0 {
		return nil, fmt.Errorf("lexicon missing required tables")
	}

	return &lex, nil
}
