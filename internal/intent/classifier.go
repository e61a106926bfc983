// Package intent classifies queries on two independent axes: a coarse
// domain used for override and validation logic, and a fine-grained intent
// used for prompt context and proactive suggestions.
package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fleetassist/backend/internal/lexicon"
)

// Domain is the coarse topic bucket of a query.
type Domain string

const (
	DomainRegistration Domain = "registration"
	DomainPasswordHelp Domain = "password_help"
	DomainVehicle      Domain = "vehicle_management"
	DomainMaintenance  Domain = "maintenance"
	DomainFuel         Domain = "fuel_tracking"
	DomainGeneral      Domain = "general"
)

// domainOrder fixes the first-match-wins evaluation order.
var domainOrder = []Domain{
	DomainRegistration,
	DomainPasswordHelp,
	DomainVehicle,
	DomainMaintenance,
	DomainFuel,
}

// lexiconKey maps a domain to its keyword table in the lexicon.
func (d Domain) lexiconKey() string {
	switch d {
	case DomainRegistration:
		return "registration"
	case DomainPasswordHelp:
		return "password"
	case DomainVehicle:
		return "vehicle"
	case DomainMaintenance:
		return "maintenance"
	case DomainFuel:
		return "fuel"
	default:
		return ""
	}
}

// fineIntentOrder fixes pattern evaluation order so classification is
// deterministic.
var fineIntentOrder = []string{
	"add_vehicle",
	"maintenance",
	"reminder",
	"track_cost",
	"account_setup",
	"login",
	"export",
	"gps",
	"team",
	"compliance",
}

const IntentGeneral = "general"

type finePatterns struct {
	name     string
	patterns []*regexp.Regexp
	stems    []string
}

type Classifier struct {
	domainKeywords map[Domain][]string
	fine           []finePatterns
}

func NewClassifier(lex *lexicon.Lexicon) (*Classifier, error) {
	c := &Classifier{
		domainKeywords: make(map[Domain][]string),
	}

	for _, domain := range domainOrder {
		keywords := lex.DomainKeywords[domain.lexiconKey()]
		if len(keywords) == 0 {
			return nil, fmt.Errorf("lexicon has no keywords for domain %q", domain)
		}
		c.domainKeywords[domain] = keywords
	}

	for _, name := range fineIntentOrder {
		raw := lex.IntentPatterns[name]
		if len(raw) == 0 {
			continue
		}

		fp := finePatterns{name: name}
		for _, pattern := range raw {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid intent pattern %q: %w", pattern, err)
			}
			fp.patterns = append(fp.patterns, re)
			fp.stems = append(fp.stems, patternStem(pattern))
		}
		c.fine = append(c.fine, fp)
	}

	return c, nil
}

// ClassifyDomain assigns the coarse domain via an ordered first-match
// keyword check.
func (c *Classifier) ClassifyDomain(query string) Domain {
	queryLower := strings.ToLower(query)

	for _, domain := range domainOrder {
		for _, keyword := range c.domainKeywords[domain] {
			if strings.Contains(queryLower, keyword) {
				return domain
			}
		}
	}

	return DomainGeneral
}

// DomainKeywords exposes the canonical keyword table for a domain, shared
// with the context validator so no second copy of the lists exists.
func (c *Classifier) DomainKeywords(domain Domain) []string {
	return c.domainKeywords[domain]
}

// DetectIntent returns the fine-grained intent and a confidence. A pattern
// match scores 0.9, escalated to 1.0 when the matched keyword's stem occurs
// more than once in the query. No match returns (general, 0.0).
func (c *Classifier) DetectIntent(query string) (string, float64) {
	queryLower := strings.ToLower(query)

	bestIntent := IntentGeneral
	bestScore := 0.0

	for _, fp := range c.fine {
		for i, re := range fp.patterns {
			if !re.MatchString(queryLower) {
				continue
			}

			score := 0.9
			if stem := fp.stems[i]; stem != "" && strings.Count(queryLower, stem) > 1 {
				score = 1.0
			}

			if score > bestScore {
				bestScore = score
				bestIntent = fp.name
			}
		}
	}

	return bestIntent, bestScore
}

// patternStem extracts the literal prefix of a regex pattern, truncated to
// five characters, used for the repetition-based confidence escalation.
func patternStem(pattern string) string {
	end := len(pattern)
	for i, r := range pattern {
		if strings.ContainsRune(`.*+?[](){}|\^$`, r) {
			end = i
			break
		}
	}

	stem := pattern[:end]
	if len(stem) > 5 {
		stem = stem[:5]
	}
	return stem
}
