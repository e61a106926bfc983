// Package contextcheck rejects retrieval results that answer a different
// topic than the user asked about. It runs two related checks: a validator
// on the top match and a cross-domain override that discards the whole
// result set. Both stay in place so a miss by one is caught by the other.
package contextcheck

import (
	"strings"

	"github.com/fleetassist/backend/internal/intent"
	"github.com/fleetassist/backend/internal/search"
)

// domainKeywordSource is the slice of the intent classifier the validator
// needs: the shared per-domain keyword tables.
type domainKeywordSource interface {
	DomainKeywords(domain intent.Domain) []string
	ClassifyDomain(query string) intent.Domain
}

type Validator struct {
	keywords domainKeywordSource
}

func NewValidator(keywords domainKeywordSource) *Validator {
	return &Validator{keywords: keywords}
}

// Appropriate reports whether the top match plausibly answers the query.
// Registration questions must never receive password answers and vice
// versa. Vehicle questions reject off-topic answers only when the match
// score is weak.
func (v *Validator) Appropriate(query string, top search.Match) bool {
	queryLower := strings.ToLower(query)
	questionLower := strings.ToLower(top.Entry.Question)

	registrationQuery := v.containsAny(queryLower, intent.DomainRegistration)
	passwordQuery := v.containsAny(queryLower, intent.DomainPasswordHelp)
	registrationAnswer := v.containsAny(questionLower, intent.DomainRegistration)
	passwordAnswer := v.containsAny(questionLower, intent.DomainPasswordHelp)

	if registrationQuery && passwordAnswer {
		return false
	}
	if passwordQuery && registrationAnswer {
		return false
	}

	if v.containsAny(queryLower, intent.DomainVehicle) {
		if !v.containsAny(questionLower, intent.DomainVehicle) && top.Score < 0.5 {
			return false
		}
	}

	return true
}

// ShouldOverride reports whether the whole result set must be discarded
// because the top match sits in a conflicting domain. Unlike Appropriate
// it keys off the query's classified domain rather than raw keywords.
func (v *Validator) ShouldOverride(query string, matches []search.Match) bool {
	if len(matches) == 0 {
		return false
	}

	questionLower := strings.ToLower(matches[0].Entry.Question)

	switch v.keywords.ClassifyDomain(query) {
	case intent.DomainRegistration:
		return v.containsAny(questionLower, intent.DomainPasswordHelp)
	case intent.DomainPasswordHelp:
		return v.containsAny(questionLower, intent.DomainRegistration)
	case intent.DomainVehicle:
		return v.containsAny(questionLower, intent.DomainMaintenance)
	}

	return false
}

func (v *Validator) containsAny(text string, domain intent.Domain) bool {
	for _, keyword := range v.keywords.DomainKeywords(domain) {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
