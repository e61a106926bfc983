// Package safety screens every query before it reaches retrieval. The gate
// runs a fixed sequence of checks against shared per-user state: block
// status, spam, abusive language, prompt injection and malicious payloads.
// All state changes for one call happen atomically under the user's shard
// lock.
package safety

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fleetassist/backend/internal/lexicon"
	"github.com/fleetassist/backend/pkg/logger"
)

// Reason identifies which check rejected a query.
type Reason string

const (
	ReasonBlocked   Reason = "blocked"
	ReasonSpam      Reason = "spam"
	ReasonAbuse     Reason = "abuse"
	ReasonInjection Reason = "injection"
	ReasonMalicious Reason = "malicious"
)

// Verdict is the outcome of screening one query.
type Verdict struct {
	Allowed bool
	Reason  Reason
	Message string
}

const shardCount = 16

type message struct {
	text string
	at   time.Time
}

type userState struct {
	history  []message
	warnings int
	blocked  bool
}

type shard struct {
	mu    sync.Mutex
	users map[string]*userState
}

// Config tunes the gate's thresholds.
type Config struct {
	// SpamWindow bounds how far back identical messages count as spam.
	SpamWindow time.Duration
	// SpamRepeatMax is the submission at which a repeated identical
	// message is rejected.
	SpamRepeatMax int
	// WarningLimit is the number of warnings before a user is blocked.
	WarningLimit int
	// HistoryCap bounds per-user message history, oldest evicted first.
	HistoryCap int
}

func DefaultConfig() Config {
	return Config{
		SpamWindow:    5 * time.Minute,
		SpamRepeatMax: 3,
		WarningLimit:  3,
		HistoryCap:    50,
	}
}

type Gate struct {
	cfg    Config
	shards [shardCount]*shard

	spamKeywords      []string
	abusePatterns     []*regexp.Regexp
	injectionMarkers  []string
	maliciousPatterns []*regexp.Regexp

	now func() time.Time
}

func NewGate(lex *lexicon.Lexicon, cfg Config) (*Gate, error) {
	if cfg.SpamWindow <= 0 || cfg.SpamRepeatMax <= 0 || cfg.WarningLimit <= 0 || cfg.HistoryCap <= 0 {
		cfg = DefaultConfig()
	}

	g := &Gate{
		cfg:              cfg,
		spamKeywords:     lowerAll(lex.SpamKeywords),
		injectionMarkers: lowerAll(lex.InjectionKeywords),
		now:              time.Now,
	}
	for i := range g.shards {
		g.shards[i] = &shard{users: make(map[string]*userState)}
	}

	for _, pattern := range lex.AbusePatterns {
		re, err := regexp.Compile(`(?i)\b` + pattern + `\b`)
		if err != nil {
			return nil, fmt.Errorf("invalid abuse pattern %q: %w", pattern, err)
		}
		g.abusePatterns = append(g.abusePatterns, re)
	}

	for _, pattern := range lex.MaliciousPatterns {
		re, err := regexp.Compile(`(?i)` + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid malicious pattern %q: %w", pattern, err)
		}
		g.maliciousPatterns = append(g.maliciousPatterns, re)
	}

	return g, nil
}

// Screen runs the check sequence for one query. Internal panics fail open:
// an operational bug in the gate must not take the assistant down.
func (g *Gate) Screen(userKey, query string) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("safety gate internal failure, allowing query",
				zap.String("user_key", userKey),
				zap.Any("panic", r))
			verdict = Verdict{Allowed: true}
		}
	}()

	sh := g.shards[shardIndex(userKey)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.users[userKey]
	if !ok {
		state = &userState{}
		sh.users[userKey] = state
	}

	if state.blocked {
		return Verdict{
			Allowed: false,
			Reason:  ReasonBlocked,
			Message: "Your access has been temporarily restricted due to policy violations. Please contact support@fleetassist.io.",
		}
	}

	if v, bad := g.checkSpam(state, query); bad {
		g.warn(userKey, state)
		return v
	}

	if v, bad := g.checkAbuse(query); bad {
		g.warn(userKey, state)
		return v
	}

	if v, bad := g.checkInjection(query); bad {
		g.warn(userKey, state)
		return v
	}

	if v, bad := g.checkMalicious(query); bad {
		// Malicious payloads reset the user entirely before rejecting.
		*state = userState{}
		logger.Warn("malicious payload detected, user state reset",
			zap.String("user_key", userKey))
		return v
	}

	state.history = append(state.history, message{text: query, at: g.now()})
	if len(state.history) > g.cfg.HistoryCap {
		state.history = state.history[len(state.history)-g.cfg.HistoryCap:]
	}

	return Verdict{Allowed: true}
}

// Reset clears all stored state for a user.
func (g *Gate) Reset(userKey string) {
	sh := g.shards[shardIndex(userKey)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.users, userKey)
}

func (g *Gate) warn(userKey string, state *userState) {
	state.warnings++
	if state.warnings >= g.cfg.WarningLimit {
		state.blocked = true
		logger.Warn("user blocked after repeated violations",
			zap.String("user_key", userKey),
			zap.Int("warnings", state.warnings))
	}
}

func (g *Gate) checkSpam(state *userState, query string) (Verdict, bool) {
	queryLower := strings.ToLower(strings.TrimSpace(query))

	cutoff := g.now().Add(-g.cfg.SpamWindow)
	identical := 0
	for _, m := range state.history {
		if m.at.After(cutoff) && strings.ToLower(strings.TrimSpace(m.text)) == queryLower {
			identical++
		}
	}
	// The current submission counts toward the repeat limit.
	if identical+1 >= g.cfg.SpamRepeatMax {
		return Verdict{
			Allowed: false,
			Reason:  ReasonSpam,
			Message: "Please avoid sending the same question repeatedly. Try rephrasing, or ask something new.",
		}, true
	}

	for _, keyword := range g.spamKeywords {
		if strings.Contains(queryLower, keyword) {
			return Verdict{
				Allowed: false,
				Reason:  ReasonSpam,
				Message: "This message looks like spam. Please ask a legitimate question about FleetAssist.",
			}, true
		}
	}

	return Verdict{}, false
}

func (g *Gate) checkAbuse(query string) (Verdict, bool) {
	for _, re := range g.abusePatterns {
		if re.MatchString(query) {
			return Verdict{
				Allowed: false,
				Reason:  ReasonAbuse,
				Message: "I'm here to help. Please keep the conversation respectful.",
			}, true
		}
	}
	return Verdict{}, false
}

func (g *Gate) checkInjection(query string) (Verdict, bool) {
	queryLower := strings.ToLower(query)
	for _, marker := range g.injectionMarkers {
		if strings.Contains(queryLower, marker) {
			return Verdict{
				Allowed: false,
				Reason:  ReasonInjection,
				Message: "I can only help with FleetAssist questions. I can't change my instructions or behavior.",
			}, true
		}
	}
	return Verdict{}, false
}

func (g *Gate) checkMalicious(query string) (Verdict, bool) {
	for _, re := range g.maliciousPatterns {
		if re.MatchString(query) {
			return Verdict{
				Allowed: false,
				Reason:  ReasonMalicious,
				Message: "A potentially harmful request was detected and this conversation has been reset. Please ask a legitimate question about FleetAssist.",
			}, true
		}
	}
	return Verdict{}, false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func shardIndex(key string) int {
	// FNV-1a, inlined to avoid an allocation per call.
	var h uint32 = 2166136261
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= 16777619
	}
	return int(h % shardCount)
}
