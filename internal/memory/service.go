// Package memory tracks who a user is across conversations: interaction
// counts, recent topics and how we should address them. It backs the
// greeting service and enriches generator prompts; nothing in the answer
// pipeline depends on it succeeding.
package memory

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleetassist/backend/internal/storage/models"
	"github.com/fleetassist/backend/pkg/logger"
)

// recentQueriesCap bounds per-user history, oldest evicted first.
const recentQueriesCap = 20

// profileStore is the durable side of the service.
type profileStore interface {
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UpsertUserProfile(ctx context.Context, profile *models.UserProfile) error
}

// profileCache is the optional fast path in front of the store.
type profileCache interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	SetProfile(ctx context.Context, profile *models.UserProfile) error
	InvalidateProfile(ctx context.Context, userID string) error
}

type Service struct {
	store profileStore
	cache profileCache
}

// NewService builds the memory service. cache may be nil.
func NewService(store profileStore, cache profileCache) *Service {
	return &Service{store: store, cache: cache}
}

// GetProfile loads a user's profile, preferring the cache. A user we have
// never seen gets a fresh zero-interaction profile, not an error.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if s.cache != nil {
		if profile, err := s.cache.GetProfile(ctx, userID); err != nil {
			logger.Warn("profile cache read failed",
				zap.String("user_id", userID),
				zap.Error(err))
		} else if profile != nil {
			return profile, nil
		}
	}

	profile, err := s.store.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = &models.UserProfile{
			ID:          userID,
			Preferences: models.Preferences{Tone: "friendly", DetailLevel: "standard", Language: "en"},
		}
	}

	if s.cache != nil {
		if err := s.cache.SetProfile(ctx, profile); err != nil {
			logger.Warn("profile cache write failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}

	return profile, nil
}

// RecordInteraction appends one exchange to the user's history and bumps
// the interaction count.
func (s *Service) RecordInteraction(ctx context.Context, userID, topic, query string, responseQuality float64) error {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	profile.InteractionCount++
	profile.LastInteraction = &now
	profile.RecentQueries = append(profile.RecentQueries, models.RecentQuery{
		Topic:           topic,
		Query:           query,
		Timestamp:       now,
		ResponseQuality: responseQuality,
	})
	if len(profile.RecentQueries) > recentQueriesCap {
		profile.RecentQueries = profile.RecentQueries[len(profile.RecentQueries)-recentQueriesCap:]
	}

	if err := s.store.UpsertUserProfile(ctx, profile); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateProfile(ctx, userID); err != nil {
			logger.Warn("profile cache invalidation failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}

	return nil
}

// LastTopic returns the most recent interaction topic, or "".
func LastTopic(profile *models.UserProfile) string {
	if profile == nil || len(profile.RecentQueries) == 0 {
		return ""
	}
	return profile.RecentQueries[len(profile.RecentQueries)-1].Topic
}

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z'\-]{1,29}$`)

// notNames are words that look like names but come from email local parts
// or placeholders.
var notNames = map[string]bool{
	"admin": true, "info": true, "support": true, "test": true,
	"user": true, "hello": true, "contact": true, "noreply": true,
}

// DisplayName picks how to address the user: preferred name, then the
// first name, then a name derived from the email local part. Returns ""
// when no usable name exists.
func DisplayName(profile *models.UserProfile) string {
	if profile == nil {
		return ""
	}

	if ValidName(profile.PreferredName) {
		return profile.PreferredName
	}

	if first := strings.Fields(profile.FullName); len(first) > 0 && ValidName(first[0]) {
		return first[0]
	}

	if at := strings.IndexByte(profile.Email, '@'); at > 0 {
		local := profile.Email[:at]
		// Take the leading alphabetic run of the local part.
		for i, r := range local {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
				local = local[:i]
				break
			}
		}
		if candidate := capitalize(local); ValidName(candidate) {
			return candidate
		}
	}

	return ""
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}

// ValidName reports whether a string is safe to greet the user with.
func ValidName(name string) bool {
	if !namePattern.MatchString(name) {
		return false
	}
	return !notNames[strings.ToLower(name)]
}
