package greeting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetassist/backend/internal/memory"
	"github.com/fleetassist/backend/internal/storage/models"
)

type fakeStore struct {
	profiles map[string]*models.UserProfile
}

func (f *fakeStore) GetUserProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	return f.profiles[userID], nil
}

func (f *fakeStore) UpsertUserProfile(_ context.Context, profile *models.UserProfile) error {
	f.profiles[profile.ID] = profile
	return nil
}

func newService(profiles map[string]*models.UserProfile) *Service {
	if profiles == nil {
		profiles = make(map[string]*models.UserProfile)
	}
	return NewService(memory.NewService(&fakeStore{profiles: profiles}, nil))
}

func TestGreetFirstTimeUser(t *testing.T) {
	svc := newService(nil)

	g := svc.Greet(context.Background(), "new-user")
	assert.False(t, g.IsReturningUser)
	assert.Contains(t, g.Message, "I'm the FleetAssist support assistant")
	assert.NotEmpty(t, g.DiscoveryQuestion)
}

func TestGreetReturningUserWithName(t *testing.T) {
	svc := newService(map[string]*models.UserProfile{
		"user-1": {
			ID:               "user-1",
			FullName:         "Maria Lopez",
			InteractionCount: 2,
		},
	})

	g := svc.Greet(context.Background(), "user-1")
	assert.True(t, g.IsReturningUser)
	assert.Contains(t, g.Message, "Welcome back, Maria")
}

func TestGreetFrequentUserMentionsLastTopic(t *testing.T) {
	svc := newService(map[string]*models.UserProfile{
		"user-1": {
			ID:               "user-1",
			PreferredName:    "Sam",
			InteractionCount: 9,
			RecentQueries: []models.RecentQuery{
				{Topic: "maintenance", Query: "service intervals"},
			},
		},
	})

	g := svc.Greet(context.Background(), "user-1")
	assert.Contains(t, g.Message, "Sam")
	assert.Contains(t, g.Message, "maintenance scheduling")
}

func TestGreetDiscoveryQuestionRotates(t *testing.T) {
	first := newService(map[string]*models.UserProfile{
		"u": {ID: "u", InteractionCount: 2, RecentQueries: []models.RecentQuery{{Topic: "fuel_tracking"}}},
	}).Greet(context.Background(), "u")

	second := newService(map[string]*models.UserProfile{
		"u": {ID: "u", InteractionCount: 3, RecentQueries: []models.RecentQuery{{Topic: "fuel_tracking"}}},
	}).Greet(context.Background(), "u")

	require.NotEmpty(t, first.DiscoveryQuestion)
	require.NotEmpty(t, second.DiscoveryQuestion)
	assert.NotEqual(t, first.DiscoveryQuestion, second.DiscoveryQuestion)
}
