package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetassist/backend/internal/storage/models"
)

type fakeStore struct {
	profiles map[string]*models.UserProfile
	upserts  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[string]*models.UserProfile)}
}

func (f *fakeStore) GetUserProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) UpsertUserProfile(_ context.Context, profile *models.UserProfile) error {
	copied := *profile
	f.profiles[profile.ID] = &copied
	f.upserts++
	return nil
}

func TestGetProfileNewUser(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	profile, err := svc.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", profile.ID)
	assert.Zero(t, profile.InteractionCount)
	assert.Equal(t, "friendly", profile.Preferences.Tone)
}

func TestRecordInteraction(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	require.NoError(t, svc.RecordInteraction(ctx, "user-1", "vehicle_management", "how do I add a truck", 0.8))
	require.NoError(t, svc.RecordInteraction(ctx, "user-1", "maintenance", "service intervals", 0.9))

	profile, err := svc.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, profile.InteractionCount)
	require.Len(t, profile.RecentQueries, 2)
	assert.Equal(t, "maintenance", LastTopic(profile))
	assert.NotNil(t, profile.LastInteraction)
}

func TestRecordInteractionCapsHistory(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	for i := 0; i < recentQueriesCap+7; i++ {
		require.NoError(t, svc.RecordInteraction(ctx, "user-1", "general", "some question", 0.5))
	}

	profile, err := svc.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, profile.RecentQueries, recentQueriesCap)
	assert.Equal(t, recentQueriesCap+7, profile.InteractionCount)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		profile *models.UserProfile
		want    string
	}{
		{"nil profile", nil, ""},
		{"preferred name wins", &models.UserProfile{PreferredName: "Sam", FullName: "Alexandra Smith"}, "Sam"},
		{"first name", &models.UserProfile{FullName: "Alexandra Smith"}, "Alexandra"},
		{"email local part", &models.UserProfile{Email: "maria.lopez@example.com"}, "Maria"},
		{"placeholder email rejected", &models.UserProfile{Email: "admin@example.com"}, ""},
		{"numeric email rejected", &models.UserProfile{Email: "x123@example.com"}, ""},
		{"nothing usable", &models.UserProfile{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.profile))
		})
	}
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("Maria"))
	assert.True(t, ValidName("O'Brien"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("x"))
	assert.False(t, ValidName("admin"))
	assert.False(t, ValidName("bob42"))
	assert.False(t, ValidName("has space"))
}
