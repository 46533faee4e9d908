package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/wayfinder/internal/config"
	"github.com/temcen/wayfinder/pkg/models"
)

func newTestProfileBuilder(store *fakeStore) *UserProfileBuilder {
	return NewUserProfileBuilder(store, config.ProfileConfig{
		InteractionLimit: 100,
		CacheSize:        16,
		CacheTTL:         time.Minute,
	}, newTestLogger())
}

func TestUserProfileBuilder_BuildProfile(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	store.preferences[userID] = []models.UserPreference{
		{Type: "category", Value: " Beach", Confidence: 0.6},
		{Type: "category", Value: "beach", Confidence: 0.8},
		{Type: "style", Value: "adventure", Confidence: 1.4},
	}
	store.interactions[userID] = []models.Interaction{
		{UserID: userID, TargetID: "x", TargetType: models.ItemTypeLodging, InteractionType: models.InteractionSave},
	}
	store.clusters[userID] = []string{"coastal", "coastal", "", "foodies"}

	builder := newTestProfileBuilder(store)
	profile := builder.BuildProfile(context.Background(), userID)

	assert.Equal(t, userID, profile.UserID)
	assert.Equal(t, map[string]float64{
		"category:beach":  0.8,
		"style:adventure": 1.0,
	}, profile.Preferences)
	assert.Equal(t, []string{"coastal", "foodies"}, profile.ClusterIDs)
	require.Len(t, profile.InteractionHistory, 1)
	assert.Equal(t, 0.9, profile.InteractionHistory[0].Weight)
	assert.Len(t, profile.BehaviorVector, len(models.InteractionTypes))
	assert.Equal(t, 1, profile.Behavior.TotalInteractions)
	assert.False(t, profile.IsEmpty())
}

func TestUserProfileBuilder_UnknownUser(t *testing.T) {
	builder := newTestProfileBuilder(newFakeStore())

	profile := builder.BuildProfile(context.Background(), uuid.New())

	assert.True(t, profile.IsEmpty())
	assert.NotNil(t, profile.Preferences)
	assert.Len(t, profile.BehaviorVector, len(models.InteractionTypes))
}

func TestUserProfileBuilder_Caching(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	store.preferences[userID] = []models.UserPreference{{Type: "category", Value: "city", Confidence: 0.7}}

	builder := newTestProfileBuilder(store)

	first := builder.BuildProfile(context.Background(), userID)
	second := builder.BuildProfile(context.Background(), userID)

	assert.Same(t, first, second)
	assert.Equal(t, 1, store.preferenceCalls)
	assert.Equal(t, 1, builder.CachedProfiles())

	builder.Invalidate(userID)
	assert.Equal(t, 0, builder.CachedProfiles())

	builder.BuildProfile(context.Background(), userID)
	assert.Equal(t, 2, store.preferenceCalls)
}

func TestUserProfileBuilder_DegradedProfileNotCached(t *testing.T) {
	store := newFakeStore()
	store.prefErr = errors.New("connection reset")
	userID := uuid.New()
	store.clusters[userID] = []string{"coastal"}

	builder := newTestProfileBuilder(store)

	profile := builder.BuildProfile(context.Background(), userID)
	assert.Empty(t, profile.Preferences)
	assert.Equal(t, []string{"coastal"}, profile.ClusterIDs)
	assert.Equal(t, 0, builder.CachedProfiles())

	builder.BuildProfile(context.Background(), userID)
	assert.Equal(t, 2, store.preferenceCalls)
}

func TestUserProfileBuilder_NoCache(t *testing.T) {
	store := newFakeStore()
	builder := NewUserProfileBuilder(store, config.ProfileConfig{}, newTestLogger())
	userID := uuid.New()

	builder.BuildProfile(context.Background(), userID)
	builder.BuildProfile(context.Background(), userID)

	assert.Equal(t, 2, store.preferenceCalls)
	assert.Equal(t, 0, builder.CachedProfiles())
}
