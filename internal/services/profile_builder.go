package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/wayfinder/internal/config"
	"github.com/temcen/wayfinder/pkg/models"
)

// UserProfileBuilder assembles profiles from stored preferences, interactions
// and cluster memberships. Built profiles are cached for a short TTL and must
// be treated as read-only by callers.
type UserProfileBuilder struct {
	store  UserDataReader
	cache  *expirable.LRU[uuid.UUID, *models.UserProfile]
	config config.ProfileConfig
	logger *logrus.Logger
	now    func() time.Time
}

func NewUserProfileBuilder(store UserDataReader, cfg config.ProfileConfig, logger *logrus.Logger) *UserProfileBuilder {
	var cache *expirable.LRU[uuid.UUID, *models.UserProfile]
	if cfg.CacheSize > 0 {
		cache = expirable.NewLRU[uuid.UUID, *models.UserProfile](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	if cfg.InteractionLimit <= 0 {
		cfg.InteractionLimit = 100
	}

	return &UserProfileBuilder{
		store:  store,
		cache:  cache,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// BuildProfile never fails: a collaborator error yields an empty section and
// the resulting profile is not cached, so the next call retries.
func (b *UserProfileBuilder) BuildProfile(ctx context.Context, userID uuid.UUID) *models.UserProfile {
	if b.cache != nil {
		if profile, ok := b.cache.Get(userID); ok {
			return profile
		}
	}

	var (
		prefs        []models.UserPreference
		interactions []models.Interaction
		clusters     []string
		prefErr      error
		interErr     error
		clusterErr   error
	)

	var g errgroup.Group
	g.Go(func() error {
		prefs, prefErr = b.store.GetUserPreferences(ctx, userID)
		return nil
	})
	g.Go(func() error {
		interactions, interErr = b.store.GetUserInteractions(ctx, userID, b.config.InteractionLimit)
		return nil
	})
	g.Go(func() error {
		clusters, clusterErr = b.store.GetUserClusters(ctx, userID)
		return nil
	})
	_ = g.Wait()

	degraded := false
	for name, err := range map[string]error{
		"preferences":  prefErr,
		"interactions": interErr,
		"clusters":     clusterErr,
	} {
		if err != nil {
			degraded = true
			b.logger.WithError(err).WithFields(logrus.Fields{
				"user_id": userID,
				"section": name,
			}).Warn("Failed to load profile section, using empty baseline")
		}
	}
	if prefErr != nil {
		prefs = nil
	}
	if interErr != nil {
		interactions = nil
	}
	if clusterErr != nil {
		clusters = nil
	}

	profile := assembleProfile(userID, prefs, interactions, clusters, b.now())

	if b.cache != nil && !degraded {
		b.cache.Add(userID, profile)
	}

	b.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"preferences":  len(profile.Preferences),
		"interactions": len(profile.InteractionHistory),
		"clusters":     len(profile.ClusterIDs),
	}).Debug("Built user profile")

	return profile
}

// Invalidate drops a cached profile.
func (b *UserProfileBuilder) Invalidate(userID uuid.UUID) {
	if b.cache != nil {
		b.cache.Remove(userID)
	}
}

// CachedProfiles reports the number of live cache entries.
func (b *UserProfileBuilder) CachedProfiles() int {
	if b.cache == nil {
		return 0
	}
	return b.cache.Len()
}

func assembleProfile(
	userID uuid.UUID,
	prefs []models.UserPreference,
	interactions []models.Interaction,
	clusters []string,
	builtAt time.Time,
) *models.UserProfile {
	preferences := make(map[string]float64, len(prefs))
	for _, p := range prefs {
		key := p.Type + ":" + NormalizeTag(p.Value)
		score := clamp(p.Confidence, 0, 1)
		if existing, ok := preferences[key]; !ok || score > existing {
			preferences[key] = score
		}
	}

	history := make([]models.Interaction, 0, len(interactions))
	for _, in := range interactions {
		if in.Weight == 0 {
			in.Weight = InteractionWeight(in.InteractionType)
		}
		history = append(history, in)
	}

	seen := make(map[string]struct{}, len(clusters))
	clusterIDs := make([]string, 0, len(clusters))
	for _, c := range clusters {
		if _, ok := seen[c]; ok || c == "" {
			continue
		}
		seen[c] = struct{}{}
		clusterIDs = append(clusterIDs, c)
	}

	return &models.UserProfile{
		UserID:             userID,
		Preferences:        preferences,
		BehaviorVector:     BuildBehaviorVector(history),
		ClusterIDs:         clusterIDs,
		InteractionHistory: history,
		Behavior:           AnalyzeBehavior(history),
		BuiltAt:            builtAt,
	}
}
