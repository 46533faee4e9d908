package services

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/pkg/models"
)

// fakeStore is an in-memory DataAccess.
type fakeStore struct {
	mu sync.Mutex

	preferences  map[uuid.UUID][]models.UserPreference
	interactions map[uuid.UUID][]models.Interaction
	clusters     map[uuid.UUID][]string
	items        []models.CatalogItem
	recentCounts map[string]map[models.InteractionType]int
	cached       map[uuid.UUID]*models.CachedRecommendations

	prefErr      error
	candidateErr error
	countsErr    error
	cacheErr     error

	// blockTrending makes GetRecentInteractionCounts wait for ctx expiry.
	blockTrending bool
	// trendingAfterDeadline makes GetRecentInteractionCounts wait for ctx
	// expiry and then return its counts anyway.
	trendingAfterDeadline bool

	preferenceCalls int
	cacheWrites     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		preferences:  make(map[uuid.UUID][]models.UserPreference),
		interactions: make(map[uuid.UUID][]models.Interaction),
		clusters:     make(map[uuid.UUID][]string),
		recentCounts: make(map[string]map[models.InteractionType]int),
		cached:       make(map[uuid.UUID]*models.CachedRecommendations),
	}
}

func (f *fakeStore) GetUserPreferences(_ context.Context, userID uuid.UUID) ([]models.UserPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preferenceCalls++
	if f.prefErr != nil {
		return nil, f.prefErr
	}
	return f.preferences[userID], nil
}

func (f *fakeStore) GetUserInteractions(_ context.Context, userID uuid.UUID, limit int) ([]models.Interaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	history := f.interactions[userID]
	if len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

func (f *fakeStore) GetUserClusters(_ context.Context, userID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clusters[userID], nil
}

func (f *fakeStore) GetClusterMembers(_ context.Context, clusterIDs []string, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wanted := make(map[string]struct{}, len(clusterIDs))
	for _, c := range clusterIDs {
		wanted[c] = struct{}{}
	}

	shared := make(map[uuid.UUID]int)
	var members []uuid.UUID
	for userID, clusters := range f.clusters {
		for _, c := range clusters {
			if _, ok := wanted[c]; ok {
				if shared[userID] == 0 {
					members = append(members, userID)
				}
				shared[userID]++
			}
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if shared[members[i]] != shared[members[j]] {
			return shared[members[i]] > shared[members[j]]
		}
		return members[i].String() < members[j].String()
	})
	if len(members) > limit {
		members = members[:limit]
	}
	return members, nil
}

func (f *fakeStore) GetInteractionsForUsers(_ context.Context, userIDs []uuid.UUID, types []models.InteractionType) ([]models.Interaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	allowed := make(map[models.InteractionType]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}

	var out []models.Interaction
	for _, userID := range userIDs {
		for _, in := range f.interactions[userID] {
			if _, ok := allowed[in.InteractionType]; ok {
				out = append(out, in)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetCandidateItems(_ context.Context, _ *models.RecommendationContext, _ float64, limit int) ([]models.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.candidateErr != nil {
		return nil, f.candidateErr
	}
	items := append([]models.CatalogItem(nil), f.items...)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeStore) GetRecentInteractionCounts(ctx context.Context, _ int, _ []models.InteractionType) (map[string]map[models.InteractionType]int, error) {
	if f.blockTrending {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.trendingAfterDeadline {
		<-ctx.Done()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countsErr != nil {
		return nil, f.countsErr
	}
	return f.recentCounts, nil
}

func (f *fakeStore) WriteCachedRecommendations(_ context.Context, userID uuid.UUID, recs []*models.ScoredRecommendation, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cacheWrites++
	if f.cacheErr != nil {
		return f.cacheErr
	}
	now := time.Now()
	f.cached[userID] = &models.CachedRecommendations{
		UserID:          userID,
		Recommendations: recs,
		GeneratedAt:     now,
		ExpiresAt:       now.Add(ttl),
	}
	return nil
}

func (f *fakeStore) GetCachedRecommendations(_ context.Context, userID uuid.UUID) (*models.CachedRecommendations, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cached, ok := f.cached[userID]
	if !ok {
		return nil, errCacheMiss
	}
	return cached, nil
}

func (f *fakeStore) InvalidateCachedRecommendations(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cached, userID)
	return nil
}

type testError string

func (e testError) Error() string { return string(e) }

const errCacheMiss = testError("cache miss")

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func floatPtr(v float64) *float64 { return &v }

func newItem(id string, itemType models.ItemType, features ...string) models.CatalogItem {
	return models.CatalogItem{
		ID:       id,
		Type:     itemType,
		Title:    id,
		Features: features,
	}
}

func recFor(item models.CatalogItem, score float64) *models.ScoredRecommendation {
	return &models.ScoredRecommendation{
		Item:       item,
		Score:      score,
		Confidence: 0.5,
		Source:     models.SourceContentBased,
	}
}

func itemIDs(recs []*models.ScoredRecommendation) []string {
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.Item.ID
	}
	return ids
}
