package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/temcen/wayfinder/pkg/models"
)

// UserDataReader exposes the per-user rows the profile builder needs.
type UserDataReader interface {
	GetUserPreferences(ctx context.Context, userID uuid.UUID) ([]models.UserPreference, error)
	GetUserInteractions(ctx context.Context, userID uuid.UUID, limit int) ([]models.Interaction, error)
	GetUserClusters(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// PeerDataReader exposes cluster and peer interaction lookups for the
// collaborative scorer. GetClusterMembers ranks members by shared clusters
// before truncating to limit.
type PeerDataReader interface {
	GetClusterMembers(ctx context.Context, clusterIDs []string, limit int) ([]uuid.UUID, error)
	GetInteractionsForUsers(ctx context.Context, userIDs []uuid.UUID, types []models.InteractionType) ([]models.Interaction, error)
}

// CatalogReader exposes candidate retrieval and aggregate popularity.
type CatalogReader interface {
	GetCandidateItems(ctx context.Context, reqCtx *models.RecommendationContext, radiusMeters float64, limit int) ([]models.CatalogItem, error)
	GetRecentInteractionCounts(ctx context.Context, windowDays int, types []models.InteractionType) (map[string]map[models.InteractionType]int, error)
}

// RecommendationCacheWriter persists top-N results. Writes are best effort.
type RecommendationCacheWriter interface {
	WriteCachedRecommendations(ctx context.Context, userID uuid.UUID, recs []*models.ScoredRecommendation, ttl time.Duration) error
	GetCachedRecommendations(ctx context.Context, userID uuid.UUID) (*models.CachedRecommendations, error)
	InvalidateCachedRecommendations(ctx context.Context, userID uuid.UUID) error
}

// DataAccess is the full collaborator surface the engine depends on.
type DataAccess interface {
	UserDataReader
	PeerDataReader
	CatalogReader
	RecommendationCacheWriter
}

// RecommendationEngineInterface is what the HTTP layer consumes.
type RecommendationEngineInterface interface {
	GenerateRecommendations(ctx context.Context, reqCtx *models.RecommendationContext, opts models.RecommendationOptions) ([]*models.ScoredRecommendation, error)
	CachedRecommendations(ctx context.Context, userID uuid.UUID) (*models.CachedRecommendations, error)
	GetUserProfile(ctx context.Context, userID uuid.UUID) *models.UserProfile
	DefaultOptions() models.RecommendationOptions
}

// ProfileInvalidator drops cached per-user state after new interactions.
type ProfileInvalidator interface {
	InvalidateUser(ctx context.Context, userID uuid.UUID)
}
