package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/pkg/models"
)

// ErrCacheMiss is returned when no cached recommendations exist for a user.
var ErrCacheMiss = errors.New("cache miss")

// RecommendationCache persists top-N results in Redis.
type RecommendationCache struct {
	redis  *redis.Client
	logger *logrus.Logger
	now    func() time.Time
}

func NewRecommendationCache(client *redis.Client, logger *logrus.Logger) *RecommendationCache {
	return &RecommendationCache{
		redis:  client,
		logger: logger,
		now:    time.Now,
	}
}

func recommendationsKey(userID uuid.UUID) string {
	return fmt.Sprintf("recommendations:%s", userID.String())
}

// WriteCachedRecommendations stores the list with the given soft expiry.
func (c *RecommendationCache) WriteCachedRecommendations(
	ctx context.Context,
	userID uuid.UUID,
	recs []*models.ScoredRecommendation,
	ttl time.Duration,
) error {
	if c.redis == nil {
		return nil // No caching available, but not an error
	}

	now := c.now()
	data, err := json.Marshal(models.CachedRecommendations{
		UserID:          userID,
		Recommendations: recs,
		GeneratedAt:     now,
		ExpiresAt:       now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	return c.redis.Set(ctx, recommendationsKey(userID), data, ttl).Err()
}

// GetCachedRecommendations returns ErrCacheMiss when nothing is stored.
func (c *RecommendationCache) GetCachedRecommendations(ctx context.Context, userID uuid.UUID) (*models.CachedRecommendations, error) {
	if c.redis == nil {
		return nil, ErrCacheMiss
	}

	data, err := c.redis.Get(ctx, recommendationsKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var cached models.CachedRecommendations
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached recommendations: %w", err)
	}
	return &cached, nil
}

// InvalidateCachedRecommendations removes a user's cached result.
func (c *RecommendationCache) InvalidateCachedRecommendations(ctx context.Context, userID uuid.UUID) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, recommendationsKey(userID)).Err()
}
