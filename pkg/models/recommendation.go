package models

import (
	"time"

	"github.com/google/uuid"
)

type RecommendationSource string

const (
	SourceContentBased  RecommendationSource = "content_based"
	SourceCollaborative RecommendationSource = "collaborative"
	SourceTrending      RecommendationSource = "trending"
	SourceHybrid        RecommendationSource = "hybrid"
	SourcePersonalized  RecommendationSource = "personalized"
)

type ReasoningFactor struct {
	Factor       string  `json:"factor"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	Explanation  string  `json:"explanation"`
}

type Reasoning struct {
	Factors             []ReasoningFactor `json:"factors"`
	PersonalizedFactors []string          `json:"personalized_factors,omitempty"`
}

// ScoredRecommendation is a per-query derived value; the CatalogItem is the
// durable record.
type ScoredRecommendation struct {
	Item       CatalogItem          `json:"item"`
	Score      float64              `json:"score"`
	Confidence float64              `json:"confidence"`
	Reasoning  Reasoning            `json:"reasoning"`
	Source     RecommendationSource `json:"source"`
}

type RecommendationRequest struct {
	Context RecommendationContext  `json:"context"`
	Options *RecommendationOptions `json:"options,omitempty"`
}

type RecommendationResponse struct {
	UserID          uuid.UUID               `json:"user_id"`
	Recommendations []*ScoredRecommendation `json:"recommendations"`
	GeneratedAt     time.Time               `json:"generated_at"`
	CacheHit        bool                    `json:"cache_hit"`
}

// CachedRecommendations is the persisted form of a top-N result.
type CachedRecommendations struct {
	UserID          uuid.UUID               `json:"user_id"`
	Recommendations []*ScoredRecommendation `json:"recommendations"`
	GeneratedAt     time.Time               `json:"generated_at"`
	ExpiresAt       time.Time               `json:"expires_at"`
}
