package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/internal/config"
	"github.com/temcen/wayfinder/pkg/models"
)

// TrendingScorer ranks candidates by population-wide recent popularity.
type TrendingScorer struct {
	catalog CatalogReader
	config  config.TrendingConfig
	logger  *logrus.Logger
}

func NewTrendingScorer(catalog CatalogReader, cfg config.TrendingConfig, logger *logrus.Logger) *TrendingScorer {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 7
	}
	if cfg.DecayFactor <= 0 {
		cfg.DecayFactor = 0.8
	}
	if cfg.Confidence <= 0 {
		cfg.Confidence = 0.7
	}
	return &TrendingScorer{
		catalog: catalog,
		config:  cfg,
		logger:  logger,
	}
}

// Recommend weights each item's recent interaction counts, applies the flat
// staleness decay and min-max normalizes across candidates.
func (s *TrendingScorer) Recommend(ctx context.Context, candidates []models.CatalogItem) ([]*models.ScoredRecommendation, error) {
	counts, err := s.catalog.GetRecentInteractionCounts(ctx, s.config.WindowDays, models.InteractionTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent interaction counts: %w", err)
	}

	byID := make(map[string]*models.CatalogItem, len(candidates))
	raw := make(map[string]float64)
	for i := range candidates {
		item := &candidates[i]
		perType, ok := counts[item.ID]
		if !ok {
			continue
		}
		byID[item.ID] = item

		total := 0.0
		for interactionType, n := range perType {
			total += float64(n) * InteractionWeight(interactionType)
		}
		raw[item.ID] = total * s.config.DecayFactor
	}

	normalized := NormalizeOverCandidates(raw, candidates)

	recs := make([]*models.ScoredRecommendation, 0, len(normalized))
	for itemID, score := range normalized {
		recs = append(recs, &models.ScoredRecommendation{
			Item:       *byID[itemID],
			Score:      score,
			Confidence: s.config.Confidence,
			Reasoning: models.Reasoning{Factors: []models.ReasoningFactor{{
				Factor:       FactorTrending,
				Weight:       1.0,
				Contribution: score,
			}}},
			Source: models.SourceTrending,
		})
	}
	sortByScore(recs)

	s.logger.WithFields(logrus.Fields{
		"window_days": s.config.WindowDays,
		"results":     len(recs),
	}).Debug("Trending scoring completed")

	return recs, nil
}
