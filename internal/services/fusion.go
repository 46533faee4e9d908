package services

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/internal/config"
	"github.com/temcen/wayfinder/pkg/models"
)

var interactionWeights = map[models.InteractionType]float64{
	models.InteractionView:    0.1,
	models.InteractionLike:    0.8,
	models.InteractionDislike: -0.8,
	models.InteractionSave:    0.9,
	models.InteractionBook:    1.0,
	models.InteractionShare:   0.7,
	models.InteractionSkip:    -0.3,
	models.InteractionSearch:  0.2,
}

// InteractionWeight returns the signed weight of an interaction type; unknown
// types weigh nothing.
func InteractionWeight(t models.InteractionType) float64 {
	return interactionWeights[t]
}

// MinMaxNormalize rescales signed raw scores into [0,1] over their actual
// range. A degenerate range maps positive values to 1 and the rest to 0.
func MinMaxNormalize(raw map[string]float64) map[string]float64 {
	normalized := make(map[string]float64, len(raw))
	if len(raw) == 0 {
		return normalized
	}

	first := true
	var minScore, maxScore float64
	for _, v := range raw {
		if first {
			minScore, maxScore = v, v
			first = false
			continue
		}
		if v < minScore {
			minScore = v
		}
		if v > maxScore {
			maxScore = v
		}
	}

	scoreRange := maxScore - minScore
	for id, v := range raw {
		switch {
		case scoreRange == 0 && v > 0:
			normalized[id] = 1.0
		case scoreRange == 0:
			normalized[id] = 0
		default:
			normalized[id] = clamp((v-minScore)/scoreRange, 0, 1)
		}
	}
	return normalized
}

// NormalizeOverCandidates min-max normalizes raw totals across the whole
// candidate set, counting candidates without a signal as 0. Only items with a
// positive total and a positive normalized score are returned.
func NormalizeOverCandidates(raw map[string]float64, candidates []models.CatalogItem) map[string]float64 {
	seeded := make(map[string]float64, len(candidates)+len(raw))
	for i := range candidates {
		seeded[candidates[i].ID] = 0
	}
	for id, v := range raw {
		seeded[id] = v
	}

	normalized := MinMaxNormalize(seeded)
	out := make(map[string]float64, len(raw))
	for id, v := range raw {
		if v > 0 && normalized[id] > 0 {
			out[id] = normalized[id]
		}
	}
	return out
}

// StrategyResult is the output of one scorer.
type StrategyResult struct {
	Source          models.RecommendationSource
	Recommendations []*models.ScoredRecommendation
	Err             error
}

// FusionEngine combines strategy outputs with fixed weights.
type FusionEngine struct {
	weights map[models.RecommendationSource]float64
	logger  *logrus.Logger
}

func NewFusionEngine(cfg config.FusionConfig, logger *logrus.Logger) *FusionEngine {
	return &FusionEngine{
		weights: map[models.RecommendationSource]float64{
			models.SourceContentBased:  cfg.ContentWeight,
			models.SourceCollaborative: cfg.CollaborativeWeight,
			models.SourceTrending:      cfg.TrendingWeight,
		},
		logger: logger,
	}
}

// fusionOrder fixes the iteration order so reasoning factors and tie-breaks
// are deterministic.
var fusionOrder = []models.RecommendationSource{
	models.SourceContentBased,
	models.SourceCollaborative,
	models.SourceTrending,
}

type fusedScore struct {
	rec           *models.ScoredRecommendation
	confidenceSum float64
	weightSum     float64
	sources       int
}

// Fuse adds weighted strategy scores per item, concatenates rescaled
// reasoning factors and tags multi-strategy items as hybrid.
func (f *FusionEngine) Fuse(results []StrategyResult) []*models.ScoredRecommendation {
	bySource := make(map[models.RecommendationSource][]*models.ScoredRecommendation, len(results))
	for _, r := range results {
		if r.Err != nil || len(r.Recommendations) == 0 {
			continue
		}
		bySource[r.Source] = append(bySource[r.Source], r.Recommendations...)
	}

	fused := make(map[string]*fusedScore)
	var order []string

	for _, source := range fusionOrder {
		weight := f.weights[source]
		for _, rec := range bySource[source] {
			entry, ok := fused[rec.Item.ID]
			if !ok {
				entry = &fusedScore{
					rec: &models.ScoredRecommendation{
						Item:   rec.Item,
						Source: source,
					},
				}
				fused[rec.Item.ID] = entry
				order = append(order, rec.Item.ID)
			}

			entry.rec.Score += rec.Score * weight
			entry.confidenceSum += rec.Confidence * weight
			entry.weightSum += weight
			entry.sources++
			if entry.sources > 1 {
				entry.rec.Source = models.SourceHybrid
			}

			for _, factor := range rec.Reasoning.Factors {
				factor.Weight *= weight
				factor.Contribution *= weight
				entry.rec.Reasoning.Factors = append(entry.rec.Reasoning.Factors, factor)
			}
		}
	}

	out := make([]*models.ScoredRecommendation, 0, len(order))
	for _, id := range order {
		entry := fused[id]
		if entry.weightSum > 0 {
			entry.rec.Confidence = clamp(entry.confidenceSum/entry.weightSum, 0, 1)
		}
		out = append(out, entry.rec)
	}

	sortByScore(out)

	f.logger.WithFields(logrus.Fields{
		"strategies": len(bySource),
		"items":      len(out),
	}).Debug("Fused strategy results")

	return out
}

// sortByScore orders descending by score with item id as a stable tie-break.
func sortByScore(recs []*models.ScoredRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].Item.ID < recs[j].Item.ID
	})
}
