package services

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/pkg/models"
)

const (
	contentSimilarityWeight = 0.4
	categoryMatchWeight     = 0.3
	locationProximityWeight = 0.2
	budgetFitWeight         = 0.1

	neutralCategoryScore   = 0.5
	neutralCurrencyScore   = 0.5
	underBudgetScore       = 0.8
	proximityHorizonMeters = 100000.0
)

// Reasoning factor names produced by the scorers.
const (
	FactorContentSimilarity = "content_similarity"
	FactorCategoryMatch     = "category_match"
	FactorLocationProximity = "location_proximity"
	FactorBudgetFit         = "budget_fit"
	FactorPeerActivity      = "peer_activity"
	FactorTrending          = "trending"
)

// ContentScore breaks a content-based score into its weighted parts.
type ContentScore struct {
	Score   float64
	Factors []models.ReasoningFactor
	// Coverage is the sum of weights whose preconditions were met.
	Coverage float64
}

// ContentScorer ranks items by similarity to the user's stated and derived
// preferences.
type ContentScorer struct {
	extractor *FeatureExtractor
	logger    *logrus.Logger
}

func NewContentScorer(extractor *FeatureExtractor, logger *logrus.Logger) *ContentScorer {
	return &ContentScorer{
		extractor: extractor,
		logger:    logger,
	}
}

// Score returns the content-based score of an item in [0,1].
func (s *ContentScorer) Score(item *models.CatalogItem, profile *models.UserProfile, reqCtx *models.RecommendationContext) float64 {
	return s.score(item, s.extractor.ExtractUserVector(profile), profile, reqCtx).Score
}

// Breakdown returns the score with per-factor contributions.
func (s *ContentScorer) Breakdown(item *models.CatalogItem, profile *models.UserProfile, reqCtx *models.RecommendationContext) ContentScore {
	return s.score(item, s.extractor.ExtractUserVector(profile), profile, reqCtx)
}

func (s *ContentScorer) score(
	item *models.CatalogItem,
	userVector []float64,
	profile *models.UserProfile,
	reqCtx *models.RecommendationContext,
) ContentScore {
	var result ContentScore
	weighted := 0.0

	add := func(factor string, weight, sub float64) {
		weighted += weight * sub
		result.Coverage += weight
		result.Factors = append(result.Factors, models.ReasoningFactor{
			Factor:       factor,
			Weight:       weight,
			Contribution: weight * sub,
		})
	}

	itemVector := s.extractor.ExtractItemFeatures(item)
	add(FactorContentSimilarity, contentSimilarityWeight, math.Max(0, CosineSimilarity(itemVector, userVector)))

	add(FactorCategoryMatch, categoryMatchWeight, CategoryPreferenceScore(item, profile))

	if reqCtx != nil && reqCtx.CurrentLocation != nil && item.Location != nil {
		add(FactorLocationProximity, locationProximityWeight, LocationProximityScore(*reqCtx.CurrentLocation, item.Location.GeoPoint))
	}

	if reqCtx != nil && reqCtx.Budget != nil && item.Price != nil {
		add(FactorBudgetFit, budgetFitWeight, BudgetCompatibilityScore(*item.Price, *reqCtx.Budget))
	}

	if result.Coverage > 0 {
		result.Score = clamp(weighted/result.Coverage, 0, 1)
	}
	return result
}

// Recommend scores every candidate and keeps those with a positive score.
func (s *ContentScorer) Recommend(
	ctx context.Context,
	candidates []models.CatalogItem,
	profile *models.UserProfile,
	reqCtx *models.RecommendationContext,
) ([]*models.ScoredRecommendation, error) {
	userVector := s.extractor.ExtractUserVector(profile)
	profileFactor := 1.0
	if profile.IsEmpty() {
		profileFactor = 0.5
	}

	recs := make([]*models.ScoredRecommendation, 0, len(candidates))
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := &candidates[i]
		result := s.score(item, userVector, profile, reqCtx)
		if result.Score <= 0 {
			continue
		}

		recs = append(recs, &models.ScoredRecommendation{
			Item:       *item,
			Score:      result.Score,
			Confidence: clamp(result.Coverage*profileFactor, 0, 1),
			Reasoning:  models.Reasoning{Factors: result.Factors},
			Source:     models.SourceContentBased,
		})
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": reqCtx.UserID,
		"results": len(recs),
	}).Debug("Content-based scoring completed")

	return recs, nil
}

// CategoryPreferenceScore averages the user's preference scores over the
// item's tags that have one, or returns 0.5 when none match.
func CategoryPreferenceScore(item *models.CatalogItem, profile *models.UserProfile) float64 {
	matches := matchTagPreferences(item, profile)
	if len(matches) == 0 {
		return neutralCategoryScore
	}
	return averageMatch(matches)
}

// LocationProximityScore is 1 at distance 0, falling linearly to 0 at 100 km.
func LocationProximityScore(from, to models.GeoPoint) float64 {
	return math.Max(0, 1-HaversineDistance(from, to)/proximityHorizonMeters)
}

// BudgetCompatibilityScore rates a price against a budget range. Differing
// currencies score a neutral 0.5; conversion is not attempted.
func BudgetCompatibilityScore(price models.Price, budget models.Budget) float64 {
	if price.Currency != "" && budget.Currency != "" && price.Currency != budget.Currency {
		return neutralCurrencyScore
	}

	switch {
	case price.Amount >= budget.Min && price.Amount <= budget.Max:
		return 1.0
	case price.Amount < budget.Min:
		return underBudgetScore
	}

	budgetRange := budget.Max - budget.Min
	if budgetRange <= 0 {
		return 0
	}
	overage := price.Amount - budget.Max
	return math.Max(0, 1-overage/budgetRange)
}

type tagMatch struct {
	Tag   string
	Score float64
}

// matchTagPreferences pairs each item tag with the strongest preference
// whose value equals it.
func matchTagPreferences(item *models.CatalogItem, profile *models.UserProfile) []tagMatch {
	if profile == nil || len(profile.Preferences) == 0 || len(item.Features) == 0 {
		return nil
	}

	byValue := make(map[string]float64, len(profile.Preferences))
	for key, score := range profile.Preferences {
		value := preferenceValue(key)
		if existing, ok := byValue[value]; !ok || score > existing {
			byValue[value] = score
		}
	}

	seen := make(map[string]struct{}, len(item.Features))
	var matches []tagMatch
	for _, tag := range item.Features {
		normalized := NormalizeTag(tag)
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		if score, ok := byValue[normalized]; ok {
			matches = append(matches, tagMatch{Tag: normalized, Score: score})
		}
	}
	return matches
}

func averageMatch(matches []tagMatch) float64 {
	if len(matches) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range matches {
		sum += m.Score
	}
	return sum / float64(len(matches))
}
