package services

import (
	"time"

	"github.com/temcen/wayfinder/pkg/models"
)

const (
	personalizationStrength = 0.2
	travelStyleBoost        = 1.15
	freshWeekBoost          = 1.10
	freshMonthBoost         = 1.05
)

// PersonalizationFactor averages the matching preference confidences over the
// item's tags; 0 when nothing matches.
func PersonalizationFactor(item *models.CatalogItem, profile *models.UserProfile) float64 {
	return averageMatch(matchTagPreferences(item, profile))
}

// MatchesTravelStyle reports whether the context's travel style is one of the
// item's tags.
func MatchesTravelStyle(item *models.CatalogItem, reqCtx *models.RecommendationContext) bool {
	if reqCtx == nil || reqCtx.TravelStyle == "" {
		return false
	}
	style := NormalizeTag(reqCtx.TravelStyle)
	for _, tag := range item.Features {
		if NormalizeTag(tag) == style {
			return true
		}
	}
	return false
}

// ApplyPersonalization multiplies scores by (1 + factor*0.2) and by 1.15 on a
// travel style match. Boosted items are re-tagged as personalized.
func ApplyPersonalization(
	recs []*models.ScoredRecommendation,
	profile *models.UserProfile,
	reqCtx *models.RecommendationContext,
) []*models.ScoredRecommendation {
	for _, rec := range recs {
		factor := PersonalizationFactor(&rec.Item, profile)
		boost := 1 + factor*personalizationStrength
		if MatchesTravelStyle(&rec.Item, reqCtx) {
			boost *= travelStyleBoost
		}
		if boost != 1 {
			rec.Score *= boost
			rec.Source = models.SourcePersonalized
		}
	}
	sortByScore(recs)
	return recs
}

// FreshnessMultiplier is 1.10 within a week of creation, 1.05 within a month
// and 1.0 otherwise or when the creation time is unknown.
func FreshnessMultiplier(createdAt, now time.Time) float64 {
	if createdAt.IsZero() {
		return 1.0
	}
	age := now.Sub(createdAt)
	switch {
	case age < 0:
		return 1.0
	case age <= 7*24*time.Hour:
		return freshWeekBoost
	case age <= 30*24*time.Hour:
		return freshMonthBoost
	default:
		return 1.0
	}
}

// ApplyFreshnessBoost multiplies each score by its freshness multiplier.
func ApplyFreshnessBoost(recs []*models.ScoredRecommendation, now time.Time) []*models.ScoredRecommendation {
	for _, rec := range recs {
		rec.Score *= FreshnessMultiplier(rec.Item.CreatedAt, now)
	}
	sortByScore(recs)
	return recs
}

// FinalizeResults drops scores below minScore and keeps the top maxResults.
func FinalizeResults(recs []*models.ScoredRecommendation, minScore float64, maxResults int) []*models.ScoredRecommendation {
	out := make([]*models.ScoredRecommendation, 0, len(recs))
	for _, rec := range recs {
		if rec.Score < minScore {
			continue
		}
		out = append(out, rec)
	}
	sortByScore(out)
	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}
