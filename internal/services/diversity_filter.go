package services

import (
	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/pkg/models"
)

const crossTypeSimilarity = 0.2

// interactedTypes mark an item as already seen by the user.
var interactedTypes = map[models.InteractionType]struct{}{
	models.InteractionView: {},
	models.InteractionLike: {},
	models.InteractionSave: {},
	models.InteractionBook: {},
}

// DiversityFilter removes already-seen items and near-duplicates.
type DiversityFilter struct {
	logger *logrus.Logger
}

func NewDiversityFilter(logger *logrus.Logger) *DiversityFilter {
	return &DiversityFilter{logger: logger}
}

// ItemSimilarity is the Jaccard overlap of tags for items of the same type
// and a fixed 0.2 across types.
func ItemSimilarity(a, b *models.CatalogItem) float64 {
	if a.Type != b.Type {
		return crossTypeSimilarity
	}
	return JaccardSimilarity(a.Features, b.Features)
}

// ExcludeInteracted drops items the user viewed, liked, saved or booked, plus
// any previously booked ids carried on the context.
func (df *DiversityFilter) ExcludeInteracted(
	recs []*models.ScoredRecommendation,
	profile *models.UserProfile,
	reqCtx *models.RecommendationContext,
) []*models.ScoredRecommendation {
	seen := make(map[string]struct{})
	if profile != nil {
		for _, in := range profile.InteractionHistory {
			if _, ok := interactedTypes[in.InteractionType]; ok {
				seen[in.TargetID] = struct{}{}
			}
		}
	}
	if reqCtx != nil {
		for _, id := range reqCtx.PreviousBookingIDs {
			seen[id] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return recs
	}

	out := make([]*models.ScoredRecommendation, 0, len(recs))
	for _, rec := range recs {
		if _, ok := seen[rec.Item.ID]; ok {
			continue
		}
		out = append(out, rec)
	}

	df.logger.WithFields(logrus.Fields{
		"before": len(recs),
		"after":  len(out),
	}).Debug("Excluded interacted items")

	return out
}

// Apply greedily accepts items in descending score order when their
// similarity to every accepted item is below 1 - diversityFactor. A factor of
// zero returns the input unchanged.
func (df *DiversityFilter) Apply(recs []*models.ScoredRecommendation, diversityFactor float64) []*models.ScoredRecommendation {
	if diversityFactor <= 0 || len(recs) <= 1 {
		return recs
	}

	ranked := make([]*models.ScoredRecommendation, len(recs))
	copy(ranked, recs)
	sortByScore(ranked)

	threshold := 1 - diversityFactor
	selected := make([]*models.ScoredRecommendation, 0, len(ranked))

	for _, candidate := range ranked {
		accept := true
		for _, chosen := range selected {
			if ItemSimilarity(&candidate.Item, &chosen.Item) >= threshold {
				accept = false
				break
			}
		}
		if !accept {
			df.logger.WithField("item_id", candidate.Item.ID).Debug("Skipping item due to high similarity")
			continue
		}
		selected = append(selected, candidate)
	}

	return selected
}
