package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/pkg/models"
)

const (
	strongPreferenceThreshold = 0.8
	frequentEngagementCount   = 5
	maxPersonalizedFactors    = 5
)

var factorTemplates = map[string]string{
	FactorContentSimilarity: "Similar to the kinds of trips you prefer",
	FactorCategoryMatch:     "Matches categories you have shown interest in",
	FactorLocationProximity: "Close to your current location",
	FactorBudgetFit:         "Fits your budget",
	FactorPeerActivity:      "Travelers with similar tastes liked, saved or booked this",
	FactorTrending:          "Popular with travelers this week",
}

// ExplanationService annotates recommendations with human-readable reasoning.
// It never alters scores.
type ExplanationService struct {
	logger *logrus.Logger
}

func NewExplanationService(logger *logrus.Logger) *ExplanationService {
	return &ExplanationService{logger: logger}
}

// Explain fills factor explanations from templates and attaches up to five
// personalized factors per recommendation.
func (es *ExplanationService) Explain(
	recs []*models.ScoredRecommendation,
	profile *models.UserProfile,
	reqCtx *models.RecommendationContext,
) []*models.ScoredRecommendation {
	for _, rec := range recs {
		for i := range rec.Reasoning.Factors {
			factor := &rec.Reasoning.Factors[i]
			if template, ok := factorTemplates[factor.Factor]; ok {
				factor.Explanation = template
			} else {
				factor.Explanation = "Personalized recommendation"
			}
		}
		rec.Reasoning.PersonalizedFactors = es.personalizedFactors(&rec.Item, profile, reqCtx)
	}

	es.logger.WithField("count", len(recs)).Debug("Generated explanations")
	return recs
}

func (es *ExplanationService) personalizedFactors(
	item *models.CatalogItem,
	profile *models.UserProfile,
	reqCtx *models.RecommendationContext,
) []string {
	var factors []string

	if profile != nil {
		keys := make([]string, 0, len(profile.Preferences))
		for key := range profile.Preferences {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		itemType := NormalizeTag(string(item.Type))
		tags := make(map[string]struct{}, len(item.Features))
		for _, tag := range item.Features {
			tags[NormalizeTag(tag)] = struct{}{}
		}

		mentioned := make(map[string]struct{})
		for _, key := range keys {
			if profile.Preferences[key] <= strongPreferenceThreshold {
				continue
			}
			value := preferenceValue(key)
			if _, done := mentioned[value]; done {
				continue
			}
			_, tagMatch := tags[value]
			if !tagMatch && value != itemType {
				continue
			}
			mentioned[value] = struct{}{}
			factors = append(factors, fmt.Sprintf("Strong match for your interest in %s", value))
		}

		if profile.Behavior.TypeCounts[item.Type] > frequentEngagementCount {
			factors = append(factors, fmt.Sprintf("You frequently engage with %s content", item.Type))
		}
	}

	if MatchesTravelStyle(item, reqCtx) {
		factors = append(factors, fmt.Sprintf("Fits your %s travel style", strings.ToLower(reqCtx.TravelStyle)))
	}

	if len(factors) > maxPersonalizedFactors {
		factors = factors[:maxPersonalizedFactors]
	}
	return factors
}
