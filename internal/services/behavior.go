package services

import (
	"sort"
	"time"

	"github.com/temcen/wayfinder/pkg/models"
)

// searchRefinementWindow bounds how soon a follow-up search must come to
// count as a refinement of the previous one.
const searchRefinementWindow = 5 * time.Minute

// BuildBehaviorVector returns per-type interaction frequencies in
// models.InteractionTypes order. Entries sum to 1 for a non-empty history.
func BuildBehaviorVector(history []models.Interaction) []float64 {
	vec := make([]float64, len(models.InteractionTypes))
	if len(history) == 0 {
		return vec
	}

	index := make(map[models.InteractionType]int, len(models.InteractionTypes))
	for i, t := range models.InteractionTypes {
		index[t] = i
	}

	counted := 0
	for _, in := range history {
		if i, ok := index[in.InteractionType]; ok {
			vec[i]++
			counted++
		}
	}
	if counted == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= float64(len(history))
	}
	return vec
}

// AnalyzeBehavior derives summary statistics from an interaction history.
//
// AverageDecisionTime is the mean delay between the first view and the first
// booking of each item that was both viewed and booked. SearchRefinementRate
// is the share of searches followed by another search within five minutes.
func AnalyzeBehavior(history []models.Interaction) models.BehaviorStats {
	stats := models.BehaviorStats{
		TotalInteractions: len(history),
		TypeCounts:        make(map[models.ItemType]int),
	}
	if len(history) == 0 {
		return stats
	}

	firstView := make(map[string]time.Time)
	firstBook := make(map[string]time.Time)
	var searches []time.Time
	positive := 0

	for _, in := range history {
		if in.TargetType != "" {
			stats.TypeCounts[in.TargetType]++
		}

		switch in.InteractionType {
		case models.InteractionLike, models.InteractionSave, models.InteractionBook, models.InteractionShare:
			positive++
		}

		switch in.InteractionType {
		case models.InteractionView:
			if t, ok := firstView[in.TargetID]; !ok || in.Timestamp.Before(t) {
				firstView[in.TargetID] = in.Timestamp
			}
		case models.InteractionBook:
			if t, ok := firstBook[in.TargetID]; !ok || in.Timestamp.Before(t) {
				firstBook[in.TargetID] = in.Timestamp
			}
		case models.InteractionSearch:
			searches = append(searches, in.Timestamp)
		}
	}

	stats.EngagementRate = float64(positive) / float64(len(history))

	var total time.Duration
	decisions := 0
	for itemID, booked := range firstBook {
		viewed, ok := firstView[itemID]
		if !ok || booked.Before(viewed) {
			continue
		}
		total += booked.Sub(viewed)
		decisions++
	}
	if decisions > 0 {
		stats.AverageDecisionTime = total / time.Duration(decisions)
	}

	if len(searches) > 0 {
		sort.Slice(searches, func(i, j int) bool { return searches[i].Before(searches[j]) })
		refined := 0
		for i := 0; i < len(searches)-1; i++ {
			if searches[i+1].Sub(searches[i]) <= searchRefinementWindow {
				refined++
			}
		}
		stats.SearchRefinementRate = float64(refined) / float64(len(searches))
	}

	return stats
}
