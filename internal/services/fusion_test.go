package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/wayfinder/internal/config"
	"github.com/temcen/wayfinder/pkg/models"
)

func TestMinMaxNormalize(t *testing.T) {
	t.Run("rescales signed scores into the unit range", func(t *testing.T) {
		got := MinMaxNormalize(map[string]float64{"a": -0.8, "b": 0.2, "c": 1.0})

		assert.InDelta(t, 0.0, got["a"], 1e-9)
		assert.InDelta(t, 1.0/1.8, got["b"], 1e-9)
		assert.InDelta(t, 1.0, got["c"], 1e-9)
		for _, v := range got {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	})

	t.Run("degenerate range", func(t *testing.T) {
		assert.Equal(t, map[string]float64{"a": 1, "b": 1}, MinMaxNormalize(map[string]float64{"a": 0.5, "b": 0.5}))
		assert.Equal(t, map[string]float64{"a": 0}, MinMaxNormalize(map[string]float64{"a": -0.3}))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, MinMaxNormalize(nil))
	})
}

func TestNormalizeOverCandidates(t *testing.T) {
	candidates := []models.CatalogItem{
		newItem("a", models.ItemTypeActivity),
		newItem("b", models.ItemTypeActivity),
		newItem("c", models.ItemTypeActivity),
	}

	tests := []struct {
		name string
		raw  map[string]float64
		want map[string]float64
	}{
		{
			name: "single signal",
			raw:  map[string]float64{"a": 0.8},
			want: map[string]float64{"a": 1},
		},
		{
			name: "untouched candidates anchor the minimum",
			raw:  map[string]float64{"a": 1.0, "b": 0.8},
			want: map[string]float64{"a": 1, "b": 0.8},
		},
		{
			name: "negative totals are dropped",
			raw:  map[string]float64{"a": 0.5, "b": -0.5},
			want: map[string]float64{"a": 1},
		},
		{
			name: "only negative totals",
			raw:  map[string]float64{"a": -0.3},
			want: map[string]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeOverCandidates(tt.raw, candidates)

			require.Len(t, got, len(tt.want))
			for id, want := range tt.want {
				assert.InDelta(t, want, got[id], 1e-9, id)
			}
		})
	}
}

func TestInteractionWeight(t *testing.T) {
	assert.Equal(t, 1.0, InteractionWeight(models.InteractionBook))
	assert.Equal(t, -0.8, InteractionWeight(models.InteractionDislike))
	assert.Equal(t, 0.0, InteractionWeight(models.InteractionType("unknown")))
}

func TestFusionEngine_Fuse(t *testing.T) {
	fusion := NewFusionEngine(config.FusionConfig{
		ContentWeight:       0.4,
		CollaborativeWeight: 0.4,
		TrendingWeight:      0.2,
	}, newTestLogger())

	beach := newItem("beach", models.ItemTypeDestination, "beach")
	city := newItem("city", models.ItemTypeDestination, "city")

	t.Run("weights and tags multi-strategy items as hybrid", func(t *testing.T) {
		content := &models.ScoredRecommendation{
			Item: beach, Score: 0.5, Confidence: 0.6, Source: models.SourceContentBased,
			Reasoning: models.Reasoning{Factors: []models.ReasoningFactor{
				{Factor: FactorContentSimilarity, Weight: 0.4, Contribution: 0.2},
			}},
		}
		collab := &models.ScoredRecommendation{
			Item: beach, Score: 0.3, Confidence: 0.8, Source: models.SourceCollaborative,
			Reasoning: models.Reasoning{Factors: []models.ReasoningFactor{
				{Factor: FactorPeerActivity, Weight: 1.0, Contribution: 0.3},
			}},
		}

		recs := fusion.Fuse([]StrategyResult{
			{Source: models.SourceContentBased, Recommendations: []*models.ScoredRecommendation{content}},
			{Source: models.SourceCollaborative, Recommendations: []*models.ScoredRecommendation{collab}},
		})

		require.Len(t, recs, 1)
		assert.InDelta(t, 0.32, recs[0].Score, 1e-9)
		assert.InDelta(t, 0.7, recs[0].Confidence, 1e-9)
		assert.Equal(t, models.SourceHybrid, recs[0].Source)

		require.Len(t, recs[0].Reasoning.Factors, 2)
		assert.Equal(t, FactorContentSimilarity, recs[0].Reasoning.Factors[0].Factor)
		assert.InDelta(t, 0.16, recs[0].Reasoning.Factors[0].Weight, 1e-9)
		assert.InDelta(t, 0.08, recs[0].Reasoning.Factors[0].Contribution, 1e-9)
		assert.Equal(t, FactorPeerActivity, recs[0].Reasoning.Factors[1].Factor)
		assert.InDelta(t, 0.12, recs[0].Reasoning.Factors[1].Contribution, 1e-9)
	})

	t.Run("content plus trending", func(t *testing.T) {
		recs := fusion.Fuse([]StrategyResult{
			{Source: models.SourceContentBased, Recommendations: []*models.ScoredRecommendation{recFor(beach, 0.6)}},
			{Source: models.SourceTrending, Recommendations: []*models.ScoredRecommendation{recFor(beach, 0.4)}},
		})

		require.Len(t, recs, 1)
		assert.InDelta(t, 0.32, recs[0].Score, 1e-9)
		assert.Equal(t, models.SourceHybrid, recs[0].Source)
	})

	t.Run("single strategy keeps its source and failed strategies are ignored", func(t *testing.T) {
		recs := fusion.Fuse([]StrategyResult{
			{Source: models.SourceTrending, Recommendations: []*models.ScoredRecommendation{recFor(city, 1.0)}},
			{Source: models.SourceCollaborative, Recommendations: []*models.ScoredRecommendation{recFor(beach, 1.0)}, Err: errors.New("timeout")},
		})

		require.Len(t, recs, 1)
		assert.Equal(t, "city", recs[0].Item.ID)
		assert.Equal(t, models.SourceTrending, recs[0].Source)
		assert.InDelta(t, 0.2, recs[0].Score, 1e-9)
	})

	t.Run("orders by score with id tie-break", func(t *testing.T) {
		recs := fusion.Fuse([]StrategyResult{
			{Source: models.SourceContentBased, Recommendations: []*models.ScoredRecommendation{
				recFor(city, 0.5), recFor(beach, 0.5), recFor(newItem("alps", models.ItemTypeDestination), 0.9),
			}},
		})

		assert.Equal(t, []string{"alps", "beach", "city"}, itemIDs(recs))
	})

	t.Run("no results", func(t *testing.T) {
		assert.Empty(t, fusion.Fuse(nil))
	})
}
