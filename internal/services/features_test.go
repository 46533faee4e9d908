package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/wayfinder/pkg/models"
)

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"beach", "beach"},
		{"  Beach ", "beach"},
		{"MOUNTAIN", "mountain"},
		{"ＢＥＡＣＨ", "beach"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTag(tt.in))
		})
	}
}

func TestFeatureExtractor_ExtractItemFeatures(t *testing.T) {
	fe := NewFeatureExtractor()

	t.Run("encodes type, price, rating and tags", func(t *testing.T) {
		item := newItem("hotel-1", models.ItemTypeLodging, "Beach", "luxury", "unknown-tag")
		item.Price = &models.Price{Amount: 100, Currency: "USD"}
		item.Rating = floatPtr(4.0)

		vec := fe.ExtractItemFeatures(&item)

		require.Len(t, vec, FeatureVectorLength)
		assert.InDelta(t, 0.4, vec[featureTypeIndex], 1e-9)
		assert.InDelta(t, math.Log1p(100)/math.Log1p(priceScaleCeiling), vec[featurePriceIndex], 1e-9)
		assert.InDelta(t, 0.8, vec[featureRatingIndex], 1e-9)
		assert.Equal(t, 1.0, vec[tagSlots["beach"]])
		assert.Equal(t, 1.0, vec[tagSlots["luxury"]])
		assert.Equal(t, 0.0, vec[tagSlots["mountain"]])
	})

	t.Run("caps expensive items and ignores missing fields", func(t *testing.T) {
		item := newItem("trip-1", models.ItemTypeDestination)
		item.Price = &models.Price{Amount: 1_000_000}

		vec := fe.ExtractItemFeatures(&item)

		assert.Equal(t, 0.0, vec[featureTypeIndex])
		assert.Equal(t, 1.0, vec[featurePriceIndex])
		assert.Equal(t, 0.0, vec[featureRatingIndex])
	})
}

func TestFeatureExtractor_ExtractUserVector(t *testing.T) {
	fe := NewFeatureExtractor()
	profile := &models.UserProfile{
		Preferences: map[string]float64{
			"category:beach":    0.9,
			"style:beach":       0.5,
			"category:mountain": 0.4,
			"budget:low":        0.7,
		},
	}

	vec := fe.ExtractUserVector(profile)

	require.Len(t, vec, FeatureVectorLength)
	assert.Equal(t, 0.0, vec[featureTypeIndex])
	assert.Equal(t, 0.0, vec[featurePriceIndex])
	assert.Equal(t, 0.0, vec[featureRatingIndex])
	assert.Equal(t, 0.9, vec[tagSlots["beach"]])
	assert.Equal(t, 0.4, vec[tagSlots["mountain"]])

	assert.Equal(t, make([]float64, FeatureVectorLength), fe.ExtractUserVector(nil))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"length mismatch", []float64{1, 0}, []float64{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestHaversineDistance(t *testing.T) {
	paris := models.GeoPoint{Lat: 48.8566, Lng: 2.3522}
	london := models.GeoPoint{Lat: 51.5074, Lng: -0.1278}

	assert.Equal(t, 0.0, HaversineDistance(paris, paris))
	assert.InDelta(t, 343_500, HaversineDistance(paris, london), 2_000)
	assert.InDelta(t, HaversineDistance(paris, london), HaversineDistance(london, paris), 1e-6)
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"both empty", nil, nil, 0},
		{"one empty", []string{"beach"}, nil, 0},
		{"identical", []string{"beach", "food"}, []string{"food", "beach"}, 1},
		{"partial overlap", []string{"beach", "food"}, []string{"beach", "city", "nightlife"}, 0.25},
		{"case insensitive", []string{"Beach"}, []string{"beach"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, JaccardSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}
