package services

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/floats"

	"github.com/temcen/wayfinder/pkg/models"
)

const (
	featureTypeIndex   = 0
	featurePriceIndex  = 1
	featureRatingIndex = 2
	featureTagOffset   = 3

	// log1p of this amount maps to a price feature of 1.0
	priceScaleCeiling = 10000.0
	maxRating         = 5.0
	earthRadiusMeters = 6371000.0
)

// CategoryTags is the enumerated tag set occupying vector slots 3 and up.
var CategoryTags = []string{
	"beach", "mountain", "city", "culture", "adventure", "food",
	"nature", "luxury", "family", "nightlife", "wellness", "history",
}

// FeatureVectorLength is shared by item and user vectors.
var FeatureVectorLength = featureTagOffset + len(CategoryTags)

var (
	tagSlots  = buildTagSlots()
	typeCodes = buildTypeCodes()
	lowerCase = cases.Lower(language.Und)
)

func buildTagSlots() map[string]int {
	slots := make(map[string]int, len(CategoryTags))
	for i, tag := range CategoryTags {
		slots[tag] = featureTagOffset + i
	}
	return slots
}

func buildTypeCodes() map[models.ItemType]float64 {
	codes := make(map[models.ItemType]float64, len(models.ItemTypes))
	for i, t := range models.ItemTypes {
		codes[t] = float64(i) / float64(len(models.ItemTypes)-1)
	}
	return codes
}

// NormalizeTag folds a tag to its canonical matching form.
func NormalizeTag(tag string) string {
	return lowerCase.String(norm.NFKC.String(strings.TrimSpace(tag)))
}

// FeatureExtractor converts items and profiles into index-aligned vectors.
type FeatureExtractor struct{}

func NewFeatureExtractor() *FeatureExtractor {
	return &FeatureExtractor{}
}

// ExtractItemFeatures returns [type code, log price, rating, tag presence...].
func (fe *FeatureExtractor) ExtractItemFeatures(item *models.CatalogItem) []float64 {
	vec := make([]float64, FeatureVectorLength)

	vec[featureTypeIndex] = typeCodes[item.Type]

	if item.Price != nil && item.Price.Amount > 0 {
		vec[featurePriceIndex] = math.Min(math.Log1p(item.Price.Amount)/math.Log1p(priceScaleCeiling), 1.0)
	}

	if item.Rating != nil {
		vec[featureRatingIndex] = clamp(*item.Rating/maxRating, 0, 1)
	}

	for _, tag := range item.Features {
		if slot, ok := tagSlots[NormalizeTag(tag)]; ok {
			vec[slot] = 1.0
		}
	}

	return vec
}

// ExtractUserVector writes each preference score into the slot whose tag
// matches the preference value, keeping the maximum per slot.
func (fe *FeatureExtractor) ExtractUserVector(profile *models.UserProfile) []float64 {
	vec := make([]float64, FeatureVectorLength)
	if profile == nil {
		return vec
	}

	for key, score := range profile.Preferences {
		slot, ok := tagSlots[preferenceValue(key)]
		if !ok {
			continue
		}
		if score > vec[slot] {
			vec[slot] = score
		}
	}

	return vec
}

// preferenceValue extracts the normalized value part of a "<type>:<value>" key.
func preferenceValue(key string) string {
	if idx := strings.Index(key, ":"); idx >= 0 {
		return NormalizeTag(key[idx+1:])
	}
	return NormalizeTag(key)
}

// CosineSimilarity returns 0 when either vector has zero magnitude or the
// lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return clamp(floats.Dot(a, b)/(normA*normB), -1, 1)
}

// HaversineDistance returns the great-circle distance in meters.
func HaversineDistance(a, b models.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// JaccardSimilarity over normalized tag sets. Two empty sets share nothing.
func JaccardSimilarity(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[NormalizeTag(t)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[NormalizeTag(t)] = struct{}{}
	}

	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
