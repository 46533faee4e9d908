package models

import (
	"time"

	"github.com/google/uuid"
)

type DateRange struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required"`
}

type Budget struct {
	Min      float64 `json:"min" validate:"gte=0"`
	Max      float64 `json:"max" validate:"gte=0"`
	Currency string  `json:"currency" validate:"omitempty,len=3"`
}

// RecommendationContext is the query for one recommendation call. It is not
// mutated once validated.
type RecommendationContext struct {
	UserID             uuid.UUID  `json:"user_id" validate:"required"`
	CurrentLocation    *GeoPoint  `json:"current_location,omitempty" validate:"omitempty"`
	TravelDates        *DateRange `json:"travel_dates,omitempty" validate:"omitempty"`
	Budget             *Budget    `json:"budget,omitempty" validate:"omitempty"`
	TravelStyle        string     `json:"travel_style,omitempty" validate:"omitempty,max=64"`
	GroupSize          *int       `json:"group_size,omitempty" validate:"omitempty,min=1,max=100"`
	PreviousBookingIDs []string   `json:"previous_booking_ids,omitempty"`
	SearchQuery        string     `json:"search_query,omitempty" validate:"omitempty,max=512"`
}

type RecommendationOptions struct {
	MaxResults             int     `json:"max_results" validate:"min=1,max=100"`
	MinScore               float64 `json:"min_score" validate:"gte=0"`
	DiversityFactor        float64 `json:"diversity_factor" validate:"gte=0,lte=1"`
	IncludeExplanations    bool    `json:"include_explanations"`
	ExcludeInteracted      bool    `json:"exclude_interacted"`
	BoostFreshContent      bool    `json:"boost_fresh_content"`
	GeographicRadiusMeters float64 `json:"geographic_radius_meters" validate:"gte=0"`
}

func DefaultRecommendationOptions() RecommendationOptions {
	return RecommendationOptions{
		MaxResults:             20,
		MinScore:               0.1,
		DiversityFactor:        0.3,
		IncludeExplanations:    true,
		ExcludeInteracted:      true,
		BoostFreshContent:      true,
		GeographicRadiusMeters: 50000,
	}
}
