package models

import (
	"time"
)

type ItemType string

const (
	ItemTypeDestination ItemType = "destination"
	ItemTypeActivity    ItemType = "activity"
	ItemTypeLodging     ItemType = "lodging"
	ItemTypeFlight      ItemType = "flight"
	ItemTypeTrip        ItemType = "trip"
	ItemTypeItinerary   ItemType = "itinerary"
)

// ItemTypes lists every recommendable type in feature-code order.
var ItemTypes = []ItemType{
	ItemTypeDestination,
	ItemTypeActivity,
	ItemTypeLodging,
	ItemTypeFlight,
	ItemTypeTrip,
	ItemTypeItinerary,
}

type Price struct {
	Amount   float64 `json:"amount" db:"price_amount"`
	Currency string  `json:"currency" db:"price_currency"`
}

type GeoPoint struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type Location struct {
	GeoPoint
	Address string `json:"address,omitempty"`
}

// CatalogItem is a recommendable entity. Fixed fields are typed; Metadata
// carries pass-through attributes the engine never interprets.
type CatalogItem struct {
	ID          string         `json:"id" db:"id"`
	Type        ItemType       `json:"type" db:"type"`
	Title       string         `json:"title" db:"title"`
	Description string         `json:"description" db:"description"`
	ImageURL    *string        `json:"image_url,omitempty" db:"image_url"`
	Price       *Price         `json:"price,omitempty"`
	Rating      *float64       `json:"rating,omitempty" db:"rating"`
	ReviewCount *int           `json:"review_count,omitempty" db:"review_count"`
	Location    *Location      `json:"location,omitempty"`
	Features    []string       `json:"features" db:"features"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	Metadata    map[string]any `json:"metadata,omitempty" db:"metadata"`
}

// HasFeature reports whether the item carries the given tag.
func (c *CatalogItem) HasFeature(tag string) bool {
	for _, f := range c.Features {
		if f == tag {
			return true
		}
	}
	return false
}
