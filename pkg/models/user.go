package models

import (
	"time"

	"github.com/google/uuid"
)

type InteractionType string

const (
	InteractionView    InteractionType = "view"
	InteractionLike    InteractionType = "like"
	InteractionDislike InteractionType = "dislike"
	InteractionSave    InteractionType = "save"
	InteractionBook    InteractionType = "book"
	InteractionShare   InteractionType = "share"
	InteractionSkip    InteractionType = "skip"
	InteractionSearch  InteractionType = "search"
)

// InteractionTypes is the fixed order of behavior vector slots.
var InteractionTypes = []InteractionType{
	InteractionView,
	InteractionLike,
	InteractionDislike,
	InteractionSave,
	InteractionBook,
	InteractionShare,
	InteractionSkip,
	InteractionSearch,
}

// UserPreference is a stored preference row, keyed as "<type>:<value>".
type UserPreference struct {
	Type       string  `json:"type" db:"preference_type"`
	Value      string  `json:"value" db:"preference_value"`
	Confidence float64 `json:"confidence" db:"confidence"`
}

func (p UserPreference) Key() string {
	return p.Type + ":" + p.Value
}

type Interaction struct {
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	TargetID        string          `json:"target_id" db:"target_id"`
	TargetType      ItemType        `json:"target_type" db:"target_type"`
	InteractionType InteractionType `json:"interaction_type" db:"interaction_type"`
	Weight          float64         `json:"weight" db:"weight"`
	Timestamp       time.Time       `json:"timestamp" db:"created_at"`
}

// BehaviorStats summarises an interaction history with explicit formulas.
type BehaviorStats struct {
	TotalInteractions    int              `json:"total_interactions"`
	TypeCounts           map[ItemType]int `json:"type_counts"`
	EngagementRate       float64          `json:"engagement_rate"`
	AverageDecisionTime  time.Duration    `json:"average_decision_time"`
	SearchRefinementRate float64          `json:"search_refinement_rate"`
}

type UserProfile struct {
	UserID             uuid.UUID          `json:"user_id"`
	Preferences        map[string]float64 `json:"preferences"`
	BehaviorVector     []float64          `json:"behavior_vector"`
	ClusterIDs         []string           `json:"cluster_ids"`
	InteractionHistory []Interaction      `json:"interaction_history"`
	Behavior           BehaviorStats      `json:"behavior"`
	BuiltAt            time.Time          `json:"built_at"`
}

// IsEmpty reports whether the profile carries no stored signal at all.
func (p *UserProfile) IsEmpty() bool {
	return p == nil || (len(p.Preferences) == 0 && len(p.InteractionHistory) == 0 && len(p.ClusterIDs) == 0)
}

type SimilarUser struct {
	UserID          uuid.UUID `json:"user_id"`
	SimilarityScore float64   `json:"similarity_score"`
	SharedClusters  int       `json:"shared_clusters"`
}
