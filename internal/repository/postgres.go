package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/pkg/models"
)

// DatabaseQuerier interface for database operations
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// PostgresStore reads preferences, interactions and catalog items.
type PostgresStore struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewPostgresStore(db DatabaseQuerier, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// GetUserPreferences returns preference rows ordered by confidence descending.
func (s *PostgresStore) GetUserPreferences(ctx context.Context, userID uuid.UUID) ([]models.UserPreference, error) {
	query := `
		SELECT preference_type, preference_value, confidence
		FROM user_preferences
		WHERE user_id = $1
		ORDER BY confidence DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("preferences query failed: %w", err)
	}
	defer rows.Close()

	var prefs []models.UserPreference
	for rows.Next() {
		var p models.UserPreference
		if err := rows.Scan(&p.Type, &p.Value, &p.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// GetUserInteractions returns the most recent interactions first.
func (s *PostgresStore) GetUserInteractions(ctx context.Context, userID uuid.UUID, limit int) ([]models.Interaction, error) {
	query := `
		SELECT user_id, target_id, target_type, interaction_type, created_at
		FROM user_interactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("interactions query failed: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

// GetInteractionsForUsers returns the given users' interactions of the
// requested types.
func (s *PostgresStore) GetInteractionsForUsers(
	ctx context.Context,
	userIDs []uuid.UUID,
	types []models.InteractionType,
) ([]models.Interaction, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT user_id, target_id, target_type, interaction_type, created_at
		FROM user_interactions
		WHERE user_id = ANY($1)
			AND interaction_type = ANY($2)
		ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, userIDs, interactionTypeStrings(types))
	if err != nil {
		return nil, fmt.Errorf("peer interactions query failed: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

// GetRecentInteractionCounts aggregates interactions per item and type over
// the trailing window.
func (s *PostgresStore) GetRecentInteractionCounts(
	ctx context.Context,
	windowDays int,
	types []models.InteractionType,
) (map[string]map[models.InteractionType]int, error) {
	query := `
		SELECT target_id, interaction_type, COUNT(*) AS interaction_count
		FROM user_interactions
		WHERE created_at >= NOW() - make_interval(days => $1)
			AND interaction_type = ANY($2)
		GROUP BY target_id, interaction_type`

	rows, err := s.db.Query(ctx, query, windowDays, interactionTypeStrings(types))
	if err != nil {
		return nil, fmt.Errorf("interaction counts query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]map[models.InteractionType]int)
	for rows.Next() {
		var (
			targetID        string
			interactionType string
			count           int64
		)
		if err := rows.Scan(&targetID, &interactionType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan interaction count: %w", err)
		}
		if counts[targetID] == nil {
			counts[targetID] = make(map[models.InteractionType]int)
		}
		counts[targetID][models.InteractionType(interactionType)] += int(count)
	}
	return counts, rows.Err()
}

// GetCandidateItems returns active catalog items, restricted to the radius
// around the context location when one is given.
func (s *PostgresStore) GetCandidateItems(
	ctx context.Context,
	reqCtx *models.RecommendationContext,
	radiusMeters float64,
	limit int,
) ([]models.CatalogItem, error) {
	query := `
		SELECT id, type, title, description, image_url,
			price_amount, price_currency, rating, review_count,
			latitude, longitude, address, features, metadata, created_at
		FROM catalog_items
		WHERE active = true`

	args := []interface{}{}
	argIndex := 1

	if reqCtx != nil && reqCtx.CurrentLocation != nil && radiusMeters > 0 {
		// Haversine distance in meters
		query += fmt.Sprintf(`
			AND latitude IS NOT NULL AND longitude IS NOT NULL
			AND 2 * 6371000 * asin(sqrt(
				power(sin(radians(latitude - $%d) / 2), 2) +
				cos(radians($%d)) * cos(radians(latitude)) *
				power(sin(radians(longitude - $%d) / 2), 2)
			)) <= $%d`, argIndex, argIndex, argIndex+1, argIndex+2)
		args = append(args, reqCtx.CurrentLocation.Lat, reqCtx.CurrentLocation.Lng, radiusMeters)
		argIndex += 3
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d", argIndex)
	args = append(args, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("candidate query failed: %w", err)
	}
	defer rows.Close()

	var items []models.CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			s.logger.WithError(err).Error("Failed to scan catalog item")
			continue
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanCatalogItem(rows pgx.Rows) (models.CatalogItem, error) {
	var (
		item          models.CatalogItem
		itemType      string
		description   *string
		priceAmount   *float64
		priceCurrency *string
		lat, lng      *float64
		address       *string
		metadata      []byte
		createdAt     time.Time
	)

	if err := rows.Scan(
		&item.ID, &itemType, &item.Title, &description, &item.ImageURL,
		&priceAmount, &priceCurrency, &item.Rating, &item.ReviewCount,
		&lat, &lng, &address, &item.Features, &metadata, &createdAt,
	); err != nil {
		return item, err
	}

	item.Type = models.ItemType(itemType)
	item.CreatedAt = createdAt
	if description != nil {
		item.Description = *description
	}
	if priceAmount != nil {
		item.Price = &models.Price{Amount: *priceAmount}
		if priceCurrency != nil {
			item.Price.Currency = *priceCurrency
		}
	}
	if lat != nil && lng != nil {
		item.Location = &models.Location{GeoPoint: models.GeoPoint{Lat: *lat, Lng: *lng}}
		if address != nil {
			item.Location.Address = *address
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
			return item, fmt.Errorf("invalid metadata for item %s: %w", item.ID, err)
		}
	}
	return item, nil
}

func scanInteractions(rows pgx.Rows) ([]models.Interaction, error) {
	var interactions []models.Interaction
	for rows.Next() {
		var (
			in              models.Interaction
			targetType      string
			interactionType string
		)
		if err := rows.Scan(&in.UserID, &in.TargetID, &targetType, &interactionType, &in.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		in.TargetType = models.ItemType(targetType)
		in.InteractionType = models.InteractionType(interactionType)
		interactions = append(interactions, in)
	}
	return interactions, rows.Err()
}

func interactionTypeStrings(types []models.InteractionType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
