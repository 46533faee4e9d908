package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/wayfinder/pkg/models"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func ptr[T any](v T) *T { return &v }

var catalogColumns = []string{
	"id", "type", "title", "description", "image_url",
	"price_amount", "price_currency", "rating", "review_count",
	"latitude", "longitude", "address", "features", "metadata", "created_at",
}

func TestPostgresStore_GetUserPreferences(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	store := NewPostgresStore(mockDB, newTestLogger())
	userID := uuid.New()

	rows := pgxmock.NewRows([]string{"preference_type", "preference_value", "confidence"}).
		AddRow("category", "beach", 0.9).
		AddRow("style", "relaxed", 0.6)

	mockDB.ExpectQuery("FROM user_preferences").
		WithArgs(userID).
		WillReturnRows(rows)

	prefs, err := store.GetUserPreferences(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	assert.Equal(t, "category:beach", prefs[0].Key())
	assert.Equal(t, 0.9, prefs[0].Confidence)
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgresStore_GetUserInteractions(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	store := NewPostgresStore(mockDB, newTestLogger())
	userID := uuid.New()
	now := time.Now().UTC()

	t.Run("maps rows", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"user_id", "target_id", "target_type", "interaction_type", "created_at"}).
			AddRow(userID, "lodging-1", "lodging", "book", now).
			AddRow(userID, "activity-7", "activity", "view", now.Add(-time.Hour))

		mockDB.ExpectQuery("FROM user_interactions").
			WithArgs(userID, 50).
			WillReturnRows(rows)

		interactions, err := store.GetUserInteractions(context.Background(), userID, 50)
		require.NoError(t, err)
		require.Len(t, interactions, 2)
		assert.Equal(t, models.InteractionBook, interactions[0].InteractionType)
		assert.Equal(t, models.ItemTypeLodging, interactions[0].TargetType)
		assert.Equal(t, "activity-7", interactions[1].TargetID)
	})

	t.Run("query error is wrapped", func(t *testing.T) {
		mockDB.ExpectQuery("FROM user_interactions").
			WithArgs(userID, 10).
			WillReturnError(errors.New("connection reset"))

		_, err := store.GetUserInteractions(context.Background(), userID, 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgresStore_GetInteractionsForUsers(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	store := NewPostgresStore(mockDB, newTestLogger())

	t.Run("no users skips the query", func(t *testing.T) {
		interactions, err := store.GetInteractionsForUsers(context.Background(), nil, []models.InteractionType{models.InteractionBook})
		require.NoError(t, err)
		assert.Empty(t, interactions)
	})

	t.Run("filters by users and types", func(t *testing.T) {
		peer := uuid.New()
		types := []models.InteractionType{models.InteractionLike, models.InteractionBook}

		rows := pgxmock.NewRows([]string{"user_id", "target_id", "target_type", "interaction_type", "created_at"}).
			AddRow(peer, "destination-3", "destination", "like", time.Now())

		mockDB.ExpectQuery("WHERE user_id = ANY").
			WithArgs([]uuid.UUID{peer}, []string{"like", "book"}).
			WillReturnRows(rows)

		interactions, err := store.GetInteractionsForUsers(context.Background(), []uuid.UUID{peer}, types)
		require.NoError(t, err)
		require.Len(t, interactions, 1)
		assert.Equal(t, peer, interactions[0].UserID)
	})

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgresStore_GetRecentInteractionCounts(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	store := NewPostgresStore(mockDB, newTestLogger())

	rows := pgxmock.NewRows([]string{"target_id", "interaction_type", "interaction_count"}).
		AddRow("destination-1", "view", int64(12)).
		AddRow("destination-1", "book", int64(2)).
		AddRow("activity-4", "share", int64(1))

	mockDB.ExpectQuery("GROUP BY target_id, interaction_type").
		WithArgs(7, []string{"view", "book", "share"}).
		WillReturnRows(rows)

	counts, err := store.GetRecentInteractionCounts(context.Background(), 7,
		[]models.InteractionType{models.InteractionView, models.InteractionBook, models.InteractionShare})
	require.NoError(t, err)

	assert.Equal(t, 12, counts["destination-1"][models.InteractionView])
	assert.Equal(t, 2, counts["destination-1"][models.InteractionBook])
	assert.Equal(t, 1, counts["activity-4"][models.InteractionShare])
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgresStore_GetCandidateItems(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	store := NewPostgresStore(mockDB, newTestLogger())
	createdAt := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("without location", func(t *testing.T) {
		rows := pgxmock.NewRows(catalogColumns).
			AddRow("lodging-1", "lodging", "Seaside Inn", ptr("Rooms by the sea"), ptr("https://img.example/1.jpg"),
				ptr(180.0), ptr("EUR"), ptr(4.6), ptr(320),
				ptr(41.38), ptr(2.17), ptr("Passeig 1"), []string{"beach", "family"}, []byte(`{"stars":4}`), createdAt).
			AddRow("flight-2", "flight", "BCN to LIS", nil, nil,
				nil, nil, nil, nil,
				nil, nil, nil, []string{}, []byte(nil), createdAt)

		mockDB.ExpectQuery("FROM catalog_items").
			WithArgs(100).
			WillReturnRows(rows)

		items, err := store.GetCandidateItems(context.Background(), &models.RecommendationContext{UserID: uuid.New()}, 50000, 100)
		require.NoError(t, err)
		require.Len(t, items, 2)

		first := items[0]
		assert.Equal(t, models.ItemTypeLodging, first.Type)
		assert.Equal(t, "Rooms by the sea", first.Description)
		require.NotNil(t, first.Price)
		assert.Equal(t, 180.0, first.Price.Amount)
		assert.Equal(t, "EUR", first.Price.Currency)
		require.NotNil(t, first.Location)
		assert.Equal(t, 41.38, first.Location.Lat)
		assert.Equal(t, "Passeig 1", first.Location.Address)
		assert.True(t, first.HasFeature("beach"))
		assert.Equal(t, float64(4), first.Metadata["stars"])

		second := items[1]
		assert.Nil(t, second.Price)
		assert.Nil(t, second.Location)
		assert.Nil(t, second.Rating)
		assert.Nil(t, second.Metadata)
	})

	t.Run("with location adds radius filter", func(t *testing.T) {
		mockDB.ExpectQuery("asin").
			WithArgs(48.85, 2.35, 25000.0, 20).
			WillReturnRows(pgxmock.NewRows(catalogColumns))

		reqCtx := &models.RecommendationContext{
			UserID:          uuid.New(),
			CurrentLocation: &models.GeoPoint{Lat: 48.85, Lng: 2.35},
		}
		items, err := store.GetCandidateItems(context.Background(), reqCtx, 25000, 20)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	require.NoError(t, mockDB.ExpectationsWereMet())
}
