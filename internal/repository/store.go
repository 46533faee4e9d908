package repository

import (
	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/internal/database"
)

// Store is the data-access collaborator backed by Postgres, Neo4j and Redis.
type Store struct {
	*PostgresStore
	*ClusterStore
	*RecommendationCache
}

func New(db *database.Database, logger *logrus.Logger) *Store {
	return &Store{
		PostgresStore:       NewPostgresStore(db.PG, logger),
		ClusterStore:        NewClusterStore(db.Neo4j, logger),
		RecommendationCache: NewRecommendationCache(db.Redis, logger),
	}
}
