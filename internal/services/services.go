package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/internal/config"
	"github.com/temcen/wayfinder/internal/database"
)

type Services struct {
	Health         *HealthService
	Recommendation *RecommendationEngine
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database, store DataAccess) *Services {
	var registerer prometheus.Registerer
	if cfg.Monitoring.Enabled {
		registerer = prometheus.DefaultRegisterer
	}

	metrics := NewEngineMetrics(registerer, logger)

	return &Services{
		Health:         NewHealthService(db, registerer, logger),
		Recommendation: NewRecommendationEngine(store, cfg.Recommendation, metrics, logger),
	}
}
