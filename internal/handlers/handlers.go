package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/internal/services"
	"github.com/temcen/wayfinder/internal/validation"
)

type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
}

func New(logger *logrus.Logger, services *services.Services, schemas *validation.SchemaValidator) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, services.Health),
		Recommendation: NewRecommendationHandler(services.Recommendation, schemas, logger),
	}
}
