package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/pkg/models"
)

// CandidateSource retrieves the bounded set of eligible catalog items.
type CandidateSource struct {
	catalog CatalogReader
	limit   int
	logger  *logrus.Logger
}

func NewCandidateSource(catalog CatalogReader, limit int, logger *logrus.Logger) *CandidateSource {
	if limit <= 0 {
		limit = 500
	}
	return &CandidateSource{
		catalog: catalog,
		limit:   limit,
		logger:  logger,
	}
}

// Candidates returns de-duplicated items for the context. A collaborator
// failure is logged and yields an empty list.
func (cs *CandidateSource) Candidates(
	ctx context.Context,
	reqCtx *models.RecommendationContext,
	opts models.RecommendationOptions,
) []models.CatalogItem {
	items, err := cs.catalog.GetCandidateItems(ctx, reqCtx, opts.GeographicRadiusMeters, cs.limit)
	if err != nil {
		cs.logger.WithError(err).WithField("user_id", reqCtx.UserID).Warn("Failed to fetch candidate items")
		return nil
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]models.CatalogItem, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}

	if len(out) > cs.limit {
		out = out[:cs.limit]
	}

	cs.logger.WithFields(logrus.Fields{
		"user_id":    reqCtx.UserID,
		"candidates": len(out),
	}).Debug("Fetched candidate items")

	return out
}
