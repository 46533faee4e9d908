package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/wayfinder/internal/config"
	"github.com/temcen/wayfinder/pkg/models"
)

// ErrInvalidContext marks caller misuse detected before any scoring work.
var ErrInvalidContext = errors.New("invalid recommendation context")

const cacheWriteTimeout = 2 * time.Second

// RecommendationEngine runs the full pipeline for one user and context.
// It holds no per-call state; the profile cache is safe to evict at any time.
type RecommendationEngine struct {
	store         DataAccess
	profiles      *UserProfileBuilder
	candidates    *CandidateSource
	content       *ContentScorer
	collaborative *CollaborativeScorer
	trending      *TrendingScorer
	fusion        *FusionEngine
	diversity     *DiversityFilter
	explanations  *ExplanationService
	metrics       *EngineMetrics
	validate      *validator.Validate
	config        config.RecommendationConfig
	logger        *logrus.Logger
	now           func() time.Time
}

func NewRecommendationEngine(
	store DataAccess,
	cfg config.RecommendationConfig,
	metrics *EngineMetrics,
	logger *logrus.Logger,
) *RecommendationEngine {
	profiles := NewUserProfileBuilder(store, cfg.Profile, logger)
	if metrics == nil {
		metrics = NewEngineMetrics(nil, logger)
	}

	return &RecommendationEngine{
		store:         store,
		profiles:      profiles,
		candidates:    NewCandidateSource(store, cfg.CandidateLimit, logger),
		content:       NewContentScorer(NewFeatureExtractor(), logger),
		collaborative: NewCollaborativeScorer(store, profiles, cfg.Collaborative, logger),
		trending:      NewTrendingScorer(store, cfg.Trending, logger),
		fusion:        NewFusionEngine(cfg.Fusion, logger),
		diversity:     NewDiversityFilter(logger),
		explanations:  NewExplanationService(logger),
		metrics:       metrics,
		validate:      validator.New(),
		config:        cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// DefaultOptions returns the configured per-call defaults.
func (e *RecommendationEngine) DefaultOptions() models.RecommendationOptions {
	opts := e.config.DefaultOptions()
	if opts.MaxResults <= 0 {
		return models.DefaultRecommendationOptions()
	}
	return opts
}

// ValidateContext rejects malformed contexts and options.
func (e *RecommendationEngine) ValidateContext(reqCtx *models.RecommendationContext, opts models.RecommendationOptions) error {
	if reqCtx == nil {
		return fmt.Errorf("%w: context is required", ErrInvalidContext)
	}
	if err := e.validate.Struct(reqCtx); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContext, err)
	}
	if err := e.validate.Struct(opts); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContext, err)
	}
	if b := reqCtx.Budget; b != nil && b.Min > b.Max {
		return fmt.Errorf("%w: budget min %.2f exceeds max %.2f", ErrInvalidContext, b.Min, b.Max)
	}
	if d := reqCtx.TravelDates; d != nil && d.End.Before(d.Start) {
		return fmt.Errorf("%w: travel dates end before start", ErrInvalidContext)
	}
	return nil
}

// GenerateRecommendations returns the ranked, filtered and explained list for
// the context. Only invalid input is an error; collaborator failures and
// deadline expiry degrade the result instead.
func (e *RecommendationEngine) GenerateRecommendations(
	ctx context.Context,
	reqCtx *models.RecommendationContext,
	opts models.RecommendationOptions,
) ([]*models.ScoredRecommendation, error) {
	start := e.now()

	if err := e.ValidateContext(reqCtx, opts); err != nil {
		e.metrics.observeGeneration("invalid", time.Since(start).Seconds())
		return nil, err
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	var (
		profile    *models.UserProfile
		candidates []models.CatalogItem
	)
	var prefetch errgroup.Group
	prefetch.Go(func() error {
		profile = e.profiles.BuildProfile(ctx, reqCtx.UserID)
		return nil
	})
	prefetch.Go(func() error {
		candidates = e.candidates.Candidates(ctx, reqCtx, opts)
		return nil
	})
	_ = prefetch.Wait()
	e.metrics.setProfileCacheSize(e.profiles.CachedProfiles())

	if len(candidates) == 0 {
		e.logger.WithField("user_id", reqCtx.UserID).Info("No candidate items available")
		e.metrics.observeGeneration("empty", time.Since(start).Seconds())
		return []*models.ScoredRecommendation{}, nil
	}

	results := e.runStrategies(ctx, reqCtx, candidates, profile)

	recs := e.fusion.Fuse(results)
	recs = ApplyPersonalization(recs, profile, reqCtx)
	if opts.ExcludeInteracted {
		recs = e.diversity.ExcludeInteracted(recs, profile, reqCtx)
	}
	recs = e.diversity.Apply(recs, opts.DiversityFactor)
	if opts.BoostFreshContent {
		recs = ApplyFreshnessBoost(recs, e.now())
	}
	recs = FinalizeResults(recs, opts.MinScore, opts.MaxResults)

	if opts.IncludeExplanations {
		recs = e.explanations.Explain(recs, profile, reqCtx)
	} else {
		for _, rec := range recs {
			rec.Reasoning = models.Reasoning{}
		}
	}

	e.writeCache(ctx, reqCtx.UserID, recs)

	e.metrics.observeGeneration("success", time.Since(start).Seconds())
	e.logger.WithFields(logrus.Fields{
		"user_id":    reqCtx.UserID,
		"candidates": len(candidates),
		"count":      len(recs),
		"latency":    time.Since(start),
	}).Info("Recommendations generated")

	return recs, nil
}

// runStrategies executes the three scorers concurrently. A strategy that
// returns an error, including a deadline error, contributes nothing. Results
// a scorer completes are kept even if the deadline passed meanwhile.
func (e *RecommendationEngine) runStrategies(
	ctx context.Context,
	reqCtx *models.RecommendationContext,
	candidates []models.CatalogItem,
	profile *models.UserProfile,
) []StrategyResult {
	strategies := []struct {
		source models.RecommendationSource
		run    func(context.Context) ([]*models.ScoredRecommendation, error)
	}{
		{models.SourceContentBased, func(ctx context.Context) ([]*models.ScoredRecommendation, error) {
			return e.content.Recommend(ctx, candidates, profile, reqCtx)
		}},
		{models.SourceCollaborative, func(ctx context.Context) ([]*models.ScoredRecommendation, error) {
			return e.collaborative.Recommend(ctx, candidates, profile)
		}},
		{models.SourceTrending, func(ctx context.Context) ([]*models.ScoredRecommendation, error) {
			return e.trending.Recommend(ctx, candidates)
		}},
	}

	results := make([]StrategyResult, len(strategies))

	var g errgroup.Group
	for i, strategy := range strategies {
		i, strategy := i, strategy
		g.Go(func() error {
			startTime := time.Now()
			recs, err := strategy.run(ctx)
			results[i] = StrategyResult{Source: strategy.source, Recommendations: recs, Err: err}

			fields := logrus.Fields{
				"strategy": strategy.source,
				"user_id":  reqCtx.UserID,
				"latency":  time.Since(startTime),
			}
			if err != nil {
				e.metrics.recordStrategy(string(strategy.source), "error")
				e.logger.WithError(err).WithFields(fields).Warn("Strategy execution failed")
				return nil
			}
			e.metrics.recordStrategy(string(strategy.source), "success")
			fields["items"] = len(recs)
			if ctx.Err() != nil {
				e.logger.WithFields(fields).Debug("Strategy completed after deadline")
				return nil
			}
			e.logger.WithFields(fields).Debug("Strategy execution completed")
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// writeCache persists the top-N result. Failures are logged and ignored.
func (e *RecommendationEngine) writeCache(ctx context.Context, userID uuid.UUID, recs []*models.ScoredRecommendation) {
	ttl := e.config.Caching.RecommendationsTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()

	if err := e.store.WriteCachedRecommendations(writeCtx, userID, recs, ttl); err != nil {
		e.metrics.recordCacheWrite("error")
		e.logger.WithError(err).WithField("user_id", userID).Warn("Failed to cache recommendations")
		return
	}
	e.metrics.recordCacheWrite("success")
}

// CachedRecommendations returns the last persisted result for a user.
func (e *RecommendationEngine) CachedRecommendations(ctx context.Context, userID uuid.UUID) (*models.CachedRecommendations, error) {
	cached, err := e.store.GetCachedRecommendations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached recommendations: %w", err)
	}
	return cached, nil
}

// GetUserProfile exposes the (possibly cached) profile for inspection.
func (e *RecommendationEngine) GetUserProfile(ctx context.Context, userID uuid.UUID) *models.UserProfile {
	return e.profiles.BuildProfile(ctx, userID)
}

// InvalidateUser drops the cached profile and persisted recommendations so the
// next call reflects new interactions.
func (e *RecommendationEngine) InvalidateUser(ctx context.Context, userID uuid.UUID) {
	e.profiles.Invalidate(userID)
	if err := e.store.InvalidateCachedRecommendations(ctx, userID); err != nil {
		e.logger.WithError(err).WithField("user_id", userID).Warn("Failed to invalidate cached recommendations")
	}
}
