package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/internal/config"
	"github.com/temcen/wayfinder/internal/database"
	"github.com/temcen/wayfinder/internal/handlers"
	"github.com/temcen/wayfinder/internal/messaging"
	"github.com/temcen/wayfinder/internal/middleware"
	"github.com/temcen/wayfinder/internal/repository"
	"github.com/temcen/wayfinder/internal/services"
	"github.com/temcen/wayfinder/internal/validation"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	services *services.Services
	handlers *handlers.Handlers
	consumer *messaging.InteractionConsumer
	router   *gin.Engine

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	// Initialize database connections
	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	schemas, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load request schemas: %w", err)
	}

	// Initialize services
	store := repository.New(db, app.logger)
	app.services = services.New(cfg, app.logger, db, store)

	// Initialize handlers
	app.handlers = handlers.New(app.logger, app.services, schemas)

	if len(cfg.Kafka.Brokers) > 0 {
		app.consumer = messaging.NewInteractionConsumer(cfg, app.services.Recommendation, app.logger).
			WithSchemaValidator(schemas)
	}

	// Setup router
	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Start launches background workers: the interaction consumer and metric
// sampling.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)

	if a.config.Monitoring.Enabled {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.services.Health.CollectMetrics(ctx)
		}()
	}

	if a.consumer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.WithError(err).Error("Interaction consumer stopped")
			}
		}()
		a.logger.WithField("topic", a.config.Kafka.Topics.UserInteractions).Info("Interaction consumer started")
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("Timed out waiting for background workers")
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.WithError(err).Warn("Error closing Kafka consumer")
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	a.router = newRouter(a.config, a.logger, a.handlers)
}

func newRouter(cfg *config.Config, logger *logrus.Logger, h *handlers.Handlers) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg))

	// Health check endpoints
	router.GET("/health", h.Health.Check)
	router.GET("/health/live", h.Health.Live)

	// Prometheus metrics endpoint
	if cfg.Monitoring.Enabled {
		metricsPath := cfg.Monitoring.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		router.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}

	// API routes
	api := router.Group("/api/v1")
	{
		recommendations := api.Group("/recommendations")
		{
			recommendations.GET("/:userId", h.Recommendation.Get)
			recommendations.POST("", h.Recommendation.Post)
		}

		users := api.Group("/users")
		{
			users.GET("/:userId/profile", h.Recommendation.Profile)
		}
	}

	return router
}
