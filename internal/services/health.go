package services

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/internal/database"
)

const healthCheckTimeout = 5 * time.Second

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

type HealthService struct {
	logger      *logrus.Logger
	critical    map[string]HealthCheck
	nonCritical map[string]HealthCheck
	db          *database.Database

	// Prometheus metrics
	healthCheckStatus   *prometheus.GaugeVec
	lastHealthCheck     *prometheus.GaugeVec
	systemMetrics       *prometheus.GaugeVec
	dbConnectionMetrics *prometheus.GaugeVec
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Services    map[string]string `json:"services"`
	Critical    []string          `json:"critical_failures,omitempty"`
	NonCritical []string          `json:"non_critical_failures,omitempty"`
}

// NewHealthService checks Postgres and Redis as critical dependencies and
// Neo4j as non-critical.
func NewHealthService(db *database.Database, registerer prometheus.Registerer, logger *logrus.Logger) *HealthService {
	critical := map[string]HealthCheck{
		"postgresql": func(ctx context.Context) error {
			if db.PG == nil {
				return errors.New("postgresql not connected")
			}
			return db.PG.Ping(ctx)
		},
		"redis": func(ctx context.Context) error {
			if db.Redis == nil {
				return errors.New("redis not connected")
			}
			return db.Redis.Ping(ctx).Err()
		},
	}
	nonCritical := map[string]HealthCheck{
		"neo4j": func(ctx context.Context) error {
			if db.Neo4j == nil {
				return errors.New("neo4j not connected")
			}
			return db.Neo4j.VerifyConnectivity(ctx)
		},
	}

	hs := NewHealthServiceWithChecks(critical, nonCritical, registerer, logger)
	hs.db = db
	return hs
}

func NewHealthServiceWithChecks(
	critical, nonCritical map[string]HealthCheck,
	registerer prometheus.Registerer,
	logger *logrus.Logger,
) *HealthService {
	hs := &HealthService{
		logger:      logger,
		critical:    critical,
		nonCritical: nonCritical,
	}

	hs.healthCheckStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"})

	hs.lastHealthCheck = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_timestamp",
		Help: "Timestamp of last health check",
	}, []string{"service"})

	hs.systemMetrics = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "system_info",
		Help: "System information metrics",
	}, []string{"metric_type"})

	hs.dbConnectionMetrics = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "database_connection_pool_usage",
		Help: "Database connection pool usage",
	}, []string{"database", "state"})

	if registerer != nil {
		// Register metrics with error handling - ignore if already registered
		for name, c := range map[string]prometheus.Collector{
			"health_check_status":            hs.healthCheckStatus,
			"health_check_timestamp":         hs.lastHealthCheck,
			"system_info":                    hs.systemMetrics,
			"database_connection_pool_usage": hs.dbConnectionMetrics,
		} {
			if err := registerer.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					logger.WithError(err).Warnf("Failed to register %s metric", name)
				}
			}
		}
	}

	return hs
}

// CheckHealth is unhealthy when any critical dependency fails and degraded
// when only non-critical ones do.
func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	for _, name := range sortedCheckNames(s.critical) {
		if s.runCheck(ctx, name, s.critical[name]) {
			continue
		}
		status.Critical = append(status.Critical, name)
	}
	for _, name := range sortedCheckNames(s.nonCritical) {
		if s.runCheck(ctx, name, s.nonCritical[name]) {
			continue
		}
		status.NonCritical = append(status.NonCritical, name)
	}

	for name := range s.critical {
		status.Services[name] = "healthy"
	}
	for name := range s.nonCritical {
		status.Services[name] = "healthy"
	}
	for _, name := range append(append([]string{}, status.Critical...), status.NonCritical...) {
		status.Services[name] = "unhealthy"
	}

	switch {
	case len(status.Critical) > 0:
		status.Status = "unhealthy"
	case len(status.NonCritical) > 0:
		status.Status = "degraded"
	default:
		status.Status = "healthy"
	}

	return status
}

func (s *HealthService) runCheck(ctx context.Context, name string, check HealthCheck) bool {
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	err := check(checkCtx)
	s.UpdateHealthMetrics(name, err == nil)
	if err != nil {
		if _, isCritical := s.critical[name]; isCritical {
			s.logger.WithError(err).Errorf("Critical service %s is unhealthy", name)
		} else {
			s.logger.WithError(err).Warnf("Non-critical service %s is unhealthy", name)
		}
		return false
	}
	return true
}

func sortedCheckNames(checks map[string]HealthCheck) []string {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CollectMetrics samples runtime and connection-pool gauges until ctx ends.
func (s *HealthService) CollectMetrics(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	var memStats runtime.MemStats

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		runtime.ReadMemStats(&memStats)
		s.systemMetrics.WithLabelValues("memory_alloc_bytes").Set(float64(memStats.Alloc))
		s.systemMetrics.WithLabelValues("memory_sys_bytes").Set(float64(memStats.Sys))
		s.systemMetrics.WithLabelValues("goroutines_count").Set(float64(runtime.NumGoroutine()))
		s.systemMetrics.WithLabelValues("gc_runs_total").Set(float64(memStats.NumGC))

		if s.db != nil && s.db.PG != nil {
			stats := s.db.PG.Stat()
			s.dbConnectionMetrics.WithLabelValues("postgresql", "acquired_conns").Set(float64(stats.AcquiredConns()))
			s.dbConnectionMetrics.WithLabelValues("postgresql", "idle_conns").Set(float64(stats.IdleConns()))
			s.dbConnectionMetrics.WithLabelValues("postgresql", "total_conns").Set(float64(stats.TotalConns()))
			s.dbConnectionMetrics.WithLabelValues("postgresql", "max_conns").Set(float64(stats.MaxConns()))
		}
	}
}

// UpdateHealthMetrics updates health check metrics
func (s *HealthService) UpdateHealthMetrics(serviceName string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(0)
	}
	s.lastHealthCheck.WithLabelValues(serviceName).Set(float64(time.Now().Unix()))
}
