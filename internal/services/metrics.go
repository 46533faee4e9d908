package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// EngineMetrics holds the Prometheus collectors for the recommendation
// pipeline.
type EngineMetrics struct {
	generationDuration *prometheus.HistogramVec
	strategyResults    *prometheus.CounterVec
	cacheWrites        *prometheus.CounterVec
	profileCacheSize   prometheus.Gauge
}

func NewEngineMetrics(registerer prometheus.Registerer, logger *logrus.Logger) *EngineMetrics {
	m := &EngineMetrics{
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recommendation_generation_seconds",
			Help:    "Time spent generating a recommendation list",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		strategyResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendation_strategy_results_total",
			Help: "Scoring strategy executions by outcome",
		}, []string{"strategy", "outcome"}),
		cacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendation_cache_writes_total",
			Help: "Recommendation cache writes by outcome",
		}, []string{"outcome"}),
		profileCacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recommendation_profile_cache_entries",
			Help: "Number of user profiles held in the in-memory cache",
		}),
	}

	if registerer == nil {
		return m
	}

	// Register metrics, ignoring collectors already registered by another engine
	collectors := map[string]prometheus.Collector{
		"recommendation_generation_seconds":     m.generationDuration,
		"recommendation_strategy_results_total": m.strategyResults,
		"recommendation_cache_writes_total":     m.cacheWrites,
		"recommendation_profile_cache_entries":  m.profileCacheSize,
	}
	for name, c := range collectors {
		if err := registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				logger.WithError(err).Warnf("Failed to register %s metric", name)
			}
		}
	}

	return m
}

func (m *EngineMetrics) observeGeneration(outcome string, seconds float64) {
	m.generationDuration.WithLabelValues(outcome).Observe(seconds)
}

func (m *EngineMetrics) recordStrategy(strategy, outcome string) {
	m.strategyResults.WithLabelValues(strategy, outcome).Inc()
}

func (m *EngineMetrics) recordCacheWrite(outcome string) {
	m.cacheWrites.WithLabelValues(outcome).Inc()
}

func (m *EngineMetrics) setProfileCacheSize(n int) {
	m.profileCacheSize.Set(float64(n))
}
