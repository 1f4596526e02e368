package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shelfrec/internal/recommender"
)

// MetricsCollector owns the recommender's Prometheus metrics.
type MetricsCollector struct {
	requests      *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	indexItems    prometheus.Gauge
	indexTerms    prometheus.Gauge
	reloads       *prometheus.CounterVec
}

// NewMetricsCollector registers the metrics with reg. Metrics that are
// already registered are tolerated so tests can build several collectors.
func NewMetricsCollector(reg prometheus.Registerer, logger *logrus.Logger) *MetricsCollector {
	mc := &MetricsCollector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommender_requests_total",
			Help: "Recommendations served, by the origin tier of each returned item",
		}, []string{"tier"}),

		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommender_stage_failures_total",
			Help: "Recommendation stages that degraded to the next tier",
		}, []string{"stage", "reason"}),

		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recommender_latency_seconds",
			Help:    "Latency of recommender operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}, []string{"operation"}),

		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommender_cache_lookups_total",
			Help: "Recommendation cache lookups by result",
		}, []string{"result"}),

		indexItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recommender_index_items",
			Help: "Items in the live content index",
		}),

		indexTerms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recommender_index_terms",
			Help: "Vocabulary size of the live content index",
		}),

		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommender_reloads_total",
			Help: "Catalog reloads by result",
		}, []string{"result"}),
	}

	collectors := map[string]prometheus.Collector{
		"recommender_requests_total":       mc.requests,
		"recommender_stage_failures_total": mc.stageFailures,
		"recommender_latency_seconds":      mc.latency,
		"recommender_cache_lookups_total":  mc.cacheLookups,
		"recommender_index_items":          mc.indexItems,
		"recommender_index_terms":          mc.indexTerms,
		"recommender_reloads_total":        mc.reloads,
	}
	for name, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				logger.WithError(err).Warnf("Failed to register %s metric", name)
			}
		}
	}

	return mc
}

// RecordRecommendations counts each returned item under its origin tier.
func (mc *MetricsCollector) RecordRecommendations(candidates []recommender.Candidate) {
	for _, c := range candidates {
		mc.requests.WithLabelValues(string(c.Origin)).Inc()
	}
}

// RecordStageFailure matches recommender.Options.OnStageFailure.
func (mc *MetricsCollector) RecordStageFailure(stage, reason string) {
	mc.stageFailures.WithLabelValues(stage, reason).Inc()
}

func (mc *MetricsCollector) RecordLatency(operation string, duration time.Duration) {
	mc.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (mc *MetricsCollector) RecordCacheLookup(hit bool) {
	if hit {
		mc.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		mc.cacheLookups.WithLabelValues("miss").Inc()
	}
}

func (mc *MetricsCollector) RecordReload(success bool) {
	if success {
		mc.reloads.WithLabelValues("success").Inc()
	} else {
		mc.reloads.WithLabelValues("failure").Inc()
	}
}

// SetEngineInfo publishes the size of the live index.
func (mc *MetricsCollector) SetEngineInfo(info recommender.Info) {
	mc.indexItems.Set(float64(info.Items))
	mc.indexTerms.Set(float64(info.Terms))
}
