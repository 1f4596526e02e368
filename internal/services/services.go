package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shelfrec/internal/cache"
	"github.com/temcen/shelfrec/internal/catalog"
	"github.com/temcen/shelfrec/internal/config"
	"github.com/temcen/shelfrec/internal/database"
	"github.com/temcen/shelfrec/internal/messaging"
	"github.com/temcen/shelfrec/internal/recommender"
)

type Services struct {
	Health         *HealthService
	Recommendation *RecommendationService
	Reload         *ReloadService
	Metrics        *MetricsCollector
	ReloadBus      *messaging.ReloadBus
}

func New(
	cfg *config.Config,
	logger *logrus.Logger,
	db *database.Database,
	holder *recommender.Holder,
	source catalog.Source,
	metrics *MetricsCollector,
	reg prometheus.Registerer,
) (*Services, error) {
	var resultCache ResultCache
	if db.Redis != nil {
		ttl := cfg.Recommendation.Caching.RecommendationsTTL
		if ttl <= 0 {
			ttl = 15 * time.Minute
		}
		resultCache = cache.NewRedisCache(db.Redis, "shelfrec:", ttl)
	}

	// Kafka is optional; without it reloads only reach this instance.
	var reloadBus *messaging.ReloadBus
	var publisher ReloadPublisher
	var reloadStats ReloadStatsProvider
	if len(cfg.Kafka.Brokers) > 0 {
		bus, err := messaging.NewReloadBus(cfg, uuid.NewString(), logger)
		if err != nil {
			return nil, err
		}
		reloadBus = bus
		publisher = bus
		reloadStats = bus
	}

	return &Services{
		Health:         NewHealthService(holder, db, reloadStats, reg, logger),
		Recommendation: NewRecommendationService(holder, resultCache, metrics, cfg.Recommendation, logger),
		Reload:         NewReloadService(holder, source, publisher, metrics, logger),
		Metrics:        metrics,
		ReloadBus:      reloadBus,
	}, nil
}
