package services

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shelfrec/internal/database"
	"github.com/temcen/shelfrec/internal/recommender"
)

type HealthService struct {
	holder      *recommender.Holder
	db          *database.Database
	reloadStats ReloadStatsProvider
	logger      *logrus.Logger

	// Prometheus metrics
	healthCheckStatus *prometheus.GaugeVec
	lastHealthCheck   *prometheus.GaugeVec
}

type HealthStatus struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Services    map[string]string      `json:"services"`
	Critical    []string               `json:"critical_failures,omitempty"`
	NonCritical []string               `json:"non_critical_failures,omitempty"`
	Latency     time.Duration          `json:"latency,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// NewHealthService builds the health checker; reloadStats may be nil when no
// reload consumer runs.
func NewHealthService(
	holder *recommender.Holder,
	db *database.Database,
	reloadStats ReloadStatsProvider,
	reg prometheus.Registerer,
	logger *logrus.Logger,
) *HealthService {
	hs := &HealthService{
		holder:      holder,
		db:          db,
		reloadStats: reloadStats,
		logger:      logger,
	}

	hs.healthCheckStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"})

	hs.lastHealthCheck = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_timestamp",
		Help: "Timestamp of last health check",
	}, []string{"service"})

	// Register metrics with error handling - ignore if already registered
	if err := reg.Register(hs.healthCheckStatus); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			logger.WithError(err).Warn("Failed to register health_check_status metric")
		}
	}
	if err := reg.Register(hs.lastHealthCheck); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			logger.WithError(err).Warn("Failed to register health_check_timestamp metric")
		}
	}

	return hs
}

// CheckHealth reports unhealthy when no engine is serving and degraded when
// an optional store is unreachable.
func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	startTime := time.Now()
	status := &HealthStatus{
		Timestamp: startTime,
		Services:  make(map[string]string),
		Details:   make(map[string]interface{}),
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	allCriticalHealthy := true
	if err := s.checkEngine(status); err != nil {
		status.Services["engine"] = "unhealthy"
		status.Critical = append(status.Critical, "engine")
		allCriticalHealthy = false
		s.logger.WithError(err).Error("Critical service engine is unhealthy")
		s.UpdateHealthMetrics("engine", false)
	} else {
		status.Services["engine"] = "healthy"
		s.UpdateHealthMetrics("engine", true)
	}

	// Backing stores only feed reloads and the cache.
	if s.db != nil {
		for name, err := range s.db.Ping(ctx) {
			if err != nil {
				status.Services[name] = "unhealthy"
				status.NonCritical = append(status.NonCritical, name)
				s.logger.WithError(err).Warnf("Non-critical service %s is unhealthy", name)
				s.UpdateHealthMetrics(name, false)
			} else {
				status.Services[name] = "healthy"
				s.UpdateHealthMetrics(name, true)
			}
		}
	}

	if s.reloadStats != nil {
		status.Details["reload_consumer"] = s.reloadStats.GetMetrics()
	}

	// Overall status
	if allCriticalHealthy {
		if len(status.NonCritical) == 0 {
			status.Status = "healthy"
		} else {
			status.Status = "degraded"
		}
	} else {
		status.Status = "unhealthy"
	}

	status.Latency = time.Since(startTime)
	return status
}

func (s *HealthService) checkEngine(status *HealthStatus) error {
	if s.holder == nil || s.holder.Engine() == nil {
		return errors.New("no recommendation engine loaded")
	}

	info := s.holder.Engine().Info()
	status.Details["engine"] = info
	if info.Items == 0 {
		return errors.New("recommendation engine has an empty catalog")
	}
	return nil
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
