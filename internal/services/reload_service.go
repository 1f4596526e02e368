package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/shelfrec/internal/catalog"
	"github.com/temcen/shelfrec/internal/messaging"
	"github.com/temcen/shelfrec/internal/recommender"
	"github.com/temcen/shelfrec/pkg/models"
)

// ReloadService rebuilds the live engine, either locally or by broadcasting
// a reload event that every instance (this one included) consumes.
type ReloadService struct {
	holder    *recommender.Holder
	source    catalog.Source
	publisher ReloadPublisher
	metrics   *MetricsCollector
	logger    *logrus.Logger
}

func NewReloadService(
	holder *recommender.Holder,
	source catalog.Source,
	publisher ReloadPublisher,
	metrics *MetricsCollector,
	logger *logrus.Logger,
) *ReloadService {
	return &ReloadService{
		holder:    holder,
		source:    source,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *ReloadService) Reload(ctx context.Context, req models.ReloadRequest) (*models.ReloadResponse, error) {
	if req.Broadcast {
		if s.publisher != nil {
			event := messaging.NewReloadEvent(req.Reason, "admin")
			if err := s.publisher.PublishReload(ctx, event); err != nil {
				return nil, fmt.Errorf("failed to broadcast reload: %w", err)
			}
			return &models.ReloadResponse{
				Status:    "queued",
				EventID:   event.EventID.String(),
				Requested: event.Timestamp,
			}, nil
		}
		s.logger.Warn("No reload publisher configured, reloading this instance only")
	}

	requested := time.Now().UTC()
	engine, err := s.reload(ctx, req.Reason)
	if err != nil {
		return nil, err
	}

	info := engine.Info()
	return &models.ReloadResponse{
		Status:    "reloaded",
		Items:     info.Items,
		Terms:     info.Terms,
		Ratings:   info.Ratings,
		BuiltAt:   info.BuiltAt,
		Requested: requested,
	}, nil
}

// HandleReloadEvent is the consumer callback for broadcast reloads.
func (s *ReloadService) HandleReloadEvent(ctx context.Context, event messaging.ReloadEvent) error {
	s.logger.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"reason":   event.Reason,
	}).Info("Reload event received")

	_, err := s.reload(ctx, event.Reason)
	return err
}

// Start consumes reload events in the background until ctx is done.
func (s *ReloadService) Start(ctx context.Context, consumer ReloadConsumer) {
	go func() {
		if err := consumer.Consume(ctx, s.HandleReloadEvent); err != nil && ctx.Err() == nil {
			s.logger.WithError(err).Error("Reload consumer stopped")
		}
	}()
}

func (s *ReloadService) reload(ctx context.Context, reason string) (*recommender.Engine, error) {
	startTime := time.Now()
	engine, err := s.holder.Reload(ctx, s.source)
	s.metrics.RecordLatency("reload", time.Since(startTime))
	s.metrics.RecordReload(err == nil)
	if err != nil {
		s.logger.WithError(err).WithField("reason", reason).Error("Catalog reload failed, keeping the current engine")
		return nil, err
	}

	s.metrics.SetEngineInfo(engine.Info())
	return engine, nil
}
