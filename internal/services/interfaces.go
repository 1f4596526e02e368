package services

import (
	"context"

	"github.com/temcen/shelfrec/internal/messaging"
	"github.com/temcen/shelfrec/pkg/models"
)

// ResultCache stores serialized responses; internal/cache.RedisCache implements it.
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// ReloadPublisher broadcasts reload requests to every instance.
type ReloadPublisher interface {
	PublishReload(ctx context.Context, event messaging.ReloadEvent) error
}

// ReloadConsumer delivers reload events until ctx is done.
type ReloadConsumer interface {
	Consume(ctx context.Context, handler func(context.Context, messaging.ReloadEvent) error) error
}

// ReloadStatsProvider reports reload consumer statistics; messaging.ReloadBus implements it.
type ReloadStatsProvider interface {
	GetMetrics() map[string]interface{}
}

// RecommendationServiceInterface is what the HTTP handlers need from the recommender.
type RecommendationServiceInterface interface {
	Recommend(ctx context.Context, query models.RecommendationQuery) *models.RecommendationResponse
	Similar(ctx context.Context, itemID string, count int) *models.RecommendationResponse
	Chat(ctx context.Context, message string) *models.ChatResponse
}

// ReloadServiceInterface rebuilds the live index from the catalog source.
type ReloadServiceInterface interface {
	Reload(ctx context.Context, req models.ReloadRequest) (*models.ReloadResponse, error)
}

// HealthCheckerInterface reports service health.
type HealthCheckerInterface interface {
	CheckHealth(ctx context.Context) *HealthStatus
}
