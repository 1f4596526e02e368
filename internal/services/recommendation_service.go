package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/shelfrec/internal/config"
	"github.com/temcen/shelfrec/internal/recommender"
	"github.com/temcen/shelfrec/pkg/models"
)

// RecommendationService serves the live engine with an optional response cache.
type RecommendationService struct {
	holder  *recommender.Holder
	cache   ResultCache
	metrics *MetricsCollector
	cfg     config.RecommendationConfig
	logger  *logrus.Logger
}

func NewRecommendationService(
	holder *recommender.Holder,
	cache ResultCache,
	metrics *MetricsCollector,
	cfg config.RecommendationConfig,
	logger *logrus.Logger,
) *RecommendationService {
	return &RecommendationService{
		holder:  holder,
		cache:   cache,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *RecommendationService) Recommend(ctx context.Context, query models.RecommendationQuery) *models.RecommendationResponse {
	startTime := time.Now()
	engine := s.holder.Engine()
	n := s.resultCount(query.Count)

	// Pure fallback calls stay uncached so every call gets a fresh sample.
	var cacheKey string
	if query.UserID != "" || query.ItemID != "" {
		cacheKey = fmt.Sprintf("recs:%d:u=%s:i=%s:n=%d", engine.Version(), query.UserID, query.ItemID, n)
		if cached := s.getCached(ctx, cacheKey); cached != nil {
			s.metrics.RecordLatency("recommend", time.Since(startTime))
			return cached
		}
	}

	candidates := engine.Recommend(recommender.Request{
		UserID: query.UserID,
		ItemID: query.ItemID,
		N:      n,
	})

	response := &models.RecommendationResponse{
		Recommendations: toModels(candidates),
		Count:           len(candidates),
		UserID:          query.UserID,
		ItemID:          query.ItemID,
		EngineVersion:   engine.Version(),
		GeneratedAt:     time.Now().UTC(),
	}

	s.metrics.RecordRecommendations(candidates)
	s.metrics.RecordLatency("recommend", time.Since(startTime))
	if cacheKey != "" {
		s.setCached(ctx, cacheKey, response)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  query.UserID,
		"item_id":  query.ItemID,
		"count":    response.Count,
		"duration": time.Since(startTime),
	}).Debug("Recommendations generated")

	return response
}

// Similar returns content-similar books for itemID, or fallback samples when
// the item has no similar books.
func (s *RecommendationService) Similar(ctx context.Context, itemID string, count int) *models.RecommendationResponse {
	startTime := time.Now()
	engine := s.holder.Engine()
	n := s.resultCount(count)

	cacheKey := fmt.Sprintf("similar:%d:i=%s:n=%d", engine.Version(), itemID, n)
	if cached := s.getCached(ctx, cacheKey); cached != nil {
		s.metrics.RecordLatency("similar", time.Since(startTime))
		return cached
	}

	candidates := engine.Content().RecommendContent(itemID, n)

	response := &models.RecommendationResponse{
		Recommendations: toModels(candidates),
		Count:           len(candidates),
		ItemID:          itemID,
		EngineVersion:   engine.Version(),
		GeneratedAt:     time.Now().UTC(),
	}

	s.metrics.RecordRecommendations(candidates)
	s.metrics.RecordLatency("similar", time.Since(startTime))
	s.setCached(ctx, cacheKey, response)

	return response
}

func (s *RecommendationService) Chat(ctx context.Context, message string) *models.ChatResponse {
	startTime := time.Now()
	reply := s.holder.Engine().Chat(message)
	s.metrics.RecordLatency("chat", time.Since(startTime))

	response := &models.ChatResponse{Kind: string(reply.Kind)}
	if reply.IsText() {
		response.Text = reply.Text
	} else {
		response.Recommendations = toModels(reply.Candidates)
		s.metrics.RecordRecommendations(reply.Candidates)
	}
	return response
}

func (s *RecommendationService) resultCount(requested int) int {
	switch {
	case requested <= 0:
		return s.cfg.DefaultCount
	case s.cfg.MaxCount > 0 && requested > s.cfg.MaxCount:
		return s.cfg.MaxCount
	default:
		return requested
	}
}

func (s *RecommendationService) getCached(ctx context.Context, key string) *models.RecommendationResponse {
	if s.cache == nil {
		return nil
	}

	var cached models.RecommendationResponse
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read recommendation cache")
		return nil
	}
	s.metrics.RecordCacheLookup(hit)
	if !hit {
		return nil
	}

	cached.CacheHit = true
	return &cached
}

func (s *RecommendationService) setCached(ctx context.Context, key string, response *models.RecommendationResponse) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, response); err != nil {
		s.logger.WithError(err).Warn("Failed to cache recommendations")
	}
}

func toModels(candidates []recommender.Candidate) []models.Recommendation {
	out := make([]models.Recommendation, len(candidates))
	for i, c := range candidates {
		out[i] = models.Recommendation{
			ItemID:   c.ItemID,
			Title:    c.Title,
			Author:   c.Author,
			Genre:    c.Genre,
			Origin:   string(c.Origin),
			Score:    c.Score,
			Position: i + 1,
		}
	}
	return out
}
