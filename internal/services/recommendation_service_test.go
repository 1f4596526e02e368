package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/shelfrec/pkg/models"
)

func TestRecommendationService_Recommend(t *testing.T) {
	metrics, _ := newTestMetrics()
	holder := newTestHolder(t, testCatalog(12), metrics)
	service := NewRecommendationService(holder, nil, metrics, testRecommendationConfig(), testLogger())

	resp := service.Recommend(context.Background(), models.RecommendationQuery{ItemID: "1", Count: 4})

	require.Len(t, resp.Recommendations, 4)
	assert.Equal(t, 4, resp.Count)
	assert.Equal(t, "1", resp.ItemID)
	assert.Equal(t, holder.Engine().Version(), resp.EngineVersion)
	assert.False(t, resp.CacheHit)
	for i, rec := range resp.Recommendations {
		assert.Equal(t, i+1, rec.Position)
		assert.NotEqual(t, "1", rec.ItemID)
	}
	assert.Equal(t, "content", resp.Recommendations[0].Origin)

	total := testutil.ToFloat64(metrics.requests.WithLabelValues("content")) +
		testutil.ToFloat64(metrics.requests.WithLabelValues("fallback"))
	assert.Equal(t, 4.0, total)
}

func TestRecommendationService_ResultCount(t *testing.T) {
	metrics, _ := newTestMetrics()
	holder := newTestHolder(t, testCatalog(20), metrics)
	service := NewRecommendationService(holder, nil, metrics, testRecommendationConfig(), testLogger())

	tests := []struct {
		requested int
		expected  int
	}{
		{requested: 0, expected: 5},
		{requested: -1, expected: 5},
		{requested: 3, expected: 3},
		{requested: 50, expected: 10},
	}

	for _, tt := range tests {
		resp := service.Recommend(context.Background(), models.RecommendationQuery{Count: tt.requested})
		assert.Len(t, resp.Recommendations, tt.expected, "requested %d", tt.requested)
	}
}

func TestRecommendationService_StageFailuresAreCounted(t *testing.T) {
	metrics, _ := newTestMetrics()
	holder := newTestHolder(t, testCatalog(8), metrics)
	service := NewRecommendationService(holder, nil, metrics, testRecommendationConfig(), testLogger())

	resp := service.Recommend(context.Background(), models.RecommendationQuery{ItemID: "missing", UserID: "nobody", Count: 3})

	assert.Len(t, resp.Recommendations, 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.stageFailures.WithLabelValues("content", "unknown_item")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.stageFailures.WithLabelValues("collaborative", "unknown_user")))
}

func TestRecommendationService_CacheHit(t *testing.T) {
	metrics, _ := newTestMetrics()
	holder := newTestHolder(t, testCatalog(12), metrics)
	cache := new(MockResultCache)
	service := NewRecommendationService(holder, cache, metrics, testRecommendationConfig(), testLogger())

	cache.On("Get", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "recs:") && strings.Contains(key, "i=2")
	}), mock.Anything).Run(func(args mock.Arguments) {
		dest := args.Get(2).(*models.RecommendationResponse)
		dest.Recommendations = []models.Recommendation{{ItemID: "5", Origin: "content", Position: 1}}
		dest.Count = 1
	}).Return(true, nil)

	resp := service.Recommend(context.Background(), models.RecommendationQuery{ItemID: "2", Count: 1})

	assert.True(t, resp.CacheHit)
	assert.Equal(t, "5", resp.Recommendations[0].ItemID)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("hit")))
}

func TestRecommendationService_CacheMissStores(t *testing.T) {
	metrics, _ := newTestMetrics()
	holder := newTestHolder(t, testCatalog(12), metrics)
	cache := new(MockResultCache)
	service := NewRecommendationService(holder, cache, metrics, testRecommendationConfig(), testLogger())

	cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	cache.On("Set", mock.Anything, mock.Anything, mock.AnythingOfType("*models.RecommendationResponse")).Return(nil)

	resp := service.Recommend(context.Background(), models.RecommendationQuery{UserID: "u1", Count: 2})

	assert.False(t, resp.CacheHit)
	cache.AssertExpectations(t)
}

func TestRecommendationService_CacheErrorsAreNotFatal(t *testing.T) {
	metrics, _ := newTestMetrics()
	holder := newTestHolder(t, testCatalog(12), metrics)
	cache := new(MockResultCache)
	service := NewRecommendationService(holder, cache, metrics, testRecommendationConfig(), testLogger())

	cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("connection refused"))
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	resp := service.Similar(context.Background(), "3", 3)

	assert.Len(t, resp.Recommendations, 3)
}

func TestRecommendationService_PureFallbackSkipsCache(t *testing.T) {
	metrics, _ := newTestMetrics()
	holder := newTestHolder(t, testCatalog(12), metrics)
	cache := new(MockResultCache)
	service := NewRecommendationService(holder, cache, metrics, testRecommendationConfig(), testLogger())

	resp := service.Recommend(context.Background(), models.RecommendationQuery{})

	assert.Len(t, resp.Recommendations, 5)
	for _, rec := range resp.Recommendations {
		assert.Equal(t, "fallback", rec.Origin)
	}
	cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecommendationService_Similar(t *testing.T) {
	metrics, _ := newTestMetrics()
	holder := newTestHolder(t, testCatalog(12), metrics)
	service := NewRecommendationService(holder, nil, metrics, testRecommendationConfig(), testLogger())

	resp := service.Similar(context.Background(), "1", 3)

	require.Len(t, resp.Recommendations, 3)
	for _, rec := range resp.Recommendations {
		assert.Equal(t, "content", rec.Origin)
		assert.Equal(t, "Frank Herbert", rec.Author)
	}

	unknown := service.Similar(context.Background(), "missing", 3)
	require.Len(t, unknown.Recommendations, 3)
	assert.Equal(t, "fallback", unknown.Recommendations[0].Origin)
}

func TestRecommendationService_Chat(t *testing.T) {
	metrics, _ := newTestMetrics()
	holder := newTestHolder(t, testCatalog(12), metrics)
	service := NewRecommendationService(holder, nil, metrics, testRecommendationConfig(), testLogger())

	text := service.Chat(context.Background(), "tell me about genres")
	assert.Equal(t, "text", text.Kind)
	assert.True(t, strings.HasPrefix(text.Text, "Top genres:"))
	assert.Empty(t, text.Recommendations)

	recs := service.Chat(context.Background(), "recommend book id: 4")
	assert.Equal(t, "recommendations", recs.Kind)
	assert.Len(t, recs.Recommendations, 5)
	assert.Empty(t, recs.Text)
}
