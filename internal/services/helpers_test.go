package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/shelfrec/internal/catalog"
	"github.com/temcen/shelfrec/internal/config"
	"github.com/temcen/shelfrec/internal/messaging"
	"github.com/temcen/shelfrec/internal/recommender"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testRecommendationConfig() config.RecommendationConfig {
	return config.RecommendationConfig{DefaultCount: 5, MaxCount: 10}
}

func testCatalog(n int) []catalog.CatalogItem {
	authors := []string{"Frank Herbert", "Jane Austen", "Ursula Le Guin"}
	genres := []string{"Science Fiction", "Romance|Classics", "Fantasy"}
	items := make([]catalog.CatalogItem, n)
	for i := range items {
		a := i % len(authors)
		items[i] = catalog.CatalogItem{
			ID:     fmt.Sprintf("%d", i+1),
			Title:  fmt.Sprintf("Book %d of the %s cycle", i+1, authors[a]),
			Author: authors[a],
			Genre:  genres[a],
		}
	}
	return items
}

func newTestHolder(t *testing.T, items []catalog.CatalogItem, metrics *MetricsCollector) *recommender.Holder {
	t.Helper()
	opts := recommender.DefaultOptions()
	opts.Seed = 17
	if metrics != nil {
		opts.OnStageFailure = metrics.RecordStageFailure
	}
	engine, err := recommender.NewEngine(&catalog.Snapshot{Items: items}, opts, testLogger())
	require.NoError(t, err)
	return recommender.NewHolder(engine, opts, testLogger())
}

func newTestMetrics() (*MetricsCollector, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewMetricsCollector(reg, testLogger()), reg
}

// MockResultCache is a mock implementation of ResultCache
type MockResultCache struct {
	mock.Mock
}

func (m *MockResultCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	args := m.Called(ctx, key, dest)
	return args.Bool(0), args.Error(1)
}

func (m *MockResultCache) Set(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// MockReloadPublisher is a mock implementation of ReloadPublisher
type MockReloadPublisher struct {
	mock.Mock
}

func (m *MockReloadPublisher) PublishReload(ctx context.Context, event messaging.ReloadEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type stubSource struct {
	snapshot *catalog.Snapshot
	err      error
}

func (s *stubSource) Load(ctx context.Context) (*catalog.Snapshot, error) {
	return s.snapshot, s.err
}

func (s *stubSource) Name() string {
	return "stub"
}
