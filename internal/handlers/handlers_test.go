package handlers

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/shelfrec/internal/services"
	"github.com/temcen/shelfrec/internal/validation"
	"github.com/temcen/shelfrec/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// MockRecommendationService is a mock implementation
type MockRecommendationService struct {
	mock.Mock
}

func (m *MockRecommendationService) Recommend(ctx context.Context, query models.RecommendationQuery) *models.RecommendationResponse {
	args := m.Called(ctx, query)
	return args.Get(0).(*models.RecommendationResponse)
}

func (m *MockRecommendationService) Similar(ctx context.Context, itemID string, count int) *models.RecommendationResponse {
	args := m.Called(ctx, itemID, count)
	return args.Get(0).(*models.RecommendationResponse)
}

func (m *MockRecommendationService) Chat(ctx context.Context, message string) *models.ChatResponse {
	args := m.Called(ctx, message)
	return args.Get(0).(*models.ChatResponse)
}

type MockReloadService struct {
	mock.Mock
}

func (m *MockReloadService) Reload(ctx context.Context, req models.ReloadRequest) (*models.ReloadResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReloadResponse), args.Error(1)
}

type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) CheckHealth(ctx context.Context) *services.HealthStatus {
	args := m.Called(ctx)
	return args.Get(0).(*services.HealthStatus)
}

func schemaValidator(t *testing.T) *validation.SchemaValidator {
	t.Helper()
	sv, err := validation.NewEmbeddedSchemaValidator()
	require.NoError(t, err)
	return sv
}

// decodeError checks the body against the error envelope schema before decoding it.
// decodeRecommendations checks the body against the response schema before decoding it.
func decodeRecommendations(t *testing.T, body []byte) models.RecommendationResponse {
	t.Helper()
	result := schemaValidator(t).ValidateRecommendationResponse(body)
	require.True(t, result.Valid, "recommendation response: %v", result.Errors)

	var resp models.RecommendationResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func decodeError(t *testing.T, body []byte) models.ErrorResponse {
	t.Helper()
	result := schemaValidator(t).ValidateErrorResponse(body)
	require.True(t, result.Valid, "error envelope: %v", result.Errors)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}
