package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/temcen/shelfrec/internal/catalog"
	"github.com/temcen/shelfrec/pkg/models"
)

func TestAdminHandler_Reload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		body           string
		request        models.ReloadRequest
		response       *models.ReloadResponse
		err            error
		expectedStatus int
		errorCode      string
	}{
		{
			name:           "empty body reloads locally",
			body:           "",
			request:        models.ReloadRequest{},
			response:       &models.ReloadResponse{Status: "reloaded", Items: 3, BuiltAt: time.Now()},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "broadcast is accepted",
			body:           `{"reason":"nightly","broadcast":true}`,
			request:        models.ReloadRequest{Reason: "nightly", Broadcast: true},
			response:       &models.ReloadResponse{Status: "queued", EventID: "e1"},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "empty dataset",
			body:           `{"reason":"bad file"}`,
			request:        models.ReloadRequest{Reason: "bad file"},
			err:            &catalog.DatasetError{Source: "file", Err: catalog.ErrNoItems},
			expectedStatus: http.StatusUnprocessableEntity,
			errorCode:      "INVALID_DATASET",
		},
		{
			name:           "cancelled",
			body:           `{}`,
			request:        models.ReloadRequest{},
			err:            context.Canceled,
			expectedStatus: http.StatusServiceUnavailable,
			errorCode:      "RELOAD_CANCELLED",
		},
		{
			name:           "other failure",
			body:           `{}`,
			request:        models.ReloadRequest{},
			err:            errors.New("broker down"),
			expectedStatus: http.StatusInternalServerError,
			errorCode:      "RELOAD_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockReloadService)
			if tt.err != nil {
				service.On("Reload", mock.Anything, tt.request).Return(nil, tt.err)
			} else {
				service.On("Reload", mock.Anything, tt.request).Return(tt.response, nil)
			}
			handler := NewAdminHandler(service, testLogger())

			router := gin.New()
			router.POST("/api/v1/admin/reload", handler.Reload)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reload", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.errorCode != "" {
				assert.Equal(t, tt.errorCode, decodeError(t, w.Body.Bytes()).Error.Code)
			}
			service.AssertExpectations(t)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		service := new(MockReloadService)
		handler := NewAdminHandler(service, testLogger())
		router := gin.New()
		router.POST("/api/v1/admin/reload", handler.Reload)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reload", strings.NewReader(`{"broadcast":`))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		service.AssertNotCalled(t, "Reload", mock.Anything, mock.Anything)
	})
}
