package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shelfrec/internal/catalog"
	"github.com/temcen/shelfrec/internal/services"
	"github.com/temcen/shelfrec/pkg/models"
)

// AdminHandler handles operator requests.
type AdminHandler struct {
	reload    services.ReloadServiceInterface
	logger    *logrus.Logger
	validator *validator.Validate
}

func NewAdminHandler(reload services.ReloadServiceInterface, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		reload:    reload,
		logger:    logger,
		validator: validator.New(),
	}
}

// Reload serves POST /api/v1/admin/reload. An empty body reloads this
// instance with no reason recorded.
func (h *AdminHandler) Reload(c *gin.Context) {
	var req models.ReloadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "Invalid request format", err.Error()))
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_FAILED", "Request validation failed", err.Error()))
		return
	}

	response, err := h.reload.Reload(c.Request.Context(), req)
	if err != nil {
		h.logger.WithError(err).WithField("reason", req.Reason).Error("Catalog reload failed")

		var datasetErr *catalog.DatasetError
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusServiceUnavailable, errorBody("RELOAD_CANCELLED", "Reload was cancelled", nil))
		case errors.As(err, &datasetErr):
			c.JSON(http.StatusUnprocessableEntity, errorBody("INVALID_DATASET", "Catalog could not be loaded", err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, errorBody("RELOAD_FAILED", "Failed to reload catalog", nil))
		}
		return
	}

	status := http.StatusOK
	if response.Status == "queued" {
		status = http.StatusAccepted
	}
	c.JSON(status, response)
}
