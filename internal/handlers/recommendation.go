package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shelfrec/internal/services"
	"github.com/temcen/shelfrec/pkg/models"
)

type RecommendationHandler struct {
	service   services.RecommendationServiceInterface
	logger    *logrus.Logger
	validator *validator.Validate
}

func NewRecommendationHandler(service services.RecommendationServiceInterface, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service:   service,
		logger:    logger,
		validator: validator.New(),
	}
}

// Get serves GET /api/v1/recommendations?user_id=&item_id=&count=. Both ids
// are optional; with neither the response is a random sample.
func (h *RecommendationHandler) Get(c *gin.Context) {
	var query models.RecommendationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_QUERY", "Invalid query parameters", err.Error()))
		return
	}

	if err := h.validator.Struct(&query); err != nil {
		h.logger.WithError(err).Debug("Recommendation query failed validation")
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_FAILED", "Request validation failed", err.Error()))
		return
	}

	response := h.service.Recommend(c.Request.Context(), query)
	c.JSON(http.StatusOK, response)
}

// Similar serves GET /api/v1/books/:itemId/similar?count=.
func (h *RecommendationHandler) Similar(c *gin.Context) {
	var query models.RecommendationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_QUERY", "Invalid query parameters", err.Error()))
		return
	}
	query.ItemID = c.Param("itemId")

	if err := h.validator.Struct(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_FAILED", "Request validation failed", err.Error()))
		return
	}

	response := h.service.Similar(c.Request.Context(), query.ItemID, query.Count)
	c.JSON(http.StatusOK, response)
}
