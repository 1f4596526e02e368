package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shelfrec/internal/services"
	"github.com/temcen/shelfrec/pkg/models"
)

type ChatHandler struct {
	service   services.RecommendationServiceInterface
	logger    *logrus.Logger
	validator *validator.Validate
}

func NewChatHandler(service services.RecommendationServiceInterface, logger *logrus.Logger) *ChatHandler {
	return &ChatHandler{
		service:   service,
		logger:    logger,
		validator: validator.New(),
	}
}

// Post serves POST /api/v1/chat.
func (h *ChatHandler) Post(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Debug("Failed to bind chat request")
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "Invalid request format", err.Error()))
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_FAILED", "Request validation failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, h.service.Chat(c.Request.Context(), req.Message))
}
