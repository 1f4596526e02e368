package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/temcen/shelfrec/internal/services"
)

type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
	Chat           *ChatHandler
	Admin          *AdminHandler
}

func New(logger *logrus.Logger, services *services.Services) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, services.Health),
		Recommendation: NewRecommendationHandler(services.Recommendation, logger),
		Chat:           NewChatHandler(services.Recommendation, logger),
		Admin:          NewAdminHandler(services.Reload, logger),
	}
}

func errorBody(code, message string, details interface{}) map[string]interface{} {
	body := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	return map[string]interface{}{"error": body}
}
