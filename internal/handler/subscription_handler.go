package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/quakepredictec/riesgo-dashboard/internal/middleware"
	"github.com/quakepredictec/riesgo-dashboard/internal/models"
	"github.com/quakepredictec/riesgo-dashboard/internal/service"
	"github.com/quakepredictec/riesgo-dashboard/pkg/response"
)

// SubscriptionHandler handles alert subscriptions of the logged-in user
type SubscriptionHandler struct {
	service *service.SubscriptionService
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(service *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// List handles GET /api/v1/subscriptions
func (h *SubscriptionHandler) List(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	subs, err := h.service.List(user.Usuario)
	if err != nil {
		response.InternalError(c, "Failed to get subscriptions", err)
		return
	}
	response.Success(c, gin.H{"subscriptions": subs, "count": len(subs)})
}

// Replace handles PUT /api/v1/subscriptions
func (h *SubscriptionHandler) Replace(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid subscription request", err)
		return
	}

	subs, err := h.service.Replace(c.Request.Context(), user, req.Locations)
	if errors.Is(err, service.ErrValidation) {
		response.BadRequest(c, "Selecciona al menos una ciudad", err)
		return
	}
	if err != nil {
		response.InternalError(c, "Failed to save subscriptions", err)
		return
	}
	response.Success(c, gin.H{"subscriptions": subs, "count": len(subs)})
}
