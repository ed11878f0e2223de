package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/quakepredictec/riesgo-dashboard/internal/service"
	"github.com/quakepredictec/riesgo-dashboard/pkg/response"
)

// PreferenceHandler handles persisted client preferences
type PreferenceHandler struct {
	service *service.PreferenceService
}

// NewPreferenceHandler creates a new preference handler
func NewPreferenceHandler(service *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{service: service}
}

type themeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

// GetTheme handles GET /api/v1/preferences/theme
func (h *PreferenceHandler) GetTheme(c *gin.Context) {
	theme, err := h.service.Theme()
	if err != nil {
		response.InternalError(c, "Failed to get theme", err)
		return
	}
	response.Success(c, gin.H{"theme": theme})
}

// SetTheme handles PUT /api/v1/preferences/theme
func (h *PreferenceHandler) SetTheme(c *gin.Context) {
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid theme request", err)
		return
	}

	err := h.service.SetTheme(req.Theme)
	if errors.Is(err, service.ErrValidation) {
		response.BadRequest(c, "Invalid theme", err)
		return
	}
	if err != nil {
		response.InternalError(c, "Failed to save theme", err)
		return
	}
	h.GetTheme(c)
}
