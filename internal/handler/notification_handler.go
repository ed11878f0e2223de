package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/quakepredictec/riesgo-dashboard/internal/middleware"
	"github.com/quakepredictec/riesgo-dashboard/internal/notify"
	"github.com/quakepredictec/riesgo-dashboard/pkg/response"
)

// NotificationHandler lists the alert notifications recently sent to the
// logged-in user
type NotificationHandler struct {
	outbox *notify.Outbox
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(outbox *notify.Outbox) *NotificationHandler {
	return &NotificationHandler{outbox: outbox}
}

// List handles GET /api/v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	sent := h.outbox.ForUser(user.Usuario)
	response.Success(c, gin.H{"notifications": sent, "count": len(sent)})
}
