package handler

import (
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/quakepredictec/riesgo-dashboard/internal/hub"
)

// WebSocketHandler streams change notifications and map operations
type WebSocketHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(h *hub.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Stream handles GET /api/v1/ws
func (h *WebSocketHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).WithField("ip", c.ClientIP()).Warn("websocket upgrade failed")
		return
	}
	h.hub.Serve(conn)
}
