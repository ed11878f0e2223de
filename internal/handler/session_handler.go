package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quakepredictec/riesgo-dashboard/internal/middleware"
	"github.com/quakepredictec/riesgo-dashboard/internal/models"
	"github.com/quakepredictec/riesgo-dashboard/internal/session"
	"github.com/quakepredictec/riesgo-dashboard/pkg/response"
)

// SessionHandler stands in for the external login page. It does not check
// credentials.
type SessionHandler struct {
	manager *session.Manager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(manager *session.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// Login handles POST /api/v1/session
func (h *SessionHandler) Login(c *gin.Context) {
	var user models.User
	if err := c.ShouldBindJSON(&user); err != nil {
		response.BadRequest(c, "Invalid login request", err)
		return
	}

	token, expires, err := h.manager.Issue(user)
	if err != nil {
		response.BadRequest(c, "Invalid login request", err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, token, int(time.Until(expires).Seconds()), "/", "", false, true)
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expires.UTC(),
		"user":       user,
	})
}

// Current handles GET /api/v1/session
func (h *SessionHandler) Current(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Success(c, gin.H{"logged_in": false})
		return
	}
	response.Success(c, gin.H{"logged_in": true, "user": user})
}

// Logout handles DELETE /api/v1/session
func (h *SessionHandler) Logout(c *gin.Context) {
	c.SetCookie(session.CookieName, "", -1, "/", "", false, true)
	response.Success(c, gin.H{"logged_in": false})
}
