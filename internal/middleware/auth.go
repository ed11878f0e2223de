package middleware

import (
	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
	"github.com/quakepredictec/riesgo-dashboard/internal/session"
	"github.com/quakepredictec/riesgo-dashboard/pkg/response"
)

const userKey = "user"

// Session reads the bearer token or the session cookie and, when valid,
// stores the user in the context. It never rejects a request.
func Session(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := session.ExtractBearer(c.GetHeader("Authorization"))
		if token == "" {
			if cookie, err := c.Cookie(session.CookieName); err == nil {
				token = cookie
			}
		}
		if token != "" {
			user, err := m.Parse(token)
			if err != nil {
				log.WithError(err).WithField("ip", c.ClientIP()).Debug("ignoring invalid session token")
			} else {
				c.Set(userKey, user)
			}
		}
		c.Next()
	}
}

// RequireLogin rejects requests without a valid session
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			response.Unauthorized(c, "login required")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the logged-in user, if any
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}
