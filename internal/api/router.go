package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quakepredictec/riesgo-dashboard/internal/handler"
	"github.com/quakepredictec/riesgo-dashboard/internal/middleware"
	"github.com/quakepredictec/riesgo-dashboard/internal/session"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Dashboard     *handler.DashboardHandler
	Session       *handler.SessionHandler
	Preferences   *handler.PreferenceHandler
	Subscriptions *handler.SubscriptionHandler
	Notifications *handler.NotificationHandler
	WebSocket     *handler.WebSocketHandler
	Sessions      *session.Manager
	RateLimiter   *middleware.RateLimiter
}

// SetupRouter builds the gin engine
func SetupRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	api := r.Group("/api/v1")
	api.Use(middleware.Session(h.Sessions))
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"message": "QuakePredictEC dashboard API is running",
			})
		})
		api.GET("/metrics", gin.WrapH(promhttp.Handler()))
		api.GET("/ws", h.WebSocket.Stream)

		limited := api.Group("")
		limited.Use(middleware.RateLimit(h.RateLimiter))

		limited.GET("/views/:view", h.Dashboard.Show)
		limited.GET("/table", h.Dashboard.Table)
		limited.GET("/alerts", h.Dashboard.Alerts)
		limited.POST("/alerts/read", h.Dashboard.MarkAlertsRead)
		limited.GET("/map", h.Dashboard.Map)
		limited.POST("/map/focus", h.Dashboard.Focus)
		limited.POST("/refresh", h.Dashboard.Refresh)
		limited.GET("/status", h.Dashboard.Status)

		limited.POST("/session", h.Session.Login)
		limited.GET("/session", h.Session.Current)
		limited.DELETE("/session", h.Session.Logout)

		limited.GET("/preferences/theme", h.Preferences.GetTheme)
		limited.PUT("/preferences/theme", h.Preferences.SetTheme)

		private := limited.Group("")
		private.Use(middleware.RequireLogin())
		{
			private.GET("/export.csv", h.Dashboard.ExportCSV)
			private.GET("/subscriptions", h.Subscriptions.List)
			private.PUT("/subscriptions", h.Subscriptions.Replace)
			private.GET("/notifications", h.Notifications.List)
		}
	}

	return r
}
