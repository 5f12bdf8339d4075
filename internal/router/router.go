package router

import (
	"net/http"
	"time"

	"vesting-backend/internal/app"
	"vesting-backend/internal/config"
	"vesting-backend/internal/handlers"
	"vesting-backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// corsMiddleware CORS middleware. An empty origin list or "*" allows every origin.
func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Cache-Control", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        time.Hour,
	}
	if cfg.MaxAge > 0 {
		corsConfig.MaxAge = time.Duration(cfg.MaxAge) * time.Second
	}

	allowAll := len(cfg.AllowedOrigins) == 0
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = cfg.AllowCredentials
	}
	return cors.New(corsConfig)
}

// SetupRouter builds the HTTP API on top of the service container
func SetupRouter(container *app.ServiceContainer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(container.Logger))
	r.Use(corsMiddleware(container.Config.CORS))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", handlers.HealthCheckHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	wsHandler := handlers.NewWebSocketHandler(container.WebSocketPushService)
	r.GET("/ws/events", wsHandler.HandleWebSocket)

	localhostOnly := middleware.NewLocalhostOnly(container.Logger, container.Config.Admin.AllowedIPs)
	SetupVestingRoutes(r, container, wsHandler, localhostOnly)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "API endpoint not found",
			"path":    c.Request.URL.Path,
		})
	})

	return r
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.WithFields(logrus.Fields{
			"path":        c.Request.URL.Path,
			"method":      c.Request.Method,
			"status":      c.Writer.Status(),
			"remote_addr": c.ClientIP(),
		}).Debug("HTTP request")
	}
}
