package handlers

import (
	"net/http"

	"vesting-backend/internal/db"

	"github.com/gin-gonic/gin"
)

// HealthCheckHandler GET /health
func HealthCheckHandler(c *gin.Context) {
	database := "disabled"
	if db.DB != nil {
		database = "ok"
		if sqlDB, err := db.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			database = "unavailable"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "vesting-backend",
		"database": database,
	})
}
