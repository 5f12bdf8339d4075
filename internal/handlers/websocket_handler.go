package handlers

import (
	"vesting-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// WebSocketHandler streams committed vesting events
type WebSocketHandler struct {
	pushService *services.WebSocketPushService
}

func NewWebSocketHandler(pushService *services.WebSocketPushService) *WebSocketHandler {
	return &WebSocketHandler{pushService: pushService}
}

// HandleWebSocket GET /ws/events?token=&account=
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	sub := services.Subscription{
		Token:   normalizeAddress(c.Query("token")),
		Account: normalizeAddress(c.Query("account")),
	}
	h.pushService.HandleWebSocket(c.Writer, c.Request, sub)
}

// GetStatsHandler GET /api/ws/stats
func (h *WebSocketHandler) GetStatsHandler(c *gin.Context) {
	respondOK(c, gin.H{
		"active_connections": h.pushService.GetActiveConnections(),
	})
}
