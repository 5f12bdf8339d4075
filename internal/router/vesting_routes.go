package router

import (
	"vesting-backend/internal/app"
	"vesting-backend/internal/handlers"
	"vesting-backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupVestingRoutes registers the /api routes
func SetupVestingRoutes(r *gin.Engine, container *app.ServiceContainer, wsHandler *handlers.WebSocketHandler, localhostOnly *middleware.LocalhostOnly) {
	logger := container.Logger
	requireAuth := middleware.NewAuthMiddleware(logger, container.AuthService).RequireAuth()

	api := r.Group("/api")

	// ============ Wallet login ============
	authHandler := handlers.NewAuthHandler(container.AuthService, logger)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/nonce", authHandler.NonceHandler)
		authGroup.POST("/login", authHandler.AuthenticateHandler)
	}

	// ============ Vesting ============
	vestingHandler := handlers.NewVestingHandler(container.VestingService, container.EventJournal, logger)
	vestingGroup := api.Group("/vesting")
	{
		vestingGroup.GET("/contract", vestingHandler.GetContractInfoHandler)
		vestingGroup.GET("/tokens", vestingHandler.GetTokensHandler)
		vestingGroup.GET("/schedules/:token", vestingHandler.GetScheduleHandler)
		vestingGroup.GET("/schedules/:token/eligible", vestingHandler.GetEligibleAddressesHandler)
		vestingGroup.GET("/positions/:token/:account", vestingHandler.GetPositionHandler)
		vestingGroup.GET("/totals/:token", vestingHandler.GetTotalsHandler)
		vestingGroup.GET("/events", vestingHandler.GetEventsHandler)

		vestingGroup.POST("/schedules", requireAuth, vestingHandler.SetScheduleHandler)
		vestingGroup.POST("/schedules/:token/eligible", requireAuth, vestingHandler.AddEligibleAddressHandler)
		vestingGroup.DELETE("/schedules/:token/eligible/:address", requireAuth, vestingHandler.RemoveEligibleAddressHandler)
		vestingGroup.POST("/deposits", requireAuth, vestingHandler.DepositHandler)
		vestingGroup.POST("/claims", requireAuth, vestingHandler.ClaimHandler)
		vestingGroup.POST("/withdrawals", requireAuth, vestingHandler.WithdrawHandler)

		if container.AttestationService != nil {
			attestationHandler := handlers.NewAttestationHandler(container.AttestationService)
			vestingGroup.POST("/attestations", requireAuth, attestationHandler.AttestHandler)
		}
	}

	api.GET("/ws/stats", wsHandler.GetStatsHandler)

	// ============ Admin (whitelisted IPs only) ============
	adminHandler := handlers.NewAdminHandler(container.AdminAuthService, container.VestingService, logger)
	adminGroup := api.Group("/admin", localhostOnly.Restrict())
	{
		adminGroup.POST("/login", adminHandler.LoginHandler)
		requireAdmin := middleware.NewAdminAuthMiddleware(logger, container.AdminAuthService).RequireAdminAuth()
		adminGroup.PUT("/authority", requireAdmin, adminHandler.SetAuthorityHandler)
	}

	// ============ Dev tokens ============
	if container.Config.Vesting.DevMode {
		devHandler := handlers.NewDevTokenHandler(container.Registry, container.VestingService.ContractAddress(), logger)
		devGroup := api.Group("/dev/tokens")
		{
			devGroup.POST("/mint", requireAuth, devHandler.MintHandler)
			devGroup.POST("/approve", requireAuth, devHandler.ApproveHandler)
			devGroup.GET("/:token/balances/:account", devHandler.BalanceHandler)
		}
	}
}
