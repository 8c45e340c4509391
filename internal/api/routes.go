package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/xefootball/backend/internal/api/handlers"
	"github.com/xefootball/backend/internal/config"
	"github.com/xefootball/backend/internal/match"
	"github.com/xefootball/backend/internal/matchmaking"
	"github.com/xefootball/backend/internal/middleware"
	"github.com/xefootball/backend/internal/session"
	"github.com/xefootball/backend/internal/ws"
)

// Services bundles the long-lived components the routes depend on.
type Services struct {
	Queue    *matchmaking.Service
	Matches  *match.Service
	Sessions *session.Store
	Hub      *ws.Hub
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, cfg *config.Config, svc Services) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		// Chat gateway delivers user messages here
		v1.POST("/inbound", handlers.Inbound(db, cfg, svc.Matches, svc.Sessions))

		// Matchmaking
		v1.POST("/play", handlers.Play(db, cfg, svc.Queue, svc.Sessions))
		v1.POST("/play/cancel", handlers.CancelPlay(svc.Queue))

		// Match lifecycle
		v1.GET("/matches/:id", handlers.GetMatch(svc.Matches))
		v1.POST("/matches/:id/code", handlers.SetRoomCode(svc.Matches))
		v1.POST("/matches/:id/evidence", handlers.SubmitEvidence(svc.Matches))

		// Users
		v1.GET("/users/:id/balance", handlers.GetBalance(db))
		v1.GET("/users/:id/profile", handlers.GetProfile(db))
		v1.POST("/users/:id/register", handlers.Register(db, cfg))
		v1.GET("/leaderboard", handlers.GetLeaderboard(db))
		v1.GET("/rules", handlers.GetRules(db))

		// Live status feed
		v1.GET("/ws", ws.ServeWS(svc.Hub))

		// Admin surface
		adminGroup := v1.Group("/admin")
		adminGroup.POST("/login", handlers.AdminLogin(db, cfg))
		authed := adminGroup.Group("")
		authed.Use(middleware.AdminAuth(cfg))
		{
			authed.POST("/matches/:id/resolve", handlers.ResolveMatch(db, svc.Matches))
			authed.POST("/matches/:id/cancel", handlers.CancelMatch(db, svc.Matches))
			authed.GET("/stats", handlers.AdminStats(db, svc.Queue, svc.Hub.ConnectedCount))
			authed.POST("/broadcast", handlers.AdminBroadcast(db))
			authed.GET("/settings/:key", handlers.GetSetting(db))
			authed.PUT("/settings/:key", handlers.PutSetting(db))
			authed.GET("/audit", handlers.GetAuditLog(db))
			authed.POST("/users/:id/ban", handlers.BanUser(db))
			authed.POST("/deposits/:id/approve", handlers.ApproveDeposit(db))
			authed.POST("/deposits/:id/reject", handlers.RejectDeposit(db))
		}
	}
}
