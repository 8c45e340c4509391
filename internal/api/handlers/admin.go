package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jmoiron/sqlx"
	"github.com/xefootball/backend/internal/admin"
	"github.com/xefootball/backend/internal/config"
	"github.com/xefootball/backend/internal/match"
	"github.com/xefootball/backend/internal/matchmaking"
	"github.com/xefootball/backend/internal/middleware"
	"github.com/xefootball/backend/internal/notify"
	"github.com/xefootball/backend/internal/settings"
	"github.com/xefootball/backend/internal/users"
	"github.com/xefootball/backend/internal/wallet"
)

func adminUsername(c *gin.Context) string {
	return c.GetString("admin_username")
}

func audit(db *sqlx.DB, c *gin.Context, action string, details map[string]interface{}, success bool) {
	admin.LogAdminAction(db, adminUsername(c), c.ClientIP(), c.FullPath(), action, details, success)
}

// AdminLogin exchanges username + secret for a bearer token.
func AdminLogin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Secret   string `json:"secret"`
		}
		if err := c.BindJSON(&req); err != nil || req.Username == "" || req.Secret == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and secret required"})
			return
		}

		account, err := admin.ValidateCredentials(db, req.Username, req.Secret)
		if err != nil {
			admin.LogAdminAction(db, req.Username, c.ClientIP(), c.FullPath(), "login", nil, false)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		expiry := time.Now().Add(time.Duration(cfg.AdminTokenHours) * time.Hour)
		claims := middleware.AdminClaims{
			Username: account.Username,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(expiry),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
		if err != nil {
			log.Printf("[ADMIN] Failed to sign token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		admin.LogAdminAction(db, account.Username, c.ClientIP(), c.FullPath(), "login", nil, true)
		c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expiry})
	}
}

// ResolveMatch declares the winner of a match under review.
func ResolveMatch(db *sqlx.DB, matches *match.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID := c.Param("id")
		var req struct {
			WinnerID int64 `json:"winner_id"`
		}
		if err := c.BindJSON(&req); err != nil || req.WinnerID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "winner_id required"})
			return
		}

		m, err := matches.Resolve(c.Request.Context(), matchID, req.WinnerID)
		details := map[string]interface{}{"match_id": matchID, "winner_id": req.WinnerID}
		if err != nil {
			audit(db, c, "resolve_match", details, false)
			respondError(c, err)
			return
		}

		audit(db, c, "resolve_match", details, true)
		c.JSON(http.StatusOK, gin.H{
			"status":    m.Status,
			"match_id":  m.ID,
			"winner_id": m.WinnerID.Int64,
		})
	}
}

// CancelMatch voids a match and refunds both stakes.
func CancelMatch(db *sqlx.DB, matches *match.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID := c.Param("id")
		err := matches.Cancel(c.Request.Context(), matchID)
		details := map[string]interface{}{"match_id": matchID}
		if err != nil {
			audit(db, c, "cancel_match", details, false)
			respondError(c, err)
			return
		}
		audit(db, c, "cancel_match", details, true)
		c.JSON(http.StatusOK, gin.H{"status": "cancelled", "match_id": matchID})
	}
}

// AdminStats returns the operational snapshot.
func AdminStats(db *sqlx.DB, queue *matchmaking.Service, connected func() int) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := admin.GetStats(db)
		if err != nil {
			respondError(c, err)
			return
		}
		stats.QueueSizes = queue.Sizes()
		c.JSON(http.StatusOK, gin.H{
			"stats":     stats,
			"connected": connected(),
		})
	}
}

// AdminBroadcast sends a message to every registered user.
func AdminBroadcast(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.BindJSON(&req); err != nil || req.Text == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text required"})
			return
		}

		ids, err := users.AllRegisteredIDs(db)
		if err != nil {
			respondError(c, err)
			return
		}

		go func(text string, ids []int64) {
			ctx := context.Background()
			for _, id := range ids {
				notify.SendMessage(ctx, id, text)
			}
			log.Printf("[ADMIN] Broadcast delivered to %d users", len(ids))
		}(req.Text, ids)

		audit(db, c, "broadcast", map[string]interface{}{"recipients": len(ids)}, true)
		c.JSON(http.StatusOK, gin.H{"status": "queued", "recipients": len(ids)})
	}
}

// GetSetting reads a runtime setting.
func GetSetting(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		value, err := settings.Get(db, key)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
	}
}

// PutSetting updates a runtime setting.
func PutSetting(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		var req struct {
			Value string `json:"value"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value required"})
			return
		}

		if err := settings.Set(db, key, req.Value); err != nil {
			respondError(c, err)
			return
		}
		audit(db, c, "update_setting", map[string]interface{}{"key": key, "value": req.Value}, true)
		c.JSON(http.StatusOK, gin.H{"key": key, "value": req.Value})
	}
}

// GetAuditLog returns recent admin actions.
func GetAuditLog(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if limit <= 0 || limit > 500 {
			limit = 50
		}

		logs, err := admin.GetAuditLogs(db, limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs})
	}
}

// BanUser toggles a user's banned flag.
func BanUser(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := paramInt64(c, "id")
		if !ok {
			return
		}
		var req struct {
			Banned bool `json:"banned"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "banned flag required"})
			return
		}

		if err := users.SetBanned(db, userID, req.Banned); err != nil {
			respondError(c, err)
			return
		}
		audit(db, c, "ban_user", map[string]interface{}{"user_id": userID, "banned": req.Banned}, true)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "banned": req.Banned})
	}
}

// ApproveDeposit credits a pending deposit claim.
func ApproveDeposit(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, ok := paramInt64(c, "id")
		if !ok {
			return
		}
		if err := wallet.ApproveDeposit(c.Request.Context(), db, requestID); err != nil {
			audit(db, c, "approve_deposit", map[string]interface{}{"request_id": requestID}, false)
			respondError(c, err)
			return
		}
		audit(db, c, "approve_deposit", map[string]interface{}{"request_id": requestID}, true)
		c.JSON(http.StatusOK, gin.H{"request_id": requestID, "status": "approved"})
	}
}

// RejectDeposit declines a pending deposit claim.
func RejectDeposit(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, ok := paramInt64(c, "id")
		if !ok {
			return
		}
		if err := wallet.RejectDeposit(c.Request.Context(), db, requestID); err != nil {
			respondError(c, err)
			return
		}
		audit(db, c, "reject_deposit", map[string]interface{}{"request_id": requestID}, true)
		c.JSON(http.StatusOK, gin.H{"request_id": requestID, "status": "rejected"})
	}
}
