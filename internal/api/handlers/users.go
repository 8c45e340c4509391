package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/xefootball/backend/internal/config"
	"github.com/xefootball/backend/internal/ledger"
	"github.com/xefootball/backend/internal/settings"
	"github.com/xefootball/backend/internal/users"
)

// GetBalance returns the user's current balance with recent ledger history.
func GetBalance(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := paramInt64(c, "id")
		if !ok {
			return
		}

		user, err := users.GetByID(db, userID)
		if err != nil {
			respondError(c, err)
			return
		}

		history, err := ledger.History(db, userID, 10)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user_id": user.ID,
			"balance": user.Balance,
			"history": history,
		})
	}
}

// GetProfile returns the user's public profile and record.
func GetProfile(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := paramInt64(c, "id")
		if !ok {
			return
		}

		user, err := users.GetByID(db, userID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user_id":      user.ID,
			"display_name": user.DisplayName,
			"registered":   user.IsRegistered,
			"wins":         user.Wins,
			"losses":       user.Losses,
			"rating":       user.Rating,
		})
	}
}

// Register completes a user's registration with in-game name and phone.
func Register(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := paramInt64(c, "id")
		if !ok {
			return
		}

		var req struct {
			IngameName string `json:"ingame_name"`
			Phone      string `json:"phone"`
		}
		if err := c.BindJSON(&req); err != nil || strings.TrimSpace(req.IngameName) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ingame_name required"})
			return
		}

		user, err := users.CompleteRegistration(db, userID, strings.TrimSpace(req.IngameName), strings.TrimSpace(req.Phone), cfg.WelcomeBonus, cfg.ReferralBonus)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user_id":      user.ID,
			"display_name": user.DisplayName,
			"registered":   user.IsRegistered,
			"balance":      user.Balance,
		})
	}
}

// GetLeaderboard returns the top rated players.
func GetLeaderboard(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, _ := strconv.Atoi(c.DefaultQuery("n", "10"))
		rows, err := users.Leaderboard(db, n)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"leaderboard": rows})
	}
}

// GetRules returns the operator-editable rules text.
func GetRules(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		text, err := settings.Get(db, settings.KeyRulesText)
		if err != nil {
			text = "Rules have not been published yet."
		}
		c.JSON(http.StatusOK, gin.H{"rules": text})
	}
}
