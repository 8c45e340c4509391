package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/xefootball/backend/internal/config"
	"github.com/xefootball/backend/internal/matchmaking"
	"github.com/xefootball/backend/internal/models"
	"github.com/xefootball/backend/internal/notify"
	"github.com/xefootball/backend/internal/session"
	"github.com/xefootball/backend/internal/settings"
	"github.com/xefootball/backend/internal/users"
)

func feeAllowed(cfg *config.Config, fee float64) bool {
	for _, f := range cfg.EntryFees {
		if f == fee {
			return true
		}
	}
	return false
}

// Play enters the caller into matchmaking at the chosen fee tier.
func Play(db *sqlx.DB, cfg *config.Config, queue *matchmaking.Service, sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID int64   `json:"user_id"`
			Fee    float64 `json:"fee"`
		}
		if err := c.BindJSON(&req); err != nil || req.UserID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and fee required"})
			return
		}

		if req.Fee == 0 {
			if !settings.GetBool(db, settings.KeyFreePlayStatus) {
				c.JSON(http.StatusForbidden, gin.H{"error": "free play is currently disabled"})
				return
			}
		} else if !feeAllowed(cfg, req.Fee) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("fee must be one of %v", cfg.EntryFees)})
			return
		}

		user, err := users.GetByID(db, req.UserID)
		if err != nil {
			respondError(c, err)
			return
		}

		res, err := queue.TryMatch(c.Request.Context(), user, req.Fee)
		if err != nil {
			respondError(c, err)
			return
		}

		if res.Enqueued {
			c.JSON(http.StatusOK, gin.H{
				"status":  "waiting",
				"message": "Waiting for an opponent. You will be notified when one joins.",
			})
			return
		}

		m := res.Match
		// Either participant may send the room code next.
		ctx := context.Background()
		for _, pid := range []int64{m.Player1ID, m.Player2ID} {
			if sessions != nil {
				if err := sessions.Set(ctx, pid, session.State{
					Kind:    session.KindAwaitingRoomCode,
					MatchID: m.ID,
				}); err != nil {
					respondError(c, err)
					return
				}
			}
		}
		go notifyMatched(m, user.DisplayName)

		c.JSON(http.StatusOK, gin.H{
			"status": "matched",
			"match": gin.H{
				"match_id":   m.ID,
				"player1_id": m.Player1ID,
				"player2_id": m.Player2ID,
				"fee":        m.Fee,
				"status":     m.Status,
			},
		})
	}
}

func notifyMatched(m *models.Match, joinerName string) {
	ctx := context.Background()
	text := fmt.Sprintf("Opponent found (%s)! Fee: %.0f. Create the room and send the room code here.", joinerName, m.Fee)
	notify.SendMessage(ctx, m.Player1ID, text)
	notify.SendMessage(ctx, m.Player2ID, fmt.Sprintf("Match created! Fee: %.0f. Create the room and send the room code here.", m.Fee))
}

// CancelPlay removes the caller from the matchmaking queue.
func CancelPlay(queue *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID int64 `json:"user_id"`
		}
		if err := c.BindJSON(&req); err != nil || req.UserID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
			return
		}

		if err := queue.Cancel(c.Request.Context(), req.UserID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
	}
}
