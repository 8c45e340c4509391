package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xefootball/backend/internal/match"
)

// SetRoomCode records the friendly-room code and starts the match.
func SetRoomCode(matches *match.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID := c.Param("id")
		var req struct {
			UserID int64  `json:"user_id"`
			Code   string `json:"code"`
		}
		if err := c.BindJSON(&req); err != nil || req.UserID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and code required"})
			return
		}

		m, err := matches.SetRoomCode(c.Request.Context(), matchID, req.UserID, req.Code)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    m.Status,
			"match_id":  m.ID,
			"room_code": m.RoomCode.String,
		})
	}
}

// SubmitEvidence attaches a result screenshot reference for review.
func SubmitEvidence(matches *match.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID := c.Param("id")
		var req struct {
			UserID      int64  `json:"user_id"`
			EvidenceRef string `json:"evidence_ref"`
		}
		if err := c.BindJSON(&req); err != nil || req.UserID <= 0 || req.EvidenceRef == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and evidence_ref required"})
			return
		}

		m, err := matches.SubmitEvidence(c.Request.Context(), matchID, req.UserID, req.EvidenceRef)
		if err != nil {
			respondError(c, err)
			return
		}

		both := m.ReviewEligible()
		msg := "Evidence received. Waiting for your opponent's screenshot."
		if both {
			msg = "Evidence received. The match is now under review."
		}
		c.JSON(http.StatusOK, gin.H{
			"status":       m.Status,
			"match_id":     m.ID,
			"under_review": both,
			"message":      msg,
		})
	}
}

// GetMatch returns the current state of a match.
func GetMatch(matches *match.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := matches.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}
