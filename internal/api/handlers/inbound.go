package handlers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/xefootball/backend/internal/config"
	"github.com/xefootball/backend/internal/errs"
	"github.com/xefootball/backend/internal/match"
	"github.com/xefootball/backend/internal/models"
	"github.com/xefootball/backend/internal/notify"
	"github.com/xefootball/backend/internal/session"
	"github.com/xefootball/backend/internal/users"
	"github.com/xefootball/backend/internal/wallet"
)

// depositPattern matches "<transaction ref> <amount>" claims, e.g.
// "TX8843QZ 500" or "8843 250.50".
var depositPattern = regexp.MustCompile(`^([A-Za-z0-9]+)\s+(\d+(?:\.\d{1,2})?)$`)

// Inbound routes a free-text message from the chat gateway. The user's
// session state decides what the text means; without one, only the
// deposit claim pattern and the withdraw keyword are recognized.
func Inbound(db *sqlx.DB, cfg *config.Config, matches *match.Service, sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID        int64  `json:"user_id"`
			DisplayName   string `json:"display_name"`
			ReferrerID    int64  `json:"referrer_id"`
			Text          string `json:"text"`
			AttachmentRef string `json:"attachment_ref"`
		}
		if err := c.BindJSON(&req); err != nil || req.UserID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
			return
		}
		text := strings.TrimSpace(req.Text)

		user, err := users.GetOrCreate(db, req.UserID, req.DisplayName, req.ReferrerID)
		if err != nil {
			respondError(c, err)
			return
		}
		if user.IsBanned {
			// Banned users are silently ignored, no feedback channel.
			c.JSON(http.StatusOK, gin.H{"handled": false})
			return
		}

		ctx := c.Request.Context()
		state, err := sessions.Get(ctx, user.ID)
		if err != nil {
			respondError(c, err)
			return
		}

		if state != nil {
			handleSessionInput(c, db, cfg, matches, sessions, user, state, text, req.AttachmentRef)
			return
		}

		// No pending prompt: recognize stateless commands.
		if strings.EqualFold(text, "withdraw") {
			startWithdraw(c, cfg, sessions, user)
			return
		}
		if m := depositPattern.FindStringSubmatch(text); m != nil {
			handleDepositClaim(c, db, cfg, user, m[1], m[2])
			return
		}

		c.JSON(http.StatusOK, gin.H{"handled": false})
	}
}

func handleSessionInput(c *gin.Context, db *sqlx.DB, cfg *config.Config, matches *match.Service, sessions *session.Store, user *models.User, state *session.State, text, attachmentRef string) {
	ctx := c.Request.Context()

	switch state.Kind {
	case session.KindAwaitingRoomCode:
		m, err := matches.SetRoomCode(ctx, state.MatchID, user.ID, text)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"handled": true, "action": "room_code_set", "match_id": m.ID})

	case session.KindAwaitingEvidence:
		if attachmentRef == "" {
			c.JSON(http.StatusOK, gin.H{
				"handled": true,
				"action":  "prompt",
				"message": "Please send a screenshot of the final match result.",
			})
			return
		}
		m, err := matches.SubmitEvidence(ctx, state.MatchID, user.ID, attachmentRef)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"handled": true, "action": "evidence_submitted", "match_id": m.ID, "under_review": m.ReviewEligible()})

	case session.KindAwaitingWithdrawAmount:
		amount, err := strconv.ParseFloat(text, 64)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"handled": true, "action": "prompt", "message": "Please send the amount as a number."})
			return
		}
		if amount < cfg.MinWithdrawalAmount || amount > cfg.MaxAmount {
			c.JSON(http.StatusOK, gin.H{
				"handled": true,
				"action":  "prompt",
				"message": fmt.Sprintf("Amount must be between %.0f and %.0f.", cfg.MinWithdrawalAmount, cfg.MaxAmount),
			})
			return
		}
		if user.Balance < amount {
			sessions.Clear(ctx, user.ID)
			respondError(c, errs.ErrInsufficientFunds)
			return
		}
		if err := sessions.Set(ctx, user.ID, session.State{
			Kind:           session.KindAwaitingWithdrawMethod,
			WithdrawAmount: amount,
		}); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"handled": true, "action": "prompt", "message": "Which payout method? (e.g. bkash, nagad, rocket)"})

	case session.KindAwaitingWithdrawMethod:
		if text == "" {
			c.JSON(http.StatusOK, gin.H{"handled": true, "action": "prompt", "message": "Please name your payout method."})
			return
		}
		if err := sessions.Set(ctx, user.ID, session.State{
			Kind:           session.KindAwaitingWithdrawAccount,
			WithdrawAmount: state.WithdrawAmount,
			WithdrawMethod: text,
		}); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"handled": true, "action": "prompt", "message": "Send the account number to pay out to."})

	case session.KindAwaitingWithdrawAccount:
		if text == "" {
			c.JSON(http.StatusOK, gin.H{"handled": true, "action": "prompt", "message": "Please send the account number."})
			return
		}
		wreq, err := wallet.CreateWithdrawalRequest(ctx, db, user.ID, state.WithdrawAmount, state.WithdrawMethod, text)
		if err != nil {
			sessions.Clear(ctx, user.ID)
			respondError(c, err)
			return
		}
		sessions.Clear(ctx, user.ID)
		go notifyAdmins(cfg, fmt.Sprintf("Withdrawal request #%d: user %d, %.2f via %s to %s",
			wreq.ID, user.ID, wreq.Amount, wreq.Method, wreq.AccountNumber))
		c.JSON(http.StatusOK, gin.H{"handled": true, "action": "withdrawal_requested", "request_id": wreq.ID})

	default:
		// Unknown stale state, drop it.
		sessions.Clear(ctx, user.ID)
		c.JSON(http.StatusOK, gin.H{"handled": false})
	}
}

func startWithdraw(c *gin.Context, cfg *config.Config, sessions *session.Store, user *models.User) {
	ctx := c.Request.Context()
	if user.Balance < cfg.MinWithdrawalAmount {
		respondError(c, errs.ErrInsufficientFunds)
		return
	}
	if err := sessions.Set(ctx, user.ID, session.State{Kind: session.KindAwaitingWithdrawAmount}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"handled": true,
		"action":  "prompt",
		"message": fmt.Sprintf("How much do you want to withdraw? (min %.0f)", cfg.MinWithdrawalAmount),
	})
}

func handleDepositClaim(c *gin.Context, db *sqlx.DB, cfg *config.Config, user *models.User, txID, amountStr string) {
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"handled": false})
		return
	}
	if amount < cfg.MinDepositAmount || amount > cfg.MaxAmount {
		c.JSON(http.StatusOK, gin.H{
			"handled": true,
			"action":  "prompt",
			"message": fmt.Sprintf("Deposit amount must be between %.0f and %.0f.", cfg.MinDepositAmount, cfg.MaxAmount),
		})
		return
	}

	req, err := wallet.CreateDepositRequest(c.Request.Context(), db, user.ID, txID, amount)
	if err != nil {
		respondError(c, err)
		return
	}
	go notifyAdmins(cfg, fmt.Sprintf("Deposit claim #%d: user %d, txid %s, %.2f", req.ID, user.ID, req.TxID, req.Amount))
	c.JSON(http.StatusOK, gin.H{"handled": true, "action": "deposit_claimed", "request_id": req.ID})
}

func notifyAdmins(cfg *config.Config, text string) {
	ctx := context.Background()
	for _, chatID := range cfg.AdminChatIDs {
		notify.SendMessage(ctx, chatID, text)
	}
}
