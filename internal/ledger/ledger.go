package ledger

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/xefootball/backend/internal/errs"
	"github.com/xefootball/backend/internal/models"
)

// entry kinds
const (
	KindWelcomeBonus      = "welcome_bonus"
	KindReferralBonus     = "referral_bonus"
	KindMatchStake        = "match_stake"
	KindMatchWin          = "match_win"
	KindMatchRefund       = "match_refund"
	KindWithdrawalRequest = "withdrawal_request"
	KindDepositApproved   = "deposit_approved"
	KindRake              = "rake"
	KindAdminAdjust       = "admin_adjust"
)

// AdjustTx applies a signed balance adjustment and appends the ledger
// entry within the caller's transaction. The balance update and the
// entry are one atomic unit; committing one without the other is not
// possible. No overdraft check is performed here; callers verify
// sufficient balance before debiting.
func AdjustTx(tx *sqlx.Tx, userID int64, amount float64, kind, note string) (*models.LedgerEntry, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx is nil")
	}

	res, err := tx.Exec(`UPDATE users SET balance = balance + $1 WHERE user_id = $2`, amount, userID)
	if err != nil {
		return nil, fmt.Errorf("update balance for user %d: %w", userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, errs.ErrNotFound
	}

	var entry models.LedgerEntry
	err = tx.QueryRowx(`
		INSERT INTO ledger_entries (user_id, amount, kind, note, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, user_id, amount, kind, note, created_at
	`, userID, amount, kind, note).StructScan(&entry)
	if err != nil {
		return nil, fmt.Errorf("insert ledger entry for user %d: %w", userID, err)
	}

	log.Printf("[LEDGER] user=%d amount=%+.2f kind=%s note=%q", userID, amount, kind, note)
	return &entry, nil
}

// HouseTx appends a ledger entry that belongs to the house (NULL user),
// e.g. the rake retained from a match pot. No user balance changes.
func HouseTx(tx *sqlx.Tx, amount float64, kind, note string) (*models.LedgerEntry, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx is nil")
	}

	var entry models.LedgerEntry
	err := tx.QueryRowx(`
		INSERT INTO ledger_entries (user_id, amount, kind, note, created_at)
		VALUES (NULL, $1, $2, $3, NOW())
		RETURNING id, user_id, amount, kind, note, created_at
	`, amount, kind, note).StructScan(&entry)
	if err != nil {
		return nil, fmt.Errorf("insert house ledger entry: %w", err)
	}

	log.Printf("[LEDGER] house amount=%+.2f kind=%s note=%q", amount, kind, note)
	return &entry, nil
}

// Adjust is AdjustTx wrapped in its own transaction, for callers that
// have no surrounding state change of their own.
func Adjust(db *sqlx.DB, userID int64, amount float64, kind, note string) (*models.LedgerEntry, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}

	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("begin ledger tx: %w", err)
	}
	defer tx.Rollback()

	entry, err := AdjustTx(tx, userID, amount, kind, note)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ledger tx: %w", err)
	}
	return entry, nil
}

// Balance returns the user's current derived balance.
func Balance(db *sqlx.DB, userID int64) (float64, error) {
	var balance float64
	err := db.Get(&balance, `SELECT balance FROM users WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return 0, errs.ErrNotFound
	}
	return balance, err
}

// EntrySum recomputes a user's balance from their ledger entries. Used
// by admin reconciliation; must always equal the stored balance.
func EntrySum(db *sqlx.DB, userID int64) (float64, error) {
	var sum float64
	err := db.Get(&sum, `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE user_id = $1`, userID)
	return sum, err
}

// History returns a user's most recent ledger entries.
func History(db *sqlx.DB, userID int64, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []models.LedgerEntry
	err := db.Select(&entries, `
		SELECT id, user_id, amount, kind, note, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	return entries, err
}
