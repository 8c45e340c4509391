package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xefootball/backend/internal/errs"
	"github.com/xefootball/backend/internal/ledger"
	"github.com/xefootball/backend/internal/models"
)

// rowErr maps a missing row to ErrNotFound; any other fetch failure is
// a wrapped storage error, kept distinct so callers answer 404 only
// when the row truly does not exist.
func rowErr(err error, what string) error {
	if err == sql.ErrNoRows {
		return errs.ErrNotFound
	}
	return fmt.Errorf("fetch %s: %w", what, err)
}

// Deposit and withdrawal requests both settle out of band: an operator
// confirms money movement on the payment rail, then an admin action
// credits or releases the funds. This package only records intake.

// CreateDepositRequest records a claimed deposit for admin review. The
// balance is untouched until an admin approves.
func CreateDepositRequest(ctx context.Context, db *sqlx.DB, userID int64, txID string, amount float64) (*models.DepositRequest, error) {
	if txID == "" {
		return nil, errs.Validation("txid", "transaction reference is required")
	}
	if amount <= 0 {
		return nil, errs.Validation("amount", "must be positive")
	}

	req := &models.DepositRequest{
		UserID:    userID,
		TxID:      txID,
		Amount:    amount,
		Status:    "pending",
		CreatedAt: time.Now(),
	}
	err := db.QueryRowxContext(ctx, `
		INSERT INTO deposit_requests (user_id, txid, amount, status, created_at)
		VALUES ($1, $2, $3, 'pending', NOW())
		RETURNING id
	`, userID, txID, amount).Scan(&req.ID)
	if err != nil {
		return nil, fmt.Errorf("insert deposit request: %w", err)
	}
	return req, nil
}

// CreateWithdrawalRequest debits the user immediately and records a
// pending payout. Debiting up front means a user cannot stake funds
// they have already asked to withdraw.
func CreateWithdrawalRequest(ctx context.Context, db *sqlx.DB, userID int64, amount float64, method, account string) (*models.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, errs.Validation("amount", "must be positive")
	}
	if method == "" {
		return nil, errs.Validation("method", "payout method is required")
	}
	if account == "" {
		return nil, errs.Validation("account", "payout account is required")
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin withdrawal tx: %w", err)
	}
	defer tx.Rollback()

	var balance float64
	err = tx.Get(&balance, `SELECT balance FROM users WHERE user_id=$1 FOR UPDATE`, userID)
	if err != nil {
		return nil, rowErr(err, fmt.Sprintf("user %d", userID))
	}
	if balance < amount {
		return nil, errs.ErrInsufficientFunds
	}

	note := fmt.Sprintf("withdrawal via %s to %s", method, account)
	if _, err := ledger.AdjustTx(tx, userID, -amount, ledger.KindWithdrawalRequest, note); err != nil {
		return nil, err
	}

	req := &models.WithdrawalRequest{
		UserID:        userID,
		Amount:        amount,
		Method:        method,
		AccountNumber: account,
		Status:        "pending",
		CreatedAt:     time.Now(),
	}
	err = tx.QueryRowx(`
		INSERT INTO withdrawal_requests (user_id, amount, method, account_number, status, created_at)
		VALUES ($1, $2, $3, $4, 'pending', NOW())
		RETURNING id
	`, userID, amount, method, account).Scan(&req.ID)
	if err != nil {
		return nil, fmt.Errorf("insert withdrawal request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit withdrawal tx: %w", err)
	}
	return req, nil
}

// ApproveDeposit credits the user and marks the request settled.
func ApproveDeposit(ctx context.Context, db *sqlx.DB, requestID int64) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve tx: %w", err)
	}
	defer tx.Rollback()

	var req models.DepositRequest
	err = tx.Get(&req, `
		SELECT id, user_id, txid, amount, status, created_at
		FROM deposit_requests WHERE id=$1 FOR UPDATE
	`, requestID)
	if err != nil {
		return rowErr(err, fmt.Sprintf("deposit request %d", requestID))
	}
	if req.Status != "pending" {
		return errs.ErrStateConflict
	}

	note := fmt.Sprintf("deposit %s approved", req.TxID)
	if _, err := ledger.AdjustTx(tx, req.UserID, req.Amount, ledger.KindDepositApproved, note); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE deposit_requests SET status='approved', resolved_at=NOW() WHERE id=$1`, requestID); err != nil {
		return fmt.Errorf("mark deposit approved: %w", err)
	}
	return tx.Commit()
}

// RejectDeposit marks the request rejected without touching balances.
func RejectDeposit(ctx context.Context, db *sqlx.DB, requestID int64) error {
	res, err := db.ExecContext(ctx, `
		UPDATE deposit_requests SET status='rejected', resolved_at=NOW()
		WHERE id=$1 AND status='pending'
	`, requestID)
	if err != nil {
		return fmt.Errorf("reject deposit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// PendingCounts reports open deposit and withdrawal requests.
func PendingCounts(ctx context.Context, db *sqlx.DB) (deposits, withdrawals int, err error) {
	if err = db.GetContext(ctx, &deposits, `SELECT COUNT(*) FROM deposit_requests WHERE status='pending'`); err != nil {
		return 0, 0, fmt.Errorf("count pending deposits: %w", err)
	}
	if err = db.GetContext(ctx, &withdrawals, `SELECT COUNT(*) FROM withdrawal_requests WHERE status='pending'`); err != nil {
		return 0, 0, fmt.Errorf("count pending withdrawals: %w", err)
	}
	return deposits, withdrawals, nil
}
