package users

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/xefootball/backend/internal/errs"
	"github.com/xefootball/backend/internal/ledger"
	"github.com/xefootball/backend/internal/models"
)

const userColumns = `user_id, display_name, phone_number, is_registered, balance,
	welcome_given, wins, losses, rating, is_banned, referrer_id, created_at`

// GetByID fetches a user, returning ErrNotFound for unknown ids.
func GetByID(db *sqlx.DB, userID int64) (*models.User, error) {
	var u models.User
	err := db.Get(&u, `SELECT `+userColumns+` FROM users WHERE user_id=$1`, userID)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetOrCreate fetches the user, creating a bare record on first
// contact. referrerID of 0 means no referrer.
func GetOrCreate(db *sqlx.DB, userID int64, displayName string, referrerID int64) (*models.User, error) {
	u, err := GetByID(db, userID)
	if err == nil {
		return u, nil
	}
	if err != errs.ErrNotFound {
		return nil, err
	}

	_, err = db.Exec(`
		INSERT INTO users (user_id, display_name, referrer_id, rating, created_at)
		VALUES ($1, $2, $3, 1000, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, userID, displayName, nullableID(referrerID))
	if err != nil {
		return nil, fmt.Errorf("create user %d: %w", userID, err)
	}

	return GetByID(db, userID)
}

// CompleteRegistration is called by the external onboarding flow once
// it has collected name and phone. Grants the one-time welcome bonus
// and the referrer's bonus through the ledger.
func CompleteRegistration(db *sqlx.DB, userID int64, ingameName, phone string, welcomeBonus, referralBonus float64) (*models.User, error) {
	u, err := GetByID(db, userID)
	if err != nil {
		return nil, err
	}
	if u.IsBanned {
		return nil, errs.Validation("user", "account is banned")
	}

	_, err = db.Exec(`
		UPDATE users SET display_name=$1, phone_number=$2, is_registered=true
		WHERE user_id=$3
	`, ingameName, phone, userID)
	if err != nil {
		return nil, fmt.Errorf("register user %d: %w", userID, err)
	}

	if !u.WelcomeGiven && welcomeBonus > 0 {
		if err := grantWelcomeBonus(db, userID, welcomeBonus); err != nil {
			log.Printf("[USERS] Failed to grant welcome bonus to %d: %v", userID, err)
		}
	}

	if u.ReferrerID.Valid && referralBonus > 0 {
		note := fmt.Sprintf("referral of user %d", userID)
		if _, err := ledger.Adjust(db, u.ReferrerID.Int64, referralBonus, ledger.KindReferralBonus, note); err != nil {
			log.Printf("[USERS] Failed to grant referral bonus to %d: %v", u.ReferrerID.Int64, err)
		}
	}

	return GetByID(db, userID)
}

// grantWelcomeBonus credits the one-time bonus. The flag flip and the
// ledger credit share one transaction, with the conditional update as
// the guard: whoever flips welcome_given first is the only caller that
// credits, so retries and crashes cannot pay twice.
func grantWelcomeBonus(db *sqlx.DB, userID int64, amount float64) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("begin welcome bonus tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE users SET welcome_given=true
		WHERE user_id=$1 AND welcome_given=false
	`, userID)
	if err != nil {
		return fmt.Errorf("mark welcome bonus for %d: %w", userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Already granted.
		return nil
	}

	if _, err := ledger.AdjustTx(tx, userID, amount, ledger.KindWelcomeBonus, "registration welcome bonus"); err != nil {
		return err
	}
	return tx.Commit()
}

// SetBanned flips the ban flag. Banned users are rejected at every
// entry point before any state mutation.
func SetBanned(db *sqlx.DB, userID int64, banned bool) error {
	res, err := db.Exec(`UPDATE users SET is_banned=$1 WHERE user_id=$2`, banned, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// LeaderboardRow is one entry of the rating leaderboard.
type LeaderboardRow struct {
	DisplayName string `db:"display_name" json:"display_name"`
	Rating      int    `db:"rating" json:"rating"`
	Wins        int    `db:"wins" json:"wins"`
}

// Leaderboard returns the top n registered players by rating.
func Leaderboard(db *sqlx.DB, n int) ([]LeaderboardRow, error) {
	if n <= 0 || n > 100 {
		n = 10
	}
	var rows []LeaderboardRow
	err := db.Select(&rows, `
		SELECT display_name, rating, wins
		FROM users
		WHERE is_registered = true
		ORDER BY rating DESC, wins DESC
		LIMIT $1
	`, n)
	return rows, err
}

// AllRegisteredIDs returns every registered, unbanned user id (admin
// broadcast fan-out).
func AllRegisteredIDs(db *sqlx.DB) ([]int64, error) {
	var ids []int64
	err := db.Select(&ids, `SELECT user_id FROM users WHERE is_registered = true AND is_banned = false`)
	return ids, err
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
