package admin

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/xefootball/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// GetAdminAccount retrieves an admin account by username
func GetAdminAccount(db *sqlx.DB, username string) (*models.AdminAccount, error) {
	var admin models.AdminAccount
	err := db.Get(&admin, `SELECT username, secret_hash, chat_id, created_at, updated_at FROM admin_accounts WHERE username=$1`, username)
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// VerifyAdminSecret checks if the provided secret matches the stored hash
func VerifyAdminSecret(hashedSecret, plainSecret string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(plainSecret))
	return err == nil
}

// CreateAdminAccount creates a new admin account (used for seeding/testing)
func CreateAdminAccount(db *sqlx.DB, username, plainSecret string, chatID int64) error {
	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(plainSecret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash secret: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO admin_accounts (username, secret_hash, chat_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (username) DO UPDATE SET
			secret_hash = EXCLUDED.secret_hash,
			chat_id = EXCLUDED.chat_id,
			updated_at = NOW()
	`, username, string(hashedSecret), chatID)

	return err
}

// ValidateCredentials validates a username + secret combination
func ValidateCredentials(db *sqlx.DB, username, secret string) (*models.AdminAccount, error) {
	admin, err := GetAdminAccount(db, username)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Printf("[ADMIN] No admin account found for username: %s", username)
			return nil, fmt.Errorf("admin account not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !VerifyAdminSecret(admin.SecretHash, secret) {
		log.Printf("[ADMIN] Secret verification failed for username: %s", username)
		return nil, fmt.Errorf("invalid credentials")
	}

	return admin, nil
}

// LogAdminAction records an admin action in the audit log
func LogAdminAction(db *sqlx.DB, username, ip, route, action string, details map[string]interface{}, success bool) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("Failed to marshal admin audit details: %v", err)
		detailsJSON = []byte("{}")
	}

	_, err = db.Exec(`
		INSERT INTO admin_audit (username, ip, route, action, details, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, username, ip, route, action, detailsJSON, success)

	if err != nil {
		log.Printf("Failed to log admin action: %v", err)
	}

	return err
}

// GetAuditLogs retrieves recent admin audit logs with pagination
func GetAuditLogs(db *sqlx.DB, limit, offset int) ([]models.AdminAudit, error) {
	var logs []models.AdminAudit
	query := `
		SELECT id, username, ip, route, action, details, success, created_at
		FROM admin_audit
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	err := db.Select(&logs, query, limit, offset)
	return logs, err
}

// Stats is the operational snapshot served to admins.
type Stats struct {
	RegisteredUsers    int             `json:"registered_users"`
	ActiveMatches      int             `json:"active_matches"`
	CompletedMatches   int             `json:"completed_matches"`
	PendingDeposits    int             `json:"pending_deposits"`
	PendingWithdrawals int             `json:"pending_withdrawals"`
	QueueSizes         map[float64]int `json:"queue_sizes"`
}

// GetStats collects the counters behind the admin stats endpoint.
// QueueSizes is filled in by the caller from the live queue.
func GetStats(db *sqlx.DB) (*Stats, error) {
	var s Stats
	if err := db.Get(&s.RegisteredUsers, `SELECT COUNT(*) FROM users WHERE is_registered=TRUE`); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := db.Get(&s.ActiveMatches, `SELECT COUNT(*) FROM matches WHERE status IN ('waiting_for_code', 'in_progress')`); err != nil {
		return nil, fmt.Errorf("count active matches: %w", err)
	}
	if err := db.Get(&s.CompletedMatches, `SELECT COUNT(*) FROM matches WHERE status='completed'`); err != nil {
		return nil, fmt.Errorf("count completed matches: %w", err)
	}
	if err := db.Get(&s.PendingDeposits, `SELECT COUNT(*) FROM deposit_requests WHERE status='pending'`); err != nil {
		return nil, fmt.Errorf("count pending deposits: %w", err)
	}
	if err := db.Get(&s.PendingWithdrawals, `SELECT COUNT(*) FROM withdrawal_requests WHERE status='pending'`); err != nil {
		return nil, fmt.Errorf("count pending withdrawals: %w", err)
	}
	return &s, nil
}
