package settings

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/xefootball/backend/internal/errs"
	"github.com/xefootball/backend/internal/models"
)

// well-known keys
const (
	KeyFreePlayStatus = "free_play_status"
	KeyRulesText      = "rules_text"
)

// Get returns the value for key, or ErrNotFound.
func Get(db *sqlx.DB, key string) (string, error) {
	var value string
	err := db.Get(&value, `SELECT value FROM settings WHERE key = $1`, key)
	if err == sql.ErrNoRows {
		return "", errs.ErrNotFound
	}
	return value, err
}

// GetBool reports whether the setting is switched on. Missing keys
// read as off.
func GetBool(db *sqlx.DB, key string) bool {
	v, err := Get(db, key)
	if err != nil {
		return false
	}
	return v == "on" || v == "true" || v == "1"
}

// Set upserts a setting value.
func Set(db *sqlx.DB, key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	return err
}

// All returns every setting row, ordered by key.
func All(db *sqlx.DB) ([]models.Setting, error) {
	var out []models.Setting
	err := db.Select(&out, `SELECT key, value FROM settings ORDER BY key`)
	return out, err
}
