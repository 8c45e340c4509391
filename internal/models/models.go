package models

import (
	"database/sql"
	"time"
)

// User represents a player account. Users are created on first contact
// with the chat transport and are never deleted.
type User struct {
	ID           int64          `db:"user_id" json:"user_id"`
	DisplayName  string         `db:"display_name" json:"display_name"`
	PhoneNumber  sql.NullString `db:"phone_number" json:"phone_number,omitempty"`
	IsRegistered bool           `db:"is_registered" json:"is_registered"`
	Balance      float64        `db:"balance" json:"balance"`
	WelcomeGiven bool           `db:"welcome_given" json:"welcome_given"`
	Wins         int            `db:"wins" json:"wins"`
	Losses       int            `db:"losses" json:"losses"`
	Rating       int            `db:"rating" json:"rating"`
	IsBanned     bool           `db:"is_banned" json:"is_banned"`
	ReferrerID   sql.NullInt64  `db:"referrer_id" json:"referrer_id,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// QueueEntry is the durable mirror of a player waiting in the
// matchmaking queue. One live row per waiting user.
type QueueEntry struct {
	UserID         int64         `db:"user_id" json:"user_id"`
	Fee            float64       `db:"fee" json:"fee"`
	JoinedAt       time.Time     `db:"joined_at" json:"joined_at"`
	LobbyMessageID sql.NullInt64 `db:"lobby_message_id" json:"lobby_message_id,omitempty"`
}

// Match represents a 1v1 wager match between two players.
type Match struct {
	ID          string         `db:"match_id" json:"match_id"`
	Player1ID   int64          `db:"player1_id" json:"player1_id"`
	Player2ID   int64          `db:"player2_id" json:"player2_id"`
	Fee         float64        `db:"fee" json:"fee"`
	Status      string         `db:"status" json:"status"`
	RoomCode    sql.NullString `db:"room_code" json:"room_code,omitempty"`
	Evidence1   sql.NullString `db:"p1_evidence_ref" json:"p1_evidence_ref,omitempty"`
	Evidence2   sql.NullString `db:"p2_evidence_ref" json:"p2_evidence_ref,omitempty"`
	WinnerID    sql.NullInt64  `db:"winner_id" json:"winner_id,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	StartedAt   sql.NullTime   `db:"started_at" json:"started_at,omitempty"`
	CompletedAt sql.NullTime   `db:"completed_at" json:"completed_at,omitempty"`
}

// HasParticipant reports whether the given user plays in this match.
func (m *Match) HasParticipant(userID int64) bool {
	return m.Player1ID == userID || m.Player2ID == userID
}

// OpponentOf returns the other participant's id, or 0 when the given
// user is not in this match.
func (m *Match) OpponentOf(userID int64) int64 {
	switch userID {
	case m.Player1ID:
		return m.Player2ID
	case m.Player2ID:
		return m.Player1ID
	}
	return 0
}

// ReviewEligible reports whether both evidence slots are filled, i.e.
// the match can be surfaced to an admin for a winner decision.
func (m *Match) ReviewEligible() bool {
	return m.Evidence1.Valid && m.Evidence2.Valid
}

// LedgerEntry is an immutable balance-adjustment record. The sum of a
// user's entries reconstructs their balance. Entries with a NULL user
// belong to the house (rake).
type LedgerEntry struct {
	ID        int64         `db:"id" json:"id"`
	UserID    sql.NullInt64 `db:"user_id" json:"user_id,omitempty"`
	Amount    float64       `db:"amount" json:"amount"`
	Kind      string        `db:"kind" json:"kind"`
	Note      string        `db:"note" json:"note,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// DepositRequest is an append-only deposit intake record; settlement
// happens manually outside this system.
type DepositRequest struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	TxID      string    `db:"txid" json:"txid"`
	Amount    float64   `db:"amount" json:"amount"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// WithdrawalRequest is an append-only withdrawal intake record. The
// requested amount is held via a negative ledger entry at intake time.
type WithdrawalRequest struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	Amount        float64   `db:"amount" json:"amount"`
	Method        string    `db:"method" json:"method"`
	AccountNumber string    `db:"account_number" json:"account_number"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Setting is a key-value configuration row (rules text, feature toggles).
type Setting struct {
	Key   string `db:"key" json:"key"`
	Value string `db:"value" json:"value"`
}

// AdminAccount is a privileged operator account.
type AdminAccount struct {
	Username   string    `db:"username" json:"username"`
	SecretHash string    `db:"secret_hash" json:"-"`
	ChatID     int64     `db:"chat_id" json:"chat_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// AdminAudit records a single privileged action.
type AdminAudit struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	IP        string    `db:"ip" json:"ip"`
	Route     string    `db:"route" json:"route"`
	Action    string    `db:"action" json:"action"`
	Details   []byte    `db:"details" json:"details"`
	Success   bool      `db:"success" json:"success"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
