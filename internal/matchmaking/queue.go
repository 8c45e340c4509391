package matchmaking

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/xefootball/backend/internal/config"
	"github.com/xefootball/backend/internal/errs"
	"github.com/xefootball/backend/internal/ledger"
	"github.com/xefootball/backend/internal/match"
	"github.com/xefootball/backend/internal/models"
	"github.com/xefootball/backend/internal/notify"
)

// Entry is a player waiting for an opponent at a fee tier.
type Entry struct {
	UserID         int64
	DisplayName    string
	Fee            float64
	JoinedAt       time.Time
	LobbyMessageID int64
}

// tier holds the waiters for one entry fee. Its mutex serializes every
// pairing decision at that fee, so two concurrent callers can never
// both claim the same waiter; unrelated fee tiers never block each
// other.
type tier struct {
	mu      sync.Mutex
	entries []Entry
}

// Service is the matchmaking queue. The in-memory tiers are the
// authoritative pairing state (pairing never waits on the database to
// find an opponent); queue_entries rows mirror them for rehydration
// after a restart.
type Service struct {
	db  *sqlx.DB
	cfg *config.Config

	mu       sync.Mutex
	tiers    map[float64]*tier
	userTier map[int64]float64

	// active mirrors "user participates in a non-terminal match" when
	// no database is attached. With a database the matches table is
	// authoritative and this map is unused.
	active map[int64]bool
}

// Result is the outcome of a TryMatch call.
type Result struct {
	Match    *models.Match
	Enqueued bool
}

// NewService creates a matchmaking service.
func NewService(db *sqlx.DB, cfg *config.Config) *Service {
	return &Service{
		db:       db,
		cfg:      cfg,
		tiers:    make(map[float64]*tier),
		userTier: make(map[int64]float64),
		active:   make(map[int64]bool),
	}
}

func (s *Service) tier(fee float64) *tier {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tiers[fee]
	if !ok {
		t = &tier{}
		s.tiers[fee] = t
	}
	return t
}

// TryMatch pairs the caller with any compatible waiter at the same fee
// tier, or enqueues them. Preconditions are checked before any state
// change: registered, not banned, balance covers the fee. Re-entering
// the queue replaces the prior entry.
func (s *Service) TryMatch(ctx context.Context, user *models.User, fee float64) (*Result, error) {
	if user == nil {
		return nil, errs.Validation("user", "unknown user")
	}
	if user.IsBanned {
		return nil, errs.Validation("user", "account is banned")
	}
	if !user.IsRegistered {
		return nil, errs.Validation("user", "registration required")
	}
	if fee < 0 {
		return nil, errs.Validation("fee", "must not be negative")
	}
	if fee > 0 && user.Balance < fee {
		return nil, errs.ErrInsufficientFunds
	}

	// One active match per user.
	active, err := s.hasActiveMatch(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, errs.ErrStateConflict
	}

	// Replace any prior entry (possibly at another tier) before taking
	// the pairing lock, so a user holds at most one queue slot.
	s.removeEntry(ctx, user.ID)

	t := s.tier(fee)
	t.mu.Lock()
	defer t.mu.Unlock()

	for len(t.entries) > 0 {
		idx := -1
		for i, e := range t.entries {
			if e.UserID != user.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		opponent := t.entries[idx]

		m, offenderID, err := s.createMatch(ctx, opponent.UserID, user.ID, fee)
		if (err == errs.ErrInsufficientFunds || err == errs.ErrStateConflict) && offenderID == opponent.UserID {
			// Waiter no longer qualifies (balance drained, or they got
			// paired elsewhere since they joined); drop the stale entry
			// and keep scanning.
			log.Printf("[QUEUE] Dropping waiter %d at fee %.2f: %v", opponent.UserID, fee, err)
			t.drop(idx)
			s.untrack(opponent.UserID)
			s.deleteQueueRow(opponent.UserID)
			s.retractLobbyPost(ctx, opponent.LobbyMessageID)
			if err == errs.ErrInsufficientFunds {
				notify.SendMessage(ctx, opponent.UserID, "You were removed from the queue: insufficient balance.")
			}
			continue
		}
		if err != nil {
			// Waiter stays queued; the caller's request fails closed.
			return nil, err
		}

		t.drop(idx)
		s.untrack(opponent.UserID)

		// Best-effort retraction of the waiter's lobby post; failure
		// never aborts the match.
		s.retractLobbyPost(ctx, opponent.LobbyMessageID)

		log.Printf("[QUEUE] Matched: %d vs %d (fee=%.2f match=%s)", opponent.UserID, user.ID, fee, m.ID)
		return &Result{Match: m}, nil
	}

	// No compatible waiter; enqueue the caller.
	entry := Entry{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Fee:         fee,
		JoinedAt:    time.Now(),
	}
	entry.LobbyMessageID = s.postLobbyMessage(ctx, user.DisplayName, fee)
	s.insertQueueRow(entry)

	t.entries = append(t.entries, entry)
	s.track(user.ID, fee)

	log.Printf("[QUEUE] Enqueued: user=%d fee=%.2f waiters=%d", user.ID, fee, len(t.entries))
	return &Result{Enqueued: true}, nil
}

// Cancel removes the user's queue entry, idempotently: cancelling an
// absent entry succeeds.
func (s *Service) Cancel(ctx context.Context, userID int64) error {
	s.removeEntry(ctx, userID)
	s.deleteQueueRow(userID)
	return nil
}

// InQueue reports whether the user currently waits at some tier.
func (s *Service) InQueue(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.userTier[userID]
	return ok
}

// Sizes returns the waiter count per fee tier (admin stats).
func (s *Service) Sizes() map[float64]int {
	s.mu.Lock()
	fees := make([]float64, 0, len(s.tiers))
	for fee := range s.tiers {
		fees = append(fees, fee)
	}
	s.mu.Unlock()

	out := make(map[float64]int, len(fees))
	for _, fee := range fees {
		t := s.tier(fee)
		t.mu.Lock()
		if n := len(t.entries); n > 0 {
			out[fee] = n
		}
		t.mu.Unlock()
	}
	return out
}

// Rehydrate reloads queue entries from the database after a restart.
func (s *Service) Rehydrate(ctx context.Context) error {
	if s.db == nil {
		return nil
	}

	var rows []models.QueueEntry
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT user_id, fee, joined_at, lobby_message_id FROM queue_entries ORDER BY joined_at
	`); err != nil {
		return fmt.Errorf("load queue entries: %w", err)
	}

	for _, row := range rows {
		t := s.tier(row.Fee)
		t.mu.Lock()
		t.entries = append(t.entries, Entry{
			UserID:         row.UserID,
			Fee:            row.Fee,
			JoinedAt:       row.JoinedAt,
			LobbyMessageID: row.LobbyMessageID.Int64,
		})
		s.track(row.UserID, row.Fee)
		t.mu.Unlock()
	}

	if len(rows) > 0 {
		log.Printf("[QUEUE] Rehydrated %d queue entries from DB", len(rows))
	}
	return nil
}

// ExpireStale removes waiters older than maxAge and tells them no
// opponent was found.
func (s *Service) ExpireStale(ctx context.Context, maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	fees := make([]float64, 0, len(s.tiers))
	for fee := range s.tiers {
		fees = append(fees, fee)
	}
	s.mu.Unlock()

	var expired []Entry
	for _, fee := range fees {
		t := s.tier(fee)
		t.mu.Lock()
		kept := t.entries[:0]
		for _, e := range t.entries {
			if e.JoinedAt.Before(cutoff) {
				expired = append(expired, e)
				s.untrack(e.UserID)
			} else {
				kept = append(kept, e)
			}
		}
		t.entries = kept
		t.mu.Unlock()
	}

	for _, e := range expired {
		s.deleteQueueRow(e.UserID)
		s.retractLobbyPost(ctx, e.LobbyMessageID)
		notify.SendMessage(ctx, e.UserID, "No opponent found in time. Your queue entry was removed; try again any time.")
	}
	if len(expired) > 0 {
		log.Printf("[QUEUE] Expired %d stale queue entries", len(expired))
	}
}

func (s *Service) hasActiveMatch(ctx context.Context, userID int64) (bool, error) {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.active[userID], nil
	}
	var active bool
	err := s.db.GetContext(ctx, &active, `
		SELECT EXISTS (
			SELECT 1 FROM matches
			WHERE (player1_id = $1 OR player2_id = $1)
			  AND status IN ($2, $3)
		)
	`, userID, match.StatusWaitingForCode, match.StatusInProgress)
	if err != nil {
		return false, fmt.Errorf("check active match for %d: %w", userID, err)
	}
	return active, nil
}

// createMatch is the atomic pairing commit: debit both stakes, create
// the match row and clear both queue rows in one transaction. The
// one-active-match rule is re-verified here, after the user rows are
// locked, because the caller's earlier check ran before the tier lock
// and a concurrent pairing may have slipped in between. When a
// participant disqualifies the pairing, the second return value names
// them.
func (s *Service) createMatch(ctx context.Context, player1ID, player2ID int64, fee float64) (*models.Match, int64, error) {
	m := &models.Match{
		ID:        uuid.NewString(),
		Player1ID: player1ID,
		Player2ID: player2ID,
		Fee:       fee,
		Status:    match.StatusWaitingForCode,
		CreatedAt: time.Now(),
	}

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, id := range []int64{player1ID, player2ID} {
			if s.active[id] {
				return nil, id, errs.ErrStateConflict
			}
		}
		s.active[player1ID] = true
		s.active[player2ID] = true
		return m, 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin match tx: %w", err)
	}
	defer tx.Rollback()

	// Lock both user rows in a stable order.
	var players []struct {
		UserID  int64   `db:"user_id"`
		Balance float64 `db:"balance"`
	}
	if err := tx.Select(&players, `
		SELECT user_id, balance FROM users WHERE user_id IN ($1, $2) ORDER BY user_id FOR UPDATE
	`, player1ID, player2ID); err != nil {
		return nil, 0, fmt.Errorf("lock players: %w", err)
	}
	if len(players) != 2 {
		return nil, 0, errs.ErrNotFound
	}

	for _, p := range players {
		var active bool
		if err := tx.Get(&active, `
			SELECT EXISTS (
				SELECT 1 FROM matches
				WHERE (player1_id = $1 OR player2_id = $1)
				  AND status IN ($2, $3)
			)
		`, p.UserID, match.StatusWaitingForCode, match.StatusInProgress); err != nil {
			return nil, 0, fmt.Errorf("recheck active match for %d: %w", p.UserID, err)
		}
		if active {
			return nil, p.UserID, errs.ErrStateConflict
		}
	}

	if fee > 0 {
		for _, p := range players {
			if p.Balance < fee {
				return nil, p.UserID, errs.ErrInsufficientFunds
			}
		}
		note := fmt.Sprintf("stake for match %s", m.ID)
		if _, err := ledger.AdjustTx(tx, player1ID, -fee, ledger.KindMatchStake, note); err != nil {
			return nil, 0, err
		}
		if _, err := ledger.AdjustTx(tx, player2ID, -fee, ledger.KindMatchStake, note); err != nil {
			return nil, 0, err
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO matches (match_id, player1_id, player2_id, fee, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, m.ID, player1ID, player2ID, fee, m.Status); err != nil {
		return nil, 0, fmt.Errorf("insert match: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM queue_entries WHERE user_id IN ($1, $2)`, player1ID, player2ID); err != nil {
		return nil, 0, fmt.Errorf("clear queue rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit match tx: %w", err)
	}
	return m, 0, nil
}

// removeEntry drops the user's in-memory entry wherever it is and
// retracts its lobby post.
func (s *Service) removeEntry(ctx context.Context, userID int64) {
	s.mu.Lock()
	fee, ok := s.userTier[userID]
	s.mu.Unlock()
	if !ok {
		return
	}

	t := s.tier(fee)
	t.mu.Lock()
	var lobbyMsgID int64
	for i, e := range t.entries {
		if e.UserID == userID {
			lobbyMsgID = e.LobbyMessageID
			t.drop(i)
			break
		}
	}
	s.untrack(userID)
	t.mu.Unlock()

	s.retractLobbyPost(ctx, lobbyMsgID)
}

func (t *tier) drop(i int) {
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
}

func (s *Service) track(userID int64, fee float64) {
	s.mu.Lock()
	s.userTier[userID] = fee
	s.mu.Unlock()
}

func (s *Service) untrack(userID int64) {
	s.mu.Lock()
	delete(s.userTier, userID)
	s.mu.Unlock()
}

// insertQueueRow mirrors an entry to the database, best-effort: the
// in-memory queue stays authoritative if the write fails.
func (s *Service) insertQueueRow(e Entry) {
	if s.db == nil {
		return
	}
	_, err := s.db.Exec(`
		INSERT INTO queue_entries (user_id, fee, joined_at, lobby_message_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			fee = EXCLUDED.fee,
			joined_at = EXCLUDED.joined_at,
			lobby_message_id = EXCLUDED.lobby_message_id
	`, e.UserID, e.Fee, e.JoinedAt, nullableMessageID(e.LobbyMessageID))
	if err != nil {
		log.Printf("[QUEUE] Failed to persist queue entry for %d: %v", e.UserID, err)
	}
}

func (s *Service) deleteQueueRow(userID int64) {
	if s.db == nil {
		return
	}
	if _, err := s.db.Exec(`DELETE FROM queue_entries WHERE user_id=$1`, userID); err != nil {
		log.Printf("[QUEUE] Failed to delete queue entry for %d: %v", userID, err)
	}
}

func nullableMessageID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

// postLobbyMessage announces the waiter on the public lobby channel
// and returns the message id used for later retraction. Best-effort.
func (s *Service) postLobbyMessage(ctx context.Context, displayName string, fee float64) int64 {
	if notify.Default == nil || s.cfg == nil || s.cfg.LobbyChannelID == 0 {
		return 0
	}
	text := fmt.Sprintf("New Match!\nPlayer: %s\nFee: %.0f TK", displayName, fee)
	msgID, err := notify.Default.SendChannelMessage(ctx, s.cfg.LobbyChannelID, text)
	if err != nil {
		log.Printf("[QUEUE] Failed to post lobby message: %v", err)
		return 0
	}
	return msgID
}

func (s *Service) retractLobbyPost(ctx context.Context, messageID int64) {
	if messageID == 0 || notify.Default == nil || s.cfg == nil || s.cfg.LobbyChannelID == 0 {
		return
	}
	if err := notify.Default.DeleteChannelMessage(ctx, s.cfg.LobbyChannelID, messageID); err != nil {
		log.Printf("[QUEUE] Failed to retract lobby post %d: %v", messageID, err)
	}
}
