package match

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/xefootball/backend/internal/config"
	"github.com/xefootball/backend/internal/errs"
	"github.com/xefootball/backend/internal/ledger"
	"github.com/xefootball/backend/internal/models"
	"github.com/xefootball/backend/internal/notify"
	"github.com/xefootball/backend/internal/rating"
	"github.com/xefootball/backend/internal/session"
)

const matchColumns = `match_id, player1_id, player2_id, fee, status, room_code,
	p1_evidence_ref, p2_evidence_ref, winner_id, created_at, started_at, completed_at`

// Service owns the match state machine from room-code exchange through
// settlement. All transitions re-read status under a row lock; the
// status column is the single source of truth for which transitions
// are legal.
type Service struct {
	db       *sqlx.DB
	rdb      *redis.Client
	cfg      *config.Config
	sessions *session.Store

	timerMu sync.Mutex
	timers  map[string]*time.Timer
}

// NewService creates a match lifecycle service.
func NewService(db *sqlx.DB, rdb *redis.Client, cfg *config.Config, sessions *session.Store) *Service {
	return &Service{
		db:       db,
		rdb:      rdb,
		cfg:      cfg,
		sessions: sessions,
		timers:   make(map[string]*time.Timer),
	}
}

// Get fetches a match by id.
func (s *Service) Get(ctx context.Context, matchID string) (*models.Match, error) {
	var m models.Match
	err := s.db.GetContext(ctx, &m, `SELECT `+matchColumns+` FROM matches WHERE match_id=$1`, matchID)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// getForUpdate loads the match row locked for the duration of the tx.
// Serializes concurrent Resolve/Expire per match.
func getForUpdate(tx *sqlx.Tx, matchID string) (*models.Match, error) {
	var m models.Match
	err := tx.Get(&m, `SELECT `+matchColumns+` FROM matches WHERE match_id=$1 FOR UPDATE`, matchID)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SetRoomCode records the room code a participant created in the game
// client and moves the match to in_progress. Allowed only while
// waiting_for_code.
func (s *Service) SetRoomCode(ctx context.Context, matchID string, userID int64, code string) (*models.Match, error) {
	if code == "" || len(code) > 32 {
		return nil, errs.Validation("room_code", "must be 1-32 characters")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	m, err := getForUpdate(tx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.HasParticipant(userID) {
		return nil, errs.Validation("user_id", "not a participant of this match")
	}
	if m.Status != StatusWaitingForCode {
		return nil, errs.ErrStateConflict
	}

	if _, err := tx.Exec(`
		UPDATE matches SET room_code=$1, status=$2, started_at=NOW() WHERE match_id=$3
	`, code, StatusInProgress, matchID); err != nil {
		return nil, fmt.Errorf("set room code for match %s: %w", matchID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit room code for match %s: %w", matchID, err)
	}

	m.RoomCode = sql.NullString{String: code, Valid: true}
	m.Status = StatusInProgress
	log.Printf("[MATCH] Room code set: match=%s by=%d", matchID, userID)

	// Committed; everything below is best-effort.
	opponent := m.OpponentOf(userID)
	s.setEvidenceSessions(ctx, m)
	notify.SendMessage(ctx, userID, fmt.Sprintf("Room code %s shared. Play the match, then send your result screenshot here.", code))
	notify.SendMessage(ctx, opponent, fmt.Sprintf("Match started!\nRoom Code: %s\nPlay the match, then send your result screenshot here.", code))
	s.ScheduleExpiry(matchID, time.Duration(s.cfg.MatchTimeoutMin)*time.Minute)
	s.publish(ctx, "room_code_set", m)

	return m, nil
}

// SubmitEvidence records a participant's result screenshot reference.
// Once both slots are filled the match is surfaced to admins for a
// winner decision; eligibility is derived, no status change happens.
func (s *Service) SubmitEvidence(ctx context.Context, matchID string, userID int64, evidenceRef string) (*models.Match, error) {
	if evidenceRef == "" {
		return nil, errs.Validation("evidence_ref", "required")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	m, err := getForUpdate(tx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.HasParticipant(userID) {
		return nil, errs.Validation("user_id", "not a participant of this match")
	}
	if IsTerminal(m.Status) {
		return nil, errs.ErrStateConflict
	}

	column := "p1_evidence_ref"
	if userID == m.Player2ID {
		column = "p2_evidence_ref"
	}
	if _, err := tx.Exec(`UPDATE matches SET `+column+`=$1 WHERE match_id=$2`, evidenceRef, matchID); err != nil {
		return nil, fmt.Errorf("record evidence for match %s: %w", matchID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit evidence for match %s: %w", matchID, err)
	}

	if userID == m.Player1ID {
		m.Evidence1 = sql.NullString{String: evidenceRef, Valid: true}
	} else {
		m.Evidence2 = sql.NullString{String: evidenceRef, Valid: true}
	}
	log.Printf("[MATCH] Evidence submitted: match=%s by=%d both=%v", matchID, userID, m.ReviewEligible())

	if s.sessions != nil {
		if err := s.sessions.Clear(ctx, userID); err != nil {
			log.Printf("[MATCH] Failed to clear session for %d: %v", userID, err)
		}
	}
	if m.ReviewEligible() {
		s.surfaceForReview(ctx, m)
	}
	s.publish(ctx, "evidence_submitted", m)

	return m, nil
}

// checkResolvable is the settlement precondition: a terminal status is
// an ErrStateConflict (the match was already paid out or refunded, so
// a second resolve must have no effect), and the declared winner must
// play in the match.
func checkResolvable(m *models.Match, winnerID int64) error {
	if IsTerminal(m.Status) {
		return errs.ErrStateConflict
	}
	if !m.HasParticipant(winnerID) {
		return errs.Validation("winner_id", "not a participant of this match")
	}
	return nil
}

// Resolve settles the match: ratings, win/loss counters, winner payout
// and house rake, all in one transaction keyed on the status check.
func (s *Service) Resolve(ctx context.Context, matchID string, winnerID int64) (*models.Match, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	m, err := getForUpdate(tx, matchID)
	if err != nil {
		return nil, err
	}
	if err := checkResolvable(m, winnerID); err != nil {
		return nil, err
	}
	loserID := m.OpponentOf(winnerID)

	// Lock both user rows; pre-match ratings feed both updates.
	var players []struct {
		UserID int64 `db:"user_id"`
		Rating int   `db:"rating"`
	}
	if err := tx.Select(&players, `
		SELECT user_id, rating FROM users WHERE user_id IN ($1, $2) ORDER BY user_id FOR UPDATE
	`, winnerID, loserID); err != nil {
		return nil, fmt.Errorf("lock players for match %s: %w", matchID, err)
	}
	if len(players) != 2 {
		return nil, errs.ErrNotFound
	}

	winnerRating, loserRating := players[0].Rating, players[1].Rating
	if players[0].UserID != winnerID {
		winnerRating, loserRating = players[1].Rating, players[0].Rating
	}
	newWinner, newLoser := rating.Update(winnerRating, loserRating)

	if _, err := tx.Exec(`UPDATE users SET rating=$1, wins=wins+1 WHERE user_id=$2`, newWinner, winnerID); err != nil {
		return nil, fmt.Errorf("update winner %d: %w", winnerID, err)
	}
	if _, err := tx.Exec(`UPDATE users SET rating=$1, losses=losses+1 WHERE user_id=$2`, newLoser, loserID); err != nil {
		return nil, fmt.Errorf("update loser %d: %w", loserID, err)
	}

	var winnings float64
	if m.Fee > 0 {
		var rake float64
		winnings, rake = PayoutSplit(m.Fee, s.cfg.RakePercent)
		note := fmt.Sprintf("match %s", matchID)
		if _, err := ledger.AdjustTx(tx, winnerID, winnings, ledger.KindMatchWin, note); err != nil {
			return nil, err
		}
		if _, err := ledger.HouseTx(tx, rake, ledger.KindRake, note); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(`
		UPDATE matches SET status=$1, winner_id=$2, completed_at=NOW() WHERE match_id=$3
	`, StatusCompleted, winnerID, matchID); err != nil {
		return nil, fmt.Errorf("complete match %s: %w", matchID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit resolve for match %s: %w", matchID, err)
	}

	m.Status = StatusCompleted
	m.WinnerID = sql.NullInt64{Int64: winnerID, Valid: true}
	log.Printf("[MATCH] Resolved: match=%s winner=%d loser=%d ratings=%d/%d payout=%.2f",
		matchID, winnerID, loserID, newWinner, newLoser, winnings)

	s.CancelExpiry(matchID)
	s.clearSessions(ctx, m)
	notify.SendMessage(ctx, winnerID, fmt.Sprintf("Congratulations, you won! New rating: %d", newWinner))
	notify.SendMessage(ctx, loserID, fmt.Sprintf("Match decided against you. New rating: %d", newLoser))
	s.publish(ctx, "resolved", m)

	return m, nil
}

// Cancel aborts a non-terminal match on user or admin request.
// Cancelling a terminal match is a StateConflict.
func (s *Service) Cancel(ctx context.Context, matchID string) error {
	cancelled, err := s.cancel(ctx, matchID, "cancelled")
	if err != nil {
		return err
	}
	if !cancelled {
		return errs.ErrStateConflict
	}
	return nil
}

// Expire is the fire-once timeout cancellation. A no-op (nil) when the
// match already reached a terminal state, so duplicate timers and
// sweeps are harmless.
func (s *Service) Expire(ctx context.Context, matchID string) error {
	_, err := s.cancel(ctx, matchID, "timed out")
	return err
}

func (s *Service) cancel(ctx context.Context, matchID, reason string) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	m, err := getForUpdate(tx, matchID)
	if err != nil {
		return false, err
	}
	if IsTerminal(m.Status) {
		return false, nil
	}

	// Stakes were debited at match creation; a cancelled match refunds
	// both sides in the same unit as the status change.
	if m.Fee > 0 {
		note := fmt.Sprintf("match %s %s", matchID, reason)
		if _, err := ledger.AdjustTx(tx, m.Player1ID, m.Fee, ledger.KindMatchRefund, note); err != nil {
			return false, err
		}
		if _, err := ledger.AdjustTx(tx, m.Player2ID, m.Fee, ledger.KindMatchRefund, note); err != nil {
			return false, err
		}
	}

	if _, err := tx.Exec(`
		UPDATE matches SET status=$1, completed_at=NOW() WHERE match_id=$2
	`, StatusCancelled, matchID); err != nil {
		return false, fmt.Errorf("cancel match %s: %w", matchID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit cancel for match %s: %w", matchID, err)
	}

	m.Status = StatusCancelled
	log.Printf("[MATCH] Cancelled: match=%s reason=%s", matchID, reason)

	s.CancelExpiry(matchID)
	s.clearSessions(ctx, m)
	msg := fmt.Sprintf("Match %s was %s. Your entry fee has been refunded.", matchID, reason)
	notify.SendMessage(ctx, m.Player1ID, msg)
	notify.SendMessage(ctx, m.Player2ID, msg)
	s.publish(ctx, "cancelled", m)

	return true, nil
}

// ExpireOverdue cancels every match that sat in a non-terminal state
// past the grace period. Backstop for per-match timers lost on restart.
func (s *Service) ExpireOverdue(ctx context.Context) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT match_id FROM matches
		WHERE (status = $1 AND created_at < NOW() - make_interval(mins => $3))
		   OR (status = $2 AND started_at < NOW() - make_interval(mins => $3))
	`, StatusWaitingForCode, StatusInProgress, s.cfg.MatchTimeoutMin)
	if err != nil {
		log.Printf("[MATCH] Overdue scan failed: %v", err)
		return
	}

	for _, id := range ids {
		if err := s.Expire(ctx, id); err != nil {
			log.Printf("[MATCH] Failed to expire match %s: %v", id, err)
		}
	}
	if len(ids) > 0 {
		log.Printf("[MATCH] Expired %d overdue matches", len(ids))
	}
}

// ScheduleExpiry arms the fire-once timeout for a match. Rearming
// replaces the previous timer.
func (s *Service) ScheduleExpiry(matchID string, d time.Duration) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if t, ok := s.timers[matchID]; ok {
		t.Stop()
	}
	s.timers[matchID] = time.AfterFunc(d, func() {
		s.timerMu.Lock()
		delete(s.timers, matchID)
		s.timerMu.Unlock()

		if err := s.Expire(context.Background(), matchID); err != nil {
			log.Printf("[MATCH] Timeout expiry failed for match %s: %v", matchID, err)
		}
	})
}

// CancelExpiry disarms a pending timeout, idempotently.
func (s *Service) CancelExpiry(matchID string) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if t, ok := s.timers[matchID]; ok {
		t.Stop()
		delete(s.timers, matchID)
	}
}

func (s *Service) setEvidenceSessions(ctx context.Context, m *models.Match) {
	if s.sessions == nil {
		return
	}
	for _, uid := range []int64{m.Player1ID, m.Player2ID} {
		err := s.sessions.Set(ctx, uid, session.State{Kind: session.KindAwaitingEvidence, MatchID: m.ID})
		if err != nil {
			log.Printf("[MATCH] Failed to set evidence session for %d: %v", uid, err)
		}
	}
}

func (s *Service) clearSessions(ctx context.Context, m *models.Match) {
	if s.sessions == nil {
		return
	}
	for _, uid := range []int64{m.Player1ID, m.Player2ID} {
		if err := s.sessions.Clear(ctx, uid); err != nil {
			log.Printf("[MATCH] Failed to clear session for %d: %v", uid, err)
		}
	}
}

// surfaceForReview pushes both evidence photos and a review prompt to
// every configured admin.
func (s *Service) surfaceForReview(ctx context.Context, m *models.Match) {
	for _, adminID := range s.cfg.AdminChatIDs {
		notify.SendMessage(ctx, adminID, fmt.Sprintf(
			"Match %s ready for review.\nPlayer 1: %d\nPlayer 2: %d\nFee: %.2f TK\nPick the winner via the admin panel.",
			m.ID, m.Player1ID, m.Player2ID, m.Fee))
		notify.SendPhoto(ctx, adminID, m.Evidence1.String, fmt.Sprintf("Match %s - Player 1 (%d)", m.ID, m.Player1ID))
		notify.SendPhoto(ctx, adminID, m.Evidence2.String, fmt.Sprintf("Match %s - Player 2 (%d)", m.ID, m.Player2ID))
	}
	log.Printf("[MATCH] Surfaced for review: match=%s", m.ID)
}
