package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xefootball/backend/internal/errs"
)

// Kind identifies which input the user's next free-text message
// satisfies. Each kind carries its own typed payload fields on State;
// there is no opaque string blob.
type Kind string

const (
	KindAwaitingRoomCode        Kind = "awaiting_room_code"
	KindAwaitingEvidence        Kind = "awaiting_evidence"
	KindAwaitingWithdrawAmount  Kind = "awaiting_withdraw_amount"
	KindAwaitingWithdrawMethod  Kind = "awaiting_withdraw_method"
	KindAwaitingWithdrawAccount Kind = "awaiting_withdraw_account"
)

// State is the per-user pointer describing the pending input. One
// active state per user, overwritten on each transition.
type State struct {
	Kind           Kind      `json:"kind"`
	MatchID        string    `json:"match_id,omitempty"`
	WithdrawAmount float64   `json:"withdraw_amount,omitempty"`
	WithdrawMethod string    `json:"withdraw_method,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks that the payload fields required by the kind are set.
func (s State) Validate() error {
	switch s.Kind {
	case KindAwaitingRoomCode, KindAwaitingEvidence:
		if s.MatchID == "" {
			return errs.Validation("match_id", "required for "+string(s.Kind))
		}
	case KindAwaitingWithdrawMethod:
		if s.WithdrawAmount <= 0 {
			return errs.Validation("withdraw_amount", "required for "+string(s.Kind))
		}
	case KindAwaitingWithdrawAccount:
		if s.WithdrawAmount <= 0 {
			return errs.Validation("withdraw_amount", "required for "+string(s.Kind))
		}
		if s.WithdrawMethod == "" {
			return errs.Validation("withdraw_method", "required for "+string(s.Kind))
		}
	case KindAwaitingWithdrawAmount:
		// no payload
	default:
		return errs.Validation("kind", "unknown session kind "+string(s.Kind))
	}
	return nil
}

// Store keeps session states in Redis with a TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a session store. ttl bounds how long a pending
// input prompt stays routable.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("session:%d", userID)
}

// Set overwrites the user's pending-input state.
func (s *Store) Set(ctx context.Context, userID int64, state State) error {
	if err := state.Validate(); err != nil {
		return err
	}
	state.UpdatedAt = time.Now()

	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, sessionKey(userID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session for user %d: %w", userID, err)
	}
	return nil
}

// Get returns the user's pending-input state, or (nil, nil) when no
// input is expected.
func (s *Store) Get(ctx context.Context, userID int64) (*State, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session for user %d: %w", userID, err)
	}

	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		// A corrupt state is unrecoverable; drop it rather than wedge
		// the user's input routing.
		log.Printf("[SESSION] Dropping corrupt state for user %d: %v", userID, err)
		s.rdb.Del(ctx, sessionKey(userID))
		return nil, nil
	}
	return &state, nil
}

// Clear removes the user's pending-input state, idempotently.
func (s *Store) Clear(ctx context.Context, userID int64) error {
	return s.rdb.Del(ctx, sessionKey(userID)).Err()
}
