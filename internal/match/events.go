package match

import (
	"context"
	"encoding/json"
	"log"

	"github.com/xefootball/backend/internal/models"
)

// EventChannel is the Redis pub/sub channel carrying lifecycle events
// to the websocket feed.
const EventChannel = "match_events"

// Event is a lifecycle change broadcast to both participants.
type Event struct {
	Type     string  `json:"type"`
	MatchID  string  `json:"match_id"`
	Status   string  `json:"status"`
	UserIDs  []int64 `json:"user_ids"`
	RoomCode string  `json:"room_code,omitempty"`
	WinnerID int64   `json:"winner_id,omitempty"`
}

// publish fans a lifecycle event out over Redis. Best-effort: a failed
// publish never affects the committed state change that produced it.
func (s *Service) publish(ctx context.Context, eventType string, m *models.Match) {
	if s.rdb == nil {
		return
	}

	ev := Event{
		Type:    eventType,
		MatchID: m.ID,
		Status:  m.Status,
		UserIDs: []int64{m.Player1ID, m.Player2ID},
	}
	if m.RoomCode.Valid {
		ev.RoomCode = m.RoomCode.String
	}
	if m.WinnerID.Valid {
		ev.WinnerID = m.WinnerID.Int64
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[MATCH] Failed to marshal event: %v", err)
		return
	}
	if err := s.rdb.Publish(ctx, EventChannel, payload).Err(); err != nil {
		log.Printf("[MATCH] Failed to publish %s event for match %s: %v", eventType, m.ID, err)
	}
}
