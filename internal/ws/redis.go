package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/xefootball/backend/internal/match"
)

// StartEventSubscriber subscribes to the match event channel and fans
// each event out to the participants' WebSocket connections. Runs
// until ctx is cancelled.
func StartEventSubscriber(ctx context.Context, rdb *redis.Client, hub *Hub) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; event subscriber not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, match.EventChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Println("[WS] match event subscriber started")
		for msg := range ch {
			var event match.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[WS] invalid event payload: %v", err)
				continue
			}

			for _, userID := range event.UserIDs {
				hub.SendToUser(userID, event)
			}
		}
	}()
}
