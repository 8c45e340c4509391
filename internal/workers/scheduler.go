package workers

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/xefootball/backend/internal/config"
	"github.com/xefootball/backend/internal/match"
	"github.com/xefootball/backend/internal/matchmaking"
)

// StartScheduler runs the background sweeps: overdue match expiry and
// stale queue entry cleanup. Returns the scheduler so the caller can
// shut it down.
func StartScheduler(cfg *config.Config, matches *match.Service, queue *matchmaking.Service) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	// Every minute: cancel and refund matches stuck past the timeout.
	// The in-process timers already cover this for matches started in
	// this process; the sweep catches matches orphaned by a restart.
	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			matches.ExpireOverdue(ctx)
		}),
	)
	if err != nil {
		return nil, err
	}

	// Every minute: drop queue entries nobody matched in time.
	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			queue.ExpireStale(ctx, time.Duration(cfg.QueueExpiryMin)*time.Minute)
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	log.Printf("[Scheduler] Background sweeps started")
	return sched, nil
}
