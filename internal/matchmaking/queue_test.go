package matchmaking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/xefootball/backend/internal/config"
	"github.com/xefootball/backend/internal/errs"
	"github.com/xefootball/backend/internal/models"
)

func testUser(id int64, balance float64) *models.User {
	return &models.User{
		ID:           id,
		DisplayName:  "player",
		IsRegistered: true,
		Balance:      balance,
		Rating:       1000,
	}
}

func newTestService() *Service {
	return NewService(nil, &config.Config{})
}

func TestTryMatchEnqueuesThenPairs(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	res, err := s.TryMatch(ctx, testUser(1, 100), 50)
	if err != nil {
		t.Fatalf("first TryMatch: %v", err)
	}
	if !res.Enqueued || res.Match != nil {
		t.Fatalf("expected first caller enqueued, got %+v", res)
	}
	if !s.InQueue(1) {
		t.Fatal("user 1 should be in queue")
	}

	res, err = s.TryMatch(ctx, testUser(2, 100), 50)
	if err != nil {
		t.Fatalf("second TryMatch: %v", err)
	}
	if res.Match == nil {
		t.Fatal("expected a match for the second caller")
	}
	if res.Match.Player1ID != 1 || res.Match.Player2ID != 2 {
		t.Errorf("unexpected pairing: %d vs %d", res.Match.Player1ID, res.Match.Player2ID)
	}
	if res.Match.Fee != 50 {
		t.Errorf("fee = %.2f, want 50", res.Match.Fee)
	}
	if s.InQueue(1) || s.InQueue(2) {
		t.Error("both users should have left the queue after pairing")
	}
}

func TestTryMatchFeeTiersDoNotMix(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.TryMatch(ctx, testUser(1, 100), 50); err != nil {
		t.Fatalf("enqueue at 50: %v", err)
	}
	res, err := s.TryMatch(ctx, testUser(2, 100), 20)
	if err != nil {
		t.Fatalf("enqueue at 20: %v", err)
	}
	if res.Match != nil {
		t.Fatal("users at different fee tiers must not be paired")
	}
	if !s.InQueue(1) || !s.InQueue(2) {
		t.Error("both users should remain queued at their own tiers")
	}
}

func TestTryMatchReplacesPriorEntry(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.TryMatch(ctx, testUser(1, 100), 50); err != nil {
		t.Fatalf("enqueue at 50: %v", err)
	}
	if _, err := s.TryMatch(ctx, testUser(1, 100), 20); err != nil {
		t.Fatalf("re-enter at 20: %v", err)
	}

	sizes := s.Sizes()
	if sizes[50] != 0 {
		t.Errorf("tier 50 size = %d, want 0 after re-entry", sizes[50])
	}
	if sizes[20] != 1 {
		t.Errorf("tier 20 size = %d, want 1", sizes[20])
	}

	// The stale 50-tier entry must not be matchable.
	res, err := s.TryMatch(ctx, testUser(2, 100), 50)
	if err != nil {
		t.Fatalf("TryMatch at 50: %v", err)
	}
	if res.Match != nil {
		t.Fatal("replaced entry was still paired")
	}
}

func TestTryMatchNeverPairsUserWithSelf(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.TryMatch(ctx, testUser(1, 100), 50); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	res, err := s.TryMatch(ctx, testUser(1, 100), 50)
	if err != nil {
		t.Fatalf("re-enter: %v", err)
	}
	if res.Match != nil {
		t.Fatal("user was paired against themselves")
	}
	if !res.Enqueued {
		t.Fatal("re-entering user should be queued again")
	}
}

func TestTryMatchRejections(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	banned := testUser(1, 100)
	banned.IsBanned = true
	if _, err := s.TryMatch(ctx, banned, 50); !errs.IsValidation(err) {
		t.Errorf("banned user: got %v, want validation error", err)
	}

	unregistered := testUser(2, 100)
	unregistered.IsRegistered = false
	if _, err := s.TryMatch(ctx, unregistered, 50); !errs.IsValidation(err) {
		t.Errorf("unregistered user: got %v, want validation error", err)
	}

	if _, err := s.TryMatch(ctx, testUser(3, 10), 50); err != errs.ErrInsufficientFunds {
		t.Errorf("short balance: got %v, want ErrInsufficientFunds", err)
	}

	if _, err := s.TryMatch(ctx, testUser(4, 100), -5); !errs.IsValidation(err) {
		t.Errorf("negative fee: got %v, want validation error", err)
	}

	if _, err := s.TryMatch(ctx, nil, 50); !errs.IsValidation(err) {
		t.Error("nil user should be rejected")
	}

	// None of the rejected callers may occupy a queue slot.
	if len(s.Sizes()) != 0 {
		t.Errorf("queue sizes = %v, want empty", s.Sizes())
	}
}

func TestTryMatchFreePlay(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.TryMatch(ctx, testUser(1, 0), 0); err != nil {
		t.Fatalf("free enqueue with zero balance: %v", err)
	}
	res, err := s.TryMatch(ctx, testUser(2, 0), 0)
	if err != nil {
		t.Fatalf("free pairing: %v", err)
	}
	if res.Match == nil || res.Match.Fee != 0 {
		t.Fatalf("expected a free match, got %+v", res)
	}
}

// A user already playing may neither queue again nor be paired into a
// second match.
func TestTryMatchRejectsActiveParticipant(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.TryMatch(ctx, testUser(1, 100), 50); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	res, err := s.TryMatch(ctx, testUser(2, 100), 50)
	if err != nil || res.Match == nil {
		t.Fatalf("pairing: res=%+v err=%v", res, err)
	}

	if _, err := s.TryMatch(ctx, testUser(1, 100), 50); err != errs.ErrStateConflict {
		t.Errorf("re-entry while playing: got %v, want ErrStateConflict", err)
	}
	if s.InQueue(1) {
		t.Error("playing user must not hold a queue slot")
	}

	// A fresh caller must queue rather than pick up the playing user.
	res, err = s.TryMatch(ctx, testUser(3, 100), 50)
	if err != nil {
		t.Fatalf("third caller: %v", err)
	}
	if res.Match != nil {
		t.Fatalf("third caller was paired with a playing user: %+v", res.Match)
	}
}

// A waiter who entered a match through another path is a stale entry;
// pairing must skip and remove them instead of double-booking.
func TestTryMatchSkipsWaiterWhoStartedPlaying(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.TryMatch(ctx, testUser(1, 100), 50); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	s.mu.Lock()
	s.active[1] = true
	s.mu.Unlock()

	res, err := s.TryMatch(ctx, testUser(2, 100), 50)
	if err != nil {
		t.Fatalf("TryMatch: %v", err)
	}
	if res.Match != nil {
		t.Fatalf("paired with a playing waiter: %+v", res.Match)
	}
	if !res.Enqueued {
		t.Error("caller should have been enqueued after the stale waiter was dropped")
	}
	if s.InQueue(1) {
		t.Error("playing waiter should have been removed from the queue")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if err := s.Cancel(ctx, 42); err != nil {
		t.Fatalf("cancel absent entry: %v", err)
	}

	if _, err := s.TryMatch(ctx, testUser(1, 100), 50); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := s.Cancel(ctx, 1); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if s.InQueue(1) {
		t.Error("user should have left the queue")
	}
	if err := s.Cancel(ctx, 1); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
}

func TestExpireStaleRemovesOldWaiters(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.TryMatch(ctx, testUser(1, 100), 50); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// Backdate the entry past the cutoff.
	tr := s.tier(50)
	tr.mu.Lock()
	tr.entries[0].JoinedAt = time.Now().Add(-time.Hour)
	tr.mu.Unlock()

	s.ExpireStale(ctx, 30*time.Minute)
	if s.InQueue(1) {
		t.Error("stale waiter should have been expired")
	}

	if _, err := s.TryMatch(ctx, testUser(2, 100), 50); err != nil {
		t.Fatalf("enqueue fresh: %v", err)
	}
	s.ExpireStale(ctx, 30*time.Minute)
	if !s.InQueue(2) {
		t.Error("fresh waiter must survive the sweep")
	}
}

// Concurrent pairing at one tier must never place a user in two
// matches or match a user with themselves.
func TestTryMatchConcurrent(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	const players = 40
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	matched := make(map[int64]int)

	for i := 1; i <= players; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			res, err := s.TryMatch(ctx, testUser(id, 100), 50)
			if err != nil {
				t.Errorf("TryMatch(%d): %v", id, err)
				return
			}
			if res.Match != nil {
				if res.Match.Player1ID == res.Match.Player2ID {
					t.Errorf("self-match for user %d", id)
				}
				mu.Lock()
				matched[res.Match.Player1ID]++
				matched[res.Match.Player2ID]++
				mu.Unlock()
			}
		}(int64(i))
	}
	wg.Wait()

	for id, n := range matched {
		if n > 1 {
			t.Errorf("user %d appears in %d matches", id, n)
		}
	}

	// Matched plus still-queued must account for every player.
	queued := 0
	for _, n := range s.Sizes() {
		queued += n
	}
	if len(matched)+queued != players {
		t.Errorf("matched=%d queued=%d, want total %d", len(matched), queued, players)
	}
}
