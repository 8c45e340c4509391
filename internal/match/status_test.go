package match

import "testing"

func TestTransitionOrder(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusWaitingForCode, StatusInProgress},
		{StatusWaitingForCode, StatusCancelled},
		{StatusWaitingForCode, StatusCompleted},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusCancelled},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	blocked := []struct{ from, to string }{
		{StatusCompleted, StatusCancelled},
		{StatusCompleted, StatusInProgress},
		{StatusCancelled, StatusCompleted},
		{StatusCancelled, StatusInProgress},
		{StatusInProgress, StatusWaitingForCode},
	}
	for _, tc := range blocked {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be blocked", tc.from, tc.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if IsTerminal(StatusWaitingForCode) || IsTerminal(StatusInProgress) {
		t.Error("active statuses must not be terminal")
	}
	if !IsTerminal(StatusCompleted) || !IsTerminal(StatusCancelled) {
		t.Error("completed and cancelled must be terminal")
	}
}

func TestPayoutSplit(t *testing.T) {
	winnings, rake := PayoutSplit(50, 10)
	if winnings != 90 {
		t.Errorf("winnings: got %.2f, want 90.00", winnings)
	}
	if rake != 10 {
		t.Errorf("rake: got %.2f, want 10.00", rake)
	}

	// Pot is always fully distributed between winner and house.
	for _, fee := range []float64{0, 20, 50, 100, 33.5} {
		w, r := PayoutSplit(fee, 10)
		if w+r != fee*2 {
			t.Errorf("fee %.2f: pot leak, winnings %.2f + rake %.2f != %.2f", fee, w, r, fee*2)
		}
	}
}

func TestPayoutSplitFreeMatch(t *testing.T) {
	winnings, rake := PayoutSplit(0, 10)
	if winnings != 0 || rake != 0 {
		t.Errorf("free match should move no money, got winnings=%.2f rake=%.2f", winnings, rake)
	}
}
