package match

import (
	"testing"

	"github.com/xefootball/backend/internal/errs"
	"github.com/xefootball/backend/internal/models"
)

func TestCheckResolvable(t *testing.T) {
	mk := func(status string) *models.Match {
		return &models.Match{ID: "m1", Player1ID: 10, Player2ID: 20, Status: status}
	}

	cases := []struct {
		name     string
		m        *models.Match
		winnerID int64
		wantErr  error
		wantVal  bool
	}{
		{name: "fresh match, player 1 wins", m: mk(StatusWaitingForCode), winnerID: 10},
		{name: "in progress, player 2 wins", m: mk(StatusInProgress), winnerID: 20},
		{name: "already completed", m: mk(StatusCompleted), winnerID: 10, wantErr: errs.ErrStateConflict},
		{name: "already cancelled", m: mk(StatusCancelled), winnerID: 20, wantErr: errs.ErrStateConflict},
		{name: "winner not in match", m: mk(StatusInProgress), winnerID: 30, wantVal: true},
		{name: "terminal beats bad winner", m: mk(StatusCompleted), winnerID: 30, wantErr: errs.ErrStateConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkResolvable(tc.m, tc.winnerID)
			if tc.wantVal {
				if !errs.IsValidation(err) {
					t.Fatalf("got %v, want validation error", err)
				}
				return
			}
			if err != tc.wantErr {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

// A second settlement attempt on a decided match must be rejected
// before any money or rating moves.
func TestCheckResolvableBlocksDoubleSettlement(t *testing.T) {
	m := &models.Match{ID: "m2", Player1ID: 1, Player2ID: 2, Status: StatusInProgress, Fee: 50}

	if err := checkResolvable(m, 1); err != nil {
		t.Fatalf("first settlement check: %v", err)
	}
	m.Status = StatusCompleted

	if err := checkResolvable(m, 1); err != errs.ErrStateConflict {
		t.Errorf("same winner again: got %v, want ErrStateConflict", err)
	}
	if err := checkResolvable(m, 2); err != errs.ErrStateConflict {
		t.Errorf("other winner after settlement: got %v, want ErrStateConflict", err)
	}
}
