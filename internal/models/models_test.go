package models

import (
	"database/sql"
	"testing"
)

func TestMatchParticipants(t *testing.T) {
	m := &Match{ID: "m1", Player1ID: 10, Player2ID: 20}

	if !m.HasParticipant(10) || !m.HasParticipant(20) {
		t.Error("both players must be participants")
	}
	if m.HasParticipant(30) {
		t.Error("user 30 is not a participant")
	}

	if got := m.OpponentOf(10); got != 20 {
		t.Errorf("OpponentOf(10) = %d, want 20", got)
	}
	if got := m.OpponentOf(20); got != 10 {
		t.Errorf("OpponentOf(20) = %d, want 10", got)
	}
	if got := m.OpponentOf(30); got != 0 {
		t.Errorf("OpponentOf(30) = %d, want 0", got)
	}
}

func TestMatchReviewEligible(t *testing.T) {
	m := &Match{ID: "m1", Player1ID: 10, Player2ID: 20}
	if m.ReviewEligible() {
		t.Error("no evidence yet, must not be review eligible")
	}

	m.Evidence1 = sql.NullString{String: "file1", Valid: true}
	if m.ReviewEligible() {
		t.Error("one screenshot is not enough for review")
	}

	m.Evidence2 = sql.NullString{String: "file2", Valid: true}
	if !m.ReviewEligible() {
		t.Error("both screenshots present, match should be review eligible")
	}
}
