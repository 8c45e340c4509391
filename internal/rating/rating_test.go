package rating

import "testing"

func TestUpdateEqualRatings(t *testing.T) {
	w, l := Update(1000, 1000)
	if w != 1016 {
		t.Errorf("winner rating: got %d, want 1016", w)
	}
	if l != 984 {
		t.Errorf("loser rating: got %d, want 984", l)
	}
}

func TestUpdateIsDeterministic(t *testing.T) {
	w1, l1 := Update(1200, 950)
	w2, l2 := Update(1200, 950)
	if w1 != w2 || l1 != l2 {
		t.Errorf("non-deterministic result: (%d,%d) vs (%d,%d)", w1, l1, w2, l2)
	}
}

func TestFavoriteGainsLessThanUnderdog(t *testing.T) {
	// A strong favorite beating an underdog should gain fewer points
	// than an underdog beating a favorite.
	favWin, _ := Update(1400, 1000)
	underdogWin, _ := Update(1000, 1400)

	favGain := favWin - 1400
	underdogGain := underdogWin - 1000

	if favGain >= underdogGain {
		t.Errorf("favorite gained %d, underdog gained %d; expected underdog to gain more", favGain, underdogGain)
	}
	if favGain < 1 {
		t.Errorf("winner should always gain at least a point with k=32, got %d", favGain)
	}
}

func TestUpdateUsesPreMatchRatingsForBothSides(t *testing.T) {
	// Winner delta and loser delta must mirror each other when both
	// are computed from the same pre-match pair.
	w, l := Update(1000, 1000)
	if (w - 1000) != (1000 - l) {
		t.Errorf("deltas not symmetric at equal ratings: winner %+d, loser %+d", w-1000, l-1000)
	}
}

func TestUpdateKZeroFactor(t *testing.T) {
	w, l := UpdateK(1100, 900, 0)
	if w != 1100 || l != 900 {
		t.Errorf("k=0 should leave ratings unchanged, got (%d,%d)", w, l)
	}
}
