package rating

import "math"

// DefaultKFactor is the rating volatility used for all matches.
const DefaultKFactor = 32

// expectedScore is the logistic expected score of a player rated a
// against a player rated b.
func expectedScore(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// Update computes both players' new ratings from a decided match using
// the default K factor. Both sides are evaluated against the pre-match
// ratings; the winner's new rating never depends on the loser's new
// rating or vice versa.
func Update(winnerRating, loserRating int) (newWinner, newLoser int) {
	return UpdateK(winnerRating, loserRating, DefaultKFactor)
}

// UpdateK is Update with an explicit K factor.
func UpdateK(winnerRating, loserRating, kFactor int) (newWinner, newLoser int) {
	k := float64(kFactor)
	newWinner = int(math.Round(float64(winnerRating) + k*(1-expectedScore(winnerRating, loserRating))))
	newLoser = int(math.Round(float64(loserRating) + k*(0-expectedScore(loserRating, winnerRating))))
	return newWinner, newLoser
}
