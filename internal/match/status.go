package match

// Match statuses. Transitions only move forward; completed and
// cancelled are terminal and immutable.
const (
	StatusWaitingForCode = "waiting_for_code"
	StatusInProgress     = "in_progress"
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
)

// IsTerminal reports whether a status permits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// CanTransition reports whether the state machine allows moving from
// one status to another.
func CanTransition(from, to string) bool {
	switch from {
	case StatusWaitingForCode:
		return to == StatusInProgress || to == StatusCancelled || to == StatusCompleted
	case StatusInProgress:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

// PayoutSplit divides the pooled fees of a decided match into the
// winner's credit and the house rake.
func PayoutSplit(fee float64, rakePercent int) (winnings, rake float64) {
	pot := fee * 2
	rake = pot * float64(rakePercent) / 100
	winnings = pot - rake
	return winnings, rake
}
