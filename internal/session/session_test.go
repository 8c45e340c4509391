package session

import (
	"testing"
)

func TestStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		wantErr bool
	}{
		{"room code with match", State{Kind: KindAwaitingRoomCode, MatchID: "m1"}, false},
		{"room code without match", State{Kind: KindAwaitingRoomCode}, true},
		{"evidence with match", State{Kind: KindAwaitingEvidence, MatchID: "m1"}, false},
		{"evidence without match", State{Kind: KindAwaitingEvidence}, true},
		{"withdraw amount", State{Kind: KindAwaitingWithdrawAmount}, false},
		{"withdraw method with amount", State{Kind: KindAwaitingWithdrawMethod, WithdrawAmount: 100}, false},
		{"withdraw method without amount", State{Kind: KindAwaitingWithdrawMethod}, true},
		{"withdraw account complete", State{Kind: KindAwaitingWithdrawAccount, WithdrawAmount: 100, WithdrawMethod: "mobile"}, false},
		{"withdraw account without method", State{Kind: KindAwaitingWithdrawAccount, WithdrawAmount: 100}, true},
		{"withdraw account without amount", State{Kind: KindAwaitingWithdrawAccount, WithdrawMethod: "mobile"}, true},
		{"unknown kind", State{Kind: "telepathy"}, true},
		{"empty kind", State{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
