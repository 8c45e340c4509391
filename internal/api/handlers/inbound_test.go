package handlers

import "testing"

func TestDepositPattern(t *testing.T) {
	tests := []struct {
		text       string
		wantTxID   string
		wantAmount string
	}{
		{"TX8843QZ 500", "TX8843QZ", "500"},
		{"8843 250.50", "8843", "250.50"},
		{"abc123 99.9", "abc123", "99.9"},
		{"ref 100.123", "", ""}, // more than 2 decimal places
		{"TX8843QZ", "", ""},
		{"TX 8843 500", "", ""},
		{"hello world", "", ""},
		{"500", "", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		m := depositPattern.FindStringSubmatch(tt.text)
		if tt.wantTxID == "" {
			if m != nil {
				t.Errorf("%q: expected no match, got %v", tt.text, m)
			}
			continue
		}
		if m == nil {
			t.Errorf("%q: expected match", tt.text)
			continue
		}
		if m[1] != tt.wantTxID || m[2] != tt.wantAmount {
			t.Errorf("%q: got (%s, %s), want (%s, %s)", tt.text, m[1], m[2], tt.wantTxID, tt.wantAmount)
		}
	}
}
