package scheduler

import "testing"

func TestBusinessSpec(t *testing.T) {
	tests := []struct {
		collections int
		want        string
	}{
		{8, "@every 3h0m0s"},
		{24, "@every 1h0m0s"},
		{1, "@every 24h0m0s"},
		{7, "@every 3h25m0s"},
	}
	for _, tt := range tests {
		if got := businessSpec(tt.collections); got != tt.want {
			t.Errorf("businessSpec(%d) = %q, want %q", tt.collections, got, tt.want)
		}
	}
}
