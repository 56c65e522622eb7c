package cooldown

import "testing"

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{5, "5s"},
		{59, "59s"},
		{60, "1m00s"},
		{95, "1m35s"},
		{3600, "1h00m"},
		{5400, "1h30m"},
		{7321, "2h02m"},
	}
	for _, tt := range tests {
		if got := formatRemaining(tt.seconds); got != tt.want {
			t.Errorf("formatRemaining(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
