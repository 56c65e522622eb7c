package tokens

import "testing"

func TestConversionCost(t *testing.T) {
	tests := []struct {
		earnedToday int
		want        int64
	}{
		{0, 1000},
		{1, 1150},
		{2, 1322},
		{5, 2011},
		{9, 3517},
	}
	for _, tt := range tests {
		if got := ConversionCost(1000, 1.15, tt.earnedToday); got != tt.want {
			t.Errorf("ConversionCost(earned=%d) = %d, want %d", tt.earnedToday, got, tt.want)
		}
	}
}

func TestDecayAmount(t *testing.T) {
	tests := []struct {
		name   string
		tokens int
		want   int
	}{
		{"at soft cap no decay", 50, 0},
		{"below soft cap no decay", 10, 0},
		{"just above soft cap decays at least one", 51, 1},
		{"above soft cap fractional rounds up to one", 70, 1},
		{"above soft cap", 90, 2},
		{"at hard cap full-balance rate", 100, 10},
		{"above hard cap", 120, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecayAmount(tt.tokens, 50, 100, 0.10, 0.05); got != tt.want {
				t.Errorf("DecayAmount(%d) = %d, want %d", tt.tokens, got, tt.want)
			}
		})
	}
}
