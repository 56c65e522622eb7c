package gambling

import (
	"testing"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/pkg/models"
)

// Reel weights are [30,25,20,14,8,3] over a total of 100, so scripting
// Intn with cumulative offsets picks symbols directly: 0=cherry, 30=lemon,
// 55=bar, 75=bell, 89=seven, 97=diamond.

func TestSpinClassification(t *testing.T) {
	cases := []struct {
		name   string
		ints   []int
		floats []float64
		class  SpinClass
		payout int64 // for wager 100
	}{
		{"triple cherry", []int{0, 0, 0}, nil, SpinTriple, 200},
		{"triple seven", []int{89, 89, 89}, nil, SpinTriple, 1500},
		{"diamond triple is the jackpot", []int{97, 97, 97}, nil, SpinJackpot, 0},
		{"pair pays half extra", []int{0, 0, 30}, nil, SpinPair, 150},
		{"split pair still pairs", []int{0, 30, 0}, nil, SpinPair, 150},
		{"mixed reels lose", []int{0, 30, 55}, []float64{0.9}, SpinLoss, 0},
		{"side roll rescues a loss", []int{0, 30, 55}, []float64{0.00001}, SpinLuckyJackpot, 0},
	}
	for _, tc := range cases {
		rng := &scriptRNG{ints: tc.ints, floats: tc.floats}
		out := Spin(rng, models.TierRookie)
		if out.Class != tc.class {
			t.Errorf("%s: class = %d, want %d (symbols %v)", tc.name, out.Class, tc.class, out.Symbols)
			continue
		}
		if got := out.Payout(100); got != tc.payout {
			t.Errorf("%s: payout = %d, want %d", tc.name, got, tc.payout)
		}
	}
}

func TestSpinJackpotClassesPayNothingDirectly(t *testing.T) {
	out := SpinOutcome{Class: SpinJackpot}
	if out.Payout(1000) != 0 {
		t.Fatal("jackpot class must be paid from the pool, not the wager table")
	}
	if !out.JackpotWon() {
		t.Fatal("jackpot class must report JackpotWon")
	}
}

func TestSpinNeverPanicsAcrossTiers(t *testing.T) {
	rng := clock.NewRNG(11)
	tiers := []models.Tier{
		models.TierRookie, models.TierAssociate, models.TierSoldier,
		models.TierCaptain, models.TierUnderboss, models.TierKingpin,
	}
	for _, tier := range tiers {
		for i := 0; i < 200; i++ {
			out := Spin(rng, tier)
			for _, sym := range out.Symbols {
				if sym == "" {
					t.Fatalf("empty symbol at tier %s", tier)
				}
			}
		}
	}
}

func TestSettleStats(t *testing.T) {
	var st models.GamblingStats

	settleStats(&st, 100, 300) // win +200
	settleStats(&st, 100, 200) // win +100
	if st.GamesPlayed != 2 || st.GamesWon != 2 || st.CurrentStreak != 2 || st.BestStreak != 2 {
		t.Fatalf("after two wins: %+v", st)
	}
	if st.BiggestWin != 200 {
		t.Fatalf("biggest win = %d, want 200", st.BiggestWin)
	}

	settleStats(&st, 400, 0) // loss -400
	if st.CurrentStreak != 0 || st.BestStreak != 2 || st.BiggestLoss != 400 {
		t.Fatalf("after loss: %+v", st)
	}

	settleStats(&st, 100, 100) // push leaves the streak alone
	if st.GamesPlayed != 4 || st.GamesWon != 2 || st.CurrentStreak != 0 {
		t.Fatalf("after push: %+v", st)
	}
	if st.TotalWagered != 700 || st.TotalWon != 600 {
		t.Fatalf("totals = (%d, %d), want (700, 600)", st.TotalWagered, st.TotalWon)
	}
}
