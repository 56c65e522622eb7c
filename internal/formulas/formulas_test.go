package formulas

import (
	"math"
	"math/rand"
	"testing"

	"github.com/grindcity/economy-engine/pkg/models"
)

func TestXPForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int64
	}{
		{0, 0},
		{-3, 0},
		{1, 100},
		{2, 125},
		{3, 156},
		{10, 745},
	}

	for _, tt := range tests {
		if got := XPForLevel(tt.level); got != tt.want {
			t.Errorf("XPForLevel(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestLevelFromXP(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		want  int
	}{
		{"zero xp", 0, 1},
		{"just below level 2", 99, 1},
		{"exactly at threshold", 100, 2},
		{"middle of level 2", 200, 2},
		{"past level 2", 225, 3},
		{"negative clamps to 1", -50, 1},
		{"max safe json int clamps", 1<<53 - 1, 200},
		{"int64 max clamps", math.MaxInt64, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LevelFromXP(tt.total); got != tt.want {
				t.Errorf("LevelFromXP(%d) = %d, want %d", tt.total, got, tt.want)
			}
		})
	}
}

func TestLevelAndXPAgree(t *testing.T) {
	// Accumulating exactly the requirement for levels 1..n must land the
	// player on level n+1 for any n below the cap.
	var cum int64
	for lvl := 1; lvl < 30; lvl++ {
		cum += XPForLevel(lvl)
		if got := LevelFromXP(cum); got != lvl+1 {
			t.Fatalf("after paying for level %d (cum %d): LevelFromXP = %d, want %d", lvl, cum, got, lvl+1)
		}
	}
}

func TestTierForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  models.Tier
	}{
		{1, models.TierRookie},
		{19, models.TierRookie},
		{20, models.TierAssociate},
		{39, models.TierAssociate},
		{40, models.TierSoldier},
		{60, models.TierCaptain},
		{80, models.TierUnderboss},
		{99, models.TierUnderboss},
		{100, models.TierKingpin},
		{200, models.TierKingpin},
	}

	for _, tt := range tests {
		if got := TierForLevel(tt.level); got != tt.want {
			t.Errorf("TierForLevel(%d) = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestTierMultiplier(t *testing.T) {
	want := map[models.Tier]float64{
		models.TierRookie:    1.0,
		models.TierAssociate: 1.1,
		models.TierSoldier:   1.2,
		models.TierCaptain:   1.3,
		models.TierUnderboss: 1.4,
		models.TierKingpin:   1.5,
	}
	for tier, m := range want {
		if got := TierMultiplier(tier); got != m {
			t.Errorf("TierMultiplier(%s) = %v, want %v", tier, got, m)
		}
	}
}

func TestMaxBetForTier(t *testing.T) {
	if got := MaxBetForTier(5000, models.TierRookie); got != 5000 {
		t.Errorf("rookie max bet = %d", got)
	}
	if got := MaxBetForTier(5000, models.TierKingpin); got != 160000 {
		t.Errorf("kingpin max bet = %d", got)
	}
}

func TestRobSuccessRate(t *testing.T) {
	tests := []struct {
		name                      string
		attLevel, defLevel        int
		weapon, armor, atkB, defB float64
		want                      float64
	}{
		{"bare fists equal levels", 50, 50, 0, 0, 0, 0, 0.60},
		{"weapon edge over armor", 50, 50, 0.10, 0.05, 0, 0, 0.65},
		{"weapon capped at 15", 50, 50, 0.40, 0, 0, 0, 0.75},
		{"armor capped at 15", 50, 50, 0, 0.40, 0, 0, 0.45},
		{"level diff capped high", 200, 1, 0, 0, 0, 0, 0.70},
		{"level diff capped low", 1, 200, 0, 0, 0, 0, 0.50},
		{"everything clamps to ceiling", 200, 1, 0.15, 0, 0.30, 0, 0.85},
		{"everything clamps to floor", 1, 200, 0, 0.15, 0, 0.30, 0.45},
		{"faction bonuses additive", 50, 50, 0, 0, 0.05, 0.02, 0.63},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RobSuccessRate(tt.attLevel, tt.defLevel, tt.weapon, tt.armor, tt.atkB, tt.defB)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RobSuccessRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRobSuccessRateAlwaysClamped(t *testing.T) {
	levels := []int{1, 10, 50, 100, 200}
	bonuses := []float64{0, 0.05, 0.15, 0.50, 2.0}
	for _, al := range levels {
		for _, dl := range levels {
			for _, w := range bonuses {
				for _, a := range bonuses {
					got := RobSuccessRate(al, dl, w, a, 0, 0)
					if got < RobSuccessFloor || got > RobSuccessCeil {
						t.Fatalf("rate %v outside [%v, %v] for al=%d dl=%d w=%v a=%v",
							got, RobSuccessFloor, RobSuccessCeil, al, dl, w, a)
					}
				}
			}
		}
	}
}

func TestBailCost(t *testing.T) {
	tests := []struct {
		name    string
		wealth  int64
		minBail int64
		want    int64
	}{
		{"wealthy pays 10 percent", 100000, 500, 10000},
		{"floor applies", 6000, 500, 600},
		{"just above floor wealth", 5000, 500, 500},
		{"below minimum is free", 499, 500, 0},
		{"broke is free", 0, 500, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BailCost(tt.wealth, tt.minBail); got != tt.want {
				t.Errorf("BailCost(%d, %d) = %d, want %d", tt.wealth, tt.minBail, got, tt.want)
			}
		})
	}
}

func TestUniformIntBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		v := UniformInt(rng, 10, 25)
		if v < 10 || v > 25 {
			t.Fatalf("UniformInt out of range: %d", v)
		}
	}
	if got := UniformInt(rng, 9, 9); got != 9 {
		t.Errorf("degenerate range = %d, want 9", got)
	}
	if got := UniformInt(rng, 9, 3); got != 9 {
		t.Errorf("inverted range = %d, want lo", got)
	}
}

func TestDurabilityDecayRange(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		d := DurabilityDecay(rng, 2, 3)
		if d != 2 && d != 3 {
			t.Fatalf("decay %d outside [2,3]", d)
		}
		seen[d] = true
	}
	if !seen[2] || !seen[3] {
		t.Error("both decay values should occur over 500 samples")
	}
}

func TestWeightedIndex(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	counts := make([]int, 3)
	for i := 0; i < 6000; i++ {
		counts[WeightedIndex(rng, []int{1, 2, 3})]++
	}
	// Expect roughly 1000/2000/3000 draws.
	if counts[0] >= counts[1] || counts[1] >= counts[2] {
		t.Errorf("weights not respected: %v", counts)
	}

	if got := WeightedIndex(rng, []int{0, 0, 5}); got != 2 {
		t.Errorf("zero weights should never win, got index %d", got)
	}
	if got := WeightedIndex(rng, []int{0, 0, 0}); got != 0 {
		t.Errorf("degenerate table should return 0, got %d", got)
	}
}

func TestRollCrateTierFavorsRankedPlayers(t *testing.T) {
	const draws = 20000
	count := func(tier models.Tier) int {
		rng := rand.New(rand.NewSource(42))
		legendary := 0
		for i := 0; i < draws; i++ {
			if RollCrateTier(rng, tier) == models.ItemLegendary {
				legendary++
			}
		}
		return legendary
	}

	rookie := count(models.TierRookie)
	kingpin := count(models.TierKingpin)
	if kingpin <= rookie {
		t.Errorf("kingpin legendary rate (%d) should exceed rookie (%d)", kingpin, rookie)
	}
}
