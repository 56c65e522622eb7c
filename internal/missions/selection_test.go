package missions

import (
	"math/rand"
	"testing"
	"time"

	"github.com/grindcity/economy-engine/pkg/models"
)

func tmpl(id int64, category string, luck bool) models.MissionTemplate {
	return models.MissionTemplate{
		ID:                 id,
		MissionType:        models.MissionDaily,
		Category:           category,
		ObjectiveType:      "play_count",
		ObjectiveBaseValue: 5,
		RewardWealth:       1000,
		RewardXP:           100,
		IsLuckBased:        luck,
	}
}

func TestSelectTemplatesVariety(t *testing.T) {
	pool := []models.MissionTemplate{
		tmpl(1, "grind", false),
		tmpl(2, "grind", false),
		tmpl(3, "combat", false),
		tmpl(4, "fortune", false),
		tmpl(5, "gambler", true),
		tmpl(6, "spinner", true),
	}
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		got := SelectTemplates(rng, pool, 3)
		if len(got) != 3 {
			t.Fatalf("seed %d: picked %d templates, want 3", seed, len(got))
		}
		categories := map[string]int{}
		luck := 0
		for _, m := range got {
			categories[m.Category]++
			if m.IsLuckBased {
				luck++
			}
		}
		for c, n := range categories {
			if n > 1 {
				t.Errorf("seed %d: category %q picked %d times", seed, c, n)
			}
		}
		if luck > 1 {
			t.Errorf("seed %d: %d luck-based missions in batch", seed, luck)
		}
	}
}

func TestSelectTemplatesFillsWhenVarietyImpossible(t *testing.T) {
	// Only two categories for a batch of four: variety caps at two, the
	// rest fill arbitrarily.
	pool := []models.MissionTemplate{
		tmpl(1, "grind", false),
		tmpl(2, "grind", false),
		tmpl(3, "grind", false),
		tmpl(4, "combat", false),
	}
	rng := rand.New(rand.NewSource(7))
	got := SelectTemplates(rng, pool, 4)
	if len(got) != 4 {
		t.Fatalf("picked %d templates, want all 4", len(got))
	}
	seen := map[int64]bool{}
	for _, m := range got {
		if seen[m.ID] {
			t.Errorf("template %d picked twice", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestSelectTemplatesSmallPool(t *testing.T) {
	pool := []models.MissionTemplate{tmpl(1, "grind", false)}
	rng := rand.New(rand.NewSource(1))
	if got := SelectTemplates(rng, pool, 5); len(got) != 1 {
		t.Errorf("picked %d, want the whole pool of 1", len(got))
	}
	if got := SelectTemplates(rng, nil, 3); got != nil {
		t.Errorf("empty pool should select nothing")
	}
}

func TestPeriodKeys(t *testing.T) {
	// 2025-06-04 is a Wednesday; its week anchors on Sunday 2025-06-01.
	now := time.Date(2025, 6, 4, 15, 30, 0, 0, time.UTC)
	if got := PeriodKey(models.MissionDaily, now); got != "2025-06-04" {
		t.Errorf("daily key = %q", got)
	}
	if got := PeriodKey(models.MissionWeekly, now); got != "w2025-06-01" {
		t.Errorf("weekly key = %q", got)
	}
	if got := PeriodEnd(models.MissionDaily, now); !got.Equal(time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("daily end = %v", got)
	}
	if got := PeriodEnd(models.MissionWeekly, now); !got.Equal(time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("weekly end = %v", got)
	}

	// A Sunday belongs to the week it opens.
	sunday := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if got := PeriodKey(models.MissionWeekly, sunday); got != "w2025-06-01" {
		t.Errorf("weekly key on sunday = %q", got)
	}
}

func TestScaling(t *testing.T) {
	if got := ScaleObjective(5, 1.3); got != 7 {
		t.Errorf("ScaleObjective(5, 1.3) = %d, want ceil(6.5) = 7", got)
	}
	if got := ScaleObjective(5, 1.0); got != 5 {
		t.Errorf("ScaleObjective(5, 1.0) = %d, want 5", got)
	}
	if got := ScaleReward(1000, 1.3); got != 1300 {
		t.Errorf("ScaleReward(1000, 1.3) = %d, want 1300", got)
	}
	if got := ScaleReward(999, 1.5); got != 1498 {
		t.Errorf("ScaleReward(999, 1.5) = %d, want floor(1498.5) = 1498", got)
	}
}

func TestAllocateCap(t *testing.T) {
	tests := []struct {
		name                string
		base, bonus         int64
		limit, already      int64
		wantBase, wantBonus int64
	}{
		{"under cap pays everything", 10000, 5000, 50000, 0, 10000, 5000},
		{"cap bites the bonus first", 10000, 5000, 50000, 38000, 10000, 2000},
		{"cap bites into base", 10000, 5000, 50000, 45000, 5000, 0},
		{"no headroom pays nothing", 10000, 5000, 50000, 50000, 0, 0},
		{"over-claimed clamps at zero", 10000, 5000, 50000, 60000, 0, 0},
		{"exact fit", 10000, 5000, 15000, 0, 10000, 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotBase, gotBonus := AllocateCap(tt.base, tt.bonus, tt.limit, tt.already)
			if gotBase != tt.wantBase || gotBonus != tt.wantBonus {
				t.Errorf("AllocateCap() = (%d, %d), want (%d, %d)",
					gotBase, gotBonus, tt.wantBase, tt.wantBonus)
			}
		})
	}
}
