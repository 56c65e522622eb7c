package actions

import (
	"testing"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/formulas"
	"github.com/grindcity/economy-engine/pkg/models"
)

func TestPlayEventsTableShape(t *testing.T) {
	lastTier := -1
	for _, ev := range playEvents {
		if ev.weight <= 0 {
			t.Errorf("%s: weight %d must be positive", ev.name, ev.weight)
		}
		if ev.wealthMin <= 0 || ev.wealthMax < ev.wealthMin {
			t.Errorf("%s: bad wealth band [%d, %d]", ev.name, ev.wealthMin, ev.wealthMax)
		}
		if ev.xpMin <= 0 || ev.xpMax < ev.xpMin {
			t.Errorf("%s: bad xp band [%d, %d]", ev.name, ev.xpMin, ev.xpMax)
		}
		if idx := formulas.TierIndex(ev.minTier); idx < lastTier {
			t.Errorf("%s: table must be ordered by tier, %d after %d", ev.name, idx, lastTier)
		} else {
			lastTier = idx
		}
	}
}

func TestEventsForTier(t *testing.T) {
	cases := []struct {
		tier models.Tier
		want int
	}{
		{models.TierRookie, 3},
		{models.TierAssociate, 4},
		{models.TierSoldier, 5},
		{models.TierCaptain, 6},
		{models.TierUnderboss, 7},
		{models.TierKingpin, 8},
	}
	for _, tc := range cases {
		got := eventsForTier(tc.tier)
		if len(got) != tc.want {
			t.Errorf("eventsForTier(%s) = %d events, want %d", tc.tier, len(got), tc.want)
		}
		for _, ev := range got {
			if formulas.TierIndex(ev.minTier) > formulas.TierIndex(tc.tier) {
				t.Errorf("eventsForTier(%s) leaked locked event %s", tc.tier, ev.name)
			}
		}
	}
}

func TestRollPlayEventStaysUnlocked(t *testing.T) {
	rng := clock.NewRNG(7)
	for i := 0; i < 500; i++ {
		ev := rollPlayEvent(rng, models.TierAssociate)
		if formulas.TierIndex(ev.minTier) > formulas.TierIndex(models.TierAssociate) {
			t.Fatalf("rolled locked event %s at associate tier", ev.name)
		}
	}
	// Every unlocked event should eventually come up.
	seen := map[string]bool{}
	for i := 0; i < 2000; i++ {
		seen[rollPlayEvent(rng, models.TierKingpin).name] = true
	}
	if len(seen) != len(playEvents) {
		t.Errorf("kingpin sampling hit %d of %d events", len(seen), len(playEvents))
	}
}
