package actions

import (
	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/formulas"
	"github.com/grindcity/economy-engine/pkg/models"
)

// playEvent is one weighted outcome of a play round. Wealth and XP are
// rolled uniformly inside the band, then scaled by tier and buffs.
type playEvent struct {
	name      string
	minTier   models.Tier
	weight    int
	wealthMin int64
	wealthMax int64
	xpMin     int64
	xpMax     int64
}

// The event ladder. A tier's table holds every event unlocked at or below
// it, so ranked players keep the small scores in their pool but add the
// bigger jobs. Weights skew toward the small ones.
var playEvents = []playEvent{
	{name: "pickpocket", minTier: models.TierRookie, weight: 30, wealthMin: 80, wealthMax: 220, xpMin: 15, xpMax: 35},
	{name: "corner_hustle", minTier: models.TierRookie, weight: 25, wealthMin: 150, wealthMax: 400, xpMin: 25, xpMax: 50},
	{name: "fence_goods", minTier: models.TierRookie, weight: 20, wealthMin: 250, wealthMax: 600, xpMin: 35, xpMax: 70},
	{name: "numbers_racket", minTier: models.TierAssociate, weight: 15, wealthMin: 500, wealthMax: 1200, xpMin: 60, xpMax: 110},
	{name: "protection_round", minTier: models.TierSoldier, weight: 10, wealthMin: 900, wealthMax: 2200, xpMin: 90, xpMax: 160},
	{name: "warehouse_job", minTier: models.TierCaptain, weight: 7, wealthMin: 1600, wealthMax: 4000, xpMin: 140, xpMax: 240},
	{name: "casino_skim", minTier: models.TierUnderboss, weight: 5, wealthMin: 3000, wealthMax: 7500, xpMin: 220, xpMax: 380},
	{name: "heist", minTier: models.TierKingpin, weight: 3, wealthMin: 6000, wealthMax: 15000, xpMin: 350, xpMax: 600},
}

// eventsForTier returns the slice of events unlocked at the given tier.
// playEvents is ordered by minTier, so the unlocked set is a prefix.
func eventsForTier(tier models.Tier) []playEvent {
	idx := formulas.TierIndex(tier)
	n := 0
	for _, ev := range playEvents {
		if formulas.TierIndex(ev.minTier) > idx {
			break
		}
		n++
	}
	return playEvents[:n]
}

// rollPlayEvent weight-samples one event from the tier's table.
func rollPlayEvent(rng clock.RNG, tier models.Tier) playEvent {
	table := eventsForTier(tier)
	weights := make([]int, len(table))
	for i, ev := range table {
		weights[i] = ev.weight
	}
	return table[formulas.WeightedIndex(rng, weights)]
}
