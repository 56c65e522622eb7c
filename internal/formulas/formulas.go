package formulas

import (
	"math"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/pkg/models"
)

// ─── Leveling ────────────────────────────────────────────────────────

// MaxLevel caps progression; XP beyond the level-200 threshold is kept but
// never advances the level.
const MaxLevel = 200

// XPForLevel returns the XP required to advance through level n:
// floor(100 · 1.25^(n−1)). Levels below 1 cost nothing.
func XPForLevel(level int) int64 {
	if level < 1 {
		return 0
	}
	xp := 100.0 * math.Pow(1.25, float64(level-1))
	if xp >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(xp)
}

// LevelFromXP returns the smallest level whose cumulative XP requirement
// exceeds totalXP, clamped to [1, MaxLevel]. The running sum is kept in
// float64 because the cumulative requirement overflows int64 well before
// level 200.
func LevelFromXP(totalXP int64) int {
	if totalXP < 0 {
		return 1
	}
	cum := 0.0
	target := float64(totalXP)
	for lvl := 1; lvl <= MaxLevel; lvl++ {
		cum += 100.0 * math.Pow(1.25, float64(lvl-1))
		if cum > target {
			return lvl
		}
	}
	return MaxLevel
}

// ─── Tiers ───────────────────────────────────────────────────────────

// Tier thresholds: 1, 20, 40, 60, 80, 100.
var tierFloors = [...]int{1, 20, 40, 60, 80, 100}

// tierMultipliers index-aligned with models.Tiers.
var tierMultipliers = [...]float64{1.0, 1.1, 1.2, 1.3, 1.4, 1.5}

// TierForLevel derives the status tier from a level.
func TierForLevel(level int) models.Tier {
	idx := 0
	for i, floor := range tierFloors {
		if level >= floor {
			idx = i
		}
	}
	return models.Tiers[idx]
}

// TierIndex returns the ascending rank index of t (Rookie = 0). Unknown
// tiers rank as Rookie.
func TierIndex(t models.Tier) int {
	for i, tier := range models.Tiers {
		if tier == t {
			return i
		}
	}
	return 0
}

// TierMultiplier scales play rewards and mission objectives by rank.
func TierMultiplier(t models.Tier) float64 {
	return tierMultipliers[TierIndex(t)]
}

// MaxBetForTier doubles the gambling ceiling at each rank.
func MaxBetForTier(base int64, t models.Tier) int64 {
	return base << uint(TierIndex(t))
}

// ─── Robbery ─────────────────────────────────────────────────────────

const (
	robBaseRate     = 0.60
	robWeaponCap    = 0.15
	robArmorCap     = 0.15
	robLevelStep    = 0.01
	robLevelCap     = 0.10
	RobSuccessFloor = 0.45
	RobSuccessCeil  = 0.85
)

// RobSuccessRate composes the robbery success probability. Weapon and
// armor contributions are individually capped, the level difference adds
// ±1% per level within ±10%, and faction or buff terms are flat additive
// adjustments. The final rate always lands in [0.45, 0.85].
func RobSuccessRate(attackerLevel, defenderLevel int, weaponBonus, armorReduction, attackBonus, defenseBonus float64) float64 {
	rate := robBaseRate
	rate += math.Min(weaponBonus, robWeaponCap)
	rate -= math.Min(armorReduction, robArmorCap)
	rate += clampFloat(float64(attackerLevel-defenderLevel)*robLevelStep, -robLevelCap, robLevelCap)
	rate += attackBonus
	rate -= defenseBonus
	return clampFloat(rate, RobSuccessFloor, RobSuccessCeil)
}

// ─── Bail ────────────────────────────────────────────────────────────

// BailCost charges 10% of wealth with a configured floor. A player too
// poor to meet the floor walks free: the jail row is still cleared.
func BailCost(wealth, minBail int64) int64 {
	if wealth < minBail {
		return 0
	}
	cost := wealth / 10
	if cost < minBail {
		return minBail
	}
	return cost
}

// ─── Sampling helpers ────────────────────────────────────────────────

// UniformInt draws an integer uniformly from [lo, hi]. Degenerate ranges
// collapse to lo.
func UniformInt(rng clock.RNG, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + int64(rng.Intn(int(hi-lo+1)))
}

// DurabilityDecay samples the per-hit durability loss from the configured
// inclusive range.
func DurabilityDecay(rng clock.RNG, min, max int) int {
	return int(UniformInt(rng, int64(min), int64(max)))
}

// WeightedIndex picks an index with probability proportional to its
// weight. Zero and negative weights never win. A degenerate table
// (all weights <= 0) returns 0.
func WeightedIndex(rng clock.RNG, weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return 0
	}
	r := rng.Intn(total)
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

// ─── Crates ──────────────────────────────────────────────────────────

// crateWeights maps player tier index to item-tier weights
// (common, uncommon, rare, legendary). Higher ranks shift probability
// mass toward the top of the table.
var crateWeights = [6][4]int{
	{70, 22, 7, 1},   // rookie
	{62, 26, 10, 2},  // associate
	{54, 29, 13, 4},  // soldier
	{45, 32, 17, 6},  // captain
	{36, 34, 21, 9},  // underboss
	{25, 35, 28, 12}, // kingpin
}

// RollCrateTier samples the tier of a dropped crate for a player of the
// given rank.
func RollCrateTier(rng clock.RNG, playerTier models.Tier) models.ItemTier {
	weights := crateWeights[TierIndex(playerTier)]
	idx := WeightedIndex(rng, weights[:])
	return models.ItemTiers[idx]
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
