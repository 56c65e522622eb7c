package models

import "time"

// BuffSource determines how a buff participates in stacking: consumables
// compete (highest wins), territory stacks multiplicatively, juicernaut is
// the exclusive session-leader bundle. Unknown sources stack as consumable.
type BuffSource string

const (
	SourceConsumable BuffSource = "consumable"
	SourceTerritory  BuffSource = "territory"
	SourceJuicernaut BuffSource = "juicernaut"
	SourceSystem     BuffSource = "system"
)

// Buff categories are the effect channels the engine reads. GetMultiplier
// aggregates every live row sharing a category regardless of buff type.
const (
	CategoryXPMultiplier     = "xp_multiplier"
	CategoryWealthMultiplier = "wealth_multiplier"
	CategoryLootChance       = "loot_chance"
	CategoryRobSuccess       = "rob_success"
	CategoryRobDefense       = "rob_defense"
	CategoryRobImmunity      = "rob_immunity"
)

// Juicernaut bundle buff types. The prefix doubles as the HasBuffPrefix
// probe for the session-leader flag.
const (
	JuicernautPrefix       = "juicernaut_"
	BuffJuicernautXP       = "juicernaut_xp"
	BuffJuicernautWealth   = "juicernaut_wealth"
	BuffJuicernautLoot     = "juicernaut_loot"
	BuffJuicernautImmunity = "juicernaut_immunity"
)

// ActiveBuff is one multiplicative modifier row. At most one row per
// (user, buff type) is live at a time; stacking across types and sources
// happens at read time.
type ActiveBuff struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"userId"`
	BuffType   string     `json:"buffType"`
	Category   string     `json:"category"`
	Multiplier float64    `json:"multiplier"`
	Source     BuffSource `json:"source"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	IsActive   bool       `json:"isActive"`
	AppliedAt  time.Time  `json:"appliedAt"`
}

// Live reports whether the row counts for stacking at the given instant.
func (b *ActiveBuff) Live(now time.Time) bool {
	return b.IsActive && (b.ExpiresAt == nil || b.ExpiresAt.After(now))
}

// ApplyOutcome describes what ApplyBuff did with an incoming buff relative
// to the existing row for the same (user, buff type).
type ApplyOutcome string

const (
	ApplyNew       ApplyOutcome = "new"
	ApplyUpgrade   ApplyOutcome = "upgrade"
	ApplyExtension ApplyOutcome = "extension"
	ApplyNoOp      ApplyOutcome = "noop"
)
