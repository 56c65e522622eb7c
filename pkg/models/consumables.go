package models

import "time"

// Consumable is a catalog row. Exactly one of IsDurationBuff and
// IsSingleUse is true: duration items apply a buff on purchase, single-use
// items are stocked and consumed later.
type Consumable struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Cost           int64   `json:"cost"`
	IsDurationBuff bool    `json:"isDurationBuff"`
	IsSingleUse    bool    `json:"isSingleUse"`
	BuffKey        string  `json:"buffKey,omitempty"`
	BuffCategory   string  `json:"buffCategory,omitempty"`
	BuffValue      float64 `json:"buffValue,omitempty"`
	DurationHours  float64 `json:"durationHours,omitempty"`
	MaxOwned       int     `json:"maxOwned,omitempty"`
	EffectKey      string  `json:"effectKey,omitempty"`
}

// UserConsumable tracks per-user stock of a single-use consumable.
type UserConsumable struct {
	UserID       int64     `json:"userId"`
	ConsumableID int64     `json:"consumableId"`
	Quantity     int       `json:"quantity"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
