package models

import "time"

// Distinguished cooldown command types. Jail is modeled as a cooldown so
// one sweep and one status probe cover both.
const (
	CooldownJail      = "jail"
	CooldownPlay      = "play"
	CooldownRob       = "rob"
	CooldownRobTarget = "rob_target"
	CooldownCheckin   = "checkin"
	CooldownShopRoll  = "shop_reroll"
)

// Cooldown is an expiring per-user lock on a command, optionally scoped to
// a target. The row with command type "jail" is the user's jail state.
type Cooldown struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"userId"`
	CommandType      string    `json:"commandType"`
	TargetIdentifier string    `json:"targetIdentifier,omitempty"`
	ExpiresAt        time.Time `json:"expiresAt"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Active reports whether the lock still binds at the given instant.
func (c *Cooldown) Active(now time.Time) bool {
	return c.ExpiresAt.After(now)
}

// Remaining returns the time left, zero when expired.
func (c *Cooldown) Remaining(now time.Time) time.Duration {
	if d := c.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
