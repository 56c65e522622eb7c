package buffs

import (
	"time"

	"github.com/grindcity/economy-engine/pkg/models"
)

// Decision is the pure outcome of applying an incoming buff against the
// existing row for the same (user, buff type).
type Decision struct {
	Outcome    models.ApplyOutcome
	Multiplier float64
	// ExpiresAt is nil for a non-expiring buff (duration <= 0).
	ExpiresAt *time.Time
	// PreviousRemaining is the time discarded by an upgrade.
	PreviousRemaining time.Duration
}

// Decide implements the upgrade/extend/refuse algebra. A dead or missing
// existing row yields New; equal multipliers extend from the later of the
// old expiry and now; a lower multiplier is refused.
func Decide(existing *models.ActiveBuff, multiplier float64, duration time.Duration, now time.Time) Decision {
	expiry := func(from time.Time) *time.Time {
		if duration <= 0 {
			return nil
		}
		t := from.Add(duration)
		return &t
	}

	if existing == nil || !existing.Live(now) {
		return Decision{Outcome: models.ApplyNew, Multiplier: multiplier, ExpiresAt: expiry(now)}
	}

	switch {
	case multiplier > existing.Multiplier:
		var remaining time.Duration
		if existing.ExpiresAt != nil {
			remaining = existing.ExpiresAt.Sub(now)
		}
		return Decision{
			Outcome:           models.ApplyUpgrade,
			Multiplier:        multiplier,
			ExpiresAt:         expiry(now),
			PreviousRemaining: remaining,
		}
	case multiplier == existing.Multiplier:
		if existing.ExpiresAt == nil {
			// Extending a permanent buff changes nothing.
			return Decision{Outcome: models.ApplyExtension, Multiplier: multiplier}
		}
		base := *existing.ExpiresAt
		if base.Before(now) {
			base = now
		}
		return Decision{Outcome: models.ApplyExtension, Multiplier: multiplier, ExpiresAt: expiry(base)}
	default:
		return Decision{Outcome: models.ApplyNoOp, Multiplier: existing.Multiplier, ExpiresAt: existing.ExpiresAt}
	}
}

// Aggregate folds live rows of one category into the effective multiplier:
// consumables compete (max), territory competes (max), juicernaut is the
// exclusive bundle term. Unknown sources count as consumable. Empty input
// yields 1.0.
func Aggregate(rows []models.ActiveBuff, now time.Time) float64 {
	c, t, j := 1.0, 1.0, 1.0
	for i := range rows {
		b := &rows[i]
		if !b.Live(now) {
			continue
		}
		switch b.Source {
		case models.SourceTerritory:
			if b.Multiplier > t {
				t = b.Multiplier
			}
		case models.SourceJuicernaut:
			if b.Multiplier > j {
				j = b.Multiplier
			}
		default:
			if b.Multiplier > c {
				c = b.Multiplier
			}
		}
	}
	return c * t * j
}
