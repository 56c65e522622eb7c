// Package merge implements the irreversible two-account merge: a pure
// preview projection and the single-transaction execute that folds the
// secondary account into the primary and tombstones it.
package merge

import (
	"fmt"

	"github.com/grindcity/economy-engine/internal/formulas"
	"github.com/grindcity/economy-engine/pkg/models"
)

// PlatformMove describes one platform identity changing hands. Kept is
// false when the primary already holds an identity for that platform; the
// secondary's identity is then dropped rather than transferred.
type PlatformMove struct {
	Platform   models.Platform `json:"platform"`
	PlatformID string          `json:"platformId"`
	Kept       bool            `json:"kept"`
}

// Projection is what the primary account looks like after the merge. It is
// a pure computation over the two user rows; Execute re-derives it inside
// the committing transaction.
type Projection struct {
	PrimaryID      int64           `json:"primaryId"`
	SecondaryID    int64           `json:"secondaryId"`
	Wealth         models.Currency `json:"wealth"`
	XP             int64           `json:"xp"`
	Level          int             `json:"level"`
	Tier           models.Tier     `json:"tier"`
	Tokens         int             `json:"tokens"`
	Bonds          int64           `json:"bonds"`
	CheckinStreak  int             `json:"checkinStreak"`
	TotalPlayCount int64           `json:"totalPlayCount"`
	Wins           int64           `json:"wins"`
	Losses         int64           `json:"losses"`
	PlatformMoves  []PlatformMove  `json:"platformMoves"`
	Warnings       []string        `json:"warnings"`
}

// Project computes the post-merge primary row. Wealth, bonds and lifetime
// counters add; XP adds and level/tier are recomputed from the combined
// total; tokens add but clamp at the hard cap; the check-in streak keeps
// the better run. Warnings flag anything an operator should read before
// confirming.
func Project(primary, secondary *models.User, tokenHardCap int) *Projection {
	p := &Projection{
		PrimaryID:      primary.ID,
		SecondaryID:    secondary.ID,
		Wealth:         models.Currency(primary.Wealth + secondary.Wealth),
		XP:             primary.XP + secondary.XP,
		Bonds:          primary.Bonds + secondary.Bonds,
		TotalPlayCount: primary.TotalPlayCount + secondary.TotalPlayCount,
		Wins:           primary.Wins + secondary.Wins,
		Losses:         primary.Losses + secondary.Losses,
		CheckinStreak:  primary.CheckinStreak,
	}
	if secondary.CheckinStreak > p.CheckinStreak {
		p.CheckinStreak = secondary.CheckinStreak
	}

	p.Level = formulas.LevelFromXP(p.XP)
	p.Tier = formulas.TierForLevel(p.Level)

	p.Tokens = primary.Tokens + secondary.Tokens
	if p.Tokens > tokenHardCap {
		p.Warnings = append(p.Warnings,
			fmt.Sprintf("combined tokens %d exceed the hard cap; clamped to %d", p.Tokens, tokenHardCap))
		p.Tokens = tokenHardCap
	}

	p.PlatformMoves = platformMoves(primary, secondary)
	for _, mv := range p.PlatformMoves {
		if !mv.Kept {
			p.Warnings = append(p.Warnings,
				fmt.Sprintf("primary already has a %s identity; secondary's %s identity will be dropped", mv.Platform, mv.Platform))
		}
	}

	if primary.FactionID != nil && secondary.FactionID != nil && *primary.FactionID != *secondary.FactionID {
		p.Warnings = append(p.Warnings, "accounts belong to different factions; the primary's faction is kept")
	}
	if secondary.IsBanned {
		p.Warnings = append(p.Warnings, "secondary account is banned; the ban does not transfer")
	}
	if primary.IsBanned {
		p.Warnings = append(p.Warnings, "primary account is banned")
	}
	return p
}

// platformMoves lists every identity leaving the secondary. An identity
// lands on the primary only when that platform slot is free there.
func platformMoves(primary, secondary *models.User) []PlatformMove {
	var moves []PlatformMove
	add := func(platform models.Platform, secID, priID *string) {
		if secID == nil {
			return
		}
		moves = append(moves, PlatformMove{
			Platform:   platform,
			PlatformID: *secID,
			Kept:       priID == nil,
		})
	}
	add(models.PlatformKick, secondary.KickID, primary.KickID)
	add(models.PlatformTwitch, secondary.TwitchID, primary.TwitchID)
	add(models.PlatformDiscord, secondary.DiscordID, primary.DiscordID)
	return moves
}
