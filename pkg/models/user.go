package models

import "time"

// Tier is the ordered player rank derived from level. It gates features
// (max bets, bond conversion) and scales rewards.
type Tier string

const (
	TierRookie    Tier = "rookie"
	TierAssociate Tier = "associate"
	TierSoldier   Tier = "soldier"
	TierCaptain   Tier = "captain"
	TierUnderboss Tier = "underboss"
	TierKingpin   Tier = "kingpin"
)

// Tiers lists all tiers in ascending rank order.
var Tiers = []Tier{TierRookie, TierAssociate, TierSoldier, TierCaptain, TierUnderboss, TierKingpin}

// Platform identifies a linked streaming platform account.
type Platform string

const (
	PlatformKick    Platform = "kick"
	PlatformTwitch  Platform = "twitch"
	PlatformDiscord Platform = "discord"
)

// ValidPlatform reports whether p names a supported streaming platform.
func ValidPlatform(p Platform) bool {
	switch p {
	case PlatformKick, PlatformTwitch, PlatformDiscord:
		return true
	}
	return false
}

// User is a persistent player row. A user with MergedIntoUserID set is a
// tombstone: it is never resolved by command paths and never mutated again.
type User struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	KickID             *string    `json:"kickId,omitempty"`
	TwitchID           *string    `json:"twitchId,omitempty"`
	DiscordID          *string    `json:"discordId,omitempty"`
	Wealth             int64      `json:"wealth"`
	XP                 int64      `json:"xp"`
	Level              int        `json:"level"`
	StatusTier         Tier       `json:"statusTier"`
	Tokens             int        `json:"tokens"`
	TokensEarnedToday  int        `json:"tokensEarnedToday"`
	LastTokenReset     time.Time  `json:"lastTokenReset"`
	Bonds              int64      `json:"bonds"`
	LastBondConversion *time.Time `json:"lastBondConversion,omitempty"`
	CheckinStreak      int        `json:"checkinStreak"`
	LastCheckinAt      *time.Time `json:"lastCheckinAt,omitempty"`
	TotalPlayCount     int64      `json:"totalPlayCount"`
	Wins               int64      `json:"wins"`
	Losses             int64      `json:"losses"`
	FactionID          *int64     `json:"factionId,omitempty"`
	IsBanned           bool       `json:"isBanned"`
	MergedIntoUserID   *int64     `json:"mergedIntoUserId,omitempty"`
	MergedAt           *time.Time `json:"mergedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// Merged reports whether the user row is a tombstone.
func (u *User) Merged() bool { return u.MergedIntoUserID != nil }

// Faction grants flat additive bonuses to robbery rolls for its members.
type Faction struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	RobBonus     float64 `json:"robBonus"`
	DefenseBonus float64 `json:"defenseBonus"`
}

// StreamingSession mirrors the stream lifecycle service's view. The
// economy core only ever reads it.
type StreamingSession struct {
	Platform  Platform  `json:"platform"`
	IsActive  bool      `json:"isActive"`
	UpdatedAt time.Time `json:"updatedAt"`
}
