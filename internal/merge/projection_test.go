package merge

import (
	"strings"
	"testing"

	"github.com/grindcity/economy-engine/pkg/models"
)

func ptr(s string) *string { return &s }

func baseUsers() (*models.User, *models.User) {
	primary := &models.User{
		ID: 1, Username: "alpha", KickID: ptr("k-1"),
		Wealth: 10_000, XP: 500, Level: 3, Tokens: 20, Bonds: 2,
		CheckinStreak: 4, TotalPlayCount: 100, Wins: 60, Losses: 40,
	}
	secondary := &models.User{
		ID: 2, Username: "beta", TwitchID: ptr("t-2"),
		Wealth: 5_000, XP: 700, Tokens: 15, Bonds: 1,
		CheckinStreak: 9, TotalPlayCount: 50, Wins: 20, Losses: 30,
	}
	return primary, secondary
}

func TestProjectAddsBalancesAndCounters(t *testing.T) {
	primary, secondary := baseUsers()
	p := Project(primary, secondary, 100)

	if p.Wealth != 15_000 {
		t.Errorf("wealth = %d, want 15000", p.Wealth)
	}
	if p.XP != 1200 {
		t.Errorf("xp = %d, want 1200", p.XP)
	}
	if p.Tokens != 35 {
		t.Errorf("tokens = %d, want 35", p.Tokens)
	}
	if p.Bonds != 3 {
		t.Errorf("bonds = %d, want 3", p.Bonds)
	}
	if p.TotalPlayCount != 150 || p.Wins != 80 || p.Losses != 70 {
		t.Errorf("counters = %d/%d/%d, want 150/80/70", p.TotalPlayCount, p.Wins, p.Losses)
	}
	if p.CheckinStreak != 9 {
		t.Errorf("checkinStreak = %d, want max(4,9)=9", p.CheckinStreak)
	}
	if len(p.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", p.Warnings)
	}
}

func TestProjectRecomputesLevelFromCombinedXP(t *testing.T) {
	primary, secondary := baseUsers()
	// 100 + 125 = 225 cumulative XP tops out level 2; 230 total crosses
	// into level 3.
	primary.XP = 200
	secondary.XP = 30
	p := Project(primary, secondary, 100)
	if p.Level != 3 {
		t.Fatalf("level = %d, want 3", p.Level)
	}
	if p.Tier != models.TierRookie {
		t.Errorf("tier = %s, want rookie", p.Tier)
	}
}

func TestProjectClampsTokensAtHardCap(t *testing.T) {
	primary, secondary := baseUsers()
	primary.Tokens = 80
	secondary.Tokens = 60
	p := Project(primary, secondary, 100)
	if p.Tokens != 100 {
		t.Fatalf("tokens = %d, want clamp at 100", p.Tokens)
	}
	if !hasWarning(p.Warnings, "hard cap") {
		t.Errorf("expected a token-clamp warning, got %v", p.Warnings)
	}
}

func TestProjectPlatformMoves(t *testing.T) {
	primary, secondary := baseUsers()
	// Secondary also has a kick identity, which collides with the
	// primary's; its twitch identity transfers cleanly.
	secondary.KickID = ptr("k-2")

	p := Project(primary, secondary, 100)
	if len(p.PlatformMoves) != 2 {
		t.Fatalf("platform moves = %d, want 2", len(p.PlatformMoves))
	}
	byPlatform := map[models.Platform]PlatformMove{}
	for _, mv := range p.PlatformMoves {
		byPlatform[mv.Platform] = mv
	}
	if mv := byPlatform[models.PlatformKick]; mv.Kept {
		t.Errorf("kick identity should be dropped, got kept")
	}
	if mv := byPlatform[models.PlatformTwitch]; !mv.Kept || mv.PlatformID != "t-2" {
		t.Errorf("twitch identity should transfer, got %+v", mv)
	}
	if !hasWarning(p.Warnings, "kick") {
		t.Errorf("expected a dropped-identity warning, got %v", p.Warnings)
	}
}

func TestProjectFactionConflictWarns(t *testing.T) {
	primary, secondary := baseUsers()
	f1, f2 := int64(1), int64(2)
	primary.FactionID = &f1
	secondary.FactionID = &f2
	p := Project(primary, secondary, 100)
	if !hasWarning(p.Warnings, "faction") {
		t.Errorf("expected a faction warning, got %v", p.Warnings)
	}
}

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
