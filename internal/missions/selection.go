package missions

import (
	"fmt"
	"math"
	"time"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/pkg/models"
)

// PeriodStart is the opening instant of the mission period containing now:
// UTC midnight for daily, the most recent UTC Sunday 00:00 for weekly.
func PeriodStart(missionType models.MissionType, now time.Time) time.Time {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if missionType == models.MissionWeekly {
		return day.AddDate(0, 0, -int(day.Weekday()))
	}
	return day
}

// PeriodEnd is the first instant of the following period.
func PeriodEnd(missionType models.MissionType, now time.Time) time.Time {
	start := PeriodStart(missionType, now)
	if missionType == models.MissionWeekly {
		return start.AddDate(0, 0, 7)
	}
	return start.AddDate(0, 0, 1)
}

// PeriodKey names the period for uniqueness rows: the daily key is the UTC
// date, the weekly key the date of its Sunday prefixed with "w".
func PeriodKey(missionType models.MissionType, now time.Time) string {
	start := PeriodStart(missionType, now)
	if missionType == models.MissionWeekly {
		return "w" + start.Format("2006-01-02")
	}
	return start.Format("2006-01-02")
}

// SelectTemplates draws count templates with variety: at most one per
// category and at most one luck-based per batch. When the pool cannot
// satisfy variety the remainder is filled arbitrarily from the unpicked
// templates, so a thin catalog still yields a full batch.
func SelectTemplates(rng clock.RNG, pool []models.MissionTemplate, count int) []models.MissionTemplate {
	if count <= 0 || len(pool) == 0 {
		return nil
	}
	shuffled := make([]models.MissionTemplate, len(pool))
	copy(shuffled, pool)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	picked := make([]models.MissionTemplate, 0, count)
	taken := make(map[int64]bool, count)
	usedCategory := make(map[string]bool, count)
	luckTaken := false
	for _, t := range shuffled {
		if len(picked) == count {
			break
		}
		if usedCategory[t.Category] || (t.IsLuckBased && luckTaken) {
			continue
		}
		picked = append(picked, t)
		taken[t.ID] = true
		usedCategory[t.Category] = true
		luckTaken = luckTaken || t.IsLuckBased
	}
	for _, t := range shuffled {
		if len(picked) == count {
			break
		}
		if taken[t.ID] {
			continue
		}
		picked = append(picked, t)
		taken[t.ID] = true
	}
	return picked
}

// ScaleObjective raises the target with the player's tier, rounding up so
// a scaled objective never collapses below its base granularity.
func ScaleObjective(base int64, tierMult float64) int64 {
	return int64(math.Ceil(float64(base) * tierMult))
}

// ScaleReward raises a reward with the player's tier, rounding down.
func ScaleReward(base int64, tierMult float64) int64 {
	return int64(math.Floor(float64(base) * tierMult))
}

// AllocateCap fits the raw payout under the period's remaining headroom.
// The cap binds the base sum first; only leftover headroom pays the bonus.
func AllocateCap(baseSum, bonus, limit, alreadyClaimed int64) (awardBase, awardBonus int64) {
	headroom := limit - alreadyClaimed
	if headroom < 0 {
		headroom = 0
	}
	total := baseSum + bonus
	if total > headroom {
		total = headroom
	}
	awardBase = baseSum
	if awardBase > total {
		awardBase = total
	}
	return awardBase, total - awardBase
}

// instantiate builds a user mission row from a template scaled to the
// player's tier.
func instantiate(t *models.MissionTemplate, userID int64, tierMult float64, periodKey string, expiresAt time.Time) *models.UserMission {
	return &models.UserMission{
		UserID:         userID,
		TemplateID:     t.ID,
		MissionType:    t.MissionType,
		Category:       t.Category,
		ObjectiveType:  t.ObjectiveType,
		ObjectiveValue: ScaleObjective(t.ObjectiveBaseValue, tierMult),
		RewardWealth:   ScaleReward(t.RewardWealth, tierMult),
		RewardXP:       ScaleReward(t.RewardXP, tierMult),
		IsLuckBased:    t.IsLuckBased,
		Status:         models.MissionActive,
		PeriodKey:      periodKey,
		ExpiresAt:      expiresAt,
	}
}

// describeBatch is the log line for one assignment.
func describeBatch(batch []models.UserMission) string {
	if len(batch) == 0 {
		return "none"
	}
	s := ""
	for i, m := range batch {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s(%d)", m.ObjectiveType, m.ObjectiveValue)
	}
	return s
}
