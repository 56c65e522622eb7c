package actions

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/formulas"
	"github.com/grindcity/economy-engine/internal/inventory"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// PlayResult reports one play round.
type PlayResult struct {
	Busted        bool            `json:"busted"`
	EventName     string          `json:"eventName,omitempty"`
	WealthEarned  models.Currency `json:"wealthEarned"`
	XPEarned      int64           `json:"xpEarned"`
	NewWealth     models.Currency `json:"newWealth"`
	LeveledUp     bool            `json:"leveledUp"`
	NewLevel      int             `json:"newLevel"`
	PromotedTier  models.Tier     `json:"promotedTier,omitempty"`
	CrateAwarded  bool            `json:"crateAwarded"`
	CrateTier     models.ItemTier `json:"crateTier,omitempty"`
	CrateStoredIn string          `json:"crateStoredIn,omitempty"`
	Intents       []models.Intent `json:"-"`
}

// Play runs one round: bust roll first, then a tier-weighted event with
// uniform wealth and XP bands, scaled by the pre-play tier multiplier and
// the aggregated buff multipliers. Gear never degrades on play.
func (s *Service) Play(ctx context.Context, userID int64) (*PlayResult, error) {
	var res PlayResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		user, err := s.lockActor(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := s.cooldowns.RequireNotJailed(ctx, tx, userID); err != nil {
			return err
		}

		if s.rng.Float64() < s.cfg.BustChance {
			return s.bust(ctx, tx, &res, userID)
		}

		ev := rollPlayEvent(s.rng, user.StatusTier)
		wealthRoll := formulas.UniformInt(s.rng, ev.wealthMin, ev.wealthMax)
		xpRoll := formulas.UniformInt(s.rng, ev.xpMin, ev.xpMax)

		mults, err := s.buffs.Multipliers(ctx, tx, userID)
		if err != nil {
			return err
		}
		// Tier scaling uses the tier held before this round's XP lands.
		tierMult := formulas.TierMultiplier(user.StatusTier)
		wealthEarned := int64(math.Round(float64(wealthRoll) * tierMult * mults[models.CategoryWealthMultiplier]))
		xpEarned := int64(math.Round(float64(xpRoll) * tierMult * mults[models.CategoryXPMultiplier]))

		newWealth := models.Currency(user.Wealth + wealthEarned)
		newXP := user.XP + xpEarned
		newLevel := formulas.LevelFromXP(newXP)
		newTier := formulas.TierForLevel(newLevel)
		if err := s.store.SetProgress(ctx, tx, userID, newWealth, newXP, newLevel, newTier); err != nil {
			return econerr.Wrap(err, "crediting play")
		}
		if err := s.store.IncrementPlayStats(ctx, tx, userID, true); err != nil {
			return econerr.Wrap(err, "counting play")
		}

		if err := s.rollCrate(ctx, tx, &res, user, mults[models.CategoryLootChance]); err != nil {
			return err
		}

		if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
			UserID:       userID,
			EventType:    "play",
			WealthChange: models.Currency(wealthEarned),
			XPChange:     xpEarned,
			Success:      true,
			Description:  fmt.Sprintf("%s paid out %d and %d xp", ev.name, wealthEarned, xpEarned),
		}); err != nil {
			return econerr.Wrap(err, "recording play")
		}

		if err := s.missions.Progress(ctx, tx, user, models.ObjectivePlayCount, 1); err != nil {
			return err
		}
		if err := s.missions.Progress(ctx, tx, user, models.ObjectiveWealthEarned, wealthEarned); err != nil {
			return err
		}
		if err := s.store.UpsertAchievementProgress(ctx, tx, userID, achievementPlays,
			user.TotalPlayCount+1, user.TotalPlayCount+1 >= achievementPlaysGoal); err != nil {
			return econerr.Wrap(err, "advancing achievement")
		}

		res.EventName = ev.name
		res.WealthEarned = models.Currency(wealthEarned)
		res.XPEarned = xpEarned
		res.NewWealth = newWealth
		res.NewLevel = newLevel
		res.LeveledUp = newLevel > user.Level
		res.Intents = append(res.Intents, models.Intent{
			Kind:    models.IntentChat,
			UserID:  userID,
			Message: fmt.Sprintf("%s: +%d wealth, +%d xp", ev.name, wealthEarned, xpEarned),
		})
		if formulas.TierIndex(newTier) > formulas.TierIndex(user.StatusTier) {
			res.PromotedTier = newTier
			res.Intents = append(res.Intents, models.Intent{
				Kind:    models.IntentTierPromotion,
				UserID:  userID,
				Title:   string(newTier),
				Message: fmt.Sprintf("promoted to %s", newTier),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Service) bust(ctx context.Context, tx pgx.Tx, res *PlayResult, userID int64) error {
	jail := time.Duration(s.cfg.JailMinutes) * time.Minute
	if err := s.cooldowns.Jail(ctx, tx, userID, jail); err != nil {
		return err
	}
	if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
		UserID:      userID,
		EventType:   "play",
		Success:     false,
		Description: fmt.Sprintf("busted, jailed for %d minutes", s.cfg.JailMinutes),
	}); err != nil {
		return econerr.Wrap(err, "recording bust")
	}
	res.Busted = true
	res.Intents = append(res.Intents, models.Intent{
		Kind:    models.IntentChat,
		UserID:  userID,
		Message: fmt.Sprintf("busted! jailed for %d minutes", s.cfg.JailMinutes),
	})
	return nil
}

// rollCrate runs the loot drop. The aggregated loot multiplier covers both
// the juicernaut bundle and consumable loot buffs. A full inventory and
// escrow drops the crate on the floor without failing the round.
func (s *Service) rollCrate(ctx context.Context, tx pgx.Tx, res *PlayResult, user *models.User, lootMult float64) error {
	p := s.cfg.CrateDropChance * lootMult
	if s.rng.Float64() >= p {
		return nil
	}
	tier := formulas.RollCrateTier(s.rng, user.StatusTier)
	def, err := s.store.GetItemDefinitionByTier(ctx, tx, models.ItemCrate, tier)
	if err != nil {
		return econerr.Wrap(err, "loading crate definition")
	}
	added, err := s.inv.AddItem(ctx, tx, user.ID, def, inventory.AddOptions{})
	if err != nil {
		if econerr.IsKind(err, econerr.Insufficient) {
			s.log.Debug("crate lost to full inventory", zap.Int64("user_id", user.ID))
			return nil
		}
		return err
	}
	res.CrateAwarded = true
	res.CrateTier = tier
	res.CrateStoredIn = string(added.StoredIn)
	res.Intents = append(res.Intents, models.Intent{
		Kind:    models.IntentCrateAwarded,
		UserID:  user.ID,
		Message: fmt.Sprintf("found a %s crate (%s)", tier, added.StoredIn),
		Data:    map[string]any{"tier": tier, "storedIn": added.StoredIn},
	})
	return nil
}
