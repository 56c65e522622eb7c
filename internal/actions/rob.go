package actions

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/internal/formulas"
	"github.com/grindcity/economy-engine/internal/inventory"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// RobResult reports one robbery attempt from the attacker's side.
type RobResult struct {
	Success        bool            `json:"success"`
	TargetUsername string          `json:"targetUsername"`
	AmountStolen   models.Currency `json:"amountStolen"`
	Insurance      models.Currency `json:"insurance"`
	ItemStolen     string          `json:"itemStolen,omitempty"`
	AttackerJailed bool            `json:"attackerJailed"`
	NewWealth      models.Currency `json:"newWealth"`
	Intents        []models.Intent `json:"-"`
}

// Rob attempts to steal from another player. Both rows are locked in
// ascending id order so two simultaneous robberies between the same pair
// cannot deadlock. Cooldowns are set on both outcomes.
func (s *Service) Rob(ctx context.Context, attackerID int64, targetUsername string) (*RobResult, error) {
	var res RobResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		target, err := s.store.GetUserByUsername(ctx, tx, targetUsername)
		if err != nil {
			if db.IsNoRows(err) {
				return econerr.Newf(econerr.NotFound, econerr.CodeUserNotFound, "no player named %q", targetUsername)
			}
			return econerr.Wrap(err, "resolving rob target")
		}
		if target.ID == attackerID {
			return econerr.New(econerr.Validation, "SELF_TARGET", "you cannot rob yourself")
		}

		attacker, target, err := s.lockPair(ctx, tx, attackerID, target.ID)
		if err != nil {
			return err
		}
		res.TargetUsername = target.Username

		if err := s.cooldowns.RequireNotJailed(ctx, tx, attackerID); err != nil {
			return err
		}
		if err := s.cooldowns.RequireFree(ctx, tx, attackerID, models.CooldownRob, ""); err != nil {
			return err
		}
		targetKey := strconv.FormatInt(target.ID, 10)
		if err := s.cooldowns.RequireFree(ctx, tx, attackerID, models.CooldownRobTarget, targetKey); err != nil {
			return err
		}
		if target.Wealth <= 0 {
			return econerr.Newf(econerr.Policy, "TARGET_BROKE", "%s has nothing worth taking", target.Username)
		}
		immune, err := s.buffs.Has(ctx, tx, target.ID, models.BuffJuicernautImmunity)
		if err != nil {
			return err
		}
		if immune {
			return econerr.Newf(econerr.Policy, "TARGET_IMMUNE", "%s is untouchable right now", target.Username)
		}

		rate, insurancePct, err := s.robRate(ctx, tx, attacker, target)
		if err != nil {
			return err
		}

		if s.rng.Float64() < rate {
			if err := s.robSuccess(ctx, tx, &res, attacker, target, insurancePct); err != nil {
				return err
			}
		} else {
			if err := s.robFailure(ctx, tx, &res, attacker, target); err != nil {
				return err
			}
		}

		if err := s.cooldowns.Set(ctx, tx, attackerID, models.CooldownRob, "",
			time.Duration(s.cfg.RobGlobalCooldownSec)*time.Second); err != nil {
			return err
		}
		return s.cooldowns.Set(ctx, tx, attackerID, models.CooldownRobTarget, targetKey,
			time.Duration(s.cfg.RobTargetCooldownMin)*time.Minute)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// lockPair locks attacker and target rows in ascending id order and applies
// the actor checks to the attacker.
func (s *Service) lockPair(ctx context.Context, tx pgx.Tx, attackerID, targetID int64) (attacker, target *models.User, err error) {
	if attackerID < targetID {
		if attacker, err = s.lockActor(ctx, tx, attackerID); err != nil {
			return nil, nil, err
		}
		if target, err = s.store.GetUserForUpdate(ctx, tx, targetID); err != nil {
			return nil, nil, econerr.Wrap(err, "locking rob target")
		}
		return attacker, target, nil
	}
	if target, err = s.store.GetUserForUpdate(ctx, tx, targetID); err != nil {
		return nil, nil, econerr.Wrap(err, "locking rob target")
	}
	if attacker, err = s.lockActor(ctx, tx, attackerID); err != nil {
		return nil, nil, err
	}
	return attacker, target, nil
}

// robRate folds gear, levels, factions and buffs into the final success
// probability, and reports the defender's insurance fraction from equipped
// housing while the rows are in hand.
func (s *Service) robRate(ctx context.Context, tx pgx.Tx, attacker, target *models.User) (rate, insurancePct float64, err error) {
	var weaponBonus, armorReduction float64
	if weapon, err := s.store.GetEquippedItem(ctx, tx, attacker.ID, models.SlotWeapon); err != nil {
		return 0, 0, econerr.Wrap(err, "loading attacker weapon")
	} else if weapon != nil && weapon.Def != nil {
		weaponBonus = weapon.Def.WeaponBonus
	}
	if armor, err := s.store.GetEquippedItem(ctx, tx, target.ID, models.SlotArmor); err != nil {
		return 0, 0, econerr.Wrap(err, "loading defender armor")
	} else if armor != nil && armor.Def != nil {
		armorReduction = armor.Def.ArmorReduction
	}
	if housing, err := s.store.GetEquippedItem(ctx, tx, target.ID, models.SlotHousing); err != nil {
		return 0, 0, econerr.Wrap(err, "loading defender housing")
	} else if housing != nil && housing.Def != nil {
		insurancePct = housing.Def.InsurancePct
	}

	attackMult, err := s.buffs.Multiplier(ctx, tx, attacker.ID, models.CategoryRobSuccess)
	if err != nil {
		return 0, 0, err
	}
	defenseMult, err := s.buffs.Multiplier(ctx, tx, target.ID, models.CategoryRobDefense)
	if err != nil {
		return 0, 0, err
	}
	attackBonus := attackMult - 1
	defenseBonus := defenseMult - 1
	if attacker.FactionID != nil {
		f, err := s.store.GetFaction(ctx, tx, *attacker.FactionID)
		if err != nil {
			return 0, 0, econerr.Wrap(err, "loading attacker faction")
		}
		attackBonus += f.RobBonus
	}
	if target.FactionID != nil {
		f, err := s.store.GetFaction(ctx, tx, *target.FactionID)
		if err != nil {
			return 0, 0, econerr.Wrap(err, "loading defender faction")
		}
		defenseBonus += f.DefenseBonus
	}

	rate = formulas.RobSuccessRate(attacker.Level, target.Level, weaponBonus, armorReduction, attackBonus, defenseBonus)
	return rate, insurancePct, nil
}

func (s *Service) robSuccess(ctx context.Context, tx pgx.Tx, res *RobResult, attacker, target *models.User, insurancePct float64) error {
	pct := s.cfg.StealPctMin + s.rng.Float64()*(s.cfg.StealPctMax-s.cfg.StealPctMin)
	steal := int64(math.Floor(float64(target.Wealth) * pct))
	insurance := int64(math.Floor(float64(steal) * insurancePct))

	// Insurance is paid by the house: the defender loses the stolen amount
	// but recovers the insured part, the attacker keeps the full take.
	if _, err := s.store.CreditWealth(ctx, tx, target.ID, -steal+insurance); err != nil {
		return econerr.Wrap(err, "debiting defender")
	}
	newWealth, err := s.store.CreditWealth(ctx, tx, attacker.ID, steal)
	if err != nil {
		return econerr.Wrap(err, "crediting attacker")
	}

	if err := s.maybeStealItem(ctx, tx, res, attacker.ID, target.ID); err != nil {
		return err
	}

	if _, err := s.inv.DegradeDefenderArmor(ctx, tx, target.ID); err != nil {
		return err
	}
	if _, err := s.inv.DegradeAttackerWeapon(ctx, tx, attacker.ID); err != nil {
		return err
	}

	desc := fmt.Sprintf("robbed %s for %d", target.Username, steal)
	if res.ItemStolen != "" {
		desc += fmt.Sprintf(" and their %s", res.ItemStolen)
	}
	if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
		UserID:       attacker.ID,
		EventType:    "rob",
		WealthChange: models.Currency(steal),
		Success:      true,
		Description:  desc,
	}); err != nil {
		return econerr.Wrap(err, "recording rob")
	}
	if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
		UserID:       target.ID,
		EventType:    "robbed",
		WealthChange: models.Currency(insurance - steal),
		Success:      false,
		Description:  fmt.Sprintf("robbed by %s, lost %d (%d insured)", attacker.Username, steal, insurance),
	}); err != nil {
		return econerr.Wrap(err, "recording rob")
	}

	if err := s.missions.Progress(ctx, tx, attacker, models.ObjectiveRobSuccess, 1); err != nil {
		return err
	}
	if err := s.missions.Progress(ctx, tx, attacker, models.ObjectiveWealthEarned, steal); err != nil {
		return err
	}
	if err := s.store.IncrementAchievement(ctx, tx, attacker.ID, achievementRobs, 1, achievementRobsGoal); err != nil {
		return econerr.Wrap(err, "advancing achievement")
	}

	res.Success = true
	res.AmountStolen = models.Currency(steal)
	res.Insurance = models.Currency(insurance)
	res.NewWealth = newWealth
	res.Intents = append(res.Intents,
		models.Intent{
			Kind:    models.IntentChat,
			UserID:  attacker.ID,
			Message: fmt.Sprintf("%s robbed %s for %d!", attacker.Username, target.Username, steal),
		},
		models.Intent{
			Kind:     models.IntentRobAlert,
			UserID:   target.ID,
			Username: target.Username,
			Title:    "You were robbed",
			Message:  fmt.Sprintf("%s took %d from you (%d covered by insurance)", attacker.Username, steal, insurance),
		})
	return nil
}

func (s *Service) robFailure(ctx context.Context, tx pgx.Tx, res *RobResult, attacker, target *models.User) error {
	jail := time.Duration(s.cfg.JailMinutes) * time.Minute
	if err := s.cooldowns.Jail(ctx, tx, attacker.ID, jail); err != nil {
		return err
	}
	if _, err := s.inv.DegradeAttackerWeapon(ctx, tx, attacker.ID); err != nil {
		return err
	}

	if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
		UserID:      attacker.ID,
		EventType:   "rob_failed",
		Success:     false,
		Description: fmt.Sprintf("caught robbing %s, jailed for %d minutes", target.Username, s.cfg.JailMinutes),
	}); err != nil {
		return econerr.Wrap(err, "recording failed rob")
	}
	if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
		UserID:      target.ID,
		EventType:   "rob_failed",
		Success:     true,
		Description: fmt.Sprintf("fought off a robbery by %s", attacker.Username),
	}); err != nil {
		return econerr.Wrap(err, "recording failed rob")
	}

	res.AttackerJailed = true
	res.NewWealth = models.Currency(attacker.Wealth)
	res.Intents = append(res.Intents,
		models.Intent{
			Kind:    models.IntentChat,
			UserID:  attacker.ID,
			Message: fmt.Sprintf("%s got caught robbing %s and is in jail!", attacker.Username, target.Username),
		},
		models.Intent{
			Kind:     models.IntentRobAlert,
			UserID:   target.ID,
			Username: target.Username,
			Title:    "Robbery attempt",
			Message:  fmt.Sprintf("%s tried to rob you and failed", attacker.Username),
		})
	return nil
}

// maybeStealItem rolls the item grab. A full attacker inventory or an empty
// defender inventory skips the grab without failing the robbery.
func (s *Service) maybeStealItem(ctx context.Context, tx pgx.Tx, res *RobResult, attackerID, targetID int64) error {
	if s.rng.Float64() >= s.cfg.ItemStealChance {
		return nil
	}
	item, err := s.store.PickStealableItem(ctx, tx, targetID)
	if err != nil {
		return econerr.Wrap(err, "picking stealable item")
	}
	if item == nil {
		return nil
	}
	dur := item.Durability
	if _, err := s.inv.AddItem(ctx, tx, attackerID, item.Def, inventory.AddOptions{Durability: &dur}); err != nil {
		if econerr.IsKind(err, econerr.Insufficient) || econerr.IsKind(err, econerr.Policy) {
			s.log.Debug("item steal skipped", zap.Int64("attacker_id", attackerID), zap.String("code", econerr.CodeOf(err)))
			return nil
		}
		return err
	}
	if err := s.store.DeleteInventoryItem(ctx, tx, item.ID); err != nil {
		return econerr.Wrap(err, "removing stolen item")
	}
	if item.Def != nil {
		res.ItemStolen = item.Def.Name
	}
	return nil
}
