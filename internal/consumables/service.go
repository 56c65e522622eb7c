// Package consumables sells and redeems catalog items. Duration items turn
// into buffs at purchase time; single-use items sit in per-user stock until
// redeemed for their effect.
package consumables

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/buffs"
	"github.com/grindcity/economy-engine/internal/cooldown"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// Effect keys for single-use items.
const (
	EffectJailFree         = "jail_free"
	EffectRobCooldownClear = "rob_cooldown_clear"
)

// BuyResult reports one purchase. Quantity is set for single-use items,
// BuffOutcome for duration items.
type BuyResult struct {
	Name        string              `json:"name"`
	Cost        models.Currency     `json:"cost"`
	NewWealth   models.Currency     `json:"newWealth"`
	Quantity    int                 `json:"quantity,omitempty"`
	BuffOutcome models.ApplyOutcome `json:"buffOutcome,omitempty"`
}

// UseResult reports one redemption.
type UseResult struct {
	Name      string `json:"name"`
	Effect    string `json:"effect"`
	Remaining int    `json:"remaining"`
}

type Service struct {
	store     *db.Store
	buffs     *buffs.Service
	cooldowns *cooldown.Service
	log       *zap.Logger
}

func NewService(store *db.Store, buffSvc *buffs.Service, cooldownSvc *cooldown.Service, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		buffs:     buffSvc,
		cooldowns: cooldownSvc,
		log:       log.Named("consumables"),
	}
}

// Catalog returns every purchasable consumable.
func (s *Service) Catalog(ctx context.Context, q db.Querier) ([]models.Consumable, error) {
	items, err := s.store.ListConsumables(ctx, q)
	if err != nil {
		return nil, econerr.Wrap(err, "listing catalog")
	}
	return items, nil
}

// Stock returns the user's single-use holdings.
func (s *Service) Stock(ctx context.Context, q db.Querier, userID int64) ([]models.UserConsumable, error) {
	rows, err := s.store.ListConsumableStock(ctx, q, userID)
	if err != nil {
		return nil, econerr.Wrap(err, "listing stock")
	}
	return rows, nil
}

// Buy purchases one consumable. Duration items apply their buff first: a
// refused downgrade aborts the purchase before any charge. Single-use items
// are stocked under max_owned, with the cap inside the upsert's WHERE.
func (s *Service) Buy(ctx context.Context, q db.Querier, userID, consumableID int64) (*BuyResult, error) {
	c, err := s.store.GetConsumable(ctx, q, consumableID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, econerr.New(econerr.NotFound, "CONSUMABLE_NOT_FOUND", "no such consumable")
		}
		return nil, econerr.Wrap(err, "loading consumable")
	}
	user, err := s.store.GetUserForUpdate(ctx, q, userID)
	if err != nil {
		return nil, econerr.Wrap(err, "locking user")
	}
	if user.Wealth < c.Cost {
		return nil, econerr.Newf(econerr.Insufficient, econerr.CodeInsufficientWealth,
			"%s costs %d", c.Name, c.Cost)
	}

	res := &BuyResult{Name: c.Name, Cost: models.Currency(c.Cost)}
	switch {
	case c.IsDurationBuff:
		applied, err := s.buffs.Apply(ctx, q, userID, c.BuffKey, c.BuffCategory, c.BuffValue, c.DurationHours, models.SourceConsumable)
		if err != nil {
			return nil, err
		}
		if applied.Outcome == models.ApplyNoOp {
			return nil, econerr.Newf(econerr.Policy, "BUFF_DOWNGRADE",
				"a stronger %s buff is already active", c.BuffCategory)
		}
		res.BuffOutcome = applied.Outcome
	case c.IsSingleUse:
		ok, err := s.store.AddConsumableStock(ctx, q, userID, c.ID, c.MaxOwned)
		if err != nil {
			return nil, econerr.Wrap(err, "stocking consumable")
		}
		if !ok {
			return nil, econerr.Newf(econerr.Policy, "STOCK_FULL",
				"you already hold the maximum of %d", c.MaxOwned)
		}
		qty, err := s.store.GetConsumableStock(ctx, q, userID, c.ID)
		if err != nil {
			return nil, econerr.Wrap(err, "reading stock")
		}
		res.Quantity = qty
	default:
		return nil, econerr.New(econerr.Internal, econerr.CodeInternal, "malformed catalog row")
	}

	newWealth, err := s.store.CreditWealth(ctx, q, userID, -c.Cost)
	if err != nil {
		return nil, econerr.Wrap(err, "charging purchase")
	}
	res.NewWealth = newWealth
	if err := s.store.RecordConsumablePurchase(ctx, q, userID, c.ID, c.Cost); err != nil {
		return nil, econerr.Wrap(err, "recording purchase")
	}
	if err := s.store.AppendGameEvent(ctx, q, &models.GameEvent{
		UserID:       userID,
		EventType:    "consumable_buy",
		WealthChange: models.Currency(-c.Cost),
		Success:      true,
		Description:  fmt.Sprintf("bought %s", c.Name),
	}); err != nil {
		return nil, econerr.Wrap(err, "recording purchase event")
	}
	return res, nil
}

// Use redeems one unit of a single-use consumable for its effect. The
// effect's precondition is checked before stock is consumed so a wasted
// redemption rolls back whole.
func (s *Service) Use(ctx context.Context, q db.Querier, userID, consumableID int64) (*UseResult, error) {
	c, err := s.store.GetConsumable(ctx, q, consumableID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, econerr.New(econerr.NotFound, "CONSUMABLE_NOT_FOUND", "no such consumable")
		}
		return nil, econerr.Wrap(err, "loading consumable")
	}
	if !c.IsSingleUse {
		return nil, econerr.New(econerr.Validation, econerr.CodeInvalidInput,
			"duration items take effect at purchase")
	}

	switch c.EffectKey {
	case EffectJailFree:
		st, err := s.cooldowns.JailStatus(ctx, q, userID)
		if err != nil {
			return nil, err
		}
		if !st.Active {
			return nil, econerr.New(econerr.Policy, "NOT_JAILED", "you are not in jail")
		}
	case EffectRobCooldownClear:
		// No precondition: clearing zero rows still spends the kit.
	default:
		s.log.Error("consumable has unknown effect key",
			zap.Int64("consumable_id", c.ID), zap.String("effect_key", c.EffectKey))
		return nil, econerr.New(econerr.Internal, econerr.CodeInternal, "effect not implemented")
	}

	ok, err := s.store.ConsumeStock(ctx, q, userID, c.ID)
	if err != nil {
		return nil, econerr.Wrap(err, "consuming stock")
	}
	if !ok {
		return nil, econerr.Newf(econerr.Insufficient, "NO_STOCK", "you have no %s", c.Name)
	}

	switch c.EffectKey {
	case EffectJailFree:
		if err := s.cooldowns.Clear(ctx, q, userID, models.CooldownJail, ""); err != nil {
			return nil, err
		}
	case EffectRobCooldownClear:
		if _, err := s.cooldowns.ClearCommand(ctx, q, userID, models.CooldownRob); err != nil {
			return nil, err
		}
		if _, err := s.cooldowns.ClearCommand(ctx, q, userID, models.CooldownRobTarget); err != nil {
			return nil, err
		}
	}

	remaining, err := s.store.GetConsumableStock(ctx, q, userID, c.ID)
	if err != nil {
		return nil, econerr.Wrap(err, "reading stock")
	}
	if err := s.store.AppendGameEvent(ctx, q, &models.GameEvent{
		UserID:      userID,
		EventType:   "consumable_use",
		Success:     true,
		Description: fmt.Sprintf("used %s", c.Name),
	}); err != nil {
		return nil, econerr.Wrap(err, "recording use event")
	}
	return &UseResult{Name: c.Name, Effect: c.EffectKey, Remaining: remaining}, nil
}
