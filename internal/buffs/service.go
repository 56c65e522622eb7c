// Package buffs manages time-limited multiplicative modifiers with
// source-aware stacking: re-applying a stronger buff replaces, an equal one
// extends, a weaker one is refused.
package buffs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// ApplyResult reports what Apply did and the row's resulting state.
type ApplyResult struct {
	Outcome           models.ApplyOutcome `json:"outcome"`
	Multiplier        float64             `json:"multiplier"`
	ExpiresAt         *time.Time          `json:"expiresAt,omitempty"`
	PreviousRemaining time.Duration       `json:"-"`
}

type Service struct {
	store *db.Store
	clock clock.Clock
	log   *zap.Logger
}

func NewService(store *db.Store, clk clock.Clock, log *zap.Logger) *Service {
	return &Service{store: store, clock: clk, log: log.Named("buffs")}
}

// Apply upserts the buff row for (user, buffType) under the stacking
// algebra. Runs inside the caller's transaction; the existing row is locked
// before deciding.
func (s *Service) Apply(ctx context.Context, q db.Querier, userID int64, buffType, category string, multiplier, durationHours float64, source models.BuffSource) (*ApplyResult, error) {
	if multiplier < 1.0 {
		return nil, econerr.Newf(econerr.Validation, econerr.CodeInvalidInput,
			"buff multiplier %.2f below 1.0", multiplier)
	}
	now := s.clock.Now()
	duration := time.Duration(durationHours * float64(time.Hour))

	existing, err := s.store.GetActiveBuff(ctx, q, userID, buffType)
	if err != nil {
		return nil, econerr.Wrap(err, "loading buff")
	}

	d := Decide(existing, multiplier, duration, now)
	res := &ApplyResult{
		Outcome:           d.Outcome,
		Multiplier:        d.Multiplier,
		ExpiresAt:         d.ExpiresAt,
		PreviousRemaining: d.PreviousRemaining,
	}

	switch d.Outcome {
	case models.ApplyNoOp:
		return res, nil
	case models.ApplyNew:
		// The dead row, if any, still holds the (user, buff_type) active
		// slot until the sweep runs; reuse it instead of inserting.
		if existing != nil {
			err = s.store.UpdateBuff(ctx, q, existing.ID, d.Multiplier, source, d.ExpiresAt)
		} else {
			_, err = s.store.InsertBuff(ctx, q, &models.ActiveBuff{
				UserID:     userID,
				BuffType:   buffType,
				Category:   category,
				Multiplier: d.Multiplier,
				Source:     source,
				ExpiresAt:  d.ExpiresAt,
			})
		}
	default:
		err = s.store.UpdateBuff(ctx, q, existing.ID, d.Multiplier, source, d.ExpiresAt)
	}
	if err != nil {
		return nil, econerr.Wrap(err, "writing buff")
	}
	return res, nil
}

// Multiplier returns the effective C·T·J product for one category, 1.0
// when nothing is live.
func (s *Service) Multiplier(ctx context.Context, q db.Querier, userID int64, category string) (float64, error) {
	now := s.clock.Now()
	rows, err := s.store.ListLiveBuffsByCategory(ctx, q, userID, category, now)
	if err != nil {
		return 1.0, econerr.Wrap(err, "loading buffs")
	}
	return Aggregate(rows, now), nil
}

// Multipliers returns the effective multiplier per category in one query,
// for commands that read several channels.
func (s *Service) Multipliers(ctx context.Context, q db.Querier, userID int64) (map[string]float64, error) {
	now := s.clock.Now()
	rows, err := s.store.ListLiveBuffs(ctx, q, userID, now)
	if err != nil {
		return nil, econerr.Wrap(err, "loading buffs")
	}
	byCategory := make(map[string][]models.ActiveBuff)
	for _, b := range rows {
		byCategory[b.Category] = append(byCategory[b.Category], b)
	}
	out := make(map[string]float64, len(byCategory))
	for cat, group := range byCategory {
		out[cat] = Aggregate(group, now)
	}
	return out, nil
}

// Has reports whether the exact buff type is live.
func (s *Service) Has(ctx context.Context, q db.Querier, userID int64, buffType string) (bool, error) {
	return s.store.HasLiveBuff(ctx, q, userID, buffType, s.clock.Now())
}

// IsJuicernaut reports whether any juicernaut bundle buff is live.
func (s *Service) IsJuicernaut(ctx context.Context, q db.Querier, userID int64) (bool, error) {
	return s.store.HasLiveBuffPrefix(ctx, q, userID, models.JuicernautPrefix, s.clock.Now())
}

// GrantJuicernaut installs the session-leader bundle: XP, wealth and loot
// multipliers plus rob immunity, all expiring together.
func (s *Service) GrantJuicernaut(ctx context.Context, q db.Querier, userID int64, multiplier, durationHours float64) error {
	bundle := []struct {
		buffType string
		category string
		mult     float64
	}{
		{models.BuffJuicernautXP, models.CategoryXPMultiplier, multiplier},
		{models.BuffJuicernautWealth, models.CategoryWealthMultiplier, multiplier},
		{models.BuffJuicernautLoot, models.CategoryLootChance, multiplier},
		{models.BuffJuicernautImmunity, models.CategoryRobImmunity, 1.0},
	}
	for _, b := range bundle {
		if _, err := s.Apply(ctx, q, userID, b.buffType, b.category, b.mult, durationHours, models.SourceJuicernaut); err != nil {
			return err
		}
	}
	return nil
}

// RevokeJuicernaut retires the bundle when the crown moves on.
func (s *Service) RevokeJuicernaut(ctx context.Context, q db.Querier, userID int64) error {
	_, err := s.store.DeactivateBuffsBySource(ctx, q, userID, models.SourceJuicernaut)
	if err != nil {
		return econerr.Wrap(err, "revoking juicernaut")
	}
	return nil
}

// List returns the user's live buffs for the profile view.
func (s *Service) List(ctx context.Context, q db.Querier, userID int64) ([]models.ActiveBuff, error) {
	return s.store.ListLiveBuffs(ctx, q, userID, s.clock.Now())
}

// Sweep retires expired rows. Called by the scheduler.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.SweepExpiredBuffs(ctx, s.store.Pool(), s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Debug("expired buffs swept", zap.Int64("rows", n))
	}
	return n, nil
}
