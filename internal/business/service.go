// Package business runs the passive revenue schedule. Every equipped
// business pays out a slice of its daily figures per collection tick, with
// a uniform variance roll on the gross side.
package business

import (
	"context"
	"math"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/config"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/internal/formulas"
	"github.com/grindcity/economy-engine/pkg/models"
)

// Service collects business revenue and serves P&L history.
type Service struct {
	store *db.Store
	cfg   *config.Economy
	rng   clock.RNG
	log   *zap.Logger
}

func NewService(store *db.Store, cfg *config.Economy, rng clock.RNG, log *zap.Logger) *Service {
	return &Service{store: store, cfg: cfg, rng: rng, log: log.Named("business")}
}

// Accrue computes one tick's P&L for a business definition. Gross is the
// per-tick base plus a uniform variance in [-V, +V]; operating cost is flat
// per tick; net never goes below zero, a bad day costs nothing extra.
func Accrue(rng clock.RNG, def *models.ItemDefinition, collections int, variancePct float64) (gross, cost, net int64) {
	base := def.DailyRevenue / int64(collections)
	v := int64(math.Floor(float64(base) * variancePct))
	gross = base + formulas.UniformInt(rng, -v, v)
	cost = def.OperatingCost / int64(collections)
	net = gross - cost
	if net < 0 {
		net = 0
	}
	return gross, cost, net
}

// CollectAll runs one revenue tick over every user with an equipped
// business. Each payout commits on its own so one failing row never blocks
// the sweep. Returns how many users were paid and the total credited.
func (s *Service) CollectAll(ctx context.Context) (paid int, total models.Currency, err error) {
	items, err := s.store.ListUsersWithEquippedBusiness(ctx, s.store.Pool())
	if err != nil {
		return 0, 0, err
	}
	for _, item := range items {
		if item.Def == nil {
			continue
		}
		gross, cost, net := Accrue(s.rng, item.Def, s.cfg.BusinessCollections, s.cfg.BusinessVariancePct)
		userID, defID := item.UserID, item.ItemDefID
		err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
			if net > 0 {
				if _, err := s.store.CreditWealth(ctx, tx, userID, net); err != nil {
					return err
				}
			}
			return s.store.AppendBusinessRevenue(ctx, tx, &models.BusinessRevenue{
				UserID:        userID,
				ItemDefID:     defID,
				GrossRevenue:  models.Currency(gross),
				OperatingCost: models.Currency(cost),
				NetRevenue:    models.Currency(net),
			})
		})
		if err != nil {
			s.log.Error("business payout failed", zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		paid++
		total += models.Currency(net)
	}
	if paid > 0 {
		s.log.Info("business revenue collected", zap.Int("users", paid), zap.Int64("total", int64(total)))
	}
	return paid, total, nil
}

// History returns a user's recent P&L lines.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]models.BusinessRevenue, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListBusinessRevenue(ctx, s.store.Pool(), userID, limit)
}
