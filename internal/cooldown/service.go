// Package cooldown owns the command throttle table and the jail state,
// which is a cooldown row with command type "jail". Writes are WHERE-guarded
// upserts so concurrent commands cannot double-set or double-clear a lock.
package cooldown

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/config"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/internal/formulas"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// Status is the caller-facing view of one lock.
type Status struct {
	Active           bool       `json:"active"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	RemainingSeconds int64      `json:"remainingSeconds"`
}

// BailResult reports what PayBail charged and cleared.
type BailResult struct {
	Cost      models.Currency `json:"bailCost"`
	NewWealth models.Currency `json:"newWealth"`
	WasFree   bool            `json:"wasFree"`
}

type Service struct {
	store *db.Store
	cfg   *config.Economy
	clock clock.Clock
	log   *zap.Logger
}

func NewService(store *db.Store, cfg *config.Economy, clk clock.Clock, log *zap.Logger) *Service {
	return &Service{store: store, cfg: cfg, clock: clk, log: log.Named("cooldown")}
}

// Get reports the lock state for one (command, target) pair. A row past its
// expiry reads as inactive even before the sweep removes it.
func (s *Service) Get(ctx context.Context, q db.Querier, userID int64, commandType, target string) (*Status, error) {
	cd, err := s.store.GetCooldown(ctx, q, userID, commandType, target)
	if err != nil {
		return nil, econerr.Wrap(err, "loading cooldown")
	}
	now := s.clock.Now()
	if cd == nil || !cd.Active(now) {
		return &Status{}, nil
	}
	return &Status{
		Active:           true,
		ExpiresAt:        &cd.ExpiresAt,
		RemainingSeconds: int64(cd.Remaining(now).Seconds()) + 1,
	}, nil
}

// Set arms the lock for d from now, replacing any earlier expiry.
func (s *Service) Set(ctx context.Context, q db.Querier, userID int64, commandType, target string, d time.Duration) error {
	if err := s.store.UpsertCooldown(ctx, q, userID, commandType, target, s.clock.Now().Add(d)); err != nil {
		return econerr.Wrap(err, "setting cooldown")
	}
	return nil
}

// Clear removes the lock. Clearing an absent lock is not an error.
func (s *Service) Clear(ctx context.Context, q db.Querier, userID int64, commandType, target string) error {
	if err := s.store.DeleteCooldown(ctx, q, userID, commandType, target); err != nil {
		return econerr.Wrap(err, "clearing cooldown")
	}
	return nil
}

// ClearCommand removes every lock of one command type, targeted rows
// included. Returns how many rows went away.
func (s *Service) ClearCommand(ctx context.Context, q db.Querier, userID int64, commandType string) (int64, error) {
	n, err := s.store.DeleteCooldownsByCommand(ctx, q, userID, commandType)
	if err != nil {
		return 0, econerr.Wrap(err, "clearing cooldowns")
	}
	return n, nil
}

// ClearAll wipes every cooldown a user holds, jail included.
func (s *Service) ClearAll(ctx context.Context, q db.Querier, userID int64) (int64, error) {
	n, err := s.store.DeleteAllCooldowns(ctx, q, userID)
	if err != nil {
		return 0, econerr.Wrap(err, "clearing cooldowns")
	}
	return n, nil
}

// RequireFree fails with a Cooldown-kind error while the lock is active.
func (s *Service) RequireFree(ctx context.Context, q db.Querier, userID int64, commandType, target string) error {
	st, err := s.Get(ctx, q, userID, commandType, target)
	if err != nil {
		return err
	}
	if st.Active {
		return econerr.Newf(econerr.Cooldown, econerr.CodeOnCooldown,
			"%s available in %s", commandType, formatRemaining(st.RemainingSeconds))
	}
	return nil
}

// ─── Jail ────────────────────────────────────────────────────────────

// JailStatus reports whether the user sits in jail and for how long.
func (s *Service) JailStatus(ctx context.Context, q db.Querier, userID int64) (*Status, error) {
	return s.Get(ctx, q, userID, models.CooldownJail, "")
}

// Jail locks the user out of wealth-generating commands for the given
// duration. Re-jailing extends from now, not from the old expiry.
func (s *Service) Jail(ctx context.Context, q db.Querier, userID int64, d time.Duration) error {
	return s.Set(ctx, q, userID, models.CooldownJail, "", d)
}

// RequireNotJailed fails with a Cooldown-kind error while jailed.
func (s *Service) RequireNotJailed(ctx context.Context, q db.Querier, userID int64) error {
	st, err := s.JailStatus(ctx, q, userID)
	if err != nil {
		return err
	}
	if st.Active {
		return econerr.Newf(econerr.Cooldown, econerr.CodeJailed,
			"you are in jail for another %s", formatRemaining(st.RemainingSeconds))
	}
	return nil
}

// PayBail charges a tenth of wealth (floored at MIN_BAIL) and clears the jail
// row. A player below MIN_BAIL walks free for nothing. Runs against the
// caller's transaction: the wealth debit, the jail delete and the event row
// commit or roll back together. Fails Cooldown-kind when not jailed.
func (s *Service) PayBail(ctx context.Context, q db.Querier, userID int64) (*BailResult, error) {
	st, err := s.JailStatus(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	if !st.Active {
		return nil, econerr.New(econerr.Cooldown, "NOT_JAILED", "you are not in jail")
	}

	user, err := s.store.GetUserForUpdate(ctx, q, userID)
	if err != nil {
		return nil, econerr.Wrap(err, "locking user for bail")
	}

	cost := formulas.BailCost(user.Wealth, s.cfg.MinBail)
	newWealth := models.Currency(user.Wealth)
	if cost > 0 {
		newWealth, err = s.store.CreditWealth(ctx, q, userID, -cost)
		if err != nil {
			return nil, econerr.Wrap(err, "debiting bail")
		}
	}
	if err := s.Clear(ctx, q, userID, models.CooldownJail, ""); err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("paid %d bail", cost)
	if cost == 0 {
		desc = "released without bail"
	}
	if err := s.store.AppendGameEvent(ctx, q, &models.GameEvent{
		UserID:       userID,
		EventType:    "bail",
		WealthChange: models.Currency(-cost),
		Success:      true,
		Description:  desc,
	}); err != nil {
		return nil, econerr.Wrap(err, "recording bail")
	}

	return &BailResult{Cost: models.Currency(cost), NewWealth: newWealth, WasFree: cost == 0}, nil
}

// Sweep deletes rows past expiry. Runs from the scheduler; active reads do
// not depend on it.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.SweepExpiredCooldowns(ctx, s.store.Pool(), s.clock.Now())
	if err != nil {
		return 0, econerr.Wrap(err, "sweeping cooldowns")
	}
	if n > 0 {
		s.log.Debug("swept expired cooldowns", zap.Int64("rows", n))
	}
	return n, nil
}

// List returns the user's live locks, jail included.
func (s *Service) List(ctx context.Context, q db.Querier, userID int64) ([]models.Cooldown, error) {
	rows, err := s.store.ListCooldowns(ctx, q, userID, s.clock.Now())
	if err != nil {
		return nil, econerr.Wrap(err, "listing cooldowns")
	}
	return rows, nil
}

func formatRemaining(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	if d >= time.Hour {
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
