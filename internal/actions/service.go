// Package actions implements the core economy commands: play, rob, bail
// and the daily check-in. Each command owns one transaction; chat and
// overlay side effects come back as intents for the caller to dispatch
// after commit.
package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/buffs"
	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/config"
	"github.com/grindcity/economy-engine/internal/cooldown"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/internal/inventory"
	"github.com/grindcity/economy-engine/internal/missions"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// Achievement keys advanced by commands.
const (
	achievementPlays      = "plays_total"
	achievementRobs       = "robs_success"
	achievementStreak     = "checkin_streak"
	achievementPlaysGoal  = 1000
	achievementRobsGoal   = 100
	achievementStreakGoal = 30
)

type Service struct {
	store     *db.Store
	buffs     *buffs.Service
	cooldowns *cooldown.Service
	inv       *inventory.Service
	missions  *missions.Service
	cfg       *config.Economy
	clock     clock.Clock
	rng       clock.RNG
	log       *zap.Logger
}

func NewService(store *db.Store, buffSvc *buffs.Service, cooldownSvc *cooldown.Service,
	inv *inventory.Service, missionSvc *missions.Service, cfg *config.Economy,
	clk clock.Clock, rng clock.RNG, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		buffs:     buffSvc,
		cooldowns: cooldownSvc,
		inv:       inv,
		missions:  missionSvc,
		cfg:       cfg,
		clock:     clk,
		rng:       rng,
		log:       log.Named("actions"),
	}
}

// lockActor loads and row-locks the acting user, refusing tombstones and
// bans. Every command transaction starts here so per-user work serializes
// on the user row.
func (s *Service) lockActor(ctx context.Context, q db.Querier, userID int64) (*models.User, error) {
	user, err := s.store.GetUserForUpdate(ctx, q, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, econerr.New(econerr.NotFound, econerr.CodeUserNotFound, "user not found")
		}
		return nil, econerr.Wrap(err, "locking user")
	}
	if user.Merged() {
		return nil, econerr.New(econerr.Policy, econerr.CodeUserMerged, "this account was merged")
	}
	if user.IsBanned {
		return nil, econerr.New(econerr.Authz, econerr.CodeUserBanned, "this account is banned")
	}
	return user, nil
}

// BailResult is the bail command's view: the cooldown layer's receipt plus
// any level progress from mission hooks.
type BailResult struct {
	*cooldown.BailResult
	Intents []models.Intent `json:"-"`
}

// Bail pays the user out of jail and advances bail-related missions in the
// same transaction.
func (s *Service) Bail(ctx context.Context, userID int64) (*BailResult, error) {
	var res BailResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		user, err := s.lockActor(ctx, tx, userID)
		if err != nil {
			return err
		}
		paid, err := s.cooldowns.PayBail(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := s.missions.Progress(ctx, tx, user, models.ObjectiveBailPaid, 1); err != nil {
			return err
		}
		res.BailResult = paid
		res.Intents = append(res.Intents, models.Intent{
			Kind:    models.IntentChat,
			UserID:  userID,
			Message: bailMessage(paid),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func bailMessage(r *cooldown.BailResult) string {
	if r.WasFree {
		return "you were released without bail"
	}
	return fmt.Sprintf("you paid %d bail and walked free", r.Cost)
}

// CheckinResult reports the daily check-in.
type CheckinResult struct {
	Streak    int             `json:"streak"`
	Reward    models.Currency `json:"reward"`
	NewWealth models.Currency `json:"newWealth"`
	Intents   []models.Intent `json:"-"`
}

// Checkin pays the daily streak reward. The streak grows while the user
// checked in the previous UTC day and resets otherwise; the reward scales
// with the streak up to the configured cap. One check-in per UTC day,
// enforced by a cooldown that expires at the next midnight.
func (s *Service) Checkin(ctx context.Context, userID int64) (*CheckinResult, error) {
	var res CheckinResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		user, err := s.lockActor(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := s.cooldowns.RequireFree(ctx, tx, userID, models.CooldownCheckin, ""); err != nil {
			return err
		}
		now := s.clock.Now()
		streak := 1
		if user.LastCheckinAt != nil && sameUTCDay(user.LastCheckinAt.AddDate(0, 0, 1), now) {
			streak = user.CheckinStreak + 1
		}
		multiple := streak
		if multiple > s.cfg.CheckinStreakCap {
			multiple = s.cfg.CheckinStreakCap
		}
		reward := s.cfg.CheckinBaseReward * int64(multiple)

		newWealth, err := s.store.CreditWealth(ctx, tx, userID, reward)
		if err != nil {
			return econerr.Wrap(err, "crediting check-in")
		}
		if err := s.store.SetCheckin(ctx, tx, userID, streak, now); err != nil {
			return econerr.Wrap(err, "recording check-in")
		}
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
		if err := s.cooldowns.Set(ctx, tx, userID, models.CooldownCheckin, "", midnight.Sub(now)); err != nil {
			return err
		}
		if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
			UserID:       userID,
			EventType:    "checkin",
			WealthChange: models.Currency(reward),
			Success:      true,
			Description:  fmt.Sprintf("day %d check-in", streak),
		}); err != nil {
			return econerr.Wrap(err, "recording check-in event")
		}
		if err := s.missions.Progress(ctx, tx, user, models.ObjectiveCheckin, 1); err != nil {
			return err
		}
		if err := s.store.UpsertAchievementProgress(ctx, tx, userID, achievementStreak,
			int64(streak), streak >= achievementStreakGoal); err != nil {
			return econerr.Wrap(err, "advancing achievement")
		}

		res.Streak = streak
		res.Reward = models.Currency(reward)
		res.NewWealth = newWealth
		res.Intents = append(res.Intents, models.Intent{
			Kind:    models.IntentChat,
			UserID:  userID,
			Message: fmt.Sprintf("checked in, day %d: +%d", streak, reward),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func sameUTCDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
