// Package gambling implements the four wager games: slots feeding a
// progressive jackpot, blackjack against the house, PvP coin flips with
// escrowed stakes, and the pooled lottery. Every resolution commits in one
// transaction; randomness is drawn inside it.
package gambling

import (
	"context"

	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/config"
	"github.com/grindcity/economy-engine/internal/cooldown"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/internal/formulas"
	"github.com/grindcity/economy-engine/internal/missions"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// Service runs the gambling tables.
type Service struct {
	store     *db.Store
	cooldowns *cooldown.Service
	missions  *missions.Service
	cfg       *config.Economy
	clock     clock.Clock
	rng       clock.RNG
	log       *zap.Logger
}

func NewService(store *db.Store, cooldowns *cooldown.Service, ms *missions.Service,
	cfg *config.Economy, clk clock.Clock, rng clock.RNG, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		cooldowns: cooldowns,
		missions:  ms,
		cfg:       cfg,
		clock:     clk,
		rng:       rng,
		log:       log.Named("gambling"),
	}
}

// lockGambler locks the user row and runs the common table checks: live
// account, not jailed, wager inside the tier's window, funds present. The
// caller debits under the same lock.
func (s *Service) lockGambler(ctx context.Context, q db.Querier, userID, wager int64) (*models.User, error) {
	user, err := s.lockUser(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cooldowns.RequireNotJailed(ctx, q, userID); err != nil {
		return nil, err
	}
	if wager < s.cfg.MinBet {
		return nil, econerr.Newf(econerr.Validation, "WAGER_TOO_SMALL", "minimum bet is %d", s.cfg.MinBet)
	}
	if max := formulas.MaxBetForTier(s.cfg.MaxBetBase, user.StatusTier); wager > max {
		return nil, econerr.Newf(econerr.Policy, "WAGER_ABOVE_TIER_MAX", "your tier caps bets at %d", max)
	}
	if user.Wealth < wager {
		return nil, econerr.New(econerr.Insufficient, econerr.CodeInsufficientWealth, "not enough wealth for that bet")
	}
	return user, nil
}

// lockUser is the bare actor lock without wager checks, for mid-hand moves
// and ticket purchases.
func (s *Service) lockUser(ctx context.Context, q db.Querier, userID int64) (*models.User, error) {
	user, err := s.store.GetUserForUpdate(ctx, q, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, econerr.New(econerr.NotFound, econerr.CodeUserNotFound, "unknown player")
		}
		return nil, econerr.Wrap(err, "locking gambler")
	}
	if user.Merged() {
		return nil, econerr.New(econerr.NotFound, econerr.CodeUserMerged, "account was merged")
	}
	if user.IsBanned {
		return nil, econerr.New(econerr.Authz, econerr.CodeUserBanned, "account is banned")
	}
	return user, nil
}

// settleStats folds one resolved wager into the lifetime record. Wins
// extend the streak, losses break it, pushes leave it alone.
func settleStats(st *models.GamblingStats, wager, payout int64) {
	st.TotalWagered += wager
	st.TotalWon += payout
	st.GamesPlayed++
	net := payout - wager
	switch {
	case net > 0:
		st.GamesWon++
		st.CurrentStreak++
		if st.CurrentStreak > st.BestStreak {
			st.BestStreak = st.CurrentStreak
		}
		if net > st.BiggestWin {
			st.BiggestWin = net
		}
	case net < 0:
		st.CurrentStreak = 0
		if -net > st.BiggestLoss {
			st.BiggestLoss = -net
		}
	}
}

// settle updates the stats row under lock and advances the gambling-win
// mission on a net win.
func (s *Service) settle(ctx context.Context, q db.Querier, user *models.User, wager, payout int64) error {
	if err := s.store.EnsureGamblingStats(ctx, q, user.ID); err != nil {
		return econerr.Wrap(err, "ensuring gambling stats")
	}
	st, err := s.store.GetGamblingStatsForUpdate(ctx, q, user.ID)
	if err != nil {
		return econerr.Wrap(err, "locking gambling stats")
	}
	settleStats(st, wager, payout)
	if err := s.store.UpdateGamblingStats(ctx, q, st); err != nil {
		return econerr.Wrap(err, "updating gambling stats")
	}
	if payout > wager {
		return s.missions.Progress(ctx, q, user, models.ObjectiveGamblingWins, 1)
	}
	return nil
}

// Stats returns a user's lifetime gambling record.
func (s *Service) Stats(ctx context.Context, userID int64) (*models.GamblingStats, error) {
	return s.store.GetGamblingStats(ctx, s.store.Pool(), userID)
}

// History returns a user's recent sessions.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]models.GamblingSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListRecentSessions(ctx, s.store.Pool(), userID, limit)
}

// Jackpot returns the current slots pool.
func (s *Service) Jackpot(ctx context.Context) (*models.JackpotPool, error) {
	return s.store.GetJackpot(ctx, s.store.Pool())
}
