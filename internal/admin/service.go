// Package admin implements operator-only reporting and interventions.
// Reports aggregate in PostgreSQL and finish the arithmetic with exact
// decimals; interventions run the same transactional paths as player
// commands and always leave a game event behind.
package admin

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/buffs"
	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/config"
	"github.com/grindcity/economy-engine/internal/cooldown"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/internal/formulas"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// wealthBandFloors are the histogram bands of the economy report.
var wealthBandFloors = []int64{0, 10_000, 100_000, 1_000_000, 10_000_000}

type Service struct {
	store     *db.Store
	cfg       *config.Economy
	cooldowns *cooldown.Service
	buffs     *buffs.Service
	clock     clock.Clock
	log       *zap.Logger
}

func NewService(store *db.Store, cfg *config.Economy, cooldownSvc *cooldown.Service, buffSvc *buffs.Service, clk clock.Clock, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		cfg:       cfg,
		cooldowns: cooldownSvc,
		buffs:     buffSvc,
		clock:     clk,
		log:       log.Named("admin"),
	}
}

// ─── Reports ────────────────────────────────────────────────────────

// WealthBand is one histogram row of the economy report. Share is the
// fraction of live users in the band, as an exact percentage string.
type WealthBand struct {
	Floor    models.Currency `json:"floor"`
	Users    int64           `json:"users"`
	SharePct string          `json:"sharePct"`
}

// EconomyReport is the house-wide snapshot. Totals stay strings: BIGINT
// sums surface from PostgreSQL as NUMERIC and can exceed int64.
type EconomyReport struct {
	Users        int64           `json:"users"`
	TotalWealth  string          `json:"totalWealth"`
	TotalXP      string          `json:"totalXp"`
	TotalTokens  string          `json:"totalTokens"`
	TotalBonds   string          `json:"totalBonds"`
	MeanWealth   string          `json:"meanWealth"`
	Distribution []WealthBand    `json:"distribution"`
	JackpotPool  models.Currency `json:"jackpotPool"`
}

// EconomyReport aggregates live accounts and the jackpot pool. Percentages
// are computed with decimal arithmetic so bands always sum to 100.00 minus
// rounding on the final digit only.
func (s *Service) EconomyReport(ctx context.Context) (*EconomyReport, error) {
	totals, err := s.store.GetEconomyTotals(ctx, s.store.Pool())
	if err != nil {
		return nil, econerr.Wrap(err, "aggregating economy totals")
	}
	buckets, err := s.store.GetWealthDistribution(ctx, s.store.Pool(), wealthBandFloors)
	if err != nil {
		return nil, econerr.Wrap(err, "bucketing wealth distribution")
	}
	jackpot, err := s.store.GetJackpot(ctx, s.store.Pool())
	if err != nil {
		return nil, econerr.Wrap(err, "reading jackpot")
	}

	rep := &EconomyReport{
		Users:       totals.Users,
		TotalWealth: totals.TotalWealth,
		TotalXP:     totals.TotalXP,
		TotalTokens: totals.TotalTokens,
		TotalBonds:  totals.TotalBonds,
		MeanWealth:  "0",
		JackpotPool: jackpot.CurrentPool,
	}

	wealth, err := decimal.NewFromString(totals.TotalWealth)
	if err != nil {
		return nil, econerr.Wrap(err, "parsing wealth total")
	}
	if totals.Users > 0 {
		rep.MeanWealth = wealth.DivRound(decimal.NewFromInt(totals.Users), 2).String()
	}

	population := decimal.NewFromInt(totals.Users)
	hundred := decimal.NewFromInt(100)
	for _, b := range buckets {
		band := WealthBand{Floor: b.Floor, Users: b.Users, SharePct: "0"}
		if totals.Users > 0 {
			band.SharePct = decimal.NewFromInt(b.Users).Mul(hundred).DivRound(population, 2).String()
		}
		rep.Distribution = append(rep.Distribution, band)
	}
	return rep, nil
}

// GameLine is per-game house profit and loss. HoldPct is the house hold as
// an exact percentage of the amount wagered.
type GameLine struct {
	Game    string `json:"game"`
	Rounds  int64  `json:"rounds"`
	Wagered string `json:"wagered"`
	Paid    string `json:"paid"`
	Net     string `json:"net"`
	HoldPct string `json:"holdPct"`
}

// GamblingReport is the house P&L over a window.
type GamblingReport struct {
	Since   time.Time  `json:"since"`
	Games   []GameLine `json:"games"`
	Net     string     `json:"net"`
	HoldPct string     `json:"holdPct"`
}

// GamblingReport sums resolved rounds per game since the given time. Net is
// wagered minus paid from the house's side: positive means the house kept
// money.
func (s *Service) GamblingReport(ctx context.Context, since time.Time) (*GamblingReport, error) {
	lines, err := s.store.GetHousePnL(ctx, s.store.Pool(), since)
	if err != nil {
		return nil, econerr.Wrap(err, "aggregating house P&L")
	}

	rep := &GamblingReport{Since: since, Net: "0", HoldPct: "0"}
	totalWagered := decimal.Zero
	totalPaid := decimal.Zero
	hundred := decimal.NewFromInt(100)
	for _, l := range lines {
		wagered, err := decimal.NewFromString(l.Wagered)
		if err != nil {
			return nil, econerr.Wrap(err, "parsing wagered sum")
		}
		paid, err := decimal.NewFromString(l.Paid)
		if err != nil {
			return nil, econerr.Wrap(err, "parsing paid sum")
		}
		net := wagered.Sub(paid)
		line := GameLine{
			Game:    l.Game,
			Rounds:  l.Rounds,
			Wagered: wagered.String(),
			Paid:    paid.String(),
			Net:     net.String(),
			HoldPct: "0",
		}
		if wagered.IsPositive() {
			line.HoldPct = net.Mul(hundred).DivRound(wagered, 2).String()
		}
		rep.Games = append(rep.Games, line)
		totalWagered = totalWagered.Add(wagered)
		totalPaid = totalPaid.Add(paid)
	}
	totalNet := totalWagered.Sub(totalPaid)
	rep.Net = totalNet.String()
	if totalWagered.IsPositive() {
		rep.HoldPct = totalNet.Mul(hundred).DivRound(totalWagered, 2).String()
	}
	return rep, nil
}

// ─── Interventions ──────────────────────────────────────────────────

// AdjustResult reports the user's state after a manual adjustment.
type AdjustResult struct {
	UserID    int64           `json:"userId"`
	NewWealth models.Currency `json:"newWealth"`
	NewXP     int64           `json:"newXp"`
	NewLevel  int             `json:"newLevel"`
	NewTier   models.Tier     `json:"newTier"`
}

// Adjust applies a manual wealth and/or XP delta. Both floors at zero, the
// level and tier are recomputed from the adjusted XP, and the adjustment is
// always recorded as a game event carrying the operator's reason.
func (s *Service) Adjust(ctx context.Context, userID, wealthDelta, xpDelta int64, reason string) (*AdjustResult, error) {
	if reason == "" {
		return nil, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "a reason is required")
	}
	var res AdjustResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		user, err := s.lockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		wealth := user.Wealth + wealthDelta
		if wealth < 0 {
			wealth = 0
		}
		xp := user.XP + xpDelta
		if xp < 0 {
			xp = 0
		}
		level := formulas.LevelFromXP(xp)
		tier := formulas.TierForLevel(level)
		if err := s.store.SetProgress(ctx, tx, userID, models.Currency(wealth), xp, level, tier); err != nil {
			return econerr.Wrap(err, "writing adjustment")
		}
		if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
			UserID:       userID,
			EventType:    "admin_adjust",
			WealthChange: models.Currency(wealthDelta),
			XPChange:     xpDelta,
			Success:      true,
			Description:  reason,
		}); err != nil {
			return econerr.Wrap(err, "recording adjustment")
		}
		res = AdjustResult{
			UserID:    userID,
			NewWealth: models.Currency(wealth),
			NewXP:     xp,
			NewLevel:  level,
			NewTier:   tier,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("manual adjustment",
		zap.Int64("user_id", userID),
		zap.Int64("wealth_delta", wealthDelta),
		zap.Int64("xp_delta", xpDelta),
		zap.String("reason", reason))
	return &res, nil
}

// SetBanned flips the ban flag. Banned users keep their state but every
// command path refuses them.
func (s *Service) SetBanned(ctx context.Context, userID int64, banned bool, reason string) error {
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.lockUser(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.store.SetBanned(ctx, tx, userID, banned); err != nil {
			return econerr.Wrap(err, "writing ban flag")
		}
		ev := "admin_ban"
		if !banned {
			ev = "admin_unban"
		}
		if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
			UserID:      userID,
			EventType:   ev,
			Success:     true,
			Description: reason,
		}); err != nil {
			return econerr.Wrap(err, "recording ban change")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("ban flag changed", zap.Int64("user_id", userID), zap.Bool("banned", banned))
	return nil
}

// ClearCooldowns removes cooldown rows for a user: every row when command
// is empty, otherwise all targets of one command (jail is just another
// command type here).
func (s *Service) ClearCooldowns(ctx context.Context, userID int64, command string) (int64, error) {
	var cleared int64
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.lockUser(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		if command == "" {
			cleared, err = s.cooldowns.ClearAll(ctx, tx, userID)
		} else {
			cleared, err = s.cooldowns.ClearCommand(ctx, tx, userID, command)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return cleared, nil
}

// GrantJuicernaut moves the session-leader bundle to the given user. The
// previous holder's bundle, if any, is left to expire on its own; the grant
// itself upgrades or extends per standard buff stacking.
func (s *Service) GrantJuicernaut(ctx context.Context, userID int64, multiplier, durationHours float64) error {
	if multiplier < 1 {
		return econerr.New(econerr.Validation, econerr.CodeInvalidInput, "multiplier must be at least 1")
	}
	if durationHours <= 0 {
		return econerr.New(econerr.Validation, econerr.CodeInvalidInput, "duration must be positive")
	}
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.lockUser(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.buffs.GrantJuicernaut(ctx, tx, userID, multiplier, durationHours); err != nil {
			return err
		}
		return s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
			UserID:      userID,
			EventType:   "juicernaut_granted",
			Success:     true,
			Description: "session leader bundle granted",
		})
	})
	if err != nil {
		return err
	}
	s.log.Info("juicernaut granted", zap.Int64("user_id", userID), zap.Float64("multiplier", multiplier))
	return nil
}

// ResetJackpot reseeds the progressive pool at its configured base without
// crediting anyone. The last-winner record is untouched; the reason goes to
// the operator log.
func (s *Service) ResetJackpot(ctx context.Context, reason string) (models.Currency, error) {
	if reason == "" {
		return 0, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "a reason is required")
	}
	var pool models.Currency
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		cur, err := s.store.GetJackpotForUpdate(ctx, tx)
		if err != nil {
			return econerr.Wrap(err, "locking jackpot")
		}
		pool = cur.CurrentPool
		if err := s.store.ReseedJackpot(ctx, tx, s.cfg.JackpotBase); err != nil {
			return econerr.Wrap(err, "reseeding jackpot")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("jackpot reset",
		zap.Int64("previous_pool", int64(pool)),
		zap.Int64("base", s.cfg.JackpotBase),
		zap.String("reason", reason))
	return models.Currency(s.cfg.JackpotBase), nil
}

// lockUser row-locks a live account for an intervention. Tombstones are
// refused; bans are not, or unban would be impossible.
func (s *Service) lockUser(ctx context.Context, q db.Querier, userID int64) (*models.User, error) {
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
	return user, nil
}
