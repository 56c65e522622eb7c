// Package scheduler owns the engine's periodic work: expiry sweeps, lottery
// draws, coin-flip expiry, business revenue, the daily token pass and
// retention purges. Every unit of work runs in its own transaction; one
// failing unit is logged and the rest of the job continues.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/buffs"
	"github.com/grindcity/economy-engine/internal/business"
	"github.com/grindcity/economy-engine/internal/config"
	"github.com/grindcity/economy-engine/internal/cooldown"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/internal/gambling"
	"github.com/grindcity/economy-engine/internal/inventory"
	"github.com/grindcity/economy-engine/internal/metrics"
	"github.com/grindcity/economy-engine/internal/missions"
	"github.com/grindcity/economy-engine/internal/notify"
	"github.com/grindcity/economy-engine/internal/tokens"
)

const jobTimeout = 5 * time.Minute

// Deps are the services the jobs drive.
type Deps struct {
	Store      *db.Store
	Cfg        *config.Economy
	Cooldowns  *cooldown.Service
	Inventory  *inventory.Service
	Buffs      *buffs.Service
	Missions   *missions.Service
	Gambling   *gambling.Service
	Business   *business.Service
	Tokens     *tokens.Service
	Dispatcher *notify.Dispatcher
	Metrics    *metrics.Metrics
}

// Scheduler wraps the cron runner. All schedules are UTC so the daily jobs
// line up with the token day and the shop rollover.
type Scheduler struct {
	cron *cron.Cron
	d    Deps
	log  *zap.Logger
}

// New registers every job. Start is separate so main can bring the HTTP
// surface up first.
func New(d Deps, log *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		d:   d,
		log: log.Named("scheduler"),
	}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(&cronLogger{s.log})),
	)

	entries := []struct {
		spec string
		name string
		fn   func(context.Context) error
	}{
		{"* * * * *", "cooldown_sweep", s.sweepCooldowns},
		{"* * * * *", "escrow_sweep", s.sweepEscrow},
		{"* * * * *", "buff_sweep", s.sweepBuffs},
		{"* * * * *", "mission_expiry", s.expireMissions},
		{"* * * * *", "lottery_draws", s.runLotteryDraws},
		{"* * * * *", "coinflip_expiry", s.expireCoinFlips},
		{"* * * * *", "jackpot_gauge", s.refreshJackpotGauge},
		{businessSpec(d.Cfg.BusinessCollections), "business_revenue", s.collectBusinessRevenue},
		{"0 0 * * *", "token_daily", s.tokenDailyPass},
		{"0 4 * * *", "retention", s.retentionPass},
	}
	for _, e := range entries {
		if _, err := s.cron.AddFunc(e.spec, s.wrap(e.name, e.fn)); err != nil {
			return nil, fmt.Errorf("register job %s: %w", e.name, err)
		}
	}
	return s, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop halts scheduling and returns a context that closes once running jobs
// finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// businessSpec spreads the configured collections evenly over the day.
func businessSpec(collectionsPerDay int) string {
	interval := time.Duration(24*60/collectionsPerDay) * time.Minute
	return "@every " + interval.String()
}

// wrap gives each job a deadline, a metric and uniform logging.
func (s *Scheduler) wrap(name string, fn func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		start := time.Now()
		if err := fn(ctx); err != nil {
			s.d.Metrics.JobRuns.WithLabelValues(name, "error").Inc()
			s.log.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.d.Metrics.JobRuns.WithLabelValues(name, "ok").Inc()
		s.log.Debug("job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
	}
}

// ─── Jobs ────────────────────────────────────────────────────────────

func (s *Scheduler) sweepCooldowns(ctx context.Context) error {
	_, err := s.d.Cooldowns.Sweep(ctx)
	return err
}

func (s *Scheduler) sweepEscrow(ctx context.Context) error {
	n, err := s.d.Inventory.SweepExpiredEscrow(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("expired escrow items removed", zap.Int64("rows", n))
	}
	return nil
}

func (s *Scheduler) sweepBuffs(ctx context.Context) error {
	_, err := s.d.Buffs.Sweep(ctx)
	return err
}

func (s *Scheduler) expireMissions(ctx context.Context) error {
	_, err := s.d.Missions.ExpireStale(ctx)
	return err
}

func (s *Scheduler) runLotteryDraws(ctx context.Context) error {
	res, err := s.d.Gambling.ExecuteDueDraws(ctx)
	if res != nil {
		s.log.Info("lottery draw executed",
			zap.Int64("draw_id", res.DrawID),
			zap.Int("tickets", res.TicketCount),
			zap.Int("winners", len(res.Prizes)))
		s.d.Dispatcher.Dispatch(res.Intents)
	}
	return err
}

func (s *Scheduler) expireCoinFlips(ctx context.Context) error {
	n, err := s.d.Gambling.ExpireOpenCoinFlips(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("open coin flips refunded", zap.Int("count", n))
	}
	return nil
}

func (s *Scheduler) refreshJackpotGauge(ctx context.Context) error {
	pool, err := s.d.Gambling.Jackpot(ctx)
	if err != nil {
		return err
	}
	s.d.Metrics.JackpotPool.Set(float64(pool.CurrentPool))
	return nil
}

func (s *Scheduler) collectBusinessRevenue(ctx context.Context) error {
	_, _, err := s.d.Business.CollectAll(ctx)
	return err
}

// tokenDailyPass resets the per-day earn counters and then applies the
// overnight decay, in that order so decay reads the old balances.
func (s *Scheduler) tokenDailyPass(ctx context.Context) error {
	if _, err := s.d.Tokens.ResetDailyCounters(ctx); err != nil {
		return err
	}
	_, err := s.d.Tokens.DecayPass(ctx)
	return err
}

// retentionPass trims old notifications, audit rows past their horizon,
// completed webhook records, and reopens webhook claims stuck in processing.
func (s *Scheduler) retentionPass(ctx context.Context) error {
	now := time.Now().UTC()
	pool := s.d.Store.Pool()

	type purge struct {
		name string
		run  func() (int64, error)
	}
	horizonN := now.AddDate(0, 0, -s.d.Cfg.NotificationRetentionDays)
	horizonE := now.AddDate(0, 0, -s.d.Cfg.EventRetentionDays)
	stale := now.Add(-time.Duration(s.d.Cfg.WebhookStaleMinutes) * time.Minute)

	for _, p := range []purge{
		{"notifications", func() (int64, error) { return s.d.Store.PurgeOldNotifications(ctx, pool, horizonN) }},
		{"game_events", func() (int64, error) { return s.d.Store.PurgeOldGameEvents(ctx, pool, horizonE) }},
		{"webhook_events", func() (int64, error) { return s.d.Store.PurgeOldWebhookEvents(ctx, pool, horizonN) }},
		{"webhook_claims", func() (int64, error) { return s.d.Store.SweepStaleWebhookClaims(ctx, pool, stale) }},
	} {
		n, err := p.run()
		if err != nil {
			s.log.Error("retention purge failed", zap.String("table", p.name), zap.Error(err))
			continue
		}
		if n > 0 {
			s.log.Info("retention purge", zap.String("table", p.name), zap.Int64("rows", n))
		}
	}
	return nil
}

// cronLogger adapts zap to the cron runner's logger, used only by the
// panic-recovery chain.
type cronLogger struct {
	log *zap.Logger
}

func (c *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Sugar().Infow(msg, keysAndValues...)
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
