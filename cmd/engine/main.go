package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/actions"
	"github.com/grindcity/economy-engine/internal/admin"
	"github.com/grindcity/economy-engine/internal/api"
	"github.com/grindcity/economy-engine/internal/buffs"
	"github.com/grindcity/economy-engine/internal/business"
	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/config"
	"github.com/grindcity/economy-engine/internal/consumables"
	"github.com/grindcity/economy-engine/internal/cooldown"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/internal/gambling"
	"github.com/grindcity/economy-engine/internal/inventory"
	"github.com/grindcity/economy-engine/internal/merge"
	"github.com/grindcity/economy-engine/internal/metrics"
	"github.com/grindcity/economy-engine/internal/missions"
	"github.com/grindcity/economy-engine/internal/notify"
	"github.com/grindcity/economy-engine/internal/scheduler"
	"github.com/grindcity/economy-engine/internal/shop"
	"github.com/grindcity/economy-engine/internal/streamgate"
	"github.com/grindcity/economy-engine/internal/tokens"
)

const (
	notifyWorkers   = 4
	shutdownTimeout = 15 * time.Second
)

func main() {
	// ─── Configuration ───────────────────────────────────────────────────
	// All credentials come from environment variables. No fallback defaults
	// for security-sensitive values. Use a .env file for local development:
	// cp .env.example .env && edit .env
	// ─────────────────────────────────────────────────────────────────────

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	logger := buildLogger(cfg.LogDev)
	defer logger.Sync()

	logger.Info("starting GrindCity economy engine",
		zap.String("port", cfg.Port),
		zap.Bool("dev", cfg.LogDev))

	// ─── Storage ─────────────────────────────────────────────────────────
	// Postgres is mandatory: every command is a transaction against it.
	// Redis only fronts the stream-liveness bit and is optional.
	// ─────────────────────────────────────────────────────────────────────

	ctx := context.Background()
	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.InitSchema(ctx); err != nil {
		logger.Fatal("schema init failed", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = streamgate.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Warn("redis unavailable, stream gate will read postgres directly",
				zap.Error(err))
			rdb = nil
		}
	}

	// ─── Services ────────────────────────────────────────────────────────

	m := metrics.New()
	clk := clock.System{}
	rng := clock.NewRNG(cfg.RNGSeed)
	econ := &cfg.Economy

	hub := api.NewHub(m, logger)
	go hub.Run()

	dispatcher := notify.NewDispatcher(store, hub,
		cfg.EffectWebhookURL, cfg.EffectWebhookSecret, notifyWorkers, logger)

	gate := streamgate.NewGate(store, rdb, logger)

	cooldownSvc := cooldown.NewService(store, econ, clk, logger)
	buffSvc := buffs.NewService(store, clk, logger)
	invSvc := inventory.NewService(store, econ, clk, rng, logger)
	missionSvc := missions.NewService(store, invSvc, econ, clk, rng, logger)
	tokenSvc := tokens.NewService(store, econ, clk, logger)
	consumableSvc := consumables.NewService(store, buffSvc, cooldownSvc, logger)
	shopSvc := shop.NewService(store, econ, clk, rng, invSvc, cooldownSvc, logger)
	businessSvc := business.NewService(store, econ, rng, logger)
	actionSvc := actions.NewService(store, buffSvc, cooldownSvc, invSvc, missionSvc,
		econ, clk, rng, logger)
	gamblingSvc := gambling.NewService(store, cooldownSvc, missionSvc,
		econ, clk, rng, logger)
	mergeSvc := merge.NewService(store, econ, clk, logger)
	adminSvc := admin.NewService(store, econ, cooldownSvc, buffSvc, clk, logger)

	// ─── Background jobs ─────────────────────────────────────────────────

	sched, err := scheduler.New(scheduler.Deps{
		Store:      store,
		Cfg:        econ,
		Cooldowns:  cooldownSvc,
		Inventory:  invSvc,
		Buffs:      buffSvc,
		Missions:   missionSvc,
		Gambling:   gamblingSvc,
		Business:   businessSvc,
		Tokens:     tokenSvc,
		Dispatcher: dispatcher,
		Metrics:    m,
	}, logger)
	if err != nil {
		logger.Fatal("scheduler setup failed", zap.Error(err))
	}
	sched.Start()

	// ─── HTTP ────────────────────────────────────────────────────────────

	handler := api.NewHandler(store, cfg, gate, dispatcher, m, hub, api.Services{
		Actions:     actionSvc,
		Gambling:    gamblingSvc,
		Shop:        shopSvc,
		Consumables: consumableSvc,
		Inventory:   invSvc,
		Missions:    missionSvc,
		Tokens:      tokenSvc,
		Cooldowns:   cooldownSvc,
		Buffs:       buffSvc,
		Business:    businessSvc,
		Merge:       mergeSvc,
		Admin:       adminSvc,
	}, clk, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.SetupRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("engine listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// ─── Shutdown ────────────────────────────────────────────────────────
	// Order matters: stop accepting requests, wait for running cron jobs,
	// then drain the dispatcher so committed intents still go out.
	// ─────────────────────────────────────────────────────────────────────

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown incomplete", zap.Error(err))
	}

	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduled jobs still running at shutdown deadline")
	}

	dispatcher.Shutdown()
	logger.Info("goodbye")
}

// buildLogger picks the zap profile: human-readable debug lines in
// development, JSON in production.
func buildLogger(dev bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("FATAL: logger setup failed: %v", err)
	}
	return logger
}
