package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/actions"
	"github.com/grindcity/economy-engine/internal/admin"
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
	"github.com/grindcity/economy-engine/internal/shop"
	"github.com/grindcity/economy-engine/internal/streamgate"
	"github.com/grindcity/economy-engine/internal/tokens"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// Services bundles everything the HTTP layer fronts. The handler owns no
// game logic: it resolves identity, runs the service call, and shapes the
// envelope.
type Services struct {
	Actions     *actions.Service
	Gambling    *gambling.Service
	Shop        *shop.Service
	Consumables *consumables.Service
	Inventory   *inventory.Service
	Missions    *missions.Service
	Tokens      *tokens.Service
	Cooldowns   *cooldown.Service
	Buffs       *buffs.Service
	Business    *business.Service
	Merge       *merge.Service
	Admin       *admin.Service
}

type Handler struct {
	store      *db.Store
	cfg        *config.Config
	gate       *streamgate.Gate
	dispatcher *notify.Dispatcher
	metrics    *metrics.Metrics
	hub        *Hub
	svc        Services
	clock      clock.Clock
	log        *zap.Logger
}

func NewHandler(store *db.Store, cfg *config.Config, gate *streamgate.Gate,
	dispatcher *notify.Dispatcher, m *metrics.Metrics, hub *Hub, svc Services,
	clk clock.Clock, log *zap.Logger) *Handler {
	return &Handler{
		store:      store,
		cfg:        cfg,
		gate:       gate,
		dispatcher: dispatcher,
		metrics:    m,
		hub:        hub,
		svc:        svc,
		clock:      clk,
		log:        log.Named("api"),
	}
}

// command wraps a player-command handler with the commands counter and
// duration histogram. The status label is decided by the response code the
// handler left behind.
func (h *Handler) command(name string, fn gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		fn(c)
		status := "ok"
		if c.Writer.Status() >= 400 {
			status = "error"
		}
		h.metrics.CommandsTotal.WithLabelValues(name, status).Inc()
		h.metrics.CommandDuration.Observe(time.Since(start).Seconds())
	}
}

// requireOffline enforces the economy-mode gate for the free earn loop.
// Channel-point redemptions pass.
func (h *Handler) requireOffline(c *gin.Context, id identity) error {
	return h.gate.RequireOffline(c.Request.Context(), id.ViaChannelPoints)
}

// dispatch hands post-commit intents to the notifier. Safe on empty.
func (h *Handler) dispatch(intents []models.Intent) {
	if len(intents) > 0 {
		h.dispatcher.Dispatch(intents)
	}
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, econerr.Newf(econerr.Validation, econerr.CodeInvalidInput, "invalid %s", name)
	}
	return v, nil
}
