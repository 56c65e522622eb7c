package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/pkg/econerr"
)

// ──────────────────────────────────────────────────────────────────
// Admin surface
//
// Operator endpoints work on user ids. Ban and unban also accept a
// username because moderators usually act from chat.
// ──────────────────────────────────────────────────────────────────

func (h *Handler) handleAdminEconomy(c *gin.Context) {
	rep, err := h.svc.Admin.EconomyReport(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, rep)
}

func (h *Handler) handleAdminGamblingReport(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			h.fail(c, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "days must be 1-365"))
			return
		}
		days = n
	}
	since := h.clock.Now().AddDate(0, 0, -days)
	rep, err := h.svc.Admin.GamblingReport(c.Request.Context(), since)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, rep)
}

func (h *Handler) handleAdminAdjust(c *gin.Context) {
	var req struct {
		UserID      int64  `json:"userId"`
		WealthDelta int64  `json:"wealthDelta"`
		XPDelta     int64  `json:"xpDelta"`
		Reason      string `json:"reason"`
	}
	if err := bindBody(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if req.UserID <= 0 {
		h.fail(c, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "userId is required"))
		return
	}
	res, err := h.svc.Admin.Adjust(c.Request.Context(), req.UserID, req.WealthDelta, req.XPDelta, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res)
}

func (h *Handler) handleAdminJackpotReset(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := bindBody(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	pool, err := h.svc.Admin.ResetJackpot(c.Request.Context(), req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"jackpot": pool})
}

// handleAdminLotteryDraw forces the open draw to settle now and opens the
// next one, regardless of the schedule.
func (h *Handler) handleAdminLotteryDraw(c *gin.Context) {
	ctx := c.Request.Context()
	draw, err := h.svc.Gambling.EnsureOpenDraw(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.svc.Gambling.ExecuteDraw(ctx, draw.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if _, err := h.svc.Gambling.EnsureOpenDraw(ctx); err != nil {
		h.fail(c, err)
		return
	}
	h.dispatch(res.Intents)
	h.ok(c, res)
}

// adminTarget resolves the subject of a moderation request: a user id, or
// a username when the id is absent.
func (h *Handler) adminTarget(c *gin.Context, userID int64, username string) (int64, error) {
	if userID > 0 {
		return userID, nil
	}
	if username == "" {
		return 0, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "userId or username is required")
	}
	user, err := h.store.GetUserByUsername(c.Request.Context(), h.store.Pool(), username)
	if err != nil {
		if db.IsNoRows(err) {
			return 0, econerr.New(econerr.NotFound, econerr.CodeUserNotFound, "user not found")
		}
		return 0, econerr.Wrap(err, "resolving username")
	}
	return user.ID, nil
}

func (h *Handler) handleAdminBan(banned bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID   int64  `json:"userId"`
			Username string `json:"username"`
			Reason   string `json:"reason"`
		}
		if err := bindBody(c, &req); err != nil {
			h.fail(c, err)
			return
		}
		userID, err := h.adminTarget(c, req.UserID, req.Username)
		if err != nil {
			h.fail(c, err)
			return
		}
		if err := h.svc.Admin.SetBanned(c.Request.Context(), userID, banned, req.Reason); err != nil {
			h.fail(c, err)
			return
		}
		h.ok(c, gin.H{"userId": userID, "banned": banned})
	}
}

func (h *Handler) handleAdminCooldownsClear(c *gin.Context) {
	var req struct {
		UserID   int64  `json:"userId"`
		Username string `json:"username"`
		Command  string `json:"command"`
	}
	if err := bindBody(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	userID, err := h.adminTarget(c, req.UserID, req.Username)
	if err != nil {
		h.fail(c, err)
		return
	}
	cleared, err := h.svc.Admin.ClearCooldowns(c.Request.Context(), userID, req.Command)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"cleared": cleared})
}

func (h *Handler) handleAdminJuicernaut(c *gin.Context) {
	var req struct {
		UserID        int64   `json:"userId"`
		Username      string  `json:"username"`
		Multiplier    float64 `json:"multiplier"`
		DurationHours float64 `json:"durationHours"`
	}
	if err := bindBody(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	userID, err := h.adminTarget(c, req.UserID, req.Username)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.svc.Admin.GrantJuicernaut(c.Request.Context(), userID, req.Multiplier, req.DurationHours); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"userId": userID})
}

func (h *Handler) handleAdminMergePreview(c *gin.Context) {
	var req struct {
		PrimaryUserID   int64 `json:"primaryUserId"`
		SecondaryUserID int64 `json:"secondaryUserId"`
	}
	if err := bindBody(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	proj, err := h.svc.Merge.Preview(c.Request.Context(), req.PrimaryUserID, req.SecondaryUserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, proj)
}

func (h *Handler) handleAdminMergeExecute(c *gin.Context) {
	var req struct {
		PrimaryUserID   int64  `json:"primaryUserId"`
		SecondaryUserID int64  `json:"secondaryUserId"`
		Confirm         string `json:"confirm"`
	}
	if err := bindBody(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.svc.Merge.Execute(c.Request.Context(), req.PrimaryUserID, req.SecondaryUserID, req.Confirm)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res)
}

// handleAdminStream overrides the liveness flag, for stuck sessions or
// testing the gate.
func (h *Handler) handleAdminStream(c *gin.Context) {
	var req struct {
		Platform string `json:"platform"`
		Active   bool   `json:"active"`
	}
	if err := bindBody(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if req.Platform == "" {
		h.fail(c, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "platform is required"))
		return
	}
	ctx := c.Request.Context()
	err := h.store.WithTx(ctx, func(tx pgx.Tx) error {
		return h.gate.SetLive(ctx, tx, req.Platform, req.Active)
	})
	if err != nil {
		h.fail(c, econerr.Wrap(err, "updating stream state"))
		return
	}
	h.gate.Invalidate(ctx)

	sessions, err := h.gate.Sessions(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"sessions": sessions})
}
