package api

import (
	"github.com/gin-gonic/gin"

	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// ──────────────────────────────────────────────────────────────────
// Core commands: play, rob, bail, checkin, profile
//
// Play, rob and checkin are the free earn loop, so they sit behind
// the economy-mode gate; bail is a payment and always available.
// ──────────────────────────────────────────────────────────────────

func (h *Handler) handlePlay(c *gin.Context) {
	var req struct {
		identity
	}
	if err := bindBody(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	user, err := h.resolveUser(c.Request.Context(), req.identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.requireOffline(c, req.identity); err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.svc.Actions.Play(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.dispatch(res.Intents)
	h.ok(c, res)
}

func (h *Handler) handleRob(c *gin.Context) {
	var req struct {
		identity
		Target string `json:"target"`
	}
	if err := bindBody(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if req.Target == "" {
		h.fail(c, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "target is required"))
		return
	}
	user, err := h.resolveUser(c.Request.Context(), req.identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.requireOffline(c, req.identity); err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.svc.Actions.Rob(c.Request.Context(), user.ID, req.Target)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.dispatch(res.Intents)
	h.ok(c, res)
}

func (h *Handler) handleBail(c *gin.Context) {
	var req struct {
		identity
	}
	if err := bindBody(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	user, err := h.resolveUser(c.Request.Context(), req.identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.svc.Actions.Bail(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.dispatch(res.Intents)
	h.ok(c, res)
}

func (h *Handler) handleCheckin(c *gin.Context) {
	var req struct {
		identity
	}
	if err := bindBody(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	user, err := h.resolveUser(c.Request.Context(), req.identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.requireOffline(c, req.identity); err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.svc.Actions.Checkin(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.dispatch(res.Intents)
	h.ok(c, res)
}

// handleProfile is the read-only account summary the bot renders for
// status commands.
func (h *Handler) handleProfile(c *gin.Context) {
	var req identity
	if err := bindQuery(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	user, err := h.resolveUser(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	pool := h.store.Pool()

	jail, err := h.svc.Cooldowns.JailStatus(ctx, pool, user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	buffs, err := h.svc.Buffs.List(ctx, pool, user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	cooldowns, err := h.svc.Cooldowns.List(ctx, pool, user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	var faction *models.Faction
	if user.FactionID != nil {
		faction, err = h.store.GetFaction(ctx, pool, *user.FactionID)
		if err != nil {
			h.fail(c, econerr.Wrap(err, "loading faction"))
			return
		}
	}

	h.ok(c, gin.H{
		"user":      user,
		"jail":      jail,
		"buffs":     buffs,
		"cooldowns": cooldowns,
		"faction":   faction,
	})
}
