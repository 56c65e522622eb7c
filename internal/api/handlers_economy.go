package api

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/grindcity/economy-engine/internal/consumables"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/internal/inventory"
	"github.com/grindcity/economy-engine/internal/missions"
	"github.com/grindcity/economy-engine/internal/tokens"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// ──────────────────────────────────────────────────────────────────
// Economy surface: shop, consumables, inventory, missions, tokens
// ──────────────────────────────────────────────────────────────────

// lockUser row-locks a live account inside an ongoing transaction, for
// handler-owned transactions around services that take the caller's tx.
func (h *Handler) lockUser(ctx context.Context, q db.Querier, userID int64) (*models.User, error) {
	user, err := h.store.GetUserForUpdate(ctx, q, userID)
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

// ─── Shop ───────────────────────────────────────────────────────────

func (h *Handler) handleShopOffers(c *gin.Context) {
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
	view, err := h.svc.Shop.Offers(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, view)
}

func (h *Handler) handleShopReroll(c *gin.Context) {
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
	view, err := h.svc.Shop.Reroll(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, view)
}

func (h *Handler) handleShopPurchase(c *gin.Context) {
	offerID, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
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
	res, err := h.svc.Shop.Purchase(c.Request.Context(), user.ID, offerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res)
}

// ─── Consumables ────────────────────────────────────────────────────

func (h *Handler) handleConsumableCatalog(c *gin.Context) {
	catalog, err := h.svc.Consumables.Catalog(c.Request.Context(), h.store.Pool())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"catalog": catalog})
}

func (h *Handler) handleConsumableBuy(c *gin.Context) {
	consumableID, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
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
	ctx := c.Request.Context()
	var res *consumables.BuyResult
	err = h.store.WithTx(ctx, func(tx pgx.Tx) error {
		res, err = h.svc.Consumables.Buy(ctx, tx, user.ID, consumableID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res)
}

func (h *Handler) handleConsumableUse(c *gin.Context) {
	consumableID, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
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
	ctx := c.Request.Context()
	var res *consumables.UseResult
	err = h.store.WithTx(ctx, func(tx pgx.Tx) error {
		res, err = h.svc.Consumables.Use(ctx, tx, user.ID, consumableID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res)
}

// ─── Inventory ──────────────────────────────────────────────────────

func (h *Handler) handleInventoryList(c *gin.Context) {
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
	items, err := h.svc.Inventory.List(c.Request.Context(), h.store.Pool(), user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"items": items})
}

func (h *Handler) handleInventoryEquip(c *gin.Context) {
	invID, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
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
	ctx := c.Request.Context()
	var item *models.InventoryItem
	err = h.store.WithTx(ctx, func(tx pgx.Tx) error {
		item, err = h.svc.Inventory.EquipItem(ctx, tx, user.ID, invID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"item": item})
}

func (h *Handler) handleInventoryUnequip(c *gin.Context) {
	slot := models.EquipSlot(c.Param("slot"))
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
	ctx := c.Request.Context()
	var removed bool
	err = h.store.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		removed, err = h.svc.Inventory.UnequipSlot(ctx, tx, user.ID, slot)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"removed": removed})
}

func (h *Handler) handleInventorySell(c *gin.Context) {
	invID, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
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
	ctx := c.Request.Context()
	var res *inventory.SellResult
	err = h.store.WithTx(ctx, func(tx pgx.Tx) error {
		res, err = h.svc.Inventory.SellItem(ctx, tx, user.ID, invID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res)
}

func (h *Handler) handleInventoryOpen(c *gin.Context) {
	invID, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
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
	ctx := c.Request.Context()
	var res *inventory.OpenResult
	err = h.store.WithTx(ctx, func(tx pgx.Tx) error {
		res, err = h.svc.Inventory.OpenCrate(ctx, tx, user.ID, invID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res)
}

func (h *Handler) handleEscrowClaim(c *gin.Context) {
	invID, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
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
	ctx := c.Request.Context()
	var item *models.InventoryItem
	err = h.store.WithTx(ctx, func(tx pgx.Tx) error {
		item, err = h.svc.Inventory.ClaimFromEscrow(ctx, tx, user.ID, invID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"item": item})
}

// ─── Business ───────────────────────────────────────────────────────

// handleBusinessHistory lists recent collection rows for the caller's
// businesses. The rows themselves are written by the revenue scheduler.
func (h *Handler) handleBusinessHistory(c *gin.Context) {
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
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			h.fail(c, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "limit must be 1-50"))
			return
		}
		limit = n
	}
	rows, err := h.svc.Business.History(c.Request.Context(), user.ID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"collections": rows})
}

// ─── Missions ───────────────────────────────────────────────────────

func (h *Handler) handleMissionsList(c *gin.Context) {
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
	var daily, weekly []models.UserMission
	err = h.store.WithTx(ctx, func(tx pgx.Tx) error {
		u, err := h.lockUser(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if daily, err = h.svc.Missions.List(ctx, tx, u, models.MissionDaily); err != nil {
			return err
		}
		weekly, err = h.svc.Missions.List(ctx, tx, u, models.MissionWeekly)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"daily": daily, "weekly": weekly})
}

func (h *Handler) handleMissionsClaim(c *gin.Context) {
	missionType := models.MissionType(c.Param("type"))
	if missionType != models.MissionDaily && missionType != models.MissionWeekly {
		h.fail(c, econerr.Newf(econerr.Validation, econerr.CodeInvalidInput,
			"unknown mission type %q", missionType))
		return
	}
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
	ctx := c.Request.Context()
	var res *missions.ClaimResult
	err = h.store.WithTx(ctx, func(tx pgx.Tx) error {
		u, err := h.lockUser(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		res, err = h.svc.Missions.Claim(ctx, tx, u, missionType)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res)
}

// ─── Tokens and bonds ───────────────────────────────────────────────

func (h *Handler) handleTokensConvert(c *gin.Context) {
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
	ctx := c.Request.Context()
	var res *tokens.ConvertResult
	err = h.store.WithTx(ctx, func(tx pgx.Tx) error {
		res, err = h.svc.Tokens.ConvertWealthToToken(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res)
}

func (h *Handler) handleTokensSpend(c *gin.Context) {
	var req struct {
		identity
		Amount  int    `json:"amount"`
		Purpose string `json:"purpose"`
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
	ctx := c.Request.Context()
	var res *tokens.SpendResult
	err = h.store.WithTx(ctx, func(tx pgx.Tx) error {
		res, err = h.svc.Tokens.SpendTokens(ctx, tx, user.ID, req.Amount, req.Purpose)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res)
}

func (h *Handler) handleBondsConvert(c *gin.Context) {
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
	ctx := c.Request.Context()
	var res *tokens.BondConvertResult
	err = h.store.WithTx(ctx, func(tx pgx.Tx) error {
		res, err = h.svc.Tokens.ConvertWealthToBonds(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res)
}

func (h *Handler) handleBondsSpend(c *gin.Context) {
	var req struct {
		identity
		Amount  int64  `json:"amount"`
		Purpose string `json:"purpose"`
	}
	if err := bindBody(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if req.Purpose == "" {
		h.fail(c, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "purpose is required"))
		return
	}
	user, err := h.resolveUser(c.Request.Context(), req.identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	err = h.store.WithTx(ctx, func(tx pgx.Tx) error {
		return h.svc.Tokens.SpendBonds(ctx, tx, user.ID, req.Amount, req.Purpose)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"spent": req.Amount})
}
