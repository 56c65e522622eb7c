package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/grindcity/economy-engine/pkg/econerr"
)

// ──────────────────────────────────────────────────────────────────
// Gambling: slots, blackjack, coin flips, lottery
//
// Wagers spend wealth, so none of these sit behind the economy-mode
// gate. Tier-based bet ceilings and jail checks live in the service.
// ──────────────────────────────────────────────────────────────────

func (h *Handler) handleSlots(c *gin.Context) {
	var req struct {
		identity
		Wager int64 `json:"wager"`
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
	res, err := h.svc.Gambling.Slots(c.Request.Context(), user.ID, req.Wager)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.dispatch(res.Intents)
	h.ok(c, res)
}

func (h *Handler) handleBlackjackStart(c *gin.Context) {
	var req struct {
		identity
		Wager int64 `json:"wager"`
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
	res, err := h.svc.Gambling.BlackjackStart(c.Request.Context(), user.ID, req.Wager)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res)
}

// blackjackMove handles hit, stand and double, which differ only in the
// service call.
func (h *Handler) blackjackMove(c *gin.Context, move string) {
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
	var res any
	switch move {
	case "hit":
		res, err = h.svc.Gambling.BlackjackHit(ctx, user.ID)
	case "stand":
		res, err = h.svc.Gambling.BlackjackStand(ctx, user.ID)
	case "double":
		res, err = h.svc.Gambling.BlackjackDouble(ctx, user.ID)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res)
}

func (h *Handler) handleCoinFlipCreate(c *gin.Context) {
	var req struct {
		identity
		Wager int64  `json:"wager"`
		Call  string `json:"call"`
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
	res, err := h.svc.Gambling.CoinFlipCreate(c.Request.Context(), user.ID, req.Wager, req.Call)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.dispatch(res.Intents)
	h.ok(c, res)
}

func (h *Handler) handleCoinFlipAccept(c *gin.Context) {
	var req struct {
		identity
		ChallengeID int64 `json:"challengeId"`
	}
	if err := bindBody(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if req.ChallengeID <= 0 {
		h.fail(c, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "challengeId is required"))
		return
	}
	user, err := h.resolveUser(c.Request.Context(), req.identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.svc.Gambling.CoinFlipAccept(c.Request.Context(), user.ID, req.ChallengeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.dispatch(res.Intents)
	h.ok(c, res)
}

func (h *Handler) handleCoinFlipCancel(c *gin.Context) {
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
	res, err := h.svc.Gambling.CoinFlipCancel(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.dispatch(res.Intents)
	h.ok(c, res)
}

func (h *Handler) handleCoinFlipOpen(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			h.fail(c, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "limit must be 1-50"))
			return
		}
		limit = n
	}
	flips, err := h.svc.Gambling.OpenCoinFlips(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"challenges": flips})
}

func (h *Handler) handleLotteryTicket(c *gin.Context) {
	var req struct {
		identity
		Numbers []int `json:"numbers"`
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
	res, err := h.svc.Gambling.LotteryBuyTicket(c.Request.Context(), user.ID, req.Numbers)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res)
}

func (h *Handler) handleLotteryCurrent(c *gin.Context) {
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
	draw, tickets, err := h.svc.Gambling.CurrentDraw(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"draw": draw, "tickets": tickets})
}
