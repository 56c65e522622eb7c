package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SetupRouter wires the full HTTP surface. Command routes sit behind the
// bot's shared secret and the per-IP rate limiter; the admin group has its
// own token; webhooks authenticate by HMAC instead and stay outside both.
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS, configurable via ALLOWED_ORIGINS.
	// Production: ALLOWED_ORIGINS=https://overlay.grindcity.gg
	// Development: leave empty for *
	allowedOrigins := h.cfg.AllowedOrigins
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Webhook-Signature")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	limiter := NewRateLimiter(h.cfg.RateLimitPerMin, h.cfg.RateLimitBurst)
	r.Use(limiter.Middleware())

	r.GET("/metrics", h.metrics.Handler())

	api := r.Group("/api/v1")
	{
		api.GET("/health", h.handleHealth)
		api.GET("/stream", h.hub.Subscribe)
		api.POST("/webhooks/:platform", h.handleWebhook)
	}

	bot := api.Group("")
	bot.Use(h.BotAuth())
	{
		bot.POST("/play", h.command("play", h.handlePlay))
		bot.POST("/rob", h.command("rob", h.handleRob))
		bot.POST("/bail", h.command("bail", h.handleBail))
		bot.POST("/checkin", h.command("checkin", h.handleCheckin))
		bot.GET("/profile", h.handleProfile)

		bot.POST("/slots", h.command("slots", h.handleSlots))
		bot.POST("/blackjack/start", h.command("blackjack", h.handleBlackjackStart))
		bot.POST("/blackjack/hit", h.command("blackjack", func(c *gin.Context) { h.blackjackMove(c, "hit") }))
		bot.POST("/blackjack/stand", h.command("blackjack", func(c *gin.Context) { h.blackjackMove(c, "stand") }))
		bot.POST("/blackjack/double", h.command("blackjack", func(c *gin.Context) { h.blackjackMove(c, "double") }))
		bot.POST("/coinflip/create", h.command("coinflip", h.handleCoinFlipCreate))
		bot.POST("/coinflip/accept", h.command("coinflip", h.handleCoinFlipAccept))
		bot.POST("/coinflip/cancel", h.command("coinflip", h.handleCoinFlipCancel))
		bot.GET("/coinflip/open", h.handleCoinFlipOpen)
		bot.POST("/lottery/ticket", h.command("lottery", h.handleLotteryTicket))
		bot.GET("/lottery/current", h.handleLotteryCurrent)

		bot.GET("/shop", h.handleShopOffers)
		bot.POST("/shop/reroll", h.command("shop_reroll", h.handleShopReroll))
		bot.POST("/shop/purchase/:id", h.command("shop_purchase", h.handleShopPurchase))
		bot.GET("/consumables/catalog", h.handleConsumableCatalog)
		bot.POST("/consumables/buy/:id", h.command("consumable_buy", h.handleConsumableBuy))
		bot.POST("/consumables/use/:id", h.command("consumable_use", h.handleConsumableUse))
		bot.GET("/inventory", h.handleInventoryList)
		bot.POST("/inventory/equip/:id", h.command("equip", h.handleInventoryEquip))
		bot.POST("/inventory/unequip/:slot", h.command("unequip", h.handleInventoryUnequip))
		bot.POST("/inventory/sell/:id", h.command("sell", h.handleInventorySell))
		bot.POST("/inventory/open/:id", h.command("open_crate", h.handleInventoryOpen))
		bot.POST("/escrow/claim/:id", h.command("escrow_claim", h.handleEscrowClaim))
		bot.GET("/business/history", h.handleBusinessHistory)
		bot.GET("/missions", h.handleMissionsList)
		bot.POST("/missions/claim/:type", h.command("mission_claim", h.handleMissionsClaim))
		bot.POST("/tokens/convert", h.command("token_convert", h.handleTokensConvert))
		bot.POST("/tokens/spend", h.command("token_spend", h.handleTokensSpend))
		bot.POST("/bonds/convert", h.command("bond_convert", h.handleBondsConvert))
		bot.POST("/bonds/spend", h.command("bond_spend", h.handleBondsSpend))
	}

	adm := api.Group("/admin")
	adm.Use(h.AdminAuth())
	{
		adm.GET("/economy", h.handleAdminEconomy)
		adm.GET("/gambling/report", h.handleAdminGamblingReport)
		adm.POST("/adjust", h.handleAdminAdjust)
		adm.POST("/jackpot/reset", h.handleAdminJackpotReset)
		adm.POST("/lottery/draw", h.handleAdminLotteryDraw)
		adm.POST("/ban", h.handleAdminBan(true))
		adm.POST("/unban", h.handleAdminBan(false))
		adm.POST("/cooldowns/clear", h.handleAdminCooldownsClear)
		adm.POST("/juicernaut", h.handleAdminJuicernaut)
		adm.POST("/merge/preview", h.handleAdminMergePreview)
		adm.POST("/merge/execute", h.handleAdminMergeExecute)
		adm.POST("/stream", h.handleAdminStream)
	}

	return r
}

// handleHealth reports liveness and which optional pieces are wired.
func (h *Handler) handleHealth(c *gin.Context) {
	live, err := h.gate.IsLive(c.Request.Context())
	status := "operational"
	if err != nil {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"streamLive": live,
	})
}
