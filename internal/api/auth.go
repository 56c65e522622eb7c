package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────
// Bearer Token Authentication Middleware
//
// Command routes require the bot gateway's shared secret; the admin
// surface requires its own token: Authorization: Bearer <token>
//
// Public endpoints (health, metrics, HMAC-verified webhook ingress,
// WebSocket stream) are excluded.
// ──────────────────────────────────────────────────────────────────

// bearerAuth validates a bearer token with a constant-time comparison. An
// empty configured token allows everything, which is only acceptable in
// development; the caller logs the warning once at startup.
func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHENTICATED",
					"kind":    "authz",
					"message": "missing Authorization header",
				},
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" ||
			subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"kind":    "authz",
					"message": "invalid token",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// BotAuth protects the command surface with the chat-bot shared secret.
func (h *Handler) BotAuth() gin.HandlerFunc {
	if h.cfg.BotToken == "" && gin.Mode() == gin.ReleaseMode {
		h.log.Warn("BOT_SHARED_SECRET is not set in release mode; command routes are open")
	}
	return bearerAuth(h.cfg.BotToken)
}

// AdminAuth protects operator routes. Unlike the bot surface, an unset
// admin token closes the routes entirely rather than opening them.
func (h *Handler) AdminAuth() gin.HandlerFunc {
	if h.cfg.AdminToken == "" {
		h.log.Warn("ADMIN_AUTH_TOKEN is not set; admin routes are disabled")
		return func(c *gin.Context) {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"kind":    "authz",
					"message": "admin surface is not configured",
				},
			})
			c.Abort()
		}
	}
	return bearerAuth(h.cfg.AdminToken)
}
