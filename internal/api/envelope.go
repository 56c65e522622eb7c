package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// ──────────────────────────────────────────────────────────────────
// Wire envelope
//
// Every response is one JSON object. Successes carry "success": true
// beside the operation's own fields; failures carry the stable error
// triple. Splicing the flag into the payload's marshaled bytes keeps
// custom marshalers (currency-as-string) intact.
// ──────────────────────────────────────────────────────────────────

// ok writes the success envelope with the payload's fields at the top
// level. A nil payload yields the bare {"success":true}.
func (h *Handler) ok(c *gin.Context, payload any) {
	body, err := successBody(payload)
	if err != nil {
		h.fail(c, econerr.Wrap(err, "encoding response"))
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func successBody(payload any) ([]byte, error) {
	const head = `{"success":true`
	if payload == nil {
		return []byte(head + "}"), nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if len(b) < 2 || b[0] != '{' {
		return nil, fmt.Errorf("payload must marshal to an object, got %.32s", b)
	}
	if len(b) == 2 {
		return []byte(head + "}"), nil
	}
	out := make([]byte, 0, len(head)+len(b))
	out = append(out, head...)
	out = append(out, ',')
	out = append(out, b[1:]...)
	return out, nil
}

// fail maps a domain error onto the wire. Only Internal-kind failures are
// logged with their cause; everything else already said what it had to say
// in the user-safe message.
func (h *Handler) fail(c *gin.Context, err error) {
	kind := econerr.KindOf(err)
	if kind == econerr.Internal {
		h.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(econerr.HTTPStatus(kind), gin.H{
		"success": false,
		"error": gin.H{
			"code":    econerr.CodeOf(err),
			"kind":    string(kind),
			"message": econerr.MessageOf(err),
		},
	})
}

// ──────────────────────────────────────────────────────────────────
// Identity
// ──────────────────────────────────────────────────────────────────

// identity names the acting player as the bot gateway sees them. Command
// bodies embed it; read endpoints carry the same fields in the query
// string. ViaChannelPoints marks a paid redemption, which bypasses the
// live-stream gate.
type identity struct {
	Platform         models.Platform `json:"platform" form:"platform"`
	PlatformUserID   string          `json:"platformUserId" form:"platformUserId"`
	Username         string          `json:"username" form:"username"`
	ViaChannelPoints bool            `json:"viaChannelPoints" form:"viaChannelPoints"`
}

func (id identity) validate() error {
	if !models.ValidPlatform(id.Platform) {
		return econerr.Newf(econerr.Validation, econerr.CodeInvalidInput, "unknown platform %q", id.Platform)
	}
	if id.PlatformUserID == "" {
		return econerr.New(econerr.Validation, econerr.CodeInvalidInput, "platformUserId is required")
	}
	return nil
}

// resolveUser maps a platform identity onto an account, creating one on
// first contact with the configured starting wealth. This is the only
// place accounts come into being. A changed display name is adopted on the
// next command; tombstones never resolve and bans are refused here so
// every route behind an identity is covered uniformly.
func (h *Handler) resolveUser(ctx context.Context, id identity) (*models.User, error) {
	if err := id.validate(); err != nil {
		return nil, err
	}
	var user *models.User
	err := h.store.WithTx(ctx, func(tx pgx.Tx) error {
		u, err := h.store.GetUserByPlatformID(ctx, tx, id.Platform, id.PlatformUserID)
		if err == nil {
			if u.Merged() {
				return econerr.New(econerr.Policy, econerr.CodeUserMerged, "this account was merged")
			}
			if u.IsBanned {
				return econerr.New(econerr.Authz, econerr.CodeUserBanned, "this account is banned")
			}
			if id.Username != "" && id.Username != u.Username {
				if err := h.store.UpdateUsername(ctx, tx, u.ID, id.Username); err != nil {
					return econerr.Wrap(err, "updating username")
				}
				u.Username = id.Username
			}
			user = u
			return nil
		}
		if !db.IsNoRows(err) {
			return econerr.Wrap(err, "resolving user")
		}

		name := id.Username
		if name == "" {
			name = fmt.Sprintf("%s_%s", id.Platform, id.PlatformUserID)
		}
		u, err = h.store.CreateUser(ctx, tx, id.Platform, id.PlatformUserID, name)
		if err != nil {
			return econerr.Wrap(err, "creating user")
		}
		if h.cfg.Economy.StartingWealth > 0 {
			w, err := h.store.CreditWealth(ctx, tx, u.ID, h.cfg.Economy.StartingWealth)
			if err != nil {
				return econerr.Wrap(err, "seeding starting wealth")
			}
			u.Wealth = int64(w)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// bindBody reads identity plus any extra fields from the request body. An
// unparseable body is a Validation failure before anything runs.
func bindBody(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return econerr.New(econerr.Validation, econerr.CodeInvalidInput, "malformed request body")
	}
	return nil
}

// bindQuery reads identity fields from the query string for GET endpoints.
func bindQuery(c *gin.Context, dst any) error {
	if err := c.ShouldBindQuery(dst); err != nil {
		return econerr.New(econerr.Validation, econerr.CodeInvalidInput, "malformed query parameters")
	}
	return nil
}
