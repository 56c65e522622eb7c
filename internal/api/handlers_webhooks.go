package api

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/notify"
	"github.com/grindcity/economy-engine/internal/tokens"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// ──────────────────────────────────────────────────────────────────
// Platform webhook ingress
//
// POST /api/v1/webhooks/:platform carries stream lifecycle changes
// and channel-point redemptions. Authenticity is an HMAC signature
// over the raw body; idempotence is the (source, event id) claim row.
// A replayed delivery gets the recorded response byte for byte.
// ──────────────────────────────────────────────────────────────────

const signatureHeader = "X-Webhook-Signature"

// webhookSecret picks the signing secret for a platform.
func (h *Handler) webhookSecret(platform models.Platform) string {
	switch platform {
	case models.PlatformKick:
		return h.cfg.KickWebhookSecret
	case models.PlatformTwitch:
		return h.cfg.TwitchWebhookSecret
	case models.PlatformDiscord:
		return h.cfg.DiscordWebhookSecret
	}
	return ""
}

// verifySignature checks the sha256= HMAC header over the raw body. An
// empty configured secret admits everything; acceptable only in dev, the
// startup log warns about it.
func verifySignature(body []byte, header, secret string) bool {
	if secret == "" {
		return true
	}
	want := "sha256=" + notify.SignPayload(body, secret)
	return hmac.Equal([]byte(header), []byte(want))
}

func (h *Handler) handleWebhook(c *gin.Context) {
	platform := models.Platform(c.Param("platform"))
	if !models.ValidPlatform(platform) {
		h.fail(c, econerr.Newf(econerr.Validation, econerr.CodeInvalidInput,
			"unknown platform %q", platform))
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		h.fail(c, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "unreadable body"))
		return
	}
	if !verifySignature(body, c.GetHeader(signatureHeader), h.webhookSecret(platform)) {
		h.metrics.WebhookEvents.WithLabelValues(string(platform), "bad_signature").Inc()
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "BAD_SIGNATURE",
				"kind":    "authz",
				"message": "signature verification failed",
			},
		})
		return
	}

	ev, err := parsePlatformEvent(platform, body)
	if err != nil {
		h.metrics.WebhookEvents.WithLabelValues(string(platform), "malformed").Inc()
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	source := string(platform)

	claimed, err := h.store.ClaimWebhookEvent(ctx, h.store.Pool(), source, ev.EventID)
	if err != nil {
		h.fail(c, econerr.Wrap(err, "claiming event"))
		return
	}
	if !claimed {
		h.replayWebhook(c, source, ev.EventID)
		return
	}

	envelope, intents, procErr := h.processIngress(ctx, ev)
	if procErr != nil {
		// Infrastructure failures release the claim so the bridge's retry
		// can run the event again. Domain failures are final: the recorded
		// envelope is the answer, retries replay it.
		if econerr.KindOf(procErr) == econerr.Internal {
			if relErr := h.store.ReleaseWebhookEvent(ctx, h.store.Pool(), source, ev.EventID); relErr != nil {
				h.log.Error("releasing webhook claim failed",
					zap.String("source", source),
					zap.String("event_id", ev.EventID),
					zap.Error(relErr))
			}
			h.metrics.WebhookEvents.WithLabelValues(source, "error").Inc()
			h.fail(c, procErr)
			return
		}
		var encErr error
		envelope, encErr = failureBody(procErr)
		if encErr != nil {
			h.fail(c, econerr.Wrap(encErr, "encoding failure envelope"))
			return
		}
	}

	if err := h.store.CompleteWebhookEvent(ctx, h.store.Pool(), source, ev.EventID, envelope, h.clock.Now()); err != nil {
		h.fail(c, econerr.Wrap(err, "completing event"))
		return
	}
	h.dispatch(intents)

	outcome := "ok"
	if procErr != nil {
		outcome = "refused"
	}
	h.metrics.WebhookEvents.WithLabelValues(source, outcome).Inc()
	c.Data(http.StatusOK, "application/json; charset=utf-8", envelope)
}

// replayWebhook answers a duplicate delivery. Completed events replay the
// stored envelope; claims still in flight answer Conflict so the bridge
// backs off and retries later.
func (h *Handler) replayWebhook(c *gin.Context, source, eventID string) {
	ev, err := h.store.GetWebhookEvent(c.Request.Context(), h.store.Pool(), source, eventID)
	if err != nil {
		h.fail(c, econerr.Wrap(err, "loading event record"))
		return
	}
	if ev == nil || ev.Status != models.WebhookDone {
		h.metrics.WebhookEvents.WithLabelValues(source, "in_flight").Inc()
		h.fail(c, econerr.New(econerr.Conflict, econerr.CodeDuplicateEvent,
			"this event is still being processed"))
		return
	}
	h.metrics.WebhookEvents.WithLabelValues(source, "replayed").Inc()
	c.Data(http.StatusOK, "application/json; charset=utf-8", ev.ResponseBody)
}

// processIngress runs one claimed event and returns the response envelope
// to record. Redemptions run the mapped command with the stream gate
// bypassed; the redeemer already paid channel points for it.
func (h *Handler) processIngress(ctx context.Context, ev *IngressEvent) ([]byte, []models.Intent, error) {
	switch ev.Kind {
	case ingressIgnored:
		body, err := successBody(gin.H{"ignored": true})
		return body, nil, err

	case ingressStreamOnline, ingressStreamOffline:
		active := ev.Kind == ingressStreamOnline
		err := h.store.WithTx(ctx, func(tx pgx.Tx) error {
			return h.gate.SetLive(ctx, tx, string(ev.Platform), active)
		})
		if err != nil {
			return nil, nil, econerr.Wrap(err, "updating stream state")
		}
		h.gate.Invalidate(ctx)
		h.log.Info("stream state changed",
			zap.String("platform", string(ev.Platform)),
			zap.Bool("live", active))
		body, err := successBody(gin.H{"live": active})
		return body, nil, err

	case ingressRedemption:
		return h.processRedemption(ctx, ev)
	}
	return nil, nil, econerr.Newf(econerr.Validation, econerr.CodeInvalidInput,
		"unknown event kind %q", ev.Kind)
}

// processRedemption maps a paid reward onto its command.
func (h *Handler) processRedemption(ctx context.Context, ev *IngressEvent) ([]byte, []models.Intent, error) {
	user, err := h.resolveUser(ctx, identity{
		Platform:         ev.Platform,
		PlatformUserID:   ev.PlatformUserID,
		Username:         ev.Username,
		ViaChannelPoints: true,
	})
	if err != nil {
		return nil, nil, err
	}

	switch ev.Reward {
	case "play":
		res, err := h.svc.Actions.Play(ctx, user.ID)
		if err != nil {
			return nil, nil, err
		}
		body, encErr := successBody(res)
		return body, res.Intents, encErr

	case "rob":
		if ev.Input == "" {
			return nil, nil, econerr.New(econerr.Validation, econerr.CodeInvalidInput,
				"the rob reward needs a target name")
		}
		res, err := h.svc.Actions.Rob(ctx, user.ID, ev.Input)
		if err != nil {
			return nil, nil, err
		}
		body, encErr := successBody(res)
		return body, res.Intents, encErr

	case "checkin":
		res, err := h.svc.Actions.Checkin(ctx, user.ID)
		if err != nil {
			return nil, nil, err
		}
		body, encErr := successBody(res)
		return body, res.Intents, encErr

	case "tokens":
		var res *tokens.ChannelPointResult
		err := h.store.WithTx(ctx, func(tx pgx.Tx) error {
			var err error
			res, err = h.svc.Tokens.ConvertChannelPoints(ctx, tx, user.ID, ev.Points)
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		body, encErr := successBody(res)
		return body, nil, encErr
	}
	return nil, nil, econerr.Newf(econerr.Validation, econerr.CodeInvalidInput,
		"unknown reward %q", ev.Reward)
}

// failureBody mirrors fail for envelopes that must be recorded rather than
// written straight to a response.
func failureBody(err error) ([]byte, error) {
	return json.Marshal(gin.H{
		"success": false,
		"error": gin.H{
			"code":    econerr.CodeOf(err),
			"kind":    string(econerr.KindOf(err)),
			"message": econerr.MessageOf(err),
		},
	})
}
