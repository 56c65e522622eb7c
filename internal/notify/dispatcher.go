// Package notify delivers the side effects a committed transaction decided
// on: chat lines and overlay events to the websocket feed, persistent rows
// to user_notifications, and a signed POST to the effect bridge when one is
// configured. Nothing here can roll back state; failures are logged and the
// economy moves on.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/pkg/models"
)

const (
	defaultWorkers = 4
	queueSize      = 1024
	maxAttempts    = 3
	persistTimeout = 5 * time.Second
)

// Broadcaster pushes one message to every live websocket client. The api
// hub satisfies it; a nil Broadcaster disables the feed.
type Broadcaster interface {
	Broadcast(data []byte)
}

// Dispatcher drains the post-commit intent queue through a small worker
// pool. Enqueueing never blocks the request path: a full queue drops the
// intent with a warning.
type Dispatcher struct {
	store  *db.Store
	hub    Broadcaster
	client *http.Client
	queue  chan *delivery
	url    string
	secret string
	log    *zap.Logger
	wg     sync.WaitGroup
}

type delivery struct {
	id     string
	intent models.Intent
}

// envelope is the wire shape of one delivery, shared by the websocket feed
// and the effect bridge.
type envelope struct {
	DeliveryID string         `json:"deliveryId"`
	Kind       string         `json:"kind"`
	UserID     int64          `json:"userId"`
	Username   string         `json:"username,omitempty"`
	Title      string         `json:"title,omitempty"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	SentAt     time.Time      `json:"sentAt"`
}

// NewDispatcher starts the worker pool. url and secret configure the effect
// bridge; an empty url skips the outbound POST entirely.
func NewDispatcher(store *db.Store, hub Broadcaster, url, secret string, workers int, log *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	d := &Dispatcher{
		store:  store,
		hub:    hub,
		client: &http.Client{Timeout: 10 * time.Second},
		queue:  make(chan *delivery, queueSize),
		url:    url,
		secret: secret,
		log:    log.Named("notify"),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch enqueues every intent from a committed transaction. Call it only
// after commit.
func (d *Dispatcher) Dispatch(intents []models.Intent) {
	for _, in := range intents {
		dv := &delivery{id: uuid.NewString(), intent: in}
		select {
		case d.queue <- dv:
		default:
			d.log.Warn("intent queue full, dropping",
				zap.String("kind", in.Kind), zap.Int64("user_id", in.UserID))
		}
	}
}

// Shutdown stops accepting work and waits for in-flight deliveries.
func (d *Dispatcher) Shutdown() {
	close(d.queue)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for dv := range d.queue {
		d.deliver(dv)
	}
}

// deliver persists, broadcasts, then posts. Retries apply to the bridge
// POST only; persistence and the websocket push run once per intent.
func (d *Dispatcher) deliver(dv *delivery) {
	env := envelope{
		DeliveryID: dv.id,
		Kind:       dv.intent.Kind,
		UserID:     dv.intent.UserID,
		Username:   dv.intent.Username,
		Title:      dv.intent.Title,
		Message:    dv.intent.Message,
		Data:       dv.intent.Data,
		SentAt:     time.Now().UTC(),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		d.log.Error("marshaling intent", zap.Error(err), zap.String("kind", env.Kind))
		return
	}

	if dv.intent.Kind != models.IntentChat {
		d.persist(dv.intent)
	}
	if d.hub != nil {
		d.hub.Broadcast(payload)
	}
	if d.url == "" {
		return
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if d.post(payload, env, attempt) {
			return
		}
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt*attempt) * time.Second)
		}
	}
	d.log.Warn("effect delivery gave up",
		zap.String("delivery_id", dv.id), zap.String("kind", env.Kind))
}

// persist stores the durable notification row. Chat lines are ephemeral and
// never reach this.
func (d *Dispatcher) persist(in models.Intent) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	title := in.Title
	if title == "" {
		title = in.Kind
	}
	err := d.store.InsertNotification(ctx, d.store.Pool(), &models.Notification{
		UserID: in.UserID,
		Kind:   in.Kind,
		Title:  title,
		Body:   in.Message,
	})
	if err != nil {
		d.log.Error("persisting notification", zap.Error(err),
			zap.Int64("user_id", in.UserID), zap.String("kind", in.Kind))
	}
}

// post sends one signed attempt to the effect bridge. Returns true when the
// bridge accepted it; 4xx responses count as accepted since a retry would
// fail identically.
func (d *Dispatcher) post(payload []byte, env envelope, attempt int) bool {
	req, err := http.NewRequest(http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		d.log.Error("building effect request", zap.Error(err))
		return true
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Economy-Event", env.Kind)
	req.Header.Set("X-Economy-Delivery", env.DeliveryID)
	req.Header.Set("X-Economy-Delivery-Attempt", fmt.Sprintf("%d", attempt))
	if d.secret != "" {
		req.Header.Set("X-Economy-Signature", "sha256="+SignPayload(payload, d.secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warn("effect delivery failed",
			zap.Error(err), zap.String("delivery_id", env.DeliveryID), zap.Int("attempt", attempt))
		return false
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 400:
		return true
	case resp.StatusCode < 500:
		d.log.Warn("effect bridge rejected delivery",
			zap.Int("status", resp.StatusCode), zap.String("delivery_id", env.DeliveryID))
		return true
	default:
		d.log.Warn("effect bridge error",
			zap.Int("status", resp.StatusCode), zap.String("delivery_id", env.DeliveryID), zap.Int("attempt", attempt))
		return false
	}
}

// SignPayload computes the hex HMAC-SHA256 of payload under secret. The
// bridge recomputes it to verify the X-Economy-Signature header.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
