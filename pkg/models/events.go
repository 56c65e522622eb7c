package models

import "time"

// GameEvent is the append-only audit trail. One row is written inside
// every state-mutating transaction.
type GameEvent struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	EventType    string    `json:"eventType"`
	WealthChange Currency  `json:"wealthChange"`
	XPChange     int64     `json:"xpChange"`
	Success      bool      `json:"success"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Notification is a persisted user-facing message. The post-commit
// dispatcher writes it while delivering intents; game_events is the durable
// audit record, this table only feeds the notification list.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Intent is a side effect decided inside a transaction and dispatched only
// after commit: chat lines, overlay effects, outbound webhooks. Failure to
// deliver never affects committed state.
type Intent struct {
	Kind     string         `json:"kind"`
	UserID   int64          `json:"userId"`
	Username string         `json:"username,omitempty"`
	Title    string         `json:"title,omitempty"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
}

// Intent kinds dispatched by the engine.
const (
	IntentChat          = "chat_message"
	IntentNotification  = "notification"
	IntentTierPromotion = "tier_promotion"
	IntentCrateAwarded  = "crate_awarded"
	IntentJackpotWin    = "jackpot_win"
	IntentRobAlert      = "rob_alert"
	IntentLotteryResult = "lottery_result"
)

// Achievement is a long-running counter merged across accounts on merge
// (max progress, OR completed).
type Achievement struct {
	UserID         int64      `json:"userId"`
	AchievementKey string     `json:"achievementKey"`
	Progress       int64      `json:"progress"`
	IsCompleted    bool       `json:"isCompleted"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// Title is a cosmetic unlock; one row per (user, title key).
type Title struct {
	UserID   int64     `json:"userId"`
	TitleKey string    `json:"titleKey"`
	EarnedAt time.Time `json:"earnedAt"`
}

// ProcessedWebhookEvent is the ingress idempotence record for a
// (source, source_event_id) pair.
type ProcessedWebhookEvent struct {
	Source        string     `json:"source"`
	SourceEventID string     `json:"sourceEventId"`
	Status        string     `json:"status"`
	ResponseBody  []byte     `json:"-"`
	ReceivedAt    time.Time  `json:"receivedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// Webhook idempotence statuses.
const (
	WebhookProcessing = "processing"
	WebhookDone       = "done"
)

// BusinessRevenue is one P&L line from the revenue scheduler.
type BusinessRevenue struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	ItemDefID     int64     `json:"itemDefId"`
	GrossRevenue  Currency  `json:"grossRevenue"`
	OperatingCost Currency  `json:"operatingCost"`
	NetRevenue    Currency  `json:"netRevenue"`
	CollectedAt   time.Time `json:"collectedAt"`
}
