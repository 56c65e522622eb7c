package config

import (
	"fmt"
	"strings"

	"github.com/joeshaw/envdecode"
)

// Config is the full engine configuration, decoded from the environment.
// Secrets have no defaults; tuning values default to the live balance
// sheet and can be overridden per deployment.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        string `env:"PORT,default=5440"`
	LogDev      bool   `env:"LOG_DEV,default=false"`

	// RedisAddr enables the stream-liveness cache when set. Empty means
	// the gate reads straight from Postgres.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// BotToken authenticates the chat-bot gateway on command routes.
	// AdminToken protects the admin surface.
	BotToken   string `env:"BOT_SHARED_SECRET"`
	AdminToken string `env:"ADMIN_AUTH_TOKEN"`

	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	// Per-platform webhook signing secrets.
	KickWebhookSecret    string `env:"KICK_WEBHOOK_SECRET"`
	TwitchWebhookSecret  string `env:"TWITCH_WEBHOOK_SECRET"`
	DiscordWebhookSecret string `env:"DISCORD_WEBHOOK_SECRET"`

	// Outbound effect delivery (chat/TTS/lights bridge). Optional.
	EffectWebhookURL    string `env:"EFFECT_WEBHOOK_URL"`
	EffectWebhookSecret string `env:"EFFECT_WEBHOOK_SECRET"`

	RateLimitPerMin int `env:"RATE_LIMIT_PER_MIN,default=120"`
	RateLimitBurst  int `env:"RATE_LIMIT_BURST,default=30"`

	RNGSeed int64 `env:"RNG_SEED,default=0"`

	Economy Economy
}

// Economy holds the game balance constants. Every value is overridable by
// environment for live tuning without a deploy.
type Economy struct {
	StartingWealth int64 `env:"ECON_STARTING_WEALTH,default=1000"`

	BustChance  float64 `env:"ECON_BUST_CHANCE,default=0.05"`
	JailMinutes int     `env:"ECON_JAIL_MINUTES,default=60"`
	MinBail     int64   `env:"ECON_MIN_BAIL,default=500"`

	RobTargetCooldownMin int     `env:"ECON_ROB_TARGET_COOLDOWN_MIN,default=30"`
	RobGlobalCooldownSec int     `env:"ECON_ROB_GLOBAL_COOLDOWN_SEC,default=300"`
	StealPctMin          float64 `env:"ECON_STEAL_PCT_MIN,default=0.10"`
	StealPctMax          float64 `env:"ECON_STEAL_PCT_MAX,default=0.25"`
	ItemStealChance      float64 `env:"ECON_ITEM_STEAL_CHANCE,default=0.08"`

	DurabilityDecayMin int `env:"ECON_DURABILITY_DECAY_MIN,default=2"`
	DurabilityDecayMax int `env:"ECON_DURABILITY_DECAY_MAX,default=3"`

	CrateDropChance      float64 `env:"ECON_CRATE_DROP_CHANCE,default=0.02"`
	JuicernautMultiplier float64 `env:"ECON_JUICERNAUT_MULTIPLIER,default=2.0"`

	EscrowHours   int `env:"ECON_ITEM_ESCROW_HOURS,default=24"`
	MaxInventory  int `env:"ECON_MAX_INVENTORY,default=10"`
	MaxEscrow     int `env:"ECON_MAX_ESCROW,default=3"`
	MaxBusinesses int `env:"ECON_MAX_BUSINESSES,default=3"`

	TokenSoftCap        int     `env:"ECON_TOKEN_SOFT_CAP,default=50"`
	TokenHardCap        int     `env:"ECON_TOKEN_HARD_CAP,default=100"`
	TokenMaxPerDay      int     `env:"ECON_TOKEN_MAX_PER_DAY,default=10"`
	TokenBaseCost       int64   `env:"ECON_TOKEN_BASE_COST,default=1000"`
	TokenCostScaling    float64 `env:"ECON_TOKEN_COST_SCALING,default=1.15"`
	ChannelPointRate    int64   `env:"ECON_CHANNEL_POINT_RATE,default=500"`
	TokenDecayAtHard    float64 `env:"ECON_TOKEN_DECAY_AT_HARD,default=0.10"`
	TokenDecayAboveSoft float64 `env:"ECON_TOKEN_DECAY_ABOVE_SOFT,default=0.05"`
	TokenXPBoost        float64 `env:"ECON_TOKEN_XP_BOOST,default=2.0"`
	TokenWealthBoost    float64 `env:"ECON_TOKEN_WEALTH_BOOST,default=2.0"`
	TokenLuckBoost      float64 `env:"ECON_TOKEN_LUCK_BOOST,default=1.5"`

	BondMinLevel     int   `env:"ECON_BOND_MIN_LEVEL,default=20"`
	BondCooldownDays int   `env:"ECON_BOND_COOLDOWN_DAYS,default=7"`
	BondCost         int64 `env:"ECON_BOND_COST,default=250000"`
	BondsReceived    int64 `env:"ECON_BONDS_RECEIVED,default=5"`

	DailyMissionCount      int   `env:"ECON_DAILY_MISSION_COUNT,default=3"`
	WeeklyMissionCount     int   `env:"ECON_WEEKLY_MISSION_COUNT,default=5"`
	DailyWealthCap         int64 `env:"ECON_DAILY_WEALTH_CAP,default=50000"`
	WeeklyWealthCap        int64 `env:"ECON_WEEKLY_WEALTH_CAP,default=250000"`
	DailyClaimBonusWealth  int64 `env:"ECON_DAILY_CLAIM_BONUS_WEALTH,default=5000"`
	DailyClaimBonusXP      int64 `env:"ECON_DAILY_CLAIM_BONUS_XP,default=500"`
	WeeklyClaimBonusWealth int64 `env:"ECON_WEEKLY_CLAIM_BONUS_WEALTH,default=20000"`
	WeeklyClaimBonusXP     int64 `env:"ECON_WEEKLY_CLAIM_BONUS_XP,default=2000"`

	MinBet            int64   `env:"ECON_MIN_BET,default=100"`
	MaxBetBase        int64   `env:"ECON_MAX_BET_BASE,default=5000"`
	SlotsContribution float64 `env:"ECON_SLOTS_CONTRIBUTION,default=0.05"`
	JackpotBase       int64   `env:"ECON_JACKPOT_BASE,default=10000"`

	CoinFlipTTLMin int `env:"ECON_COINFLIP_TTL_MIN,default=5"`

	LotteryNumbers     int     `env:"ECON_LOTTERY_NUMBERS,default=3"`
	LotteryMaxNumber   int     `env:"ECON_LOTTERY_MAX_NUMBER,default=30"`
	LotteryTicketCost  int64   `env:"ECON_LOTTERY_TICKET_COST,default=1000"`
	LotteryHouseCut    float64 `env:"ECON_LOTTERY_HOUSE_CUT,default=0.20"`
	LotteryMaxTickets  int     `env:"ECON_LOTTERY_MAX_TICKETS,default=5"`
	LotteryTwoMatchMul int64   `env:"ECON_LOTTERY_TWO_MATCH_MUL,default=10"`
	LotteryOneMatchMul int64   `env:"ECON_LOTTERY_ONE_MATCH_MUL,default=2"`
	LotteryDrawHourUTC int     `env:"ECON_LOTTERY_DRAW_HOUR_UTC,default=20"`

	BusinessVariancePct float64 `env:"ECON_BUSINESS_VARIANCE_PCT,default=0.20"`
	BusinessCollections int     `env:"ECON_BUSINESS_COLLECTIONS_PER_DAY,default=8"`

	ShopSlots             int   `env:"ECON_SHOP_SLOTS,default=6"`
	ShopRerollFee         int64 `env:"ECON_SHOP_REROLL_FEE,default=500"`
	ShopRerollCooldownMin int   `env:"ECON_SHOP_REROLL_COOLDOWN_MIN,default=5"`

	CheckinBaseReward int64 `env:"ECON_CHECKIN_BASE_REWARD,default=250"`
	CheckinStreakCap  int   `env:"ECON_CHECKIN_STREAK_CAP,default=7"`

	NotificationRetentionDays int `env:"ECON_NOTIFICATION_RETENTION_DAYS,default=14"`
	EventRetentionDays        int `env:"ECON_EVENT_RETENTION_DAYS,default=90"`
	WebhookStaleMinutes       int `env:"ECON_WEBHOOK_STALE_MINUTES,default=10"`
}

// Load decodes the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every violation at once rather than failing on the
// first, so a bad deploy surfaces the full list in one log line.
func (c *Config) Validate() error {
	var problems []string

	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	e := c.Economy
	if e.BustChance < 0 || e.BustChance >= 1 {
		add("ECON_BUST_CHANCE must be in [0,1), got %v", e.BustChance)
	}
	if e.StealPctMin <= 0 || e.StealPctMax <= e.StealPctMin || e.StealPctMax >= 1 {
		add("steal percentages must satisfy 0 < min < max < 1, got [%v, %v]", e.StealPctMin, e.StealPctMax)
	}
	if e.DurabilityDecayMin < 0 || e.DurabilityDecayMax < e.DurabilityDecayMin {
		add("durability decay range [%d, %d] is invalid", e.DurabilityDecayMin, e.DurabilityDecayMax)
	}
	if e.TokenSoftCap <= 0 || e.TokenHardCap < e.TokenSoftCap {
		add("token caps must satisfy 0 < soft <= hard, got soft=%d hard=%d", e.TokenSoftCap, e.TokenHardCap)
	}
	if e.TokenCostScaling < 1 {
		add("ECON_TOKEN_COST_SCALING must be >= 1, got %v", e.TokenCostScaling)
	}
	if e.MaxInventory <= 0 || e.MaxEscrow < 0 {
		add("inventory capacities must be positive, got main=%d escrow=%d", e.MaxInventory, e.MaxEscrow)
	}
	if e.LotteryNumbers <= 0 || e.LotteryMaxNumber < e.LotteryNumbers {
		add("lottery needs max number >= pick count, got pick=%d max=%d", e.LotteryNumbers, e.LotteryMaxNumber)
	}
	if e.LotteryHouseCut < 0 || e.LotteryHouseCut >= 1 {
		add("ECON_LOTTERY_HOUSE_CUT must be in [0,1), got %v", e.LotteryHouseCut)
	}
	if e.LotteryDrawHourUTC < 0 || e.LotteryDrawHourUTC > 23 {
		add("ECON_LOTTERY_DRAW_HOUR_UTC must be in [0,23], got %d", e.LotteryDrawHourUTC)
	}
	if e.BusinessCollections <= 0 || e.BusinessCollections > 24 {
		add("ECON_BUSINESS_COLLECTIONS_PER_DAY must be in [1,24], got %d", e.BusinessCollections)
	}
	if e.MinBet <= 0 {
		add("ECON_MIN_BET must be positive, got %d", e.MinBet)
	}
	if c.RateLimitPerMin <= 0 || c.RateLimitBurst <= 0 {
		add("rate limit values must be positive, got %d/min burst %d", c.RateLimitPerMin, c.RateLimitBurst)
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
