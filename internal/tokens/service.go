// Package tokens manages the two secondary currencies. Tokens convert from
// wealth or channel points under soft and hard caps with nightly decay;
// bonds are the premium sink gated by level and a conversion cooldown.
// Every balance change lands a ledger row in the same transaction.
package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/config"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// Ledger transaction types.
const (
	TxWealthConversion = "WEALTH_CONVERSION"
	TxChannelPoints    = "CHANNEL_POINTS"
	TxSpend            = "SPEND"
	TxDecay            = "DECAY"
	TxPurchase         = "PURCHASE"
	TxAdmin            = "ADMIN"
)

// Spend purposes and the boost each one buys.
const (
	PurposeXPBoost     = "xp_boost"
	PurposeWealthBoost = "wealth_boost"
	PurposeLuckBoost   = "luck_boost"
)

// ConvertResult reports one wealth-to-token conversion.
type ConvertResult struct {
	Tokens    int             `json:"tokens"`
	Cost      models.Currency `json:"cost"`
	NewWealth models.Currency `json:"newWealth"`
}

// ChannelPointResult reports a channel-point grant.
type ChannelPointResult struct {
	Granted int `json:"granted"`
	Tokens  int `json:"tokens"`
}

// SpendResult carries the multiplier the purchased boost confers.
type SpendResult struct {
	Remaining  int     `json:"remaining"`
	Multiplier float64 `json:"multiplier"`
}

// BondConvertResult reports one wealth-to-bond conversion.
type BondConvertResult struct {
	Bonds     int64           `json:"bonds"`
	Cost      models.Currency `json:"cost"`
	NewWealth models.Currency `json:"newWealth"`
}

type Service struct {
	store *db.Store
	cfg   *config.Economy
	clock clock.Clock
	log   *zap.Logger
}

func NewService(store *db.Store, cfg *config.Economy, clk clock.Clock, log *zap.Logger) *Service {
	return &Service{store: store, cfg: cfg, clock: clk, log: log.Named("tokens")}
}

// ConvertWealthToToken buys one token at the scaling daily price. Refused
// at the hard cap and past the daily conversion count.
func (s *Service) ConvertWealthToToken(ctx context.Context, q db.Querier, userID int64) (*ConvertResult, error) {
	user, err := s.store.GetUserForUpdate(ctx, q, userID)
	if err != nil {
		return nil, econerr.Wrap(err, "locking user")
	}
	if user.Tokens >= s.cfg.TokenHardCap {
		return nil, econerr.Newf(econerr.Policy, "TOKEN_HARD_CAP",
			"token balance is at the cap of %d", s.cfg.TokenHardCap)
	}
	if user.TokensEarnedToday >= s.cfg.TokenMaxPerDay {
		return nil, econerr.Newf(econerr.Policy, "TOKEN_DAILY_LIMIT",
			"you already converted %d tokens today", user.TokensEarnedToday)
	}

	cost := ConversionCost(s.cfg.TokenBaseCost, s.cfg.TokenCostScaling, user.TokensEarnedToday)
	if user.Wealth < cost {
		return nil, econerr.Newf(econerr.Insufficient, econerr.CodeInsufficientWealth,
			"the next token costs %d", cost)
	}
	newWealth, err := s.store.CreditWealth(ctx, q, userID, -cost)
	if err != nil {
		return nil, econerr.Wrap(err, "debiting conversion cost")
	}
	newTokens := user.Tokens + 1
	if newTokens > s.cfg.TokenHardCap {
		newTokens = s.cfg.TokenHardCap
	}
	if err := s.store.SetTokens(ctx, q, userID, newTokens, user.TokensEarnedToday+1); err != nil {
		return nil, econerr.Wrap(err, "crediting token")
	}
	if err := s.store.AppendTokenTransaction(ctx, q, userID, 1, TxWealthConversion,
		fmt.Sprintf("converted %d wealth", cost)); err != nil {
		return nil, econerr.Wrap(err, "recording conversion")
	}
	return &ConvertResult{Tokens: newTokens, Cost: models.Currency(cost), NewWealth: newWealth}, nil
}

// ConvertChannelPoints grants floor(cp/RATE) tokens clamped at the hard
// cap. Channel-point grants do not count against the daily conversion
// limit; the clamp alone bounds them.
func (s *Service) ConvertChannelPoints(ctx context.Context, q db.Querier, userID, channelPoints int64) (*ChannelPointResult, error) {
	granted := int(channelPoints / s.cfg.ChannelPointRate)
	if granted <= 0 {
		return nil, econerr.Newf(econerr.Validation, econerr.CodeInvalidInput,
			"at least %d channel points are needed per token", s.cfg.ChannelPointRate)
	}
	user, err := s.store.GetUserForUpdate(ctx, q, userID)
	if err != nil {
		return nil, econerr.Wrap(err, "locking user")
	}
	newTokens := user.Tokens + granted
	if newTokens > s.cfg.TokenHardCap {
		newTokens = s.cfg.TokenHardCap
	}
	credited := newTokens - user.Tokens
	if credited <= 0 {
		return nil, econerr.Newf(econerr.Policy, "TOKEN_HARD_CAP",
			"token balance is at the cap of %d", s.cfg.TokenHardCap)
	}
	if err := s.store.SetTokens(ctx, q, userID, newTokens, user.TokensEarnedToday); err != nil {
		return nil, econerr.Wrap(err, "crediting tokens")
	}
	if err := s.store.AppendTokenTransaction(ctx, q, userID, credited, TxChannelPoints,
		fmt.Sprintf("redeemed %d channel points", channelPoints)); err != nil {
		return nil, econerr.Wrap(err, "recording redemption")
	}
	return &ChannelPointResult{Granted: credited, Tokens: newTokens}, nil
}

// SpendTokens burns n tokens for a boost and returns its multiplier. The
// decrement carries its own precondition so a concurrent spend cannot
// overdraw the balance.
func (s *Service) SpendTokens(ctx context.Context, q db.Querier, userID int64, n int, purpose string) (*SpendResult, error) {
	if n <= 0 {
		return nil, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "spend amount must be positive")
	}
	mult, err := s.purposeMultiplier(purpose)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.SpendTokens(ctx, q, userID, n)
	if err != nil {
		return nil, econerr.Wrap(err, "spending tokens")
	}
	if !ok {
		return nil, econerr.Newf(econerr.Insufficient, econerr.CodeInsufficientTokens,
			"you need %d tokens", n)
	}
	user, err := s.store.GetUserByID(ctx, q, userID)
	if err != nil {
		return nil, econerr.Wrap(err, "reloading balance")
	}
	if err := s.store.AppendTokenTransaction(ctx, q, userID, -n, TxSpend, purpose); err != nil {
		return nil, econerr.Wrap(err, "recording spend")
	}
	return &SpendResult{Remaining: user.Tokens, Multiplier: mult}, nil
}

func (s *Service) purposeMultiplier(purpose string) (float64, error) {
	switch purpose {
	case PurposeXPBoost:
		return s.cfg.TokenXPBoost, nil
	case PurposeWealthBoost:
		return s.cfg.TokenWealthBoost, nil
	case PurposeLuckBoost:
		return s.cfg.TokenLuckBoost, nil
	}
	return 0, econerr.Newf(econerr.Validation, econerr.CodeInvalidInput, "unknown boost %q", purpose)
}

// DecayPass shaves every balance above the soft cap, one user per
// transaction so a single failure cannot hold up the batch.
func (s *Service) DecayPass(ctx context.Context) (int, error) {
	ids, err := s.store.ListUsersAboveTokenCap(ctx, s.store.Pool(), s.cfg.TokenSoftCap)
	if err != nil {
		return 0, econerr.Wrap(err, "listing decay candidates")
	}
	decayed := 0
	for _, id := range ids {
		if err := s.decayUser(ctx, id); err != nil {
			s.log.Error("token decay failed", zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		decayed++
	}
	if decayed > 0 {
		s.log.Info("token decay pass complete", zap.Int("users", decayed))
	}
	return decayed, nil
}

func (s *Service) decayUser(ctx context.Context, userID int64) error {
	return s.store.WithTx(ctx, func(tx pgx.Tx) error {
		user, err := s.store.GetUserForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		d := DecayAmount(user.Tokens, s.cfg.TokenSoftCap, s.cfg.TokenHardCap,
			s.cfg.TokenDecayAtHard, s.cfg.TokenDecayAboveSoft)
		if d == 0 {
			return nil
		}
		if err := s.store.SetTokens(ctx, tx, userID, user.Tokens-d, user.TokensEarnedToday); err != nil {
			return err
		}
		return s.store.AppendTokenTransaction(ctx, tx, userID, -d, TxDecay, "nightly decay")
	})
}

// ResetDailyCounters zeroes tokens_earned_today at UTC midnight.
func (s *Service) ResetDailyCounters(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	n, err := s.store.ResetDailyTokenCounters(ctx, s.store.Pool(), midnight)
	if err != nil {
		return 0, econerr.Wrap(err, "resetting daily token counters")
	}
	if n > 0 {
		s.log.Info("reset daily token counters", zap.Int64("users", n))
	}
	return n, nil
}

// ─── Bonds ───────────────────────────────────────────────────────────

// ConvertWealthToBonds runs the high-cost wealth sink: level gate, one
// conversion per cooldown window, fixed bond payout.
func (s *Service) ConvertWealthToBonds(ctx context.Context, q db.Querier, userID int64) (*BondConvertResult, error) {
	user, err := s.store.GetUserForUpdate(ctx, q, userID)
	if err != nil {
		return nil, econerr.Wrap(err, "locking user")
	}
	if user.Level < s.cfg.BondMinLevel {
		return nil, econerr.Newf(econerr.Policy, "BOND_LEVEL_GATE",
			"bond conversion unlocks at level %d", s.cfg.BondMinLevel)
	}
	now := s.clock.Now()
	if user.LastBondConversion != nil {
		window := time.Duration(s.cfg.BondCooldownDays) * 24 * time.Hour
		if elapsed := now.Sub(*user.LastBondConversion); elapsed < window {
			return nil, econerr.Newf(econerr.Cooldown, "BOND_COOLDOWN",
				"next conversion in %s", (window - elapsed).Round(time.Minute))
		}
	}
	if user.Wealth < s.cfg.BondCost {
		return nil, econerr.Newf(econerr.Insufficient, econerr.CodeInsufficientWealth,
			"bond conversion costs %d", s.cfg.BondCost)
	}
	newWealth, err := s.store.CreditWealth(ctx, q, userID, -s.cfg.BondCost)
	if err != nil {
		return nil, econerr.Wrap(err, "debiting conversion cost")
	}
	newBonds := user.Bonds + s.cfg.BondsReceived
	if err := s.store.SetBonds(ctx, q, userID, newBonds, now); err != nil {
		return nil, econerr.Wrap(err, "crediting bonds")
	}
	if err := s.store.AppendBondTransaction(ctx, q, userID, s.cfg.BondsReceived, TxWealthConversion,
		fmt.Sprintf("converted %d wealth", s.cfg.BondCost)); err != nil {
		return nil, econerr.Wrap(err, "recording conversion")
	}
	return &BondConvertResult{Bonds: newBonds, Cost: models.Currency(s.cfg.BondCost), NewWealth: newWealth}, nil
}

// SpendBonds burns bonds for a purchase. Conditional decrement.
func (s *Service) SpendBonds(ctx context.Context, q db.Querier, userID, amount int64, purpose string) error {
	if amount <= 0 {
		return econerr.New(econerr.Validation, econerr.CodeInvalidInput, "spend amount must be positive")
	}
	ok, err := s.store.SpendBonds(ctx, q, userID, amount)
	if err != nil {
		return econerr.Wrap(err, "spending bonds")
	}
	if !ok {
		return econerr.Newf(econerr.Insufficient, econerr.CodeInsufficientBonds,
			"you need %d bonds", amount)
	}
	return s.store.AppendBondTransaction(ctx, q, userID, -amount, TxSpend, purpose)
}

// GrantPurchasedBonds credits bonds bought through the payment provider.
// The reference ties the ledger row back to the provider's receipt.
func (s *Service) GrantPurchasedBonds(ctx context.Context, q db.Querier, userID, amount int64, reference string) error {
	if amount <= 0 {
		return econerr.New(econerr.Validation, econerr.CodeInvalidInput, "grant amount must be positive")
	}
	if err := s.store.AdjustBonds(ctx, q, userID, amount); err != nil {
		return econerr.Wrap(err, "crediting purchased bonds")
	}
	return s.store.AppendBondTransaction(ctx, q, userID, amount, TxPurchase, reference)
}
