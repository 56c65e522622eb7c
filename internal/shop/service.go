// Package shop runs the rotating per-user item shop. Each player sees a
// personal set of offers rolled once per UTC day (lazily, on first read),
// can pay to reroll early, and buys offers straight into inventory. Offers
// are single purchase: buying one deletes it until the next roll.
package shop

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/config"
	"github.com/grindcity/economy-engine/internal/cooldown"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/internal/formulas"
	"github.com/grindcity/economy-engine/internal/inventory"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// Offer tier odds: common, uncommon, rare, legendary.
var shopTierWeights = []int{50, 30, 15, 5}

// Equipment types the shop stocks. Crates only drop from play and
// consumables have their own catalog.
var shopItemTypes = []models.ItemType{
	models.ItemWeapon, models.ItemArmor, models.ItemBusiness, models.ItemHousing,
}

// Offer prices vary around the catalog price by up to this fraction.
const priceVariancePct = 0.10

// View is the caller-facing shop page.
type View struct {
	Offers    []models.ShopOffer `json:"offers"`
	RerollFee models.Currency    `json:"rerollFee"`
}

// PurchaseResult reports one completed sale.
type PurchaseResult struct {
	ItemName  string          `json:"itemName"`
	Tier      string          `json:"tier"`
	Price     models.Currency `json:"price"`
	NewWealth models.Currency `json:"newWealth"`
	StoredIn  string          `json:"storedIn"`
}

type Service struct {
	store     *db.Store
	cfg       *config.Economy
	clock     clock.Clock
	rng       clock.RNG
	inv       *inventory.Service
	cooldowns *cooldown.Service
	log       *zap.Logger
}

func NewService(store *db.Store, cfg *config.Economy, clk clock.Clock, rng clock.RNG,
	inv *inventory.Service, cooldowns *cooldown.Service, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		cfg:       cfg,
		clock:     clk,
		rng:       rng,
		inv:       inv,
		cooldowns: cooldowns,
		log:       log.Named("shop"),
	}
}

// Offers returns the current shop, rolling a fresh set when the stored one
// is from a previous UTC day or the user has never rolled. The user lock
// serializes concurrent first reads so only one of them rolls.
func (s *Service) Offers(ctx context.Context, userID int64) (*View, error) {
	var view *View
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.lockUser(ctx, tx, userID); err != nil {
			return err
		}
		offers, err := s.store.ListShopOffers(ctx, tx, userID)
		if err != nil {
			return econerr.Wrap(err, "loading shop offers")
		}
		if s.stale(offers) {
			if offers, err = s.roll(ctx, tx, userID); err != nil {
				return err
			}
		}
		view = &View{Offers: offers, RerollFee: models.Currency(s.cfg.ShopRerollFee)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Reroll replaces the shop early for a fee, throttled so it cannot be
// spammed until a good roll appears cheaply.
func (s *Service) Reroll(ctx context.Context, userID int64) (*View, error) {
	var view *View
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		user, err := s.lockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := s.cooldowns.RequireFree(ctx, tx, userID, models.CooldownShopRoll, ""); err != nil {
			return err
		}
		fee := s.cfg.ShopRerollFee
		if user.Wealth < fee {
			return econerr.Newf(econerr.Insufficient, econerr.CodeInsufficientWealth,
				"rerolling the shop costs %d", fee)
		}
		if _, err := s.store.CreditWealth(ctx, tx, userID, -fee); err != nil {
			return econerr.Wrap(err, "charging reroll fee")
		}

		offers, err := s.roll(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := s.cooldowns.Set(ctx, tx, userID, models.CooldownShopRoll, "",
			time.Duration(s.cfg.ShopRerollCooldownMin)*time.Minute); err != nil {
			return err
		}
		if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
			UserID:       userID,
			EventType:    "shop_reroll",
			WealthChange: models.Currency(-fee),
			Success:      true,
			Description:  fmt.Sprintf("rerolled the shop for %d", fee),
		}); err != nil {
			return econerr.Wrap(err, "recording reroll")
		}
		view = &View{Offers: offers, RerollFee: models.Currency(fee)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Purchase buys one offer into inventory. The offer row is locked so a
// double-click cannot buy it twice; the second attempt finds it gone.
func (s *Service) Purchase(ctx context.Context, userID, offerID int64) (*PurchaseResult, error) {
	var res *PurchaseResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		user, err := s.lockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		offer, err := s.store.GetShopOfferForUpdate(ctx, tx, userID, offerID)
		if err != nil {
			return econerr.Wrap(err, "locking offer")
		}
		if offer == nil {
			return econerr.New(econerr.NotFound, "OFFER_NOT_FOUND", "that offer is gone")
		}
		def, err := s.store.GetItemDefinition(ctx, tx, offer.ItemDefID)
		if err != nil {
			return econerr.Wrap(err, "loading offer item")
		}
		if user.Wealth < offer.Price {
			return econerr.Newf(econerr.Insufficient, econerr.CodeInsufficientWealth,
				"%s costs %d", def.Name, offer.Price)
		}

		added, err := s.inv.AddItem(ctx, tx, userID, def, inventory.AddOptions{})
		if err != nil {
			return err
		}
		newWealth, err := s.store.CreditWealth(ctx, tx, userID, -offer.Price)
		if err != nil {
			return econerr.Wrap(err, "charging purchase")
		}
		if err := s.store.DeleteShopOffer(ctx, tx, offer.ID); err != nil {
			return econerr.Wrap(err, "consuming offer")
		}
		if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
			UserID:       userID,
			EventType:    "shop_purchase",
			WealthChange: models.Currency(-offer.Price),
			Success:      true,
			Description:  fmt.Sprintf("bought %s for %d", def.Name, offer.Price),
		}); err != nil {
			return econerr.Wrap(err, "recording purchase")
		}

		res = &PurchaseResult{
			ItemName:  def.Name,
			Tier:      string(def.Tier),
			Price:     models.Currency(offer.Price),
			NewWealth: newWealth,
			StoredIn:  string(added.StoredIn),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// roll replaces the user's offers with a fresh set.
func (s *Service) roll(ctx context.Context, q db.Querier, userID int64) ([]models.ShopOffer, error) {
	offers := make([]models.ShopOffer, 0, s.cfg.ShopSlots)
	for slot := 0; slot < s.cfg.ShopSlots; slot++ {
		itemType := shopItemTypes[s.rng.Intn(len(shopItemTypes))]
		tier := rollTier(s.rng)
		def, err := s.store.GetItemDefinitionByTier(ctx, q, itemType, tier)
		if err != nil {
			return nil, econerr.Wrap(err, "picking shop item")
		}
		offers = append(offers, models.ShopOffer{
			UserID:    userID,
			SlotIdx:   slot,
			ItemDefID: def.ID,
			Price:     offerPrice(s.rng, def.PurchasePrice),
			Def:       def,
		})
	}
	if err := s.store.ReplaceShopOffers(ctx, q, userID, offers); err != nil {
		return nil, econerr.Wrap(err, "storing shop offers")
	}
	s.log.Debug("rolled shop", zap.Int64("user_id", userID), zap.Int("slots", len(offers)))
	return offers, nil
}

// stale reports whether the offers predate today's UTC rollover. An empty
// shop is always stale.
func (s *Service) stale(offers []models.ShopOffer) bool {
	if len(offers) == 0 {
		return true
	}
	midnight := s.clock.Now().UTC().Truncate(24 * time.Hour)
	for _, of := range offers {
		if of.RolledAt.Before(midnight) {
			return true
		}
	}
	return false
}

func (s *Service) lockUser(ctx context.Context, q db.Querier, userID int64) (*models.User, error) {
	user, err := s.store.GetUserForUpdate(ctx, q, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, econerr.New(econerr.NotFound, econerr.CodeUserNotFound, "unknown player")
		}
		return nil, econerr.Wrap(err, "locking user")
	}
	if user.Merged() {
		return nil, econerr.New(econerr.Conflict, econerr.CodeUserMerged, "account was merged away")
	}
	if user.IsBanned {
		return nil, econerr.New(econerr.Authz, econerr.CodeUserBanned, "account is banned")
	}
	return user, nil
}

// rollTier samples the offer tier.
func rollTier(rng clock.RNG) models.ItemTier {
	return models.ItemTiers[formulas.WeightedIndex(rng, shopTierWeights)]
}

// offerPrice jitters the catalog price by up to the variance in either
// direction, floored at 1.
func offerPrice(rng clock.RNG, base int64) int64 {
	if base <= 0 {
		return 1
	}
	span := int64(float64(base) * priceVariancePct)
	price := formulas.UniformInt(rng, base-span, base+span)
	if price < 1 {
		price = 1
	}
	return price
}
