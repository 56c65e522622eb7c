// Package inventory owns item instances: acquisition with the escrow
// overflow policy, equipment slots, durability, selling and crate opening.
// Every mutating method runs against the caller's transaction; capacity
// checks live in the same transaction as the insert they guard.
package inventory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/config"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/internal/formulas"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// AddOptions tunes a single AddItem call. Durability nil means the
// definition's base durability.
type AddOptions struct {
	Durability  *int
	ForceEscrow bool
}

// AddResult reports where the row landed.
type AddResult struct {
	ID       int64     `json:"id"`
	StoredIn Placement `json:"storedIn"`
}

// DegradeResult describes one equipped item losing durability.
type DegradeResult struct {
	ItemName  string `json:"itemName"`
	Amount    int    `json:"amount"`
	Remaining int    `json:"remaining"`
	Destroyed bool   `json:"destroyed"`
}

// SellResult reports the credit from SellItem.
type SellResult struct {
	ItemName  string          `json:"itemName"`
	Credited  models.Currency `json:"credited"`
	NewWealth models.Currency `json:"newWealth"`
}

// OpenResult describes a crate opening: the crate consumed and the item
// rolled out of it.
type OpenResult struct {
	CrateName string    `json:"crateName"`
	ItemName  string    `json:"itemName"`
	ItemDefID int64     `json:"itemDefId"`
	Tier      string    `json:"tier"`
	StoredIn  Placement `json:"storedIn"`
}

type Service struct {
	store *db.Store
	cfg   *config.Economy
	clock clock.Clock
	rng   clock.RNG
	log   *zap.Logger
}

func NewService(store *db.Store, cfg *config.Economy, clk clock.Clock, rng clock.RNG, log *zap.Logger) *Service {
	return &Service{store: store, cfg: cfg, clock: clk, rng: rng, log: log.Named("inventory")}
}

// AddItem stores a new instance of def for the user, overflowing to escrow
// per DecidePlacement. Business acquisitions past the ownership cap are
// refused outright, never escrowed.
func (s *Service) AddItem(ctx context.Context, q db.Querier, userID int64, def *models.ItemDefinition, opts AddOptions) (*AddResult, error) {
	if def.ItemType == models.ItemBusiness {
		owned, err := s.store.CountBusinesses(ctx, q, userID)
		if err != nil {
			return nil, econerr.Wrap(err, "counting businesses")
		}
		if owned >= s.cfg.MaxBusinesses {
			return nil, econerr.Newf(econerr.Policy, econerr.CodeBusinessCap,
				"you already own %d businesses", owned)
		}
	}

	stored, escrowed, err := s.store.CountInventory(ctx, q, userID)
	if err != nil {
		return nil, econerr.Wrap(err, "counting inventory")
	}
	place, err := DecidePlacement(stored, escrowed, s.cfg.MaxInventory, s.cfg.MaxEscrow, opts.ForceEscrow)
	if err != nil {
		return nil, err
	}

	durability := def.BaseDurability
	if opts.Durability != nil {
		durability = *opts.Durability
	}
	var expiresAt *time.Time
	if place == PlaceEscrow {
		t := s.clock.Now().Add(time.Duration(s.cfg.EscrowHours) * time.Hour)
		expiresAt = &t
	}

	id, err := s.store.InsertInventoryItem(ctx, q, userID, def.ID, durability, place == PlaceEscrow, expiresAt)
	if err != nil {
		return nil, econerr.Wrap(err, "inserting inventory row")
	}
	return &AddResult{ID: id, StoredIn: place}, nil
}

// EquipItem equips the row into its type's slot, swapping out whatever held
// the slot before. Escrowed rows and crates cannot be equipped.
func (s *Service) EquipItem(ctx context.Context, q db.Querier, userID, invID int64) (*models.InventoryItem, error) {
	item, err := s.store.GetInventoryItemForUpdate(ctx, q, userID, invID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, econerr.New(econerr.NotFound, "ITEM_NOT_FOUND", "item not found")
		}
		return nil, econerr.Wrap(err, "loading item")
	}
	if item.IsEscrowed {
		return nil, econerr.New(econerr.Policy, "ITEM_ESCROWED", "claim the item from escrow first")
	}
	if item.Def.ItemType == models.ItemCrate {
		return nil, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "crates are opened, not equipped")
	}
	if item.IsEquipped {
		return item, nil
	}

	slot := models.EquipSlot(item.Def.ItemType)
	if _, err := s.store.UnequipSlot(ctx, q, userID, slot); err != nil {
		return nil, econerr.Wrap(err, "clearing slot")
	}
	slotStr := string(slot)
	if err := s.store.SetEquipped(ctx, q, invID, true, &slotStr); err != nil {
		return nil, econerr.Wrap(err, "equipping item")
	}
	item.IsEquipped = true
	item.Slot = &slot
	return item, nil
}

// UnequipSlot empties the slot. Reports whether anything was equipped.
func (s *Service) UnequipSlot(ctx context.Context, q db.Querier, userID int64, slot models.EquipSlot) (bool, error) {
	if !models.ValidSlot(slot) {
		return false, econerr.Newf(econerr.Validation, econerr.CodeInvalidInput, "unknown slot %q", slot)
	}
	n, err := s.store.UnequipSlot(ctx, q, userID, slot)
	if err != nil {
		return false, econerr.Wrap(err, "unequipping slot")
	}
	return n > 0, nil
}

// DegradeItem subtracts amount from the row's durability, clamping at zero.
// A row at or below the break threshold is destroyed.
func (s *Service) DegradeItem(ctx context.Context, q db.Querier, item *models.InventoryItem, amount int) (destroyed bool, err error) {
	remaining := item.Durability - amount
	if remaining < 0 {
		remaining = 0
	}
	if remaining <= 0 {
		if err := s.store.DeleteInventoryItem(ctx, q, item.ID); err != nil {
			return false, econerr.Wrap(err, "destroying broken item")
		}
		item.Durability = 0
		return true, nil
	}
	if err := s.store.SetDurability(ctx, q, item.ID, remaining); err != nil {
		return false, econerr.Wrap(err, "updating durability")
	}
	item.Durability = remaining
	return false, nil
}

// DegradeAttackerWeapon wears the attacker's equipped weapon by a sampled
// amount. No weapon equipped is a no-op returning nil.
func (s *Service) DegradeAttackerWeapon(ctx context.Context, q db.Querier, userID int64) (*DegradeResult, error) {
	return s.degradeEquipped(ctx, q, userID, models.SlotWeapon)
}

// DegradeDefenderArmor wears the defender's equipped armor by a sampled
// amount. No armor equipped is a no-op returning nil.
func (s *Service) DegradeDefenderArmor(ctx context.Context, q db.Querier, userID int64) (*DegradeResult, error) {
	return s.degradeEquipped(ctx, q, userID, models.SlotArmor)
}

func (s *Service) degradeEquipped(ctx context.Context, q db.Querier, userID int64, slot models.EquipSlot) (*DegradeResult, error) {
	item, err := s.store.GetEquippedItem(ctx, q, userID, slot)
	if err != nil {
		return nil, econerr.Wrap(err, "loading equipped item")
	}
	if item == nil {
		return nil, nil
	}
	amount := formulas.DurabilityDecay(s.rng, s.cfg.DurabilityDecayMin, s.cfg.DurabilityDecayMax)
	destroyed, err := s.DegradeItem(ctx, q, item, amount)
	if err != nil {
		return nil, err
	}
	return &DegradeResult{
		ItemName:  item.Def.Name,
		Amount:    amount,
		Remaining: item.Durability,
		Destroyed: destroyed,
	}, nil
}

// ClaimFromEscrow moves the row back into the main inventory. An expired
// row is deleted on contact; a full main inventory rejects the claim. The
// capacity check is embedded in the release UPDATE so concurrent claims
// cannot overfill.
func (s *Service) ClaimFromEscrow(ctx context.Context, q db.Querier, userID, invID int64) (*models.InventoryItem, error) {
	item, err := s.store.GetInventoryItemForUpdate(ctx, q, userID, invID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, econerr.New(econerr.NotFound, "ITEM_NOT_FOUND", "item not found")
		}
		return nil, econerr.Wrap(err, "loading item")
	}
	if !item.IsEscrowed {
		return nil, econerr.New(econerr.Policy, "NOT_ESCROWED", "item is not in escrow")
	}
	now := s.clock.Now()
	if item.EscrowExpiresAt != nil && !item.EscrowExpiresAt.After(now) {
		if err := s.store.DeleteInventoryItem(ctx, q, item.ID); err != nil {
			return nil, econerr.Wrap(err, "deleting expired escrow row")
		}
		return nil, econerr.New(econerr.Expired, "ESCROW_EXPIRED", "the item expired in escrow")
	}
	ok, err := s.store.ReleaseFromEscrow(ctx, q, userID, invID, now, s.cfg.MaxInventory)
	if err != nil {
		return nil, econerr.Wrap(err, "releasing from escrow")
	}
	if !ok {
		return nil, econerr.New(econerr.Insufficient, econerr.CodeInventoryFull,
			"no inventory space to claim into")
	}
	item.IsEscrowed = false
	item.EscrowExpiresAt = nil
	return item, nil
}

// SellItem deletes the row and credits its sell price. Equipped rows must
// be unequipped first; escrowed rows may be sold in place.
func (s *Service) SellItem(ctx context.Context, q db.Querier, userID, invID int64) (*SellResult, error) {
	item, err := s.store.GetInventoryItemForUpdate(ctx, q, userID, invID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, econerr.New(econerr.NotFound, "ITEM_NOT_FOUND", "item not found")
		}
		return nil, econerr.Wrap(err, "loading item")
	}
	if item.IsEquipped {
		return nil, econerr.New(econerr.Policy, "ITEM_EQUIPPED", "unequip the item before selling")
	}
	if err := s.store.DeleteInventoryItem(ctx, q, item.ID); err != nil {
		return nil, econerr.Wrap(err, "deleting sold item")
	}
	newWealth, err := s.store.CreditWealth(ctx, q, userID, item.Def.SellPrice)
	if err != nil {
		return nil, econerr.Wrap(err, "crediting sale")
	}
	if err := s.store.AppendGameEvent(ctx, q, &models.GameEvent{
		UserID:       userID,
		EventType:    "item_sell",
		WealthChange: models.Currency(item.Def.SellPrice),
		Success:      true,
		Description:  fmt.Sprintf("sold %s for %d", item.Def.Name, item.Def.SellPrice),
	}); err != nil {
		return nil, econerr.Wrap(err, "recording sale")
	}
	return &SellResult{
		ItemName:  item.Def.Name,
		Credited:  models.Currency(item.Def.SellPrice),
		NewWealth: newWealth,
	}, nil
}

// OpenCrate consumes a crate row and rolls a random item of the crate's
// tier. The crate is deleted before the roll lands so its slot is free for
// the drop. A rolled business past the ownership cap rerolls to another
// type rather than failing the opening.
func (s *Service) OpenCrate(ctx context.Context, q db.Querier, userID, invID int64) (*OpenResult, error) {
	item, err := s.store.GetInventoryItemForUpdate(ctx, q, userID, invID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, econerr.New(econerr.NotFound, "ITEM_NOT_FOUND", "crate not found")
		}
		return nil, econerr.Wrap(err, "loading crate")
	}
	if item.Def.ItemType != models.ItemCrate {
		return nil, econerr.New(econerr.Validation, econerr.CodeInvalidInput, "item is not a crate")
	}
	if item.IsEscrowed {
		return nil, econerr.New(econerr.Policy, "ITEM_ESCROWED", "claim the crate from escrow first")
	}
	if err := s.store.DeleteInventoryItem(ctx, q, item.ID); err != nil {
		return nil, econerr.Wrap(err, "consuming crate")
	}

	itemType := s.rollCrateType(ctx, q, userID)
	def, err := s.store.GetItemDefinitionByTier(ctx, q, itemType, item.Def.Tier)
	if err != nil {
		return nil, econerr.Wrap(err, "rolling crate contents")
	}
	added, err := s.AddItem(ctx, q, userID, def, AddOptions{})
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendGameEvent(ctx, q, &models.GameEvent{
		UserID:      userID,
		EventType:   "crate_open",
		Success:     true,
		Description: fmt.Sprintf("opened %s and found %s", item.Def.Name, def.Name),
	}); err != nil {
		return nil, econerr.Wrap(err, "recording crate opening")
	}
	return &OpenResult{
		CrateName: item.Def.Name,
		ItemName:  def.Name,
		ItemDefID: def.ID,
		Tier:      string(def.Tier),
		StoredIn:  added.StoredIn,
	}, nil
}

func (s *Service) rollCrateType(ctx context.Context, q db.Querier, userID int64) models.ItemType {
	types := []models.ItemType{models.ItemWeapon, models.ItemArmor, models.ItemBusiness, models.ItemHousing}
	picked := types[s.rng.Intn(len(types))]
	if picked != models.ItemBusiness {
		return picked
	}
	owned, err := s.store.CountBusinesses(ctx, q, userID)
	if err != nil || owned >= s.cfg.MaxBusinesses {
		return types[s.rng.Intn(3)]
	}
	return picked
}

// List returns the user's rows, definitions joined, escrow included.
func (s *Service) List(ctx context.Context, q db.Querier, userID int64) ([]models.InventoryItem, error) {
	rows, err := s.store.ListInventory(ctx, q, userID)
	if err != nil {
		return nil, econerr.Wrap(err, "listing inventory")
	}
	return rows, nil
}

// Catalog returns item definitions, optionally filtered by type.
func (s *Service) Catalog(ctx context.Context, q db.Querier, itemType string) ([]models.ItemDefinition, error) {
	defs, err := s.store.ListItemDefinitions(ctx, q, itemType)
	if err != nil {
		return nil, econerr.Wrap(err, "listing catalog")
	}
	return defs, nil
}

// SweepExpiredEscrow deletes escrow rows past their TTL. Scheduler entry.
func (s *Service) SweepExpiredEscrow(ctx context.Context) (int64, error) {
	n, err := s.store.SweepExpiredEscrow(ctx, s.store.Pool(), s.clock.Now())
	if err != nil {
		return 0, econerr.Wrap(err, "sweeping escrow")
	}
	if n > 0 {
		s.log.Debug("swept expired escrow rows", zap.Int64("rows", n))
	}
	return n, nil
}
