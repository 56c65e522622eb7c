package models

import "time"

// ItemType partitions the catalog. Crates are held in inventory like gear
// but are opened rather than equipped.
type ItemType string

const (
	ItemWeapon   ItemType = "weapon"
	ItemArmor    ItemType = "armor"
	ItemBusiness ItemType = "business"
	ItemHousing  ItemType = "housing"
	ItemCrate    ItemType = "crate"
)

// EquipSlot names the four equipment slots. Crates have no slot.
type EquipSlot string

const (
	SlotWeapon   EquipSlot = "weapon"
	SlotArmor    EquipSlot = "armor"
	SlotBusiness EquipSlot = "business"
	SlotHousing  EquipSlot = "housing"
)

// ValidSlot reports whether s names an equipment slot.
func ValidSlot(s EquipSlot) bool {
	switch s {
	case SlotWeapon, SlotArmor, SlotBusiness, SlotHousing:
		return true
	}
	return false
}

// ItemTier orders item quality.
type ItemTier string

const (
	ItemCommon    ItemTier = "common"
	ItemUncommon  ItemTier = "uncommon"
	ItemRare      ItemTier = "rare"
	ItemLegendary ItemTier = "legendary"
)

// ItemTiers in ascending quality order; index used by crate roll tables.
var ItemTiers = []ItemTier{ItemCommon, ItemUncommon, ItemRare, ItemLegendary}

// ItemDefinition is a static catalog row. Stats are zero where the type
// does not use them (armor has no daily revenue, businesses no weapon
// bonus, and so on).
type ItemDefinition struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	ItemType       ItemType `json:"itemType"`
	Tier           ItemTier `json:"tier"`
	BaseDurability int      `json:"baseDurability"`
	PurchasePrice  int64    `json:"purchasePrice"`
	SellPrice      int64    `json:"sellPrice"`
	WeaponBonus    float64  `json:"weaponBonus,omitempty"`
	ArmorReduction float64  `json:"armorReduction,omitempty"`
	InsurancePct   float64  `json:"insurancePct,omitempty"`
	DailyRevenue   int64    `json:"dailyRevenue,omitempty"`
	OperatingCost  int64    `json:"operatingCost,omitempty"`
}

// InventoryItem is an owned item instance. Escrow rows are the capacity
// overflow area: they expire, cannot be equipped, and must be claimed back
// into the main inventory before use.
type InventoryItem struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"userId"`
	ItemDefID       int64      `json:"itemDefId"`
	Durability      int        `json:"durability"`
	IsEquipped      bool       `json:"isEquipped"`
	Slot            *EquipSlot `json:"slot,omitempty"`
	IsEscrowed      bool       `json:"isEscrowed"`
	EscrowExpiresAt *time.Time `json:"escrowExpiresAt,omitempty"`
	AcquiredAt      time.Time  `json:"acquiredAt"`

	// Joined from item_definitions on read paths.
	Def *ItemDefinition `json:"def,omitempty"`
}

// ShopOffer is one slot of a user's rotating shop.
type ShopOffer struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	SlotIdx   int       `json:"slotIdx"`
	ItemDefID int64     `json:"itemDefId"`
	Price     int64     `json:"price"`
	RolledAt  time.Time `json:"rolledAt"`

	Def *ItemDefinition `json:"def,omitempty"`
}
