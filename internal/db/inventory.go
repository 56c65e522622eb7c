package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/grindcity/economy-engine/pkg/models"
)

const inventoryColumns = `i.id, i.user_id, i.item_def_id, i.durability, i.is_equipped, i.slot,
	i.is_escrowed, i.escrow_expires_at, i.acquired_at,
	d.id, d.name, d.item_type, d.tier, d.base_durability, d.purchase_price, d.sell_price,
	d.weapon_bonus, d.armor_reduction, d.insurance_pct, d.daily_revenue, d.operating_cost`

func scanInventoryItem(row pgx.Row) (*models.InventoryItem, error) {
	var it models.InventoryItem
	var def models.ItemDefinition
	err := row.Scan(
		&it.ID, &it.UserID, &it.ItemDefID, &it.Durability, &it.IsEquipped, &it.Slot,
		&it.IsEscrowed, &it.EscrowExpiresAt, &it.AcquiredAt,
		&def.ID, &def.Name, &def.ItemType, &def.Tier, &def.BaseDurability,
		&def.PurchasePrice, &def.SellPrice,
		&def.WeaponBonus, &def.ArmorReduction, &def.InsurancePct,
		&def.DailyRevenue, &def.OperatingCost,
	)
	if err != nil {
		return nil, err
	}
	it.Def = &def
	return &it, nil
}

// GetItemDefinition loads a catalog row by id.
func (s *Store) GetItemDefinition(ctx context.Context, q Querier, id int64) (*models.ItemDefinition, error) {
	var d models.ItemDefinition
	err := q.QueryRow(ctx,
		`SELECT id, name, item_type, tier, base_durability, purchase_price, sell_price,
		        weapon_bonus, armor_reduction, insurance_pct, daily_revenue, operating_cost
		 FROM item_definitions WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.ItemType, &d.Tier, &d.BaseDurability, &d.PurchasePrice,
			&d.SellPrice, &d.WeaponBonus, &d.ArmorReduction, &d.InsurancePct,
			&d.DailyRevenue, &d.OperatingCost)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetItemDefinitionByTier picks a random catalog row of the given type and
// tier. Crate openings and shop rolls use it with the tier already decided.
func (s *Store) GetItemDefinitionByTier(ctx context.Context, q Querier, itemType models.ItemType, tier models.ItemTier) (*models.ItemDefinition, error) {
	var d models.ItemDefinition
	err := q.QueryRow(ctx,
		`SELECT id, name, item_type, tier, base_durability, purchase_price, sell_price,
		        weapon_bonus, armor_reduction, insurance_pct, daily_revenue, operating_cost
		 FROM item_definitions WHERE item_type = $1 AND tier = $2
		 ORDER BY RANDOM() LIMIT 1`, string(itemType), string(tier)).
		Scan(&d.ID, &d.Name, &d.ItemType, &d.Tier, &d.BaseDurability, &d.PurchasePrice,
			&d.SellPrice, &d.WeaponBonus, &d.ArmorReduction, &d.InsurancePct,
			&d.DailyRevenue, &d.OperatingCost)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListItemDefinitions returns the catalog, optionally filtered by type.
func (s *Store) ListItemDefinitions(ctx context.Context, q Querier, itemType string) ([]models.ItemDefinition, error) {
	sql := `SELECT id, name, item_type, tier, base_durability, purchase_price, sell_price,
	               weapon_bonus, armor_reduction, insurance_pct, daily_revenue, operating_cost
	        FROM item_definitions`
	var rows pgx.Rows
	var err error
	if itemType != "" {
		rows, err = q.Query(ctx, sql+` WHERE item_type = $1 ORDER BY purchase_price`, itemType)
	} else {
		rows, err = q.Query(ctx, sql+` ORDER BY item_type, purchase_price`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ItemDefinition
	for rows.Next() {
		var d models.ItemDefinition
		if err := rows.Scan(&d.ID, &d.Name, &d.ItemType, &d.Tier, &d.BaseDurability,
			&d.PurchasePrice, &d.SellPrice, &d.WeaponBonus, &d.ArmorReduction,
			&d.InsurancePct, &d.DailyRevenue, &d.OperatingCost); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountInventory returns the user's non-escrow and escrow row counts. Call
// inside the transaction that inserts, after locking the user row, so the
// caps cannot be raced past.
func (s *Store) CountInventory(ctx context.Context, q Querier, userID int64) (stored, escrowed int, err error) {
	err = q.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE NOT is_escrowed),
		        COUNT(*) FILTER (WHERE is_escrowed)
		 FROM inventory WHERE user_id = $1`, userID).
		Scan(&stored, &escrowed)
	return stored, escrowed, err
}

// CountBusinesses returns how many business rows the user owns, escrowed
// included. The ownership cap counts both.
func (s *Store) CountBusinesses(ctx context.Context, q Querier, userID int64) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM inventory i
		 JOIN item_definitions d ON d.id = i.item_def_id
		 WHERE i.user_id = $1 AND d.item_type = 'business'`, userID).
		Scan(&n)
	return n, err
}

// InsertInventoryItem creates an owned item instance.
func (s *Store) InsertInventoryItem(ctx context.Context, q Querier, userID, itemDefID int64, durability int, escrowed bool, escrowExpiresAt *time.Time) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO inventory (user_id, item_def_id, durability, is_escrowed, escrow_expires_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		userID, itemDefID, durability, escrowed, escrowExpiresAt).Scan(&id)
	return id, err
}

// GetInventoryItem loads one owned row with its definition joined.
func (s *Store) GetInventoryItem(ctx context.Context, q Querier, userID, invID int64) (*models.InventoryItem, error) {
	return scanInventoryItem(q.QueryRow(ctx,
		`SELECT `+inventoryColumns+`
		 FROM inventory i JOIN item_definitions d ON d.id = i.item_def_id
		 WHERE i.id = $1 AND i.user_id = $2`, invID, userID))
}

// GetInventoryItemForUpdate locks one owned row for mutation.
func (s *Store) GetInventoryItemForUpdate(ctx context.Context, q Querier, userID, invID int64) (*models.InventoryItem, error) {
	return scanInventoryItem(q.QueryRow(ctx,
		`SELECT `+inventoryColumns+`
		 FROM inventory i JOIN item_definitions d ON d.id = i.item_def_id
		 WHERE i.id = $1 AND i.user_id = $2
		 FOR UPDATE OF i`, invID, userID))
}

// ListInventory returns every row a user owns, stored items first.
func (s *Store) ListInventory(ctx context.Context, q Querier, userID int64) ([]models.InventoryItem, error) {
	rows, err := q.Query(ctx,
		`SELECT `+inventoryColumns+`
		 FROM inventory i JOIN item_definitions d ON d.id = i.item_def_id
		 WHERE i.user_id = $1
		 ORDER BY i.is_escrowed, i.acquired_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.InventoryItem
	for rows.Next() {
		it, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// GetEquippedItem returns the item equipped in a slot, or nil.
func (s *Store) GetEquippedItem(ctx context.Context, q Querier, userID int64, slot models.EquipSlot) (*models.InventoryItem, error) {
	it, err := scanInventoryItem(q.QueryRow(ctx,
		`SELECT `+inventoryColumns+`
		 FROM inventory i JOIN item_definitions d ON d.id = i.item_def_id
		 WHERE i.user_id = $1 AND i.slot = $2 AND i.is_equipped`, userID, string(slot)))
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return it, nil
}

// SetEquipped flips equip state. Equipping also stamps the slot; the
// partial unique index rejects a second equipped row per slot.
func (s *Store) SetEquipped(ctx context.Context, q Querier, invID int64, equipped bool, slot *string) error {
	_, err := q.Exec(ctx,
		`UPDATE inventory SET is_equipped = $2, slot = $3 WHERE id = $1`,
		invID, equipped, slot)
	return err
}

// UnequipSlot clears the equipped row in a slot, returning how many rows
// changed (0 means nothing was equipped there).
func (s *Store) UnequipSlot(ctx context.Context, q Querier, userID int64, slot models.EquipSlot) (int64, error) {
	tag, err := q.Exec(ctx,
		`UPDATE inventory SET is_equipped = FALSE
		 WHERE user_id = $1 AND slot = $2 AND is_equipped`, userID, string(slot))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SetDurability writes the remaining durability of a row.
func (s *Store) SetDurability(ctx context.Context, q Querier, invID int64, durability int) error {
	_, err := q.Exec(ctx, `UPDATE inventory SET durability = $2 WHERE id = $1`, invID, durability)
	return err
}

// DeleteInventoryItem removes an owned row (break, sale, escrow expiry).
func (s *Store) DeleteInventoryItem(ctx context.Context, q Querier, invID int64) error {
	_, err := q.Exec(ctx, `DELETE FROM inventory WHERE id = $1`, invID)
	return err
}

// ReleaseFromEscrow flips an unexpired escrow row into storage, guarded by
// the capacity precondition so a concurrent claim cannot breach the cap.
// Returns false when the guard fails (row gone, expired, or storage full).
func (s *Store) ReleaseFromEscrow(ctx context.Context, q Querier, userID, invID int64, now time.Time, maxStored int) (bool, error) {
	tag, err := q.Exec(ctx,
		`UPDATE inventory SET is_escrowed = FALSE, escrow_expires_at = NULL
		 WHERE id = $1 AND user_id = $2 AND is_escrowed AND escrow_expires_at > $3
		   AND (SELECT COUNT(*) FROM inventory WHERE user_id = $2 AND NOT is_escrowed) < $4`,
		invID, userID, now, maxStored)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// PickStealableItem selects the defender's least valuable unequipped,
// unescrowed item, locking it so the transfer cannot race its sale.
func (s *Store) PickStealableItem(ctx context.Context, q Querier, userID int64) (*models.InventoryItem, error) {
	it, err := scanInventoryItem(q.QueryRow(ctx,
		`SELECT `+inventoryColumns+`
		 FROM inventory i JOIN item_definitions d ON d.id = i.item_def_id
		 WHERE i.user_id = $1 AND NOT i.is_equipped AND NOT i.is_escrowed
		 ORDER BY d.sell_price, i.id LIMIT 1
		 FOR UPDATE OF i`, userID))
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return it, nil
}

// SweepExpiredEscrow deletes escrow rows past their TTL.
func (s *Store) SweepExpiredEscrow(ctx context.Context, q Querier, now time.Time) (int64, error) {
	tag, err := q.Exec(ctx,
		`DELETE FROM inventory WHERE is_escrowed AND escrow_expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListUsersWithEquippedBusiness returns (user, business item) pairs for the
// revenue scheduler. Only users whose business slot is filled accrue.
func (s *Store) ListUsersWithEquippedBusiness(ctx context.Context, q Querier) ([]models.InventoryItem, error) {
	rows, err := q.Query(ctx,
		`SELECT `+inventoryColumns+`
		 FROM inventory i
		 JOIN item_definitions d ON d.id = i.item_def_id
		 JOIN users u ON u.id = i.user_id
		 WHERE i.slot = 'business' AND i.is_equipped
		   AND u.merged_into_user_id IS NULL AND NOT u.is_banned
		 ORDER BY i.user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.InventoryItem
	for rows.Next() {
		it, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}
