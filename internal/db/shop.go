package db

import (
	"context"

	"github.com/grindcity/economy-engine/pkg/models"
)

// ListShopOffers returns the user's current personal shop, joined with the
// item catalog.
func (s *Store) ListShopOffers(ctx context.Context, q Querier, userID int64) ([]models.ShopOffer, error) {
	rows, err := q.Query(ctx,
		`SELECT o.id, o.user_id, o.slot_idx, o.price, o.rolled_at,
		        d.id, d.name, d.item_type, d.tier, d.base_durability, d.purchase_price, d.sell_price,
		        d.weapon_bonus, d.armor_reduction, d.insurance_pct, d.daily_revenue, d.operating_cost
		 FROM user_shop_offers o
		 JOIN item_definitions d ON d.id = o.item_def_id
		 WHERE o.user_id = $1 ORDER BY o.slot_idx`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ShopOffer
	for rows.Next() {
		var of models.ShopOffer
		var def models.ItemDefinition
		if err := rows.Scan(&of.ID, &of.UserID, &of.SlotIdx, &of.Price, &of.RolledAt,
			&def.ID, &def.Name, &def.ItemType, &def.Tier, &def.BaseDurability,
			&def.PurchasePrice, &def.SellPrice, &def.WeaponBonus, &def.ArmorReduction,
			&def.InsurancePct, &def.DailyRevenue, &def.OperatingCost); err != nil {
			return nil, err
		}
		of.ItemDefID = def.ID
		of.Def = &def
		out = append(out, of)
	}
	return out, rows.Err()
}

// GetShopOfferForUpdate locks one offer row for purchase.
func (s *Store) GetShopOfferForUpdate(ctx context.Context, q Querier, userID, offerID int64) (*models.ShopOffer, error) {
	var of models.ShopOffer
	err := q.QueryRow(ctx,
		`SELECT id, user_id, slot_idx, item_def_id, price, rolled_at
		 FROM user_shop_offers WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		offerID, userID).
		Scan(&of.ID, &of.UserID, &of.SlotIdx, &of.ItemDefID, &of.Price, &of.RolledAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &of, nil
}

// ReplaceShopOffers rerolls the personal shop in place.
func (s *Store) ReplaceShopOffers(ctx context.Context, q Querier, userID int64, offers []models.ShopOffer) error {
	if _, err := q.Exec(ctx, `DELETE FROM user_shop_offers WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, of := range offers {
		if _, err := q.Exec(ctx,
			`INSERT INTO user_shop_offers (user_id, slot_idx, item_def_id, price)
			 VALUES ($1, $2, $3, $4)`,
			userID, of.SlotIdx, of.ItemDefID, of.Price); err != nil {
			return err
		}
	}
	return nil
}

// DeleteShopOffer removes a purchased offer so it cannot be bought twice.
func (s *Store) DeleteShopOffer(ctx context.Context, q Querier, offerID int64) error {
	_, err := q.Exec(ctx, `DELETE FROM user_shop_offers WHERE id = $1`, offerID)
	return err
}

// DeleteShopOffersForUser clears the personal shop, used when tombstoning.
func (s *Store) DeleteShopOffersForUser(ctx context.Context, q Querier, userID int64) error {
	_, err := q.Exec(ctx, `DELETE FROM user_shop_offers WHERE user_id = $1`, userID)
	return err
}
