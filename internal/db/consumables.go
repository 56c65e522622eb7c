package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/grindcity/economy-engine/pkg/models"
)

const consumableColumns = `id, name, category, cost, is_duration_buff, is_single_use,
	buff_key, buff_category, buff_value, duration_hours, max_owned, effect_key`

func scanConsumable(row pgx.Row) (*models.Consumable, error) {
	var c models.Consumable
	err := row.Scan(&c.ID, &c.Name, &c.Category, &c.Cost, &c.IsDurationBuff, &c.IsSingleUse,
		&c.BuffKey, &c.BuffCategory, &c.BuffValue, &c.DurationHours, &c.MaxOwned, &c.EffectKey)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConsumable loads one catalog row.
func (s *Store) GetConsumable(ctx context.Context, q Querier, id int64) (*models.Consumable, error) {
	return scanConsumable(q.QueryRow(ctx,
		`SELECT `+consumableColumns+` FROM consumables WHERE id = $1`, id))
}

// ListConsumables returns the full catalog.
func (s *Store) ListConsumables(ctx context.Context, q Querier) ([]models.Consumable, error) {
	rows, err := q.Query(ctx,
		`SELECT `+consumableColumns+` FROM consumables ORDER BY category, cost`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Consumable
	for rows.Next() {
		c, err := scanConsumable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// AddConsumableStock increments a user's stock, capped at maxOwned inside
// the statement so concurrent buys cannot exceed it. Returns false when
// the cap blocked the increment.
func (s *Store) AddConsumableStock(ctx context.Context, q Querier, userID, consumableID int64, maxOwned int) (bool, error) {
	tag, err := q.Exec(ctx,
		`INSERT INTO user_consumables (user_id, consumable_id, quantity)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (user_id, consumable_id)
		 DO UPDATE SET quantity = user_consumables.quantity + 1, updated_at = NOW()
		 WHERE user_consumables.quantity < $3`,
		userID, consumableID, maxOwned)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ConsumeStock decrements one unit with the quantity precondition in the
// statement. Returns false when the user holds none.
func (s *Store) ConsumeStock(ctx context.Context, q Querier, userID, consumableID int64) (bool, error) {
	tag, err := q.Exec(ctx,
		`UPDATE user_consumables SET quantity = quantity - 1, updated_at = NOW()
		 WHERE user_id = $1 AND consumable_id = $2 AND quantity > 0`,
		userID, consumableID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// GetConsumableStock returns how many units the user holds.
func (s *Store) GetConsumableStock(ctx context.Context, q Querier, userID, consumableID int64) (int, error) {
	var qty int
	err := q.QueryRow(ctx,
		`SELECT quantity FROM user_consumables WHERE user_id = $1 AND consumable_id = $2`,
		userID, consumableID).Scan(&qty)
	if err != nil {
		if IsNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return qty, nil
}

// ListConsumableStock returns all holdings for the profile view.
func (s *Store) ListConsumableStock(ctx context.Context, q Querier, userID int64) ([]models.UserConsumable, error) {
	rows, err := q.Query(ctx,
		`SELECT user_id, consumable_id, quantity, updated_at
		 FROM user_consumables WHERE user_id = $1 AND quantity > 0
		 ORDER BY consumable_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserConsumable
	for rows.Next() {
		var uc models.UserConsumable
		if err := rows.Scan(&uc.UserID, &uc.ConsumableID, &uc.Quantity, &uc.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, uc)
	}
	return out, rows.Err()
}

// RecordConsumablePurchase appends to the purchase history.
func (s *Store) RecordConsumablePurchase(ctx context.Context, q Querier, userID, consumableID, cost int64) error {
	_, err := q.Exec(ctx,
		`INSERT INTO consumable_purchases (user_id, consumable_id, cost) VALUES ($1, $2, $3)`,
		userID, consumableID, cost)
	return err
}
