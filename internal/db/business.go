package db

import (
	"context"

	"github.com/grindcity/economy-engine/pkg/models"
)

// AppendBusinessRevenue writes one P&L line from a collection tick.
func (s *Store) AppendBusinessRevenue(ctx context.Context, q Querier, r *models.BusinessRevenue) error {
	_, err := q.Exec(ctx,
		`INSERT INTO business_revenue_history (user_id, item_def_id, gross_revenue, operating_cost, net_revenue)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.UserID, r.ItemDefID, int64(r.GrossRevenue), int64(r.OperatingCost), int64(r.NetRevenue))
	return err
}

// ListBusinessRevenue returns a user's recent P&L lines.
func (s *Store) ListBusinessRevenue(ctx context.Context, q Querier, userID int64, limit int) ([]models.BusinessRevenue, error) {
	rows, err := q.Query(ctx,
		`SELECT id, user_id, item_def_id, gross_revenue, operating_cost, net_revenue, collected_at
		 FROM business_revenue_history WHERE user_id = $1
		 ORDER BY collected_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BusinessRevenue
	for rows.Next() {
		var r models.BusinessRevenue
		if err := rows.Scan(&r.ID, &r.UserID, &r.ItemDefID, &r.GrossRevenue,
			&r.OperatingCost, &r.NetRevenue, &r.CollectedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
