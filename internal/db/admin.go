package db

import (
	"context"
	"time"

	"github.com/grindcity/economy-engine/pkg/models"
)

// EconomyTotals are house-wide sums. Values arrive as text because BIGINT
// sums surface from PostgreSQL as NUMERIC, which can exceed int64.
type EconomyTotals struct {
	Users       int64
	TotalWealth string
	TotalXP     string
	TotalTokens string
	TotalBonds  string
}

// GetEconomyTotals aggregates live accounts.
func (s *Store) GetEconomyTotals(ctx context.Context, q Querier) (*EconomyTotals, error) {
	var t EconomyTotals
	err := q.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(wealth), 0)::TEXT,
		        COALESCE(SUM(xp), 0)::TEXT,
		        COALESCE(SUM(tokens), 0)::TEXT,
		        COALESCE(SUM(bonds), 0)::TEXT
		 FROM users WHERE merged_into_user_id IS NULL`).
		Scan(&t.Users, &t.TotalWealth, &t.TotalXP, &t.TotalTokens, &t.TotalBonds)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// WealthBucket is one band of the wealth distribution histogram.
type WealthBucket struct {
	Floor models.Currency
	Users int64
}

// GetWealthDistribution buckets live accounts by configured band floors.
func (s *Store) GetWealthDistribution(ctx context.Context, q Querier, floors []int64) ([]WealthBucket, error) {
	out := make([]WealthBucket, 0, len(floors))
	for i, floor := range floors {
		var n int64
		var err error
		if i+1 < len(floors) {
			err = q.QueryRow(ctx,
				`SELECT COUNT(*) FROM users
				 WHERE merged_into_user_id IS NULL AND wealth >= $1 AND wealth < $2`,
				floor, floors[i+1]).Scan(&n)
		} else {
			err = q.QueryRow(ctx,
				`SELECT COUNT(*) FROM users
				 WHERE merged_into_user_id IS NULL AND wealth >= $1`, floor).Scan(&n)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, WealthBucket{Floor: models.Currency(floor), Users: n})
	}
	return out, nil
}

// HouseGameLine is per-game house P&L over a window.
type HouseGameLine struct {
	Game    string
	Rounds  int64
	Wagered string
	Paid    string
}

// GetHousePnL sums wagers against payouts per game since the given time.
// Open blackjack hands are excluded; their wager is already debited but the
// round is not settled.
func (s *Store) GetHousePnL(ctx context.Context, q Querier, since time.Time) ([]HouseGameLine, error) {
	rows, err := q.Query(ctx,
		`SELECT game, COUNT(*),
		        COALESCE(SUM(wager), 0)::TEXT,
		        COALESCE(SUM(payout), 0)::TEXT
		 FROM gambling_sessions
		 WHERE resolved_at IS NOT NULL AND created_at >= $1
		 GROUP BY game ORDER BY game`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HouseGameLine
	for rows.Next() {
		var l HouseGameLine
		if err := rows.Scan(&l.Game, &l.Rounds, &l.Wagered, &l.Paid); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
