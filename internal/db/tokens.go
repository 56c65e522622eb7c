package db

import (
	"context"
	"time"
)

// AppendTokenTransaction writes one token ledger line. Every token mutation
// appends here in the same transaction.
func (s *Store) AppendTokenTransaction(ctx context.Context, q Querier, userID int64, amount int, txType, description string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO token_transactions (user_id, amount, tx_type, description)
		 VALUES ($1, $2, $3, $4)`, userID, amount, txType, description)
	return err
}

// AppendBondTransaction writes one bond ledger line.
func (s *Store) AppendBondTransaction(ctx context.Context, q Querier, userID, amount int64, txType, description string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO bond_transactions (user_id, amount, tx_type, description)
		 VALUES ($1, $2, $3, $4)`, userID, amount, txType, description)
	return err
}

// SpendTokens decrements the balance only when it covers the spend. The
// precondition lives in the UPDATE so concurrent spends cannot overdraw.
func (s *Store) SpendTokens(ctx context.Context, q Querier, userID int64, n int) (bool, error) {
	tag, err := q.Exec(ctx,
		`UPDATE users SET tokens = tokens - $2 WHERE id = $1 AND tokens >= $2`, userID, n)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SpendBonds decrements the bond balance only when it covers the spend.
func (s *Store) SpendBonds(ctx context.Context, q Querier, userID, n int64) (bool, error) {
	tag, err := q.Exec(ctx,
		`UPDATE users SET bonds = bonds - $2 WHERE id = $1 AND bonds >= $2`, userID, n)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ResetDailyTokenCounters zeroes tokens_earned_today for every user whose
// counter has not been reset since the given UTC midnight.
func (s *Store) ResetDailyTokenCounters(ctx context.Context, q Querier, midnight time.Time) (int64, error) {
	tag, err := q.Exec(ctx,
		`UPDATE users SET tokens_earned_today = 0, last_token_reset = $1
		 WHERE tokens_earned_today > 0 AND last_token_reset < $1`, midnight)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListUsersAboveTokenCap returns ids of users subject to decay. The decay
// job processes each in its own transaction.
func (s *Store) ListUsersAboveTokenCap(ctx context.Context, q Querier, softCap int) ([]int64, error) {
	rows, err := q.Query(ctx,
		`SELECT id FROM users
		 WHERE tokens > $1 AND merged_into_user_id IS NULL
		 ORDER BY id`, softCap)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
