package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/grindcity/economy-engine/pkg/models"
)

const coinFlipColumns = `id, challenger_id, acceptor_id, wager_amount, challenger_call,
	status, winner_id, expires_at, created_at, resolved_at`

func scanCoinFlip(row pgx.Row) (*models.CoinFlipChallenge, error) {
	var c models.CoinFlipChallenge
	err := row.Scan(&c.ID, &c.ChallengerID, &c.AcceptorID, &c.WagerAmount, &c.ChallengerCall,
		&c.Status, &c.WinnerID, &c.ExpiresAt, &c.CreatedAt, &c.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertCoinFlip creates an open challenge. The partial unique index on
// (challenger_id) WHERE open turns a double-create race into a unique
// violation the caller maps to Conflict.
func (s *Store) InsertCoinFlip(ctx context.Context, q Querier, challengerID int64, wager models.Currency, call string, expiresAt time.Time) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO coin_flip_challenges (challenger_id, wager_amount, challenger_call, expires_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		challengerID, int64(wager), call, expiresAt).Scan(&id)
	return id, err
}

// GetCoinFlip reads a challenge without locking.
func (s *Store) GetCoinFlip(ctx context.Context, q Querier, id int64) (*models.CoinFlipChallenge, error) {
	return scanCoinFlip(q.QueryRow(ctx,
		`SELECT `+coinFlipColumns+` FROM coin_flip_challenges WHERE id = $1`, id))
}

// GetCoinFlipForUpdate locks a challenge row. Accept, cancel and the expiry
// sweep all lock before deciding, so exactly one transition wins.
func (s *Store) GetCoinFlipForUpdate(ctx context.Context, q Querier, id int64) (*models.CoinFlipChallenge, error) {
	return scanCoinFlip(q.QueryRow(ctx,
		`SELECT `+coinFlipColumns+` FROM coin_flip_challenges WHERE id = $1 FOR UPDATE`, id))
}

// GetOpenCoinFlipByChallenger returns the challenger's open challenge, or
// nil, locking it for cancel.
func (s *Store) GetOpenCoinFlipByChallenger(ctx context.Context, q Querier, challengerID int64) (*models.CoinFlipChallenge, error) {
	c, err := scanCoinFlip(q.QueryRow(ctx,
		`SELECT `+coinFlipColumns+` FROM coin_flip_challenges
		 WHERE challenger_id = $1 AND status = 'open' FOR UPDATE`, challengerID))
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// ResolveCoinFlip transitions open → resolved, guarded on status so a
// concurrent accept or cancel cannot double-settle.
func (s *Store) ResolveCoinFlip(ctx context.Context, q Querier, id, acceptorID, winnerID int64, now time.Time) (bool, error) {
	tag, err := q.Exec(ctx,
		`UPDATE coin_flip_challenges
		 SET status = 'resolved', acceptor_id = $2, winner_id = $3, resolved_at = $4
		 WHERE id = $1 AND status = 'open'`, id, acceptorID, winnerID, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CloseCoinFlip transitions open → cancelled or expired with the same
// status guard.
func (s *Store) CloseCoinFlip(ctx context.Context, q Querier, id int64, status models.CoinFlipStatus, now time.Time) (bool, error) {
	tag, err := q.Exec(ctx,
		`UPDATE coin_flip_challenges
		 SET status = $2, resolved_at = $3
		 WHERE id = $1 AND status = 'open'`, id, string(status), now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListExpiredOpenCoinFlips returns ids of stale opens for the sweep; each
// is refunded in its own transaction.
func (s *Store) ListExpiredOpenCoinFlips(ctx context.Context, q Querier, now time.Time, limit int) ([]int64, error) {
	rows, err := q.Query(ctx,
		`SELECT id FROM coin_flip_challenges
		 WHERE status = 'open' AND expires_at < $1
		 ORDER BY expires_at LIMIT $2`, now, limit)
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

// ListOpenCoinFlips returns joinable challenges for the UI.
func (s *Store) ListOpenCoinFlips(ctx context.Context, q Querier, now time.Time, limit int) ([]models.CoinFlipChallenge, error) {
	rows, err := q.Query(ctx,
		`SELECT `+coinFlipColumns+` FROM coin_flip_challenges
		 WHERE status = 'open' AND expires_at > $1
		 ORDER BY created_at DESC LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CoinFlipChallenge
	for rows.Next() {
		c, err := scanCoinFlip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
