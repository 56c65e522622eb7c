package db

import (
	"context"
	"time"

	"github.com/grindcity/economy-engine/pkg/models"
)

const buffColumns = `id, user_id, buff_type, category, multiplier, source, expires_at, is_active, applied_at`

// GetActiveBuff returns the live row for (user, buff type), or nil. The row
// is locked so apply decisions serialize per buff.
func (s *Store) GetActiveBuff(ctx context.Context, q Querier, userID int64, buffType string) (*models.ActiveBuff, error) {
	var b models.ActiveBuff
	err := q.QueryRow(ctx,
		`SELECT `+buffColumns+` FROM active_buffs
		 WHERE user_id = $1 AND buff_type = $2 AND is_active
		 FOR UPDATE`, userID, buffType).
		Scan(&b.ID, &b.UserID, &b.BuffType, &b.Category, &b.Multiplier, &b.Source,
			&b.ExpiresAt, &b.IsActive, &b.AppliedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// InsertBuff creates a live buff row.
func (s *Store) InsertBuff(ctx context.Context, q Querier, b *models.ActiveBuff) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO active_buffs (user_id, buff_type, category, multiplier, source, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		b.UserID, b.BuffType, b.Category, b.Multiplier, string(b.Source), b.ExpiresAt).Scan(&id)
	return id, err
}

// UpdateBuff rewrites multiplier, source and expiry of an existing row.
func (s *Store) UpdateBuff(ctx context.Context, q Querier, id int64, multiplier float64, source models.BuffSource, expiresAt *time.Time) error {
	_, err := q.Exec(ctx,
		`UPDATE active_buffs SET multiplier = $2, source = $3, expires_at = $4, applied_at = NOW()
		 WHERE id = $1`, id, multiplier, string(source), expiresAt)
	return err
}

// ListLiveBuffs returns every row that still counts at the given instant.
func (s *Store) ListLiveBuffs(ctx context.Context, q Querier, userID int64, now time.Time) ([]models.ActiveBuff, error) {
	rows, err := q.Query(ctx,
		`SELECT `+buffColumns+` FROM active_buffs
		 WHERE user_id = $1 AND is_active AND (expires_at IS NULL OR expires_at > $2)
		 ORDER BY category, buff_type`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ActiveBuff
	for rows.Next() {
		var b models.ActiveBuff
		if err := rows.Scan(&b.ID, &b.UserID, &b.BuffType, &b.Category, &b.Multiplier,
			&b.Source, &b.ExpiresAt, &b.IsActive, &b.AppliedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListLiveBuffsByCategory returns the live rows feeding one effect channel.
func (s *Store) ListLiveBuffsByCategory(ctx context.Context, q Querier, userID int64, category string, now time.Time) ([]models.ActiveBuff, error) {
	rows, err := q.Query(ctx,
		`SELECT `+buffColumns+` FROM active_buffs
		 WHERE user_id = $1 AND category = $2 AND is_active
		   AND (expires_at IS NULL OR expires_at > $3)`, userID, category, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ActiveBuff
	for rows.Next() {
		var b models.ActiveBuff
		if err := rows.Scan(&b.ID, &b.UserID, &b.BuffType, &b.Category, &b.Multiplier,
			&b.Source, &b.ExpiresAt, &b.IsActive, &b.AppliedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// HasLiveBuff reports whether an exact buff type is live.
func (s *Store) HasLiveBuff(ctx context.Context, q Querier, userID int64, buffType string, now time.Time) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM active_buffs
		   WHERE user_id = $1 AND buff_type = $2 AND is_active
		     AND (expires_at IS NULL OR expires_at > $3))`,
		userID, buffType, now).Scan(&exists)
	return exists, err
}

// HasLiveBuffPrefix reports whether any live buff type starts with prefix.
// Used to probe for the juicernaut bundle.
func (s *Store) HasLiveBuffPrefix(ctx context.Context, q Querier, userID int64, prefix string, now time.Time) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM active_buffs
		   WHERE user_id = $1 AND buff_type LIKE $2 || '%' AND is_active
		     AND (expires_at IS NULL OR expires_at > $3))`,
		userID, prefix, now).Scan(&exists)
	return exists, err
}

// DeactivateBuffsBySource retires a whole bundle, e.g. when the juicernaut
// crown moves to another viewer.
func (s *Store) DeactivateBuffsBySource(ctx context.Context, q Querier, userID int64, source models.BuffSource) (int64, error) {
	tag, err := q.Exec(ctx,
		`UPDATE active_buffs SET is_active = FALSE
		 WHERE user_id = $1 AND source = $2 AND is_active`, userID, string(source))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SweepExpiredBuffs retires rows whose expiry has passed.
func (s *Store) SweepExpiredBuffs(ctx context.Context, q Querier, now time.Time) (int64, error) {
	tag, err := q.Exec(ctx,
		`UPDATE active_buffs SET is_active = FALSE
		 WHERE is_active AND expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
