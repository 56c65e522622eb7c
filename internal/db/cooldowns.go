package db

import (
	"context"
	"time"

	"github.com/grindcity/economy-engine/pkg/models"
)

// GetCooldown returns the cooldown row for (user, command, target), or nil
// when none exists. Expired rows are returned as-is; callers compare
// expires_at against their clock.
func (s *Store) GetCooldown(ctx context.Context, q Querier, userID int64, commandType, target string) (*models.Cooldown, error) {
	var c models.Cooldown
	err := q.QueryRow(ctx,
		`SELECT id, user_id, command_type, target_identifier, expires_at, created_at
		 FROM cooldowns
		 WHERE user_id = $1 AND command_type = $2 AND target_identifier = $3`,
		userID, commandType, target).
		Scan(&c.ID, &c.UserID, &c.CommandType, &c.TargetIdentifier, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// UpsertCooldown sets or replaces the expiry for (user, command, target).
func (s *Store) UpsertCooldown(ctx context.Context, q Querier, userID int64, commandType, target string, expiresAt time.Time) error {
	_, err := q.Exec(ctx,
		`INSERT INTO cooldowns (user_id, command_type, target_identifier, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, command_type, target_identifier)
		 DO UPDATE SET expires_at = EXCLUDED.expires_at, created_at = NOW()`,
		userID, commandType, target, expiresAt)
	return err
}

// DeleteCooldown removes the row. Deleting a missing row is not an error.
func (s *Store) DeleteCooldown(ctx context.Context, q Querier, userID int64, commandType, target string) error {
	_, err := q.Exec(ctx,
		`DELETE FROM cooldowns
		 WHERE user_id = $1 AND command_type = $2 AND target_identifier = $3`,
		userID, commandType, target)
	return err
}

// DeleteCooldownsByCommand clears every row of one command type for a user,
// regardless of target. Used by single-use items and admin clearance.
func (s *Store) DeleteCooldownsByCommand(ctx context.Context, q Querier, userID int64, commandType string) (int64, error) {
	tag, err := q.Exec(ctx,
		`DELETE FROM cooldowns WHERE user_id = $1 AND command_type = $2`,
		userID, commandType)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteAllCooldowns clears every cooldown a user holds.
func (s *Store) DeleteAllCooldowns(ctx context.Context, q Querier, userID int64) (int64, error) {
	tag, err := q.Exec(ctx, `DELETE FROM cooldowns WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SweepExpiredCooldowns garbage-collects rows past their expiry.
func (s *Store) SweepExpiredCooldowns(ctx context.Context, q Querier, now time.Time) (int64, error) {
	tag, err := q.Exec(ctx, `DELETE FROM cooldowns WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListCooldowns returns a user's live cooldowns for the profile view.
func (s *Store) ListCooldowns(ctx context.Context, q Querier, userID int64, now time.Time) ([]models.Cooldown, error) {
	rows, err := q.Query(ctx,
		`SELECT id, user_id, command_type, target_identifier, expires_at, created_at
		 FROM cooldowns WHERE user_id = $1 AND expires_at > $2
		 ORDER BY expires_at`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Cooldown
	for rows.Next() {
		var c models.Cooldown
		if err := rows.Scan(&c.ID, &c.UserID, &c.CommandType, &c.TargetIdentifier, &c.ExpiresAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
