package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/grindcity/economy-engine/pkg/models"
)

const userMissionColumns = `id, user_id, template_id, mission_type, category, objective_type,
	objective_value, current_progress, reward_wealth, reward_xp, is_luck_based,
	is_completed, status, period_key, expires_at, assigned_at`

func scanUserMission(row pgx.Row) (*models.UserMission, error) {
	var m models.UserMission
	err := row.Scan(&m.ID, &m.UserID, &m.TemplateID, &m.MissionType, &m.Category,
		&m.ObjectiveType, &m.ObjectiveValue, &m.CurrentProgress,
		&m.RewardWealth, &m.RewardXP, &m.IsLuckBased,
		&m.IsCompleted, &m.Status, &m.PeriodKey, &m.ExpiresAt, &m.AssignedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMissionTemplates returns the template pool for one mission type.
func (s *Store) ListMissionTemplates(ctx context.Context, q Querier, missionType models.MissionType) ([]models.MissionTemplate, error) {
	rows, err := q.Query(ctx,
		`SELECT id, mission_type, category, name, description, objective_type,
		        objective_base_value, reward_wealth, reward_xp, is_luck_based
		 FROM mission_templates WHERE mission_type = $1 ORDER BY id`, string(missionType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MissionTemplate
	for rows.Next() {
		var t models.MissionTemplate
		if err := rows.Scan(&t.ID, &t.MissionType, &t.Category, &t.Name, &t.Description,
			&t.ObjectiveType, &t.ObjectiveBaseValue, &t.RewardWealth, &t.RewardXP,
			&t.IsLuckBased); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListActiveMissions returns the user's active batch for one mission type.
func (s *Store) ListActiveMissions(ctx context.Context, q Querier, userID int64, missionType models.MissionType) ([]models.UserMission, error) {
	rows, err := q.Query(ctx,
		`SELECT `+userMissionColumns+` FROM user_missions
		 WHERE user_id = $1 AND mission_type = $2 AND status = 'active'
		 ORDER BY id`, userID, string(missionType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserMission
	for rows.Next() {
		m, err := scanUserMission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// InsertUserMission assigns one mission.
func (s *Store) InsertUserMission(ctx context.Context, q Querier, m *models.UserMission) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO user_missions
		   (user_id, template_id, mission_type, category, objective_type, objective_value,
		    reward_wealth, reward_xp, is_luck_based, period_key, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		m.UserID, m.TemplateID, string(m.MissionType), m.Category, m.ObjectiveType,
		m.ObjectiveValue, m.RewardWealth, m.RewardXP, m.IsLuckBased,
		m.PeriodKey, m.ExpiresAt).Scan(&id)
	return id, err
}

// ExpireMissionsBefore transitions active rows of a type whose period has
// passed, returning how many expired.
func (s *Store) ExpireMissionsBefore(ctx context.Context, q Querier, userID int64, missionType models.MissionType, periodKey string) (int64, error) {
	tag, err := q.Exec(ctx,
		`UPDATE user_missions SET status = 'expired'
		 WHERE user_id = $1 AND mission_type = $2 AND status = 'active' AND period_key <> $3`,
		userID, string(missionType), periodKey)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// IncrementMissionProgress advances every active mission matching the
// objective, capping at the objective value and flipping is_completed.
func (s *Store) IncrementMissionProgress(ctx context.Context, q Querier, userID int64, objectiveType string, n int64) error {
	_, err := q.Exec(ctx,
		`UPDATE user_missions
		 SET current_progress = LEAST(objective_value, current_progress + $3),
		     is_completed = (current_progress + $3 >= objective_value)
		 WHERE user_id = $1 AND objective_type = $2 AND status = 'active' AND NOT is_completed`,
		userID, objectiveType, n)
	return err
}

// SetMissionProgressAbsolute raises progress to v for objectives tracked as
// high-water marks. Progress never moves backwards.
func (s *Store) SetMissionProgressAbsolute(ctx context.Context, q Querier, userID int64, objectiveType string, v int64) error {
	_, err := q.Exec(ctx,
		`UPDATE user_missions
		 SET current_progress = LEAST(objective_value, GREATEST(current_progress, $3)),
		     is_completed = ($3 >= objective_value OR is_completed)
		 WHERE user_id = $1 AND objective_type = $2 AND status = 'active' AND NOT is_completed`,
		userID, objectiveType, v)
	return err
}

// LockActiveMissions reloads the active batch under FOR UPDATE for claim.
func (s *Store) LockActiveMissions(ctx context.Context, q Querier, userID int64, missionType models.MissionType) ([]models.UserMission, error) {
	rows, err := q.Query(ctx,
		`SELECT `+userMissionColumns+` FROM user_missions
		 WHERE user_id = $1 AND mission_type = $2 AND status = 'active'
		 ORDER BY id FOR UPDATE`, userID, string(missionType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserMission
	for rows.Next() {
		m, err := scanUserMission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// MarkMissionsClaimed transitions a batch to claimed.
func (s *Store) MarkMissionsClaimed(ctx context.Context, q Querier, userID int64, missionType models.MissionType, periodKey string) error {
	_, err := q.Exec(ctx,
		`UPDATE user_missions SET status = 'claimed'
		 WHERE user_id = $1 AND mission_type = $2 AND status = 'active' AND period_key = $3`,
		userID, string(missionType), periodKey)
	return err
}

// InsertMissionCompletion records an all-or-nothing claim. The unique
// constraint on (user, type, period) is the double-claim guard.
func (s *Store) InsertMissionCompletion(ctx context.Context, q Querier, c *models.MissionCompletion) error {
	_, err := q.Exec(ctx,
		`INSERT INTO mission_completions
		   (user_id, mission_type, period_key, wealth_awarded, xp_awarded, capped_amount)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.UserID, string(c.MissionType), c.PeriodKey, c.WealthAwarded,
		c.XPAwarded, c.CappedAmount)
	return err
}

// GetMissionCompletion returns the completion row for a period, or nil.
func (s *Store) GetMissionCompletion(ctx context.Context, q Querier, userID int64, missionType models.MissionType, periodKey string) (*models.MissionCompletion, error) {
	var c models.MissionCompletion
	err := q.QueryRow(ctx,
		`SELECT id, user_id, mission_type, period_key, wealth_awarded, xp_awarded, capped_amount, claimed_at
		 FROM mission_completions
		 WHERE user_id = $1 AND mission_type = $2 AND period_key = $3`,
		userID, string(missionType), periodKey).
		Scan(&c.ID, &c.UserID, &c.MissionType, &c.PeriodKey, &c.WealthAwarded,
			&c.XPAwarded, &c.CappedAmount, &c.ClaimedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// SumWealthClaimedSince totals mission wealth paid out in the cap window.
// Both mission types count: a weekly claim eats into the day's headroom and
// daily claims into the week's.
func (s *Store) SumWealthClaimedSince(ctx context.Context, q Querier, userID int64, since time.Time) (int64, error) {
	var total int64
	err := q.QueryRow(ctx,
		`SELECT COALESCE(SUM(wealth_awarded), 0) FROM mission_completions
		 WHERE user_id = $1 AND claimed_at >= $2`,
		userID, since).Scan(&total)
	return total, err
}

// DeleteMissionsForUser removes every mission row, used when tombstoning.
func (s *Store) DeleteMissionsForUser(ctx context.Context, q Querier, userID int64) error {
	_, err := q.Exec(ctx, `DELETE FROM user_missions WHERE user_id = $1`, userID)
	return err
}

// ExpireStaleMissions is the background sweep for users who never returned;
// it retires batches whose expiry has passed.
func (s *Store) ExpireStaleMissions(ctx context.Context, q Querier, now time.Time) (int64, error) {
	tag, err := q.Exec(ctx,
		`UPDATE user_missions SET status = 'expired'
		 WHERE status = 'active' AND expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
