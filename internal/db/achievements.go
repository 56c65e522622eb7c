package db

import (
	"context"

	"github.com/grindcity/economy-engine/pkg/models"
)

// UpsertAchievementProgress advances a counter, keeping the high-water mark
// and latching completion.
func (s *Store) UpsertAchievementProgress(ctx context.Context, q Querier, userID int64, key string, progress int64, completed bool) error {
	_, err := q.Exec(ctx,
		`INSERT INTO user_achievements (user_id, achievement_key, progress, is_completed, completed_at)
		 VALUES ($1, $2, $3, $4, CASE WHEN $4 THEN NOW() END)
		 ON CONFLICT (user_id, achievement_key) DO UPDATE SET
		   progress = GREATEST(user_achievements.progress, EXCLUDED.progress),
		   is_completed = user_achievements.is_completed OR EXCLUDED.is_completed,
		   completed_at = COALESCE(user_achievements.completed_at, EXCLUDED.completed_at)`,
		userID, key, progress, completed)
	return err
}

// IncrementAchievement adds delta to a counter with no backing user column,
// latching completion once the goal is reached.
func (s *Store) IncrementAchievement(ctx context.Context, q Querier, userID int64, key string, delta, goal int64) error {
	_, err := q.Exec(ctx,
		`INSERT INTO user_achievements (user_id, achievement_key, progress, is_completed, completed_at)
		 VALUES ($1, $2, $3, $3 >= $4, CASE WHEN $3 >= $4 THEN NOW() END)
		 ON CONFLICT (user_id, achievement_key) DO UPDATE SET
		   progress = user_achievements.progress + $3,
		   is_completed = user_achievements.is_completed OR user_achievements.progress + $3 >= $4,
		   completed_at = COALESCE(user_achievements.completed_at,
		     CASE WHEN user_achievements.progress + $3 >= $4 THEN NOW() END)`,
		userID, key, delta, goal)
	return err
}

// ListAchievements returns a user's achievement rows.
func (s *Store) ListAchievements(ctx context.Context, q Querier, userID int64) ([]models.Achievement, error) {
	rows, err := q.Query(ctx,
		`SELECT user_id, achievement_key, progress, is_completed, completed_at
		 FROM user_achievements WHERE user_id = $1 ORDER BY achievement_key`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.UserID, &a.AchievementKey, &a.Progress, &a.IsCompleted, &a.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GrantTitle awards a cosmetic title, idempotently.
func (s *Store) GrantTitle(ctx context.Context, q Querier, userID int64, titleKey string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO user_titles (user_id, title_key) VALUES ($1, $2)
		 ON CONFLICT (user_id, title_key) DO NOTHING`, userID, titleKey)
	return err
}

// ListTitles returns a user's earned titles.
func (s *Store) ListTitles(ctx context.Context, q Querier, userID int64) ([]models.Title, error) {
	rows, err := q.Query(ctx,
		`SELECT user_id, title_key, earned_at FROM user_titles
		 WHERE user_id = $1 ORDER BY earned_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Title
	for rows.Next() {
		var t models.Title
		if err := rows.Scan(&t.UserID, &t.TitleKey, &t.EarnedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
