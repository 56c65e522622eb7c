package db

import (
	"context"
	"time"

	"github.com/grindcity/economy-engine/pkg/models"
)

// AppendGameEvent writes one audit row. Called inside the transaction that
// produced the change so audit and state commit together.
func (s *Store) AppendGameEvent(ctx context.Context, q Querier, ev *models.GameEvent) error {
	_, err := q.Exec(ctx,
		`INSERT INTO game_events (user_id, event_type, wealth_change, xp_change, success, description)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.UserID, ev.EventType, int64(ev.WealthChange), ev.XPChange, ev.Success, ev.Description)
	return err
}

// ListGameEvents returns the most recent audit rows for a user.
func (s *Store) ListGameEvents(ctx context.Context, q Querier, userID int64, limit int) ([]models.GameEvent, error) {
	rows, err := q.Query(ctx,
		`SELECT id, user_id, event_type, wealth_change, xp_change, success, description, created_at
		 FROM game_events WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GameEvent
	for rows.Next() {
		var ev models.GameEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.EventType, &ev.WealthChange,
			&ev.XPChange, &ev.Success, &ev.Description, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// InsertNotification stores a notification for later retrieval.
func (s *Store) InsertNotification(ctx context.Context, q Querier, n *models.Notification) error {
	_, err := q.Exec(ctx,
		`INSERT INTO user_notifications (user_id, kind, title, body) VALUES ($1, $2, $3, $4)`,
		n.UserID, n.Kind, n.Title, n.Body)
	return err
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, q Querier, userID int64, limit int) ([]models.Notification, error) {
	rows, err := q.Query(ctx,
		`SELECT id, user_id, kind, title, body, created_at
		 FROM user_notifications WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// PurgeOldNotifications drops rows older than the retention horizon.
func (s *Store) PurgeOldNotifications(ctx context.Context, q Querier, olderThan time.Time) (int64, error) {
	tag, err := q.Exec(ctx,
		`DELETE FROM user_notifications WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeOldGameEvents trims the audit log to the retention horizon.
func (s *Store) PurgeOldGameEvents(ctx context.Context, q Querier, olderThan time.Time) (int64, error) {
	tag, err := q.Exec(ctx,
		`DELETE FROM game_events WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
