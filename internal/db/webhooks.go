package db

import (
	"context"
	"time"

	"github.com/grindcity/economy-engine/pkg/models"
)

// ClaimWebhookEvent inserts the idempotence record for (source, event id).
// Returns true when this call claimed the event; false means a previous
// delivery already holds it and the stored response should be replayed.
func (s *Store) ClaimWebhookEvent(ctx context.Context, q Querier, source, eventID string) (bool, error) {
	tag, err := q.Exec(ctx,
		`INSERT INTO processed_webhook_events (source, source_event_id, status)
		 VALUES ($1, $2, 'processing')
		 ON CONFLICT (source, source_event_id) DO NOTHING`, source, eventID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// GetWebhookEvent returns the stored record, or nil.
func (s *Store) GetWebhookEvent(ctx context.Context, q Querier, source, eventID string) (*models.ProcessedWebhookEvent, error) {
	var ev models.ProcessedWebhookEvent
	err := q.QueryRow(ctx,
		`SELECT source, source_event_id, status, response_body, received_at, completed_at
		 FROM processed_webhook_events WHERE source = $1 AND source_event_id = $2`,
		source, eventID).
		Scan(&ev.Source, &ev.SourceEventID, &ev.Status, &ev.ResponseBody,
			&ev.ReceivedAt, &ev.CompletedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

// CompleteWebhookEvent stores the success envelope so a retry can replay it
// byte for byte.
func (s *Store) CompleteWebhookEvent(ctx context.Context, q Querier, source, eventID string, response []byte, now time.Time) error {
	_, err := q.Exec(ctx,
		`UPDATE processed_webhook_events
		 SET status = 'done', response_body = $3, completed_at = $4
		 WHERE source = $1 AND source_event_id = $2`, source, eventID, response, now)
	return err
}

// ReleaseWebhookEvent drops a claim whose command failed, so the platform's
// retry can run the command again.
func (s *Store) ReleaseWebhookEvent(ctx context.Context, q Querier, source, eventID string) error {
	_, err := q.Exec(ctx,
		`DELETE FROM processed_webhook_events
		 WHERE source = $1 AND source_event_id = $2 AND status = 'processing'`,
		source, eventID)
	return err
}

// SweepStaleWebhookClaims reopens claims stuck in processing, e.g. after a
// crash between claim and completion.
func (s *Store) SweepStaleWebhookClaims(ctx context.Context, q Querier, olderThan time.Time) (int64, error) {
	tag, err := q.Exec(ctx,
		`DELETE FROM processed_webhook_events
		 WHERE status = 'processing' AND received_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeOldWebhookEvents trims completed records past retention.
func (s *Store) PurgeOldWebhookEvents(ctx context.Context, q Querier, olderThan time.Time) (int64, error) {
	tag, err := q.Exec(ctx,
		`DELETE FROM processed_webhook_events
		 WHERE status = 'done' AND received_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ─── Streaming sessions ──────────────────────────────────────────────────────

// SetStreamActive upserts the liveness flag for a platform.
func (s *Store) SetStreamActive(ctx context.Context, q Querier, platform string, active bool) error {
	_, err := q.Exec(ctx,
		`INSERT INTO streaming_sessions (platform, is_active, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (platform) DO UPDATE SET is_active = EXCLUDED.is_active, updated_at = NOW()`,
		platform, active)
	return err
}

// AnyStreamActive reports whether any platform session is live.
func (s *Store) AnyStreamActive(ctx context.Context, q Querier) (bool, error) {
	var active bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM streaming_sessions WHERE is_active)`).Scan(&active)
	return active, err
}

// ListStreamSessions returns per-platform liveness for the admin view.
func (s *Store) ListStreamSessions(ctx context.Context, q Querier) ([]models.StreamingSession, error) {
	rows, err := q.Query(ctx,
		`SELECT platform, is_active, updated_at FROM streaming_sessions ORDER BY platform`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StreamingSession
	for rows.Next() {
		var ss models.StreamingSession
		if err := rows.Scan(&ss.Platform, &ss.IsActive, &ss.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}
