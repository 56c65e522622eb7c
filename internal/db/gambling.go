package db

import (
	"context"
	"time"

	"github.com/grindcity/economy-engine/pkg/models"
)

// ─── Sessions ────────────────────────────────────────────────────────────────

// InsertGamblingSession appends a wager record. Resolved games pass
// resolvedAt; blackjack leaves it nil until the hand closes.
func (s *Store) InsertGamblingSession(ctx context.Context, q Querier, sess *models.GamblingSession) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO gambling_sessions (user_id, game, wager, payout, outcome, detail, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		sess.UserID, string(sess.Game), int64(sess.Wager), int64(sess.Payout),
		sess.Outcome, sess.Detail, sess.ResolvedAt).Scan(&id)
	return id, err
}

// GetOpenBlackjackSession returns the user's unresolved hand with the row
// locked, or nil when no hand is open.
func (s *Store) GetOpenBlackjackSession(ctx context.Context, q Querier, userID int64) (*models.GamblingSession, error) {
	var sess models.GamblingSession
	err := q.QueryRow(ctx,
		`SELECT id, user_id, game, wager, payout, outcome, detail, created_at, resolved_at
		 FROM gambling_sessions
		 WHERE user_id = $1 AND game = 'blackjack' AND resolved_at IS NULL
		 FOR UPDATE`, userID).
		Scan(&sess.ID, &sess.UserID, &sess.Game, &sess.Wager, &sess.Payout,
			&sess.Outcome, &sess.Detail, &sess.CreatedAt, &sess.ResolvedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &sess, nil
}

// UpdateSessionDetail rewrites the transient state and wager of an open
// session (hit appends a card, double raises the wager).
func (s *Store) UpdateSessionDetail(ctx context.Context, q Querier, id int64, wager models.Currency, detail []byte) error {
	_, err := q.Exec(ctx,
		`UPDATE gambling_sessions SET wager = $2, detail = $3 WHERE id = $1`,
		id, int64(wager), detail)
	return err
}

// ResolveGamblingSession closes a session with its final outcome.
func (s *Store) ResolveGamblingSession(ctx context.Context, q Querier, id int64, payout models.Currency, outcome string, detail []byte, resolvedAt time.Time) error {
	_, err := q.Exec(ctx,
		`UPDATE gambling_sessions
		 SET payout = $2, outcome = $3, detail = $4, resolved_at = $5
		 WHERE id = $1`, id, int64(payout), outcome, detail, resolvedAt)
	return err
}

// ListRecentSessions returns a user's latest wagers for the profile view.
func (s *Store) ListRecentSessions(ctx context.Context, q Querier, userID int64, limit int) ([]models.GamblingSession, error) {
	rows, err := q.Query(ctx,
		`SELECT id, user_id, game, wager, payout, outcome, detail, created_at, resolved_at
		 FROM gambling_sessions WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GamblingSession
	for rows.Next() {
		var sess models.GamblingSession
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Game, &sess.Wager, &sess.Payout,
			&sess.Outcome, &sess.Detail, &sess.CreatedAt, &sess.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// EnsureGamblingStats creates the zero row so a later lock always finds it.
func (s *Store) EnsureGamblingStats(ctx context.Context, q Querier, userID int64) error {
	_, err := q.Exec(ctx,
		`INSERT INTO player_gambling_stats (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

// GetGamblingStatsForUpdate locks the stats row for a streak update.
func (s *Store) GetGamblingStatsForUpdate(ctx context.Context, q Querier, userID int64) (*models.GamblingStats, error) {
	var st models.GamblingStats
	err := q.QueryRow(ctx,
		`SELECT user_id, total_wagered, total_won, games_played, games_won,
		        current_streak, best_streak, biggest_win, biggest_loss, updated_at
		 FROM player_gambling_stats WHERE user_id = $1 FOR UPDATE`, userID).
		Scan(&st.UserID, &st.TotalWagered, &st.TotalWon, &st.GamesPlayed, &st.GamesWon,
			&st.CurrentStreak, &st.BestStreak, &st.BiggestWin, &st.BiggestLoss, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// GetGamblingStats is the unlocked read; returns a zero-value row when the
// user never gambled.
func (s *Store) GetGamblingStats(ctx context.Context, q Querier, userID int64) (*models.GamblingStats, error) {
	var st models.GamblingStats
	err := q.QueryRow(ctx,
		`SELECT user_id, total_wagered, total_won, games_played, games_won,
		        current_streak, best_streak, biggest_win, biggest_loss, updated_at
		 FROM player_gambling_stats WHERE user_id = $1`, userID).
		Scan(&st.UserID, &st.TotalWagered, &st.TotalWon, &st.GamesPlayed, &st.GamesWon,
			&st.CurrentStreak, &st.BestStreak, &st.BiggestWin, &st.BiggestLoss, &st.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return &models.GamblingStats{UserID: userID}, nil
		}
		return nil, err
	}
	return &st, nil
}

// UpdateGamblingStats writes the full recomputed row.
func (s *Store) UpdateGamblingStats(ctx context.Context, q Querier, st *models.GamblingStats) error {
	_, err := q.Exec(ctx,
		`UPDATE player_gambling_stats
		 SET total_wagered = $2, total_won = $3, games_played = $4, games_won = $5,
		     current_streak = $6, best_streak = $7, biggest_win = $8, biggest_loss = $9,
		     updated_at = NOW()
		 WHERE user_id = $1`,
		st.UserID, st.TotalWagered, st.TotalWon, st.GamesPlayed, st.GamesWon,
		st.CurrentStreak, st.BestStreak, st.BiggestWin, st.BiggestLoss)
	return err
}

// ─── Jackpot pool ────────────────────────────────────────────────────────────

// GetJackpot reads the singleton pool without locking.
func (s *Store) GetJackpot(ctx context.Context, q Querier) (*models.JackpotPool, error) {
	var jp models.JackpotPool
	err := q.QueryRow(ctx,
		`SELECT id, current_pool, last_winner_id, last_win_amount, last_won_at
		 FROM slot_jackpots WHERE id = 1`).
		Scan(&jp.ID, &jp.CurrentPool, &jp.LastWinnerID, &jp.LastWinAmount, &jp.LastWonAt)
	if err != nil {
		return nil, err
	}
	return &jp, nil
}

// GetJackpotForUpdate locks the pool row; spins that can win it must hold
// the lock so two spins cannot pay the same pool.
func (s *Store) GetJackpotForUpdate(ctx context.Context, q Querier) (*models.JackpotPool, error) {
	var jp models.JackpotPool
	err := q.QueryRow(ctx,
		`SELECT id, current_pool, last_winner_id, last_win_amount, last_won_at
		 FROM slot_jackpots WHERE id = 1 FOR UPDATE`).
		Scan(&jp.ID, &jp.CurrentPool, &jp.LastWinnerID, &jp.LastWinAmount, &jp.LastWonAt)
	if err != nil {
		return nil, err
	}
	return &jp, nil
}

// AddToJackpot bumps the pool atomically and returns the new total.
func (s *Store) AddToJackpot(ctx context.Context, q Querier, amount int64) (models.Currency, error) {
	var pool int64
	err := q.QueryRow(ctx,
		`UPDATE slot_jackpots SET current_pool = current_pool + $1 WHERE id = 1
		 RETURNING current_pool`, amount).Scan(&pool)
	return models.Currency(pool), err
}

// ResetJackpot records a win and reseeds the pool.
func (s *Store) ResetJackpot(ctx context.Context, q Querier, winnerID int64, won models.Currency, base int64, now time.Time) error {
	_, err := q.Exec(ctx,
		`UPDATE slot_jackpots
		 SET current_pool = $3, last_winner_id = $1, last_win_amount = $2, last_won_at = $4
		 WHERE id = 1`, winnerID, int64(won), base, now)
	return err
}

// ReseedJackpot sets the pool back to its base without touching the
// last-winner record. Operator resets use this; wins use ResetJackpot.
func (s *Store) ReseedJackpot(ctx context.Context, q Querier, base int64) error {
	_, err := q.Exec(ctx,
		`UPDATE slot_jackpots SET current_pool = $1 WHERE id = 1`, base)
	return err
}
