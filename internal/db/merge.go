package db

import (
	"context"
	"time"
)

// ReassignInventory moves every owned item, clearing equip state so the
// primary's slot uniqueness cannot be violated.
func (s *Store) ReassignInventory(ctx context.Context, q Querier, fromID, toID int64) (int64, error) {
	tag, err := q.Exec(ctx,
		`UPDATE inventory
		 SET user_id = $2, is_equipped = FALSE, slot = NULL
		 WHERE user_id = $1`, fromID, toID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MergeAchievements folds the secondary's counters into the primary with
// max(progress) and OR(is_completed), then clears the secondary's rows.
func (s *Store) MergeAchievements(ctx context.Context, q Querier, fromID, toID int64) error {
	_, err := q.Exec(ctx,
		`INSERT INTO user_achievements (user_id, achievement_key, progress, is_completed, completed_at)
		 SELECT $2, achievement_key, progress, is_completed, completed_at
		 FROM user_achievements WHERE user_id = $1
		 ON CONFLICT (user_id, achievement_key) DO UPDATE SET
		   progress = GREATEST(user_achievements.progress, EXCLUDED.progress),
		   is_completed = user_achievements.is_completed OR EXCLUDED.is_completed,
		   completed_at = COALESCE(user_achievements.completed_at, EXCLUDED.completed_at)`,
		fromID, toID)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `DELETE FROM user_achievements WHERE user_id = $1`, fromID)
	return err
}

// MergeTitles transfers titles, keeping one copy of duplicates.
func (s *Store) MergeTitles(ctx context.Context, q Querier, fromID, toID int64) error {
	_, err := q.Exec(ctx,
		`INSERT INTO user_titles (user_id, title_key, earned_at)
		 SELECT $2, title_key, earned_at FROM user_titles WHERE user_id = $1
		 ON CONFLICT (user_id, title_key) DO NOTHING`, fromID, toID)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `DELETE FROM user_titles WHERE user_id = $1`, fromID)
	return err
}

// MergeConsumableStock sums quantities per consumable, then clears the
// secondary's stock. Sums may exceed max_owned; the cap binds purchases,
// not holdings.
func (s *Store) MergeConsumableStock(ctx context.Context, q Querier, fromID, toID int64) error {
	_, err := q.Exec(ctx,
		`INSERT INTO user_consumables (user_id, consumable_id, quantity)
		 SELECT $2, consumable_id, quantity FROM user_consumables WHERE user_id = $1
		 ON CONFLICT (user_id, consumable_id) DO UPDATE SET
		   quantity = user_consumables.quantity + EXCLUDED.quantity,
		   updated_at = NOW()`, fromID, toID)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `DELETE FROM user_consumables WHERE user_id = $1`, fromID)
	return err
}

// MergeGamblingStats folds lifetime records: sums for volumes, max for
// bests, primary's current streak kept.
func (s *Store) MergeGamblingStats(ctx context.Context, q Querier, fromID, toID int64) error {
	_, err := q.Exec(ctx,
		`INSERT INTO player_gambling_stats
		   (user_id, total_wagered, total_won, games_played, games_won,
		    current_streak, best_streak, biggest_win, biggest_loss)
		 SELECT $2, total_wagered, total_won, games_played, games_won,
		        0, best_streak, biggest_win, biggest_loss
		 FROM player_gambling_stats WHERE user_id = $1
		 ON CONFLICT (user_id) DO UPDATE SET
		   total_wagered = player_gambling_stats.total_wagered + EXCLUDED.total_wagered,
		   total_won     = player_gambling_stats.total_won + EXCLUDED.total_won,
		   games_played  = player_gambling_stats.games_played + EXCLUDED.games_played,
		   games_won     = player_gambling_stats.games_won + EXCLUDED.games_won,
		   best_streak   = GREATEST(player_gambling_stats.best_streak, EXCLUDED.best_streak),
		   biggest_win   = GREATEST(player_gambling_stats.biggest_win, EXCLUDED.biggest_win),
		   biggest_loss  = GREATEST(player_gambling_stats.biggest_loss, EXCLUDED.biggest_loss),
		   updated_at    = NOW()`, fromID, toID)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `DELETE FROM player_gambling_stats WHERE user_id = $1`, fromID)
	return err
}

// MergeLifetimeCounters folds the secondary's lifetime counters into the
// primary: counts add, the check-in streak keeps the better run.
func (s *Store) MergeLifetimeCounters(ctx context.Context, q Querier, toID int64, playCount, wins, losses int64, streak int) error {
	_, err := q.Exec(ctx,
		`UPDATE users
		 SET total_play_count = total_play_count + $2,
		     wins = wins + $3,
		     losses = losses + $4,
		     checkin_streak = GREATEST(checkin_streak, $5)
		 WHERE id = $1`, toID, playCount, wins, losses, streak)
	return err
}

// ReassignHistories repoints append-only rows (events, ledgers, sessions,
// revenue, purchases, tickets) at the primary account.
func (s *Store) ReassignHistories(ctx context.Context, q Querier, fromID, toID int64) error {
	stmts := []string{
		`UPDATE game_events SET user_id = $2 WHERE user_id = $1`,
		`UPDATE token_transactions SET user_id = $2 WHERE user_id = $1`,
		`UPDATE bond_transactions SET user_id = $2 WHERE user_id = $1`,
		`UPDATE gambling_sessions SET user_id = $2 WHERE user_id = $1`,
		`UPDATE business_revenue_history SET user_id = $2 WHERE user_id = $1`,
		`UPDATE consumable_purchases SET user_id = $2 WHERE user_id = $1`,
		`UPDATE lottery_tickets SET user_id = $2 WHERE user_id = $1`,
	}
	for _, stmt := range stmts {
		if _, err := q.Exec(ctx, stmt, fromID, toID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTransientRows drops the secondary's missions, cooldowns, buffs,
// notifications and shop. Transient state does not survive a merge.
func (s *Store) DeleteTransientRows(ctx context.Context, q Querier, userID int64) error {
	stmts := []string{
		`DELETE FROM user_missions WHERE user_id = $1`,
		`DELETE FROM cooldowns WHERE user_id = $1`,
		`DELETE FROM active_buffs WHERE user_id = $1`,
		`DELETE FROM user_notifications WHERE user_id = $1`,
		`DELETE FROM user_shop_offers WHERE user_id = $1`,
	}
	for _, stmt := range stmts {
		if _, err := q.Exec(ctx, stmt, userID); err != nil {
			return err
		}
	}
	return nil
}

// TombstoneUser marks the secondary merged and zeroes its balances. The row
// is kept for audit; command paths refuse merged users.
func (s *Store) TombstoneUser(ctx context.Context, q Querier, userID, intoID int64, audit []byte, now time.Time) error {
	_, err := q.Exec(ctx,
		`UPDATE users
		 SET merged_into_user_id = $2, merged_at = $3, merge_audit = $4,
		     wealth = 0, xp = 0, tokens = 0, tokens_earned_today = 0, bonds = 0
		 WHERE id = $1`, userID, intoID, audit, now)
	return err
}
