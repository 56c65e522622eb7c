package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/grindcity/economy-engine/pkg/models"
)

const userColumns = `id, username, kick_id, twitch_id, discord_id, wealth, xp, level, status_tier,
	tokens, tokens_earned_today, last_token_reset, bonds, last_bond_conversion,
	checkin_streak, last_checkin_at, total_play_count, wins, losses, faction_id,
	is_banned, merged_into_user_id, merged_at, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Username, &u.KickID, &u.TwitchID, &u.DiscordID,
		&u.Wealth, &u.XP, &u.Level, &u.StatusTier,
		&u.Tokens, &u.TokensEarnedToday, &u.LastTokenReset,
		&u.Bonds, &u.LastBondConversion,
		&u.CheckinStreak, &u.LastCheckinAt,
		&u.TotalPlayCount, &u.Wins, &u.Losses, &u.FactionID,
		&u.IsBanned, &u.MergedIntoUserID, &u.MergedAt, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// platformColumn maps an identity platform onto its users column. Platforms
// are validated at the API boundary; anything else is a programming error.
func platformColumn(platform models.Platform) (string, error) {
	switch platform {
	case models.PlatformKick:
		return "kick_id", nil
	case models.PlatformTwitch:
		return "twitch_id", nil
	case models.PlatformDiscord:
		return "discord_id", nil
	}
	return "", fmt.Errorf("unknown platform %q", platform)
}

// CreateUser inserts a fresh account bound to one platform identity.
func (s *Store) CreateUser(ctx context.Context, q Querier, platform models.Platform, platformID, username string) (*models.User, error) {
	col, err := platformColumn(platform)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(`INSERT INTO users (username, %s) VALUES ($1, $2) RETURNING `+userColumns, col)
	return scanUser(q.QueryRow(ctx, sql, username, platformID))
}

// GetUserByID fetches a user without locking.
func (s *Store) GetUserByID(ctx context.Context, q Querier, id int64) (*models.User, error) {
	return scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUserForUpdate fetches a user with a row lock. Commands that mutate
// balances lock first so concurrent spends serialize on the row.
func (s *Store) GetUserForUpdate(ctx context.Context, q Querier, id int64) (*models.User, error) {
	return scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

// GetUserByPlatformID resolves a platform identity to its account.
func (s *Store) GetUserByPlatformID(ctx context.Context, q Querier, platform models.Platform, platformID string) (*models.User, error) {
	col, err := platformColumn(platform)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(`SELECT `+userColumns+` FROM users WHERE %s = $1`, col)
	return scanUser(q.QueryRow(ctx, sql, platformID))
}

// GetUserByUsername resolves a display name to the oldest live account
// carrying it. Tombstoned accounts never match.
func (s *Store) GetUserByUsername(ctx context.Context, q Querier, username string) (*models.User, error) {
	return scanUser(q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE LOWER(username) = LOWER($1) AND merged_into_user_id IS NULL
		 ORDER BY id LIMIT 1`, username))
}

// LinkPlatformID attaches an additional platform identity to an account.
func (s *Store) LinkPlatformID(ctx context.Context, q Querier, userID int64, platform models.Platform, platformID string) error {
	col, err := platformColumn(platform)
	if err != nil {
		return err
	}
	sql := fmt.Sprintf(`UPDATE users SET %s = $2 WHERE id = $1`, col)
	_, err = q.Exec(ctx, sql, userID, platformID)
	return err
}

// ClearPlatformID detaches a platform identity, used when moving identities
// between accounts during a merge.
func (s *Store) ClearPlatformID(ctx context.Context, q Querier, userID int64, platform models.Platform) error {
	col, err := platformColumn(platform)
	if err != nil {
		return err
	}
	sql := fmt.Sprintf(`UPDATE users SET %s = NULL WHERE id = $1`, col)
	_, err = q.Exec(ctx, sql, userID)
	return err
}

// UpdateUsername refreshes the display name seen on the wire.
func (s *Store) UpdateUsername(ctx context.Context, q Querier, userID int64, username string) error {
	_, err := q.Exec(ctx, `UPDATE users SET username = $2 WHERE id = $1`, userID, username)
	return err
}

// SetProgress writes wealth, xp, level and tier together. Callers hold the
// row lock and have already computed the new values.
func (s *Store) SetProgress(ctx context.Context, q Querier, userID int64, wealth models.Currency, xp int64, level int, tier models.Tier) error {
	_, err := q.Exec(ctx,
		`UPDATE users SET wealth = $2, xp = $3, level = $4, status_tier = $5 WHERE id = $1`,
		userID, int64(wealth), xp, level, string(tier))
	return err
}

// SetWealth writes an absolute balance under an already-held row lock.
func (s *Store) SetWealth(ctx context.Context, q Querier, userID int64, wealth models.Currency) error {
	_, err := q.Exec(ctx, `UPDATE users SET wealth = $2 WHERE id = $1`, userID, int64(wealth))
	return err
}

// CreditWealth atomically adds delta without a prior lock. Negative deltas
// clamp at zero, for scheduler paths that charge upkeep.
func (s *Store) CreditWealth(ctx context.Context, q Querier, userID int64, delta int64) (models.Currency, error) {
	var wealth int64
	err := q.QueryRow(ctx,
		`UPDATE users SET wealth = GREATEST(0, wealth + $2) WHERE id = $1 RETURNING wealth`,
		userID, delta).Scan(&wealth)
	return models.Currency(wealth), err
}

// IncrementPlayStats bumps lifetime play counters after a round resolves.
func (s *Store) IncrementPlayStats(ctx context.Context, q Querier, userID int64, won bool) error {
	if won {
		_, err := q.Exec(ctx,
			`UPDATE users SET total_play_count = total_play_count + 1, wins = wins + 1 WHERE id = $1`, userID)
		return err
	}
	_, err := q.Exec(ctx,
		`UPDATE users SET total_play_count = total_play_count + 1, losses = losses + 1 WHERE id = $1`, userID)
	return err
}

// SetTokens writes the token balance and daily-earned counter together.
func (s *Store) SetTokens(ctx context.Context, q Querier, userID int64, tokens, earnedToday int) error {
	_, err := q.Exec(ctx,
		`UPDATE users SET tokens = $2, tokens_earned_today = $3 WHERE id = $1`,
		userID, tokens, earnedToday)
	return err
}

// SetBonds writes the bond balance and stamps the conversion time.
func (s *Store) SetBonds(ctx context.Context, q Querier, userID int64, bonds int64, convertedAt time.Time) error {
	_, err := q.Exec(ctx,
		`UPDATE users SET bonds = $2, last_bond_conversion = $3 WHERE id = $1`,
		userID, bonds, convertedAt)
	return err
}

// AdjustBonds atomically adds delta bonds for paths without a row lock.
func (s *Store) AdjustBonds(ctx context.Context, q Querier, userID int64, delta int64) error {
	_, err := q.Exec(ctx,
		`UPDATE users SET bonds = GREATEST(0, bonds + $2) WHERE id = $1`, userID, delta)
	return err
}

// SetCheckin records a daily check-in.
func (s *Store) SetCheckin(ctx context.Context, q Querier, userID int64, streak int, at time.Time) error {
	_, err := q.Exec(ctx,
		`UPDATE users SET checkin_streak = $2, last_checkin_at = $3 WHERE id = $1`,
		userID, streak, at)
	return err
}

// SetFaction assigns faction membership, nil leaves the faction.
func (s *Store) SetFaction(ctx context.Context, q Querier, userID int64, factionID *int64) error {
	_, err := q.Exec(ctx, `UPDATE users SET faction_id = $2 WHERE id = $1`, userID, factionID)
	return err
}

// SetBanned flips the moderation flag.
func (s *Store) SetBanned(ctx context.Context, q Querier, userID int64, banned bool) error {
	_, err := q.Exec(ctx, `UPDATE users SET is_banned = $2 WHERE id = $1`, userID, banned)
	return err
}

// GetFaction loads one faction row.
func (s *Store) GetFaction(ctx context.Context, q Querier, id int64) (*models.Faction, error) {
	var f models.Faction
	err := q.QueryRow(ctx,
		`SELECT id, name, rob_bonus, defense_bonus FROM factions WHERE id = $1`, id).
		Scan(&f.ID, &f.Name, &f.RobBonus, &f.DefenseBonus)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFactions returns the roster of joinable factions.
func (s *Store) ListFactions(ctx context.Context, q Querier) ([]models.Faction, error) {
	rows, err := q.Query(ctx, `SELECT id, name, rob_bonus, defense_bonus FROM factions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Faction
	for rows.Next() {
		var f models.Faction
		if err := rows.Scan(&f.ID, &f.Name, &f.RobBonus, &f.DefenseBonus); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// TopByWealth returns the live-account leaderboard.
func (s *Store) TopByWealth(ctx context.Context, q Querier, limit int) ([]models.User, error) {
	rows, err := q.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE merged_into_user_id IS NULL AND NOT is_banned
		 ORDER BY wealth DESC, id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
