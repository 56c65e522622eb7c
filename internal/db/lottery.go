package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/grindcity/economy-engine/pkg/models"
)

const lotteryDrawColumns = `id, draw_type, draw_at, status, prize_pool, winning_numbers, completed_at`

func scanLotteryDraw(row pgx.Row) (*models.LotteryDraw, error) {
	var d models.LotteryDraw
	err := row.Scan(&d.ID, &d.DrawType, &d.DrawAt, &d.Status, &d.PrizePool,
		&d.WinningNumbers, &d.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetOpenDraw returns the current open draw, or nil when none exists.
func (s *Store) GetOpenDraw(ctx context.Context, q Querier) (*models.LotteryDraw, error) {
	d, err := scanLotteryDraw(q.QueryRow(ctx,
		`SELECT `+lotteryDrawColumns+` FROM lottery_draws
		 WHERE status = 'open' ORDER BY draw_at LIMIT 1`))
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// GetOpenDrawForUpdate locks the open draw row for ticket purchase or
// execution, so pool contributions and the draw cannot interleave.
func (s *Store) GetOpenDrawForUpdate(ctx context.Context, q Querier) (*models.LotteryDraw, error) {
	d, err := scanLotteryDraw(q.QueryRow(ctx,
		`SELECT `+lotteryDrawColumns+` FROM lottery_draws
		 WHERE status = 'open' ORDER BY draw_at LIMIT 1 FOR UPDATE`))
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// InsertDraw schedules a new drawing.
func (s *Store) InsertDraw(ctx context.Context, q Querier, drawType string, drawAt time.Time) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO lottery_draws (draw_type, draw_at) VALUES ($1, $2) RETURNING id`,
		drawType, drawAt).Scan(&id)
	return id, err
}

// AddToPrizePool adds the house-cut remainder of a ticket to the pool and
// returns the new total.
func (s *Store) AddToPrizePool(ctx context.Context, q Querier, drawID, amount int64) (models.Currency, error) {
	var pool int64
	err := q.QueryRow(ctx,
		`UPDATE lottery_draws SET prize_pool = prize_pool + $2 WHERE id = $1
		 RETURNING prize_pool`, drawID, amount).Scan(&pool)
	return models.Currency(pool), err
}

// CompleteDraw transitions open → completed with the winning numbers,
// guarded on status so a force-draw and the scheduler cannot both settle.
func (s *Store) CompleteDraw(ctx context.Context, q Querier, drawID int64, winning []int, now time.Time) (bool, error) {
	tag, err := q.Exec(ctx,
		`UPDATE lottery_draws
		 SET status = 'completed', winning_numbers = $2, completed_at = $3
		 WHERE id = $1 AND status = 'open'`, drawID, winning, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CountTickets returns how many tickets the user holds in a draw.
func (s *Store) CountTickets(ctx context.Context, q Querier, drawID, userID int64) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM lottery_tickets WHERE draw_id = $1 AND user_id = $2`,
		drawID, userID).Scan(&n)
	return n, err
}

// InsertTicket stores one number set. The (draw, user, numbers) unique
// constraint rejects duplicate sets; callers map it to Conflict.
func (s *Store) InsertTicket(ctx context.Context, q Querier, drawID, userID int64, numbers []int) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO lottery_tickets (draw_id, user_id, numbers)
		 VALUES ($1, $2, $3) RETURNING id`, drawID, userID, numbers).Scan(&id)
	return id, err
}

// ListTicketsByDraw returns every ticket in ascending ticket id, the order
// the tiebreak rule depends on.
func (s *Store) ListTicketsByDraw(ctx context.Context, q Querier, drawID int64) ([]models.LotteryTicket, error) {
	rows, err := q.Query(ctx,
		`SELECT id, draw_id, user_id, numbers, bought_at
		 FROM lottery_tickets WHERE draw_id = $1 ORDER BY id`, drawID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LotteryTicket
	for rows.Next() {
		var t models.LotteryTicket
		if err := rows.Scan(&t.ID, &t.DrawID, &t.UserID, &t.Numbers, &t.BoughtAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListUserTickets returns the caller's tickets in a draw.
func (s *Store) ListUserTickets(ctx context.Context, q Querier, drawID, userID int64) ([]models.LotteryTicket, error) {
	rows, err := q.Query(ctx,
		`SELECT id, draw_id, user_id, numbers, bought_at
		 FROM lottery_tickets WHERE draw_id = $1 AND user_id = $2 ORDER BY id`,
		drawID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LotteryTicket
	for rows.Next() {
		var t models.LotteryTicket
		if err := rows.Scan(&t.ID, &t.DrawID, &t.UserID, &t.Numbers, &t.BoughtAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetDraw loads one draw by id.
func (s *Store) GetDraw(ctx context.Context, q Querier, id int64) (*models.LotteryDraw, error) {
	return scanLotteryDraw(q.QueryRow(ctx,
		`SELECT `+lotteryDrawColumns+` FROM lottery_draws WHERE id = $1`, id))
}

// GetDrawForUpdate locks one draw by id for execution.
func (s *Store) GetDrawForUpdate(ctx context.Context, q Querier, id int64) (*models.LotteryDraw, error) {
	return scanLotteryDraw(q.QueryRow(ctx,
		`SELECT `+lotteryDrawColumns+` FROM lottery_draws WHERE id = $1 FOR UPDATE`, id))
}
