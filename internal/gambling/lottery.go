package gambling

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// drawNumbers samples n unique numbers from [1, max], sorted ascending.
func drawNumbers(rng clock.RNG, n, max int) []int {
	pool := make([]int, max)
	for i := range pool {
		pool[i] = i + 1
	}
	for i := 0; i < n; i++ {
		j := i + rng.Intn(max-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	nums := append([]int(nil), pool[:n]...)
	sort.Ints(nums)
	return nums
}

// countMatches counts how many of a ticket's numbers appear in the winning
// set.
func countMatches(ticket, winning []int) int {
	hit := 0
	for _, t := range ticket {
		for _, w := range winning {
			if t == w {
				hit++
				break
			}
		}
	}
	return hit
}

// ticketPrize is the settlement decision for one ticket.
type ticketPrize struct {
	Ticket  *models.LotteryTicket
	Matches int
	Prize   int64
	Pool    bool
}

// settleTickets decides every payout for a draw. Tickets must arrive in
// ascending id order: the full pool pays the earliest full match only,
// partial matches pay fixed multiples of the ticket cost from the house.
func settleTickets(tickets []models.LotteryTicket, winning []int, pool int64, ticketCost, twoMul, oneMul int64) []ticketPrize {
	var prizes []ticketPrize
	poolPaid := false
	for i := range tickets {
		t := &tickets[i]
		matches := countMatches(t.Numbers, winning)
		var prize int64
		isPool := false
		switch {
		case matches == len(winning):
			if poolPaid {
				continue
			}
			poolPaid = true
			prize = pool
			isPool = true
		case matches == 2:
			prize = ticketCost * twoMul
		case matches == 1:
			prize = ticketCost * oneMul
		default:
			continue
		}
		if prize <= 0 {
			continue
		}
		prizes = append(prizes, ticketPrize{Ticket: t, Matches: matches, Prize: prize, Pool: isPool})
	}
	return prizes
}

// normalizeNumbers validates and sorts a picked number set.
func normalizeNumbers(numbers []int, n, max int) ([]int, error) {
	if len(numbers) != n {
		return nil, econerr.Newf(econerr.Validation, "BAD_NUMBERS", "pick exactly %d numbers", n)
	}
	seen := make(map[int]bool, n)
	for _, v := range numbers {
		if v < 1 || v > max {
			return nil, econerr.Newf(econerr.Validation, "BAD_NUMBERS", "numbers must be between 1 and %d", max)
		}
		if seen[v] {
			return nil, econerr.New(econerr.Validation, "BAD_NUMBERS", "numbers must be distinct")
		}
		seen[v] = true
	}
	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)
	return sorted, nil
}

// nextDrawAt returns the next occurrence of the configured draw hour.
func (s *Service) nextDrawAt(now time.Time) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.LotteryDrawHourUTC, 0, 0, 0, time.UTC)
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// EnsureOpenDraw returns the open draw, creating the next one if none
// exists. A racing create loses on the one-open-draw index and rereads.
func (s *Service) EnsureOpenDraw(ctx context.Context) (*models.LotteryDraw, error) {
	draw, err := s.store.GetOpenDraw(ctx, s.store.Pool())
	if err != nil {
		return nil, econerr.Wrap(err, "loading open draw")
	}
	if draw != nil {
		return draw, nil
	}
	drawAt := s.nextDrawAt(s.clock.Now())
	id, err := s.store.InsertDraw(ctx, s.store.Pool(), "daily", drawAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return s.store.GetOpenDraw(ctx, s.store.Pool())
		}
		return nil, econerr.Wrap(err, "opening draw")
	}
	s.log.Info("lottery draw opened", zap.Int64("draw_id", id), zap.Time("draw_at", drawAt))
	return &models.LotteryDraw{ID: id, DrawType: "daily", DrawAt: drawAt, Status: "open"}, nil
}

// TicketResult reports a purchased ticket.
type TicketResult struct {
	TicketID  int64           `json:"ticketId"`
	DrawID    int64           `json:"drawId"`
	Numbers   []int           `json:"numbers"`
	DrawAt    time.Time       `json:"drawAt"`
	PrizePool models.Currency `json:"prizePool"`
	NewWealth models.Currency `json:"newWealth"`
}

// LotteryBuyTicket sells one number set for the open draw. The draw row is
// locked before the user row, matching the executor's order.
func (s *Service) LotteryBuyTicket(ctx context.Context, userID int64, numbers []int) (*TicketResult, error) {
	picked, err := normalizeNumbers(numbers, s.cfg.LotteryNumbers, s.cfg.LotteryMaxNumber)
	if err != nil {
		return nil, err
	}
	if _, err := s.EnsureOpenDraw(ctx); err != nil {
		return nil, err
	}
	var res TicketResult
	err = s.store.WithTx(ctx, func(tx pgx.Tx) error {
		draw, err := s.store.GetOpenDrawForUpdate(ctx, tx)
		if err != nil {
			return econerr.Wrap(err, "locking draw")
		}
		if draw == nil {
			return econerr.New(econerr.Expired, "DRAW_CLOSED", "no draw is open right now")
		}
		user, err := s.lockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := s.cooldowns.RequireNotJailed(ctx, tx, userID); err != nil {
			return err
		}
		cost := s.cfg.LotteryTicketCost
		if user.Wealth < cost {
			return econerr.New(econerr.Insufficient, econerr.CodeInsufficientWealth, "not enough wealth for a ticket")
		}
		n, err := s.store.CountTickets(ctx, tx, draw.ID, userID)
		if err != nil {
			return econerr.Wrap(err, "counting tickets")
		}
		if n >= s.cfg.LotteryMaxTickets {
			return econerr.Newf(econerr.Policy, "TICKET_LIMIT", "at most %d tickets per draw", s.cfg.LotteryMaxTickets)
		}
		ticketID, err := s.store.InsertTicket(ctx, tx, draw.ID, userID, picked)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return econerr.New(econerr.Conflict, "DUPLICATE_TICKET", "you already hold that number set")
			}
			return econerr.Wrap(err, "inserting ticket")
		}
		wealth, err := s.store.CreditWealth(ctx, tx, userID, -cost)
		if err != nil {
			return econerr.Wrap(err, "debiting ticket")
		}
		contribution := int64(math.Floor(float64(cost) * (1 - s.cfg.LotteryHouseCut)))
		pool, err := s.store.AddToPrizePool(ctx, tx, draw.ID, contribution)
		if err != nil {
			return econerr.Wrap(err, "feeding prize pool")
		}
		now := s.clock.Now()
		if _, err := s.store.InsertGamblingSession(ctx, tx, &models.GamblingSession{
			UserID:     userID,
			Game:       models.GameLottery,
			Wager:      models.Currency(cost),
			Outcome:    "ticket",
			ResolvedAt: &now,
		}); err != nil {
			return econerr.Wrap(err, "recording ticket")
		}
		if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
			UserID:       userID,
			EventType:    "lottery_ticket",
			WealthChange: models.Currency(-cost),
			Success:      true,
			Description:  fmt.Sprintf("lottery ticket %v for draw %d", picked, draw.ID),
		}); err != nil {
			return econerr.Wrap(err, "recording ticket event")
		}

		res.TicketID = ticketID
		res.DrawID = draw.ID
		res.Numbers = picked
		res.DrawAt = draw.DrawAt
		res.PrizePool = pool
		res.NewWealth = wealth
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// LotteryPrize is one winning ticket's payout.
type LotteryPrize struct {
	TicketID int64           `json:"ticketId"`
	UserID   int64           `json:"userId"`
	Matches  int             `json:"matches"`
	Prize    models.Currency `json:"prize"`
}

// DrawResult reports an executed draw.
type DrawResult struct {
	DrawID      int64           `json:"drawId"`
	Winning     []int           `json:"winningNumbers"`
	TicketCount int             `json:"ticketCount"`
	PoolPaid    models.Currency `json:"poolPaid"`
	Prizes      []LotteryPrize  `json:"prizes,omitempty"`
	Intents     []models.Intent `json:"-"`
}

// ExecuteDraw settles one draw: rolls the winning numbers, pays the full
// pool to the earliest full-match ticket, and partial prizes from the
// house. Runs in one transaction holding the draw row.
func (s *Service) ExecuteDraw(ctx context.Context, drawID int64) (*DrawResult, error) {
	var res DrawResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		draw, err := s.store.GetDrawForUpdate(ctx, tx, drawID)
		if err != nil {
			if db.IsNoRows(err) {
				return econerr.New(econerr.NotFound, "DRAW_NOT_FOUND", "no such draw")
			}
			return econerr.Wrap(err, "locking draw")
		}
		if draw.Status != "open" {
			return econerr.New(econerr.Conflict, "DRAW_CLOSED", "draw was already executed")
		}
		now := s.clock.Now()
		winning := drawNumbers(s.rng, s.cfg.LotteryNumbers, s.cfg.LotteryMaxNumber)
		ok, err := s.store.CompleteDraw(ctx, tx, drawID, winning, now)
		if err != nil {
			return econerr.Wrap(err, "completing draw")
		}
		if !ok {
			return econerr.New(econerr.Conflict, econerr.CodeContention, "draw was executed concurrently")
		}
		tickets, err := s.store.ListTicketsByDraw(ctx, tx, drawID)
		if err != nil {
			return econerr.Wrap(err, "listing tickets")
		}

		res.DrawID = drawID
		res.Winning = winning
		res.TicketCount = len(tickets)

		// Tickets are listed in ascending id, so the pool pays the
		// earliest full match.
		prizes := settleTickets(tickets, winning, int64(draw.PrizePool),
			s.cfg.LotteryTicketCost, s.cfg.LotteryTwoMatchMul, s.cfg.LotteryOneMatchMul)
		for _, p := range prizes {
			outcome := "win_partial"
			if p.Pool {
				outcome = "win_pool"
				res.PoolPaid = models.Currency(p.Prize)
			}
			if _, err := s.store.CreditWealth(ctx, tx, p.Ticket.UserID, p.Prize); err != nil {
				return econerr.Wrap(err, "paying prize")
			}
			if _, err := s.store.InsertGamblingSession(ctx, tx, &models.GamblingSession{
				UserID:     p.Ticket.UserID,
				Game:       models.GameLottery,
				Payout:     models.Currency(p.Prize),
				Outcome:    outcome,
				ResolvedAt: &now,
			}); err != nil {
				return econerr.Wrap(err, "recording prize")
			}
			if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
				UserID:       p.Ticket.UserID,
				EventType:    "lottery_win",
				WealthChange: models.Currency(p.Prize),
				Success:      true,
				Description:  fmt.Sprintf("lottery draw %d: %d matches paid %d", drawID, p.Matches, p.Prize),
			}); err != nil {
				return econerr.Wrap(err, "recording win event")
			}
			res.Prizes = append(res.Prizes, LotteryPrize{
				TicketID: p.Ticket.ID, UserID: p.Ticket.UserID, Matches: p.Matches, Prize: models.Currency(p.Prize),
			})
			res.Intents = append(res.Intents, models.Intent{
				Kind:    models.IntentLotteryResult,
				UserID:  p.Ticket.UserID,
				Title:   "Lottery win",
				Message: fmt.Sprintf("your ticket %v matched %d numbers for %d", p.Ticket.Numbers, p.Matches, p.Prize),
				Data:    map[string]any{"drawId": drawID, "matches": p.Matches, "prize": p.Prize},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Intents = append(res.Intents, models.Intent{
		Kind:    models.IntentChat,
		Message: fmt.Sprintf("lottery draw %d: numbers %v, %d tickets, %d winners", res.DrawID, res.Winning, res.TicketCount, len(res.Prizes)),
	})
	return &res, nil
}

// ExecuteDueDraws runs any draw past its draw time and opens the next one.
// Called by the scheduler every minute.
func (s *Service) ExecuteDueDraws(ctx context.Context) (*DrawResult, error) {
	draw, err := s.store.GetOpenDraw(ctx, s.store.Pool())
	if err != nil {
		return nil, econerr.Wrap(err, "loading open draw")
	}
	if draw == nil {
		_, err := s.EnsureOpenDraw(ctx)
		return nil, err
	}
	if draw.DrawAt.After(s.clock.Now()) {
		return nil, nil
	}
	res, err := s.ExecuteDraw(ctx, draw.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.EnsureOpenDraw(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// CurrentDraw returns the open draw and the caller's tickets in it.
func (s *Service) CurrentDraw(ctx context.Context, userID int64) (*models.LotteryDraw, []models.LotteryTicket, error) {
	draw, err := s.EnsureOpenDraw(ctx)
	if err != nil {
		return nil, nil, err
	}
	tickets, err := s.store.ListUserTickets(ctx, s.store.Pool(), draw.ID, userID)
	if err != nil {
		return nil, nil, econerr.Wrap(err, "listing tickets")
	}
	return draw, tickets, nil
}
