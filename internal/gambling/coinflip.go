package gambling

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// CoinFlipResult reports a created or settled challenge.
type CoinFlipResult struct {
	ChallengeID int64           `json:"challengeId"`
	Wager       models.Currency `json:"wager"`
	Call        string          `json:"call,omitempty"`
	Landed      string          `json:"landed,omitempty"`
	WinnerID    int64           `json:"winnerId,omitempty"`
	Winnings    models.Currency `json:"winnings,omitempty"`
	ExpiresAt   time.Time       `json:"expiresAt,omitempty"`
	NewWealth   models.Currency `json:"newWealth"`
	Intents     []models.Intent `json:"-"`
}

// CoinFlipCreate opens a challenge, escrowing the challenger's stake. One
// open challenge per challenger.
func (s *Service) CoinFlipCreate(ctx context.Context, userID, wager int64, call string) (*CoinFlipResult, error) {
	if call != "heads" && call != "tails" {
		return nil, econerr.New(econerr.Validation, "BAD_CALL", "call heads or tails")
	}
	var res CoinFlipResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		user, err := s.lockGambler(ctx, tx, userID, wager)
		if err != nil {
			return err
		}
		if open, err := s.store.GetOpenCoinFlipByChallenger(ctx, tx, userID); err != nil {
			return econerr.Wrap(err, "checking open challenge")
		} else if open != nil {
			return econerr.New(econerr.Conflict, "OPEN_CHALLENGE_EXISTS", "you already have an open challenge")
		}
		wealth, err := s.store.CreditWealth(ctx, tx, userID, -wager)
		if err != nil {
			return econerr.Wrap(err, "escrowing stake")
		}
		expires := s.clock.Now().Add(time.Duration(s.cfg.CoinFlipTTLMin) * time.Minute)
		id, err := s.store.InsertCoinFlip(ctx, tx, userID, models.Currency(wager), call, expires)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return econerr.New(econerr.Conflict, "OPEN_CHALLENGE_EXISTS", "you already have an open challenge")
			}
			return econerr.Wrap(err, "creating challenge")
		}

		res.ChallengeID = id
		res.Wager = models.Currency(wager)
		res.Call = call
		res.ExpiresAt = expires
		res.NewWealth = wealth
		res.Intents = append(res.Intents, models.Intent{
			Kind:    models.IntentChat,
			UserID:  userID,
			Message: fmt.Sprintf("%s put up %d on %s, who's in?", user.Username, wager, call),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CoinFlipAccept settles an open challenge against the acceptor. The
// challenge row is locked first, then both user rows in ascending id, so a
// concurrent accept, cancel or sweep settles exactly once.
func (s *Service) CoinFlipAccept(ctx context.Context, acceptorID, challengeID int64) (*CoinFlipResult, error) {
	var res CoinFlipResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		ch, err := s.store.GetCoinFlipForUpdate(ctx, tx, challengeID)
		if err != nil {
			if db.IsNoRows(err) {
				return econerr.New(econerr.NotFound, "CHALLENGE_NOT_FOUND", "no such challenge")
			}
			return econerr.Wrap(err, "locking challenge")
		}
		if ch.Status != models.FlipOpen {
			return econerr.New(econerr.Conflict, "CHALLENGE_NOT_OPEN", "challenge was already settled")
		}
		now := s.clock.Now()
		if !ch.ExpiresAt.After(now) {
			return econerr.New(econerr.Expired, "CHALLENGE_EXPIRED", "challenge has expired")
		}
		if ch.ChallengerID == acceptorID {
			return econerr.New(econerr.Validation, "SELF_ACCEPT", "you cannot accept your own challenge")
		}

		wager := int64(ch.WagerAmount)
		challenger, acceptor, err := s.lockFlipPair(ctx, tx, ch.ChallengerID, acceptorID)
		if err != nil {
			return err
		}
		if err := s.cooldowns.RequireNotJailed(ctx, tx, acceptorID); err != nil {
			return err
		}
		if acceptor.Wealth < wager {
			return econerr.New(econerr.Insufficient, econerr.CodeInsufficientWealth, "not enough wealth to match the stake")
		}
		acceptorWealth, err := s.store.CreditWealth(ctx, tx, acceptorID, -wager)
		if err != nil {
			return econerr.Wrap(err, "debiting acceptor")
		}

		landed := "tails"
		if s.rng.Float64() < 0.5 {
			landed = "heads"
		}
		winner, loser := acceptor, challenger
		if landed == ch.ChallengerCall {
			winner, loser = challenger, acceptor
		}
		ok, err := s.store.ResolveCoinFlip(ctx, tx, challengeID, acceptorID, winner.ID, now)
		if err != nil {
			return econerr.Wrap(err, "resolving challenge")
		}
		if !ok {
			return econerr.New(econerr.Conflict, econerr.CodeContention, "challenge was settled by someone else")
		}
		winnings := wager * 2
		winnerWealth, err := s.store.CreditWealth(ctx, tx, winner.ID, winnings)
		if err != nil {
			return econerr.Wrap(err, "paying winner")
		}

		for _, p := range []struct {
			user   *models.User
			payout int64
		}{{winner, winnings}, {loser, 0}} {
			outcome := "win"
			if p.payout == 0 {
				outcome = "loss"
			}
			if _, err := s.store.InsertGamblingSession(ctx, tx, &models.GamblingSession{
				UserID:     p.user.ID,
				Game:       models.GameCoinFlip,
				Wager:      ch.WagerAmount,
				Payout:     models.Currency(p.payout),
				Outcome:    outcome,
				ResolvedAt: &now,
			}); err != nil {
				return econerr.Wrap(err, "recording flip")
			}
			if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
				UserID:       p.user.ID,
				EventType:    "coinflip",
				WealthChange: models.Currency(p.payout - wager),
				Success:      p.payout > 0,
				Description:  fmt.Sprintf("coin landed %s vs %s", landed, otherName(p.user, challenger, acceptor)),
			}); err != nil {
				return econerr.Wrap(err, "recording flip event")
			}
			if err := s.settle(ctx, tx, p.user, wager, p.payout); err != nil {
				return err
			}
		}

		res.ChallengeID = challengeID
		res.Wager = ch.WagerAmount
		res.Landed = landed
		res.WinnerID = winner.ID
		res.Winnings = models.Currency(winnings)
		if winner.ID == acceptorID {
			res.NewWealth = winnerWealth
		} else {
			res.NewWealth = acceptorWealth
		}
		res.Intents = append(res.Intents, models.Intent{
			Kind:    models.IntentChat,
			UserID:  winner.ID,
			Message: fmt.Sprintf("coin landed %s: %s takes %d from %s!", landed, winner.Username, winnings, loser.Username),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// otherName returns the counterparty's username for the event line.
func otherName(u, challenger, acceptor *models.User) string {
	if u.ID == challenger.ID {
		return acceptor.Username
	}
	return challenger.Username
}

// lockFlipPair locks challenger and acceptor in ascending id order. The
// acceptor gets the live-account checks; the challenger's stake is already
// escrowed, so a jailed or banned challenger still settles.
func (s *Service) lockFlipPair(ctx context.Context, tx pgx.Tx, challengerID, acceptorID int64) (challenger, acceptor *models.User, err error) {
	lockChallenger := func() error {
		challenger, err = s.store.GetUserForUpdate(ctx, tx, challengerID)
		if err != nil {
			return econerr.Wrap(err, "locking challenger")
		}
		return nil
	}
	if challengerID < acceptorID {
		if err := lockChallenger(); err != nil {
			return nil, nil, err
		}
		if acceptor, err = s.lockUser(ctx, tx, acceptorID); err != nil {
			return nil, nil, err
		}
		return challenger, acceptor, nil
	}
	if acceptor, err = s.lockUser(ctx, tx, acceptorID); err != nil {
		return nil, nil, err
	}
	if err := lockChallenger(); err != nil {
		return nil, nil, err
	}
	return challenger, acceptor, nil
}

// CoinFlipCancel withdraws the caller's open challenge and refunds the
// stake.
func (s *Service) CoinFlipCancel(ctx context.Context, userID int64) (*CoinFlipResult, error) {
	var res CoinFlipResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		ch, err := s.store.GetOpenCoinFlipByChallenger(ctx, tx, userID)
		if err != nil {
			return econerr.Wrap(err, "loading challenge")
		}
		if ch == nil {
			return econerr.New(econerr.NotFound, "NO_OPEN_CHALLENGE", "you have no open challenge")
		}
		now := s.clock.Now()
		ok, err := s.store.CloseCoinFlip(ctx, tx, ch.ID, models.FlipCancelled, now)
		if err != nil {
			return econerr.Wrap(err, "cancelling challenge")
		}
		if !ok {
			return econerr.New(econerr.Conflict, econerr.CodeContention, "challenge was settled by someone else")
		}
		wealth, err := s.store.CreditWealth(ctx, tx, userID, int64(ch.WagerAmount))
		if err != nil {
			return econerr.Wrap(err, "refunding stake")
		}
		if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
			UserID:       userID,
			EventType:    "coinflip_cancel",
			WealthChange: ch.WagerAmount,
			Success:      true,
			Description:  fmt.Sprintf("cancelled coin flip %d, stake refunded", ch.ID),
		}); err != nil {
			return econerr.Wrap(err, "recording cancel")
		}
		res.ChallengeID = ch.ID
		res.Wager = ch.WagerAmount
		res.NewWealth = wealth
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// OpenCoinFlips lists joinable challenges.
func (s *Service) OpenCoinFlips(ctx context.Context, limit int) ([]models.CoinFlipChallenge, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.store.ListOpenCoinFlips(ctx, s.store.Pool(), s.clock.Now(), limit)
}

// ExpireOpenCoinFlips refunds and closes stale open challenges, one
// transaction per row.
func (s *Service) ExpireOpenCoinFlips(ctx context.Context) (int, error) {
	ids, err := s.store.ListExpiredOpenCoinFlips(ctx, s.store.Pool(), s.clock.Now(), 200)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
			ch, err := s.store.GetCoinFlipForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if ch.Status != models.FlipOpen {
				return nil
			}
			ok, err := s.store.CloseCoinFlip(ctx, tx, id, models.FlipExpired, s.clock.Now())
			if err != nil || !ok {
				return err
			}
			_, err = s.store.CreditWealth(ctx, tx, ch.ChallengerID, int64(ch.WagerAmount))
			return err
		})
		if err != nil {
			s.log.Error("coin flip expiry failed", zap.Int64("challenge_id", id), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}
