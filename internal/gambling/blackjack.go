package gambling

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// Cards run 1 (ace) through 13 (king), drawn from an infinite shoe. Faces
// count ten; aces flex between eleven and one.

func drawCard(rng clock.RNG) int { return rng.Intn(13) + 1 }

// HandValue scores a blackjack hand. soft reports an ace still counted as
// eleven.
func HandValue(cards []int) (value int, soft bool) {
	aces := 0
	for _, c := range cards {
		switch {
		case c == 1:
			aces++
			value += 11
		case c > 10:
			value += 10
		default:
			value += c
		}
	}
	for value > 21 && aces > 0 {
		value -= 10
		aces--
	}
	return value, aces > 0
}

// isNatural reports a two-card twenty-one.
func isNatural(cards []int) bool {
	if len(cards) != 2 {
		return false
	}
	v, _ := HandValue(cards)
	return v == 21
}

// dealerPlay draws until the dealer stands: hard seventeen or better. The
// house hits soft seventeen.
func dealerPlay(rng clock.RNG, cards []int) []int {
	for {
		v, soft := HandValue(cards)
		if v < 17 || (v == 17 && soft) {
			cards = append(cards, drawCard(rng))
			continue
		}
		return cards
	}
}

// blackjackPayout classifies a finished hand. A natural beats any dealt
// twenty-one except the dealer's own natural.
func blackjackPayout(wager int64, player, dealer []int) (payout int64, outcome string) {
	pv, _ := HandValue(player)
	dv, _ := HandValue(dealer)
	switch {
	case pv > 21:
		return 0, "bust"
	case isNatural(player) && !isNatural(dealer):
		return wager * 5 / 2, "blackjack"
	case dv > 21, pv > dv:
		return wager * 2, "win"
	case pv < dv:
		return 0, "loss"
	default:
		return wager, "push"
	}
}

// BlackjackResult is the hand as the player sees it. The dealer's hole
// card stays hidden until the hand resolves.
type BlackjackResult struct {
	SessionID   int64           `json:"sessionId"`
	PlayerCards []int           `json:"playerCards"`
	PlayerValue int             `json:"playerValue"`
	DealerCards []int           `json:"dealerCards"`
	DealerValue int             `json:"dealerValue,omitempty"`
	Status      string          `json:"status"`
	Outcome     string          `json:"outcome,omitempty"`
	Wager       models.Currency `json:"wager"`
	Payout      models.Currency `json:"payout"`
	NewWealth   models.Currency `json:"newWealth"`
	Resolved    bool            `json:"resolved"`
}

func (s *Service) blackjackView(res *BlackjackResult, sessID int64, wager int64, state *models.BlackjackState, wealth models.Currency) {
	res.SessionID = sessID
	res.PlayerCards = state.PlayerCards
	res.PlayerValue, _ = HandValue(state.PlayerCards)
	res.Status = state.Status
	res.Wager = models.Currency(wager)
	res.NewWealth = wealth
	if res.Resolved {
		res.DealerCards = state.DealerCards
		res.DealerValue, _ = HandValue(state.DealerCards)
	} else if len(state.DealerCards) > 0 {
		res.DealerCards = state.DealerCards[:1]
	}
}

// BlackjackStart deals a new hand, debiting the wager with the session
// insert. A natural resolves on the spot.
func (s *Service) BlackjackStart(ctx context.Context, userID, wager int64) (*BlackjackResult, error) {
	var res BlackjackResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		user, err := s.lockGambler(ctx, tx, userID, wager)
		if err != nil {
			return err
		}
		if open, err := s.store.GetOpenBlackjackSession(ctx, tx, userID); err != nil {
			return econerr.Wrap(err, "checking open hand")
		} else if open != nil {
			return econerr.New(econerr.Conflict, "HAND_IN_PLAY", "finish your current hand first")
		}
		wealth, err := s.store.CreditWealth(ctx, tx, userID, -wager)
		if err != nil {
			return econerr.Wrap(err, "debiting wager")
		}

		state := models.BlackjackState{
			PlayerCards: []int{drawCard(s.rng), drawCard(s.rng)},
			DealerCards: []int{drawCard(s.rng), drawCard(s.rng)},
			Status:      "playing",
		}
		detail, _ := json.Marshal(&state)
		sessID, err := s.store.InsertGamblingSession(ctx, tx, &models.GamblingSession{
			UserID:  userID,
			Game:    models.GameBlackjack,
			Wager:   models.Currency(wager),
			Outcome: "playing",
			Detail:  detail,
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return econerr.New(econerr.Conflict, "HAND_IN_PLAY", "finish your current hand first")
			}
			return econerr.Wrap(err, "opening hand")
		}

		if isNatural(state.PlayerCards) {
			state.Status = "blackjack"
			return s.resolveHand(ctx, tx, &res, user, sessID, wager, &state)
		}
		s.blackjackView(&res, sessID, wager, &state, wealth)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// BlackjackHit draws one card; busting resolves the hand immediately.
func (s *Service) BlackjackHit(ctx context.Context, userID int64) (*BlackjackResult, error) {
	return s.blackjackMove(ctx, userID, func(ctx context.Context, tx pgx.Tx, res *BlackjackResult, user *models.User, sess *models.GamblingSession, state *models.BlackjackState) error {
		state.PlayerCards = append(state.PlayerCards, drawCard(s.rng))
		if v, _ := HandValue(state.PlayerCards); v > 21 {
			state.Status = "busted"
			return s.resolveHand(ctx, tx, res, user, sess.ID, int64(sess.Wager), state)
		}
		detail, _ := json.Marshal(state)
		if err := s.store.UpdateSessionDetail(ctx, tx, sess.ID, sess.Wager, detail); err != nil {
			return econerr.Wrap(err, "saving hand")
		}
		s.blackjackView(res, sess.ID, int64(sess.Wager), state, models.Currency(user.Wealth))
		return nil
	})
}

// BlackjackStand ends the player's turn and plays out the dealer.
func (s *Service) BlackjackStand(ctx context.Context, userID int64) (*BlackjackResult, error) {
	return s.blackjackMove(ctx, userID, func(ctx context.Context, tx pgx.Tx, res *BlackjackResult, user *models.User, sess *models.GamblingSession, state *models.BlackjackState) error {
		state.Status = "standing"
		return s.resolveHand(ctx, tx, res, user, sess.ID, int64(sess.Wager), state)
	})
}

// BlackjackDouble doubles the wager on the first two cards, draws exactly
// one card and resolves.
func (s *Service) BlackjackDouble(ctx context.Context, userID int64) (*BlackjackResult, error) {
	return s.blackjackMove(ctx, userID, func(ctx context.Context, tx pgx.Tx, res *BlackjackResult, user *models.User, sess *models.GamblingSession, state *models.BlackjackState) error {
		if len(state.PlayerCards) != 2 || state.Doubled {
			return econerr.New(econerr.Policy, "DOUBLE_UNAVAILABLE", "double is only allowed on your first two cards")
		}
		wager := int64(sess.Wager)
		if user.Wealth < wager {
			return econerr.New(econerr.Insufficient, econerr.CodeInsufficientWealth, "not enough wealth to double")
		}
		if _, err := s.store.CreditWealth(ctx, tx, userID, -wager); err != nil {
			return econerr.Wrap(err, "debiting double")
		}
		state.Doubled = true
		state.PlayerCards = append(state.PlayerCards, drawCard(s.rng))
		if v, _ := HandValue(state.PlayerCards); v > 21 {
			state.Status = "busted"
		} else {
			state.Status = "standing"
		}
		detail, _ := json.Marshal(state)
		if err := s.store.UpdateSessionDetail(ctx, tx, sess.ID, models.Currency(wager*2), detail); err != nil {
			return econerr.Wrap(err, "raising stake")
		}
		return s.resolveHand(ctx, tx, res, user, sess.ID, wager*2, state)
	})
}

type blackjackMoveFn func(ctx context.Context, tx pgx.Tx, res *BlackjackResult, user *models.User, sess *models.GamblingSession, state *models.BlackjackState) error

// blackjackMove wraps the shared open-hand plumbing around one move.
func (s *Service) blackjackMove(ctx context.Context, userID int64, move blackjackMoveFn) (*BlackjackResult, error) {
	var res BlackjackResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		user, err := s.lockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := s.cooldowns.RequireNotJailed(ctx, tx, userID); err != nil {
			return err
		}
		sess, err := s.store.GetOpenBlackjackSession(ctx, tx, userID)
		if err != nil {
			return econerr.Wrap(err, "loading hand")
		}
		if sess == nil {
			return econerr.New(econerr.NotFound, "NO_OPEN_HAND", "no hand in play")
		}
		var state models.BlackjackState
		if err := json.Unmarshal(sess.Detail, &state); err != nil {
			return econerr.Wrap(err, "decoding hand state")
		}
		return move(ctx, tx, &res, user, sess, &state)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// resolveHand reveals the hole card, runs the dealer when the player has
// not busted, pays out and closes the session.
func (s *Service) resolveHand(ctx context.Context, tx pgx.Tx, res *BlackjackResult, user *models.User, sessID, wager int64, state *models.BlackjackState) error {
	if v, _ := HandValue(state.PlayerCards); v <= 21 {
		state.DealerCards = dealerPlay(s.rng, state.DealerCards)
	}
	payout, outcome := blackjackPayout(wager, state.PlayerCards, state.DealerCards)
	state.Status = "resolved"

	wealth, err := s.store.CreditWealth(ctx, tx, user.ID, payout)
	if err != nil {
		return econerr.Wrap(err, "crediting payout")
	}
	now := s.clock.Now()
	detail, _ := json.Marshal(state)
	if err := s.store.ResolveGamblingSession(ctx, tx, sessID, models.Currency(payout), outcome, detail, now); err != nil {
		return econerr.Wrap(err, "closing hand")
	}

	pv, _ := HandValue(state.PlayerCards)
	dv, _ := HandValue(state.DealerCards)
	if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
		UserID:       user.ID,
		EventType:    "blackjack",
		WealthChange: models.Currency(payout - wager),
		Success:      payout > wager,
		Description:  fmt.Sprintf("blackjack %s: player %d, dealer %d", outcome, pv, dv),
	}); err != nil {
		return econerr.Wrap(err, "recording hand")
	}
	if err := s.settle(ctx, tx, user, wager, payout); err != nil {
		return err
	}

	res.Resolved = true
	res.Outcome = outcome
	res.Payout = models.Currency(payout)
	s.blackjackView(res, sessID, wager, state, wealth)
	return nil
}
