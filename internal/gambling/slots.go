package gambling

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/formulas"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// slotSymbol is one reel face. A triple pays multiplier x wager; the
// jackpot face pays the whole pool instead.
type slotSymbol struct {
	glyph   string
	weight  int
	mult    int64
	jackpot bool
}

var slotReel = []slotSymbol{
	{glyph: "cherry", weight: 30, mult: 2},
	{glyph: "lemon", weight: 25, mult: 3},
	{glyph: "bar", weight: 20, mult: 5},
	{glyph: "bell", weight: 14, mult: 8},
	{glyph: "seven", weight: 8, mult: 15},
	{glyph: "diamond", weight: 3, jackpot: true},
}

// Two of a kind returns one and a half wagers, floored.
const (
	pairPayoutNum = 3
	pairPayoutDen = 2
)

// randomJackpotChance is the tier-indexed probability that an otherwise
// dead spin is rescued by the side jackpot roll.
var randomJackpotChance = [6]float64{0.0002, 0.0003, 0.0005, 0.0008, 0.0012, 0.0018}

// SpinClass labels the payout bucket of a spin.
type SpinClass int

const (
	SpinLoss SpinClass = iota
	SpinPair
	SpinTriple
	SpinJackpot      // three jackpot faces
	SpinLuckyJackpot // tier-luck side roll on a losing spin
)

// SpinOutcome is a classified reel result, before any money moves.
type SpinOutcome struct {
	Symbols [3]string
	Class   SpinClass
	mult    int64
}

// JackpotWon reports whether the spin takes the pool.
func (o SpinOutcome) JackpotWon() bool {
	return o.Class == SpinJackpot || o.Class == SpinLuckyJackpot
}

// Payout computes the non-jackpot payout for a wager. Jackpot classes are
// paid from the pool by the caller.
func (o SpinOutcome) Payout(wager int64) int64 {
	switch o.Class {
	case SpinTriple:
		return wager * o.mult
	case SpinPair:
		return wager * pairPayoutNum / pairPayoutDen
	default:
		return 0
	}
}

func (o SpinOutcome) outcome() string {
	switch o.Class {
	case SpinJackpot, SpinLuckyJackpot:
		return "jackpot"
	case SpinTriple:
		return "triple"
	case SpinPair:
		return "pair"
	default:
		return "loss"
	}
}

// Spin rolls three weighted reels and classifies the result, including the
// tier-luck side roll that can turn a dead spin into a pool win.
func Spin(rng clock.RNG, tier models.Tier) SpinOutcome {
	weights := make([]int, len(slotReel))
	for i, sym := range slotReel {
		weights[i] = sym.weight
	}
	var idx [3]int
	var out SpinOutcome
	for i := range idx {
		idx[i] = formulas.WeightedIndex(rng, weights)
		out.Symbols[i] = slotReel[idx[i]].glyph
	}
	switch {
	case idx[0] == idx[1] && idx[1] == idx[2]:
		if slotReel[idx[0]].jackpot {
			out.Class = SpinJackpot
		} else {
			out.Class = SpinTriple
			out.mult = slotReel[idx[0]].mult
		}
	case idx[0] == idx[1] || idx[1] == idx[2] || idx[0] == idx[2]:
		out.Class = SpinPair
	default:
		if rng.Float64() < randomJackpotChance[formulas.TierIndex(tier)] {
			out.Class = SpinLuckyJackpot
		} else {
			out.Class = SpinLoss
		}
	}
	return out
}

// SlotsResult reports one spin to the caller.
type SlotsResult struct {
	Symbols    [3]string       `json:"symbols"`
	Outcome    string          `json:"outcome"`
	Payout     models.Currency `json:"payout"`
	Net        models.Currency `json:"net"`
	JackpotWon bool            `json:"jackpotWon"`
	Jackpot    models.Currency `json:"jackpot"`
	NewWealth  models.Currency `json:"newWealth"`
	Intents    []models.Intent `json:"-"`
}

// Slots runs one spin: debit, roll, pay, and move the pool, all in one
// transaction holding the user row (and the pool row when it can pay out).
func (s *Service) Slots(ctx context.Context, userID, wager int64) (*SlotsResult, error) {
	var res SlotsResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		user, err := s.lockGambler(ctx, tx, userID, wager)
		if err != nil {
			return err
		}
		newWealth, err := s.store.CreditWealth(ctx, tx, userID, -wager)
		if err != nil {
			return econerr.Wrap(err, "debiting wager")
		}

		out := Spin(s.rng, user.StatusTier)
		now := s.clock.Now()

		var payout int64
		var poolAfter models.Currency
		if out.JackpotWon() {
			jp, err := s.store.GetJackpotForUpdate(ctx, tx)
			if err != nil {
				return econerr.Wrap(err, "locking jackpot")
			}
			payout = int64(jp.CurrentPool)
			if err := s.store.ResetJackpot(ctx, tx, userID, jp.CurrentPool, s.cfg.JackpotBase, now); err != nil {
				return econerr.Wrap(err, "resetting jackpot")
			}
			poolAfter = models.Currency(s.cfg.JackpotBase)
		} else {
			payout = out.Payout(wager)
			contribution := int64(math.Floor(float64(wager) * s.cfg.SlotsContribution))
			poolAfter, err = s.store.AddToJackpot(ctx, tx, contribution)
			if err != nil {
				return econerr.Wrap(err, "feeding jackpot")
			}
		}
		if payout > 0 {
			if newWealth, err = s.store.CreditWealth(ctx, tx, userID, payout); err != nil {
				return econerr.Wrap(err, "crediting payout")
			}
		}

		detail, _ := json.Marshal(map[string]any{"symbols": out.Symbols})
		if _, err := s.store.InsertGamblingSession(ctx, tx, &models.GamblingSession{
			UserID:     userID,
			Game:       models.GameSlots,
			Wager:      models.Currency(wager),
			Payout:     models.Currency(payout),
			Outcome:    out.outcome(),
			Detail:     detail,
			ResolvedAt: &now,
		}); err != nil {
			return econerr.Wrap(err, "recording spin")
		}
		if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
			UserID:       userID,
			EventType:    "slots",
			WealthChange: models.Currency(payout - wager),
			Success:      payout > wager,
			Description:  fmt.Sprintf("slots %v: %s", out.Symbols, out.outcome()),
		}); err != nil {
			return econerr.Wrap(err, "recording spin event")
		}
		if err := s.settle(ctx, tx, user, wager, payout); err != nil {
			return err
		}
		if err := s.missions.Progress(ctx, tx, user, models.ObjectiveSlotsSpins, 1); err != nil {
			return err
		}

		res.Symbols = out.Symbols
		res.Outcome = out.outcome()
		res.Payout = models.Currency(payout)
		res.Net = models.Currency(payout - wager)
		res.JackpotWon = out.JackpotWon()
		res.Jackpot = poolAfter
		res.NewWealth = newWealth
		if out.JackpotWon() {
			res.Intents = append(res.Intents, models.Intent{
				Kind:     models.IntentJackpotWin,
				UserID:   userID,
				Username: user.Username,
				Title:    "JACKPOT",
				Message:  fmt.Sprintf("%s hit the jackpot for %d!", user.Username, payout),
				Data:     map[string]any{"amount": payout},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}
