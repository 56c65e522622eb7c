package gambling

import (
	"testing"
)

// scriptRNG plays back queued values; Intn takes them modulo n. Cards are
// scripted by pushing cardValue−1.
type scriptRNG struct {
	ints   []int
	floats []float64
}

func (s *scriptRNG) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *scriptRNG) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func TestHandValue(t *testing.T) {
	cases := []struct {
		name  string
		cards []int
		value int
		soft  bool
	}{
		{"ace six is soft seventeen", []int{1, 6}, 17, true},
		{"ace six ten hardens", []int{1, 6, 10}, 17, false},
		{"two aces", []int{1, 1}, 12, true},
		{"faces count ten", []int{13, 12}, 20, false},
		{"natural", []int{1, 10}, 21, true},
		{"bust", []int{10, 9, 8}, 27, false},
		{"ace rescues a bust", []int{1, 10, 10}, 21, false},
	}
	for _, tc := range cases {
		v, soft := HandValue(tc.cards)
		if v != tc.value || soft != tc.soft {
			t.Errorf("%s: HandValue(%v) = (%d, %v), want (%d, %v)",
				tc.name, tc.cards, v, soft, tc.value, tc.soft)
		}
	}
}

func TestDealerHitsSoftSeventeen(t *testing.T) {
	// Dealer shows A+6 (soft 17) and must hit; the ten hardens the hand to
	// 17 and the dealer stands.
	rng := &scriptRNG{ints: []int{9}} // card 10
	cards := dealerPlay(rng, []int{1, 6})
	if len(cards) != 3 {
		t.Fatalf("dealer drew %d cards, want 3 (must hit soft 17)", len(cards))
	}
	if v, soft := HandValue(cards); v != 17 || soft {
		t.Fatalf("dealer hand = (%d, soft=%v), want hard 17", v, soft)
	}

	// An 18 against the hardened 17 wins double the stake.
	payout, outcome := blackjackPayout(100, []int{10, 8}, cards)
	if payout != 200 || outcome != "win" {
		t.Fatalf("payout = (%d, %s), want (200, win)", payout, outcome)
	}
}

func TestDealerStandsHardSeventeen(t *testing.T) {
	rng := &scriptRNG{ints: []int{9}} // would be drawn if the dealer hit
	cards := dealerPlay(rng, []int{10, 7})
	if len(cards) != 2 {
		t.Fatalf("dealer drew on hard 17")
	}
}

func TestBlackjackPayout(t *testing.T) {
	cases := []struct {
		name    string
		wager   int64
		player  []int
		dealer  []int
		payout  int64
		outcome string
	}{
		{"natural pays five to two", 100, []int{1, 10}, []int{10, 9}, 250, "blackjack"},
		{"natural floors", 101, []int{1, 10}, []int{10, 9}, 252, "blackjack"},
		{"natural vs natural pushes", 100, []int{1, 10}, []int{1, 13}, 100, "push"},
		{"drawn 21 pushes a dealer natural", 100, []int{5, 6, 10}, []int{1, 10}, 100, "push"},
		{"natural beats drawn 21", 100, []int{1, 10}, []int{5, 6, 10}, 250, "blackjack"},
		{"player bust loses even if dealer busts", 100, []int{10, 9, 8}, []int{10, 6, 10}, 0, "bust"},
		{"dealer bust pays double", 100, []int{10, 8}, []int{10, 6, 10}, 200, "win"},
		{"higher hand wins", 100, []int{10, 9}, []int{10, 8}, 200, "win"},
		{"lower hand loses", 100, []int{10, 7}, []int{10, 8}, 0, "loss"},
		{"tie pushes", 100, []int{10, 8}, []int{9, 9}, 100, "push"},
	}
	for _, tc := range cases {
		payout, outcome := blackjackPayout(tc.wager, tc.player, tc.dealer)
		if payout != tc.payout || outcome != tc.outcome {
			t.Errorf("%s: got (%d, %s), want (%d, %s)", tc.name, payout, outcome, tc.payout, tc.outcome)
		}
	}
}
