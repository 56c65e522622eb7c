package gambling

import (
	"sort"
	"testing"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

func TestDrawNumbers(t *testing.T) {
	rng := clock.NewRNG(3)
	for i := 0; i < 100; i++ {
		nums := drawNumbers(rng, 3, 30)
		if len(nums) != 3 {
			t.Fatalf("drew %d numbers, want 3", len(nums))
		}
		if !sort.IntsAreSorted(nums) {
			t.Fatalf("numbers not sorted: %v", nums)
		}
		seen := map[int]bool{}
		for _, n := range nums {
			if n < 1 || n > 30 {
				t.Fatalf("number %d out of range", n)
			}
			if seen[n] {
				t.Fatalf("duplicate number in %v", nums)
			}
			seen[n] = true
		}
	}
}

func TestDrawNumbersFullRange(t *testing.T) {
	// Degenerate pool: picking max-of-max must yield every number.
	rng := clock.NewRNG(4)
	nums := drawNumbers(rng, 5, 5)
	want := []int{1, 2, 3, 4, 5}
	for i, n := range nums {
		if n != want[i] {
			t.Fatalf("drawNumbers(5,5) = %v, want %v", nums, want)
		}
	}
}

func TestCountMatches(t *testing.T) {
	winning := []int{4, 17, 23}
	cases := []struct {
		ticket []int
		want   int
	}{
		{[]int{4, 17, 23}, 3},
		{[]int{4, 17, 29}, 2},
		{[]int{1, 2, 23}, 1},
		{[]int{1, 2, 3}, 0},
	}
	for _, tc := range cases {
		if got := countMatches(tc.ticket, winning); got != tc.want {
			t.Errorf("countMatches(%v) = %d, want %d", tc.ticket, got, tc.want)
		}
	}
}

func TestSettleTicketsEarliestFullMatchTakesPool(t *testing.T) {
	winning := []int{4, 17, 23}
	tickets := []models.LotteryTicket{
		{ID: 10, UserID: 1, Numbers: []int{1, 2, 3}},    // no matches
		{ID: 11, UserID: 2, Numbers: []int{4, 17, 23}},  // full match, earliest
		{ID: 12, UserID: 3, Numbers: []int{4, 17, 23}},  // full match, later, unpaid
		{ID: 13, UserID: 4, Numbers: []int{4, 17, 29}},  // two matches
		{ID: 14, UserID: 5, Numbers: []int{1, 2, 23}},   // one match
	}
	prizes := settleTickets(tickets, winning, 50000, 1000, 10, 2)

	if len(prizes) != 3 {
		t.Fatalf("settled %d prizes, want 3: %+v", len(prizes), prizes)
	}
	pool := prizes[0]
	if pool.Ticket.ID != 11 || !pool.Pool || pool.Prize != 50000 {
		t.Fatalf("pool prize = %+v, want ticket 11 paying 50000", pool)
	}
	if prizes[1].Ticket.ID != 13 || prizes[1].Prize != 10000 || prizes[1].Pool {
		t.Fatalf("two-match prize = %+v, want ticket 13 paying 10000", prizes[1])
	}
	if prizes[2].Ticket.ID != 14 || prizes[2].Prize != 2000 || prizes[2].Pool {
		t.Fatalf("one-match prize = %+v, want ticket 14 paying 2000", prizes[2])
	}
	for _, p := range prizes {
		if p.Ticket.ID == 12 {
			t.Fatal("second full-match ticket must not be paid")
		}
	}
}

func TestSettleTicketsNoWinners(t *testing.T) {
	winning := []int{4, 17, 23}
	tickets := []models.LotteryTicket{
		{ID: 1, UserID: 1, Numbers: []int{5, 6, 7}},
	}
	if prizes := settleTickets(tickets, winning, 50000, 1000, 10, 2); len(prizes) != 0 {
		t.Fatalf("settled %d prizes, want none", len(prizes))
	}
}

func TestNormalizeNumbers(t *testing.T) {
	got, err := normalizeNumbers([]int{23, 4, 17}, 3, 30)
	if err != nil {
		t.Fatalf("normalizeNumbers: %v", err)
	}
	for i, want := range []int{4, 17, 23} {
		if got[i] != want {
			t.Fatalf("normalizeNumbers = %v, want sorted [4 17 23]", got)
		}
	}

	bad := [][]int{
		{1, 2},
		{1, 2, 3, 4},
		{0, 2, 3},
		{1, 2, 31},
		{7, 7, 9},
	}
	for _, nums := range bad {
		if _, err := normalizeNumbers(nums, 3, 30); !econerr.IsKind(err, econerr.Validation) {
			t.Errorf("normalizeNumbers(%v) = %v, want Validation", nums, err)
		}
	}
}
