package models

import (
	"encoding/json"
	"time"
)

// GameKind names a gambling sub-game.
type GameKind string

const (
	GameSlots     GameKind = "slots"
	GameBlackjack GameKind = "blackjack"
	GameCoinFlip  GameKind = "coinflip"
	GameLottery   GameKind = "lottery"
)

// GamblingSession is one wager record. Blackjack sessions stay open
// (ResolvedAt nil) while the hand is playable; every other game resolves in
// the transaction that created it.
type GamblingSession struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"userId"`
	Game       GameKind        `json:"game"`
	Wager      Currency        `json:"wager"`
	Payout     Currency        `json:"payout"`
	Outcome    string          `json:"outcome"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	ResolvedAt *time.Time      `json:"resolvedAt,omitempty"`
}

// BlackjackState is the transient playable hand stored on the session row
// until resolution.
type BlackjackState struct {
	PlayerCards []int  `json:"playerCards"`
	DealerCards []int  `json:"dealerCards"`
	Status      string `json:"status"` // playing | standing | busted | blackjack | resolved
	Doubled     bool   `json:"doubled"`
}

// GamblingStats aggregates one player's lifetime gambling record.
type GamblingStats struct {
	UserID        int64     `json:"userId"`
	TotalWagered  int64     `json:"totalWagered"`
	TotalWon      int64     `json:"totalWon"`
	GamesPlayed   int64     `json:"gamesPlayed"`
	GamesWon      int64     `json:"gamesWon"`
	CurrentStreak int       `json:"currentStreak"`
	BestStreak    int       `json:"bestStreak"`
	BiggestWin    int64     `json:"biggestWin"`
	BiggestLoss   int64     `json:"biggestLoss"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CoinFlipStatus is the challenge lifecycle; terminal states never
// transition back.
type CoinFlipStatus string

const (
	FlipOpen      CoinFlipStatus = "open"
	FlipResolved  CoinFlipStatus = "resolved"
	FlipCancelled CoinFlipStatus = "cancelled"
	FlipExpired   CoinFlipStatus = "expired"
)

// CoinFlipChallenge is a PvP wager. The challenger's stake is debited into
// escrow at creation and refunded on cancel or expiry.
type CoinFlipChallenge struct {
	ID             int64          `json:"id"`
	ChallengerID   int64          `json:"challengerId"`
	AcceptorID     *int64         `json:"acceptorId,omitempty"`
	WagerAmount    Currency       `json:"wagerAmount"`
	ChallengerCall string         `json:"challengerCall"` // heads | tails
	Status         CoinFlipStatus `json:"status"`
	WinnerID       *int64         `json:"winnerId,omitempty"`
	ExpiresAt      time.Time      `json:"expiresAt"`
	CreatedAt      time.Time      `json:"createdAt"`
	ResolvedAt     *time.Time     `json:"resolvedAt,omitempty"`
}

// LotteryDraw is one scheduled drawing.
type LotteryDraw struct {
	ID             int64      `json:"id"`
	DrawType       string     `json:"drawType"` // daily
	DrawAt         time.Time  `json:"drawAt"`
	Status         string     `json:"status"` // open | completed
	PrizePool      Currency   `json:"prizePool"`
	WinningNumbers []int      `json:"winningNumbers,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// LotteryTicket is one purchased number set, sorted ascending and unique
// per (user, draw, numbers).
type LotteryTicket struct {
	ID       int64     `json:"id"`
	DrawID   int64     `json:"drawId"`
	UserID   int64     `json:"userId"`
	Numbers  []int     `json:"numbers"`
	BoughtAt time.Time `json:"boughtAt"`
}

// JackpotPool is the singleton progressive slots pool.
type JackpotPool struct {
	ID            int64      `json:"id"`
	CurrentPool   Currency   `json:"currentPool"`
	LastWinnerID  *int64     `json:"lastWinnerId,omitempty"`
	LastWinAmount Currency   `json:"lastWinAmount"`
	LastWonAt     *time.Time `json:"lastWonAt,omitempty"`
}
