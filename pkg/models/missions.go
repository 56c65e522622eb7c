package models

import "time"

// MissionType is the assignment period class.
type MissionType string

const (
	MissionDaily  MissionType = "daily"
	MissionWeekly MissionType = "weekly"
)

// Mission objective type keys advanced by commands.
const (
	ObjectivePlayCount    = "play_count"
	ObjectiveRobSuccess   = "rob_success"
	ObjectiveWealthEarned = "wealth_earned"
	ObjectiveSlotsSpins   = "slots_spins"
	ObjectiveGamblingWins = "gambling_wins"
	ObjectiveBailPaid     = "bail_paid"
	ObjectiveCheckin      = "checkin"
)

// MissionStatus is the per-assignment lifecycle.
type MissionStatus string

const (
	MissionActive  MissionStatus = "active"
	MissionClaimed MissionStatus = "claimed"
	MissionExpired MissionStatus = "expired"
)

// MissionTemplate is a static mission blueprint; objective and rewards are
// scaled by the player's tier at assignment time.
type MissionTemplate struct {
	ID                 int64       `json:"id"`
	MissionType        MissionType `json:"missionType"`
	Category           string      `json:"category"`
	Name               string      `json:"name"`
	Description        string      `json:"description"`
	ObjectiveType      string      `json:"objectiveType"`
	ObjectiveBaseValue int64       `json:"objectiveBaseValue"`
	RewardWealth       int64       `json:"rewardWealth"`
	RewardXP           int64       `json:"rewardXp"`
	IsLuckBased        bool        `json:"isLuckBased"`
}

// UserMission is one assigned mission instance.
type UserMission struct {
	ID              int64         `json:"id"`
	UserID          int64         `json:"userId"`
	TemplateID      int64         `json:"templateId"`
	MissionType     MissionType   `json:"missionType"`
	Category        string        `json:"category"`
	ObjectiveType   string        `json:"objectiveType"`
	ObjectiveValue  int64         `json:"objectiveValue"`
	CurrentProgress int64         `json:"currentProgress"`
	RewardWealth    int64         `json:"rewardWealth"`
	RewardXP        int64         `json:"rewardXp"`
	IsLuckBased     bool          `json:"isLuckBased"`
	IsCompleted     bool          `json:"isCompleted"`
	Status          MissionStatus `json:"status"`
	PeriodKey       string        `json:"periodKey"`
	ExpiresAt       time.Time     `json:"expiresAt"`
	AssignedAt      time.Time     `json:"assignedAt"`
}

// MissionCompletion records one all-or-nothing claim after the per-period
// wealth cap was applied.
type MissionCompletion struct {
	ID            int64       `json:"id"`
	UserID        int64       `json:"userId"`
	MissionType   MissionType `json:"missionType"`
	PeriodKey     string      `json:"periodKey"`
	WealthAwarded int64       `json:"wealthAwarded"`
	XPAwarded     int64       `json:"xpAwarded"`
	CappedAmount  int64       `json:"cappedAmount"`
	ClaimedAt     time.Time   `json:"claimedAt"`
}
