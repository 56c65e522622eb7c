// Package missions assigns, tracks and pays out the daily and weekly
// mission batches. Assignment is lazy: the first relevant command in a new
// period expires the stale batch and deals a fresh one. Claims are
// all-or-nothing per batch and capped per period.
package missions

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/config"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/internal/formulas"
	"github.com/grindcity/economy-engine/internal/inventory"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// ClaimResult reports one successful batch claim.
type ClaimResult struct {
	WealthAwarded models.Currency     `json:"wealthAwarded"`
	XPAwarded     int64               `json:"xpAwarded"`
	CappedAmount  models.Currency     `json:"cappedAmount"`
	CrateStoredIn inventory.Placement `json:"crateStoredIn"`
	NewLevel      int                 `json:"newLevel"`
	LeveledUp     bool                `json:"leveledUp"`
	PromotedTier  models.Tier         `json:"promotedTier,omitempty"`
}

type Service struct {
	store *db.Store
	inv   *inventory.Service
	cfg   *config.Economy
	clock clock.Clock
	rng   clock.RNG
	log   *zap.Logger
}

func NewService(store *db.Store, inv *inventory.Service, cfg *config.Economy, clk clock.Clock, rng clock.RNG, log *zap.Logger) *Service {
	return &Service{store: store, inv: inv, cfg: cfg, clock: clk, rng: rng, log: log.Named("missions")}
}

// EnsureAssigned returns the user's active batch for the period, dealing a
// new one when the period rolled over or nothing was ever assigned. Runs in
// the caller's transaction so assignment commits with the triggering
// command.
func (s *Service) EnsureAssigned(ctx context.Context, q db.Querier, user *models.User, missionType models.MissionType) ([]models.UserMission, error) {
	now := s.clock.Now()
	periodKey := PeriodKey(missionType, now)

	active, err := s.store.ListActiveMissions(ctx, q, user.ID, missionType)
	if err != nil {
		return nil, econerr.Wrap(err, "listing missions")
	}
	if len(active) > 0 && active[0].PeriodKey == periodKey {
		return active, nil
	}

	if _, err := s.store.ExpireMissionsBefore(ctx, q, user.ID, missionType, periodKey); err != nil {
		return nil, econerr.Wrap(err, "expiring stale missions")
	}
	pool, err := s.store.ListMissionTemplates(ctx, q, missionType)
	if err != nil {
		return nil, econerr.Wrap(err, "loading templates")
	}
	count := s.cfg.DailyMissionCount
	if missionType == models.MissionWeekly {
		count = s.cfg.WeeklyMissionCount
	}
	selected := SelectTemplates(s.rng, pool, count)
	if len(selected) == 0 {
		return nil, nil
	}

	tierMult := formulas.TierMultiplier(user.StatusTier)
	expiresAt := PeriodEnd(missionType, now)
	batch := make([]models.UserMission, 0, len(selected))
	for i := range selected {
		m := instantiate(&selected[i], user.ID, tierMult, periodKey, expiresAt)
		id, err := s.store.InsertUserMission(ctx, q, m)
		if err != nil {
			return nil, econerr.Wrap(err, "assigning mission")
		}
		m.ID = id
		batch = append(batch, *m)
	}
	s.log.Debug("assigned mission batch",
		zap.Int64("user_id", user.ID),
		zap.String("mission_type", string(missionType)),
		zap.String("batch", describeBatch(batch)))
	return batch, nil
}

// Progress advances every active mission matching the objective after
// making sure both period batches exist. Counting commands call this with
// their natural increment.
func (s *Service) Progress(ctx context.Context, q db.Querier, user *models.User, objectiveType string, n int64) error {
	if err := s.ensureBoth(ctx, q, user); err != nil {
		return err
	}
	if err := s.store.IncrementMissionProgress(ctx, q, user.ID, objectiveType, n); err != nil {
		return econerr.Wrap(err, "advancing missions")
	}
	return nil
}

// SetAbsolute raises high-water-mark objectives (streaks, single-score
// objectives) without double counting.
func (s *Service) SetAbsolute(ctx context.Context, q db.Querier, user *models.User, objectiveType string, v int64) error {
	if err := s.ensureBoth(ctx, q, user); err != nil {
		return err
	}
	if err := s.store.SetMissionProgressAbsolute(ctx, q, user.ID, objectiveType, v); err != nil {
		return econerr.Wrap(err, "advancing missions")
	}
	return nil
}

func (s *Service) ensureBoth(ctx context.Context, q db.Querier, user *models.User) error {
	if _, err := s.EnsureAssigned(ctx, q, user, models.MissionDaily); err != nil {
		return err
	}
	_, err := s.EnsureAssigned(ctx, q, user, models.MissionWeekly)
	return err
}

// Claim pays out a fully-completed batch. All rows must be completed, one
// claim per period, and the awarded wealth fits under the period cap with
// the base sum served before the completion bonus. The bonus crate lands
// through the inventory overflow policy; a claim with no storage anywhere
// fails whole.
func (s *Service) Claim(ctx context.Context, q db.Querier, user *models.User, missionType models.MissionType) (*ClaimResult, error) {
	now := s.clock.Now()
	periodKey := PeriodKey(missionType, now)

	if _, err := s.EnsureAssigned(ctx, q, user, missionType); err != nil {
		return nil, err
	}
	batch, err := s.store.LockActiveMissions(ctx, q, user.ID, missionType)
	if err != nil {
		return nil, econerr.Wrap(err, "locking missions")
	}
	if len(batch) == 0 {
		return nil, econerr.New(econerr.Policy, "NO_MISSIONS", "no missions assigned this period")
	}
	for _, m := range batch {
		if !m.IsCompleted {
			return nil, econerr.Newf(econerr.Policy, "MISSIONS_INCOMPLETE",
				"%q is not finished", m.ObjectiveType)
		}
	}
	existing, err := s.store.GetMissionCompletion(ctx, q, user.ID, missionType, periodKey)
	if err != nil {
		return nil, econerr.Wrap(err, "checking completion")
	}
	if existing != nil {
		return nil, econerr.New(econerr.Conflict, "ALREADY_CLAIMED",
			"this period's batch is already claimed")
	}

	var baseSum, xpSum int64
	for _, m := range batch {
		baseSum += m.RewardWealth
		xpSum += m.RewardXP
	}
	bonusWealth, bonusXP := s.cfg.DailyClaimBonusWealth, s.cfg.DailyClaimBonusXP
	wealthCap := s.cfg.DailyWealthCap
	crateTier := models.ItemCommon
	if missionType == models.MissionWeekly {
		bonusWealth, bonusXP = s.cfg.WeeklyClaimBonusWealth, s.cfg.WeeklyClaimBonusXP
		wealthCap = s.cfg.WeeklyWealthCap
		crateTier = models.ItemRare
	}

	alreadyClaimed, err := s.store.SumWealthClaimedSince(ctx, q, user.ID, PeriodStart(missionType, now))
	if err != nil {
		return nil, econerr.Wrap(err, "summing period claims")
	}
	awardBase, awardBonus := AllocateCap(baseSum, bonusWealth, wealthCap, alreadyClaimed)
	totalWealth := awardBase + awardBonus
	totalXP := xpSum + bonusXP
	capped := (baseSum + bonusWealth) - totalWealth

	// The user row is locked by the surrounding command transaction.
	newXP := user.XP + totalXP
	newLevel := formulas.LevelFromXP(newXP)
	newTier := formulas.TierForLevel(newLevel)
	newWealth := models.Currency(user.Wealth + totalWealth)
	if err := s.store.SetProgress(ctx, q, user.ID, newWealth, newXP, newLevel, newTier); err != nil {
		return nil, econerr.Wrap(err, "crediting claim")
	}
	if err := s.store.MarkMissionsClaimed(ctx, q, user.ID, missionType, periodKey); err != nil {
		return nil, econerr.Wrap(err, "marking claimed")
	}
	if err := s.store.InsertMissionCompletion(ctx, q, &models.MissionCompletion{
		UserID:        user.ID,
		MissionType:   missionType,
		PeriodKey:     periodKey,
		WealthAwarded: totalWealth,
		XPAwarded:     totalXP,
		CappedAmount:  capped,
	}); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, econerr.New(econerr.Conflict, "ALREADY_CLAIMED",
				"this period's batch is already claimed")
		}
		return nil, econerr.Wrap(err, "recording completion")
	}

	crateDef, err := s.store.GetItemDefinitionByTier(ctx, q, models.ItemCrate, crateTier)
	if err != nil {
		return nil, econerr.Wrap(err, "loading bonus crate")
	}
	added, err := s.inv.AddItem(ctx, q, user.ID, crateDef, inventory.AddOptions{})
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendGameEvent(ctx, q, &models.GameEvent{
		UserID:       user.ID,
		EventType:    "mission_claim",
		WealthChange: models.Currency(totalWealth),
		XPChange:     totalXP,
		Success:      true,
		Description:  fmt.Sprintf("claimed %s missions (+%d wealth, +%d xp)", missionType, totalWealth, totalXP),
	}); err != nil {
		return nil, econerr.Wrap(err, "recording claim")
	}

	res := &ClaimResult{
		WealthAwarded: models.Currency(totalWealth),
		XPAwarded:     totalXP,
		CappedAmount:  models.Currency(capped),
		CrateStoredIn: added.StoredIn,
		NewLevel:      newLevel,
		LeveledUp:     newLevel > user.Level,
	}
	if formulas.TierIndex(newTier) > formulas.TierIndex(user.StatusTier) {
		res.PromotedTier = newTier
	}
	// Keep the in-memory user coherent for the rest of the command.
	user.Wealth = int64(newWealth)
	user.XP = newXP
	user.Level = newLevel
	user.StatusTier = newTier
	return res, nil
}

// List returns the active batch for display, assigning lazily first.
func (s *Service) List(ctx context.Context, q db.Querier, user *models.User, missionType models.MissionType) ([]models.UserMission, error) {
	return s.EnsureAssigned(ctx, q, user, missionType)
}

// ExpireStale retires batches whose period passed without a claim.
// Scheduler entry.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireStaleMissions(ctx, s.store.Pool(), s.clock.Now())
	if err != nil {
		return 0, econerr.Wrap(err, "expiring stale missions")
	}
	if n > 0 {
		s.log.Debug("expired stale mission rows", zap.Int64("rows", n))
	}
	return n, nil
}
