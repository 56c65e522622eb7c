package merge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/clock"
	"github.com/grindcity/economy-engine/internal/config"
	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// ConfirmPhrase is the operator intent Execute demands. Merges are
// irreversible; a missing or wrong phrase fails before any row is touched.
const ConfirmPhrase = "MERGE"

// Result reports an executed merge.
type Result struct {
	Projection     *Projection `json:"projection"`
	ItemsMoved     int64       `json:"itemsMoved"`
	HistoriesMoved bool        `json:"historiesMoved"`
}

// auditSnapshot is the secondary's pre-merge state, stored as JSONB on the
// tombstone row.
type auditSnapshot struct {
	SecondaryID    int64          `json:"secondaryId"`
	PrimaryID      int64          `json:"primaryId"`
	Username       string         `json:"username"`
	Wealth         int64          `json:"wealth"`
	XP             int64          `json:"xp"`
	Level          int            `json:"level"`
	Tokens         int            `json:"tokens"`
	Bonds          int64          `json:"bonds"`
	InventoryCount int            `json:"inventoryCount"`
	EscrowCount    int            `json:"escrowCount"`
	PlatformMoves  []PlatformMove `json:"platformMoves"`
}

type Service struct {
	store *db.Store
	cfg   *config.Economy
	clock clock.Clock
	log   *zap.Logger
}

func NewService(store *db.Store, cfg *config.Economy, clk clock.Clock, log *zap.Logger) *Service {
	return &Service{store: store, cfg: cfg, clock: clk, log: log.Named("merge")}
}

// Preview projects the merge without writing anything. The projection is
// advisory; Execute recomputes it under row locks.
func (s *Service) Preview(ctx context.Context, primaryID, secondaryID int64) (*Projection, error) {
	primary, secondary, err := s.loadPair(ctx, s.store.Pool(), primaryID, secondaryID, false)
	if err != nil {
		return nil, err
	}
	proj := Project(primary, secondary, s.cfg.TokenHardCap)

	stored, escrowed, err := s.store.CountInventory(ctx, s.store.Pool(), secondaryID)
	if err != nil {
		return nil, econerr.Wrap(err, "counting secondary inventory")
	}
	priStored, _, err := s.store.CountInventory(ctx, s.store.Pool(), primaryID)
	if err != nil {
		return nil, econerr.Wrap(err, "counting primary inventory")
	}
	if priStored+stored+escrowed > s.cfg.MaxInventory {
		proj.Warnings = append(proj.Warnings, fmt.Sprintf(
			"combined inventory will hold %d items, over the %d-slot cap; new acquisitions will be refused until items are sold",
			priStored+stored+escrowed, s.cfg.MaxInventory))
	}
	return proj, nil
}

// Execute performs the merge in one transaction: identities move, balances
// and counters fold into the primary, child rows are reassigned or merged,
// transient rows are dropped, and the secondary is tombstoned with an audit
// snapshot. Ingress never resolves the secondary again.
func (s *Service) Execute(ctx context.Context, primaryID, secondaryID int64, confirm string) (*Result, error) {
	if confirm != ConfirmPhrase {
		return nil, econerr.Newf(econerr.Validation, "MERGE_NOT_CONFIRMED",
			"merge requires confirm=%q", ConfirmPhrase)
	}

	var res Result
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		primary, secondary, err := s.loadPair(ctx, tx, primaryID, secondaryID, true)
		if err != nil {
			return err
		}
		proj := Project(primary, secondary, s.cfg.TokenHardCap)
		res.Projection = proj

		stored, escrowed, err := s.store.CountInventory(ctx, tx, secondaryID)
		if err != nil {
			return econerr.Wrap(err, "counting secondary inventory")
		}
		audit, err := json.Marshal(auditSnapshot{
			SecondaryID:    secondaryID,
			PrimaryID:      primaryID,
			Username:       secondary.Username,
			Wealth:         secondary.Wealth,
			XP:             secondary.XP,
			Level:          secondary.Level,
			Tokens:         secondary.Tokens,
			Bonds:          secondary.Bonds,
			InventoryCount: stored,
			EscrowCount:    escrowed,
			PlatformMoves:  proj.PlatformMoves,
		})
		if err != nil {
			return econerr.Wrap(err, "encoding audit snapshot")
		}

		// Identities: clear on the secondary first so the unique index
		// never sees the same id on two rows.
		for _, mv := range proj.PlatformMoves {
			if err := s.store.ClearPlatformID(ctx, tx, secondaryID, mv.Platform); err != nil {
				return econerr.Wrap(err, "clearing platform id")
			}
			if mv.Kept {
				if err := s.store.LinkPlatformID(ctx, tx, primaryID, mv.Platform, mv.PlatformID); err != nil {
					return econerr.Wrap(err, "moving platform id")
				}
			}
		}

		if err := s.store.SetProgress(ctx, tx, primaryID, proj.Wealth, proj.XP, proj.Level, proj.Tier); err != nil {
			return econerr.Wrap(err, "crediting balances")
		}
		if err := s.store.SetTokens(ctx, tx, primaryID, proj.Tokens, primary.TokensEarnedToday); err != nil {
			return econerr.Wrap(err, "crediting tokens")
		}
		if secondary.Bonds > 0 {
			if err := s.store.AdjustBonds(ctx, tx, primaryID, secondary.Bonds); err != nil {
				return econerr.Wrap(err, "crediting bonds")
			}
		}
		if err := s.store.MergeLifetimeCounters(ctx, tx, primaryID,
			secondary.TotalPlayCount, secondary.Wins, secondary.Losses, secondary.CheckinStreak); err != nil {
			return econerr.Wrap(err, "folding counters")
		}

		res.ItemsMoved, err = s.store.ReassignInventory(ctx, tx, secondaryID, primaryID)
		if err != nil {
			return econerr.Wrap(err, "moving inventory")
		}
		if err := s.store.MergeAchievements(ctx, tx, secondaryID, primaryID); err != nil {
			return econerr.Wrap(err, "merging achievements")
		}
		if err := s.store.MergeTitles(ctx, tx, secondaryID, primaryID); err != nil {
			return econerr.Wrap(err, "merging titles")
		}
		if err := s.store.MergeConsumableStock(ctx, tx, secondaryID, primaryID); err != nil {
			return econerr.Wrap(err, "merging consumables")
		}
		if err := s.store.MergeGamblingStats(ctx, tx, secondaryID, primaryID); err != nil {
			return econerr.Wrap(err, "merging gambling stats")
		}
		if err := s.store.ReassignHistories(ctx, tx, secondaryID, primaryID); err != nil {
			return econerr.Wrap(err, "moving histories")
		}
		res.HistoriesMoved = true

		if err := s.store.DeleteTransientRows(ctx, tx, secondaryID); err != nil {
			return econerr.Wrap(err, "dropping transient rows")
		}
		if err := s.store.TombstoneUser(ctx, tx, secondaryID, primaryID, audit, s.clock.Now()); err != nil {
			return econerr.Wrap(err, "tombstoning secondary")
		}

		if err := s.store.AppendGameEvent(ctx, tx, &models.GameEvent{
			UserID:       primaryID,
			EventType:    "account_merge",
			WealthChange: models.Currency(secondary.Wealth),
			XPChange:     secondary.XP,
			Success:      true,
			Description:  fmt.Sprintf("absorbed account %d (%s)", secondaryID, secondary.Username),
		}); err != nil {
			return econerr.Wrap(err, "recording merge event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("accounts merged",
		zap.Int64("primary_id", primaryID),
		zap.Int64("secondary_id", secondaryID),
		zap.Int64("items_moved", res.ItemsMoved))
	return &res, nil
}

// loadPair fetches both accounts, locking in ascending id order when asked
// so concurrent merges touching the same rows cannot deadlock.
func (s *Service) loadPair(ctx context.Context, q db.Querier, primaryID, secondaryID int64, lock bool) (primary, secondary *models.User, err error) {
	if primaryID == secondaryID {
		return nil, nil, econerr.New(econerr.Validation, econerr.CodeInvalidInput,
			"an account cannot be merged into itself")
	}

	fetch := s.store.GetUserByID
	if lock {
		fetch = s.store.GetUserForUpdate
	}
	firstID, secondID := primaryID, secondaryID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	first, err := fetch(ctx, q, firstID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil, econerr.Newf(econerr.NotFound, econerr.CodeUserNotFound, "user %d not found", firstID)
		}
		return nil, nil, econerr.Wrap(err, "loading user")
	}
	second, err := fetch(ctx, q, secondID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil, econerr.Newf(econerr.NotFound, econerr.CodeUserNotFound, "user %d not found", secondID)
		}
		return nil, nil, econerr.Wrap(err, "loading user")
	}

	primary, secondary = first, second
	if primary.ID != primaryID {
		primary, secondary = second, first
	}

	if secondary.Merged() {
		return nil, nil, econerr.New(econerr.Conflict, "ALREADY_MERGED", "secondary account was already merged")
	}
	if primary.Merged() {
		return nil, nil, econerr.New(econerr.Conflict, "ALREADY_MERGED", "primary account was already merged")
	}
	return primary, secondary, nil
}
