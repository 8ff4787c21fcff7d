// Package economy implements the ledger-based rewards engine: one-time
// claim completion rewards, the Top3 lottery payout, recipe crafting and
// the completion-percentage rollup. Everything bottoms out in the
// append-only ledger — balances are derived, never counted.
package economy

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskmint/taskmint/internal/domain"
	"github.com/taskmint/taskmint/internal/infra/observability"
	"github.com/taskmint/taskmint/internal/infra/sqlite"
)

// Config carries the economy tunables.
type Config struct {
	BasePoints int64 // points for a first-time task completion
	Top3Slots  int   // privileged tasks per user per day
}

// DefaultConfig returns the production economy values.
func DefaultConfig() Config {
	return Config{
		BasePoints: 2,
		Top3Slots:  3,
	}
}

// Engine orchestrates task completion: the permanent one-time claim rule,
// the reward path (normal vs. Top3 lottery), ledger appends and the
// ancestor rollup. One Engine is constructed per process with its
// database and lottery injected; each operation runs in its own
// transaction scope.
type Engine struct {
	db      *sqlite.DB
	lottery *Lottery
	cfg     Config
	log     zerolog.Logger
	now     func() time.Time
}

// NewEngine creates a completion engine.
func NewEngine(db *sqlite.DB, lottery *Lottery, cfg Config, log zerolog.Logger) *Engine {
	return &Engine{
		db:      db,
		lottery: lottery,
		cfg:     cfg,
		log:     log.With().Str("component", "economy").Logger(),
		now:     time.Now,
	}
}

// WithClock substitutes the engine's clock (tests).
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ─── Complete ───────────────────────────────────────────────────────────────

// Complete marks the task completed and grants its reward exactly once,
// forever. The claim check-and-set runs inside one write-locking
// transaction, so two racing calls on the same unclaimed task can never
// both award.
//
// Reclaiming is not an error: the result comes back with
// AlreadyCompleted set, zero points, and the status still repaired to
// completed (an uncomplete/re-complete cycle must not leave the task
// stuck pending).
func (e *Engine) Complete(ctx context.Context, userID, taskID string) (domain.Task, domain.CompletionResult, error) {
	var task domain.Task
	var result domain.CompletionResult
	now := e.now().UTC()

	// Claim phase: check-and-set plus the base award, one atomic unit.
	err := e.db.WithTx(ctx, func(q sqlite.Querier) error {
		var err error
		task, err = sqlite.GetTask(ctx, q, userID, taskID)
		if err != nil {
			return err
		}

		if task.Claimed() {
			// Reward already granted once — zero economic effect, but the
			// status axis still moves to completed.
			if err := sqlite.SetTaskStatus(ctx, q, task.ID, domain.TaskCompleted); err != nil {
				return err
			}
			task.Status = domain.TaskCompleted
			result = domain.CompletionResult{
				PointsAwarded:    0,
				RewardType:       domain.RewardAlreadyOnce,
				AlreadyCompleted: true,
				Message:          "task was already completed once; no new reward",
			}
			return nil
		}

		if err := sqlite.SetTaskStatus(ctx, q, task.ID, domain.TaskCompleted); err != nil {
			return err
		}
		if err := sqlite.SetTaskClaimed(ctx, q, task.ID, now); err != nil {
			return err
		}
		task.Status = domain.TaskCompleted
		task.ClaimedAt = &now

		_, err = sqlite.AppendPoints(ctx, q, domain.PointsTransaction{
			UserID:     userID,
			Amount:     e.cfg.BasePoints,
			SourceType: domain.SourceTaskComplete,
			SourceID:   task.ID,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}
		result = domain.CompletionResult{
			PointsAwarded: e.cfg.BasePoints,
			RewardType:    domain.RewardNormal,
			Message:       "task completed",
		}
		return nil
	})
	if err != nil {
		return domain.Task{}, domain.CompletionResult{}, err
	}

	// Bonus phase. Deliberately a separate commit: the base award above
	// is already a complete economic fact, and a failing lottery append
	// must not be able to roll it back.
	if !result.AlreadyCompleted && task.Top3For(now.Format(time.DateOnly)) {
		err := e.db.WithTx(ctx, func(q sqlite.Querier) error {
			return e.awardLottery(ctx, q, &task, &result, now)
		})
		if err != nil {
			return domain.Task{}, domain.CompletionResult{}, err
		}
	}

	// Rollup phase: the status change ripples up the ancestor chain.
	err = e.db.WithTx(ctx, func(q sqlite.Querier) error {
		return rollup(ctx, q, task.ID)
	})
	if err != nil {
		return domain.Task{}, domain.CompletionResult{}, err
	}

	if result.AlreadyCompleted {
		observability.TaskCompletions.WithLabelValues("already_claimed").Inc()
	} else {
		observability.TaskCompletions.WithLabelValues("claimed").Inc()
		observability.PointsMinted.Add(float64(result.PointsAwarded))
	}

	e.log.Info().
		Str("task", taskID).
		Str("user", userID).
		Int64("points", result.PointsAwarded).
		Bool("already_completed", result.AlreadyCompleted).
		Msg("task complete")

	return task, result, nil
}

// awardLottery draws and persists the Top3 bonus. The base award and the
// bonus are independent economic events: each append stands alone, no
// shared transaction group.
func (e *Engine) awardLottery(ctx context.Context, q sqlite.Querier, task *domain.Task, result *domain.CompletionResult, now time.Time) error {
	prizes, err := sqlite.ActiveRewards(ctx, q)
	if err != nil {
		return err
	}

	draw := e.lottery.Resolve(prizes)
	result.RewardType = domain.RewardTop3Lottery
	result.Lottery = &draw

	if draw.Won {
		_, err = sqlite.AppendReward(ctx, q, domain.RewardTransaction{
			UserID:     task.UserID,
			RewardID:   draw.PrizeID,
			Quantity:   1,
			SourceType: domain.SourceTop3Lottery,
			SourceID:   task.ID,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}
		observability.LotteryOutcomes.WithLabelValues("prize").Inc()
		result.Message = "top3 task completed; won " + draw.PrizeName
		return nil
	}

	_, err = sqlite.AppendPoints(ctx, q, domain.PointsTransaction{
		UserID:     task.UserID,
		Amount:     draw.ConsolationPoints,
		SourceType: domain.SourceTop3Lottery,
		SourceID:   task.ID,
		CreatedAt:  now,
	})
	if err != nil {
		return err
	}
	result.PointsAwarded += draw.ConsolationPoints
	observability.LotteryOutcomes.WithLabelValues("consolation").Inc()
	result.Message = "top3 task completed; consolation points awarded"
	return nil
}

// ─── Uncomplete ─────────────────────────────────────────────────────────────

// Uncomplete flips the task back to pending and re-runs the rollup.
// It never reverses ledger entries and never clears the claim marker:
// rewards, once granted, are permanent regardless of later state changes.
func (e *Engine) Uncomplete(ctx context.Context, userID, taskID string) (domain.Task, error) {
	var task domain.Task
	err := e.db.WithTx(ctx, func(q sqlite.Querier) error {
		var err error
		task, err = sqlite.GetTask(ctx, q, userID, taskID)
		if err != nil {
			return err
		}
		if err := sqlite.SetTaskStatus(ctx, q, task.ID, domain.TaskPending); err != nil {
			return err
		}
		task.Status = domain.TaskPending
		return rollup(ctx, q, task.ID)
	})
	if err != nil {
		return domain.Task{}, err
	}

	e.log.Info().Str("task", taskID).Str("user", userID).Msg("task uncompleted")
	return task, nil
}

// ─── Top3 Assignment ────────────────────────────────────────────────────────

// AssignTop3 marks the task privileged for today (UTC). At most
// Top3Slots tasks per user per day; the count check-and-set serializes
// on the same write lock as every other economy operation.
func (e *Engine) AssignTop3(ctx context.Context, userID, taskID string) (domain.Task, error) {
	date := e.now().UTC().Format(time.DateOnly)

	var task domain.Task
	err := e.db.WithTx(ctx, func(q sqlite.Querier) error {
		var err error
		task, err = sqlite.GetTask(ctx, q, userID, taskID)
		if err != nil {
			return err
		}
		if task.Top3For(date) {
			return nil // already assigned for today
		}

		count, err := sqlite.Top3Count(ctx, q, userID, date)
		if err != nil {
			return err
		}
		if count >= e.cfg.Top3Slots {
			return domain.ErrTop3Full
		}
		if err := sqlite.SetTop3Date(ctx, q, task.ID, date); err != nil {
			return err
		}
		task.Top3Date = date
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return task, nil
}
