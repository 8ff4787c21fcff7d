// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "time"

// ─── Task Types ─────────────────────────────────────────────────────────────

// TaskStatus is the current lifecycle state of a task.
// Status is orthogonal to the claim marker: a task can be pending again
// after an uncomplete while its reward stays claimed forever.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskCancelled TaskStatus = "cancelled"
)

// Task represents one node in a user's task hierarchy.
type Task struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id"`
	ParentID             string     `json:"parent_id,omitempty"` // weak back-reference, no ownership
	Title                string     `json:"title"`
	Status               TaskStatus `json:"status"`
	CompletionPercentage float64    `json:"completion_percentage"` // 0–100
	ClaimedAt            *time.Time `json:"claimed_at,omitempty"`  // set exactly once, never cleared
	Top3Date             string     `json:"top3_date,omitempty"`   // YYYY-MM-DD (UTC) when Top3-assigned
	CreatedAt            time.Time  `json:"created_at"`
}

// Claimed reports whether the one-time reward for this task was ever granted.
func (t Task) Claimed() bool { return t.ClaimedAt != nil }

// Top3For reports whether the task is in the privileged Top3 set for the
// given UTC date (formatted YYYY-MM-DD).
func (t Task) Top3For(date string) bool { return t.Top3Date != "" && t.Top3Date == date }

// ─── Completion Results ─────────────────────────────────────────────────────

// RewardType discriminates the reward path a completion took.
type RewardType string

const (
	RewardNormal        RewardType = "task_complete"
	RewardTop3Lottery   RewardType = "top3_lottery"
	RewardAlreadyOnce   RewardType = "already_completed_once"
)

// CompletionResult is the outcome of a complete() call. "Already claimed"
// is a successful zero-effect outcome, never an error.
type CompletionResult struct {
	PointsAwarded    int64          `json:"points_awarded"`
	RewardType       RewardType     `json:"reward_type"`
	AlreadyCompleted bool           `json:"already_completed"`
	Message          string         `json:"message,omitempty"`
	Lottery          *LotteryResult `json:"lottery_result,omitempty"`
}

// LotteryResult is the decision of a Top3 lottery draw. The engine that
// draws it performs no ledger writes — persistence belongs to the caller.
type LotteryResult struct {
	Won               bool   `json:"won"`                          // true = prize item, false = consolation
	ConsolationPoints int64  `json:"consolation_points,omitempty"` // set when Won is false
	PrizeID           string `json:"prize_id,omitempty"`
	PrizeName         string `json:"prize_name,omitempty"`
}
