package domain

import "time"

// ─── Ledger Types ───────────────────────────────────────────────────────────
// The ledger is append-only: no update, no delete, ever. Balances and
// on-hand quantities are always derived by summation over the rows —
// there is no mutable counter anywhere that could drift out of sync.

// SourceType records the business reason a ledger row exists.
type SourceType string

const (
	SourceTaskComplete  SourceType = "task_complete"
	SourceTop3Lottery   SourceType = "top3_lottery"
	SourceRecipeConsume SourceType = "recipe_consume"
	SourceRecipeProduce SourceType = "recipe_produce"
	SourceManualAdjust  SourceType = "manual_adjust"
)

// PointsTransaction is one immutable row in the points ledger.
// Positive amounts credit the user, negative amounts debit.
type PointsTransaction struct {
	ID               int64      `json:"id"`
	UserID           string     `json:"user_id"`
	Amount           int64      `json:"amount"`
	SourceType       SourceType `json:"source_type"`
	SourceID         string     `json:"source_id,omitempty"`          // originating task/recipe
	TransactionGroup string     `json:"transaction_group,omitempty"` // groups atomic multi-row operations
	CreatedAt        time.Time  `json:"created_at"`
}

// RewardTransaction is one immutable row in the reward-item ledger.
// Same shape as PointsTransaction, with a reward id and signed quantity.
type RewardTransaction struct {
	ID               int64      `json:"id"`
	UserID           string     `json:"user_id"`
	RewardID         string     `json:"reward_id"`
	Quantity         int64      `json:"quantity"`
	SourceType       SourceType `json:"source_type"`
	SourceID         string     `json:"source_id,omitempty"`
	TransactionGroup string     `json:"transaction_group,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// RewardEntry is one element of an atomic ledger group before it is
// persisted (no id, no timestamp — the store assigns those).
type RewardEntry struct {
	UserID     string
	RewardID   string
	Quantity   int64
	SourceType SourceType
	SourceID   string
}
