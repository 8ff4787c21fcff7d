package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Hard failures are
// typed errors; soft business outcomes ("already claimed", a lottery miss)
// are ordinary success values and never appear here.

var (
	// Resource errors. A task that exists but belongs to another user is
	// reported exactly like a missing one.
	ErrTaskNotFound   = errors.New("task not found")
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrRewardNotFound = errors.New("reward not found")

	// ErrConflict means a claim or material race was detected and the
	// bounded retries were exhausted. Transient — the caller may retry.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrHierarchyCycle means the parent_id graph contains a cycle.
	// Data-integrity failure; the rollup aborts rather than loop forever.
	ErrHierarchyCycle = errors.New("task hierarchy contains a cycle")

	// ErrTop3Full means the user already has the maximum number of
	// Top3 tasks assigned for the date.
	ErrTop3Full = errors.New("top3 slots for today are full")
)

// ─── InsufficientMaterials ──────────────────────────────────────────────────

// InsufficientMaterialsError is returned by a redemption when one or more
// materials are short. It carries every short material so the caller can
// show the full shopping list, and guarantees no ledger rows were written.
type InsufficientMaterialsError struct {
	RecipeID string
	Required []MaterialShortfall
}

func (e *InsufficientMaterialsError) Error() string {
	return fmt.Sprintf("insufficient materials for recipe %s (%d short)", e.RecipeID, len(e.Required))
}

// IsInsufficientMaterials unwraps err into an InsufficientMaterialsError.
func IsInsufficientMaterials(err error) (*InsufficientMaterialsError, bool) {
	var im *InsufficientMaterialsError
	if errors.As(err, &im) {
		return im, true
	}
	return nil, false
}
