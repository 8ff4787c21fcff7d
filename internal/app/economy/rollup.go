package economy

import (
	"context"
	"fmt"

	"github.com/taskmint/taskmint/internal/domain"
	"github.com/taskmint/taskmint/internal/infra/sqlite"
)

// ─── Completion Rollup ──────────────────────────────────────────────────────
// A leaf task is 100% when completed and 0% otherwise; a parent is the
// mean of its children. Any leaf status change therefore ripples up the
// ancestor chain, recomputed bottom-up so each parent sees its already
// updated child.

// rollup recomputes completion_percentage for taskID and every ancestor.
// It runs inside the caller's transaction: the chain is batch-loaded in
// one recursive query, then each node is a read-children/compute/write
// step. A repeated id in the chain means the parent_id graph is cyclic —
// that surfaces as domain.ErrHierarchyCycle instead of an endless walk.
func rollup(ctx context.Context, q sqlite.Querier, taskID string) error {
	chain, err := sqlite.AncestorChain(ctx, q, taskID)
	if err != nil {
		return err
	}

	visited := make(map[string]bool, len(chain))
	for _, node := range chain {
		if visited[node.ID] {
			return fmt.Errorf("rollup at task %s: %w", node.ID, domain.ErrHierarchyCycle)
		}
		visited[node.ID] = true

		pct, err := nodePercentage(ctx, q, node)
		if err != nil {
			return err
		}
		if err := sqlite.SetCompletionPercentage(ctx, q, node.ID, pct); err != nil {
			return err
		}
	}
	return nil
}

// nodePercentage computes one node's percentage: status-based for a
// leaf, children average otherwise.
func nodePercentage(ctx context.Context, q sqlite.Querier, node sqlite.TaskNode) (float64, error) {
	count, avg, err := sqlite.ChildrenRollup(ctx, q, node.ID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		if node.Status == domain.TaskCompleted {
			return 100.0, nil
		}
		return 0.0, nil
	}
	return avg, nil
}
