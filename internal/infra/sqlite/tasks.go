package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskmint/taskmint/internal/domain"
)

// ─── Task Store ─────────────────────────────────────────────────────────────
// Tasks are shared with the CRUD layer; the economy core only ever writes
// status, claimed_at, completion_percentage and top3_date.

// maxHierarchyDepth caps the ancestor walk. Anything deeper than this is
// a corrupt parent_id graph, not a real task tree.
const maxHierarchyDepth = 256

// InsertTask creates a task row (CRUD glue for the API and tests).
func (db *DB) InsertTask(ctx context.Context, t domain.Task) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, parent_id, title, status, completion_percentage, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.UserID, nullString(t.ParentID), t.Title, string(t.Status),
		t.CompletionPercentage, formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask loads one task owned by userID. A task that exists but belongs
// to someone else reports domain.ErrTaskNotFound, exactly like a missing
// row — ownership is not leaked.
func GetTask(ctx context.Context, q Querier, userID, taskID string) (domain.Task, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, user_id, parent_id, title, status, completion_percentage, claimed_at, top3_date, created_at
		FROM tasks
		WHERE id = ? AND user_id = ?
	`, taskID, userID)

	t, err := scanTask(row)
	if isNoRows(err) {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return t, err
}

// GetTask is the convenience read outside an engine transaction.
func (db *DB) GetTask(ctx context.Context, userID, taskID string) (domain.Task, error) {
	return GetTask(ctx, db.db, userID, taskID)
}

// ListTasks returns all of the user's tasks, oldest first.
func (db *DB) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, user_id, parent_id, title, status, completion_percentage, claimed_at, top3_date, created_at
		FROM tasks
		WHERE user_id = ?
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetTaskStatus updates the status axis only.
func SetTaskStatus(ctx context.Context, q Querier, taskID string, status domain.TaskStatus) error {
	_, err := q.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, string(status), taskID)
	if err != nil {
		return fmt.Errorf("set task status: %w", err)
	}
	return nil
}

// SetTaskClaimed sets the one-way claim marker. The WHERE clause enforces
// monotonicity at the SQL level: an already-set marker is never touched.
func SetTaskClaimed(ctx context.Context, q Querier, taskID string, at time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE tasks SET claimed_at = ? WHERE id = ? AND claimed_at IS NULL
	`, formatTime(at), taskID)
	if err != nil {
		return fmt.Errorf("set task claimed: %w", err)
	}
	return nil
}

// SetCompletionPercentage writes a recomputed rollup value.
func SetCompletionPercentage(ctx context.Context, q Querier, taskID string, pct float64) error {
	_, err := q.ExecContext(ctx, `UPDATE tasks SET completion_percentage = ? WHERE id = ?`, pct, taskID)
	if err != nil {
		return fmt.Errorf("set completion percentage: %w", err)
	}
	return nil
}

// ─── Top3 ───────────────────────────────────────────────────────────────────

// Top3Count returns how many tasks the user has assigned for the date.
func Top3Count(ctx context.Context, q Querier, userID, date string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tasks WHERE user_id = ? AND top3_date = ?
	`, userID, date).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("top3 count: %w", err)
	}
	return n, nil
}

// Top3Count is the convenience read outside an engine transaction.
func (db *DB) Top3Count(ctx context.Context, userID, date string) (int, error) {
	return Top3Count(ctx, db.db, userID, date)
}

// SetTop3Date marks the task privileged for the date.
func SetTop3Date(ctx context.Context, q Querier, taskID, date string) error {
	_, err := q.ExecContext(ctx, `UPDATE tasks SET top3_date = ? WHERE id = ?`, date, taskID)
	if err != nil {
		return fmt.Errorf("set top3 date: %w", err)
	}
	return nil
}

// ─── Hierarchy Reads (rollup support) ───────────────────────────────────────

// TaskNode is the slice of a task row the rollup needs.
type TaskNode struct {
	ID       string
	ParentID string
	Status   domain.TaskStatus
}

// AncestorChain batch-loads the chain from taskID up to its root in one
// recursive query: [task, parent, grandparent, …]. The recursion is
// depth-capped; cycle detection over the result is the caller's job (the
// CTE itself cannot distinguish a cycle from a deep chain).
func AncestorChain(ctx context.Context, q Querier, taskID string) ([]TaskNode, error) {
	rows, err := q.QueryContext(ctx, `
		WITH RECURSIVE chain(id, parent_id, status, depth) AS (
			SELECT id, parent_id, status, 0 FROM tasks WHERE id = ?
			UNION ALL
			SELECT t.id, t.parent_id, t.status, c.depth + 1
			FROM tasks t
			JOIN chain c ON t.id = c.parent_id
			WHERE c.depth < ?
		)
		SELECT id, parent_id, status FROM chain ORDER BY depth
	`, taskID, maxHierarchyDepth)
	if err != nil {
		return nil, fmt.Errorf("ancestor chain: %w", err)
	}
	defer rows.Close()

	var chain []TaskNode
	for rows.Next() {
		var n TaskNode
		var parentID sql.NullString
		var status string
		if err := rows.Scan(&n.ID, &parentID, &status); err != nil {
			return nil, err
		}
		n.ParentID = parentID.String
		n.Status = domain.TaskStatus(status)
		chain = append(chain, n)
	}
	return chain, rows.Err()
}

// ChildrenRollup aggregates the direct children of taskID in one query:
// how many there are and their mean completion_percentage.
func ChildrenRollup(ctx context.Context, q Querier, taskID string) (count int, avg float64, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(completion_percentage), 0)
		FROM tasks WHERE parent_id = ?
	`, taskID).Scan(&count, &avg)
	if err != nil {
		err = fmt.Errorf("children rollup: %w", err)
	}
	return
}

// ─── Scanning ───────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var parentID, claimedAt, top3Date sql.NullString
	var status, createdAt string
	err := row.Scan(&t.ID, &t.UserID, &parentID, &t.Title, &status,
		&t.CompletionPercentage, &claimedAt, &top3Date, &createdAt)
	if err != nil {
		return domain.Task{}, err
	}
	t.ParentID = parentID.String
	t.Status = domain.TaskStatus(status)
	t.Top3Date = top3Date.String
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Task{}, err
	}
	if claimedAt.Valid {
		at, err := parseTime(claimedAt.String)
		if err != nil {
			return domain.Task{}, err
		}
		t.ClaimedAt = &at
	}
	return t, nil
}
