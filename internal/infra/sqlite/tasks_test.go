package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/taskmint/taskmint/internal/domain"
)

func seedTask(t *testing.T, db *DB, id, userID, parentID string, status domain.TaskStatus) {
	t.Helper()
	err := db.InsertTask(context.Background(), domain.Task{
		ID:        id,
		UserID:    userID,
		ParentID:  parentID,
		Title:     "task " + id,
		Status:    status,
		CreatedAt: testTime,
	})
	if err != nil {
		t.Fatalf("InsertTask(%s) error: %v", id, err)
	}
}

// ─── Task Reads ─────────────────────────────────────────────────────────────

func TestGetTask(t *testing.T) {
	db := newTestDB(t)
	seedTask(t, db, "t1", "alice", "", domain.TaskPending)

	task, err := db.GetTask(context.Background(), "alice", "t1")
	if err != nil {
		t.Fatalf("GetTask() error: %v", err)
	}
	if task.Status != domain.TaskPending {
		t.Errorf("Status = %q, want pending", task.Status)
	}
	if task.Claimed() {
		t.Error("fresh task should not be claimed")
	}
	if task.CompletionPercentage != 0 {
		t.Errorf("CompletionPercentage = %f, want 0", task.CompletionPercentage)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetTask(context.Background(), "alice", "missing")
	if !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestGetTask_OwnershipNotLeaked(t *testing.T) {
	db := newTestDB(t)
	seedTask(t, db, "t1", "alice", "", domain.TaskPending)

	// Bob asking for Alice's task gets the same answer as for a task
	// that does not exist at all.
	_, err := db.GetTask(context.Background(), "bob", "t1")
	if !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

// ─── Claim Marker ───────────────────────────────────────────────────────────

func TestSetTaskClaimed_Monotonic(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedTask(t, db, "t1", "alice", "", domain.TaskPending)

	if err := SetTaskClaimed(ctx, db.db, "t1", testTime); err != nil {
		t.Fatalf("SetTaskClaimed() error: %v", err)
	}
	first, _ := db.GetTask(ctx, "alice", "t1")
	if !first.Claimed() {
		t.Fatal("task should be claimed")
	}

	// A second set is a no-op: the marker is one-way.
	later := testTime.AddDate(0, 0, 7)
	if err := SetTaskClaimed(ctx, db.db, "t1", later); err != nil {
		t.Fatalf("second SetTaskClaimed() error: %v", err)
	}
	second, _ := db.GetTask(ctx, "alice", "t1")
	if !second.ClaimedAt.Equal(*first.ClaimedAt) {
		t.Errorf("ClaimedAt changed from %v to %v, want unchanged", first.ClaimedAt, second.ClaimedAt)
	}
}

// ─── Top3 ───────────────────────────────────────────────────────────────────

func TestTop3CountAndSet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedTask(t, db, "t1", "alice", "", domain.TaskPending)
	seedTask(t, db, "t2", "alice", "", domain.TaskPending)

	count, err := Top3Count(ctx, db.db, "alice", "2026-03-01")
	if err != nil {
		t.Fatalf("Top3Count() error: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}

	for _, id := range []string{"t1", "t2"} {
		if err := SetTop3Date(ctx, db.db, id, "2026-03-01"); err != nil {
			t.Fatalf("SetTop3Date(%s) error: %v", id, err)
		}
	}

	count, _ = Top3Count(ctx, db.db, "alice", "2026-03-01")
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	// Dates are distinct pools.
	count, _ = Top3Count(ctx, db.db, "alice", "2026-03-02")
	if count != 0 {
		t.Errorf("count for other date = %d, want 0", count)
	}

	task, _ := db.GetTask(ctx, "alice", "t1")
	if !task.Top3For("2026-03-01") {
		t.Error("t1 should be Top3 for 2026-03-01")
	}
	if task.Top3For("2026-03-02") {
		t.Error("t1 should not be Top3 for 2026-03-02")
	}
}

// ─── Hierarchy ──────────────────────────────────────────────────────────────

func TestAncestorChain(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedTask(t, db, "root", "alice", "", domain.TaskPending)
	seedTask(t, db, "mid", "alice", "root", domain.TaskPending)
	seedTask(t, db, "leaf", "alice", "mid", domain.TaskCompleted)

	chain, err := AncestorChain(ctx, db.db, "leaf")
	if err != nil {
		t.Fatalf("AncestorChain() error: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("len(chain) = %d, want 3", len(chain))
	}
	want := []string{"leaf", "mid", "root"}
	for i, id := range want {
		if chain[i].ID != id {
			t.Errorf("chain[%d] = %s, want %s", i, chain[i].ID, id)
		}
	}
	if chain[0].Status != domain.TaskCompleted {
		t.Errorf("leaf status = %q, want completed", chain[0].Status)
	}
}

func TestAncestorChain_CycleIsDepthCapped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedTask(t, db, "a", "alice", "b", domain.TaskPending)
	seedTask(t, db, "b", "alice", "a", domain.TaskPending)

	// The CTE cannot see the cycle; it must stop at the depth cap and
	// return repeated ids for the caller's visited set to catch.
	chain, err := AncestorChain(ctx, db.db, "a")
	if err != nil {
		t.Fatalf("AncestorChain() error: %v", err)
	}
	if len(chain) <= 2 {
		t.Fatalf("len(chain) = %d, expected repeats from the cycle", len(chain))
	}
	seen := map[string]bool{}
	repeated := false
	for _, n := range chain {
		if seen[n.ID] {
			repeated = true
			break
		}
		seen[n.ID] = true
	}
	if !repeated {
		t.Error("expected a repeated id in a cyclic chain")
	}
}

func TestChildrenRollup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedTask(t, db, "parent", "alice", "", domain.TaskPending)
	seedTask(t, db, "c1", "alice", "parent", domain.TaskCompleted)
	seedTask(t, db, "c2", "alice", "parent", domain.TaskPending)

	if err := SetCompletionPercentage(ctx, db.db, "c1", 100); err != nil {
		t.Fatalf("SetCompletionPercentage(c1) error: %v", err)
	}
	if err := SetCompletionPercentage(ctx, db.db, "c2", 0); err != nil {
		t.Fatalf("SetCompletionPercentage(c2) error: %v", err)
	}

	count, avg, err := ChildrenRollup(ctx, db.db, "parent")
	if err != nil {
		t.Fatalf("ChildrenRollup() error: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if avg != 50 {
		t.Errorf("avg = %f, want 50", avg)
	}
}

func TestChildrenRollup_Leaf(t *testing.T) {
	db := newTestDB(t)
	seedTask(t, db, "solo", "alice", "", domain.TaskPending)

	count, avg, err := ChildrenRollup(context.Background(), db.db, "solo")
	if err != nil {
		t.Fatalf("ChildrenRollup() error: %v", err)
	}
	if count != 0 || avg != 0 {
		t.Errorf("count, avg = %d, %f, want 0, 0", count, avg)
	}
}
