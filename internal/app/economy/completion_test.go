package economy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskmint/taskmint/internal/domain"
	"github.com/taskmint/taskmint/internal/infra/sqlite"
)

var testTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestEngine wires an engine with a fixed clock and scripted draws.
func newTestEngine(t *testing.T, db *sqlite.DB, rng RandSource) *Engine {
	t.Helper()
	if rng == nil {
		rng = &scriptedRand{}
	}
	lottery := NewLottery(rng, 0.5, 100)
	return NewEngine(db, lottery, DefaultConfig(), zerolog.Nop()).
		WithClock(func() time.Time { return testTime })
}

func seedTask(t *testing.T, db *sqlite.DB, id, userID, parentID string) {
	t.Helper()
	err := db.InsertTask(context.Background(), domain.Task{
		ID:        id,
		UserID:    userID,
		ParentID:  parentID,
		Title:     "task " + id,
		Status:    domain.TaskPending,
		CreatedAt: testTime,
	})
	if err != nil {
		t.Fatalf("InsertTask(%s) error: %v", id, err)
	}
}

func mustComplete(t *testing.T, engine *Engine, userID, taskID string) domain.CompletionResult {
	t.Helper()
	_, result, err := engine.Complete(context.Background(), userID, taskID)
	if err != nil {
		t.Fatalf("Complete(%s) error: %v", taskID, err)
	}
	return result
}

func mustUncomplete(t *testing.T, engine *Engine, userID, taskID string) {
	t.Helper()
	if _, err := engine.Uncomplete(context.Background(), userID, taskID); err != nil {
		t.Fatalf("Uncomplete(%s) error: %v", taskID, err)
	}
}

func mustAssignTop3(t *testing.T, engine *Engine, userID, taskID string) {
	t.Helper()
	if _, err := engine.AssignTop3(context.Background(), userID, taskID); err != nil {
		t.Fatalf("AssignTop3(%s) error: %v", taskID, err)
	}
}

// ─── Complete ───────────────────────────────────────────────────────────────

func TestComplete_AwardsBasePoints(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, nil)
	ctx := context.Background()
	seedTask(t, db, "t1", "alice", "")

	task, result, err := engine.Complete(ctx, "alice", "t1")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if result.PointsAwarded != 2 {
		t.Errorf("PointsAwarded = %d, want 2", result.PointsAwarded)
	}
	if result.RewardType != domain.RewardNormal {
		t.Errorf("RewardType = %q, want %q", result.RewardType, domain.RewardNormal)
	}
	if result.AlreadyCompleted {
		t.Error("first completion must not report already_completed")
	}
	if task.Status != domain.TaskCompleted {
		t.Errorf("Status = %q, want completed", task.Status)
	}
	if !task.Claimed() {
		t.Error("task should be claimed after first completion")
	}
	stored, _ := db.GetTask(ctx, "alice", "t1")
	if stored.CompletionPercentage != 100 {
		t.Errorf("stored CompletionPercentage = %f, want 100", stored.CompletionPercentage)
	}

	balance, _ := db.Balance(ctx, "alice")
	if balance != 2 {
		t.Errorf("balance = %d, want 2", balance)
	}
}

func TestComplete_SecondClaimIsZeroEffect(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, nil)
	ctx := context.Background()
	seedTask(t, db, "t1", "alice", "")

	mustComplete(t, engine, "alice", "t1")
	before, err := db.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}

	_, result, err := engine.Complete(ctx, "alice", "t1")
	if err != nil {
		t.Fatalf("second Complete() error: %v", err)
	}
	if !result.AlreadyCompleted {
		t.Error("second completion must report already_completed")
	}
	if result.PointsAwarded != 0 {
		t.Errorf("PointsAwarded = %d, want 0", result.PointsAwarded)
	}
	if result.RewardType != domain.RewardAlreadyOnce {
		t.Errorf("RewardType = %q, want %q", result.RewardType, domain.RewardAlreadyOnce)
	}

	after, _ := db.Balance(ctx, "alice")
	if after != before {
		t.Errorf("balance changed %d -> %d on reclaim", before, after)
	}
}

func TestComplete_ReclaimAfterUncompleteRepairsStatus(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, nil)
	ctx := context.Background()
	seedTask(t, db, "t1", "alice", "")

	mustComplete(t, engine, "alice", "t1")
	mustUncomplete(t, engine, "alice", "t1")

	// The reclaim pays nothing, but the status must still end up
	// completed — not stuck at pending.
	task, result, err := engine.Complete(ctx, "alice", "t1")
	if err != nil {
		t.Fatalf("reclaim error: %v", err)
	}
	if !result.AlreadyCompleted {
		t.Error("reclaim must report already_completed")
	}
	if task.Status != domain.TaskCompleted {
		t.Errorf("Status = %q after reclaim, want completed", task.Status)
	}
	stored, _ := db.GetTask(ctx, "alice", "t1")
	if stored.Status != domain.TaskCompleted {
		t.Errorf("stored Status = %q after reclaim, want completed", stored.Status)
	}
	if stored.CompletionPercentage != 100 {
		t.Errorf("stored CompletionPercentage = %f, want 100", stored.CompletionPercentage)
	}

	balance, _ := db.Balance(ctx, "alice")
	if balance != 2 {
		t.Errorf("balance = %d after claim/uncomplete/reclaim, want 2", balance)
	}
}

func TestComplete_ConcurrentClaimsAwardOnce(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, nil)
	ctx := context.Background()
	seedTask(t, db, "t1", "alice", "")

	// All racers hit the same unclaimed task at once. The claim
	// check-and-set serializes on the write lock, so exactly one may
	// find the task unclaimed — no interleaving can double-award.
	const racers = 8
	results := make([]domain.CompletionResult, racers)
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i], errs[i] = engine.Complete(ctx, "alice", "t1")
		}(i)
	}
	wg.Wait()

	claims := 0
	var awarded int64
	for i := 0; i < racers; i++ {
		if errs[i] != nil {
			if errors.Is(errs[i], domain.ErrConflict) {
				continue // bounded retries may give up under contention
			}
			t.Fatalf("racer %d Complete() error: %v", i, errs[i])
		}
		awarded += results[i].PointsAwarded
		if !results[i].AlreadyCompleted {
			claims++
		}
	}
	if claims != 1 {
		t.Errorf("claims = %d, want exactly 1", claims)
	}
	if awarded != 2 {
		t.Errorf("total awarded across racers = %d, want 2", awarded)
	}

	balance, err := db.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if balance != 2 {
		t.Errorf("balance = %d after racing claims, want 2", balance)
	}

	history, err := db.PointsHistory(ctx, "alice", 50)
	if err != nil {
		t.Fatalf("PointsHistory() error: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("len(history) = %d, want 1 (a single base award)", len(history))
	}
}

func TestComplete_NotFound(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, nil)

	_, _, err := engine.Complete(context.Background(), "alice", "missing")
	if !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestComplete_OtherUsersTask(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, nil)
	seedTask(t, db, "t1", "alice", "")

	_, _, err := engine.Complete(context.Background(), "bob", "t1")
	if !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

// ─── Uncomplete ─────────────────────────────────────────────────────────────

func TestUncomplete_NeverTouchesLedgerOrClaim(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, nil)
	ctx := context.Background()
	seedTask(t, db, "t1", "alice", "")

	mustComplete(t, engine, "alice", "t1")
	balanceBefore, err := db.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}

	task, err := engine.Uncomplete(ctx, "alice", "t1")
	if err != nil {
		t.Fatalf("Uncomplete() error: %v", err)
	}
	if task.Status != domain.TaskPending {
		t.Errorf("Status = %q, want pending", task.Status)
	}

	balanceAfter, _ := db.Balance(ctx, "alice")
	if balanceAfter != balanceBefore {
		t.Errorf("balance changed %d -> %d on uncomplete", balanceBefore, balanceAfter)
	}

	stored, _ := db.GetTask(ctx, "alice", "t1")
	if !stored.Claimed() {
		t.Error("claim marker must survive uncomplete")
	}
	if stored.CompletionPercentage != 0 {
		t.Errorf("CompletionPercentage = %f after uncomplete, want 0", stored.CompletionPercentage)
	}
}

// ─── Top3 Lottery Path ──────────────────────────────────────────────────────

func seedPrizes(t *testing.T, db *sqlite.DB) {
	t.Helper()
	ctx := context.Background()
	for _, r := range testPrizes {
		if err := db.UpsertReward(ctx, r); err != nil {
			t.Fatalf("UpsertReward(%s) error: %v", r.ID, err)
		}
	}
}

func TestComplete_Top3Consolation(t *testing.T) {
	db := newTestDB(t)
	// Draw misses: 0.9 >= 0.5.
	engine := newTestEngine(t, db, &scriptedRand{floats: []float64{0.9}})
	ctx := context.Background()
	seedPrizes(t, db)
	seedTask(t, db, "t1", "alice", "")

	if _, err := engine.AssignTop3(ctx, "alice", "t1"); err != nil {
		t.Fatalf("AssignTop3() error: %v", err)
	}

	_, result, err := engine.Complete(ctx, "alice", "t1")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if result.RewardType != domain.RewardTop3Lottery {
		t.Errorf("RewardType = %q, want %q", result.RewardType, domain.RewardTop3Lottery)
	}
	if result.Lottery == nil || result.Lottery.Won {
		t.Fatalf("Lottery = %+v, want a consolation miss", result.Lottery)
	}
	if result.PointsAwarded != 102 { // 2 base + 100 consolation
		t.Errorf("PointsAwarded = %d, want 102", result.PointsAwarded)
	}

	balance, _ := db.Balance(ctx, "alice")
	if balance != 102 {
		t.Errorf("balance = %d, want 102", balance)
	}
}

func TestComplete_Top3Prize(t *testing.T) {
	db := newTestDB(t)
	// Draw wins: 0.1 < 0.5, prize index 0.
	engine := newTestEngine(t, db, &scriptedRand{floats: []float64{0.1}, ints: []int{0}})
	ctx := context.Background()
	seedPrizes(t, db)
	seedTask(t, db, "t1", "alice", "")

	mustAssignTop3(t, engine, "alice", "t1")

	_, result, err := engine.Complete(ctx, "alice", "t1")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if result.Lottery == nil || !result.Lottery.Won {
		t.Fatalf("Lottery = %+v, want a win", result.Lottery)
	}
	if result.PointsAwarded != 2 { // base only; prize is an item
		t.Errorf("PointsAwarded = %d, want 2", result.PointsAwarded)
	}

	onHand, _ := db.OnHand(ctx, "alice", result.Lottery.PrizeID)
	if onHand != 1 {
		t.Errorf("OnHand(%s) = %d, want 1", result.Lottery.PrizeID, onHand)
	}

	history, _ := db.RewardHistory(ctx, "alice", 10)
	if len(history) != 1 || history[0].SourceType != domain.SourceTop3Lottery {
		t.Errorf("reward history = %+v, want one top3_lottery row", history)
	}
}

func TestComplete_Top3RewardsOnlyOnce(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, &scriptedRand{floats: []float64{0.9, 0.9}})
	ctx := context.Background()
	seedPrizes(t, db)
	seedTask(t, db, "t1", "alice", "")
	mustAssignTop3(t, engine, "alice", "t1")

	mustComplete(t, engine, "alice", "t1")
	mustUncomplete(t, engine, "alice", "t1")
	result := mustComplete(t, engine, "alice", "t1")

	if !result.AlreadyCompleted {
		t.Error("reclaim of a top3 task must be zero-effect too")
	}
	balance, _ := db.Balance(ctx, "alice")
	if balance != 102 {
		t.Errorf("balance = %d, want 102 (no second lottery)", balance)
	}
}

// ─── Top3 Assignment ────────────────────────────────────────────────────────

func TestAssignTop3_SlotsAreBounded(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, nil)
	ctx := context.Background()
	for _, id := range []string{"t1", "t2", "t3", "t4"} {
		seedTask(t, db, id, "alice", "")
	}

	for _, id := range []string{"t1", "t2", "t3"} {
		if _, err := engine.AssignTop3(ctx, "alice", id); err != nil {
			t.Fatalf("AssignTop3(%s) error: %v", id, err)
		}
	}

	_, err := engine.AssignTop3(ctx, "alice", "t4")
	if !errors.Is(err, domain.ErrTop3Full) {
		t.Errorf("err = %v, want ErrTop3Full", err)
	}
}

func TestAssignTop3_Reassignment(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, nil)
	ctx := context.Background()
	seedTask(t, db, "t1", "alice", "")

	mustAssignTop3(t, engine, "alice", "t1")
	task, err := engine.AssignTop3(ctx, "alice", "t1")
	if err != nil {
		t.Fatalf("second AssignTop3() error: %v", err)
	}
	if !task.Top3For("2026-03-01") {
		t.Error("task should stay assigned")
	}

	count, _ := db.Top3Count(ctx, "alice", "2026-03-01")
	if count != 1 {
		t.Errorf("count = %d after reassignment, want 1", count)
	}
}
