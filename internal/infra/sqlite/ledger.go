package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskmint/taskmint/internal/domain"
)

// ─── Ledger Store ───────────────────────────────────────────────────────────
// Append-only. The only write operations are inserts; balance and on-hand
// are SUM aggregations over the rows so the ledger stays auditable — the
// history IS the balance. Functions take a Querier so the economy engines
// can run them inside their own WithTx scope.

// AppendPoints inserts one immutable points row and returns it with its
// assigned id.
func AppendPoints(ctx context.Context, q Querier, ptx domain.PointsTransaction) (domain.PointsTransaction, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO points_transactions (user_id, amount, source_type, source_id, transaction_group, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ptx.UserID, ptx.Amount, string(ptx.SourceType), nullString(ptx.SourceID),
		nullString(ptx.TransactionGroup), formatTime(ptx.CreatedAt))
	if err != nil {
		return domain.PointsTransaction{}, fmt.Errorf("append points: %w", err)
	}
	ptx.ID, _ = res.LastInsertId()
	return ptx, nil
}

// AppendReward inserts one immutable reward-item row and returns it with
// its assigned id.
func AppendReward(ctx context.Context, q Querier, rtx domain.RewardTransaction) (domain.RewardTransaction, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO reward_transactions (user_id, reward_id, quantity, source_type, source_id, transaction_group, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rtx.UserID, rtx.RewardID, rtx.Quantity, string(rtx.SourceType), nullString(rtx.SourceID),
		nullString(rtx.TransactionGroup), formatTime(rtx.CreatedAt))
	if err != nil {
		return domain.RewardTransaction{}, fmt.Errorf("append reward: %w", err)
	}
	rtx.ID, _ = res.LastInsertId()
	return rtx, nil
}

// AppendRewardGroup appends all entries under one shared transaction
// group. It must be called inside a transaction: if any insert fails the
// caller's rollback discards the whole group, never a partial set.
func AppendRewardGroup(ctx context.Context, q Querier, group string, entries []domain.RewardEntry, now time.Time) error {
	for _, e := range entries {
		_, err := AppendReward(ctx, q, domain.RewardTransaction{
			UserID:           e.UserID,
			RewardID:         e.RewardID,
			Quantity:         e.Quantity,
			SourceType:       e.SourceType,
			SourceID:         e.SourceID,
			TransactionGroup: group,
			CreatedAt:        now,
		})
		if err != nil {
			return fmt.Errorf("append group %s: %w", group, err)
		}
	}
	return nil
}

// PointsBalance derives the user's balance: SUM(amount) over all rows.
func PointsBalance(ctx context.Context, q Querier, userID string) (int64, error) {
	var balance int64
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM points_transactions WHERE user_id = ?
	`, userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("points balance: %w", err)
	}
	return balance, nil
}

// OnHand derives the user's held quantity of one reward: SUM(quantity).
func OnHand(ctx context.Context, q Querier, userID, rewardID string) (int64, error) {
	var qty int64
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM reward_transactions
		WHERE user_id = ? AND reward_id = ?
	`, userID, rewardID).Scan(&qty)
	if err != nil {
		return 0, fmt.Errorf("on hand: %w", err)
	}
	return qty, nil
}

// ─── Convenience reads (outside any engine transaction) ─────────────────────

// Balance returns the user's current point balance.
func (db *DB) Balance(ctx context.Context, userID string) (int64, error) {
	return PointsBalance(ctx, db.db, userID)
}

// OnHand returns the user's current quantity of one reward.
func (db *DB) OnHand(ctx context.Context, userID, rewardID string) (int64, error) {
	return OnHand(ctx, db.db, userID, rewardID)
}

// PointsHistory returns the user's most recent point rows, newest first.
func (db *DB) PointsHistory(ctx context.Context, userID string, limit int) ([]domain.PointsTransaction, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, user_id, amount, source_type, source_id, transaction_group, created_at
		FROM points_transactions
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("points history: %w", err)
	}
	defer rows.Close()

	var out []domain.PointsTransaction
	for rows.Next() {
		var ptx domain.PointsTransaction
		var sourceType, createdAt string
		var sourceID, group sql.NullString
		if err := rows.Scan(&ptx.ID, &ptx.UserID, &ptx.Amount, &sourceType, &sourceID, &group, &createdAt); err != nil {
			return nil, err
		}
		ptx.SourceType = domain.SourceType(sourceType)
		ptx.SourceID = sourceID.String
		ptx.TransactionGroup = group.String
		if ptx.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, ptx)
	}
	return out, rows.Err()
}

// RewardHistory returns the user's most recent reward rows, newest first.
func (db *DB) RewardHistory(ctx context.Context, userID string, limit int) ([]domain.RewardTransaction, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, user_id, reward_id, quantity, source_type, source_id, transaction_group, created_at
		FROM reward_transactions
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("reward history: %w", err)
	}
	defer rows.Close()

	var out []domain.RewardTransaction
	for rows.Next() {
		var rtx domain.RewardTransaction
		var sourceType, createdAt string
		var sourceID, group sql.NullString
		if err := rows.Scan(&rtx.ID, &rtx.UserID, &rtx.RewardID, &rtx.Quantity, &sourceType, &sourceID, &group, &createdAt); err != nil {
			return nil, err
		}
		rtx.SourceType = domain.SourceType(sourceType)
		rtx.SourceID = sourceID.String
		rtx.TransactionGroup = group.String
		if rtx.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, rtx)
	}
	return out, rows.Err()
}

// GroupRows returns every reward row tagged with the transaction group.
func (db *DB) GroupRows(ctx context.Context, group string) ([]domain.RewardTransaction, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, user_id, reward_id, quantity, source_type, source_id, transaction_group, created_at
		FROM reward_transactions
		WHERE transaction_group = ?
		ORDER BY id
	`, group)
	if err != nil {
		return nil, fmt.Errorf("group rows: %w", err)
	}
	defer rows.Close()

	var out []domain.RewardTransaction
	for rows.Next() {
		var rtx domain.RewardTransaction
		var sourceType, createdAt string
		var sourceID, g sql.NullString
		if err := rows.Scan(&rtx.ID, &rtx.UserID, &rtx.RewardID, &rtx.Quantity, &sourceType, &sourceID, &g, &createdAt); err != nil {
			return nil, err
		}
		rtx.SourceType = domain.SourceType(sourceType)
		rtx.SourceID = sourceID.String
		rtx.TransactionGroup = g.String
		if rtx.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, rtx)
	}
	return out, rows.Err()
}
