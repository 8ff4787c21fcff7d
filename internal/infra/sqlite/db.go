// Package sqlite provides durable storage for the rewards economy:
// the append-only point/reward ledgers, the task hierarchy, and the
// reward/recipe catalog. Balances are never stored — always derived.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/taskmint/taskmint/internal/domain"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection used by all stores.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the taskmint database under dir.
// The connection takes write locks up front (_txlock=immediate) so that
// every read-modify-write transaction serializes against concurrent
// writers instead of failing at upgrade time.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dsn := "file:" + filepath.Join(dir, "taskmint.db") +
		"?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// modernc's driver is safe for concurrent use, but SQLite has a
	// single writer; one connection avoids lock churn under load.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{db: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.db.Close() }

// migrate applies all schema migrations in order.
func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Task hierarchy. parent_id is a weak back-reference — no FK, a
		// parent may be archived by the CRUD layer without cascading.
		`CREATE TABLE IF NOT EXISTS tasks (
			id                    TEXT PRIMARY KEY,
			user_id               TEXT NOT NULL,
			parent_id             TEXT,
			title                 TEXT NOT NULL DEFAULT '',
			status                TEXT NOT NULL DEFAULT 'pending',
			completion_percentage REAL NOT NULL DEFAULT 0,
			claimed_at            TEXT,
			top3_date             TEXT,
			created_at            TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_top3 ON tasks(user_id, top3_date)`,

		// Points ledger: append-only, amount signed.
		`CREATE TABLE IF NOT EXISTS points_transactions (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id           TEXT NOT NULL,
			amount            INTEGER NOT NULL CHECK (amount <> 0),
			source_type       TEXT NOT NULL,
			source_id         TEXT,
			transaction_group TEXT,
			created_at        TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_points_user ON points_transactions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_points_group ON points_transactions(transaction_group)`,

		// Reward-item ledger: same shape, reward id + signed quantity.
		`CREATE TABLE IF NOT EXISTS reward_transactions (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id           TEXT NOT NULL,
			reward_id         TEXT NOT NULL REFERENCES rewards(id),
			quantity          INTEGER NOT NULL CHECK (quantity <> 0),
			source_type       TEXT NOT NULL,
			source_id         TEXT,
			transaction_group TEXT,
			created_at        TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reward_tx_user ON reward_transactions(user_id, reward_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reward_tx_group ON reward_transactions(transaction_group)`,

		// Reward catalog.
		`CREATE TABLE IF NOT EXISTS rewards (
			id     TEXT PRIMARY KEY,
			name   TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1
		)`,

		// Recipe catalog. Materials are a JSON array of
		// {"reward_id": ..., "quantity": ...} objects.
		`CREATE TABLE IF NOT EXISTS recipes (
			id               TEXT PRIMARY KEY,
			name             TEXT NOT NULL,
			result_reward_id TEXT NOT NULL REFERENCES rewards(id),
			materials_json   TEXT NOT NULL DEFAULT '[]'
		)`,
	}
}

// ─── Transactions ───────────────────────────────────────────────────────────

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Store methods that must run inside a caller-owned transaction take it
// instead of hitting the connection directly.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// maxTxRetries bounds the retry loop on lock contention before the
// conflict is surfaced to the caller.
const maxTxRetries = 3

// WithTx runs fn inside one immediate (write-locking) transaction. The
// check-then-act sequences of the economy core (claim check-and-set,
// material read-then-consume) rely on this: two racing callers serialize
// on the write lock, so both can never observe the same pre-state.
//
// Busy/locked errors are retried up to maxTxRetries times with a short
// backoff, then reported as domain.ErrConflict. Any error from fn rolls
// the whole transaction back — a half-written group is impossible.
func (db *DB) WithTx(ctx context.Context, fn func(q Querier) error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}

		err := db.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", domain.ErrConflict, lastErr)
}

func (db *DB) runTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// isBusy reports whether err is SQLite lock contention (SQLITE_BUSY or
// SQLITE_LOCKED) rather than a real failure.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

// ─── Helpers ────────────────────────────────────────────────────────────────

const sqliteTimeLayout = "2006-01-02 15:04:05"

// formatTime stores timestamps the way SQLite's datetime('now') does.
func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

// parseTime accepts both datetime('now') output and RFC 3339.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(sqliteTimeLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// nullString maps "" to NULL for optional columns.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isNoRows reports sql.ErrNoRows, wrapped or not.
func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }
