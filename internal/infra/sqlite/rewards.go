package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taskmint/taskmint/internal/domain"
)

// ─── Reward & Recipe Catalog ────────────────────────────────────────────────
// Static catalogs, read-only to the economy core. Recipe materials are
// persisted as a JSON array in materials_json.

// UpsertReward inserts or updates a catalog reward.
func (db *DB) UpsertReward(ctx context.Context, r domain.Reward) error {
	active := 0
	if r.Active {
		active = 1
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO rewards (id, name, active) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, active = excluded.active
	`, r.ID, r.Name, active)
	if err != nil {
		return fmt.Errorf("upsert reward: %w", err)
	}
	return nil
}

// GetReward loads one catalog reward.
func (db *DB) GetReward(ctx context.Context, id string) (domain.Reward, error) {
	var r domain.Reward
	var active int
	err := db.db.QueryRowContext(ctx, `
		SELECT id, name, active FROM rewards WHERE id = ?
	`, id).Scan(&r.ID, &r.Name, &active)
	if isNoRows(err) {
		return domain.Reward{}, domain.ErrRewardNotFound
	}
	if err != nil {
		return domain.Reward{}, fmt.Errorf("get reward: %w", err)
	}
	r.Active = active == 1
	return r, nil
}

// ActiveRewards returns every active reward — the lottery prize pool.
func ActiveRewards(ctx context.Context, q Querier) ([]domain.Reward, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, active FROM rewards WHERE active = 1 ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("active rewards: %w", err)
	}
	defer rows.Close()

	var out []domain.Reward
	for rows.Next() {
		var r domain.Reward
		var active int
		if err := rows.Scan(&r.ID, &r.Name, &active); err != nil {
			return nil, err
		}
		r.Active = active == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// ActiveRewards is the convenience read outside an engine transaction.
func (db *DB) ActiveRewards(ctx context.Context) ([]domain.Reward, error) {
	return ActiveRewards(ctx, db.db)
}

// UpsertRecipe inserts or updates a catalog recipe.
func (db *DB) UpsertRecipe(ctx context.Context, r domain.Recipe) error {
	materials, err := json.Marshal(r.Materials)
	if err != nil {
		return fmt.Errorf("marshal materials: %w", err)
	}
	_, err = db.db.ExecContext(ctx, `
		INSERT INTO recipes (id, name, result_reward_id, materials_json) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			result_reward_id = excluded.result_reward_id,
			materials_json = excluded.materials_json
	`, r.ID, r.Name, r.ResultRewardID, string(materials))
	if err != nil {
		return fmt.Errorf("upsert recipe: %w", err)
	}
	return nil
}

// GetRecipe loads one recipe with its materials decoded.
func GetRecipe(ctx context.Context, q Querier, id string) (domain.Recipe, error) {
	var r domain.Recipe
	var materialsJSON string
	err := q.QueryRowContext(ctx, `
		SELECT id, name, result_reward_id, materials_json FROM recipes WHERE id = ?
	`, id).Scan(&r.ID, &r.Name, &r.ResultRewardID, &materialsJSON)
	if isNoRows(err) {
		return domain.Recipe{}, domain.ErrRecipeNotFound
	}
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("get recipe: %w", err)
	}
	if err := json.Unmarshal([]byte(materialsJSON), &r.Materials); err != nil {
		return domain.Recipe{}, fmt.Errorf("decode materials for recipe %s: %w", id, err)
	}
	return r, nil
}

// GetRecipe is the convenience read outside an engine transaction.
func (db *DB) GetRecipe(ctx context.Context, id string) (domain.Recipe, error) {
	return GetRecipe(ctx, db.db, id)
}

// ListRecipes returns the whole recipe catalog.
func (db *DB) ListRecipes(ctx context.Context) ([]domain.Recipe, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, name, result_reward_id, materials_json FROM recipes ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var out []domain.Recipe
	for rows.Next() {
		var r domain.Recipe
		var materialsJSON string
		if err := rows.Scan(&r.ID, &r.Name, &r.ResultRewardID, &materialsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(materialsJSON), &r.Materials); err != nil {
			return nil, fmt.Errorf("decode materials for recipe %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RewardName resolves a reward id to its display name, tolerating gaps in
// the catalog (returns the id itself when unknown).
func RewardName(ctx context.Context, q Querier, id string) string {
	var name string
	if err := q.QueryRowContext(ctx, `SELECT name FROM rewards WHERE id = ?`, id).Scan(&name); err != nil {
		return id
	}
	return name
}
