// Package catalog ships the built-in starter rewards and recipes.
// The catalog is static: the economy core only reads it, and `taskmint
// seed` loads it into a fresh database.
package catalog

import (
	"context"

	"github.com/taskmint/taskmint/internal/domain"
	"github.com/taskmint/taskmint/internal/infra/sqlite"
)

// Rewards is the default reward catalog. All entries are lottery-eligible.
var Rewards = []domain.Reward{
	{ID: "coffee-bean", Name: "Coffee Bean", Active: true},
	{ID: "gold-star", Name: "Gold Star", Active: true},
	{ID: "focus-token", Name: "Focus Token", Active: true},
	{ID: "cinema-ticket", Name: "Cinema Ticket", Active: true},
	{ID: "golden-trophy", Name: "Golden Trophy", Active: true},
}

// Recipes is the default recipe catalog.
var Recipes = []domain.Recipe{
	{
		ID:             "brew-espresso",
		Name:           "Brew an Espresso",
		ResultRewardID: "focus-token",
		Materials: []domain.RecipeMaterial{
			{RewardID: "coffee-bean", Quantity: 3},
		},
	},
	{
		ID:             "trophy-cabinet",
		Name:           "Trophy Cabinet",
		ResultRewardID: "golden-trophy",
		Materials: []domain.RecipeMaterial{
			{RewardID: "gold-star", Quantity: 5},
			{RewardID: "focus-token", Quantity: 2},
		},
	},
}

// Lookup returns the default reward with the given id, or nil.
func Lookup(id string) *domain.Reward {
	for i := range Rewards {
		if Rewards[i].ID == id {
			return &Rewards[i]
		}
	}
	return nil
}

// Seed loads the default catalog into the database. Idempotent —
// existing entries are updated in place.
func Seed(ctx context.Context, db *sqlite.DB) error {
	for _, r := range Rewards {
		if err := db.UpsertReward(ctx, r); err != nil {
			return err
		}
	}
	for _, r := range Recipes {
		if err := db.UpsertRecipe(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
