package catalog

import (
	"context"
	"testing"

	"github.com/taskmint/taskmint/internal/infra/sqlite"
)

func TestLookup(t *testing.T) {
	if r := Lookup("coffee-bean"); r == nil || r.Name != "Coffee Bean" {
		t.Fatalf("Lookup(coffee-bean) = %+v", r)
	}
	if r := Lookup("no-such-reward"); r != nil {
		t.Fatalf("Lookup(no-such-reward) = %+v, want nil", r)
	}
}

func TestRecipesReferenceKnownRewards(t *testing.T) {
	for _, recipe := range Recipes {
		if Lookup(recipe.ResultRewardID) == nil {
			t.Errorf("recipe %s produces unknown reward %s", recipe.ID, recipe.ResultRewardID)
		}
		for _, m := range recipe.Materials {
			if Lookup(m.RewardID) == nil {
				t.Errorf("recipe %s requires unknown reward %s", recipe.ID, m.RewardID)
			}
			if m.Quantity <= 0 {
				t.Errorf("recipe %s material %s has quantity %d", recipe.ID, m.RewardID, m.Quantity)
			}
		}
	}
}

func TestSeed_Idempotent(t *testing.T) {
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	rewards, err := db.ActiveRewards(ctx)
	if err != nil {
		t.Fatalf("active rewards: %v", err)
	}
	if len(rewards) != len(Rewards) {
		t.Errorf("active rewards = %d, want %d", len(rewards), len(Rewards))
	}

	recipe, err := db.GetRecipe(ctx, "brew-espresso")
	if err != nil {
		t.Fatalf("get recipe: %v", err)
	}
	if recipe.ResultRewardID != "focus-token" {
		t.Errorf("result reward = %s, want focus-token", recipe.ResultRewardID)
	}
	if len(recipe.Materials) != 1 || recipe.Materials[0].Quantity != 3 {
		t.Errorf("materials = %+v", recipe.Materials)
	}
}
