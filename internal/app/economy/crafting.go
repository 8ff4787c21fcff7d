package economy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskmint/taskmint/internal/domain"
	"github.com/taskmint/taskmint/internal/infra/observability"
	"github.com/taskmint/taskmint/internal/infra/sqlite"
)

// ─── Recipe Crafting ────────────────────────────────────────────────────────
// "Consume N materials, produce 1 result" as one indivisible ledger
// group: either all N+1 rows commit or none do. Partial consumption is
// impossible by construction.

// Crafter executes recipe redemptions against the ledger.
type Crafter struct {
	db  *sqlite.DB
	log zerolog.Logger
	now func() time.Time
}

// NewCrafter creates a crafting engine.
func NewCrafter(db *sqlite.DB, log zerolog.Logger) *Crafter {
	return &Crafter{
		db:  db,
		log: log.With().Str("component", "crafting").Logger(),
		now: time.Now,
	}
}

// WithClock substitutes the crafter's clock (tests).
func (c *Crafter) WithClock(now func() time.Time) *Crafter {
	c.now = now
	return c
}

// Redeem validates and executes one recipe redemption. The on-hand reads
// and the group append share a single write-locking transaction, so a
// racing redemption of the same materials cannot double-spend them.
//
// When any material is short the error carries the complete shortfall
// list — every short material, not just the first — and no ledger rows
// are written.
func (c *Crafter) Redeem(ctx context.Context, userID, recipeID string) (domain.RedeemResult, error) {
	var result domain.RedeemResult

	err := c.db.WithTx(ctx, func(q sqlite.Querier) error {
		recipe, err := sqlite.GetRecipe(ctx, q, recipeID)
		if err != nil {
			return err
		}

		// A recipe may list the same material on more than one line; the
		// check must run against the aggregated totals or a duplicate
		// line could drive on-hand negative.
		required := make(map[string]int64, len(recipe.Materials))
		order := make([]string, 0, len(recipe.Materials))
		for _, m := range recipe.Materials {
			if _, seen := required[m.RewardID]; !seen {
				order = append(order, m.RewardID)
			}
			required[m.RewardID] += m.Quantity
		}

		var short []domain.MaterialShortfall
		for _, id := range order {
			current, err := sqlite.OnHand(ctx, q, userID, id)
			if err != nil {
				return err
			}
			if current < required[id] {
				short = append(short, domain.MaterialShortfall{
					RewardID: id,
					Required: required[id],
					Current:  current,
				})
			}
		}
		if len(short) > 0 {
			return &domain.InsufficientMaterialsError{RecipeID: recipe.ID, Required: short}
		}

		group := uuid.NewString()
		now := c.now().UTC()

		entries := make([]domain.RewardEntry, 0, len(recipe.Materials)+1)
		consumed := make([]domain.ConsumedMaterial, 0, len(recipe.Materials))
		for _, m := range recipe.Materials {
			entries = append(entries, domain.RewardEntry{
				UserID:     userID,
				RewardID:   m.RewardID,
				Quantity:   -m.Quantity,
				SourceType: domain.SourceRecipeConsume,
				SourceID:   recipe.ID,
			})
			consumed = append(consumed, domain.ConsumedMaterial{RewardID: m.RewardID, Quantity: m.Quantity})
		}
		entries = append(entries, domain.RewardEntry{
			UserID:     userID,
			RewardID:   recipe.ResultRewardID,
			Quantity:   1,
			SourceType: domain.SourceRecipeProduce,
			SourceID:   recipe.ID,
		})

		if err := sqlite.AppendRewardGroup(ctx, q, group, entries, now); err != nil {
			return err
		}

		result = domain.RedeemResult{
			ResultRewardID:    recipe.ResultRewardID,
			ResultRewardName:  sqlite.RewardName(ctx, q, recipe.ResultRewardID),
			MaterialsConsumed: consumed,
			TransactionGroup:  group,
		}
		return nil
	})
	if err != nil {
		if _, ok := domain.IsInsufficientMaterials(err); ok {
			observability.Redemptions.WithLabelValues("insufficient").Inc()
		}
		return domain.RedeemResult{}, err
	}

	observability.Redemptions.WithLabelValues("ok").Inc()
	c.log.Info().
		Str("recipe", recipeID).
		Str("user", userID).
		Str("group", result.TransactionGroup).
		Msg("recipe redeemed")
	return result, nil
}
