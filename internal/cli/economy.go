package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taskmint/taskmint/internal/app/economy"
	"github.com/taskmint/taskmint/internal/domain"
	"github.com/taskmint/taskmint/internal/infra/catalog"
)

func init() {
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(redeemCmd)
	rootCmd.AddCommand(seedCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "number of rows")
}

// ─── taskmint balance ───────────────────────────────────────────────────────

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the derived point balance and reward items on hand",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		uid := actingUser(cmd)
		balance, err := db.Balance(cmd.Context(), uid)
		if err != nil {
			return err
		}
		fmt.Printf("points: %d\n", balance)

		rewards, err := db.ActiveRewards(cmd.Context())
		if err != nil {
			return err
		}
		for _, r := range rewards {
			qty, err := db.OnHand(cmd.Context(), uid, r.ID)
			if err != nil {
				return err
			}
			if qty != 0 {
				fmt.Printf("%s: %d\n", r.Name, qty)
			}
		}
		return nil
	},
}

// ─── taskmint history ───────────────────────────────────────────────────────

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent ledger rows, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		uid := actingUser(cmd)
		limit, _ := cmd.Flags().GetInt("limit")

		points, err := db.PointsHistory(cmd.Context(), uid, limit)
		if err != nil {
			return err
		}
		items, err := db.RewardHistory(cmd.Context(), uid, limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tKIND\tAMOUNT\tSOURCE\tGROUP")
		for _, ptx := range points {
			fmt.Fprintf(w, "%s\tpoints\t%+d\t%s\t%s\n",
				ptx.CreatedAt.Format("2006-01-02 15:04"), ptx.Amount, ptx.SourceType, ptx.TransactionGroup)
		}
		for _, rtx := range items {
			fmt.Fprintf(w, "%s\t%s\t%+d\t%s\t%s\n",
				rtx.CreatedAt.Format("2006-01-02 15:04"), rtx.RewardID, rtx.Quantity, rtx.SourceType, rtx.TransactionGroup)
		}
		return w.Flush()
	},
}

// ─── taskmint redeem ────────────────────────────────────────────────────────

var redeemCmd = &cobra.Command{
	Use:   "redeem RECIPE_ID",
	Short: "Redeem a recipe: consume materials, produce the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		crafter := economy.NewCrafter(db, logger)
		result, err := crafter.Redeem(cmd.Context(), actingUser(cmd), args[0])
		if err != nil {
			if im, ok := domain.IsInsufficientMaterials(err); ok {
				fmt.Fprintln(os.Stderr, "insufficient materials:")
				for _, s := range im.Required {
					fmt.Fprintf(os.Stderr, "  %s: have %d, need %d\n", s.RewardID, s.Current, s.Required)
				}
			}
			return err
		}

		fmt.Printf("crafted %s (group %s)\n", result.ResultRewardName, result.TransactionGroup)
		return nil
	},
}

// ─── taskmint seed ──────────────────────────────────────────────────────────

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the built-in reward and recipe catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := catalog.Seed(cmd.Context(), db); err != nil {
			return err
		}
		fmt.Printf("seeded %d rewards, %d recipes\n", len(catalog.Rewards), len(catalog.Recipes))
		return nil
	},
}
