package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskmint/taskmint/internal/domain"
)

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(uncompleteCmd)
	rootCmd.AddCommand(top3Cmd)

	addCmd.Flags().StringP("parent", "p", "", "parent task id")
}

// ─── taskmint add ───────────────────────────────────────────────────────────

var addCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Create a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		parent, _ := cmd.Flags().GetString("parent")
		uid := actingUser(cmd)
		if parent != "" {
			if _, err := db.GetTask(cmd.Context(), uid, parent); err != nil {
				return err
			}
		}

		task := domain.Task{
			ID:        uuid.NewString(),
			UserID:    uid,
			ParentID:  parent,
			Title:     args[0],
			Status:    domain.TaskPending,
			CreatedAt: time.Now().UTC(),
		}
		if err := db.InsertTask(cmd.Context(), task); err != nil {
			return err
		}
		fmt.Printf("created %s\n", task.ID)
		return nil
	},
}

// ─── taskmint list ──────────────────────────────────────────────────────────

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks with completion percentages",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		tasks, err := db.ListTasks(cmd.Context(), actingUser(cmd))
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tDONE%\tCLAIMED\tTOP3")
		for _, t := range tasks {
			claimed := ""
			if t.Claimed() {
				claimed = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\t%s\n",
				t.ID, t.Title, t.Status, t.CompletionPercentage, claimed, t.Top3Date)
		}
		return w.Flush()
	},
}

// ─── taskmint complete / uncomplete ─────────────────────────────────────────

var completeCmd = &cobra.Command{
	Use:   "complete TASK_ID",
	Short: "Complete a task and claim its reward",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		_, result, err := newEngine(db).Complete(cmd.Context(), actingUser(cmd), args[0])
		if err != nil {
			return err
		}

		if result.AlreadyCompleted {
			fmt.Println(result.Message)
			return nil
		}
		fmt.Printf("+%d points (%s)\n", result.PointsAwarded, result.RewardType)
		if result.Lottery != nil && result.Lottery.Won {
			fmt.Printf("lottery prize: %s\n", result.Lottery.PrizeName)
		}
		return nil
	},
}

var uncompleteCmd = &cobra.Command{
	Use:   "uncomplete TASK_ID",
	Short: "Set a completed task back to pending (rewards are kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if _, err := newEngine(db).Uncomplete(cmd.Context(), actingUser(cmd), args[0]); err != nil {
			return err
		}
		fmt.Println("task set back to pending")
		return nil
	},
}

// ─── taskmint top3 ──────────────────────────────────────────────────────────

var top3Cmd = &cobra.Command{
	Use:   "top3 TASK_ID",
	Short: "Assign a task to today's Top3 (lottery-eligible)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		task, err := newEngine(db).AssignTop3(cmd.Context(), actingUser(cmd), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s assigned to Top3 for %s\n", task.ID, task.Top3Date)
		return nil
	},
}
