package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/gaffer/internal/plan"
	"github.com/example/gaffer/internal/worker"
)

// ReplanCmd rebuilds the run's phases from the item files on disk.
func ReplanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replan",
		Short: "Rebuild phases from item files after edits",
		Long: `Replan re-reads every item file's dependency declarations, re-levels the
graph, and reassigns workers for still-pending items. Completed and failed
items are untouched.`,
		Args: cobra.NoArgs,
		RunE: runReplan,
	}
	cmd.Flags().String("plan-file", "", "also rewrite the rendered plan to this path")
	return cmd
}

func runReplan(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	log := newLogger(opts)
	store := runStore(cmd)
	rs, err := loadRun(store)
	if err != nil {
		return err
	}

	plan.Replan(rs, worker.NewCommandFeed(), log)
	if err := store.Save(rs); err != nil {
		return err
	}

	if planFile, _ := cmd.Flags().GetString("plan-file"); planFile != "" {
		if err := os.MkdirAll(filepath.Dir(planFile), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(planFile, []byte(plan.Render(rs)), 0644); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Replanned run %s: %d phase(s), resuming at phase %d\n",
		rs.RunID, rs.TotalPhases, min(rs.CurrentPhase, rs.TotalPhases))
	if rs.CycleFallback {
		fmt.Fprintln(cmd.OutOrStdout(), "Warning: dependency cycle detected; the final phase runs sequentially")
	}
	return nil
}
