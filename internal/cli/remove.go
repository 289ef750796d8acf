package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/gaffer/internal/item"
	"github.com/example/gaffer/internal/plan"
	"github.com/example/gaffer/internal/state"
	"github.com/example/gaffer/internal/worker"
)

// RemoveCmd marks an item skipped. The file stays on disk and the item stays
// in the run's history; it is only unscheduled.
func RemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Skip an item and replan around it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			id := item.NormalizeID(args[0])
			it, ok := rs.Item(id)
			if !ok {
				return fmt.Errorf("%w: %s", state.ErrUnknownItem, args[0])
			}
			if it.Status == item.StatusInProgress {
				return fmt.Errorf("item %s is in progress; pause the run first", id)
			}

			if dependents := plan.Dependents(rs.Dependencies, id); len(dependents) > 0 {
				color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(),
					"Warning: %s is a dependency of %s; those items will run without it\n",
					id, strings.Join(dependents, ", "))
			}

			it.Status = item.StatusSkipped
			it.Reason = "removed by operator"
			plan.Replan(rs, worker.NewCommandFeed(), log)
			if err := store.Save(rs); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Item %s skipped; run now has %d phase(s)\n", id, rs.TotalPhases)
			return nil
		},
	}
}
