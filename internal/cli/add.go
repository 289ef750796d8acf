package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/gaffer/internal/item"
	"github.com/example/gaffer/internal/plan"
	"github.com/example/gaffer/internal/state"
	"github.com/example/gaffer/internal/worker"
)

// AddCmd writes a new item file and schedules it into the active run.
func AddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a work item to the current run",
		Long: `Add creates a numbered item file from the given title, declares its
dependencies (--depends-on), and replans the run's phases around it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAdd,
	}
	cmd.Flags().String("depends-on", "", "comma-separated item ids this item depends on")
	cmd.Flags().String("folder", "", "subfolder of the items directory")
	cmd.Flags().String("description", "", "item body; defaults to the title")
	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
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

	title := strings.Join(args, " ")
	description, _ := cmd.Flags().GetString("description")
	if description == "" {
		description = title
	}
	folder, _ := cmd.Flags().GetString("folder")

	itemsDir := rs.ItemsDir
	if itemsDir == "" {
		itemsDir = "items"
	}

	content := plan.ItemContent(title, description)
	if dependsOn, _ := cmd.Flags().GetString("depends-on"); dependsOn != "" {
		var ids []string
		for _, raw := range strings.Split(dependsOn, ",") {
			id := item.NormalizeID(strings.TrimSpace(raw))
			if _, ok := rs.Item(id); !ok {
				return fmt.Errorf("%w: %s", state.ErrUnknownItem, raw)
			}
			ids = append(ids, id)
		}
		// The dependency line lives in the file itself so replans from disk
		// reproduce the graph.
		lines := strings.SplitN(content, "\n", 2)
		content = lines[0] + "\n\nDepends on: " + strings.Join(ids, ", ") + "\n"
		if len(lines) > 1 {
			content += lines[1]
		}
	}

	created, err := item.NewStore(itemsDir).Create(title, content, folder)
	if err != nil {
		return err
	}

	rs.Items = append(rs.Items, state.ItemState{
		ID:     created.Ref,
		Title:  title,
		Path:   created.Path,
		Status: item.StatusPending,
	})
	plan.Replan(rs, worker.NewCommandFeed(), log)
	if err := store.Save(rs); err != nil {
		return err
	}

	it, _ := rs.Item(created.Ref)
	fmt.Fprintf(cmd.OutOrStdout(), "Added item %s (%s) assigned to %s; run now has %d phase(s)\n",
		created.Ref, created.Name, it.Worker, rs.TotalPhases)
	return nil
}
