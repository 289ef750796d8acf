package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/gaffer/internal/item"
	"github.com/example/gaffer/internal/plan"
	"github.com/example/gaffer/internal/state"
	"github.com/example/gaffer/internal/worker"
)

// PlanCmd creates a run from a spec file or from existing item files.
func PlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [spec-file]",
		Short: "Create a run plan from a spec or from existing items",
		Long: `Plan analyzes a spec file into work items, or levels already-written item
files (--from-existing), and writes the initial run state. Dependencies are
topologically leveled into phases; items in the same phase may run in parallel.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPlan,
	}
	cmd.Flags().String("items-dir", "items", "directory holding item files")
	cmd.Flags().String("folder", "", "subfolder for generated or discovered items")
	cmd.Flags().Bool("from-existing", false, "plan over item files already on disk")
	cmd.Flags().String("include", "", "restrict to an item range, e.g. 001-005,010")
	cmd.Flags().String("exclude", "", "drop an item range from the plan")
	cmd.Flags().String("plan-file", ".gaffer/plan.md", "where to write the rendered plan")
	cmd.Flags().Bool("force", false, "replace an existing run")
	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	log := newLogger(opts)
	store := runStore(cmd)

	force, _ := cmd.Flags().GetBool("force")
	if existing, err := store.Load(); err == nil && !force {
		return fmt.Errorf("run %s already exists at %s; cancel it or pass --force", existing.RunID, store.Path)
	}

	itemsDir, _ := cmd.Flags().GetString("items-dir")
	folder, _ := cmd.Flags().GetString("folder")
	fromExisting, _ := cmd.Flags().GetBool("from-existing")

	params := plan.Params{
		ItemsDir: itemsDir,
		Folder:   folder,
		Options:  opts,
		Feed:     worker.NewCommandFeed(),
		Log:      log,
	}

	rs, err := buildRun(cmd, args, fromExisting, params)
	if err != nil {
		return err
	}
	if err := store.Save(rs); err != nil {
		return err
	}

	planFile, _ := cmd.Flags().GetString("plan-file")
	if planFile != "" {
		if err := os.MkdirAll(filepath.Dir(planFile), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(planFile, []byte(plan.Render(rs)), 0644); err != nil {
			return fmt.Errorf("failed to write plan file: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Planned run %s: %d item(s) across %d phase(s)\n",
		rs.RunID, len(rs.Items), rs.TotalPhases)
	if rs.CycleFallback {
		fmt.Fprintln(cmd.OutOrStdout(), "Warning: dependency cycle detected; the final phase runs sequentially")
	}
	if planFile != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Plan written to %s\n", planFile)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Start execution with `gaffer run`")
	return nil
}

func buildRun(cmd *cobra.Command, args []string, fromExisting bool, params plan.Params) (*state.RunState, error) {
	if fromExisting {
		include, _ := cmd.Flags().GetString("include")
		exclude, _ := cmd.Flags().GetString("exclude")
		existing, err := item.NewStore(params.ItemsDir).Discover(item.DiscoverOptions{
			Include: include,
			Exclude: exclude,
			Folder:  params.Folder,
		})
		if err != nil {
			return nil, err
		}
		return plan.FromExisting(existing, params)
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("a spec file is required unless --from-existing is set")
	}
	specPath := args[0]
	content, err := os.ReadFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec: %w", err)
	}
	params.SpecPath = specPath
	params.SpecContent = string(content)
	return plan.NewRun(params)
}
