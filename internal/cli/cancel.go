package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/gaffer/internal/workspace"
)

// CancelCmd archives the run state and tears down any item workspaces.
func CancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the current run, archiving its state",
		Long: `Cancel archives the state file (it is never deleted, so history survives)
and removes any git worktrees the run created.`,
		Args: cobra.NoArgs,
		RunE: runCancel,
	}
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func runCancel(cmd *cobra.Command, args []string) error {
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

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		fmt.Fprintf(cmd.OutOrStdout(), "Cancel run %s? [y/N] ", rs.RunID)
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	if rs.Options.Workspace.Enabled {
		workDir, err := os.Getwd()
		if err != nil {
			return err
		}
		mgr := workspace.NewManager(workDir, rs.Options.Workspace, log)
		for _, it := range rs.Items {
			mgr.Remove(it.Workspace)
		}
	}

	dest, err := store.Archive()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run %s cancelled; state archived to %s\n", rs.RunID, dest)
	return nil
}
