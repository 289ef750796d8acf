package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/gaffer/internal/status"
)

// StatusCmd prints the current run's full status report.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current run's progress and per-item status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := loadRun(runStore(cmd))
			if err != nil {
				return err
			}
			status.Summarize(cmd.OutOrStdout(), rs)
			return nil
		},
	}
}
