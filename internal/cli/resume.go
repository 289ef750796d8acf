package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/gaffer/internal/state"
)

// ResumeCmd clears the pause marker.
func ResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Clear the pause marker so the run can continue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := runStore(cmd)
			rs, err := loadRun(store)
			if err != nil {
				return err
			}
			if rs.PausedAt == nil {
				return fmt.Errorf("%w: %s", state.ErrNotPaused, rs.RunID)
			}
			rs.PausedAt = nil
			if err := store.Save(rs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s resumed at phase %d of %d. Continue with `gaffer run`.\n",
				rs.RunID, min(rs.CurrentPhase, rs.TotalPhases), rs.TotalPhases)
			return nil
		},
	}
}
