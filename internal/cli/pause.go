package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/gaffer/internal/item"
)

// PauseCmd records a pause marker so the next `gaffer run` must be preceded
// by an explicit resume decision, or simply documents an operator-initiated
// stop between phases.
func PauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Mark the run paused",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := runStore(cmd)
			rs, err := loadRun(store)
			if err != nil {
				return err
			}
			if rs.PausedAt != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Run already paused at %s\n", rs.PausedAt.Format(time.RFC3339))
				return nil
			}
			now := time.Now().UTC()
			rs.PausedAt = &now
			if err := store.Save(rs); err != nil {
				return err
			}

			inFlight := rs.CountByStatus()[item.StatusInProgress]
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s paused.\n", rs.RunID)
			if inFlight > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d item(s) still marked in progress; they are re-queued on the next run.\n", inFlight)
			}
			return nil
		},
	}
}
