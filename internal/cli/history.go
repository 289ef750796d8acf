package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// HistoryCmd lists current and archived runs sharing the state file path.
func HistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List current and cancelled runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := runStore(cmd).History()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
				return nil
			}

			w := cmd.OutOrStdout()
			bold := color.New(color.Bold)
			bold.Fprintf(w, "%-36s %-20s %-10s %s\n", "RUN", "CREATED", "PROGRESS", "STATE")
			for _, e := range entries {
				if e.Err != nil {
					color.New(color.FgRed).Fprintf(w, "%-36s %-20s %-10s unreadable: %v\n", e.File, "-", "-", e.Err)
					continue
				}
				status := "active"
				if e.Cancelled {
					status = "cancelled"
				}
				fmt.Fprintf(w, "%-36s %-20s %-10s %s\n",
					e.RunID,
					e.CreatedAt.Format(time.RFC3339),
					fmt.Sprintf("%d/%d", e.Completed, e.Total),
					status)
			}
			return nil
		},
	}
}
