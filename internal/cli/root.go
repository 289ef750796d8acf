// Package cli wires the command surface: every subcommand is a thin driver
// over the planning, state, and dispatch engine.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/gaffer/internal/config"
	"github.com/example/gaffer/internal/logger"
	"github.com/example/gaffer/internal/state"
	"github.com/example/gaffer/internal/version"
)

// Root assembles the gaffer command tree.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:     "gaffer",
		Short:   "gaffer schedules and supervises AI coding workers",
		Version: version.String(),
		Long: `Gaffer turns a specification or a directory of work items into a
dependency-leveled execution plan, then drives external AI coding workers
through it phase by phase with durable, resumable state.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("state-file", state.DefaultFile, "run state file")
	root.PersistentFlags().String("config", config.DefaultPath, "options file")
	root.PersistentFlags().String("log-level", "", "override configured log level")

	root.AddCommand(
		PlanCmd(),
		RunCmd(),
		StatusCmd(),
		AddCmd(),
		RemoveCmd(),
		ReplanCmd(),
		PauseCmd(),
		ResumeCmd(),
		CancelCmd(),
		HistoryCmd(),
	)
	return root
}

func loadOptions(cmd *cobra.Command) (config.Options, error) {
	path, _ := cmd.Flags().GetString("config")
	opts, err := config.Load(path)
	if err != nil {
		return config.Options{}, err
	}
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		opts.LogLevel = override
	}
	return opts, nil
}

func newLogger(opts config.Options) logger.Logger {
	return logger.NewStdoutLogger(logger.ParseLevel(opts.LogLevel))
}

func runStore(cmd *cobra.Command) *state.Store {
	path, _ := cmd.Flags().GetString("state-file")
	return state.NewStore(path)
}

func loadRun(store *state.Store) (*state.RunState, error) {
	rs, err := store.Load()
	if errors.Is(err, state.ErrNoRun) {
		return nil, fmt.Errorf("no active run (missing %s); create one with `gaffer plan <spec>`", store.Path)
	}
	return rs, err
}
