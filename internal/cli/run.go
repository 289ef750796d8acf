package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/gaffer/internal/banner"
	"github.com/example/gaffer/internal/config"
	"github.com/example/gaffer/internal/dispatch"
	"github.com/example/gaffer/internal/item"
	"github.com/example/gaffer/internal/logger"
	"github.com/example/gaffer/internal/state"
	"github.com/example/gaffer/internal/status"
	"github.com/example/gaffer/internal/verify"
	"github.com/example/gaffer/internal/worker"
	"github.com/example/gaffer/internal/workspace"
)

const defaultLogDir = ".gaffer/logs"

// RunCmd executes the planned run phase by phase.
func RunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the current run until done, paused, or a phase fails",
		Long: `Run dispatches pending items phase by phase, bounded by max_parallel.
Interrupting with Ctrl-C records a pause marker; `+"`gaffer resume`"+` and a new
`+"`gaffer run`"+` pick up exactly where the run left off.`,
		Args: cobra.NoArgs,
		RunE: runRun,
	}
	cmd.Flags().Int("max-parallel", 0, "override the configured parallelism for this invocation")
	cmd.Flags().Bool("workspace", false, "run each item in its own git worktree")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
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
	if override, _ := cmd.Flags().GetInt("max-parallel"); override > 0 {
		rs.Options.MaxParallel = override
	}
	if useWorkspace, _ := cmd.Flags().GetBool("workspace"); useWorkspace {
		rs.Options.Workspace.Enabled = true
	}
	if rs.PausedAt != nil {
		log.Info("run was paused; resuming")
	}

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}
	registry := worker.NewRegistry()

	if rs.Options.Workspace.Enabled {
		if err := provisionWorkspaces(rs, workDir, log); err != nil {
			return err
		}
		if err := store.Save(rs); err != nil {
			return err
		}
	}

	var exec dispatch.ItemExecutor
	if rs.Options.LoopEnabled() {
		exec = &dispatch.LoopExecutor{
			Registry:  registry,
			LoopStore: verify.NewStateStore(""),
			WorkDir:   workDir,
			LogDir:    defaultLogDir,
			Log:       log,
		}
	} else {
		exec = &dispatch.WorkerExecutor{
			Registry: registry,
			WorkDir:  workDir,
			LogDir:   defaultLogDir,
			Log:      log,
		}
	}

	banner.NewWithWriter(cmd.OutOrStdout()).Print(rs)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := dispatch.New(store, exec, worker.NewCommandFeed(), registry, log)
	configPath, _ := cmd.Flags().GetString("config")
	watchOptions(ctx, d, configPath, log)
	runErr := d.Run(ctx, rs)

	fmt.Fprintln(cmd.OutOrStdout())
	status.Summarize(cmd.OutOrStdout(), rs)

	if errors.Is(runErr, dispatch.ErrPaused) {
		fmt.Fprintln(cmd.OutOrStdout(), "\nRun paused. Continue with `gaffer run`.")
		return nil
	}
	return runErr
}

// provisionWorkspaces creates a worktree for every pending item that does not
// have one yet and seeds it with the item's content as TASK.md. Items already
// carrying a workspace keep it across resumes.
func provisionWorkspaces(rs *state.RunState, workDir string, log logger.Logger) error {
	mgr := workspace.NewManager(workDir, rs.Options.Workspace, log)
	for i := range rs.Items {
		it := &rs.Items[i]
		if it.Status != item.StatusPending || it.Workspace != nil {
			continue
		}
		ref, err := mgr.Create(rs.RunID, it.ID)
		if err != nil {
			return fmt.Errorf("workspace for %s: %w", it.ID, err)
		}
		if content, err := os.ReadFile(it.Path); err == nil {
			if err := mgr.Seed(ref, string(content)); err != nil {
				log.Warn("failed to seed workspace", logger.F("item", it.ID), logger.F("error", err))
			}
		}
		it.Workspace = ref
	}
	return nil
}

// watchOptions hot-reloads the options file while a run dispatches; changed
// tuning applies at the next phase boundary. Watch failures only disable the
// reload, never the run.
func watchOptions(ctx context.Context, d *dispatch.Dispatcher, configPath string, log logger.Logger) {
	watcher, err := config.NewWatcher(configPath)
	if err != nil {
		log.Debug("config watcher unavailable", logger.F("error", err))
		return
	}
	if err := watcher.Start(ctx); err != nil {
		log.Debug("config watch not started", logger.F("error", err))
		return
	}

	var latest atomic.Pointer[config.Options]
	go func() {
		for ev := range watcher.Events() {
			if ev.Error != nil {
				log.Warn("config reload failed", logger.F("error", ev.Error))
				continue
			}
			opts := ev.Options
			latest.Store(&opts)
		}
	}()

	d.SetReload(func() (config.Options, bool) {
		if opts := latest.Swap(nil); opts != nil {
			return *opts, true
		}
		return config.Options{}, false
	})
}
