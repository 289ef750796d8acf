package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/example/gaffer/internal/logger"
	"github.com/example/gaffer/internal/worker"
)

// InvokeFunc runs one worker iteration against wrapped content in dir,
// logging to logFile. worker.Run has this shape once an invocation is bound.
type InvokeFunc func(ctx context.Context, content, dir, logFile string) (worker.Result, error)

// Params binds one loop run to an item.
type Params struct {
	ItemID           string
	ItemPath         string
	Worker           string
	Dir              string
	Workspace        string
	Branch           string
	Content          string
	MaxIterations    int
	CompletionMarker string
}

// Outcome is the terminal result of a loop run.
type Outcome struct {
	Status     Status
	Iterations int
	State      *LoopState
}

// Runner drives the verification loop for items. The invoke function is the
// only coupling to worker execution, keeping the loop testable without
// spawning processes.
type Runner struct {
	store  *StateStore
	logDir string
	log    logger.Logger
	invoke InvokeFunc
}

func NewRunner(store *StateStore, logDir string, log logger.Logger, invoke InvokeFunc) *Runner {
	return &Runner{store: store, logDir: logDir, log: log, invoke: invoke}
}

// Run iterates until a completion signal, the iteration budget, or a failure.
// A persisted running state resumes at the next iteration with its original
// start timestamp and history intact; only the execution directory binding is
// refreshed from the current parameters.
func (r *Runner) Run(ctx context.Context, p Params) (Outcome, error) {
	ls, err := r.store.Load(p.ItemID)
	if err != nil {
		return Outcome{}, err
	}

	if ls != nil && ls.Status == StatusRunning {
		ls.Iteration++
		ls.ExecutionDir = p.Dir
		ls.Workspace = p.Workspace
		ls.Branch = p.Branch
		r.log.Info("resuming verification loop",
			logger.F("item", p.ItemID),
			logger.F("iteration", ls.Iteration),
			logger.F("max_iterations", ls.MaxIterations))
	} else {
		ls = &LoopState{
			ItemID:           p.ItemID,
			ItemPath:         p.ItemPath,
			Worker:           p.Worker,
			ExecutionDir:     p.Dir,
			Workspace:        p.Workspace,
			Branch:           p.Branch,
			Iteration:        1,
			MaxIterations:    p.MaxIterations,
			CompletionMarker: p.CompletionMarker,
			StartedAt:        time.Now().UTC(),
		}
		if ls.MaxIterations < 1 {
			ls.MaxIterations = 1
		}
		if ls.CompletionMarker == "" {
			ls.CompletionMarker = DefaultCompletionMarker
		}
	}

	ls.Status = StatusRunning
	if err := r.store.Save(ls); err != nil {
		return Outcome{}, err
	}

	for ls.Iteration <= ls.MaxIterations {
		if err := ctx.Err(); err != nil {
			return Outcome{Status: ls.Status, Iterations: len(ls.History), State: ls}, err
		}

		// Environment check before spending a worker call.
		if _, err := os.Stat(ls.ExecutionDir); err != nil {
			ls.Status = StatusFailed
			ls.Reason = fmt.Sprintf("working directory %s no longer exists", ls.ExecutionDir)
			if saveErr := r.store.Save(ls); saveErr != nil {
				return Outcome{}, saveErr
			}
			return Outcome{Status: StatusFailed, Iterations: len(ls.History), State: ls},
				fmt.Errorf("item %s: %s", ls.ItemID, ls.Reason)
		}

		logFile := filepath.Join(r.logDir, fmt.Sprintf("%s-%s-iter%d-%s.log",
			ls.Worker, ls.ItemID, ls.Iteration, time.Now().Format("20060102-150405")))

		wrapped := Wrap(WrapInput{
			Content:          p.Content,
			Iteration:        ls.Iteration,
			MaxIterations:    ls.MaxIterations,
			CompletionMarker: ls.CompletionMarker,
			Workspace:        ls.Workspace,
			Branch:           ls.Branch,
			History:          ls.History,
		})

		r.log.Info("verification iteration starting",
			logger.F("item", ls.ItemID),
			logger.F("iteration", ls.Iteration),
			logger.F("max_iterations", ls.MaxIterations))

		res, err := r.invoke(ctx, wrapped, ls.ExecutionDir, logFile)
		if err != nil {
			// A killed worker on interrupt is not a failure: the running
			// state persisted at loop entry lets a resume pick it back up.
			if ctx.Err() != nil {
				return Outcome{Status: ls.Status, Iterations: len(ls.History), State: ls}, ctx.Err()
			}
			ls.Status = StatusFailed
			ls.Reason = fmt.Sprintf("worker invocation failed: %v", err)
			if saveErr := r.store.Save(ls); saveErr != nil {
				return Outcome{}, saveErr
			}
			return Outcome{Status: StatusFailed, Iterations: len(ls.History), State: ls},
				fmt.Errorf("item %s iteration %d: %w", ls.ItemID, ls.Iteration, err)
		}

		completed, retryReason := Detect(res.Output, ls.CompletionMarker)
		ls.MergeNextSteps(ExtractNextSteps(res.Output), ls.Iteration)

		ls.RecordIteration(IterationRecord{
			Iteration:   ls.Iteration,
			EndedAt:     time.Now().UTC(),
			ExitCode:    res.ExitCode,
			SignalFound: completed,
			RetryReason: retryReason,
			LogFile:     res.LogFile,
		})
		if err := r.store.Save(ls); err != nil {
			return Outcome{}, err
		}

		if completed {
			r.log.Info("completion signal found",
				logger.F("item", ls.ItemID),
				logger.F("iteration", ls.Iteration))
			break
		}
		if retryReason != "" {
			r.log.Info("retry requested",
				logger.F("item", ls.ItemID),
				logger.F("reason", retryReason))
		}
		if ls.Status == StatusMaxIterations {
			r.log.Warn("iteration budget exhausted without completion",
				logger.F("item", ls.ItemID),
				logger.F("max_iterations", ls.MaxIterations))
			break
		}

		ls.Iteration++
		if err := r.store.Save(ls); err != nil {
			return Outcome{}, err
		}
	}

	// A resume past the budget skips the loop body entirely.
	if ls.Status == StatusRunning {
		ls.Status = StatusMaxIterations
		if err := r.store.Save(ls); err != nil {
			return Outcome{}, err
		}
	}

	return Outcome{Status: ls.Status, Iterations: len(ls.History), State: ls}, nil
}
