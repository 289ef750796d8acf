package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/gaffer/internal/config"
	"github.com/example/gaffer/internal/logger"
	"github.com/example/gaffer/internal/state"
	"github.com/example/gaffer/internal/verify"
	"github.com/example/gaffer/internal/worker"
)

// Result classifies one item's unit of work. Every failure mode is a Result
// with a reason; executors never panic the dispatcher.
type Result struct {
	Success bool
	Reason  string
	Usage   state.Usage
}

// ItemExecutor runs one item's unit of work to completion.
type ItemExecutor interface {
	Execute(ctx context.Context, it *state.ItemState, opts config.Options) Result
}

func fail(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// prepare resolves the shared executor preamble: item content, worker
// family, and a validated working directory.
func prepare(reg *worker.Registry, it *state.ItemState, workDir string) (content string, w worker.Worker, dir string, res Result, ok bool) {
	raw, err := os.ReadFile(it.Path)
	if err != nil {
		return "", nil, "", fail("failed to read item content: %v", err), false
	}
	w, err = reg.Get(it.Worker)
	if err != nil {
		return "", nil, "", fail("cannot resolve worker: %v", err), false
	}
	dir = workDir
	if it.Workspace != nil && it.Workspace.Path != "" {
		dir = it.Workspace.Path
	}
	if dir == "" {
		dir = "."
	}
	if _, err := os.Stat(dir); err != nil {
		return "", nil, "", fail("working directory %s no longer exists", dir), false
	}
	return string(raw), w, dir, Result{}, true
}

// WorkerExecutor performs a single worker invocation per item.
type WorkerExecutor struct {
	Registry *worker.Registry
	WorkDir  string
	LogDir   string
	Log      logger.Logger
}

func (e *WorkerExecutor) Execute(ctx context.Context, it *state.ItemState, opts config.Options) Result {
	content, w, dir, res, ok := prepare(e.Registry, it, e.WorkDir)
	if !ok {
		return res
	}

	logFile := filepath.Join(e.LogDir, fmt.Sprintf("%s-%s-%s.log",
		it.Worker, it.ID, time.Now().Format("20060102-150405")))

	if timeout := opts.GetWorkerTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r, err := worker.Run(ctx, w.BuildInvocation(it.Worker), content, dir, logFile, e.Log)
	if err != nil {
		return fail("worker invocation failed: %v", err)
	}

	usage := usageFrom(r)
	if r.ExitCode != 0 {
		return Result{Reason: fmt.Sprintf("worker exited with code %d", r.ExitCode), Usage: usage}
	}
	if ok, reason := classifyOutput(r.Output); !ok {
		return Result{Reason: reason, Usage: usage}
	}
	return Result{Success: true, Usage: usage}
}

// LoopExecutor runs items through the verification retry loop.
type LoopExecutor struct {
	Registry  *worker.Registry
	LoopStore *verify.StateStore
	WorkDir   string
	LogDir    string
	Log       logger.Logger
}

func (e *LoopExecutor) Execute(ctx context.Context, it *state.ItemState, opts config.Options) Result {
	content, w, dir, res, ok := prepare(e.Registry, it, e.WorkDir)
	if !ok {
		return res
	}

	inv := w.BuildInvocation(it.Worker)
	timeout := opts.GetWorkerTimeout()
	var usage state.Usage
	invoke := func(ctx context.Context, wrapped, dir, logFile string) (worker.Result, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		r, err := worker.Run(ctx, inv, wrapped, dir, logFile, e.Log)
		if err == nil {
			u := usageFrom(r)
			usage.Calls += u.Calls
			usage.Minutes += u.Minutes
			usage.InputTokens += u.InputTokens
			usage.OutputTokens += u.OutputTokens
			usage.TotalTokens += u.TotalTokens
			usage.CostUSD += u.CostUSD
		}
		return r, err
	}

	params := verify.Params{
		ItemID:           it.ID,
		ItemPath:         it.Path,
		Worker:           it.Worker,
		Dir:              dir,
		Content:          content,
		MaxIterations:    opts.Loop.MaxIterations,
		CompletionMarker: opts.Loop.CompletionMarker,
	}
	if it.Workspace != nil {
		params.Workspace = it.Workspace.Path
		params.Branch = it.Workspace.Branch
	}

	out, err := verify.NewRunner(e.LoopStore, e.LogDir, e.Log, invoke).Run(ctx, params)
	if err != nil {
		return Result{Reason: err.Error(), Usage: usage}
	}

	switch out.Status {
	case verify.StatusCompleted:
		return Result{Success: true, Usage: usage}
	case verify.StatusMaxIterations:
		return Result{
			Reason: fmt.Sprintf("no completion signal after %d iteration(s)", out.Iterations),
			Usage:  usage,
		}
	default:
		reason := "verification loop did not complete"
		if out.State != nil && out.State.Reason != "" {
			reason = out.State.Reason
		}
		return Result{Reason: reason, Usage: usage}
	}
}

func usageFrom(r worker.Result) state.Usage {
	u := state.Usage{Calls: 1, Minutes: r.Duration.Minutes()}
	if delta, ok := worker.ParseUsage(r.Output); ok {
		u.InputTokens = delta.InputTokens
		u.OutputTokens = delta.OutputTokens
		u.TotalTokens = delta.TotalTokens
		u.CostUSD = delta.CostUSD
	}
	return u
}

// classifyOutput inspects a worker's structured output, when present. A
// reported error or a final status other than "completed" fails the item;
// output with no parseable JSON document passes.
func classifyOutput(output string) (bool, string) {
	i := strings.Index(output, "{")
	if i < 0 {
		return true, ""
	}
	var doc map[string]any
	if err := json.NewDecoder(strings.NewReader(output[i:])).Decode(&doc); err != nil {
		return true, ""
	}

	if v, ok := doc["is_error"].(bool); ok && v {
		return false, "worker reported an error"
	}
	if v, ok := doc["error"].(string); ok && v != "" {
		return false, fmt.Sprintf("worker reported error: %s", v)
	}
	for _, key := range []string{"final_status", "status"} {
		if v, ok := doc[key].(string); ok && !strings.EqualFold(v, "completed") {
			return false, fmt.Sprintf("worker final status %q", v)
		}
	}
	return true, ""
}
