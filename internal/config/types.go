package config

import "time"

// DefaultPath is where the options file lives relative to the working directory.
const DefaultPath = ".gaffer/config.json"

// Options holds the engine configuration threaded into the planner and
// dispatcher constructors. Zero values are filled by Defaults.
type Options struct {
	// Models is the preferred worker order. The first available worker wins;
	// assignment heuristics and the availability feed may demote within it.
	Models []string `json:"models,omitempty"`

	// MaxParallel bounds how many worker processes run concurrently in a batch.
	MaxParallel int `json:"max_parallel,omitempty"`

	// WorkerTimeout caps a single worker invocation (e.g. "45m"). Empty means
	// no timeout.
	WorkerTimeout string `json:"worker_timeout,omitempty"`

	LogLevel string `json:"log_level,omitempty"`

	Loop      LoopOptions      `json:"loop"`
	Workspace WorkspaceOptions `json:"workspace"`
}

// LoopOptions configures the per-item verification retry loop.
type LoopOptions struct {
	Enabled          *bool  `json:"enabled,omitempty"`
	MaxIterations    int    `json:"max_iterations,omitempty"`
	CompletionMarker string `json:"completion_marker,omitempty"`
}

// WorkspaceOptions configures per-item git worktree isolation.
type WorkspaceOptions struct {
	Enabled bool   `json:"enabled,omitempty"`
	Root    string `json:"root,omitempty"`
	Base    string `json:"base,omitempty"`
}

// Defaults returns the options used when no config file exists.
func Defaults() Options {
	return Options{
		Models:      []string{"claude", "codex", "gemini"},
		MaxParallel: 3,
		LogLevel:    "info",
		Loop: LoopOptions{
			MaxIterations:    3,
			CompletionMarker: "VERIFICATION_COMPLETE",
		},
		Workspace: WorkspaceOptions{
			Root: ".worktrees",
			Base: "HEAD",
		},
	}
}

// LoopEnabled reports whether the verification loop is on (defaults to true).
func (o Options) LoopEnabled() bool {
	if o.Loop.Enabled == nil {
		return true
	}
	return *o.Loop.Enabled
}

// GetWorkerTimeout parses the worker timeout. Zero means no timeout.
func (o Options) GetWorkerTimeout() time.Duration {
	if o.WorkerTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(o.WorkerTimeout)
	if err != nil {
		return 0
	}
	return d
}
