package config

import (
	"fmt"
	"strings"
)

// knownWorkers is the closed set of worker families the engine can drive.
var knownWorkers = []string{"claude", "codex", "gemini"}

// ValidationError holds details about a configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, "  - "+e.Error())
	}
	return fmt.Sprintf("validation failed with %d error(s):\n%s", len(errs), strings.Join(msgs, "\n"))
}

// HasErrors returns true if there are any validation errors.
func (errs ValidationErrors) HasErrors() bool {
	return len(errs) > 0
}

// Validate checks options for errors and returns detailed validation errors.
func Validate(opts Options) ValidationErrors {
	var errs ValidationErrors

	if len(opts.Models) == 0 {
		errs = append(errs, ValidationError{
			Field:   "models",
			Message: "at least one worker model is required",
		})
	}

	seen := make(map[string]bool)
	for i, m := range opts.Models {
		field := fmt.Sprintf("models[%d]", i)
		if !isKnownWorker(m) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown worker %q, known workers: %s", m, strings.Join(knownWorkers, ", ")),
			})
		}
		if seen[m] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate worker %q", m),
			})
		}
		seen[m] = true
	}

	if opts.MaxParallel < 1 {
		errs = append(errs, ValidationError{
			Field:   "max_parallel",
			Message: "must be at least 1",
		})
	}

	if opts.Loop.MaxIterations < 1 {
		errs = append(errs, ValidationError{
			Field:   "loop.max_iterations",
			Message: "must be at least 1",
		})
	}
	if strings.TrimSpace(opts.Loop.CompletionMarker) == "" {
		errs = append(errs, ValidationError{
			Field:   "loop.completion_marker",
			Message: "completion marker is required",
		})
	}

	if opts.Workspace.Enabled && strings.TrimSpace(opts.Workspace.Root) == "" {
		errs = append(errs, ValidationError{
			Field:   "workspace.root",
			Message: "root directory is required when workspaces are enabled",
		})
	}

	if opts.WorkerTimeout != "" && opts.GetWorkerTimeout() == 0 {
		errs = append(errs, ValidationError{
			Field:   "worker_timeout",
			Message: fmt.Sprintf("invalid duration %q", opts.WorkerTimeout),
		})
	}

	return errs
}

func isKnownWorker(name string) bool {
	for _, w := range knownWorkers {
		if w == name {
			return true
		}
	}
	return false
}
