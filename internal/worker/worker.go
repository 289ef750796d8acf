// Package worker drives the external AI assistant CLIs as blocking child
// processes. The supported families form a closed set; adding a worker means
// adding a variant here, not reflection.
package worker

import (
	"fmt"
	"os/exec"
	"sort"
)

// InputMode says how an invocation receives the item content.
type InputMode string

const (
	// InputStdin appends "-" to the argv and pipes content on stdin.
	InputStdin InputMode = "stdin"
	// InputArg appends the content as the final argument.
	InputArg InputMode = "arg"
)

// Invocation is a fully resolved command line for one worker call.
type Invocation struct {
	Command   []string
	Env       map[string]string
	InputMode InputMode
}

// Worker is one assistant CLI family.
type Worker interface {
	// Name is the family name ("claude", "codex", "gemini").
	Name() string
	// Detect reports whether the CLI binary is reachable.
	Detect() error
	// BuildInvocation resolves a model variant to a command line. Unknown
	// variants fall back to the family default.
	BuildInvocation(model string) Invocation
	// ListModels returns the known variant names, family default first.
	ListModels() []string
}

// Registry holds the closed set of worker families.
type Registry struct {
	workers map[string]Worker
}

// NewRegistry returns the registry with all supported families.
func NewRegistry() *Registry {
	r := &Registry{workers: make(map[string]Worker)}
	for _, w := range []Worker{&Claude{}, &Codex{}, &Gemini{}} {
		r.workers[w.Name()] = w
	}
	return r
}

// Get returns the family that owns the given model variant ("codex-high"
// belongs to codex).
func (r *Registry) Get(model string) (Worker, error) {
	if w, ok := r.workers[model]; ok {
		return w, nil
	}
	for _, w := range r.workers {
		for _, m := range w.ListModels() {
			if m == model {
				return w, nil
			}
		}
	}
	return nil, fmt.Errorf("unknown worker %q (known: %v)", model, r.Names())
}

// Names returns the family names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.workers))
	for n := range r.workers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func detectBinary(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("worker binary %q not found in PATH: %w", name, err)
	}
	return nil
}
