package worker

import (
	"context"
	"encoding/json"
	"os/exec"
	"time"
)

// Feed is the advisory availability collaborator. A nil map means "no
// information"; callers must degrade to assume-available, never fail.
type Feed interface {
	Availability() map[string]bool
}

// Available consults a feed, treating absence of signal as available.
func Available(feed Feed, name string) bool {
	if feed == nil {
		return true
	}
	avail := feed.Availability()
	if avail == nil {
		return true
	}
	v, ok := avail[name]
	return !ok || v
}

// StaticFeed returns a fixed availability map.
type StaticFeed map[string]bool

func (f StaticFeed) Availability() map[string]bool { return f }

// CommandFeed probes availability via an external command
// (default `npx cclimits --json`). Every failure mode degrades to nil.
type CommandFeed struct {
	Command []string
	Timeout time.Duration

	// run overrides command execution in tests.
	run func(ctx context.Context, argv []string) ([]byte, error)
}

// NewCommandFeed returns the default cclimits probe.
func NewCommandFeed() *CommandFeed {
	return &CommandFeed{
		Command: []string{"npx", "cclimits", "--json"},
		Timeout: 30 * time.Second,
	}
}

func (f *CommandFeed) Availability() map[string]bool {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout())
	defer cancel()

	runner := f.run
	if runner == nil {
		runner = func(ctx context.Context, argv []string) ([]byte, error) {
			return exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
		}
	}

	out, err := runner(ctx, f.Command)
	if err != nil {
		return nil
	}
	return parseAvailability(out)
}

func (f *CommandFeed) timeout() time.Duration {
	if f.Timeout > 0 {
		return f.Timeout
	}
	return 30 * time.Second
}

// parseAvailability handles the probe's common output shapes: a map of
// tool → details, a "tools"/"limits" wrapper, or a list of named entries.
// A tool with an error field counts as unavailable.
func parseAvailability(raw []byte) map[string]bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	root, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	inner := any(root)
	if t, ok := root["tools"]; ok {
		inner = t
	} else if l, ok := root["limits"]; ok {
		inner = l
	}

	availability := make(map[string]bool)
	switch t := inner.(type) {
	case map[string]any:
		for k, vv := range t {
			details, ok := vv.(map[string]any)
			if !ok {
				continue
			}
			availability[k] = !truthy(details["error"]) && !truthy(details["errors"])
		}
	case []any:
		for _, entry := range t {
			details, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			name, _ := details["name"].(string)
			if name == "" {
				continue
			}
			availability[name] = !truthy(details["error"])
		}
	}
	if len(availability) == 0 {
		return nil
	}
	return availability
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}
