package config

import (
	"strings"
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	if errs := Validate(Defaults()); errs.HasErrors() {
		t.Fatalf("defaults should validate, got: %v", errs)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantSub string
	}{
		{
			name:    "no models",
			mutate:  func(o *Options) { o.Models = nil },
			wantSub: "at least one worker model",
		},
		{
			name:    "unknown worker",
			mutate:  func(o *Options) { o.Models = []string{"claude", "hal9000"} },
			wantSub: `unknown worker "hal9000"`,
		},
		{
			name:    "duplicate worker",
			mutate:  func(o *Options) { o.Models = []string{"codex", "codex"} },
			wantSub: `duplicate worker "codex"`,
		},
		{
			name:    "zero parallelism",
			mutate:  func(o *Options) { o.MaxParallel = 0 },
			wantSub: "max_parallel",
		},
		{
			name:    "zero iterations",
			mutate:  func(o *Options) { o.Loop.MaxIterations = 0 },
			wantSub: "loop.max_iterations",
		},
		{
			name:    "blank marker",
			mutate:  func(o *Options) { o.Loop.CompletionMarker = "  " },
			wantSub: "completion marker is required",
		},
		{
			name: "workspace enabled without root",
			mutate: func(o *Options) {
				o.Workspace.Enabled = true
				o.Workspace.Root = ""
			},
			wantSub: "workspace.root",
		},
		{
			name:    "bad timeout",
			mutate:  func(o *Options) { o.WorkerTimeout = "soon" },
			wantSub: `invalid duration "soon"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Defaults()
			tt.mutate(&opts)
			errs := Validate(opts)
			if !errs.HasErrors() {
				t.Fatal("expected validation errors")
			}
			if !strings.Contains(errs.Error(), tt.wantSub) {
				t.Errorf("errors %q missing %q", errs.Error(), tt.wantSub)
			}
		})
	}
}

func TestValidationErrorsAccumulate(t *testing.T) {
	opts := Defaults()
	opts.Models = nil
	opts.MaxParallel = -1
	opts.Loop.MaxIterations = 0

	errs := Validate(opts)
	if len(errs) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(errs), errs)
	}
}
