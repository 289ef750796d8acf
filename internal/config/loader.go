package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads the options file at path, expands environment variable
// references, unmarshals over the defaults, and validates the result.
// A missing file is not an error: the defaults are returned as-is.
func Load(path string) (Options, error) {
	opts := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables before parsing JSON
	data = ExpandEnvVarsBytes(data)

	if err := json.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	fillDefaults(&opts)

	if errs := Validate(opts); errs.HasErrors() {
		return opts, fmt.Errorf("config validation failed for %s:\n%w", path, errs)
	}

	return opts, nil
}

// fillDefaults re-applies defaults for fields the file left zero, so a
// partial config file stays valid.
func fillDefaults(opts *Options) {
	def := Defaults()
	if len(opts.Models) == 0 {
		opts.Models = def.Models
	}
	if opts.MaxParallel == 0 {
		opts.MaxParallel = def.MaxParallel
	}
	if opts.LogLevel == "" {
		opts.LogLevel = def.LogLevel
	}
	if opts.Loop.MaxIterations == 0 {
		opts.Loop.MaxIterations = def.Loop.MaxIterations
	}
	if opts.Loop.CompletionMarker == "" {
		opts.Loop.CompletionMarker = def.Loop.CompletionMarker
	}
	if opts.Workspace.Root == "" {
		opts.Workspace.Root = def.Workspace.Root
	}
	if opts.Workspace.Base == "" {
		opts.Workspace.Base = def.Workspace.Base
	}
}
