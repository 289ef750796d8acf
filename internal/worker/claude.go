package worker

// Claude drives the claude CLI in non-interactive print mode.
type Claude struct{}

func (c *Claude) Name() string { return "claude" }

func (c *Claude) Detect() error { return detectBinary("claude") }

func (c *Claude) ListModels() []string {
	return []string{"claude", "claude-opus", "claude-haiku"}
}

func (c *Claude) BuildInvocation(model string) Invocation {
	args := []string{"claude", "--dangerously-skip-permissions", "--output-format", "json"}
	switch model {
	case "claude-opus":
		args = append(args, "--model", "opus")
	case "claude-haiku":
		args = append(args, "--model", "haiku")
	}
	// The prompt follows -p as the final argument.
	args = append(args, "-p")
	return Invocation{Command: args, InputMode: InputArg}
}
