package worker

// Codex drives the codex CLI; the prompt is piped on stdin with a "-" arg.
type Codex struct{}

func (c *Codex) Name() string { return "codex" }

func (c *Codex) Detect() error { return detectBinary("codex") }

func (c *Codex) ListModels() []string {
	return []string{"codex", "codex-high", "codex-xhigh"}
}

func (c *Codex) BuildInvocation(model string) Invocation {
	args := []string{"codex", "exec", "--full-auto"}
	switch model {
	case "codex-high":
		args = append(args, "-c", `model_reasoning_effort="high"`)
	case "codex-xhigh":
		args = append(args, "-c", `model_reasoning_effort="xhigh"`)
	}
	return Invocation{Command: args, InputMode: InputStdin}
}
