package worker

// Gemini drives the gemini CLI; the prompt is the -p argument.
type Gemini struct{}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Detect() error { return detectBinary("gemini") }

func (g *Gemini) ListModels() []string {
	return []string{"gemini", "gemini-pro", "gemini-flash"}
}

func (g *Gemini) BuildInvocation(model string) Invocation {
	variant := "gemini-3-flash-preview"
	switch model {
	case "gemini-pro":
		variant = "gemini-3-pro-preview"
	case "gemini-flash":
		variant = "gemini-2.5-flash"
	}
	return Invocation{
		Command:   []string{"gemini", "-y", "-m", variant, "-p"},
		InputMode: InputArg,
	}
}
