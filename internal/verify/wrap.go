package verify

import (
	"fmt"
	"strings"
)

// WrapInput carries everything the protocol wrapper embeds around the
// original item content.
type WrapInput struct {
	Content          string
	Iteration        int
	MaxIterations    int
	CompletionMarker string
	Workspace        string
	Branch           string
	History          []IterationRecord
}

// Wrap surrounds item content with the verification protocol: iteration
// metadata, a summary of prior iterations, feedback from recent retry
// reasons, and the exact signal formats the worker must emit. The protocol
// block ends with the sentinel token so detection can skip the echoed
// examples.
func Wrap(in WrapInput) string {
	marker := in.CompletionMarker
	if marker == "" {
		marker = DefaultCompletionMarker
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<task>\n%s\n</task>\n\n", in.Content)

	fmt.Fprintf(&b, `<verification_protocol>
## Completion Markers

This task uses iterative verification. You may be re-run multiple times until complete.

**To signal completion:** Output `+"`<verification>%s</verification>`"+` ONLY when:
- All implementation is done
- Tests pass (if applicable)
- Build succeeds (if applicable)
- Manual verification steps completed

**To signal retry needed:** Output `+"`<verification>NEEDS_RETRY: [reason]</verification>`"+` if:
- Tests are failing
- Build errors exist
- Implementation incomplete
- Verification steps failed

**Important:**
- Each iteration sees your previous work (files, git history)
- DO NOT output %s falsely to exit
- The loop continues until genuine completion or max iterations
- Current iteration: %d of %d
%s

`, marker, marker, in.Iteration, in.MaxIterations, SentinelToken)

	if feedback := retryFeedback(in.History); feedback != "" {
		b.WriteString(feedback)
	}

	b.WriteString("<environment>\n")
	if in.Workspace != "" {
		branch := in.Branch
		if branch == "" {
			branch = "unknown"
		}
		fmt.Fprintf(&b, "Working in isolated workspace: %s\nBranch: %s\n", in.Workspace, branch)
	}
	fmt.Fprintf(&b, "Previous iterations in this loop:\n%s\n</environment>\n", historySummary(in.History))

	return b.String()
}

// historySummary renders the last 5 iterations, one line each.
func historySummary(history []IterationRecord) string {
	if len(history) == 0 {
		return "None (first iteration)"
	}
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	lines := make([]string, 0, len(history))
	for _, h := range history {
		lines = append(lines, fmt.Sprintf("  - Iteration %d: exit_code=%d, signal_found=%t",
			h.Iteration, h.ExitCode, h.SignalFound))
	}
	return strings.Join(lines, "\n")
}

// retryFeedback echoes the most recent retry reasons (bounded to the last 3)
// back to the worker.
func retryFeedback(history []IterationRecord) string {
	var lines []string
	for _, h := range history {
		if h.RetryReason != "" {
			lines = append(lines, fmt.Sprintf("Iteration %d ended with: NEEDS_RETRY: %s",
				h.Iteration, h.RetryReason))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return "<previous_iteration_feedback>\n" + strings.Join(lines, "\n") + "\n</previous_iteration_feedback>\n\n"
}
