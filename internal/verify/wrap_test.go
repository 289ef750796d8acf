package verify

import (
	"strings"
	"testing"
)

func TestWrapContainsProtocol(t *testing.T) {
	out := Wrap(WrapInput{
		Content:          "Implement the parser.",
		Iteration:        2,
		MaxIterations:    5,
		CompletionMarker: "ALL_DONE",
	})

	for _, want := range []string{
		"<task>\nImplement the parser.\n</task>",
		"<verification>ALL_DONE</verification>",
		"NEEDS_RETRY",
		"Current iteration: 2 of 5",
		SentinelToken,
		"None (first iteration)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("wrapped content missing %q", want)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	out := Wrap(WrapInput{Content: "x", Iteration: 1, MaxIterations: 3})
	if !strings.Contains(out, "<verification>"+DefaultCompletionMarker+"</verification>") {
		t.Error("default completion marker not used")
	}
}

func TestWrapHistoryAndFeedback(t *testing.T) {
	history := []IterationRecord{
		{Iteration: 1, ExitCode: 0, RetryReason: "reason one"},
		{Iteration: 2, ExitCode: 1, RetryReason: "reason two"},
		{Iteration: 3, ExitCode: 0, RetryReason: "reason three"},
		{Iteration: 4, ExitCode: 0, RetryReason: "reason four"},
	}
	out := Wrap(WrapInput{Content: "x", Iteration: 5, MaxIterations: 5, History: history})

	if strings.Contains(out, "reason one") {
		t.Error("feedback must be bounded to the last 3 retry reasons")
	}
	for _, want := range []string{"reason two", "reason three", "reason four"} {
		if !strings.Contains(out, want) {
			t.Errorf("feedback missing %q", want)
		}
	}
	if !strings.Contains(out, "Iteration 4: exit_code=0") {
		t.Error("history summary missing recent iteration")
	}
}

func TestWrapWorkspaceContext(t *testing.T) {
	out := Wrap(WrapInput{
		Content:       "x",
		Iteration:     1,
		MaxIterations: 1,
		Workspace:     "/tmp/wt/item-001",
		Branch:        "gaffer/run/001",
	})
	if !strings.Contains(out, "/tmp/wt/item-001") || !strings.Contains(out, "gaffer/run/001") {
		t.Error("workspace context missing")
	}
}

func TestWrapSurvivesDetection(t *testing.T) {
	// The wrapper's own example signals must never classify as completion.
	out := Wrap(WrapInput{Content: "x", Iteration: 1, MaxIterations: 3})
	if done, reason := Detect(out, DefaultCompletionMarker); done || reason != "" {
		t.Errorf("Detect on bare wrapper = (%v, %q), want no signal", done, reason)
	}
}
