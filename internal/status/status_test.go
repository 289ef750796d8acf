package status

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/example/gaffer/internal/item"
	"github.com/example/gaffer/internal/state"
)

func testRunState() *state.RunState {
	return &state.RunState{
		RunID:        "gaffer-demo-20260823-abcd1234",
		CreatedAt:    time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
		CurrentPhase: 2,
		TotalPhases:  3,
		Phases:       [][]string{{"001"}, {"002"}, {"003"}},
		Items: []state.ItemState{
			{ID: "001", Title: "Schema", Worker: "codex", Status: item.StatusCompleted},
			{ID: "002", Title: "Login", Worker: "claude", Status: item.StatusInProgress},
			{ID: "003", Title: "Audit", Worker: "gemini", Status: item.StatusPending},
		},
		Usage: map[string]*state.Usage{
			"codex": {Calls: 1, Minutes: 2.5, TotalTokens: 1200, CostUSD: 0.03},
		},
	}
}

func TestSummarize(t *testing.T) {
	var buf bytes.Buffer
	Summarize(&buf, testRunState())
	out := buf.String()

	for _, want := range []string{
		"gaffer-demo-20260823-abcd1234",
		"Phase:   2 of 3",
		"1 completed",
		"002",
		"Login",
		"codex",
		"1200 tokens",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSummarizeShowsFailureReason(t *testing.T) {
	rs := testRunState()
	rs.Items[1].Status = item.StatusFailed
	rs.Items[1].Reason = "tests failed"

	var buf bytes.Buffer
	Summarize(&buf, rs)
	if !strings.Contains(buf.String(), "tests failed") {
		t.Error("failure reason not shown")
	}
}

func TestProgressLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewWithWriter(&buf)
	s.Progress(testRunState())
	out := buf.String()

	if !strings.Contains(out, "1/3") {
		t.Errorf("progress missing completion count: %q", out)
	}
	if !strings.Contains(out, "running: 002") {
		t.Errorf("progress missing in-flight items: %q", out)
	}
}

func TestUpdateClearsPreviousLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewWithWriter(&buf)

	s.Update("one", "two")
	s.Update("three")

	out := buf.String()
	if strings.Count(out, moveUp) != 2 {
		t.Errorf("expected two clear sequences, got %q", out)
	}
	if !strings.Contains(out, "three") {
		t.Errorf("missing updated line: %q", out)
	}
}

func TestProgressBarBounds(t *testing.T) {
	if bar := progressBar(0, 0); strings.Contains(bar, barFilled) {
		t.Error("empty run must render an empty bar")
	}
	if bar := progressBar(5, 5); strings.Contains(bar, barEmpty) {
		t.Error("finished run must render a full bar")
	}
}
