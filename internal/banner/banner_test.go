package banner

import (
	"bytes"
	"strings"
	"testing"

	"github.com/example/gaffer/internal/config"
	"github.com/example/gaffer/internal/item"
	"github.com/example/gaffer/internal/state"
)

func TestPrintShowsRunShape(t *testing.T) {
	rs := &state.RunState{
		RunID:       "gaffer-shop-20260823-abcd1234",
		TotalPhases: 3,
		Items: []state.ItemState{
			{ID: "001", Worker: "codex", Status: item.StatusPending},
			{ID: "002", Worker: "codex", Status: item.StatusPending},
			{ID: "003", Worker: "claude", Status: item.StatusPending},
		},
		Options: config.Options{MaxParallel: 2},
	}

	var buf bytes.Buffer
	NewWithWriter(&buf).Print(rs)
	out := buf.String()

	for _, want := range []string{
		"gaffer-shop-20260823-abcd1234",
		"3 items, 3 phases, up to 2 in parallel",
		"claude ×1",
		"codex ×2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("banner missing %q:\n%s", want, out)
		}
	}
}

func TestPrintSingularAndDefaultParallelism(t *testing.T) {
	rs := &state.RunState{
		RunID:       "gaffer-one",
		TotalPhases: 1,
		Items:       []state.ItemState{{ID: "001", Status: item.StatusPending}},
	}

	var buf bytes.Buffer
	NewWithWriter(&buf).Print(rs)
	out := buf.String()

	if !strings.Contains(out, "1 item, 1 phase, up to 1 in parallel") {
		t.Errorf("singular forms wrong:\n%s", out)
	}
	if strings.Contains(out, "workers:") {
		t.Errorf("unassigned run must omit the worker mix:\n%s", out)
	}
}
