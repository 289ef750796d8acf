package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/gaffer/internal/config"
	"github.com/example/gaffer/internal/logger"
	"github.com/example/gaffer/internal/state"
	"github.com/example/gaffer/internal/worker"
)

func TestClassifyOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
		ok     bool
	}{
		{"no json", "plain worker chatter", true},
		{"clean result", `{"type":"result","subtype":"success"}`, true},
		{"is_error flag", `{"is_error":true}`, false},
		{"error field", `{"error":"rate limited"}`, false},
		{"error field empty", `{"error":""}`, true},
		{"status completed", `{"status":"completed"}`, true},
		{"status failed", `{"status":"failed"}`, false},
		{"final_status wrong", `{"final_status":"max_iterations_reached"}`, false},
		{"leading log noise", "starting up\n" + `{"status":"completed"}`, true},
		{"trailing text after json", `{"status":"completed"}` + "\nbye", true},
		{"malformed json", `{"status":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := classifyOutput(tt.output)
			if ok != tt.ok {
				t.Errorf("classifyOutput(%q) = (%v, %q), want ok=%v", tt.output, ok, reason, tt.ok)
			}
			if !ok && reason == "" {
				t.Error("failure must carry a reason")
			}
		})
	}
}

func writeItemFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "001-task.md")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWorkerExecutorMissingContent(t *testing.T) {
	e := &WorkerExecutor{Registry: worker.NewRegistry(), WorkDir: t.TempDir(), LogDir: t.TempDir(), Log: logger.NewNoopLogger()}
	it := &state.ItemState{ID: "001", Path: "/nonexistent/item.md", Worker: "claude"}

	res := e.Execute(context.Background(), it, config.Defaults())
	if res.Success || res.Reason == "" {
		t.Errorf("res = %+v, want failure with reason", res)
	}
}

func TestWorkerExecutorUnknownWorker(t *testing.T) {
	e := &WorkerExecutor{Registry: worker.NewRegistry(), WorkDir: t.TempDir(), LogDir: t.TempDir(), Log: logger.NewNoopLogger()}
	it := &state.ItemState{ID: "001", Path: writeItemFile(t, "task"), Worker: "hal9000"}

	res := e.Execute(context.Background(), it, config.Defaults())
	if res.Success || res.Reason == "" {
		t.Errorf("res = %+v, want failure with reason", res)
	}
}

func TestWorkerExecutorMissingWorkspace(t *testing.T) {
	e := &WorkerExecutor{Registry: worker.NewRegistry(), WorkDir: t.TempDir(), LogDir: t.TempDir(), Log: logger.NewNoopLogger()}
	it := &state.ItemState{
		ID: "001", Path: writeItemFile(t, "task"), Worker: "claude",
		Workspace: &state.WorkspaceRef{Name: "wt", Path: "/nonexistent/workspace"},
	}

	res := e.Execute(context.Background(), it, config.Defaults())
	if res.Success {
		t.Error("missing workspace directory must fail before invoking")
	}
}

func TestUsageFrom(t *testing.T) {
	r := worker.Result{Output: `{"usage":{"input_tokens":10,"output_tokens":5},"total_cost_usd":0.1}`}
	u := usageFrom(r)
	if u.Calls != 1 || u.InputTokens != 10 || u.OutputTokens != 5 || u.CostUSD != 0.1 {
		t.Errorf("usage = %+v", u)
	}
}
