package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/gaffer/internal/logger"
)

func TestRunCapturesOutputAndLog(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "item.log")
	inv := Invocation{Command: []string{"sh", "-c", "echo hello; echo oops >&2"}}

	res, err := Run(context.Background(), inv, "", t.TempDir(), logFile, logger.NewNoopLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d", res.ExitCode)
	}
	if !strings.Contains(res.Output, "hello") || !strings.Contains(res.Output, "oops") {
		t.Errorf("Output = %q, want stdout and stderr combined", res.Output)
	}

	logged, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if string(logged) != res.Output {
		t.Errorf("log file %q differs from output %q", logged, res.Output)
	}
}

func TestRunStdinMode(t *testing.T) {
	inv := Invocation{Command: []string{"sh", "-c", "cat"}, InputMode: InputStdin}

	res, err := Run(context.Background(), inv, "piped content", t.TempDir(), "", logger.NewNoopLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(res.Output, "piped content") {
		t.Errorf("Output = %q, stdin content not seen", res.Output)
	}
}

func TestRunArgMode(t *testing.T) {
	inv := Invocation{Command: []string{"sh", "-c", `echo "$0"`}, InputMode: InputArg}

	res, err := Run(context.Background(), inv, "arg content", t.TempDir(), "", logger.NewNoopLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(res.Output, "arg content") {
		t.Errorf("Output = %q, arg content not seen", res.Output)
	}
}

func TestRunNonZeroExitIsResultNotError(t *testing.T) {
	inv := Invocation{Command: []string{"sh", "-c", "exit 3"}}

	res, err := Run(context.Background(), inv, "", t.TempDir(), "", logger.NewNoopLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestRunMissingBinaryIsError(t *testing.T) {
	inv := Invocation{Command: []string{"definitely-not-a-real-binary-gaffer"}}

	_, err := Run(context.Background(), inv, "", t.TempDir(), "", logger.NewNoopLogger())
	if err == nil {
		t.Fatal("expected spawn error for missing binary")
	}
}

func TestRunFlagsUsageLimitedOutput(t *testing.T) {
	inv := Invocation{Command: []string{"sh", "-c", "echo 'usage limit reached'"}}

	res, err := Run(context.Background(), inv, "", t.TempDir(), "", logger.NewNoopLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.UsageLimited {
		t.Error("UsageLimited not set")
	}
}
