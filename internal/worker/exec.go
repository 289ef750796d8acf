package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/gaffer/internal/logger"
	"github.com/example/gaffer/internal/resilience"
)

// Result is the outcome of one worker process.
type Result struct {
	ExitCode     int
	Output       string
	LogFile      string
	Duration     time.Duration
	UsageLimited bool
}

// Run invokes a worker synchronously in dir, capturing combined output to
// logFile and into the result. A non-zero exit is a Result, not an error;
// errors mean the process could not be run at all. Transient spawn failures
// are retried with backoff.
func Run(ctx context.Context, inv Invocation, content, dir, logFile string, log logger.Logger) (Result, error) {
	var res Result
	err := resilience.RetryWithCallback(ctx, resilience.DefaultRetryConfig(),
		func(ctx context.Context) error {
			r, err := runOnce(ctx, inv, content, dir, logFile)
			if err != nil {
				return err
			}
			res = r
			return nil
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn("worker spawn failed, retrying",
				logger.F("attempt", attempt),
				logger.F("delay", nextDelay),
				logger.F("error", err))
		})
	return res, err
}

func runOnce(ctx context.Context, inv Invocation, content, dir, logFile string) (Result, error) {
	args := append([]string{}, inv.Command...)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir

	switch inv.InputMode {
	case InputStdin:
		cmd.Args = append(cmd.Args, "-")
		cmd.Stdin = strings.NewReader(content)
	case InputArg:
		cmd.Args = append(cmd.Args, content)
	}

	if len(inv.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range inv.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var buf bytes.Buffer
	out := io.Writer(&buf)
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return Result{}, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.Create(logFile)
		if err != nil {
			return Result{}, fmt.Errorf("failed to create log file: %w", err)
		}
		defer f.Close()
		out = io.MultiWriter(&buf, f)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Output:   buf.String(),
		LogFile:  logFile,
		Duration: time.Since(start),
	}
	res.UsageLimited = IsUsageLimitText(res.Output)

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if ctx.Err() != nil {
			return res, resilience.NewPermanentError(ctx.Err())
		}
		// Could not start: ENOENT and friends classify themselves.
		return res, err
	}
	return res, nil
}
