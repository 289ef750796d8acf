package resilience

import (
	"context"
	"errors"
	"os"
	"syscall"
)

// PermanentError wraps an error to mark it as non-retryable.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError wraps an error to indicate it should not be retried.
func NewPermanentError(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// TransientError wraps an error to mark it as retryable.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error to explicitly indicate it should be retried.
func NewTransientError(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsPermanentError checks if an error is marked as permanent (non-retryable).
func IsPermanentError(err error) bool {
	if err == nil {
		return false
	}

	var permErr *PermanentError
	if errors.As(err, &permErr) {
		return true
	}

	var transErr *TransientError
	if errors.As(err, &transErr) {
		return false
	}

	// Context errors are permanent: the caller gave up.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return classifyError(err)
}

// IsTransientError checks if an error is transient (retryable).
func IsTransientError(err error) bool {
	return err != nil && !IsPermanentError(err)
}

// classifyError decides retryability for unmarked errors. Worker invocations
// are local child processes, so the interesting cases are filesystem and
// spawn failures: a missing binary or directory will not fix itself.
func classifyError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		if errors.Is(pathErr.Err, syscall.EACCES) || errors.Is(pathErr.Err, syscall.EPERM) {
			return true
		}
		if errors.Is(pathErr.Err, syscall.ENOENT) {
			return true
		}
	}

	var sysErr syscall.Errno
	if errors.As(err, &sysErr) {
		switch sysErr {
		case syscall.EACCES, syscall.EPERM, syscall.ENOENT, syscall.ENOTDIR:
			return true // Permanent
		case syscall.EAGAIN, syscall.EMFILE, syscall.ENFILE, syscall.ENOMEM:
			return false // Transient: resource pressure during fork/exec
		}
	}

	// Default: assume transient (allow retry)
	return false
}
