package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// Lock is the advisory pid lock guarding state file writes.
type Lock struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
	RunID      string    `json:"run_id,omitempty"`
}

// ErrLockHeld indicates another live process holds the state lock.
var ErrLockHeld = errors.New("state lock is held")

// AcquireLock creates the lock file exclusively (O_EXCL fails if it exists)
// and returns a release func. A lock left by a dead process is taken over.
func AcquireLock(lockPath, runID string) (func() error, error) {
	l := Lock{PID: os.Getpid(), AcquiredAt: time.Now(), RunID: runID}
	data, err := json.MarshalIndent(l, "", "    ")
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			if b, readErr := os.ReadFile(lockPath); readErr == nil {
				var existing Lock
				if json.Unmarshal(b, &existing) == nil && existing.PID > 0 {
					if processAlive(existing.PID) {
						return nil, fmt.Errorf("%w by pid %d (run_id=%s)", ErrLockHeld, existing.PID, existing.RunID)
					}
					// Process is dead, remove stale lock and retry once
					if removeErr := os.Remove(lockPath); removeErr == nil {
						return AcquireLock(lockPath, runID)
					}
				}
			}
			return nil, fmt.Errorf("%w (lock file exists)", ErrLockHeld)
		}
		return nil, err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(lockPath)
		return nil, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(lockPath)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(lockPath)
		return nil, err
	}

	release := func() error {
		return os.Remove(lockPath)
	}
	return release, nil
}

func processAlive(pid int) bool {
	// On unix, signal 0 checks existence/permission.
	err := syscall.Kill(pid, 0)
	return err == nil
}
