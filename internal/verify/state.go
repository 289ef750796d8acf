// Package verify implements the per-item verification retry loop: it wraps
// item content with an explicit signal protocol, invokes a worker, inspects
// the transcript for completion or retry signals, and persists iteration
// history so an interrupted loop resumes exactly where it stopped.
package verify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultStateDir holds one loop-state document per item.
const DefaultStateDir = ".gaffer/loop-state"

// Status is the loop state machine. Completed, failed and
// max_iterations_reached are terminal.
type Status string

const (
	StatusPending       Status = "pending"
	StatusRunning       Status = "running"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusMaxIterations Status = "max_iterations_reached"
)

// Terminal reports whether the loop will never run another iteration.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusMaxIterations
}

// IterationRecord is one completed iteration.
type IterationRecord struct {
	Iteration   int       `json:"iteration"`
	EndedAt     time.Time `json:"ended_at"`
	ExitCode    int       `json:"exit_code"`
	SignalFound bool      `json:"signal_found"`
	RetryReason string    `json:"retry_reason,omitempty"`
	LogFile     string    `json:"log_file,omitempty"`
}

// NextStep is a follow-up suggestion extracted from a transcript.
type NextStep struct {
	Text            string `json:"text"`
	Original        string `json:"original"`
	SourceIteration int    `json:"source_iteration,omitempty"`
}

// LoopState is the durable per-item loop document. StartedAt is fixed at the
// first iteration and survives resumes; ExecutionDir is refreshed from the
// most recent invocation so a relocated workspace is honored without losing
// history.
type LoopState struct {
	ItemID           string            `json:"item_id"`
	ItemPath         string            `json:"item_path,omitempty"`
	Worker           string            `json:"worker"`
	ExecutionDir     string            `json:"execution_dir"`
	Workspace        string            `json:"workspace,omitempty"`
	Branch           string            `json:"branch,omitempty"`
	Iteration        int               `json:"iteration"`
	MaxIterations    int               `json:"max_iterations"`
	CompletionMarker string            `json:"completion_marker"`
	StartedAt        time.Time         `json:"started_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Status           Status            `json:"status"`
	Reason           string            `json:"reason,omitempty"`
	History          []IterationRecord `json:"history"`
	NextSteps        []NextStep        `json:"next_steps"`
}

// RecordIteration appends one record and advances the state machine: a found
// signal completes the loop, exhausting the budget without one is
// max_iterations_reached, anything else keeps running.
func (s *LoopState) RecordIteration(rec IterationRecord) {
	s.History = append(s.History, rec)
	switch {
	case rec.SignalFound:
		s.Status = StatusCompleted
	case s.Iteration >= s.MaxIterations:
		s.Status = StatusMaxIterations
	default:
		s.Status = StatusRunning
	}
}

// MergeNextSteps adds suggestions not already present, keyed on normalized
// text so rewordings across iterations do not accumulate duplicates.
func (s *LoopState) MergeNextSteps(steps []NextStep, iteration int) {
	seen := make(map[string]bool, len(s.NextSteps))
	for _, existing := range s.NextSteps {
		seen[normalizeStepKey(existing.Text)] = true
	}
	for _, step := range steps {
		key := normalizeStepKey(step.Text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		step.SourceIteration = iteration
		s.NextSteps = append(s.NextSteps, step)
	}
}

// StateStore persists one JSON document per item under Dir.
type StateStore struct {
	Dir string
}

func NewStateStore(dir string) *StateStore {
	if dir == "" {
		dir = DefaultStateDir
	}
	return &StateStore{Dir: dir}
}

func (st *StateStore) path(itemID string) string {
	return filepath.Join(st.Dir, itemID+".json")
}

// Load returns the persisted state for an item, or nil when none exists.
func (st *StateStore) Load(itemID string) (*LoopState, error) {
	data, err := os.ReadFile(st.path(itemID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read loop state: %w", err)
	}
	var ls LoopState
	if err := json.Unmarshal(data, &ls); err != nil {
		return nil, fmt.Errorf("corrupt loop state for %s: %w", itemID, err)
	}
	return &ls, nil
}

// Save writes the state atomically, stamping UpdatedAt.
func (st *StateStore) Save(ls *LoopState) error {
	ls.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(ls, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal loop state: %w", err)
	}

	// Folder-qualified item ids ("providers/011") nest the document one
	// level down; create the whole path, not just the root.
	path := st.path(ls.ItemID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create loop state directory: %w", err)
	}
	tmp := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write loop state: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync loop state: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close loop state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace loop state: %w", err)
	}
	return nil
}
