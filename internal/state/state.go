// Package state persists the durable RunState document that makes runs
// crash-safe and resumable. All mutation goes through the atomic
// write-plus-lock path; there is no partial persistence.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/example/gaffer/internal/config"
	"github.com/example/gaffer/internal/item"
)

// DefaultFile is the run state path relative to the working directory.
const DefaultFile = ".gaffer/state.json"

var (
	// ErrNoRun indicates no run state exists at the given path.
	ErrNoRun = errors.New("no active run")
	// ErrUnknownItem indicates an identifier absent from the run.
	ErrUnknownItem = errors.New("unknown item")
	// ErrInvalidStatus indicates a status value outside the known set.
	ErrInvalidStatus = errors.New("invalid item status")
	// ErrNotPaused indicates a resume was requested without a pause marker.
	ErrNotPaused = errors.New("run is not paused")
)

// WorkspaceRef is the opaque handle of an item's isolated working directory.
type WorkspaceRef struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Branch string `json:"branch,omitempty"`
}

// ItemState is one work item's slice of the run.
type ItemState struct {
	ID         string        `json:"id"`
	Title      string        `json:"title,omitempty"`
	Path       string        `json:"path,omitempty"`
	Status     item.Status   `json:"status"`
	Worker     string        `json:"worker,omitempty"`
	Workspace  *WorkspaceRef `json:"workspace,omitempty"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// Usage accumulates per-worker resource counters across the run.
type Usage struct {
	Calls        int     `json:"calls"`
	Minutes      float64 `json:"minutes"`
	InputTokens  int     `json:"input_tokens,omitempty"`
	OutputTokens int     `json:"output_tokens,omitempty"`
	TotalTokens  int     `json:"total_tokens,omitempty"`
	CostUSD      float64 `json:"cost_usd,omitempty"`
}

// RunState is the whole persisted document for one run.
type RunState struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	SpecHash  string    `json:"spec_hash,omitempty"`
	SpecPath  string    `json:"spec_path,omitempty"`
	ItemsDir  string    `json:"items_dir,omitempty"`

	Items        []ItemState         `json:"items"`
	Phases       [][]string          `json:"phases"`
	Dependencies map[string][]string `json:"dependencies"`

	// CycleFallback marks the final phase as the residual cycle set; the
	// dispatcher runs it strictly one item at a time.
	CycleFallback bool `json:"cycle_fallback,omitempty"`

	// CurrentPhase is the 1-based index of the next phase to attempt.
	CurrentPhase int `json:"current_phase"`
	TotalPhases  int `json:"total_phases"`

	PausedAt *time.Time        `json:"paused_at,omitempty"`
	Usage    map[string]*Usage `json:"usage,omitempty"`

	Options config.Options `json:"options"`
}

// Item returns the item with the given identifier.
func (rs *RunState) Item(id string) (*ItemState, bool) {
	for i := range rs.Items {
		if rs.Items[i].ID == id {
			return &rs.Items[i], true
		}
	}
	return nil, false
}

// CountByStatus tallies items per status.
func (rs *RunState) CountByStatus() map[item.Status]int {
	counts := make(map[item.Status]int)
	for _, it := range rs.Items {
		counts[it.Status]++
	}
	return counts
}

// AddUsage merges a worker's resource delta into the run counters.
func (rs *RunState) AddUsage(worker string, delta Usage) {
	if rs.Usage == nil {
		rs.Usage = make(map[string]*Usage)
	}
	u := rs.Usage[worker]
	if u == nil {
		u = &Usage{}
		rs.Usage[worker] = u
	}
	u.Calls += delta.Calls
	u.Minutes += delta.Minutes
	u.InputTokens += delta.InputTokens
	u.OutputTokens += delta.OutputTokens
	u.TotalTokens += delta.TotalTokens
	u.CostUSD += delta.CostUSD
}

// HashSpec fingerprints spec content so a replan can detect drift.
func HashSpec(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
