package state

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/example/gaffer/internal/config"
	"github.com/example/gaffer/internal/item"
)

func testRunState() *RunState {
	return &RunState{
		RunID:     "gaffer-test-20260823-deadbeef",
		CreatedAt: time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
		SpecHash:  HashSpec("spec content"),
		Items: []ItemState{
			{ID: "001", Title: "Setup", Status: item.StatusPending},
			{ID: "002", Title: "Build", Status: item.StatusPending},
			{ID: "003", Title: "Verify", Status: item.StatusPending},
		},
		Phases: [][]string{{"001"}, {"002"}, {"003"}},
		Dependencies: map[string][]string{
			"001": {},
			"002": {"001"},
			"003": {"002"},
		},
		CurrentPhase: 1,
		TotalPhases:  3,
		Options:      config.Defaults(),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), ".gaffer", "state.json"))
	original := testRunState()
	original.AddUsage("claude", Usage{Calls: 1, Minutes: 2.5, TotalTokens: 1200})

	if err := store.Save(original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !reflect.DeepEqual(original, loaded) {
		t.Errorf("round trip mismatch:\noriginal: %+v\nloaded:   %+v", original, loaded)
	}
}

func TestLoadMissingReturnsErrNoRun(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	if _, err := store.Load(); !errors.Is(err, ErrNoRun) {
		t.Errorf("err = %v, want ErrNoRun", err)
	}
}

func TestLoadCorruptIsHardError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewStore(path).Load()
	if err == nil {
		t.Fatal("expected error for corrupt state file")
	}
	if errors.Is(err, ErrNoRun) {
		t.Error("corrupt file must not look like a missing run")
	}
}

func TestUpdateItemStatus(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	rs := testRunState()
	if err := store.Save(rs); err != nil {
		t.Fatal(err)
	}

	if err := store.UpdateItemStatus(rs, "002", item.StatusInProgress); err != nil {
		t.Fatalf("UpdateItemStatus failed: %v", err)
	}
	it, _ := rs.Item("002")
	if it.Status != item.StatusInProgress {
		t.Errorf("status = %s", it.Status)
	}
	if it.StartedAt == nil {
		t.Error("StartedAt not stamped")
	}
	started := *it.StartedAt

	if err := store.UpdateItemStatus(rs, "002", item.StatusCompleted); err != nil {
		t.Fatalf("UpdateItemStatus failed: %v", err)
	}
	if it.FinishedAt == nil {
		t.Error("FinishedAt not stamped")
	}
	if !it.StartedAt.Equal(started) {
		t.Error("StartedAt regenerated on completion")
	}

	// Mutation persisted, not just in memory.
	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	persisted, _ := loaded.Item("002")
	if persisted.Status != item.StatusCompleted {
		t.Errorf("persisted status = %s", persisted.Status)
	}
}

func TestUpdateItemStatusUnknownItem(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	rs := testRunState()

	err := store.UpdateItemStatus(rs, "999", item.StatusCompleted)
	if !errors.Is(err, ErrUnknownItem) {
		t.Errorf("err = %v, want ErrUnknownItem", err)
	}
}

func TestUpdateItemStatusInvalidStatus(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	rs := testRunState()

	err := store.UpdateItemStatus(rs, "001", item.Status("exploded"))
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestArchive(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	rs := testRunState()
	if err := store.Save(rs); err != nil {
		t.Fatal(err)
	}

	dest, err := store.Archive()
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("archive missing: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoRun) {
		t.Errorf("state still loadable after archive: %v", err)
	}
}

func TestArchiveWithoutRun(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	if _, err := store.Archive(); !errors.Is(err, ErrNoRun) {
		t.Errorf("err = %v, want ErrNoRun", err)
	}
}

func TestHistory(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "state.json"))

	older := testRunState()
	older.RunID = "gaffer-older"
	older.CreatedAt = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if err := store.Save(older); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Archive(); err != nil {
		t.Fatal(err)
	}

	newer := testRunState()
	newer.RunID = "gaffer-newer"
	newer.Items[0].Status = item.StatusCompleted
	if err := store.Save(newer); err != nil {
		t.Fatal(err)
	}

	// Corrupt stray document must be listed, not fatal.
	if err := os.WriteFile(filepath.Join(dir, "state.json.cancelled.1"), []byte("junk"), 0644); err != nil {
		t.Fatal(err)
	}

	history, err := store.History()
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(history), history)
	}
	if history[0].RunID != "gaffer-newer" {
		t.Errorf("first entry = %s, want newest", history[0].RunID)
	}
	if history[0].Completed != 1 || history[0].Total != 3 {
		t.Errorf("counts = %d/%d", history[0].Completed, history[0].Total)
	}

	var sawCorrupt, sawCancelled bool
	for _, h := range history {
		if h.Err != nil {
			sawCorrupt = true
		}
		if h.Cancelled && h.RunID == "gaffer-older" {
			sawCancelled = true
		}
	}
	if !sawCorrupt {
		t.Error("corrupt document not listed")
	}
	if !sawCancelled {
		t.Error("cancelled run not listed")
	}
}
