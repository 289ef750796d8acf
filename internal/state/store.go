package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/example/gaffer/internal/item"
)

// Store reads and writes the run state document at a fixed path.
type Store struct {
	Path string
}

// NewStore creates a store for the state file at path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// LockPath is the advisory lock file guarding writes to this state file.
func (s *Store) LockPath() string {
	return s.Path + ".lock"
}

// Load reads the run state. A missing file returns ErrNoRun; a malformed
// file is a hard error, never silently discarded.
func (s *Store) Load() (*RunState, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w (looked for %s)", ErrNoRun, s.Path)
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var rs RunState
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("corrupt state file %s: %w", s.Path, err)
	}
	return &rs, nil
}

// Save persists the whole document atomically under the advisory lock.
func (s *Store) Save(rs *RunState) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	release, err := AcquireLock(s.LockPath(), rs.RunID)
	if err != nil {
		return err
	}
	defer release()

	return writeJSONAtomic(s.Path, rs)
}

// UpdateItemStatus validates the status, stamps start/finish times, mutates
// the item, and re-persists the entire document.
func (s *Store) UpdateItemStatus(rs *RunState, id string, status item.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	it, ok := rs.Item(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}

	now := time.Now().UTC()
	if status == item.StatusInProgress && it.StartedAt == nil {
		it.StartedAt = &now
	}
	if status.Terminal() {
		it.FinishedAt = &now
	}
	it.Status = status

	return s.Save(rs)
}

// Archive renames the state file out of the way (cancellation keeps history,
// it never deletes). Returns the archive path.
func (s *Store) Archive() (string, error) {
	dest := s.Path + ".cancelled"
	if _, err := os.Stat(dest); err == nil {
		dest = fmt.Sprintf("%s.cancelled.%d", s.Path, time.Now().Unix())
	}
	if err := os.Rename(s.Path, dest); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w (looked for %s)", ErrNoRun, s.Path)
		}
		return "", err
	}
	return dest, nil
}

// HistoryEntry summarizes one state document, active or archived.
type HistoryEntry struct {
	File      string
	RunID     string
	CreatedAt time.Time
	Cancelled bool
	Completed int
	Total     int
	Err       error
}

// History lists state documents sharing this store's path prefix, newest
// first. Corrupt files are listed with their error, never fatal.
func (s *Store) History() ([]HistoryEntry, error) {
	dir := filepath.Dir(s.Path)
	base := filepath.Base(s.Path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var history []HistoryEntry
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, base) || strings.Contains(name, ".tmp.") || strings.HasSuffix(name, ".lock") {
			continue
		}

		entry := HistoryEntry{
			File:      filepath.Join(dir, name),
			Cancelled: strings.Contains(name, ".cancelled"),
		}
		data, err := os.ReadFile(entry.File)
		if err != nil {
			entry.Err = err
			history = append(history, entry)
			continue
		}
		var rs RunState
		if err := json.Unmarshal(data, &rs); err != nil {
			entry.Err = err
			history = append(history, entry)
			continue
		}
		entry.RunID = rs.RunID
		entry.CreatedAt = rs.CreatedAt
		entry.Total = len(rs.Items)
		entry.Completed = rs.CountByStatus()[item.StatusCompleted]
		history = append(history, entry)
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})
	return history, nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
