// Package workspace manages per-item isolated working directories backed by
// git worktrees. Each item in a run owns its worktree and branch exclusively
// for the run's lifetime.
package workspace

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/example/gaffer/internal/config"
	"github.com/example/gaffer/internal/item"
	"github.com/example/gaffer/internal/logger"
	"github.com/example/gaffer/internal/state"
)

const branchPrefix = "gaffer/"

// Manager creates and tears down item worktrees under a common root.
type Manager struct {
	RepoRoot string
	Root     string
	Base     string
	Log      logger.Logger

	// runGit overrides git execution in tests.
	runGit func(dir string, args ...string) (string, error)
}

func NewManager(repoRoot string, opts config.WorkspaceOptions, log logger.Logger) *Manager {
	root := opts.Root
	if root == "" {
		root = ".worktrees"
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(repoRoot, root)
	}
	base := opts.Base
	if base == "" {
		base = "HEAD"
	}
	return &Manager{RepoRoot: repoRoot, Root: root, Base: base, Log: log}
}

// Name is the worktree directory name for an item.
func Name(runID, itemID string) string {
	return fmt.Sprintf("%s-%s", item.Slugify(runID), itemID)
}

// Branch is the dedicated branch an item's work lands on.
func Branch(runID, itemID string) string {
	return fmt.Sprintf("%s%s/%s", branchPrefix, item.Slugify(runID), itemID)
}

// Create adds a worktree on a fresh branch for the item. An existing
// directory of the same name gets a numeric suffix rather than being reused;
// a leftover worktree must never be silently shared.
func (m *Manager) Create(runID, itemID string) (*state.WorkspaceRef, error) {
	if err := os.MkdirAll(m.Root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create worktree root: %w", err)
	}

	name := Name(runID, itemID)
	branch := Branch(runID, itemID)
	path := filepath.Join(m.Root, name)
	if _, err := os.Stat(path); err == nil {
		suffix := 1
		for {
			candidate := fmt.Sprintf("%s-%d", name, suffix)
			if _, err := os.Stat(filepath.Join(m.Root, candidate)); os.IsNotExist(err) {
				name = candidate
				break
			}
			suffix++
		}
		branch = fmt.Sprintf("%s-%d", branch, suffix)
		path = filepath.Join(m.Root, name)
	}

	if _, err := m.git(m.RepoRoot, "worktree", "add", "-b", branch, path, m.Base); err != nil {
		return nil, fmt.Errorf("failed to add worktree for %s: %w", itemID, err)
	}

	m.Log.Debug("workspace created",
		logger.F("item", itemID),
		logger.F("path", path),
		logger.F("branch", branch))
	return &state.WorkspaceRef{Name: name, Path: path, Branch: branch}, nil
}

// Seed writes the item's content into the worktree as TASK.md so the worker
// finds its brief inside its own working directory.
func (m *Manager) Seed(ref *state.WorkspaceRef, content string) error {
	if ref == nil || ref.Path == "" {
		return fmt.Errorf("workspace has no path")
	}
	return os.WriteFile(filepath.Join(ref.Path, "TASK.md"), []byte(content), 0644)
}

// Remove tears down a worktree and deletes its branch. Only branches this
// package created are ever deleted. Best effort; teardown failures are
// logged, not fatal.
func (m *Manager) Remove(ref *state.WorkspaceRef) {
	if ref == nil {
		return
	}
	if ref.Path != "" {
		if _, err := m.git(m.RepoRoot, "worktree", "remove", "--force", ref.Path); err != nil {
			m.Log.Warn("failed to remove worktree",
				logger.F("path", ref.Path),
				logger.F("error", err))
		}
	}
	if strings.HasPrefix(ref.Branch, branchPrefix) && ref.Branch != m.currentBranch() {
		if _, err := m.git(m.RepoRoot, "branch", "-D", ref.Branch); err != nil {
			m.Log.Warn("failed to delete branch",
				logger.F("branch", ref.Branch),
				logger.F("error", err))
		}
	}
}

func (m *Manager) currentBranch() string {
	out, err := m.git(m.RepoRoot, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func (m *Manager) git(dir string, args ...string) (string, error) {
	if m.runGit != nil {
		return m.runGit(dir, args...)
	}
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %v: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
