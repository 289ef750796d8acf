package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/gaffer/internal/config"
	"github.com/example/gaffer/internal/logger"
	"github.com/example/gaffer/internal/state"
)

func TestNameAndBranch(t *testing.T) {
	if got := Name("My Run", "001"); got != "my-run-001" {
		t.Errorf("Name = %q", got)
	}
	if got := Branch("My Run", "001"); got != "gaffer/my-run/001" {
		t.Errorf("Branch = %q", got)
	}
}

type gitCall struct {
	dir  string
	args []string
}

func newTestManager(t *testing.T, calls *[]gitCall) *Manager {
	t.Helper()
	m := NewManager(t.TempDir(), config.WorkspaceOptions{Root: "wt", Base: "main"}, logger.NewNoopLogger())
	m.runGit = func(dir string, args ...string) (string, error) {
		*calls = append(*calls, gitCall{dir: dir, args: args})
		return "", nil
	}
	return m
}

func TestCreateAddsWorktree(t *testing.T) {
	var calls []gitCall
	m := newTestManager(t, &calls)

	ref, err := m.Create("run", "001")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if ref.Name != "run-001" || ref.Branch != "gaffer/run/001" {
		t.Errorf("ref = %+v", ref)
	}
	if ref.Path != filepath.Join(m.Root, "run-001") {
		t.Errorf("Path = %s", ref.Path)
	}

	if len(calls) != 1 {
		t.Fatalf("git calls = %v", calls)
	}
	got := strings.Join(calls[0].args, " ")
	want := "worktree add -b gaffer/run/001 " + ref.Path + " main"
	if got != want {
		t.Errorf("git args = %q, want %q", got, want)
	}
}

func TestCreateCollisionSuffix(t *testing.T) {
	var calls []gitCall
	m := newTestManager(t, &calls)

	// Leftover directories from a previous run.
	for _, name := range []string{"run-001", "run-001-1"} {
		if err := os.MkdirAll(filepath.Join(m.Root, name), 0755); err != nil {
			t.Fatal(err)
		}
	}

	ref, err := m.Create("run", "001")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if ref.Name != "run-001-2" {
		t.Errorf("Name = %q, want run-001-2", ref.Name)
	}
	if ref.Branch != "gaffer/run/001-2" {
		t.Errorf("Branch = %q", ref.Branch)
	}
}

func TestRemoveTearsDownWorktreeAndBranch(t *testing.T) {
	var calls []gitCall
	m := newTestManager(t, &calls)

	m.Remove(&state.WorkspaceRef{
		Name:   "run-001",
		Path:   "/wt/run-001",
		Branch: "gaffer/run/001",
	})

	var joined []string
	for _, c := range calls {
		joined = append(joined, strings.Join(c.args, " "))
	}
	if len(joined) < 2 || joined[0] != "worktree remove --force /wt/run-001" {
		t.Errorf("calls = %v", joined)
	}
	found := false
	for _, c := range joined {
		if c == "branch -D gaffer/run/001" {
			found = true
		}
	}
	if !found {
		t.Errorf("branch not deleted: %v", joined)
	}
}

func TestRemoveSkipsForeignBranch(t *testing.T) {
	var calls []gitCall
	m := newTestManager(t, &calls)

	m.Remove(&state.WorkspaceRef{Path: "/wt/x", Branch: "main"})

	for _, c := range calls {
		if strings.Join(c.args[:2], " ") == "branch -D" {
			t.Errorf("must never delete a branch outside the managed prefix: %v", c.args)
		}
	}
}

func TestRemoveNilRef(t *testing.T) {
	var calls []gitCall
	m := newTestManager(t, &calls)
	m.Remove(nil)
	if len(calls) != 0 {
		t.Errorf("calls = %v, want none", calls)
	}
}

func TestSeedWritesTaskFile(t *testing.T) {
	var calls []gitCall
	m := newTestManager(t, &calls)

	dir := t.TempDir()
	ref := &state.WorkspaceRef{Name: "run-001", Path: dir, Branch: "gaffer/run/001"}
	if err := m.Seed(ref, "# Schema\n\nCreate tables.\n"); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "TASK.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "# Schema") {
		t.Errorf("TASK.md content = %q", data)
	}

	if err := m.Seed(nil, "x"); err == nil {
		t.Error("nil ref must fail")
	}
}
