package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/gaffer/internal/state"
)

// Render produces the human-readable plan document for a run: a summary,
// the phase-by-phase schedule grouped by worker, and the dependency listing.
func Render(rs *state.RunState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run Plan: %s\n\n", rs.RunID)

	workerCounts := make(map[string]int)
	for _, it := range rs.Items {
		if it.Worker != "" {
			workerCounts[it.Worker]++
		}
	}
	var workers []string
	for w := range workerCounts {
		workers = append(workers, w)
	}
	sort.Strings(workers)
	var workerSummary []string
	for _, w := range workers {
		workerSummary = append(workerSummary, fmt.Sprintf("%s (%d)", w, workerCounts[w]))
	}

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Total Items: %d\n", len(rs.Items))
	fmt.Fprintf(&b, "- Phases: %d\n", rs.TotalPhases)
	if len(workerSummary) > 0 {
		fmt.Fprintf(&b, "- Workers: %s\n", strings.Join(workerSummary, ", "))
	}
	b.WriteString("\n## Execution Plan\n\n")

	for i, phase := range rs.Phases {
		fmt.Fprintf(&b, "### Phase %d\n", i+1)
		if rs.CycleFallback && i == len(rs.Phases)-1 {
			b.WriteString("(unresolved dependency cycle, runs sequentially)\n")
		}
		groups := make(map[string][]string)
		for _, id := range phase {
			w := "codex"
			if it, ok := rs.Item(id); ok && it.Worker != "" {
				w = it.Worker
			}
			groups[w] = append(groups[w], id)
		}
		var groupWorkers []string
		for w := range groups {
			groupWorkers = append(groupWorkers, w)
		}
		sort.Strings(groupWorkers)
		for _, w := range groupWorkers {
			fmt.Fprintf(&b, "- %s: %s\n", w, strings.Join(groups[w], ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Dependencies\n\n")
	var ids []string
	for id := range rs.Dependencies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	any := false
	for _, id := range ids {
		if deps := rs.Dependencies[id]; len(deps) > 0 {
			fmt.Fprintf(&b, "- %s depends on: %s\n", id, strings.Join(deps, ", "))
			any = true
		}
	}
	if !any {
		b.WriteString("- (none detected)\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
