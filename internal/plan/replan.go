package plan

import (
	"os"
	"sort"

	"github.com/example/gaffer/internal/graph"
	"github.com/example/gaffer/internal/item"
	"github.com/example/gaffer/internal/logger"
	"github.com/example/gaffer/internal/state"
	"github.com/example/gaffer/internal/worker"
)

// Replan rebuilds an active run's dependency graph and phases from the item
// files on disk, after items were added or skipped. Completed work is never
// disturbed: terminal items keep their status and worker, and the phase
// pointer is only clamped into the new range.
func Replan(rs *state.RunState, feed worker.Feed, log logger.Logger) {
	deps := make(map[string][]string, len(rs.Items))
	var active []string
	var hints []RoutingHint

	for i := range rs.Items {
		it := &rs.Items[i]

		var declared []string
		if raw, err := os.ReadFile(it.Path); err == nil {
			for _, d := range item.ParseDependencies(string(raw)) {
				if d != it.ID {
					declared = append(declared, d)
				}
			}
		} else if log != nil {
			log.Warn("item file unreadable during replan",
				logger.F("item", it.ID),
				logger.F("path", it.Path))
		}
		deps[it.ID] = declared

		if it.Status == item.StatusSkipped {
			continue
		}
		active = append(active, it.ID)
		hints = append(hints, RoutingHint{ID: it.ID, Text: it.Title})
	}
	sort.Strings(active)

	phases, residual := graph.Level(active, deps)
	cycleFallback := false
	if len(residual) > 0 {
		phases = append(phases, residual)
		cycleFallback = true
	}

	rs.Dependencies = deps
	rs.Phases = phases
	rs.TotalPhases = len(phases)
	rs.CycleFallback = cycleFallback
	if rs.CurrentPhase < 1 {
		rs.CurrentPhase = 1
	}
	if rs.CurrentPhase > rs.TotalPhases+1 {
		rs.CurrentPhase = rs.TotalPhases + 1
	}

	assignments := AssignModels(hints, rs.Options.Models, feed)
	for i := range rs.Items {
		it := &rs.Items[i]
		if it.Status != item.StatusPending {
			continue
		}
		if w, ok := assignments[it.ID]; ok {
			it.Worker = w
		}
	}
}

// Dependents lists items whose declared dependencies include the given id.
func Dependents(deps map[string][]string, id string) []string {
	var out []string
	for k, ds := range deps {
		for _, d := range ds {
			if d == id {
				out = append(out, k)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
