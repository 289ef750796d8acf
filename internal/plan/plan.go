package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/gaffer/internal/config"
	"github.com/example/gaffer/internal/graph"
	"github.com/example/gaffer/internal/item"
	"github.com/example/gaffer/internal/logger"
	"github.com/example/gaffer/internal/state"
	"github.com/example/gaffer/internal/worker"
)

// Params configures run construction.
type Params struct {
	SpecPath    string
	SpecContent string
	ItemsDir    string
	Folder      string
	Options     config.Options
	Feed        worker.Feed
	Log         logger.Logger
}

// NewRun analyzes a spec, generates one item file per component, levels the
// dependency graph into phases, assigns workers, and returns the initial
// RunState ready to persist.
func NewRun(p Params) (*state.RunState, error) {
	analysis := AnalyzeSpec(p.SpecContent)
	if len(analysis.Components) == 0 {
		return nil, fmt.Errorf("spec yielded no components")
	}

	store := item.NewStore(p.ItemsDir)
	planned, err := GenerateItems(store, analysis, p.Folder)
	if err != nil {
		return nil, err
	}

	slugToID := make(map[string]string, len(planned))
	for _, pl := range planned {
		slugToID[pl.Slug] = pl.Item.Number
	}

	deps := make(map[string][]string, len(planned))
	empty := true
	for _, pl := range planned {
		var ids []string
		for _, slug := range pl.DependsOn {
			if id, ok := slugToID[slug]; ok && id != pl.Item.Number {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		deps[pl.Item.Number] = ids
		if len(ids) > 0 {
			empty = false
		}
	}
	// Spec analysis found nothing; fall back to what the item files declare.
	if empty {
		for _, pl := range planned {
			var ids []string
			for _, d := range item.ParseDependencies(pl.Item.Content) {
				if d != pl.Item.Number {
					ids = append(ids, d)
				}
			}
			deps[pl.Item.Number] = ids
		}
	}

	hints := make([]RoutingHint, 0, len(planned))
	items := make([]state.ItemState, 0, len(planned))
	ids := make([]string, 0, len(planned))
	for _, pl := range planned {
		ids = append(ids, pl.Item.Number)
		hints = append(hints, RoutingHint{ID: pl.Item.Number, Text: pl.Title + " " + pl.Slug})
		items = append(items, state.ItemState{
			ID:     pl.Item.Number,
			Title:  pl.Title,
			Path:   pl.Item.Path,
			Status: item.StatusPending,
		})
	}
	sort.Strings(ids)

	rs := newRunState(p, ids, items, deps, hints)
	rs.RunID = state.NewRunID(ProjectHint(p.SpecContent, p.SpecPath), rs.CreatedAt)
	rs.SpecHash = state.HashSpec(p.SpecContent)
	rs.SpecPath = p.SpecPath
	return rs, nil
}

// FromExisting builds a run over already-written item files: dependencies
// come from the items' own declarations and file references.
func FromExisting(existing []item.Item, p Params) (*state.RunState, error) {
	if len(existing) == 0 {
		return nil, fmt.Errorf("no items to plan")
	}

	nodes := make([]graph.Node, 0, len(existing))
	hints := make([]RoutingHint, 0, len(existing))
	items := make([]state.ItemState, 0, len(existing))
	ids := make([]string, 0, len(existing))
	for _, it := range existing {
		analysis := item.Analyze(it.Content, it.Name)
		nodes = append(nodes, graph.Node{
			ID:              it.Ref,
			Number:          it.Number,
			Deps:            analysis.Dependencies,
			ReferencedFiles: analysis.ReferencedFiles,
			OutputFiles:     analysis.OutputFiles,
			Text:            it.Content,
		})
		hintText := strings.Join(append([]string{analysis.Title, analysis.TaskType},
			truncateList(analysis.ReferencedFiles, 10)...), " ")
		hints = append(hints, RoutingHint{ID: it.Ref, Text: hintText})
		items = append(items, state.ItemState{
			ID:     it.Ref,
			Title:  analysis.Title,
			Path:   it.Path,
			Status: item.StatusPending,
		})
		ids = append(ids, it.Ref)
	}

	deps, warnings := graph.Build(nodes)
	if p.Log != nil {
		for _, w := range warnings {
			p.Log.Warn(w)
		}
	}
	sort.Strings(ids)

	rs := newRunState(p, ids, items, deps, hints)
	rs.RunID = state.NewRunID(ProjectHint("", p.ItemsDir), rs.CreatedAt)
	return rs, nil
}

func newRunState(p Params, ids []string, items []state.ItemState, deps map[string][]string, hints []RoutingHint) *state.RunState {
	phases, residual := graph.Level(ids, deps)
	cycleFallback := false
	if len(residual) > 0 {
		phases = append(phases, residual)
		cycleFallback = true
	}

	assignments := AssignModels(hints, p.Options.Models, p.Feed)
	for i := range items {
		items[i].Worker = assignments[items[i].ID]
	}

	return &state.RunState{
		CreatedAt:     time.Now().UTC(),
		ItemsDir:      p.ItemsDir,
		Items:         items,
		Phases:        phases,
		Dependencies:  deps,
		CycleFallback: cycleFallback,
		CurrentPhase:  1,
		TotalPhases:   len(phases),
		Options:       p.Options,
	}
}

func truncateList(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
