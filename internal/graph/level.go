package graph

import "sort"

// Level performs Kahn levelization: each phase collects every remaining node
// whose dependencies are all satisfied, sorted by identifier so the same
// graph always levels the same way. Nodes left when no progress is possible
// form the residual cycle set; they are returned, never resolved here.
// Dependencies naming nodes outside the input set are ignored.
func Level(nodes []string, deps map[string][]string) (phases [][]string, residual []string) {
	known := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		known[n] = struct{}{}
	}

	incoming := make(map[string]map[string]struct{}, len(nodes))
	for _, n := range nodes {
		pending := make(map[string]struct{})
		for _, d := range deps[n] {
			if _, ok := known[d]; ok && d != n {
				pending[d] = struct{}{}
			}
		}
		incoming[n] = pending
	}

	remaining := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		remaining[n] = struct{}{}
	}

	for len(remaining) > 0 {
		var ready []string
		for n := range remaining {
			if len(incoming[n]) == 0 {
				ready = append(ready, n)
			}
		}
		if len(ready) == 0 {
			break
		}
		sort.Strings(ready)
		phases = append(phases, ready)

		for _, n := range ready {
			delete(remaining, n)
		}
		for n := range remaining {
			for _, r := range ready {
				delete(incoming[n], r)
			}
		}
	}

	for n := range remaining {
		residual = append(residual, n)
	}
	sort.Strings(residual)
	return phases, residual
}
