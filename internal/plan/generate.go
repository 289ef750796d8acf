package plan

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/example/gaffer/internal/item"
)

// PlannedItem ties a generated item file back to its spec component.
type PlannedItem struct {
	Item      item.Item
	Slug      string
	Title     string
	DependsOn []string // component slugs
}

const excerptLimit = 800

func itemTemplate(title, excerpt string) string {
	return fmt.Sprintf(`# %s

## Context
%s

## Objective
Implement: %s

## Requirements
- Follow existing project patterns.
- Add tests if applicable.

## Acceptance Criteria
- [ ] Feature implemented
- [ ] Tests updated/added

## Verification
- Run relevant tests/build commands
`, title, strings.TrimSpace(excerpt), title)
}

// ItemContent renders the standard item file body for a title and context
// excerpt. Used for both spec components and ad-hoc additions.
func ItemContent(title, excerpt string) string {
	if len(excerpt) > excerptLimit {
		excerpt = excerpt[:excerptLimit]
	}
	return itemTemplate(title, excerpt)
}

// GenerateItems writes one numbered item file per spec component, then
// patches stable "Depends on:" lines into the files once every component's
// number is known, so a later replan can rebuild the graph from the files
// alone.
func GenerateItems(store *item.Store, analysis SpecAnalysis, folder string) ([]PlannedItem, error) {
	planned := make([]PlannedItem, 0, len(analysis.Components))
	for _, c := range analysis.Components {
		created, err := store.Create(c.Slug, ItemContent(c.Title, c.Text), folder)
		if err != nil {
			return nil, fmt.Errorf("failed to create item for %q: %w", c.Title, err)
		}
		planned = append(planned, PlannedItem{
			Item:      created,
			Slug:      c.Slug,
			Title:     c.Title,
			DependsOn: analysis.Dependencies[c.Slug],
		})
	}
	if err := patchDependsOnLines(planned); err != nil {
		return nil, err
	}
	return planned, nil
}

var dependsLinePresentRe = regexp.MustCompile(`(?im)^\s*depends\s+on\s*:`)

// patchDependsOnLines inserts "Depends on: NNN, ..." after each item's title
// once numbers exist. Files that already declare dependencies are left alone.
func patchDependsOnLines(planned []PlannedItem) error {
	slugToNumber := make(map[string]string, len(planned))
	for _, p := range planned {
		slugToNumber[p.Slug] = p.Item.Number
	}

	for _, p := range planned {
		var depIDs []string
		for _, slug := range p.DependsOn {
			if n, ok := slugToNumber[slug]; ok {
				depIDs = append(depIDs, n)
			}
		}
		if len(depIDs) == 0 {
			continue
		}
		sort.Strings(depIDs)

		raw, err := os.ReadFile(p.Item.Path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p.Item.Path, err)
		}
		text := string(raw)
		if dependsLinePresentRe.MatchString(text) {
			continue
		}

		depsLine := "Depends on: " + strings.Join(depIDs, ", ")
		lines := strings.Split(text, "\n")
		var out []string
		inserted := false
		for i, line := range lines {
			out = append(out, line)
			if !inserted && i == 0 && strings.HasPrefix(line, "#") {
				if len(lines) > 1 && strings.TrimSpace(lines[1]) == "" {
					out = append(out, "")
				}
				out = append(out, depsLine, "")
				inserted = true
			}
		}
		if !inserted {
			out = append([]string{depsLine, ""}, out...)
		}
		patched := strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"
		if err := os.WriteFile(p.Item.Path, []byte(patched), 0644); err != nil {
			return fmt.Errorf("failed to patch %s: %w", p.Item.Path, err)
		}
	}
	return nil
}
