// Package plan turns a free-form specification or an existing set of item
// files into a leveled, worker-assigned run.
package plan

import (
	"regexp"
	"sort"
	"strings"

	"github.com/example/gaffer/internal/item"
)

// Component is one work unit identified in a specification.
type Component struct {
	Title string
	Slug  string
	Text  string
}

// SpecAnalysis is the heuristic decomposition of a specification.
type SpecAnalysis struct {
	Components []Component
	// Dependencies is slug-keyed; values are slugs of prerequisite components.
	Dependencies map[string][]string
}

var (
	specHeaderRe = regexp.MustCompile(`^#{2,3}\s+(.+?)\s*$`)
	depPhraseRe  = regexp.MustCompile(`(?i)\b(?:depends on|requires|after|needs)\b\s+([a-z0-9 _/-]+)`)
)

// AnalyzeSpec splits a spec on ## and ### headings into components and infers
// lightweight dependencies between them: explicit phrases, mentions of other
// component titles, and a few conventional orderings (auth after database,
// api after auth, frontend after api). Best effort; an unparseable spec
// yields a single overview component.
func AnalyzeSpec(spec string) SpecAnalysis {
	var components []Component
	var cur *Component

	for _, line := range strings.Split(spec, "\n") {
		if m := specHeaderRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if cur != nil {
				components = append(components, *cur)
			}
			title := strings.TrimSpace(m[1])
			cur = &Component{Title: title, Slug: item.Slugify(title)}
			continue
		}
		if cur == nil {
			cur = &Component{Title: "Overview", Slug: "overview"}
		}
		cur.Text += line + "\n"
	}
	if cur != nil {
		components = append(components, *cur)
	}

	slugs := make([]string, 0, len(components))
	titleBySlug := make(map[string]string, len(components))
	for _, c := range components {
		slugs = append(slugs, c.Slug)
		titleBySlug[c.Slug] = c.Title
	}

	deps := make(map[string][]string, len(slugs))
	for _, s := range slugs {
		deps[s] = nil
	}
	addDep := func(src, dst string) {
		if src == dst {
			return
		}
		for _, d := range deps[src] {
			if d == dst {
				return
			}
		}
		deps[src] = append(deps[src], dst)
	}

	for _, c := range components {
		text := strings.ToLower(c.Text)

		for _, m := range depPhraseRe.FindAllStringSubmatch(text, -1) {
			target := item.Slugify(m[1])
			for _, slug := range slugs {
				if slug == target || strings.Contains(slug, target) || strings.Contains(target, slug) {
					addDep(c.Slug, slug)
				}
			}
		}

		for slug, title := range titleBySlug {
			if slug != c.Slug && strings.Contains(text, strings.ToLower(title)) {
				addDep(c.Slug, slug)
			}
		}
	}

	// Conventional layering for specs that name the usual suspects.
	has := func(s string) bool { _, ok := titleBySlug[s]; return ok }
	for _, c := range components {
		src := c.Slug
		if (strings.Contains(src, "auth")) && has("database") {
			addDep(src, "database")
		}
		if (strings.Contains(src, "api") || strings.Contains(src, "backend")) && (has("auth") || has("authentication")) {
			if has("auth") {
				addDep(src, "auth")
			} else {
				addDep(src, "authentication")
			}
		}
		if (strings.Contains(src, "frontend") || strings.Contains(src, "ui")) && (has("api") || has("backend")) {
			if has("api") {
				addDep(src, "api")
			} else {
				addDep(src, "backend")
			}
		}
	}

	for s := range deps {
		sort.Strings(deps[s])
	}
	return SpecAnalysis{Components: components, Dependencies: deps}
}

// ProjectHint derives a short name for run identifiers: the first top-level
// heading, else the spec path stem, else a generic fallback.
func ProjectHint(spec, specPath string) string {
	for _, line := range strings.Split(spec, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	if specPath != "" {
		base := specPath
		if i := strings.LastIndexByte(base, '/'); i >= 0 {
			base = base[i+1:]
		}
		if i := strings.LastIndexByte(base, '.'); i > 0 {
			base = base[:i]
		}
		if base != "" {
			return base
		}
	}
	return "run"
}
