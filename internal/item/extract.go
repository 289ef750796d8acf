package item

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Analysis holds everything extracted from one item's text. Extraction is
// heuristic and best-effort: unparseable input yields empty fields, never an
// error.
type Analysis struct {
	Title                string
	Dependencies         []string
	TaskType             string
	VerificationCommands []string
	ReferencedFiles      []string
	OutputFiles          []string
}

var (
	dependsLineRe = regexp.MustCompile(`(?i)^\s*depends\s+on\s*:\s*(.+?)\s*$`)
	idTokenRe     = regexp.MustCompile(`\b\d{1,3}\b`)

	// Inline phrasings: "depends on 001", "requires item 002",
	// "after 003 is complete", "once 004 is done".
	dependsPhraseRe  = regexp.MustCompile(`(?i)\bdepends\s+on\b[^0-9]*(\d{1,3})\b`)
	requiresPhraseRe = regexp.MustCompile(`(?i)\b(?:requires|needs)\b[^0-9]{0,40}\b(?:prompt|task|item)?\b[^0-9]{0,40}(\d{1,3})\b`)
	afterPhraseRe    = regexp.MustCompile(`(?i)\bafter\b[^0-9]{0,40}\b(?:prompt|task|item)?\b[^0-9]{0,40}(\d{1,3})\b`)
	oncePhraseRe     = regexp.MustCompile(`(?i)\bonce\b[^0-9]{0,60}\b(\d{1,3})\b[^\n]{0,80}\b(?:done|complete|completed)\b`)

	atPathRe   = regexp.MustCompile(`@([A-Za-z0-9_./-]+)`)
	tickRe     = regexp.MustCompile("`([^`\n]+)`")
	fileExtRe  = regexp.MustCompile(`\.[a-zA-Z0-9]{1,5}$`)
	commandRe  = regexp.MustCompile(`^(python3|pytest|npm|pnpm|yarn|go|make|cargo|rg|git)\b`)
	rangePart  = regexp.MustCompile(`^(\d{1,3})\s*-\s*(\d{1,3})$`)
	singlePart = regexp.MustCompile(`^\d{1,3}$`)
)

// NormalizeID zero-pads numeric identifiers to three digits; anything else
// (folder-qualified refs, stems) passes through unchanged.
func NormalizeID(s string) string {
	s = strings.TrimSpace(s)
	if singlePart.MatchString(s) {
		for len(s) < 3 {
			s = "0" + s
		}
	}
	return s
}

// ParseDependencies extracts declared item identifiers from free text:
// explicit "Depends on: <list>" lines first, then inline phrasings.
// Identifiers are normalized to zero-padded form and returned sorted.
func ParseDependencies(text string) []string {
	deps := make(map[string]struct{})

	for _, line := range strings.Split(text, "\n") {
		if m := dependsLineRe.FindStringSubmatch(line); m != nil {
			for _, id := range idTokenRe.FindAllString(m[1], -1) {
				deps[NormalizeID(id)] = struct{}{}
			}
		}
	}

	for _, re := range []*regexp.Regexp{dependsPhraseRe, requiresPhraseRe, afterPhraseRe, oncePhraseRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			deps[NormalizeID(m[1])] = struct{}{}
		}
	}

	return sortedKeys(deps)
}

// ExtractSection returns the body of a named section, matching either a
// <name>...</name> tag pair or a "## Name" markdown heading (until the next
// heading at the same or higher level). Returns "" when absent.
func ExtractSection(content, name string) string {
	tagRe := regexp.MustCompile(`(?is)<` + regexp.QuoteMeta(name) + `>(.*?)</` + regexp.QuoteMeta(name) + `>`)
	if m := tagRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}

	headerRe := regexp.MustCompile(`(?im)^(#{1,6})\s+` + regexp.QuoteMeta(name) + `\b.*$`)
	loc := headerRe.FindStringSubmatchIndex(content)
	if loc == nil {
		return ""
	}
	level := loc[3] - loc[2]
	tail := content[loc[1]:]
	nextRe := regexp.MustCompile(fmt.Sprintf(`(?m)^#{1,%d}\s+\S`, level))
	if next := nextRe.FindStringIndex(tail); next != nil {
		tail = tail[:next[0]]
	}
	return strings.TrimSpace(tail)
}

// ExtractTitle derives a display title: the first line of an "objective"
// section if present, otherwise the first markdown heading.
func ExtractTitle(content string) string {
	if objective := ExtractSection(content, "objective"); objective != "" {
		for _, line := range strings.Split(objective, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				return truncate(line, 160)
			}
		}
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			return truncate(strings.TrimSpace(strings.TrimLeft(line, "#")), 160)
		}
		break
	}
	return ""
}

// ExtractPaths returns file paths referenced as @file and `file` tokens.
// Backticked tokens count only when they look like paths (contain a slash or
// end in a short extension).
func ExtractPaths(text string) []string {
	paths := make(map[string]struct{})

	for _, m := range atPathRe.FindAllStringSubmatch(text, -1) {
		p := strings.TrimPrefix(strings.TrimSpace(m[1]), "./")
		if p != "" {
			paths[p] = struct{}{}
		}
	}

	for _, m := range tickRe.FindAllStringSubmatch(text, -1) {
		token := strings.TrimSpace(m[1])
		if !strings.Contains(token, "/") && !fileExtRe.MatchString(token) {
			continue
		}
		token = strings.TrimPrefix(token, "./")
		if token != "" {
			paths[token] = struct{}{}
		}
	}

	return sortedKeys(paths)
}

// frontMatter is the optional YAML header an item file may carry.
type frontMatter struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	DependsOn []string `yaml:"depends_on"`
}

// splitFrontMatter separates a leading "---" YAML block from the body.
// Malformed YAML is ignored and the whole content treated as body.
func splitFrontMatter(content string) (*frontMatter, string) {
	if !strings.HasPrefix(content, "---\n") {
		return nil, content
	}
	rest := content[4:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, content
	}
	var fm frontMatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return nil, content
	}
	body := rest[end+4:]
	body = strings.TrimPrefix(body, "\n")
	return &fm, body
}

// Analyze extracts title, dependencies, task type, verification commands, and
// file references from one item's content. fallbackTitle is used when the
// content yields no title (typically the filename).
func Analyze(content, fallbackTitle string) Analysis {
	fm, body := splitFrontMatter(content)

	title := ExtractTitle(body)
	if title == "" && fm != nil {
		title = fm.Title
	}
	if title == "" {
		title = fallbackTitle
	}

	depSet := make(map[string]struct{})
	for _, d := range ParseDependencies(body) {
		depSet[d] = struct{}{}
	}
	for _, section := range []string{"Dependencies", "Requires"} {
		if s := ExtractSection(body, section); s != "" {
			for _, id := range idTokenRe.FindAllString(s, -1) {
				depSet[NormalizeID(id)] = struct{}{}
			}
		}
	}
	if fm != nil {
		for _, d := range fm.DependsOn {
			if d = strings.TrimSpace(d); d != "" {
				depSet[NormalizeID(d)] = struct{}{}
			}
		}
	}

	var verificationCommands []string
	for _, line := range strings.Split(ExtractSection(body, "verification"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") {
			continue
		}
		if commandRe.MatchString(line) {
			verificationCommands = append(verificationCommands, line)
		}
	}

	referenced := ExtractPaths(body)
	outputs := ExtractPaths(ExtractSection(body, "output"))

	lowered := strings.ToLower(body)
	taskType := "implementation"
	switch {
	case strings.Contains(lowered, "test") || strings.Contains(lowered, "pytest"):
		taskType = "tests"
	case strings.Contains(lowered, "readme") || strings.Contains(lowered, "documentation") || strings.Contains(lowered, "/docs"):
		taskType = "docs"
	case strings.Contains(lowered, "refactor"):
		taskType = "refactor"
	}

	return Analysis{
		Title:                title,
		Dependencies:         sortedKeys(depSet),
		TaskType:             taskType,
		VerificationCommands: verificationCommands,
		ReferencedFiles:      referenced,
		OutputFiles:          outputs,
	}
}

// ParseRange parses comma-separated numbers and ranges ("001-005,010") into
// sorted zero-padded identifiers.
func ParseRange(spec string) ([]string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	ids := make(map[string]struct{})
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if m := rangePart.FindStringSubmatch(part); m != nil {
			start, _ := strconv.Atoi(m[1])
			end, _ := strconv.Atoi(m[2])
			if start > end {
				start, end = end, start
			}
			for n := start; n <= end; n++ {
				ids[fmt.Sprintf("%03d", n)] = struct{}{}
			}
			continue
		}
		if singlePart.MatchString(part) {
			ids[NormalizeID(part)] = struct{}{}
			continue
		}
		return nil, fmt.Errorf("invalid item range token %q (expected N or N-M)", part)
	}

	return sortedKeys(ids), nil
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
