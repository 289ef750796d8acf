// Package banner prints the boxed startup header shown when a run begins
// dispatching.
package banner

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/example/gaffer/internal/state"
	"github.com/example/gaffer/internal/version"
)

// ANSI color codes
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"
	blue  = "\033[34m"
)

// Box drawing characters
const (
	topLeft     = "╭"
	topRight    = "╮"
	bottomLeft  = "╰"
	bottomRight = "╯"
	horizontal  = "─"
	vertical    = "│"
)

// Banner handles pretty startup output
type Banner struct {
	writer io.Writer
	width  int
}

// New creates a new Banner that writes to stdout
func New() *Banner {
	return &Banner{writer: os.Stdout, width: 60}
}

// NewWithWriter creates a Banner with a custom writer (for testing)
func NewWithWriter(w io.Writer) *Banner {
	return &Banner{writer: w, width: 60}
}

// Print displays the startup banner with the run's shape.
func (b *Banner) Print(rs *state.RunState) {
	fmt.Fprintf(b.writer, "\n%s%s%s%s%s\n", dim, topLeft, strings.Repeat(horizontal, b.width-2), topRight, reset)
	b.line(fmt.Sprintf("%s%sgaffer%s %s%s%s", bold, blue, reset, dim, version.String(), reset), len("gaffer ")+len(version.String()))
	b.line(fmt.Sprintf("%s%s%s", dim, rs.RunID, reset), len(rs.RunID))

	fmt.Fprintf(b.writer, "%s%s%s%s%s\n", dim, vertical, strings.Repeat(horizontal, b.width-2), vertical, reset)

	info := fmt.Sprintf("%d item%s, %d phase%s, up to %d in parallel",
		len(rs.Items), pluralize(len(rs.Items)),
		rs.TotalPhases, pluralize(rs.TotalPhases),
		maxParallel(rs))
	b.line(info, len(info))
	if workers := workerMix(rs); workers != "" {
		b.line(fmt.Sprintf("%sworkers: %s%s", dim, workers, reset), len("workers: ")+len(workers))
	}

	fmt.Fprintf(b.writer, "%s%s%s%s%s\n\n", dim, bottomLeft, strings.Repeat(horizontal, b.width-2), bottomRight, reset)
}

// line writes one padded box row. visual is the rendered width of text
// excluding ANSI codes.
func (b *Banner) line(text string, visual int) {
	padding := b.width - visual - 4
	if padding < 0 {
		padding = 0
	}
	fmt.Fprintf(b.writer, "%s%s%s  %s%s%s\n", dim, vertical, reset, text, strings.Repeat(" ", padding), dim+vertical+reset)
}

func workerMix(rs *state.RunState) string {
	counts := make(map[string]int)
	for _, it := range rs.Items {
		if it.Worker != "" {
			counts[it.Worker]++
		}
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s ×%d", name, counts[name]))
	}
	return strings.Join(parts, ", ")
}

func maxParallel(rs *state.RunState) int {
	if rs.Options.MaxParallel > 0 {
		return rs.Options.MaxParallel
	}
	return 1
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
