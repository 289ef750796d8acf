// Package status renders run progress: an in-place terminal line while a run
// is dispatching, and a full summary for the status command.
package status

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/example/gaffer/internal/item"
	"github.com/example/gaffer/internal/state"
)

// ANSI escape codes
const (
	clearLine  = "\033[2K"
	moveUp     = "\033[A"
	moveToCol0 = "\r"
	reset      = "\033[0m"
	dim        = "\033[2m"
	green      = "\033[32m"
)

// Progress bar characters
const (
	barFilled = "█"
	barEmpty  = "░"
	barWidth  = 20
)

// Writer handles in-place status updates to the terminal
type Writer struct {
	w            io.Writer
	mu           sync.Mutex
	linesWritten int
}

// New creates a status writer that outputs to stdout
func New() *Writer {
	return &Writer{w: os.Stdout}
}

// NewWithWriter creates a status writer with a custom output
func NewWithWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Clear erases any previously written status lines
func (s *Writer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < s.linesWritten; i++ {
		fmt.Fprint(s.w, moveUp+clearLine)
	}
	fmt.Fprint(s.w, moveToCol0)
	s.linesWritten = 0
}

// Update clears previous status and writes new status
func (s *Writer) Update(lines ...string) {
	s.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range lines {
		fmt.Fprintln(s.w, line)
	}
	s.linesWritten = len(lines)
}

// progressBar generates a progress bar string
func progressBar(completed, total int) string {
	if total == 0 {
		return strings.Repeat(barEmpty, barWidth)
	}

	filled := (completed * barWidth) / total
	if filled > barWidth {
		filled = barWidth
	}

	return green + strings.Repeat(barFilled, filled) + reset +
		dim + strings.Repeat(barEmpty, barWidth-filled) + reset
}

// Progress displays the run's live progress line for the current phase.
func (s *Writer) Progress(rs *state.RunState) {
	counts := rs.CountByStatus()
	done := counts[item.StatusCompleted] + counts[item.StatusSkipped]
	total := len(rs.Items)
	bar := progressBar(done, total)

	var running []string
	for _, it := range rs.Items {
		if it.Status == item.StatusInProgress {
			running = append(running, it.ID)
		}
	}

	line := fmt.Sprintf("%s %s%d/%d%s phase %d/%d",
		bar, dim, done, total, reset, min(rs.CurrentPhase, rs.TotalPhases), rs.TotalPhases)
	if len(running) > 0 {
		line += fmt.Sprintf(" %srunning: %s%s", dim, strings.Join(running, ", "), reset)
	}
	s.Update(line)
}

var statusColors = map[item.Status]*color.Color{
	item.StatusPending:    color.New(color.Faint),
	item.StatusInProgress: color.New(color.FgCyan),
	item.StatusCompleted:  color.New(color.FgGreen),
	item.StatusFailed:     color.New(color.FgRed, color.Bold),
	item.StatusSkipped:    color.New(color.FgYellow),
}

// Summarize writes the full status report for a run.
func Summarize(w io.Writer, rs *state.RunState) {
	bold := color.New(color.Bold)

	bold.Fprintf(w, "Run %s\n", rs.RunID)
	fmt.Fprintf(w, "Created: %s\n", rs.CreatedAt.Format(time.RFC3339))
	if rs.PausedAt != nil {
		color.New(color.FgYellow).Fprintf(w, "Paused:  %s\n", rs.PausedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Phase:   %d of %d\n", min(rs.CurrentPhase, rs.TotalPhases), rs.TotalPhases)
	if rs.CycleFallback {
		color.New(color.FgYellow).Fprintln(w, "Warning: final phase holds an unresolved dependency cycle")
	}
	fmt.Fprintln(w)

	counts := rs.CountByStatus()
	fmt.Fprintf(w, "Items: %d total, %d completed, %d failed, %d skipped, %d pending\n\n",
		len(rs.Items),
		counts[item.StatusCompleted],
		counts[item.StatusFailed],
		counts[item.StatusSkipped],
		counts[item.StatusPending])

	for _, it := range rs.Items {
		c, ok := statusColors[it.Status]
		if !ok {
			c = color.New()
		}
		line := fmt.Sprintf("  %-12s %-12s %-8s %s", it.ID, it.Status, it.Worker, it.Title)
		if it.Reason != "" {
			line += " (" + it.Reason + ")"
		}
		c.Fprintln(w, line)
	}

	if len(rs.Usage) > 0 {
		fmt.Fprintln(w)
		bold.Fprintln(w, "Usage")
		var workers []string
		for name := range rs.Usage {
			workers = append(workers, name)
		}
		sort.Strings(workers)
		for _, name := range workers {
			u := rs.Usage[name]
			line := fmt.Sprintf("  %-8s %d call(s), %.1f min", name, u.Calls, u.Minutes)
			if u.TotalTokens > 0 {
				line += fmt.Sprintf(", %d tokens", u.TotalTokens)
			}
			if u.CostUSD > 0 {
				line += fmt.Sprintf(", $%.2f", u.CostUSD)
			}
			fmt.Fprintln(w, line)
		}
	}
}
