package plan

import (
	"strings"

	"github.com/example/gaffer/internal/worker"
)

// RoutingHint is the text used to route one item to a worker model.
type RoutingHint struct {
	ID   string
	Text string
}

var (
	claudeKeywords = []string{"architecture", "design", "state machine", "auth", "authentication", "oauth", "encryption"}
	geminiKeywords = []string{"integration", "api", "docs", "documentation", "sdk", "third-party"}
)

// ModelForText routes work by flavor: design and security leaning items to
// claude, integration and documentation to gemini, everything else to codex.
// The preference only holds when that model is in the configured list.
func ModelForText(text string, models []string) string {
	t := strings.ToLower(text)
	preferred := "codex"
	if containsAny(t, claudeKeywords) {
		preferred = "claude"
	} else if containsAny(t, geminiKeywords) {
		preferred = "gemini"
	}

	for _, m := range models {
		if m == preferred {
			return preferred
		}
	}
	if len(models) > 0 {
		return models[0]
	}
	return "codex"
}

// AssignModels routes every item, then demotes choices the availability feed
// reports as exhausted to the first available configured model. The feed is
// advisory; no signal means no demotion.
func AssignModels(hints []RoutingHint, models []string, feed worker.Feed) map[string]string {
	var avail map[string]bool
	if feed != nil {
		avail = feed.Availability()
	}

	assignments := make(map[string]string, len(hints))
	for _, h := range hints {
		model := ModelForText(h.Text, models)
		if avail != nil {
			if v, ok := avail[model]; ok && !v {
				for _, m := range models {
					if v, ok := avail[m]; !ok || v {
						model = m
						break
					}
				}
			}
		}
		assignments[h.ID] = model
	}
	return assignments
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
