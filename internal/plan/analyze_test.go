package plan

import (
	"testing"
)

const sampleSpec = `# Shop Service

Intro text before any component.

## Database
Schema for users and orders.

## Auth
Login and sessions. Depends on database.

## API
REST endpoints. Requires auth.

## Frontend
Web UI talking to the API.
`

func TestAnalyzeSpecComponents(t *testing.T) {
	a := AnalyzeSpec(sampleSpec)

	var slugs []string
	for _, c := range a.Components {
		slugs = append(slugs, c.Slug)
	}
	want := []string{"overview", "database", "auth", "api", "frontend"}
	if len(slugs) != len(want) {
		t.Fatalf("slugs = %v, want %v", slugs, want)
	}
	for i := range want {
		if slugs[i] != want[i] {
			t.Errorf("slugs[%d] = %s, want %s", i, slugs[i], want[i])
		}
	}
}

func TestAnalyzeSpecDependencies(t *testing.T) {
	a := AnalyzeSpec(sampleSpec)

	hasDep := func(src, dst string) bool {
		for _, d := range a.Dependencies[src] {
			if d == dst {
				return true
			}
		}
		return false
	}

	if !hasDep("auth", "database") {
		t.Error("auth must depend on database (explicit phrase)")
	}
	if !hasDep("api", "auth") {
		t.Error("api must depend on auth (requires phrase)")
	}
	if !hasDep("frontend", "api") {
		t.Error("frontend must depend on api (title mention)")
	}
	if hasDep("database", "database") {
		t.Error("self dependencies must be discarded")
	}
}

func TestAnalyzeSpecNoHeadings(t *testing.T) {
	a := AnalyzeSpec("just a blob of prose\nwith no structure")
	if len(a.Components) != 1 || a.Components[0].Slug != "overview" {
		t.Errorf("components = %+v, want single overview", a.Components)
	}
}

func TestProjectHint(t *testing.T) {
	if got := ProjectHint("# Payment Flow\n\nbody", ""); got != "Payment Flow" {
		t.Errorf("hint = %q", got)
	}
	if got := ProjectHint("no heading", "/specs/checkout.md"); got != "checkout" {
		t.Errorf("hint = %q", got)
	}
	if got := ProjectHint("", ""); got != "run" {
		t.Errorf("hint = %q", got)
	}
}

func TestModelForText(t *testing.T) {
	models := []string{"claude", "codex", "gemini"}
	tests := []struct {
		text string
		want string
	}{
		{"design the authentication state machine", "claude"},
		{"write api documentation", "gemini"},
		{"implement the widget parser", "codex"},
	}
	for _, tt := range tests {
		if got := ModelForText(tt.text, models); got != tt.want {
			t.Errorf("ModelForText(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}

	if got := ModelForText("auth design", []string{"codex"}); got != "codex" {
		t.Errorf("unlisted preference must fall back to first model, got %s", got)
	}
}

func TestAssignModelsAvailabilityDemotion(t *testing.T) {
	hints := []RoutingHint{{ID: "001", Text: "auth architecture"}}
	models := []string{"claude", "codex", "gemini"}

	got := AssignModels(hints, models, nil)
	if got["001"] != "claude" {
		t.Errorf("no feed: got %s, want claude", got["001"])
	}

	feed := stubFeed{"claude": false, "codex": true}
	got = AssignModels(hints, models, feed)
	if got["001"] != "codex" {
		t.Errorf("claude exhausted: got %s, want codex", got["001"])
	}
}

type stubFeed map[string]bool

func (f stubFeed) Availability() map[string]bool { return f }
