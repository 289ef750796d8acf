package item

import (
	"regexp"
	"strings"
)

// Status is the lifecycle state of a work item within a run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Terminal reports whether the status ends an item's participation in a run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Item is one work item file discovered on disk.
type Item struct {
	// Number is the zero-padded numeric prefix of the filename ("001").
	Number string
	// Name is the filename ("001-setup.md").
	Name string
	// Path is the absolute path.
	Path string
	// Folder is the subfolder relative to the items dir, "" for root.
	Folder string
	// Ref is the stable execution reference: "011", "providers/011", or the
	// filename stem when numeric refs collide.
	Ref string
	// Content is the raw markdown.
	Content string
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts free text into a filename-safe slug.
func Slugify(text string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(text), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	if slug == "" {
		return "item"
	}
	return slug
}
