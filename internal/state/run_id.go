package state

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/gaffer/internal/item"
)

// NewRunID builds a readable, unique run identifier from a content hint and
// creation time, e.g. "gaffer-payment-flow-20260823-3f2a91cc".
func NewRunID(hint string, createdAt time.Time) string {
	slug := item.Slugify(firstLine(hint))
	if len(slug) > 24 {
		slug = slug[:24]
	}
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("gaffer-%s-%s-%s", slug, createdAt.Format("20060102"), suffix)
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
