package worker

import "strings"

// UsageLimitError indicates a worker is unavailable due to quota/usage
// limits. Surfaced so dispatch can reassign instead of failing the item.
type UsageLimitError struct {
	Worker  string
	Details string
}

func (e *UsageLimitError) Error() string {
	msg := e.Worker + " usage limit reached"
	if strings.TrimSpace(e.Details) != "" {
		msg += ": " + strings.TrimSpace(e.Details)
	}
	return msg
}

// IsUsageLimitText sniffs worker output for quota exhaustion messages.
func IsUsageLimitText(s string) bool {
	msg := strings.ToLower(s)
	return strings.Contains(msg, "out of extra usage") ||
		strings.Contains(msg, "out of usage") ||
		strings.Contains(msg, "usage limit") ||
		strings.Contains(msg, "quota")
}
