package verify

import (
	"regexp"
	"strings"
)

// SentinelToken closes the wrapped instruction block. The instructions
// contain literal examples of both signals, so detection must only consider
// transcript text after the first occurrence of this token.
const SentinelToken = "</verification_protocol>"

// DefaultCompletionMarker is the marker workers emit when no custom one is
// configured.
const DefaultCompletionMarker = "VERIFICATION_COMPLETE"

var retrySignalRe = regexp.MustCompile(`(?is)<verification>\s*NEEDS_RETRY:\s*(.+?)\s*</verification>`)

// Detect scans a transcript for the completion or retry signal. A retry
// signal takes precedence over a completion signal appearing anywhere else.
func Detect(transcript, marker string) (completed bool, retryReason string) {
	if i := strings.Index(transcript, SentinelToken); i >= 0 {
		transcript = transcript[i:]
	}

	if m := retrySignalRe.FindStringSubmatch(transcript); m != nil {
		return false, strings.TrimSpace(m[1])
	}

	if marker == "" {
		marker = DefaultCompletionMarker
	}
	completionRe := regexp.MustCompile(`(?i)<verification>\s*` + regexp.QuoteMeta(marker) + `\s*</verification>`)
	return completionRe.MatchString(transcript), ""
}

var (
	nextStepsHeaderRe = regexp.MustCompile(`(?i)^\s*(?:next\s+steps?:|suggested\s+(?:next\s+)?steps?:|todo:|remaining\s+(?:work|tasks?):|follow[- ]?up(?:\s+tasks?)?:)\s*(.*)$`)
	nextStepsItemRe   = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*(.+)$`)

	stepSpaceRe   = regexp.MustCompile(`\s+`)
	stepNonWordRe = regexp.MustCompile(`[^\w\s-]`)
)

// ExtractNextSteps pulls follow-up suggestions out of a transcript: any
// "next steps" style header followed by list items or a short run of plain
// lines. Best effort and deduplicated; an empty result is normal.
func ExtractNextSteps(transcript string) []NextStep {
	lines := strings.Split(transcript, "\n")
	var steps []NextStep
	seen := make(map[string]bool)

	add := func(text, original string) {
		text = normalizeStepText(text)
		if text == "" {
			return
		}
		key := normalizeStepKey(text)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		if original == "" {
			original = text
		}
		steps = append(steps, NextStep{Text: text, Original: original})
	}

	for i := 0; i < len(lines); i++ {
		header := nextStepsHeaderRe.FindStringSubmatch(lines[i])
		if header == nil {
			continue
		}

		var block []string
		if inline := strings.TrimSpace(header[1]); inline != "" {
			block = append(block, inline)
		}
		for i++; i < len(lines); i++ {
			line := lines[i]
			if nextStepsHeaderRe.MatchString(line) {
				i--
				break
			}
			if strings.TrimSpace(line) == "" {
				if len(block) > 0 {
					break
				}
				continue
			}
			block = append(block, line)
		}

		// Bullets and numbered entries are items; indented continuations
		// extend the current item; bare lines stand alone.
		var cur []string
		var curOrig string
		flush := func() {
			if len(cur) > 0 {
				add(strings.Join(cur, " "), curOrig)
			}
			cur, curOrig = nil, ""
		}
		for _, raw := range block {
			if m := nextStepsItemRe.FindStringSubmatch(raw); m != nil {
				flush()
				curOrig = strings.TrimSpace(raw)
				cur = []string{strings.TrimSpace(m[1])}
				continue
			}
			trimmed := strings.TrimSpace(raw)
			if len(cur) > 0 {
				cur = append(cur, trimmed)
				curOrig += " " + trimmed
			} else {
				add(trimmed, trimmed)
			}
		}
		flush()
	}
	return steps
}

func normalizeStepText(s string) string {
	s = stepSpaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.Trim(s, " .;:-")
}

func normalizeStepKey(s string) string {
	s = stepNonWordRe.ReplaceAllString(strings.ToLower(s), "")
	return strings.TrimSpace(stepSpaceRe.ReplaceAllString(s, " "))
}
