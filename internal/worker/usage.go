package worker

import (
	"encoding/json"
	"strconv"
	"strings"
)

// UsageDelta is the resource consumption parsed from one worker call.
type UsageDelta struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	CostUSD      float64
}

// ParseUsage best-effort extracts token/cost usage from a worker's JSON
// output. Returns ok=false when no usage information could be found.
func ParseUsage(output string) (UsageDelta, bool) {
	output = strings.TrimSpace(output)
	if output == "" {
		return UsageDelta{}, false
	}
	// Workers often print log lines before the final JSON document.
	if idx := strings.Index(output, "{"); idx > 0 {
		output = output[idx:]
	}

	var v any
	if err := json.Unmarshal([]byte(output), &v); err != nil {
		return UsageDelta{}, false
	}

	// Prompt caching splits input tokens across multiple fields; sum them
	// for the true input count.
	input := findInt(v, []string{"input_tokens", "prompt_tokens"})
	input += findInt(v, []string{"cache_creation_input_tokens"})
	input += findInt(v, []string{"cache_read_input_tokens"})

	out := findInt(v, []string{"output_tokens", "completion_tokens"})
	total := findInt(v, []string{"total_tokens", "tokens"})
	cost := findFloat(v, []string{"total_cost", "cost", "total_cost_usd", "cost_usd"})

	if total == 0 && (input > 0 || out > 0) {
		total = input + out
	}
	if input == 0 && out == 0 && total == 0 && cost == 0 {
		return UsageDelta{}, false
	}

	return UsageDelta{InputTokens: input, OutputTokens: out, TotalTokens: total, CostUSD: cost}, true
}

func findInt(v any, keys []string) int {
	found, ok := findNumber(v, keys)
	if !ok {
		return 0
	}
	return int(found)
}

func findFloat(v any, keys []string) float64 {
	found, ok := findNumber(v, keys)
	if !ok {
		return 0
	}
	return found
}

func findNumber(v any, keys []string) (float64, bool) {
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}

	var walk func(any) (float64, bool)
	walk = func(x any) (float64, bool) {
		switch t := x.(type) {
		case map[string]any:
			for k, vv := range t {
				if _, ok := keySet[strings.ToLower(k)]; ok {
					if n, ok := toFloat(vv); ok {
						return n, true
					}
				}
			}
			for _, vv := range t {
				if n, ok := walk(vv); ok {
					return n, true
				}
			}
		case []any:
			for _, vv := range t {
				if n, ok := walk(vv); ok {
					return n, true
				}
			}
		}
		return 0, false
	}

	return walk(v)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
