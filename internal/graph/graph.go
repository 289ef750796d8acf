// Package graph builds item dependency graphs and levels them into ordered
// execution phases.
package graph

import (
	"fmt"
	"regexp"
	"sort"
)

// Node is one item's contribution to the dependency graph.
type Node struct {
	// ID is the stable execution reference ("003", "providers/011").
	ID string
	// Number is the zero-padded numeric prefix dependency declarations use.
	Number string
	// Deps are the extracted dependency numbers, already normalized.
	Deps []string
	// ReferencedFiles and OutputFiles drive file-reference inference.
	ReferencedFiles []string
	OutputFiles     []string
	// Text is the item content, used only by the vocabulary fallbacks.
	Text string
}

var (
	verifyVocabRe = regexp.MustCompile(`(?i)\b(verify|verification|tests?|testing|qa|validate|validation)\b`)
	setupVocabRe  = regexp.MustCompile(`(?i)\b(setup|set up|bootstrap|scaffold|init|initialize|install)\b`)
)

// Build assembles the id-keyed dependency map for one batch of items.
//
// Explicit dependency numbers are resolved against the batch's item numbers;
// numbers matching nothing are dropped and numbers matching several items are
// skipped with a warning rather than guessed. File references add edges from
// consumers to producers of the same declared output path. When the whole
// batch carries no explicit signal at all, two vocabulary fallbacks apply in
// order: verification-flavored items depend on everything else, failing that
// setup-flavored items become prerequisites of everything else. Self-edges
// are always discarded.
//
// Build never fails; ambiguities surface as warnings.
func Build(nodes []Node) (map[string][]string, []string) {
	var warnings []string

	numberToIDs := make(map[string][]string)
	for _, n := range nodes {
		if n.Number != "" {
			numberToIDs[n.Number] = append(numberToIDs[n.Number], n.ID)
		}
	}

	producers := make(map[string][]string)
	for _, n := range nodes {
		for _, f := range n.OutputFiles {
			producers[f] = append(producers[f], n.ID)
		}
	}

	deps := make(map[string][]string, len(nodes))
	explicit := false

	for _, n := range nodes {
		set := make(map[string]struct{})

		for _, depNum := range n.Deps {
			explicit = true
			matches := numberToIDs[depNum]
			switch len(matches) {
			case 0:
				// Unknown number: likely archived or mistyped. Dropped so the
				// graph only references items in this run.
			case 1:
				if matches[0] != n.ID {
					set[matches[0]] = struct{}{}
				}
			default:
				warnings = append(warnings, fmt.Sprintf(
					"ambiguous dependency %q in %s: matches %v, skipping", depNum, n.ID, matches))
			}
		}

		for _, ref := range n.ReferencedFiles {
			for _, producer := range producers[ref] {
				if producer != n.ID {
					explicit = true
					set[producer] = struct{}{}
				}
			}
		}

		deps[n.ID] = sortedSet(set)
	}

	if !explicit {
		applyVocabularyFallback(nodes, deps)
	}

	return deps, warnings
}

// applyVocabularyFallback orders an otherwise signal-free batch: verification
// items run after everything else, or setup items run before everything else.
func applyVocabularyFallback(nodes []Node, deps map[string][]string) {
	var verifiers, nonVerifiers []string
	for _, n := range nodes {
		if verifyVocabRe.MatchString(n.Text) {
			verifiers = append(verifiers, n.ID)
		} else {
			nonVerifiers = append(nonVerifiers, n.ID)
		}
	}
	if len(verifiers) > 0 && len(nonVerifiers) > 0 {
		sort.Strings(nonVerifiers)
		for _, v := range verifiers {
			deps[v] = append([]string{}, nonVerifiers...)
		}
		return
	}

	var setups, nonSetups []string
	for _, n := range nodes {
		if setupVocabRe.MatchString(n.Text) {
			setups = append(setups, n.ID)
		} else {
			nonSetups = append(nonSetups, n.ID)
		}
	}
	if len(setups) > 0 && len(nonSetups) > 0 {
		sort.Strings(setups)
		for _, id := range nonSetups {
			deps[id] = append([]string{}, setups...)
		}
	}
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
