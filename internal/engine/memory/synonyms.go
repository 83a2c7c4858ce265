package memory

import (
	"strings"

	"github.com/utafrali/aisearch/internal/engine"
)

// synonymTable maps a lowercased term to the terms it expands to at
// search time. "a, b, c" makes every term equivalent; "a, b => c" maps
// a and b to c only.
type synonymTable map[string][]string

func newSynonymTable(rules []engine.SynonymRule) synonymTable {
	table := synonymTable{}
	for _, r := range rules {
		lhs, rhs, explicit := strings.Cut(r.Synonyms, "=>")
		if explicit {
			targets := splitTerms(rhs)
			for _, term := range splitTerms(lhs) {
				table.add(term, targets...)
			}
			continue
		}
		terms := splitTerms(lhs)
		for _, term := range terms {
			table.add(term, terms...)
		}
	}
	return table
}

func (t synonymTable) add(term string, targets ...string) {
	for _, target := range targets {
		if target == term {
			continue
		}
		t[term] = append(t[term], target)
	}
}

// expand returns the extra phrases text should also match.
func (t synonymTable) expand(text string) []string {
	if len(t) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	candidates := append([]string{strings.ToLower(strings.TrimSpace(text))}, strings.Fields(strings.ToLower(text))...)
	for _, c := range candidates {
		for _, syn := range t[c] {
			if _, dup := seen[syn]; dup {
				continue
			}
			seen[syn] = struct{}{}
			out = append(out, syn)
		}
	}
	return out
}

func splitTerms(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if term := strings.ToLower(strings.TrimSpace(part)); term != "" {
			out = append(out, term)
		}
	}
	return out
}
