package domain

import "strings"

// tagAliases folds alternate spellings of the same managed concept into one
// canonical form. Applied after lowercasing and whitespace collapsing, at
// every ingestion point, so set comparisons never see two spellings.
var tagAliases = map[string]string{
	"best seller":  "bestseller",
	"best-seller":  "bestseller",
	"best sellers": "bestseller",
	"bestsellers":  "bestseller",
}

// Rules is the immutable reconciliation vocabulary: which tags this system
// manages and which series each managed tag maps to. Built once at startup
// and passed by reference into the planner and resolver, never mutated.
type Rules struct {
	managed map[string]bool
	series  map[string]string
}

// NewRules builds the rule set from a managed-tag vocabulary and a
// tag-to-series table. Keys and values are canonicalized on the way in.
func NewRules(managedTags []string, seriesByTag map[string]string) *Rules {
	r := &Rules{
		managed: make(map[string]bool, len(managedTags)),
		series:  make(map[string]string, len(seriesByTag)),
	}
	for _, t := range managedTags {
		r.managed[Canonical(t)] = true
	}
	for tag, series := range seriesByTag {
		r.series[Canonical(tag)] = strings.ToLower(strings.TrimSpace(series))
	}
	return r
}

// DefaultRules returns the stock vocabulary: gender markers plus the
// bestseller flag, each mapped to its curated collection series.
func DefaultRules() *Rules {
	return NewRules(
		[]string{"male", "female", "unisex", "bestseller"},
		map[string]string{
			"male":       "men",
			"female":     "women",
			"unisex":     "unisex",
			"bestseller": "bestsellers",
		},
	)
}

// Canonical normalizes a tag for comparison: trims, lowercases, collapses
// internal whitespace and folds known alias spellings ("BEST SELLER" and
// "bestseller" both come out as "bestseller").
func Canonical(tag string) string {
	c := strings.ToLower(strings.Join(strings.Fields(tag), " "))
	if alias, ok := tagAliases[c]; ok {
		return alias
	}
	return c
}

// IsManaged reports whether the tag, in any spelling, belongs to the
// managed vocabulary.
func (r *Rules) IsManaged(tag string) bool {
	return r.managed[Canonical(tag)]
}

// SeriesFor returns the series name a managed tag maps to.
func (r *Rules) SeriesFor(tag string) (string, bool) {
	s, ok := r.series[Canonical(tag)]
	return s, ok
}

// ManagedSubset returns the canonical forms of the managed tags present in
// the given list, preserving first-seen order and dropping duplicates.
func (r *Rules) ManagedSubset(tags []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range tags {
		c := Canonical(t)
		if r.managed[c] && !seen[c] {
			out = append(out, c)
			seen[c] = true
		}
	}
	return out
}
