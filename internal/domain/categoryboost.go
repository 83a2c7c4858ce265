package domain

import (
	"maps"
	"strings"
)

// CategoryBoostRule is one rule as it appears in a rule document.
type CategoryBoostRule struct {
	Keyword           string              `json:"keyword" yaml:"keyword"`
	CategoryBoostByID map[string]*float64 `json:"categoryBoostById" yaml:"categoryBoostById"`
}

// CategoryBoostDocument is the external rule document.
type CategoryBoostDocument struct {
	Version string              `json:"version" yaml:"version"`
	Rules   []CategoryBoostRule `json:"rules" yaml:"rules"`
}

// CategoryBoostRuleSet is an immutable, versioned keyword index of boosts.
type CategoryBoostRuleSet struct {
	version string
	rules   map[string]map[string]float64
}

// EmptyCategoryBoostRuleSet has no version and no rules.
func EmptyCategoryBoostRuleSet() *CategoryBoostRuleSet {
	return &CategoryBoostRuleSet{rules: map[string]map[string]float64{}}
}

// NewCategoryBoostRuleSet normalizes doc. A blank version is invalid.
// Keywords are trimmed; blank category keys and null weights are dropped,
// as are rules left with no entries. A later rule for the same keyword
// replaces an earlier one.
func NewCategoryBoostRuleSet(doc CategoryBoostDocument) (*CategoryBoostRuleSet, error) {
	version := strings.TrimSpace(doc.Version)
	if version == "" {
		return nil, ErrInvalidRuleDocument
	}

	rules := make(map[string]map[string]float64, len(doc.Rules))
	for _, r := range doc.Rules {
		keyword := strings.TrimSpace(r.Keyword)
		if keyword == "" {
			continue
		}
		boosts := make(map[string]float64, len(r.CategoryBoostByID))
		for key, weight := range r.CategoryBoostByID {
			key = strings.TrimSpace(key)
			if key == "" || weight == nil {
				continue
			}
			boosts[key] = *weight
		}
		if len(boosts) == 0 {
			continue
		}
		rules[keyword] = boosts
	}

	return &CategoryBoostRuleSet{version: version, rules: rules}, nil
}

// Version returns the version token, "" for the empty set.
func (s *CategoryBoostRuleSet) Version() string {
	return s.version
}

// Len returns the number of keywords.
func (s *CategoryBoostRuleSet) Len() int {
	return len(s.rules)
}

// Find returns a copy of the boosts for the exact keyword.
func (s *CategoryBoostRuleSet) Find(keyword string) (map[string]float64, bool) {
	boosts, ok := s.rules[keyword]
	if !ok {
		return nil, false
	}
	return maps.Clone(boosts), true
}

// CategoryBoostingDecision is the per-request outcome of the boost decider.
type CategoryBoostingDecision struct {
	ApplyBoost        bool
	EffectiveSort     SortOption
	BoostByCategoryID map[string]float64
}

// NoBoost returns a decision that leaves scoring untouched.
func NoBoost(sort SortOption) CategoryBoostingDecision {
	return CategoryBoostingDecision{EffectiveSort: sort, BoostByCategoryID: map[string]float64{}}
}
