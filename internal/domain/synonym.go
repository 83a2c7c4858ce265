package domain

import (
	"strings"

	apperrors "github.com/utafrali/aisearch/pkg/errors"
)

// SynonymMode selects which rule file a reload reads.
type SynonymMode string

const (
	SynonymModeProduction SynonymMode = "PRODUCTION"
	SynonymModeRegression SynonymMode = "REGRESSION"
)

// ParseSynonymMode parses s case-insensitively. Blank means PRODUCTION.
func ParseSynonymMode(s string) (SynonymMode, error) {
	switch SynonymMode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", SynonymModeProduction:
		return SynonymModeProduction, nil
	case SynonymModeRegression:
		return SynonymModeRegression, nil
	default:
		return "", apperrors.InvalidInputf("unknown synonym mode %q", s)
	}
}

// SynonymReloadRequest asks for a synonym set push and analyzer reload.
// Blank Index and SynonymSetID fall back to configuration.
type SynonymReloadRequest struct {
	Mode         SynonymMode `json:"mode"`
	Index        string      `json:"index,omitempty"`
	SynonymSetID string      `json:"synonymsSet,omitempty"`
}

// SynonymReloadResult reports a reload.
type SynonymReloadResult struct {
	Updated      bool        `json:"updated"`
	Reloaded     bool        `json:"reloaded"`
	Mode         SynonymMode `json:"mode"`
	SynonymSetID string      `json:"synonymsSet"`
	Index        string      `json:"index"`
	RuleCount    int         `json:"ruleCount"`
	Message      string      `json:"message"`
}
