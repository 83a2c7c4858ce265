// Package categoryboost decides when search scoring applies per-category
// boosts, and serves the versioned keyword rules that drive that decision.
package categoryboost

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/aisearch/internal/domain"
)

// Rules looks up the boost map for an exact, trimmed keyword.
type Rules interface {
	FindByKeyword(ctx context.Context, keyword string) (map[string]float64, bool)
}

// Reloader forces a rule refresh.
type Reloader interface {
	Reload(ctx context.Context) error
}

// RuleSource is the external rule document. Version is the cheap read used
// to decide whether Load is needed.
type RuleSource interface {
	Version(ctx context.Context) (string, error)
	Load(ctx context.Context) (domain.CategoryBoostDocument, error)
}

var (
	ruleReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aisearch_category_boost_rule_checks_total",
			Help: "Category boost rule version checks by result (updated, unchanged, error).",
		},
		[]string{"result"},
	)

	decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aisearch_category_boost_decisions_total",
			Help: "Category boost decisions by outcome.",
		},
		[]string{"outcome"},
	)
)
